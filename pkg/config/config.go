package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Access    Access    `envPrefix:"ACCESS_"`
		Storage   Storage   `envPrefix:"STORAGE_"`
		Cache     Cache     `envPrefix:"CACHE_"`
		Redis     Redis     `envPrefix:"REDIS_"`
		SQLite    SQLite    `envPrefix:"SQLITE_"`
		Admin     Admin     `envPrefix:"ADMIN_"`
	}

	HTTP struct {
		Server   Server        `envPrefix:"SERVER_"`
		BasePath string        `env:"BASE_PATH" envDefault:"/3d"`
		Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
	}

	Server struct {
		Port         string        `env:"PORT,required"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level string `env:"LEVEL,required"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"rtiles"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	// Access holds the permission authority endpoint and the tuning for
	// the session permission cache.
	Access struct {
		AuthorityURL string        `env:"AUTHORITY_URL" envDefault:"http://127.0.0.1:8888" validate:"url"`
		Timeout      time.Duration `env:"TIMEOUT" envDefault:"5s"`
		CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"30m"`
		CacheSize    int           `env:"CACHE_SIZE" envDefault:"100000" validate:"gt=0"`
		CacheShards  int           `env:"CACHE_SHARDS" envDefault:"16" validate:"gt=0"`
		CookieName   string        `env:"COOKIE_NAME" envDefault:"session_id"`
		SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	}

	Storage struct {
		Root    string        `env:"ROOT" envDefault:"data"`
		MaxAge  time.Duration `env:"MAX_AGE" envDefault:"30m"`
		MetaTTL time.Duration `env:"META_TTL" envDefault:"60s"`
	}

	// Cache configures the tile content cache. Backend "off" disables it.
	Cache struct {
		Backend        string        `env:"BACKEND" envDefault:"memory" validate:"oneof=memory redis sqlite off"`
		MaxEntries     int           `env:"MAX_ENTRIES" envDefault:"10000" validate:"gt=0"`
		MaxObjectBytes int64         `env:"MAX_OBJECT_BYTES" envDefault:"1048576" validate:"gt=0"`
		TTL            time.Duration `env:"TTL" envDefault:"24h"`
	}

	Redis struct {
		Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
		Password string        `env:"PASSWORD" envDefault:""`
		DB       int           `env:"DB" envDefault:"0"`
		TTL      time.Duration `env:"TTL" envDefault:"24h"`
	}

	SQLite struct {
		Path string `env:"PATH" envDefault:"cache.db"`
	}

	Admin struct {
		Token string `env:"TOKEN" envDefault:""`
	}
)

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
