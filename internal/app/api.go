package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	v1 "github.com/ishiev/rtiles/internal/infrastructure/http/v1"
	"github.com/ishiev/rtiles/internal/infrastructure/http/v1/handler"
	"github.com/ishiev/rtiles/internal/repository/access"
	"github.com/ishiev/rtiles/internal/repository/cache"
	"github.com/ishiev/rtiles/internal/repository/registry"
	"github.com/ishiev/rtiles/internal/repository/storage"
	"github.com/ishiev/rtiles/internal/stat"
	"github.com/ishiev/rtiles/internal/usecase"
	"github.com/ishiev/rtiles/pkg/config"
	"github.com/ishiev/rtiles/pkg/http_server"
	"github.com/ishiev/rtiles/pkg/logger"
	"github.com/ishiev/rtiles/pkg/telemetry"
)

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(cfg.Logger.Level)

	l.Info("app config", "cfg", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, l)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize tracer", "error", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				l.Error("tracer shutdown failed", "error", err)
			}
		}()
	}

	resolver := access.NewAuthorityResolver(cfg.Access, l)
	accessCache := access.NewCache(resolver, cfg.Access, l)

	modelRegistry := registry.NewFSRegistry(cfg.Storage, l)
	tileStorage := storage.NewFilesystem(cfg.Storage, l)

	contentCache, closeCache, err := newContentCache(cfg, l)
	if err != nil {
		l.Fatal("failed to initialize content cache", "error", err)
	}
	if closeCache != nil {
		defer closeCache()
	}

	statTable := stat.New(l)
	defer statTable.Close()

	tileUseCase := usecase.NewTileUseCase(
		accessCache,
		modelRegistry,
		tileStorage,
		contentCache,
		statTable,
		cfg.Storage.MaxAge,
		cfg.Cache.MaxObjectBytes,
		l,
	)
	statUseCase := usecase.NewStatUseCase(accessCache, statTable)
	adminUseCase := usecase.NewAdminUseCase(accessCache, modelRegistry, l)

	validate := validator.New()
	handler := handler.NewHandler(validate, tileUseCase, statUseCase, adminUseCase, cfg.Admin.Token, l)
	router := v1.NewRouter(handler, cfg, l)

	httpServer := http_server.NewServer(cfg.HTTP.Server, router)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.ListenAndServe()
	}()

	l.Info("starting http server...", "address", httpServer.Addr)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("http server failed", "error", err)
		}
	case <-ctx.Done():
		l.Info("received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	} else {
		l.Info("http_server shutdown completed")
	}

	l.Info("application shutdown completed")
}

func newContentCache(cfg *config.Config, l logger.Logger) (cache.TileCache, func() error, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(cfg.Cache), nil, nil
	case "redis":
		c, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case "sqlite":
		c, err := cache.NewSQLiteCache(cfg.SQLite.Path, l)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default: // "off"
		return nil, nil, nil
	}
}
