package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ishiev/rtiles/internal/infrastructure/http/v1/handler"
	"github.com/ishiev/rtiles/internal/infrastructure/http/v1/middleware"
	"github.com/ishiev/rtiles/pkg/config"
	"github.com/ishiev/rtiles/pkg/logger"
	"github.com/ishiev/rtiles/pkg/telemetry"
)

func NewRouter(handler *handler.Handler, cfg *config.Config, l logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(ginZapLogger(l))
	if cfg.Telemetry.Enabled {
		r.Use(telemetry.GinMiddleware(cfg.Telemetry.ServiceName))
	}
	r.Use(middleware.Session(cfg.Access))

	tiles := r.Group(cfg.HTTP.BasePath)
	tiles.GET("/models/:model/*filepath", handler.Tile)

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.GET("/healthz", handler.Healthz)
	v1.GET("/stat", handler.Stat)
	v1.GET("/stat/:model", handler.Stat)
	v1.POST("/invalidate/model/:model", handler.InvalidateModel)
	v1.POST("/invalidate/session/:id", handler.InvalidateSession)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("logger", l)

		start := time.Now()

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		l.Info("request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", latency,
			"size", c.Writer.Size(),
		)
	}
}
