package main

import (
	"net/http"
	"strings"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/geoippro/internal/risk"
	"github.com/richxcame/geoippro/pkg/common"
	"github.com/richxcame/geoippro/pkg/config"
	"github.com/richxcame/geoippro/pkg/middleware"
)

const maxRequestBody = 64 << 10

// newRouter assembles the HTTP surface: probes and metrics are public, the
// risk API requires a service token.
func newRouter(cfg *config.Config, handler *risk.Handler, checks map[string]func() error) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger("/healthz", "/metrics"))
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders())
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	router.GET("/healthz", common.HealthCheckWithDeps(cfg.Server.ServiceName, cfg.Server.Version, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.ServiceAuth(cfg.JWT))
	api.Use(middleware.MaxBodySize(maxRequestBody))
	api.Use(requestTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	handler.RegisterRoutes(api)

	return router
}

func corsConfig(origins string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowOrigins = splitOrigins(origins)
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader}
	c.ExposeHeaders = []string{middleware.CorrelationIDHeader}
	return c
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return timeout.New(
		timeout.WithTimeout(d),
		timeout.WithResponse(func(c *gin.Context) {
			common.ErrorResponse(c, http.StatusGatewayTimeout, "request timed out")
		}),
	)
}
