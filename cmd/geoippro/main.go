package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/richxcame/geoippro/internal/audit"
	"github.com/richxcame/geoippro/internal/geocode"
	"github.com/richxcame/geoippro/internal/geoip"
	"github.com/richxcame/geoippro/internal/invoices"
	"github.com/richxcame/geoippro/internal/portprobe"
	"github.com/richxcame/geoippro/internal/reputation"
	"github.com/richxcame/geoippro/internal/risk"
	"github.com/richxcame/geoippro/pkg/config"
	"github.com/richxcame/geoippro/pkg/database"
	"github.com/richxcame/geoippro/pkg/errtrack"
	"github.com/richxcame/geoippro/pkg/eventbus"
	"github.com/richxcame/geoippro/pkg/health"
	"github.com/richxcame/geoippro/pkg/logger"
	"github.com/richxcame/geoippro/pkg/redis"
	"github.com/richxcame/geoippro/pkg/secrets"
	"github.com/richxcame/geoippro/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const (
	serviceName     = "geoippro"
	shutdownTimeout = 15 * time.Second
	healthCacheTTL  = 5 * time.Second
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("geoippro exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := errtrack.Init(cfg.Sentry, cfg.Server.Environment, cfg.Server.Version); err != nil {
		logger.Warn("Sentry disabled", zap.Error(err))
	}
	defer errtrack.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, serviceName, cfg.Server.Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	apiKey, err := secrets.ResolveString(ctx, cfg.Secrets, "reputation", secrets.SecretReputationAPIKey,
		cfg.Reputation.APIKeySecretRef, cfg.Reputation.APIKey)
	if err != nil {
		return fmt.Errorf("resolve reputation api key: %w", err)
	}

	cfg.JWT.Secret, err = secrets.ResolveString(ctx, cfg.Secrets, "jwt", secrets.SecretJWTSigningKey,
		cfg.JWT.SecretRef, cfg.JWT.Secret)
	if err != nil {
		return fmt.Errorf("resolve jwt secret: %w", err)
	}

	riskCfg, err := risk.NewConfiguration(risk.Settings{
		ReputationEnabled:        cfg.Risk.ReputationEnabled,
		ReputationAPIKey:         apiKey,
		ReputationScoreThreshold: cfg.Risk.ReputationScoreThreshold,
		MismatchEnabled:          cfg.Risk.MismatchEnabled,
		DistanceEnabled:          cfg.Risk.DistanceEnabled,
		MaxDistanceMiles:         cfg.Risk.MaxDistanceMiles,
		PortEnabled:              cfg.Risk.PortEnabled,
		NetworkTypeEnabled:       cfg.Risk.NetworkTypeEnabled,
		CountryListMode:          cfg.Risk.CountryListMode,
		CountryCodes:             cfg.Risk.CountryCodes,
	})
	if err != nil {
		return fmt.Errorf("invalid risk configuration: %w", err)
	}
	logger.Info("Risk checks configured", zap.Any("config", riskCfg.Summary()))

	checks := make(map[string]func() error)

	var geo risk.GeoResolver
	if resolver, err := geoip.Open(cfg.GeoIP.CityDBPath, cfg.GeoIP.ASNDBPath); err != nil {
		logger.Warn("GeoIP databases unavailable, geo checks will fail open", zap.Error(err))
	} else {
		defer resolver.Close()
		geo = resolver
	}

	var rep risk.ReputationClient = reputation.NewClient(cfg.Reputation)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, reputation lookups will not be cached", zap.Error(err))
		} else {
			defer redisClient.Close()
			rep = reputation.NewCachedClient(rep, redisClient, cfg.Reputation.CacheTTL)
			checks["redis"] = health.Cached(health.RedisChecker(redisClient.Client), healthCacheTTL)
			logger.Info("Connected to Redis")
		}
	}

	engine := risk.NewEngine(geo, rep, portprobe.New(), geocode.NewClient(cfg.Geocoder),
		risk.WithTimeouts(risk.Timeouts{
			Geo:        cfg.GeoIP.Timeout,
			Reputation: cfg.Reputation.Timeout,
			Geocode:    cfg.Geocoder.Timeout,
		}),
		risk.WithTracer(otel.Tracer(serviceName)),
	)

	var repo risk.EvaluationRepository
	if cfg.Database.Enabled() {
		if cfg.Database.MigrationsRun {
			if err := database.Migrate(&cfg.Database, audit.Migrations, audit.MigrationsDir); err != nil {
				return err
			}
		}
		pool, err := database.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close(pool)
		repo = audit.NewRepository(pool)
		checks["database"] = health.Cached(health.DatabaseChecker(pool), healthCacheTTL)
		logger.Info("Connected to PostgreSQL, evaluation audit enabled")
	}

	service := risk.NewService(engine, repo, riskCfg)

	if cfg.NATS.Enabled {
		bus, err := eventbus.Connect(ctx, cfg.NATS, serviceName)
		if err != nil {
			return err
		}
		defer bus.Close()
		if err := invoices.NewEventHandler(service, bus).RegisterSubscriptions(ctx, bus, cfg.NATS.Durable); err != nil {
			return err
		}
		checks["nats"] = health.PingChecker(bus, time.Second)
	}

	router := newRouter(cfg, risk.NewHandler(service), checks)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("geoippro starting",
			zap.String("port", cfg.Server.Port),
			zap.String("version", cfg.Server.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
