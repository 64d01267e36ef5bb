package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/gateway"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/models"
	"shareit/internal/repository"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter, redisClient := initRateLimiter(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	backend := gateway.NewBackendClient(cfg.Gateway.ServerURL, cfg.Gateway.APIKey, cfg.Gateway.APIExtra, cfg.Gateway.Timeout)

	ready := gateway.ReadinessProbe(backend.Ready)
	if cfg.Gateway.GRPCAddr != "" {
		probe, err := gateway.NewGRPCHealthProbe(cfg.Gateway.GRPCAddr, models.HealthServiceName, cfg.Gateway.APIKey, cfg.Gateway.APIExtra)
		if err != nil {
			return err
		}
		defer func() { _ = probe.Close() }()
		ready = probe.Check
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Gateway.MetricsPort, &logger)
	}

	gw := gateway.New(cfg.Gateway, backend, limiter, ready, &logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("gateway stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = gw.Shutdown(shutdownCtx)

	logger.Info().Msg("gateway stopped")
	return runErr
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "gateway-main").Logger()

	return cfg, logger, closer, nil
}

// initRateLimiter prefers Redis and falls back to process memory; without
// a Redis address only the memory limiter is used.
func initRateLimiter(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.RateLimiter, *redis.Client) {
	if !cfg.Gateway.RateLimit.Enabled {
		return nil, nil
	}

	memory := repository.NewMemoryRateLimiter()
	go pruneLoop(ctx, memory, cfg.Gateway.RateLimit.Window)

	if cfg.Redis.Address == "" {
		logger.Info().Msg("rate limiting in memory")
		return memory, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable at startup, will retry through failover")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	primary := repository.NewRedisRateLimiter(client, cfg.App.Name)
	return repository.NewFailoverRateLimiter(primary, memory, logger), client
}

func pruneLoop(ctx context.Context, limiter *repository.MemoryRateLimiter, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune()
		}
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
