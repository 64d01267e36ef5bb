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

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/repository"
	"shareit/internal/service"
	"shareit/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
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

	store, db, err := initStore(cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, redisClient := initEventBus(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	clock := service.SystemClock()
	svc := api.Services{
		Users:    service.NewUserService(store, &logger),
		Items:    service.NewItemService(store, clock, bus, &logger),
		Bookings: service.NewBookingService(store, clock, bus, &logger),
		Comments: service.NewCommentService(store, clock, bus, &logger),
		Requests: service.NewRequestService(store, clock, bus, &logger),
	}

	ready := func(ctx context.Context) error { return nil }
	if db != nil {
		ready = db.Healthy
		backup := database.NewBackupService(db, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.API, svc, ready, clock, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, ready, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		go grpcServer.WatchHealth(ctx)
	}

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
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
	logger := baseLogger.With().Str("component", "server-main").Logger()

	return cfg, logger, closer, nil
}

// initStore opens the configured store; db is nil for the memory driver.
func initStore(cfg *config.Config, logger *zerolog.Logger) (domain.Store, *database.DB, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), nil, nil
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, nil, err
	}
	return db, db, nil
}

func initEventBus(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*events.EventBus, *redis.Client) {
	bus := events.NewEventBus()
	events.SubscribeAudit(bus, logger)
	metrics.SubscribeEvents(bus)

	if !cfg.Telegram.Enabled {
		return bus, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return bus, nil
	}
	bot.Debug = cfg.Telegram.Debug

	tg := service.NewTelegramService(bot, cfg.Telegram.ChatID, logger)
	tg.Subscribe(bus)

	// очередь в Redis переживает рестарт, без него остаётся в памяти
	var client *redis.Client
	if cfg.Redis.Address != "" {
		client = repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, client); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, notifications queued in memory")
			_ = client.Close()
			client = nil
		}
	}

	deliver := func(ctx context.Context, n worker.Notification) error {
		return tg.Notify(ctx, n.Text)
	}
	w := worker.NewNotifyWorker(deliver, client, worker.RetryPolicy{}, cfg.App.Name, logger)
	go w.Start(ctx)
	tg.UseQueue(w)

	logger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram notifications enabled")
	return bus, client
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("driver", cfg.Database.Driver).Msg("shareit server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("http server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("shareit server stopped")
	return runErr
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
