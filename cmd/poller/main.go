package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"social_fetcher/internal/config"
	"social_fetcher/internal/metrics"
	"social_fetcher/internal/publisher"
	"social_fetcher/internal/scheduler"
	"social_fetcher/internal/service"
	"social_fetcher/internal/source/api"
	"social_fetcher/internal/storage/mongodb"
	"social_fetcher/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoCfg := mongodb.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		TrackingSets:   cfg.Mongo.Collections.TrackingSets,
		Profiles:       cfg.Mongo.Collections.Profiles,
		Posts:          cfg.Mongo.Collections.Posts,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	client, err := mongodb.Connect(connectCtx, mongoCfg)
	connectCancel()
	if err != nil {
		logger.Error("failed to connect to mongodb", "error", err)
		os.Exit(1)
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
	}()
	logger.Info("connected to mongodb", "database", cfg.Mongo.Database)

	db := client.Database(cfg.Mongo.Database)
	if err := mongodb.EnsureIndexes(ctx, db, mongoCfg); err != nil {
		logger.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	var ledger *service.Ledger
	if cfg.Database.Enabled() {
		pg, err := sqlx.Connect("postgres", cfg.Database.DSN())
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		logger.Info("connected to database")

		ledger = service.NewLedger(
			postgres.NewRunStore(pg),
			postgres.NewPlatformStateStore(pg),
			postgres.NewTransactionManager(pg),
		)
	}

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	if cfg.MetricsAddr != "" {
		srv, err := metrics.StartServer(cfg.MetricsAddr, logger)
		if err != nil {
			logger.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("metrics server started", "addr", cfg.MetricsAddr)
	}

	source := api.New(api.Config{
		Endpoints:      cfg.Fetch.Endpoints,
		FallbackURL:    cfg.Fetch.FallbackURL,
		QueryParam:     cfg.Fetch.QueryParam,
		Timeout:        cfg.Fetch.Timeout,
		RatePerSecond:  cfg.Fetch.RatePerSecond,
		Burst:          cfg.Fetch.Burst,
		MaxAttempts:    cfg.Fetch.Retry.MaxAttempts,
		InitialBackoff: cfg.Fetch.Retry.InitialBackoff,
		MaxBackoff:     cfg.Fetch.Retry.MaxBackoff,
	}, logger)

	runner := service.NewRunner(
		mongodb.NewTrackingSetStore(db, cfg.Mongo.Collections.TrackingSets),
		mongodb.NewProfileStore(db, cfg.Mongo.Collections.Profiles),
		mongodb.NewPostStore(db, cfg.Mongo.Collections.Posts),
		source,
		ledger,
		pub,
		logger,
		cfg.Poll,
	)

	sched := scheduler.NewScheduler(runner, cfg.Poll.Interval, cfg.Poll.RunTimeout, logger)

	if *once {
		report := sched.RunOnce(ctx)
		if report.Err != nil {
			os.Exit(1)
		}
		return
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting social poller",
		"interval", cfg.Poll.Interval,
		"platforms", len(cfg.Fetch.Endpoints),
		"ledger", ledger != nil,
		"events", pub != nil,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
