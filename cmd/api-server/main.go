package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/api"
	"github.com/hackgods/clinic-queue/internal/auth"
	"github.com/hackgods/clinic-queue/internal/broadcast"
	"github.com/hackgods/clinic-queue/internal/clinic"
	"github.com/hackgods/clinic-queue/internal/config"
	"github.com/hackgods/clinic-queue/internal/db"
	"github.com/hackgods/clinic-queue/internal/kiosk"
	"github.com/hackgods/clinic-queue/internal/logging"
	redisclient "github.com/hackgods/clinic-queue/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api-server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("api-server starting up", zap.String("http_port", cfg.HTTPPort), zap.String("version", version))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 30*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg, logger)
	cancelPg()
	if err != nil {
		return fmt.Errorf("postgres connection error: %w", err)
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg)
	if err != nil {
		return fmt.Errorf("redis connection error: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	hub := broadcast.NewHub(logger, cfg.ClientOrigins)
	publishers := broadcast.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		sink := broadcast.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := sink.Close(); err != nil {
				logger.Warn("error closing kafka writer", zap.Error(err))
			}
		}()
		publishers = append(publishers, sink)
		logger.Info("kafka event sink enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	repo := clinic.NewPgRepository(pgPool)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL,
		redisclient.WithKeyPrefix(cfg.LockPrefix),
		redisclient.WithLockLogger(logger.Named("lock")),
	)
	svc := clinic.NewService(repo, locker, publishers, logger.Named("clinic"), cfg)
	authSvc := auth.NewService(auth.NewPgRepository(pgPool), cfg.AdminJWTSecret, cfg.AdminTokenTTL)

	hub.SetSnapshotSource(svc)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	if cfg.MQTTBroker != "" {
		client, err := kiosk.Connect(cfg, svc, logger)
		if err != nil {
			// Kiosks can still post heartbeats over HTTP.
			logger.Error("mqtt heartbeat subscriber disabled", zap.Error(err))
		} else {
			defer func(c mqtt.Client) { c.Disconnect(250) }(client)
		}
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Service:        svc,
			Auth:           authSvc,
			Hub:            hub,
			PgPool:         pgPool,
			Redis:          rdb,
			Logger:         logger,
			AllowedOrigins: cfg.ClientOrigins,
			Env:            cfg.Env,
			Version:        version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	stopHub()

	logger.Info("api-server stopped")
	return nil
}
