package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/broadcast"
	"github.com/hackgods/clinic-queue/internal/clinic"
	"github.com/hackgods/clinic-queue/internal/config"
	"github.com/hackgods/clinic-queue/internal/db"
	"github.com/hackgods/clinic-queue/internal/logging"
	redisclient "github.com/hackgods/clinic-queue/internal/redis"
)

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
	logger = logger.Named("expiry-worker")

	logger.Info("expiry worker starting up",
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("no_show_grace", cfg.NoShowGrace),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 30*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg, logger)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()

	repo := clinic.NewPgRepository(pgPool)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL,
		redisclient.WithKeyPrefix(cfg.LockPrefix),
		redisclient.WithLockLogger(logger.Named("lock")),
	)
	// No displays are attached to the worker.
	svc := clinic.NewService(repo, locker, broadcast.Discard{}, logger, cfg)

	// Keeps worker replicas from sweeping at the same time.
	runLock := redisclient.NewRedisLocker(rdb, cfg.WorkerInterval,
		redisclient.WithKeyPrefix(cfg.LockPrefix),
		redisclient.WithLockLogger(logger.Named("lock")),
	)
	w := &worker{svc: svc, lock: runLock, logger: logger}

	// Run once at startup
	w.runOnce(rootCtx)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping expiry worker")
			return
		case <-ticker.C:
			w.runOnce(rootCtx)
		}
	}
}

const runLockKey = "worker:expire-appointments"

type worker struct {
	svc    *clinic.Service
	lock   redisclient.Locker
	logger *zap.Logger
}

func (w *worker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	var expired int
	err := w.lock.WithLock(runCtx, runLockKey, func(lockCtx context.Context) error {
		var err error
		expired, err = w.svc.ExpireStaleAppointments(lockCtx)
		return err
	})
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		w.logger.Debug("another worker holds the expiry lock, skipping run")
	case err != nil:
		w.logger.Error("expiry run error", zap.Error(err))
	default:
		w.logger.Info("expiry run complete", zap.Int("expired", expired), zap.Duration("took", time.Since(start)))
	}
}
