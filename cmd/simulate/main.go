// Command simulate drives a running api-server with concurrent kiosk,
// operator and display traffic, then checks that no two active visits were
// handed the same queue number.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/config"
	"github.com/hackgods/clinic-queue/internal/db"
	"github.com/hackgods/clinic-queue/internal/logging"
)

type SimConfig struct {
	APIBaseURL       string
	Duration         time.Duration
	Workers          int
	Displays         int
	CheckInRatio     float64
	AppointmentRatio float64
	OperatorRatio    float64
	ReadRatio        float64
	AdminUser        string
	AdminPassword    string
	Base             config.Config
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// Schema is owned by the api-server.
	baseCfg.AutoMigrate = false

	logger, err := logging.New(baseCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(baseCfg)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal("invalid simulator config", zap.Error(err))
	}

	logger.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Int("displays", cfg.Displays),
		zap.Float64("checkin_ratio", cfg.CheckInRatio),
		zap.Float64("appointment_ratio", cfg.AppointmentRatio),
		zap.Float64("operator_ratio", cfg.OperatorRatio),
		zap.Float64("read_ratio", cfg.ReadRatio),
	)

	sim := newSimulator(cfg, logger)

	if cfg.AdminUser != "" {
		if err := sim.login(context.Background()); err != nil {
			logger.Fatal("admin login failed", zap.Error(err))
		}
	} else {
		logger.Warn("SIM_ADMIN_USER not set, operator actions disabled")
		sim.config.OperatorRatio = 0
	}

	sim.Run()
	writeReport(os.Stdout, sim.config, &sim.metrics, sim.eventCounts())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.Base, logger)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pgPool.Close()

	if err := verifyQueueNumbers(ctx, pgPool); err != nil {
		logger.Fatal("queue number check failed", zap.Error(err))
	}
	logger.Info("queue number check passed")
}

func loadConfig(base config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL:       strings.TrimRight(envOr("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:         envDuration("SIM_DURATION", 30*time.Second),
		Workers:          envInt("SIM_WORKERS", 10),
		Displays:         envInt("SIM_DISPLAYS", 2),
		CheckInRatio:     envFloat("SIM_CHECKIN_RATIO", 0.3),
		AppointmentRatio: envFloat("SIM_APPOINTMENT_RATIO", 0.1),
		OperatorRatio:    envFloat("SIM_OPERATOR_RATIO", 0.2),
		ReadRatio:        envFloat("SIM_READ_RATIO", 0.4),
		AdminUser:        os.Getenv("SIM_ADMIN_USER"),
		AdminPassword:    os.Getenv("SIM_ADMIN_PASSWORD"),
		Base:             base,
	}

	total := cfg.CheckInRatio + cfg.AppointmentRatio + cfg.OperatorRatio + cfg.ReadRatio
	if total > 0 {
		cfg.CheckInRatio /= total
		cfg.AppointmentRatio /= total
		cfg.OperatorRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Base.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Displays < 0 {
		return fmt.Errorf("SIM_DISPLAYS must be >= 0")
	}
	return nil
}

// verifyQueueNumbers fails if two active visits share a queue number.
func verifyQueueNumbers(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, `
		SELECT queue_number, count(*)
		FROM queue_entries
		WHERE status IN ('waiting', 'called')
		GROUP BY queue_number
		HAVING count(*) > 1
	`)
	if err != nil {
		return fmt.Errorf("query duplicates: %w", err)
	}
	defer rows.Close()

	var dupes []string
	for rows.Next() {
		var number string
		var n int
		if err := rows.Scan(&number, &n); err != nil {
			return err
		}
		dupes = append(dupes, fmt.Sprintf("%s x%d", number, n))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(dupes) > 0 {
		return fmt.Errorf("duplicate active queue numbers: %s", strings.Join(dupes, ", "))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}
