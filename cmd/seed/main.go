package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/auth"
	"github.com/hackgods/clinic-queue/internal/clinic"
	"github.com/hackgods/clinic-queue/internal/config"
	"github.com/hackgods/clinic-queue/internal/db"
	"github.com/hackgods/clinic-queue/internal/logging"
)

var symptoms = []string{
	"Fever",
	"Persistent cough",
	"Sore throat",
	"Headache",
	"Back pain",
	"Follow-up visit",
	"Skin rash",
	"Stomach ache",
	"Blood pressure check",
	"Vaccination",
}

func main() {
	rooms := flag.String("rooms", "", "comma separated room names to create")
	adminUser := flag.String("admin-user", "", "admin username to create or update")
	adminPassword := flag.String("admin-password", "", "password for -admin-user")
	appointments := flag.Int("appointments", 0, "number of fake appointments to book for today")
	reset := flag.Bool("reset", false, "delete all visits, queue and stage entries before seeding")
	flag.Parse()

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
	logger = logger.Named("seed")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	repo := clinic.NewPgRepository(pool)

	if *reset {
		if err := repo.ResetVisits(ctx); err != nil {
			logger.Fatal("reset visits", zap.Error(err))
		}
		logger.Info("visits reset")
	}

	if err := seedRooms(ctx, repo, *rooms, logger); err != nil {
		logger.Fatal("seed rooms", zap.Error(err))
	}

	if *adminUser != "" {
		authSvc := auth.NewService(auth.NewPgRepository(pool), cfg.AdminJWTSecret, cfg.AdminTokenTTL)
		admin, err := authSvc.UpsertAdmin(ctx, *adminUser, *adminPassword)
		if err != nil {
			logger.Fatal("upsert admin", zap.Error(err))
		}
		logger.Info("admin upserted", zap.String("username", admin.Username))
	}

	if *appointments > 0 {
		if err := seedAppointments(ctx, repo, *appointments, cfg.Location, logger); err != nil {
			logger.Fatal("seed appointments", zap.Error(err))
		}
	}

	logger.Info("seed complete")
}

func seedRooms(ctx context.Context, repo clinic.RoomStore, names string, logger *zap.Logger) error {
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		room, err := repo.CreateRoom(ctx, name)
		if errors.Is(err, clinic.ErrRoomNameTaken) {
			logger.Info("room already exists", zap.String("name", name))
			continue
		}
		if err != nil {
			return fmt.Errorf("create room %q: %w", name, err)
		}
		logger.Info("room created", zap.Int64("id", room.ID), zap.String("name", room.Name))
	}
	return nil
}

// seedAppointments books count appointments spread over today's opening
// hours, 08:00 to 17:00 clinic time.
func seedAppointments(ctx context.Context, repo clinic.AppointmentStore, count int, loc *time.Location, logger *zap.Logger) error {
	if loc == nil {
		loc = time.UTC
	}
	faker := gofakeit.New(0)

	now := time.Now().In(loc)
	opens := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, loc)
	closes := opens.Add(9 * time.Hour)

	for i := 0; i < count; i++ {
		phone := faker.Phone()
		dob := faker.DateRange(opens.AddDate(-90, 0, 0), opens.AddDate(-1, 0, 0))
		symptom := faker.RandomString(symptoms)
		at := faker.DateRange(opens, closes).Truncate(15 * time.Minute)

		if _, err := repo.CreateAppointment(ctx, clinic.NewAppointment{
			FirstName:       faker.FirstName(),
			LastName:        faker.LastName(),
			DateOfBirth:     &dob,
			Phone:           &phone,
			AppointmentTime: at,
			Symptoms:        &symptom,
		}); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
	}

	logger.Info("appointments seeded", zap.Int("count", count))
	return nil
}
