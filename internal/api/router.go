package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/auth"
	"github.com/hackgods/clinic-queue/internal/broadcast"
	"github.com/hackgods/clinic-queue/internal/clinic"
)

type RouterConfig struct {
	Service        *clinic.Service
	Auth           *auth.Service
	Hub            *broadcast.Hub
	PgPool         *pgxpool.Pool
	Redis          *redis.Client
	Logger         *zap.Logger
	AllowedOrigins []string
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := cfg.Service

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(RecoverMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	var clients ClientCounter
	if cfg.Hub != nil {
		clients = cfg.Hub
		r.Get("/ws", cfg.Hub.ServeWS)
	}

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, clients, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkin", checkInHandler(svc, logger))
		r.Get("/queue/current", currentQueueHandler(svc, logger))
		r.Get("/waittime/estimate", etaPreviewHandler(svc, logger))
		r.Get("/rooms", listRoomsHandler(svc, logger))

		r.Post("/pi/heartbeat", heartbeatHandler(svc, logger))
		r.Get("/pi/status", piStatusHandler(svc, logger))

		r.Get("/appointments/find", findAppointmentHandler(svc, logger))
		r.Post("/appointments/book", bookAppointmentHandler(svc, logger))
		r.Post("/appointments/{id}/checkin", checkInAppointmentHandler(svc, logger))

		r.Post("/admin/login", loginHandler(cfg.Auth, logger))

		r.Mount("/payment", stageRoutes(svc.Payment, cfg.Auth, logger))
		r.Mount("/pharmacy", stageRoutes(svc.Pharmacy, cfg.Auth, logger))

		// Operator console.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth))

			r.Get("/queue/history", queueHistoryHandler(svc, logger))

			r.Post("/rooms/add", createRoomHandler(svc, logger))
			r.Post("/rooms/assign", assignRoomHandler(svc, logger))
			r.Post("/rooms/finish", finishRoomHandler(svc, logger))
			r.Post("/rooms/auto-assign", autoAssignHandler(svc, logger))
			r.Patch("/rooms/{id}", renameRoomHandler(svc, logger))
			r.Delete("/rooms/{id}", deleteRoomHandler(svc, logger))

			r.Get("/appointments", listAppointmentsHandler(svc, logger))
			r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(svc, logger))
		})
	})

	return r
}
