package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Pinger checks one dependency.
type Pinger func(ctx context.Context) error

// ClientCounter reports connected websocket displays.
type ClientCounter interface {
	ClientCount() int
}

type HealthHandler struct {
	postgres Pinger
	redis    Pinger
	clients  ClientCounter
	env      string
	version  string
}

func NewHealthHandler(pgPool *pgxpool.Pool, rdb *redis.Client, clients ClientCounter, env, version string) *HealthHandler {
	h := &HealthHandler{clients: clients, env: env, version: version}
	if pgPool != nil {
		h.postgres = pgPool.Ping
	}
	if rdb != nil {
		h.redis = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return h
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status           string            `json:"status"`
	Version          string            `json:"version,omitempty"`
	Env              string            `json:"env,omitempty"`
	Dependencies     map[string]string `json:"dependencies"`
	WebsocketClients int               `json:"websocketClients"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Readiness fails when Postgres is down. A Redis outage only degrades the
// service: reads keep working, room and stage locks do not.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	if !check(ctx, h.postgres, "postgres", deps) {
		status = "error"
	}
	if !check(ctx, h.redis, "redis", deps) && status == "ok" {
		status = "degraded"
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}
	if h.clients != nil {
		resp.WebsocketClients = h.clients.ClientCount()
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}

func check(ctx context.Context, ping Pinger, name string, deps map[string]string) bool {
	if ping == nil {
		deps[name] = "not_configured"
		return true
	}

	pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	if err := ping(pingCtx); err != nil {
		deps[name] = "down"
		return false
	}
	deps[name] = "ok"
	return true
}
