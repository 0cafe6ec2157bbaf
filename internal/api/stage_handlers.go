package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/auth"
	"github.com/hackgods/clinic-queue/internal/clinic"
)

// stageRoutes mounts the queue, call-next and complete endpoints of one
// pipeline. Call and complete are operator actions.
func stageRoutes(st *clinic.Stage, authSvc *auth.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Get("/queue", stageQueueHandler(st, logger))
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(authSvc))
		r.Post("/call-next", stageCallNextHandler(st, logger))
		r.Post("/complete", stageCompleteHandler(st, logger))
	})
	return r
}

func stageQueueHandler(st *clinic.Stage, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queue, err := st.GetQueue(r.Context())
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, queue)
	}
}

func stageCallNextHandler(st *clinic.Stage, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := st.CallNext(r.Context())
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func stageCompleteHandler(st *clinic.Stage, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompleteStageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadBody(w)
			return
		}
		id := req.entryID()
		if id <= 0 {
			writeError(w, http.StatusBadRequest, "validation_error", string(st.Kind())+"Id is required")
			return
		}

		entry, err := st.Complete(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}
