package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

// handleServiceError maps a service failure to a status code. Infrastructure
// failures are logged and never leak their details.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var ce *clinic.Error
	if !errors.As(err, &ce) {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	switch ce.Kind {
	case clinic.KindValidation:
		writeError(w, http.StatusBadRequest, ce.Code, ce.Message)
	case clinic.KindNotFound:
		writeError(w, http.StatusNotFound, ce.Code, ce.Message)
	case clinic.KindConflict:
		writeError(w, http.StatusConflict, ce.Code, ce.Message)
	default:
		logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeBadBody(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
