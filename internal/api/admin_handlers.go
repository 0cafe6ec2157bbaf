package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/auth"
)

func loginHandler(svc *auth.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeBadBody(w)
			return
		}

		res, err := svc.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrMissingCredentials):
				writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			case errors.Is(err, auth.ErrInvalidCredentials):
				writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
			default:
				logger.Error("admin login failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal_error", "")
			}
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}
