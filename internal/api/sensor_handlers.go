package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

func heartbeatHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clinic.HeartbeatInput
		if err := decodeJSON(r, &req); err != nil {
			writeBadBody(w)
			return
		}

		log, err := svc.RecordHeartbeat(r.Context(), req)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, log)
	}
}

func piStatusHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log, err := svc.LatestHeartbeat(r.Context(), r.URL.Query().Get("pi"))
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, log)
	}
}
