package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

func checkInHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clinic.CheckInInput
		if err := decodeJSON(r, &req); err != nil {
			writeBadBody(w)
			return
		}

		res, err := svc.CheckIn(r.Context(), req)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}

func currentQueueHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queue, err := svc.GetCurrentQueue(r.Context())
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, queue)
	}
}

func etaPreviewHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		preview, err := svc.GetEtaPreview(r.Context())
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, preview)
	}
}

func queueHistoryHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := queryInt(r, "page")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_page", "page must be an integer")
			return
		}
		limit, ok := queryInt(r, "limit")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}

		history, err := svc.GetQueueHistory(r.Context(), page, limit)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}
