package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

func bookAppointmentHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clinic.AppointmentInput
		if err := decodeJSON(r, &req); err != nil {
			writeBadBody(w)
			return
		}

		appt, err := svc.BookAppointment(r.Context(), req)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	}
}

func listAppointmentsHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := svc.ParseDay(r.URL.Query().Get("date"))
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}

		appts, err := svc.ListAppointments(r.Context(), day)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, appts)
	}
}

func findAppointmentHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.FindAppointmentByPhone(r.Context(), r.URL.Query().Get("phone"))
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func checkInAppointmentHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a positive integer")
			return
		}

		var req clinic.AppointmentCheckInInput
		if err := decodeJSON(r, &req); err != nil {
			writeBadBody(w)
			return
		}

		res, err := svc.CheckInAppointment(r.Context(), id, req)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func cancelAppointmentHandler(svc *clinic.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a positive integer")
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}
