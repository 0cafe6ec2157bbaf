package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const scheduledVisitSymptoms = "Scheduled Visit"

// AppointmentCheckInInput carries what the kiosk measures when a booked
// patient arrives.
type AppointmentCheckInInput struct {
	Symptoms string `json:"symptoms"`
	VitalsInput
}

type AppointmentCheckInResult struct {
	Appointment *Appointment   `json:"appointment"`
	Queue       *CheckInResult `json:"queue"`
}

func (s *Service) BookAppointment(ctx context.Context, in AppointmentInput) (*Appointment, error) {
	na, err := in.normalize(s.location())
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.CreateAppointment(ctx, na)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logEvent(ctx, nil, EventAppointmentBooked, map[string]any{
		"appointment_id":   appt.ID,
		"appointment_time": appt.AppointmentTime,
	})
	return appt, nil
}

// ListAppointments returns the appointments scheduled on the given clinic
// day. A zero day means today.
func (s *Service) ListAppointments(ctx context.Context, day time.Time) ([]Appointment, error) {
	if day.IsZero() {
		day = s.now()
	}
	start, end := dayBounds(day, s.location())

	appts, err := s.repo.ListAppointmentsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return appts, nil
}

// ParseDay reads a YYYY-MM-DD date in the clinic's timezone. Blank means
// today.
func (s *Service) ParseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now(), nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, s.location())
	if err != nil {
		return time.Time{}, ValidationError("date must be YYYY-MM-DD")
	}
	return day, nil
}

// FindAppointmentByPhone looks up today's booked appointment for a phone
// number fragment typed at the kiosk.
func (s *Service) FindAppointmentByPhone(ctx context.Context, phone string) (*Appointment, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ValidationError("phone number required")
	}

	start, end := dayBounds(s.now(), s.location())
	appt, err := s.repo.FindBookedAppointmentByPhone(ctx, phone, start, end)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, withMessage(ErrAppointmentNotFound, "no appointment found for today")
		}
		return nil, fmt.Errorf("find appointment by phone: %w", err)
	}
	return appt, nil
}

// CheckInAppointment turns a booked appointment into a live queue entry. The
// booked -> checked_in flip happens first so two kiosks cannot check the
// same booking in twice; it is rolled back if the queue check-in fails.
func (s *Service) CheckInAppointment(ctx context.Context, id int64, in AppointmentCheckInInput) (*AppointmentCheckInResult, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != AppointmentBooked {
		return nil, ErrAppointmentProcessed
	}

	if _, err := s.repo.UpdateAppointmentStatus(ctx, id, AppointmentBooked, AppointmentCheckedIn); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrAppointmentProcessed
		}
		return nil, fmt.Errorf("mark appointment checked in: %w", err)
	}

	symptoms := strings.TrimSpace(in.Symptoms)
	if symptoms == "" {
		symptoms = scheduledVisitSymptoms
	}
	checkIn := CheckInInput{
		FirstName:   appt.FirstName,
		LastName:    appt.LastName,
		Symptoms:    symptoms,
		VitalsInput: in.VitalsInput,
	}
	if appt.Phone != nil {
		checkIn.Phone = *appt.Phone
	}
	if appt.DateOfBirth != nil {
		checkIn.DateOfBirth = appt.DateOfBirth.Format(time.DateOnly)
	}

	result, err := s.CheckIn(ctx, checkIn)
	if err != nil {
		if _, revertErr := s.repo.UpdateAppointmentStatus(ctx, id, AppointmentCheckedIn, AppointmentBooked); revertErr != nil {
			s.logger.Error("revert appointment after failed check-in",
				zap.Int64("appointment_id", id),
				zap.Error(revertErr),
			)
		}
		return nil, err
	}

	linked, err := s.repo.LinkAppointmentPatient(ctx, id, result.Patient.ID)
	if err != nil {
		s.logger.Warn("link appointment to patient", zap.Int64("appointment_id", id), zap.Error(err))
		linked = appt
		linked.Status = AppointmentCheckedIn
	}

	s.logEvent(ctx, nil, EventAppointmentCheckedIn, map[string]any{
		"appointment_id": id,
		"patient_id":     result.Patient.ID,
		"queue_number":   result.QueueNumber,
	})

	return &AppointmentCheckInResult{Appointment: linked, Queue: result}, nil
}

func (s *Service) CancelAppointment(ctx context.Context, id int64) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != AppointmentBooked {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, AppointmentBooked, AppointmentCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, nil, EventAppointmentCancelled, map[string]any{
		"appointment_id": id,
		"reason":         "admin",
	})
	return updated, nil
}

// ExpireStaleAppointments cancels bookings whose time passed more than the
// no-show grace ago. It is intended to be called by the worker periodically
// and returns how many bookings were cancelled.
func (s *Service) ExpireStaleAppointments(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.NoShowGrace)

	stale, err := s.repo.FindStaleBooked(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale appointments: %w", err)
	}

	expired := 0
	for _, appt := range stale {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, AppointmentBooked, AppointmentCancelled)
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.logger.Warn("expire appointment", zap.Int64("appointment_id", appt.ID), zap.Error(err))
			}
			continue
		}
		expired++
		s.logEvent(ctx, nil, EventAppointmentExpired, map[string]any{
			"appointment_id": appt.ID,
			"reason":         "no_show",
		})
	}

	return expired, nil
}

// dayBounds returns the midnight-to-midnight window containing t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
