package clinic_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

func (f *fixture) book(t *testing.T, first, phone, at string) *clinic.Appointment {
	t.Helper()
	appt, err := f.svc.BookAppointment(context.Background(), clinic.AppointmentInput{
		FirstName:       first,
		LastName:        "Patient",
		Phone:           phone,
		DateOfBirth:     "1980-05-17",
		AppointmentTime: at,
	})
	if err != nil {
		t.Fatalf("book %s: %v", first, err)
	}
	return appt
}

func TestBookAndListAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late := f.book(t, "Late", "0811111111", "2025-01-06T15:00:00Z")
	early := f.book(t, "Early", "0822222222", "2025-01-06T09:00:00Z")
	f.book(t, "Tomorrow", "0833333333", "2025-01-07T09:00:00Z")

	if late.Status != clinic.AppointmentBooked {
		t.Errorf("status = %s", late.Status)
	}

	today, err := f.svc.ParseDay("")
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	appts, err := f.svc.ListAppointments(ctx, today)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(appts) != 2 || appts[0].ID != early.ID || appts[1].ID != late.ID {
		t.Errorf("today = %+v", appts)
	}

	day, err := f.svc.ParseDay("2025-01-07")
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	if appts, _ := f.svc.ListAppointments(ctx, day); len(appts) != 1 {
		t.Errorf("tomorrow = %+v", appts)
	}

	if _, err := f.svc.ParseDay("07/01/2025"); clinic.KindOf(err) != clinic.KindValidation {
		t.Errorf("bad date: err = %v", err)
	}
	if _, err := f.svc.BookAppointment(ctx, clinic.AppointmentInput{FirstName: "A", LastName: "B"}); clinic.KindOf(err) != clinic.KindValidation {
		t.Errorf("missing time: err = %v", err)
	}
}

func TestFindAppointmentByPhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booked := f.book(t, "Ada", "+62 812-3456-7890", "2025-01-06T10:00:00Z")
	f.book(t, "Later", "+62 899-0000-1111", "2025-01-08T10:00:00Z")

	got, err := f.svc.FindAppointmentByPhone(ctx, "3456")
	if err != nil || got.ID != booked.ID {
		t.Fatalf("find = %+v, %v", got, err)
	}

	_, err = f.svc.FindAppointmentByPhone(ctx, "0000-1111")
	if !errors.Is(err, clinic.ErrAppointmentNotFound) || err.Error() != "no appointment found for today" {
		t.Errorf("other day: err = %v", err)
	}
	if _, err := f.svc.FindAppointmentByPhone(ctx, " "); clinic.KindOf(err) != clinic.KindValidation {
		t.Errorf("blank phone: err = %v", err)
	}
}

func TestCheckInAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := f.book(t, "Ada", "0811111111", "2025-01-06T10:00:00Z")

	res, err := f.svc.CheckInAppointment(ctx, appt.ID, clinic.AppointmentCheckInInput{
		VitalsInput: clinic.VitalsInput{Temp: "36.9", SpO2: "99"},
	})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if res.Appointment.Status != clinic.AppointmentCheckedIn {
		t.Errorf("status = %s", res.Appointment.Status)
	}
	if res.Appointment.PatientID == nil || *res.Appointment.PatientID != res.Queue.Patient.ID {
		t.Errorf("patient link = %v, want %d", res.Appointment.PatientID, res.Queue.Patient.ID)
	}
	p := res.Queue.Patient
	if p.Symptoms == nil || *p.Symptoms != "Scheduled Visit" {
		t.Errorf("symptoms = %v", p.Symptoms)
	}
	if p.Phone == nil || *p.Phone != "0811111111" {
		t.Errorf("phone = %v", p.Phone)
	}
	if p.DateOfBirth == nil || p.DateOfBirth.Format(time.DateOnly) != "1980-05-17" {
		t.Errorf("dob = %v", p.DateOfBirth)
	}
	if p.SpO2 == nil || *p.SpO2 != 99 {
		t.Errorf("spo2 = %v", p.SpO2)
	}

	if _, err := f.svc.CheckInAppointment(ctx, appt.ID, clinic.AppointmentCheckInInput{}); !errors.Is(err, clinic.ErrAppointmentProcessed) {
		t.Errorf("second check-in: err = %v", err)
	}
	if _, err := f.svc.CheckInAppointment(ctx, 999, clinic.AppointmentCheckInInput{}); !errors.Is(err, clinic.ErrAppointmentNotFound) {
		t.Errorf("unknown appointment: err = %v", err)
	}
}

func TestCheckInAppointmentRevertsOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, "Ada", "0811111111", "2025-01-06T10:00:00Z")

	f.store.FailCreateVisit = errors.New("connection reset")
	if _, err := f.svc.CheckInAppointment(ctx, appt.ID, clinic.AppointmentCheckInInput{}); err == nil {
		t.Fatal("expected check-in to fail")
	}

	got, err := f.svc.FindAppointmentByPhone(ctx, "0811111111")
	if err != nil {
		t.Fatalf("appointment should be bookable again: %v", err)
	}
	if got.Status != clinic.AppointmentBooked {
		t.Errorf("status = %s, want booked", got.Status)
	}

	f.store.FailCreateVisit = nil
	if _, err := f.svc.CheckInAppointment(ctx, appt.ID, clinic.AppointmentCheckInInput{}); err != nil {
		t.Fatalf("retry: %v", err)
	}

	bad := f.book(t, "Bad", "0822222222", "2025-01-06T11:00:00Z")
	_, err = f.svc.CheckInAppointment(ctx, bad.ID, clinic.AppointmentCheckInInput{VitalsInput: clinic.VitalsInput{HR: "7.5"}})
	if clinic.KindOf(err) != clinic.KindValidation {
		t.Fatalf("bad vitals: err = %v", err)
	}
	if got, _ := f.svc.FindAppointmentByPhone(ctx, "0822222222"); got == nil || got.Status != clinic.AppointmentBooked {
		t.Errorf("appointment not reverted after validation failure: %+v", got)
	}
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, "Ada", "0811111111", "2025-01-06T10:00:00Z")

	cancelled, err := f.svc.CancelAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != clinic.AppointmentCancelled {
		t.Errorf("status = %s", cancelled.Status)
	}
	if _, err := f.svc.CancelAppointment(ctx, appt.ID); !errors.Is(err, clinic.ErrInvalidStatusTransition) {
		t.Errorf("cancel twice: err = %v", err)
	}
	if _, err := f.svc.CheckInAppointment(ctx, appt.ID, clinic.AppointmentCheckInInput{}); !errors.Is(err, clinic.ErrAppointmentProcessed) {
		t.Errorf("check in cancelled: err = %v", err)
	}
	if _, err := f.svc.CancelAppointment(ctx, 999); !errors.Is(err, clinic.ErrAppointmentNotFound) {
		t.Errorf("cancel unknown: err = %v", err)
	}
}

func TestExpireStaleAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// testNow is 12:00 and the grace is two hours.
	stale := f.book(t, "Stale", "0811111111", "2025-01-06T09:30:00Z")
	recent := f.book(t, "Recent", "0822222222", "2025-01-06T10:30:00Z")
	done := f.book(t, "Done", "0833333333", "2025-01-06T08:00:00Z")
	if _, err := f.svc.CheckInAppointment(ctx, done.ID, clinic.AppointmentCheckInInput{}); err != nil {
		t.Fatalf("check in: %v", err)
	}

	n, err := f.svc.ExpireStaleAppointments(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}

	appts, _ := f.svc.ListAppointments(ctx, testNow)
	status := map[int64]clinic.AppointmentStatus{}
	for _, a := range appts {
		status[a.ID] = a.Status
	}
	if status[stale.ID] != clinic.AppointmentCancelled {
		t.Errorf("stale = %s", status[stale.ID])
	}
	if status[recent.ID] != clinic.AppointmentBooked {
		t.Errorf("recent = %s", status[recent.ID])
	}
	if status[done.ID] != clinic.AppointmentCheckedIn {
		t.Errorf("checked in = %s", status[done.ID])
	}

	if n, _ := f.svc.ExpireStaleAppointments(ctx); n != 0 {
		t.Errorf("second run expired %d", n)
	}
}
