package clinic

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the transport layer can pick a status code.
type Kind int

const (
	KindInfrastructure Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "infrastructure"
	}
}

// Error is the failure type returned by the service. Err, when set, is the
// sentinel the error was derived from so errors.Is keeps working.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// ValidationError reports bad caller input.
func ValidationError(format string, args ...any) error {
	return &Error{Kind: KindValidation, Code: "validation_error", Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind of err. Anything not produced by this package is
// treated as an infrastructure failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

// CodeOf returns the machine readable code attached to err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

var (
	ErrPatientNotFound     = newError(KindNotFound, "patient_not_found", "patient not found")
	ErrQueueEntryNotFound  = newError(KindNotFound, "queue_entry_not_found", "queue entry not found")
	ErrRoomNotFound        = newError(KindNotFound, "room_not_found", "room not found")
	ErrStageEntryNotFound  = newError(KindNotFound, "stage_entry_not_found", "stage entry not found")
	ErrSensorLogNotFound   = newError(KindNotFound, "no_heartbeat", "no heartbeat recorded")
	ErrAppointmentNotFound = newError(KindNotFound, "appointment_not_found", "appointment not found")

	ErrQueueEntryNotWaiting    = newError(KindConflict, "queue_entry_not_waiting", "queue entry is not waiting")
	ErrRoomOccupied            = newError(KindConflict, "room_occupied", "room is occupied")
	ErrRoomNameTaken           = newError(KindConflict, "room_name_taken", "a room with that name already exists")
	ErrRoomBusy                = newError(KindConflict, "room_busy", "room is being assigned, please retry")
	ErrNoWaitingPatients       = newError(KindConflict, "no_waiting_patients", "no waiting patients")
	ErrNoRoomsAvailable        = newError(KindConflict, "no_rooms_available", "no rooms available")
	ErrStageEntryCompleted     = newError(KindConflict, "stage_entry_completed", "stage entry already completed")
	ErrStageEmpty              = newError(KindConflict, "stage_empty", "no patients waiting")
	ErrStageBusy               = newError(KindConflict, "stage_busy", "stage is calling the next patient, please retry")
	ErrAppointmentProcessed    = newError(KindConflict, "appointment_processed", "appointment already processed")
	ErrInvalidStatusTransition = newError(KindConflict, "invalid_status_transition", "invalid status transition")
	ErrQueueNumberInUse        = newError(KindConflict, "queue_number_in_use", "every queue number is in use")
)

// withMessage keeps the sentinel identity but rewords the message.
func withMessage(sentinel *Error, message string) error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: message, Err: sentinel}
}
