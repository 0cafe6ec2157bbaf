package clinic

import (
	"time"
)

type QueueStatus string

const (
	QueueWaiting   QueueStatus = "waiting"
	QueueCalled    QueueStatus = "called"
	QueueCompleted QueueStatus = "completed"
)

type StageStatus string

const (
	StageWaiting   StageStatus = "waiting"
	StageReady     StageStatus = "ready"
	StageCompleted StageStatus = "completed"
)

// StageKind names a post-consultation pipeline.
type StageKind string

const (
	StagePayment  StageKind = "payment"
	StagePharmacy StageKind = "pharmacy"
)

type AppointmentStatus string

const (
	AppointmentBooked    AppointmentStatus = "booked"
	AppointmentCheckedIn AppointmentStatus = "checked_in"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Vitals are optional kiosk readings. A nil field was not measured.
type Vitals struct {
	Temp *float64 `json:"temp"`
	SpO2 *int     `json:"spo2"`
	HR   *int     `json:"hr"`
}

type Patient struct {
	ID          int64      `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Phone       *string    `json:"phone"`
	Symptoms    *string    `json:"symptoms"`
	Vitals
	QueueNumber string    `json:"queue_number"`
	EtaMinutes  int       `json:"eta_minutes"`
	CreatedAt   time.Time `json:"created_at"`
}

type QueueEntry struct {
	ID             int64       `json:"id"`
	PatientID      int64       `json:"patient_id"`
	QueueNumber    string      `json:"queue_number"`
	Status         QueueStatus `json:"status"`
	AssignedRoomID *int64      `json:"assigned_room_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type Room struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	IsAvailable      bool      `json:"is_available"`
	CurrentPatientID *int64    `json:"current_patient_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StageEntry is a row in the payment or pharmacy queue.
type StageEntry struct {
	ID          int64       `json:"id"`
	Kind        StageKind   `json:"kind"`
	QueueID     int64       `json:"queue_id"`
	PatientID   *int64      `json:"patient_id"`
	QueueNumber string      `json:"queue_number"`
	Status      StageStatus `json:"status"`
	CalledAt    *time.Time  `json:"called_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type SensorLog struct {
	ID           int64  `json:"id"`
	PiIdentifier string `json:"pi_identifier"`
	Status       string `json:"status"`
	Vitals
	CreatedAt time.Time `json:"created_at"`
}

type Appointment struct {
	ID              int64             `json:"id"`
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	DateOfBirth     *time.Time        `json:"date_of_birth"`
	Phone           *string           `json:"phone"`
	AppointmentTime time.Time         `json:"appointment_time"`
	Symptoms        *string           `json:"symptoms"`
	Status          AppointmentStatus `json:"status"`
	PatientID       *int64            `json:"patient_id"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type EventLog struct {
	ID        int64
	EventType string
	QueueID   *int64
	Payload   []byte
	CreatedAt time.Time
}

// QueueView is one row of the live consultation queue.
type QueueView struct {
	QueueID        int64       `json:"queue_id"`
	QueueNumber    string      `json:"queue_number"`
	Status         QueueStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	AssignedRoomID *int64      `json:"assigned_room_id"`
	PatientID      int64       `json:"patient_id"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Symptoms       *string     `json:"symptoms"`
	EtaMinutes     int         `json:"eta_minutes"`
	Vitals
	RoomName *string `json:"room_name"`
}

// HistoryEntry is a completed consultation.
type HistoryEntry struct {
	QueueID     int64     `json:"queue_id"`
	QueueNumber string    `json:"queue_number"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Symptoms    *string   `json:"symptoms"`
	RoomName    *string   `json:"room_name"`
}

// StageView is one row of a payment or pharmacy display. Symptoms is only
// filled for pharmacy.
type StageView struct {
	ID          int64       `json:"id"`
	QueueID     int64       `json:"queue_id"`
	QueueNumber string      `json:"queue_number"`
	Status      StageStatus `json:"status"`
	CalledAt    *time.Time  `json:"called_at"`
	CreatedAt   time.Time   `json:"created_at"`
	FirstName   *string     `json:"first_name"`
	LastName    *string     `json:"last_name"`
	Symptoms    *string     `json:"symptoms,omitempty"`
}

// NewPatient is what the store needs to open a visit.
type NewPatient struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Phone       *string
	Symptoms    *string
	Vitals
	EtaMinutes int
}

// HandOff carries a finished visit into the next stage.
type HandOff struct {
	QueueID     int64
	PatientID   *int64
	QueueNumber string
}

// empty reports a hand-off that identifies nobody.
func (h HandOff) empty() bool {
	return h.PatientID == nil && h.QueueNumber == ""
}

// FinishedRoom is what the store commits when a consultation ends: the
// completed entry (nil for an idle room), the freed room and the payment
// entry written in the same transaction.
type FinishedRoom struct {
	Entry          *QueueEntry
	Room           *Room
	Payment        *StageEntry
	PaymentCreated bool
}

// CompletedStage is a closed stage entry plus the entry it handed off to
// in the next stage, if there is one.
type CompletedStage struct {
	Entry       *StageEntry
	Next        *StageEntry
	NextCreated bool
}

type NewAppointment struct {
	FirstName       string
	LastName        string
	DateOfBirth     *time.Time
	Phone           *string
	AppointmentTime time.Time
	Symptoms        *string
}
