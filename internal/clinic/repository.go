package clinic

import (
	"context"
	"time"
)

// QueueStore persists patients and the consultation queue.
type QueueStore interface {
	CountActiveEntries(ctx context.Context) (int, error)

	// CreateVisit inserts the patient and a waiting queue entry in one
	// transaction. nextNumber receives the most recently issued ticket ("" when
	// none) while the store holds the numbering lock.
	CreateVisit(ctx context.Context, p NewPatient, nextNumber func(lastIssued string) string) (*Patient, *QueueEntry, error)

	GetPatient(ctx context.Context, id int64) (*Patient, error)
	GetQueueEntry(ctx context.Context, id int64) (*QueueEntry, error)
	OldestWaitingEntry(ctx context.Context) (*QueueEntry, error)

	// AssignRoom flips the entry waiting -> called and the room available ->
	// occupied atomically. It reports ErrQueueEntryNotWaiting or
	// ErrRoomOccupied when a precondition no longer holds.
	AssignRoom(ctx context.Context, queueID, roomID int64) (*QueueEntry, *Room, error)

	// FinishRoom completes the called entry bound to the room, if any, frees
	// the room and enqueues the visit into payment, all in one transaction.
	// Entry and Payment are nil when the room had no patient.
	FinishRoom(ctx context.Context, roomID int64) (*FinishedRoom, error)

	ActiveQueue(ctx context.Context) ([]QueueView, error)
	CompletedHistory(ctx context.Context, limit, offset int) ([]HistoryEntry, error)
}

type RoomStore interface {
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, id int64) (*Room, error)
	CreateRoom(ctx context.Context, name string) (*Room, error)
	RenameRoom(ctx context.Context, id int64, name string) (*Room, error)
	DeleteRoom(ctx context.Context, id int64) error
	FirstAvailableRoom(ctx context.Context) (*Room, error)
}

type StageStore interface {
	// EnqueueStage inserts the hand-off unless an entry for the same queue id
	// already exists, in which case the existing row is returned with
	// created=false.
	EnqueueStage(ctx context.Context, kind StageKind, h HandOff) (entry *StageEntry, created bool, err error)
	GetStageEntry(ctx context.Context, kind StageKind, id int64) (*StageEntry, error)
	OldestWaitingStageEntry(ctx context.Context, kind StageKind) (*StageEntry, error)
	MarkStageReady(ctx context.Context, kind StageKind, id int64) (*StageEntry, error)
	// CompleteStageEntry closes a waiting or ready entry. When next is set the
	// hand-off into that stage commits with it.
	CompleteStageEntry(ctx context.Context, kind StageKind, id int64, next StageKind) (*CompletedStage, error)
	StageQueue(ctx context.Context, kind StageKind) ([]StageView, error)
}

type SensorStore interface {
	InsertSensorLog(ctx context.Context, piIdentifier, status string, v Vitals) (*SensorLog, error)
	LatestSensorLog(ctx context.Context, piIdentifier string) (*SensorLog, error)
}

type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a NewAppointment) (*Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, from, to AppointmentStatus) (*Appointment, error)
	LinkAppointmentPatient(ctx context.Context, id, patientID int64) (*Appointment, error)
	ListAppointmentsBetween(ctx context.Context, start, end time.Time) ([]Appointment, error)
	FindBookedAppointmentByPhone(ctx context.Context, phone string, start, end time.Time) (*Appointment, error)
	FindStaleBooked(ctx context.Context, before time.Time) ([]Appointment, error)
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	QueueStore
	RoomStore
	StageStore
	SensorStore
	AppointmentStore

	InsertEvent(ctx context.Context, ev EventLog) error

	// ResetVisits removes every visit and patient while keeping rooms,
	// appointments and admins.
	ResetVisits(ctx context.Context) error
}
