package clinic

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Broadcast topics.
const (
	TopicConnected      = "connected"
	TopicQueueUpdate    = "queue_update"
	TopicRoomUpdate     = "room_update"
	TopicPaymentUpdate  = "payment_update"
	TopicPharmacyUpdate = "pharmacy_update"
	TopicNewPatient     = "new_patient"
	TopicPiStatus       = "pi_status"
)

// Audit event types written to event_logs.
const (
	EventPatientCheckedIn     = "PATIENT_CHECKED_IN"
	EventRoomAssigned         = "ROOM_ASSIGNED"
	EventConsultationFinished = "CONSULTATION_FINISHED"
	EventStageEnqueued        = "STAGE_ENQUEUED"
	EventStageCalled          = "STAGE_CALLED"
	EventStageCompleted       = "STAGE_COMPLETED"
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCheckedIn = "APPOINTMENT_CHECKED_IN"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentExpired   = "APPOINTMENT_EXPIRED"
)

// Publisher pushes a payload to live subscribers. Implementations must not
// block the caller.
type Publisher interface {
	Publish(topic string, payload any)
}

// Snapshot is a topic with its current full payload, sent to clients when
// they connect.
type Snapshot struct {
	Topic   string
	Payload any
}

// NewPatientEvent is the new_patient payload.
type NewPatientEvent struct {
	Patient     *Patient `json:"patient"`
	QueueNumber string   `json:"queueNumber"`
	EtaMinutes  int      `json:"etaMinutes"`
}

func (s *Service) logEvent(ctx context.Context, queueID *int64, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		QueueID:   queueID,
		Payload:   data,
		CreatedAt: s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("insert event log", zap.String("event", eventType), zap.Error(err))
	}
}

func (s *Service) broadcastQueue(ctx context.Context) {
	queue, err := s.GetCurrentQueue(ctx)
	if err != nil {
		s.logger.Warn("load queue snapshot", zap.Error(err))
		return
	}
	s.publisher.Publish(TopicQueueUpdate, queue)
}

func (s *Service) broadcastRooms(ctx context.Context) {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		s.logger.Warn("load room snapshot", zap.Error(err))
		return
	}
	s.publisher.Publish(TopicRoomUpdate, rooms)
}

// Snapshots returns the queue, rooms, payment and pharmacy state in the order
// a freshly connected display expects them.
func (s *Service) Snapshots(ctx context.Context) ([]Snapshot, error) {
	queue, err := s.GetCurrentQueue(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	payment, err := s.Payment.GetQueue(ctx)
	if err != nil {
		return nil, err
	}
	pharmacy, err := s.Pharmacy.GetQueue(ctx)
	if err != nil {
		return nil, err
	}
	return []Snapshot{
		{Topic: TopicQueueUpdate, Payload: queue},
		{Topic: TopicRoomUpdate, Payload: rooms},
		{Topic: TopicPaymentUpdate, Payload: payment},
		{Topic: TopicPharmacyUpdate, Payload: pharmacy},
	}, nil
}
