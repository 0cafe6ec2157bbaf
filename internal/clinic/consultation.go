package clinic

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	redisclient "github.com/hackgods/clinic-queue/internal/redis"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 200
	// maxHistoryPage keeps (page-1)*limit far from overflowing.
	maxHistoryPage      = 1_000_000
)

type CheckInResult struct {
	Patient     *Patient    `json:"patient"`
	QueueNumber string      `json:"queueNumber"`
	EtaMinutes  int         `json:"etaMinutes"`
	Queue       []QueueView `json:"queue"`
}

type EtaPreview struct {
	QueueLength int `json:"queueLength"`
	EtaMinutes  int `json:"etaMinutes"`
}

type Assignment struct {
	Entry *QueueEntry `json:"queue"`
	Room  *Room       `json:"room"`
}

type FinishResult struct {
	Room    *Room       `json:"room"`
	Entry   *QueueEntry `json:"queue,omitempty"`
	Payment *StageEntry `json:"payment,omitempty"`
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

type HistoryPage struct {
	History    []HistoryEntry `json:"history"`
	Pagination Pagination     `json:"pagination"`
}

// CheckIn registers a walk-in patient and puts them at the back of the queue.
func (s *Service) CheckIn(ctx context.Context, in CheckInInput) (*CheckInResult, error) {
	np, err := in.normalize()
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountActiveEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active queue: %w", err)
	}
	np.EtaMinutes = s.estimator.Estimate(count)

	patient, entry, err := s.repo.CreateVisit(ctx, np, NextQueueNumber)
	if err != nil {
		return nil, fmt.Errorf("create visit: %w", err)
	}

	s.logEvent(ctx, &entry.ID, EventPatientCheckedIn, map[string]any{
		"patient_id":   patient.ID,
		"queue_number": entry.QueueNumber,
		"eta_minutes":  patient.EtaMinutes,
	})

	queue, err := s.repo.ActiveQueue(ctx)
	if err != nil {
		s.logger.Warn("load queue after check-in", zap.Int64("queue_id", entry.ID), zap.Error(err))
	} else {
		s.publisher.Publish(TopicQueueUpdate, queue)
	}
	s.publisher.Publish(TopicNewPatient, NewPatientEvent{
		Patient:     patient,
		QueueNumber: entry.QueueNumber,
		EtaMinutes:  patient.EtaMinutes,
	})

	s.logger.Info("patient checked in",
		zap.Int64("patient_id", patient.ID),
		zap.String("queue_number", entry.QueueNumber),
		zap.Int("eta_minutes", patient.EtaMinutes),
	)

	return &CheckInResult{
		Patient:     patient,
		QueueNumber: entry.QueueNumber,
		EtaMinutes:  patient.EtaMinutes,
		Queue:       queue,
	}, nil
}

func (s *Service) GetCurrentQueue(ctx context.Context) ([]QueueView, error) {
	queue, err := s.repo.ActiveQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	if queue == nil {
		queue = []QueueView{}
	}
	return queue, nil
}

// GetEtaPreview estimates the wait for someone checking in right now.
func (s *Service) GetEtaPreview(ctx context.Context) (*EtaPreview, error) {
	count, err := s.repo.CountActiveEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active queue: %w", err)
	}
	return &EtaPreview{QueueLength: count, EtaMinutes: s.estimator.Estimate(count)}, nil
}

// AssignRoom calls a waiting patient into an available room. The room lock
// serializes assigners across replicas; the store's conditional updates make
// the transition safe even if the lock expires mid-flight.
func (s *Service) AssignRoom(ctx context.Context, queueID, roomID int64) (*Assignment, error) {
	var result *Assignment

	err := s.locker.WithLock(ctx, roomLockKey(roomID), func(lockCtx context.Context) error {
		entry, err := s.repo.GetQueueEntry(lockCtx, queueID)
		if err != nil {
			return err
		}
		if entry.Status != QueueWaiting {
			return ErrQueueEntryNotWaiting
		}

		room, err := s.repo.GetRoom(lockCtx, roomID)
		if err != nil {
			return err
		}
		if !room.IsAvailable {
			return ErrRoomOccupied
		}

		entry, room, err = s.repo.AssignRoom(lockCtx, queueID, roomID)
		if err != nil {
			return err
		}
		result = &Assignment{Entry: entry, Room: room}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrRoomBusy
		}
		if KindOf(err) != KindInfrastructure {
			return nil, err
		}
		return nil, fmt.Errorf("assign room: %w", err)
	}

	s.logEvent(ctx, &result.Entry.ID, EventRoomAssigned, map[string]any{
		"room_id":      roomID,
		"patient_id":   result.Entry.PatientID,
		"queue_number": result.Entry.QueueNumber,
	})
	s.logger.Info("room assigned",
		zap.Int64("queue_id", queueID),
		zap.Int64("room_id", roomID),
		zap.String("queue_number", result.Entry.QueueNumber),
	)

	s.broadcastQueue(ctx)
	s.broadcastRooms(ctx)

	return result, nil
}

// FinishRoom ends the consultation in a room and sends the patient on to
// payment. The payment entry commits with the completion, so a failed finish
// leaves the patient in the room to be finished again. A room with no called
// patient is simply freed.
func (s *Service) FinishRoom(ctx context.Context, roomID int64) (*FinishResult, error) {
	done, err := s.repo.FinishRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("finish room: %w", err)
	}

	result := &FinishResult{Room: done.Room, Entry: done.Entry, Payment: done.Payment}

	if done.Entry != nil {
		s.logEvent(ctx, &done.Entry.ID, EventConsultationFinished, map[string]any{
			"room_id":    roomID,
			"patient_id": done.Entry.PatientID,
		})
		s.Payment.handedOff(ctx, done.Entry.ID, done.Payment, done.PaymentCreated)
	}

	s.broadcastQueue(ctx)
	s.broadcastRooms(ctx)

	return result, nil
}

// AutoAssign pairs the longest waiting patient with the longest idle room.
func (s *Service) AutoAssign(ctx context.Context) (*Assignment, error) {
	entry, err := s.repo.OldestWaitingEntry(ctx)
	if err != nil {
		if errors.Is(err, ErrQueueEntryNotFound) {
			return nil, ErrNoWaitingPatients
		}
		return nil, fmt.Errorf("load oldest waiting entry: %w", err)
	}

	room, err := s.repo.FirstAvailableRoom(ctx)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, ErrNoRoomsAvailable
		}
		return nil, fmt.Errorf("load available room: %w", err)
	}

	return s.AssignRoom(ctx, entry.ID, room.ID)
}

// GetQueueHistory pages through completed consultations, newest first.
func (s *Service) GetQueueHistory(ctx context.Context, page, limit int) (*HistoryPage, error) {
	switch {
	case limit == 0:
		limit = defaultHistoryLimit
	case limit < 1:
		limit = 1
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	if page <= 0 {
		page = 1
	}
	if page > maxHistoryPage {
		return nil, ValidationError("page must be at most %d", maxHistoryPage)
	}

	rows, err := s.repo.CompletedHistory(ctx, limit+1, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("load queue history: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []HistoryEntry{}
	}

	return &HistoryPage{
		History:    rows,
		Pagination: Pagination{Page: page, Limit: limit, HasMore: hasMore},
	}, nil
}

func roomLockKey(roomID int64) string {
	return "room:" + strconv.FormatInt(roomID, 10)
}
