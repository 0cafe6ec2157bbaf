package clinic

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	redisclient "github.com/hackgods/clinic-queue/internal/redis"
)

// callNextAttempts bounds how often CallNext retries when another caller
// claims the oldest entry between the read and the conditional update.
const callNextAttempts = 3

// Stage is a FIFO pipeline after consultation. Payment feeds pharmacy.
type Stage struct {
	svc   *Service
	kind  StageKind
	topic string
	next  *Stage
}

func newStage(svc *Service, kind StageKind, topic string, next *Stage) *Stage {
	return &Stage{svc: svc, kind: kind, topic: topic, next: next}
}

func (st *Stage) Kind() StageKind { return st.kind }

// GetQueue returns the entries still waiting or ready, oldest first.
func (st *Stage) GetQueue(ctx context.Context) ([]StageView, error) {
	rows, err := st.svc.repo.StageQueue(ctx, st.kind)
	if err != nil {
		return nil, fmt.Errorf("load %s queue: %w", st.kind, err)
	}
	if rows == nil {
		rows = []StageView{}
	}
	return rows, nil
}

// EnqueueFromUpstream adds a finished visit to this stage. Repeating the same
// hand-off returns the existing entry. A hand-off with neither patient nor
// queue number is dropped.
func (st *Stage) EnqueueFromUpstream(ctx context.Context, h HandOff) (*StageEntry, error) {
	if h.empty() {
		st.svc.logger.Warn("stage hand-off without patient or queue number",
			zap.String("stage", string(st.kind)),
			zap.Int64("queue_id", h.QueueID),
		)
		return nil, nil
	}

	entry, created, err := st.svc.repo.EnqueueStage(ctx, st.kind, h)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", st.kind, err)
	}
	st.handedOff(ctx, h.QueueID, entry, created)

	return entry, nil
}

// handedOff logs and broadcasts an entry the store has already written.
func (st *Stage) handedOff(ctx context.Context, queueID int64, entry *StageEntry, created bool) {
	if entry == nil {
		return
	}
	if created {
		st.svc.logEvent(ctx, &queueID, EventStageEnqueued, map[string]any{
			"stage":    st.kind,
			"entry_id": entry.ID,
		})
	}
	st.broadcast(ctx)
}

// CallNext marks the oldest waiting entry ready and stamps called_at.
func (st *Stage) CallNext(ctx context.Context) (*StageEntry, error) {
	var called *StageEntry

	err := st.svc.locker.WithLock(ctx, "stage:"+string(st.kind), func(lockCtx context.Context) error {
		for attempt := 0; attempt < callNextAttempts; attempt++ {
			next, err := st.svc.repo.OldestWaitingStageEntry(lockCtx, st.kind)
			if err != nil {
				if errors.Is(err, ErrStageEntryNotFound) {
					return st.emptyError()
				}
				return err
			}

			called, err = st.svc.repo.MarkStageReady(lockCtx, st.kind, next.ID)
			if err == nil {
				return nil
			}
			if !errors.Is(err, ErrStageEntryNotFound) {
				return err
			}
		}
		return st.emptyError()
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrStageBusy
		}
		if KindOf(err) != KindInfrastructure {
			return nil, err
		}
		return nil, fmt.Errorf("call next %s: %w", st.kind, err)
	}

	st.svc.logEvent(ctx, &called.QueueID, EventStageCalled, map[string]any{
		"stage":    st.kind,
		"entry_id": called.ID,
	})
	st.broadcast(ctx)

	return called, nil
}

// Complete closes an entry that is waiting or ready. Completing a payment
// hands the patient to pharmacy in the same store transaction.
func (st *Stage) Complete(ctx context.Context, id int64) (*StageEntry, error) {
	var next StageKind
	if st.next != nil {
		next = st.next.kind
	}

	done, err := st.svc.repo.CompleteStageEntry(ctx, st.kind, id, next)
	if err != nil {
		switch {
		case errors.Is(err, ErrStageEntryNotFound):
			return nil, withMessage(ErrStageEntryNotFound, fmt.Sprintf("%s queue entry not found", st.kind))
		case errors.Is(err, ErrStageEntryCompleted):
			return nil, withMessage(ErrStageEntryCompleted, fmt.Sprintf("%s entry already completed", st.kind))
		}
		return nil, fmt.Errorf("complete %s entry: %w", st.kind, err)
	}

	entry := done.Entry
	st.svc.logEvent(ctx, &entry.QueueID, EventStageCompleted, map[string]any{
		"stage":    st.kind,
		"entry_id": entry.ID,
	})

	if st.next != nil {
		st.next.handedOff(ctx, entry.QueueID, done.Next, done.NextCreated)
	}
	st.broadcast(ctx)

	return entry, nil
}

func (st *Stage) emptyError() error {
	return withMessage(ErrStageEmpty, fmt.Sprintf("no %s patients waiting", st.kind))
}

func (st *Stage) broadcast(ctx context.Context) {
	rows, err := st.svc.repo.StageQueue(ctx, st.kind)
	if err != nil {
		st.svc.logger.Warn("load stage snapshot", zap.String("stage", string(st.kind)), zap.Error(err))
		return
	}
	if rows == nil {
		rows = []StageView{}
	}
	st.svc.publisher.Publish(st.topic, rows)
}
