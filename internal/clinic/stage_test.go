package clinic_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

// consult runs one patient through a room so they land in payment.
func (f *fixture) consult(t *testing.T, first string, room *clinic.Room) *clinic.StageEntry {
	t.Helper()
	ctx := context.Background()
	res := f.checkIn(t, first)
	if _, err := f.svc.AssignRoom(ctx, f.queueID(t, res), room.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	finished, err := f.svc.FinishRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return finished.Payment
}

func TestStageCallNextOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "Room 1")

	_, err := f.svc.Payment.CallNext(ctx)
	if !errors.Is(err, clinic.ErrStageEmpty) {
		t.Fatalf("empty stage: err = %v", err)
	}
	if err.Error() != "no payment patients waiting" {
		t.Errorf("message = %q", err.Error())
	}

	first := f.consult(t, "A", room)
	second := f.consult(t, "B", room)

	called, err := f.svc.Payment.CallNext(ctx)
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if called.ID != first.ID || called.Status != clinic.StageReady || called.CalledAt == nil {
		t.Errorf("called = %+v, want first entry ready", called)
	}

	called, err = f.svc.Payment.CallNext(ctx)
	if err != nil || called.ID != second.ID {
		t.Fatalf("second call = %+v, %v", called, err)
	}

	if _, err := f.svc.Payment.CallNext(ctx); !errors.Is(err, clinic.ErrStageEmpty) {
		t.Errorf("drained stage: err = %v", err)
	}

	queue, err := f.svc.Payment.GetQueue(ctx)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 2 || queue[0].ID != first.ID || queue[0].FirstName == nil || *queue[0].FirstName != "A" {
		t.Errorf("payment queue = %+v", queue)
	}
	if queue[0].Symptoms != nil {
		t.Errorf("payment rows carry no symptoms, got %q", *queue[0].Symptoms)
	}
}

func TestStageCompleteHandsOffToPharmacy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "Room 1")

	payment := f.consult(t, "A", room)

	// Waiting entries can be completed without being called.
	done, err := f.svc.Payment.Complete(ctx, payment.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != clinic.StageCompleted {
		t.Errorf("status = %s", done.Status)
	}

	_, err = f.svc.Payment.Complete(ctx, payment.ID)
	if !errors.Is(err, clinic.ErrStageEntryCompleted) || err.Error() != "payment entry already completed" {
		t.Errorf("second complete: err = %v", err)
	}
	_, err = f.svc.Payment.Complete(ctx, 999)
	if !errors.Is(err, clinic.ErrStageEntryNotFound) || err.Error() != "payment queue entry not found" {
		t.Errorf("unknown entry: err = %v", err)
	}

	pharmacy, err := f.svc.Pharmacy.GetQueue(ctx)
	if err != nil {
		t.Fatalf("pharmacy queue: %v", err)
	}
	if len(pharmacy) != 1 || pharmacy[0].QueueID != payment.QueueID || pharmacy[0].QueueNumber != payment.QueueNumber {
		t.Fatalf("pharmacy queue = %+v", pharmacy)
	}
	if pharmacy[0].Symptoms == nil || *pharmacy[0].Symptoms != "cough" {
		t.Errorf("pharmacy symptoms = %v", pharmacy[0].Symptoms)
	}

	called, err := f.svc.Pharmacy.CallNext(ctx)
	if err != nil {
		t.Fatalf("pharmacy call: %v", err)
	}
	if _, err := f.svc.Pharmacy.Complete(ctx, called.ID); err != nil {
		t.Fatalf("pharmacy complete: %v", err)
	}
	if queue, _ := f.svc.Pharmacy.GetQueue(ctx); len(queue) != 0 {
		t.Errorf("pharmacy queue after pickup = %+v", queue)
	}
	if _, err := f.svc.Pharmacy.CallNext(ctx); err == nil || err.Error() != "no pharmacy patients waiting" {
		t.Errorf("empty pharmacy: err = %v", err)
	}
}

func TestStageCompleteKeepsEntryWhenHandOffFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payment := f.consult(t, "A", f.room(t, "Room 1"))

	f.store.FailEnqueueStage = errors.New("connection reset")
	if _, err := f.svc.Payment.Complete(ctx, payment.ID); err == nil {
		t.Fatal("expected complete to fail")
	}
	queue, err := f.svc.Payment.GetQueue(ctx)
	if err != nil || len(queue) != 1 || queue[0].ID != payment.ID {
		t.Fatalf("payment queue after failed complete = %+v, %v", queue, err)
	}

	f.store.FailEnqueueStage = nil
	if _, err := f.svc.Payment.Complete(ctx, payment.ID); err != nil {
		t.Fatalf("retry complete: %v", err)
	}
	if n := len(f.store.StageEntries(clinic.StagePharmacy)); n != 1 {
		t.Errorf("pharmacy entries = %d, want 1", n)
	}
	if _, ok := f.rec.Last(clinic.TopicPharmacyUpdate); !ok {
		t.Error("missing pharmacy broadcast")
	}
}

func TestStageEnqueueIgnoresEmptyHandOff(t *testing.T) {
	f := newFixture(t)

	entry, err := f.svc.Pharmacy.EnqueueFromUpstream(context.Background(), clinic.HandOff{QueueID: 7})
	if err != nil || entry != nil {
		t.Fatalf("empty hand-off = %+v, %v", entry, err)
	}
	if n := len(f.store.StageEntries(clinic.StagePharmacy)); n != 0 {
		t.Errorf("pharmacy entries = %d", n)
	}
	if topics := f.rec.Topics(); len(topics) != 0 {
		t.Errorf("unexpected broadcasts %v", topics)
	}

	entry, err = f.svc.Pharmacy.EnqueueFromUpstream(context.Background(), clinic.HandOff{QueueID: 8, QueueNumber: "0042"})
	if err != nil || entry == nil || entry.PatientID != nil {
		t.Errorf("number-only hand-off = %+v, %v", entry, err)
	}
}

func TestStageCallNextWhileLocked(t *testing.T) {
	f := newFixture(t)

	err := f.locker.WithLock(context.Background(), "stage:payment", func(ctx context.Context) error {
		_, err := f.svc.Payment.CallNext(ctx)
		return err
	})
	if !errors.Is(err, clinic.ErrStageBusy) {
		t.Fatalf("err = %v, want ErrStageBusy", err)
	}
}

func TestStageLookup(t *testing.T) {
	f := newFixture(t)
	if f.svc.Stage(clinic.StagePayment) != f.svc.Payment || f.svc.Stage(clinic.StagePharmacy) != f.svc.Pharmacy {
		t.Error("Stage did not return the service pipelines")
	}
	if f.svc.Stage("radiology") != nil {
		t.Error("unknown stage should be nil")
	}
}
