// Package memstore is an in-memory clinic.Repository used by tests and local
// demos. It enforces the same uniqueness and conditional-update rules as the
// Postgres schema.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

type Store struct {
	mu sync.Mutex

	clock time.Time
	tick  time.Duration

	nextID map[string]int64

	patients     map[int64]*clinic.Patient
	queue        map[int64]*clinic.QueueEntry
	rooms        map[int64]*clinic.Room
	stages       map[clinic.StageKind]map[int64]*clinic.StageEntry
	sensorLogs   []clinic.SensorLog
	appointments map[int64]*clinic.Appointment
	events       []clinic.EventLog

	// FailCreateVisit makes the next CreateVisit calls fail with this error.
	FailCreateVisit error
	// FailEnqueueStage makes every stage insert fail with this error. The
	// transition that would have written it is left untouched.
	FailEnqueueStage error
}

var _ clinic.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		clock:        time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC),
		tick:         time.Millisecond,
		nextID:       map[string]int64{},
		patients:     map[int64]*clinic.Patient{},
		queue:        map[int64]*clinic.QueueEntry{},
		rooms:        map[int64]*clinic.Room{},
		stages:       map[clinic.StageKind]map[int64]*clinic.StageEntry{clinic.StagePayment: {}, clinic.StagePharmacy: {}},
		appointments: map[int64]*clinic.Appointment{},
	}
}

// now advances the store clock so every mutation gets a distinct, increasing
// timestamp.
func (s *Store) now() time.Time {
	s.clock = s.clock.Add(s.tick)
	return s.clock
}

func (s *Store) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

// SetRoomUpdatedAt backdates a room, for idle-longest ordering tests.
func (s *Store) SetRoomUpdatedAt(id int64, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		r.UpdatedAt = t
	}
}

// Events returns a copy of the audit log.
func (s *Store) Events() []clinic.EventLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]clinic.EventLog(nil), s.events...)
}

// QueueEntries returns a copy of every queue entry ordered by id.
func (s *Store) QueueEntries() []clinic.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]clinic.QueueEntry, 0, len(s.queue))
	for _, q := range s.queue {
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StageEntries returns a copy of every entry of a stage ordered by id.
func (s *Store) StageEntries(kind clinic.StageKind) []clinic.StageEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]clinic.StageEntry, 0, len(s.stages[kind]))
	for _, e := range s.stages[kind] {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func isActive(st clinic.QueueStatus) bool {
	return st == clinic.QueueWaiting || st == clinic.QueueCalled
}

func ptr[T any](v T) *T { return &v }

// Queue

func (s *Store) CountActiveEntries(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, q := range s.queue {
		if isActive(q.Status) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateVisit(ctx context.Context, p clinic.NewPatient, nextNumber func(lastIssued string) string) (*clinic.Patient, *clinic.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCreateVisit != nil {
		return nil, nil, s.FailCreateVisit
	}

	var last string
	var lastID int64
	for _, q := range s.queue {
		if q.ID > lastID {
			lastID, last = q.ID, q.QueueNumber
		}
	}
	number := nextNumber(last)

	for _, q := range s.queue {
		if isActive(q.Status) && q.QueueNumber == number {
			return nil, nil, clinic.ErrQueueNumberInUse
		}
	}

	now := s.now()
	patient := &clinic.Patient{
		ID:          s.id("patients"),
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DateOfBirth: p.DateOfBirth,
		Phone:       p.Phone,
		Symptoms:    p.Symptoms,
		Vitals:      p.Vitals,
		QueueNumber: number,
		EtaMinutes:  p.EtaMinutes,
		CreatedAt:   now,
	}
	entry := &clinic.QueueEntry{
		ID:          s.id("queue"),
		PatientID:   patient.ID,
		QueueNumber: number,
		Status:      clinic.QueueWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.patients[patient.ID] = patient
	s.queue[entry.ID] = entry

	pc, ec := *patient, *entry
	return &pc, &ec, nil
}

func (s *Store) GetPatient(ctx context.Context, id int64) (*clinic.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, clinic.ErrPatientNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) GetQueueEntry(ctx context.Context, id int64) (*clinic.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queue[id]
	if !ok {
		return nil, clinic.ErrQueueEntryNotFound
	}
	c := *q
	return &c, nil
}

func (s *Store) OldestWaitingEntry(ctx context.Context) (*clinic.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *clinic.QueueEntry
	for _, q := range s.queue {
		if q.Status != clinic.QueueWaiting {
			continue
		}
		if best == nil || q.CreatedAt.Before(best.CreatedAt) || (q.CreatedAt.Equal(best.CreatedAt) && q.ID < best.ID) {
			best = q
		}
	}
	if best == nil {
		return nil, clinic.ErrQueueEntryNotFound
	}
	c := *best
	return &c, nil
}

func (s *Store) AssignRoom(ctx context.Context, queueID, roomID int64) (*clinic.QueueEntry, *clinic.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queue[queueID]
	if !ok {
		return nil, nil, clinic.ErrQueueEntryNotFound
	}
	if q.Status != clinic.QueueWaiting {
		return nil, nil, clinic.ErrQueueEntryNotWaiting
	}
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, nil, clinic.ErrRoomNotFound
	}
	if !r.IsAvailable {
		return nil, nil, clinic.ErrRoomOccupied
	}
	for _, other := range s.queue {
		if other.Status == clinic.QueueCalled && other.AssignedRoomID != nil && *other.AssignedRoomID == roomID {
			return nil, nil, clinic.ErrRoomOccupied
		}
	}

	now := s.now()
	q.Status = clinic.QueueCalled
	q.AssignedRoomID = ptr(roomID)
	q.UpdatedAt = now
	r.IsAvailable = false
	r.CurrentPatientID = ptr(q.PatientID)
	r.UpdatedAt = now

	qc, rc := *q, *r
	return &qc, &rc, nil
}

func (s *Store) FinishRoom(ctx context.Context, roomID int64) (*clinic.FinishedRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil, clinic.ErrRoomNotFound
	}

	var active *clinic.QueueEntry
	for _, q := range s.queue {
		if q.Status != clinic.QueueCalled || q.AssignedRoomID == nil || *q.AssignedRoomID != roomID {
			continue
		}
		if active == nil || q.UpdatedAt.After(active.UpdatedAt) || (q.UpdatedAt.Equal(active.UpdatedAt) && q.ID > active.ID) {
			active = q
		}
	}
	if active != nil && s.FailEnqueueStage != nil {
		return nil, s.FailEnqueueStage
	}

	now := s.now()
	out := &clinic.FinishedRoom{}
	if active != nil {
		active.Status = clinic.QueueCompleted
		active.UpdatedAt = now
		c := *active
		out.Entry = &c

		patientID := active.PatientID
		out.Payment, out.PaymentCreated = s.enqueueLocked(clinic.StagePayment, clinic.HandOff{
			QueueID:     active.ID,
			PatientID:   &patientID,
			QueueNumber: active.QueueNumber,
		})
	}
	r.IsAvailable = true
	r.CurrentPatientID = nil
	r.UpdatedAt = now

	rc := *r
	out.Room = &rc
	return out, nil
}

func (s *Store) roomName(id *int64) *string {
	if id == nil {
		return nil
	}
	if r, ok := s.rooms[*id]; ok {
		return ptr(r.Name)
	}
	return nil
}

func (s *Store) ActiveQueue(ctx context.Context) ([]clinic.QueueView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []clinic.QueueView
	for _, q := range s.queue {
		if !isActive(q.Status) {
			continue
		}
		p := s.patients[q.PatientID]
		out = append(out, clinic.QueueView{
			QueueID:        q.ID,
			QueueNumber:    q.QueueNumber,
			Status:         q.Status,
			CreatedAt:      q.CreatedAt,
			AssignedRoomID: q.AssignedRoomID,
			PatientID:      q.PatientID,
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			Symptoms:       p.Symptoms,
			EtaMinutes:     p.EtaMinutes,
			Vitals:         p.Vitals,
			RoomName:       s.roomName(q.AssignedRoomID),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].QueueID < out[j].QueueID
	})
	return out, nil
}

func (s *Store) CompletedHistory(ctx context.Context, limit, offset int) ([]clinic.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []clinic.HistoryEntry
	for _, q := range s.queue {
		if q.Status != clinic.QueueCompleted {
			continue
		}
		p := s.patients[q.PatientID]
		all = append(all, clinic.HistoryEntry{
			QueueID:     q.ID,
			QueueNumber: q.QueueNumber,
			Status:      string(q.Status),
			CreatedAt:   q.CreatedAt,
			CompletedAt: q.UpdatedAt,
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			Symptoms:    p.Symptoms,
			RoomName:    s.roomName(q.AssignedRoomID),
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CompletedAt.Equal(all[j].CompletedAt) {
			return all[i].CompletedAt.After(all[j].CompletedAt)
		}
		return all[i].QueueID > all[j].QueueID
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Rooms

func (s *Store) ListRooms(ctx context.Context) ([]clinic.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]clinic.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetRoom(ctx context.Context, id int64) (*clinic.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, clinic.ErrRoomNotFound
	}
	c := *r
	return &c, nil
}

func (s *Store) nameTaken(name string, except int64) bool {
	for _, r := range s.rooms {
		if r.ID != except && r.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) CreateRoom(ctx context.Context, name string) (*clinic.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameTaken(name, 0) {
		return nil, clinic.ErrRoomNameTaken
	}
	now := s.now()
	r := &clinic.Room{ID: s.id("rooms"), Name: name, IsAvailable: true, CreatedAt: now, UpdatedAt: now}
	s.rooms[r.ID] = r
	c := *r
	return &c, nil
}

func (s *Store) RenameRoom(ctx context.Context, id int64, name string) (*clinic.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, clinic.ErrRoomNotFound
	}
	if s.nameTaken(name, id) {
		return nil, clinic.ErrRoomNameTaken
	}
	r.Name = name
	r.UpdatedAt = s.now()
	c := *r
	return &c, nil
}

func (s *Store) DeleteRoom(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return clinic.ErrRoomNotFound
	}
	if !r.IsAvailable {
		return clinic.ErrRoomOccupied
	}
	delete(s.rooms, id)
	for _, q := range s.queue {
		if q.AssignedRoomID != nil && *q.AssignedRoomID == id {
			q.AssignedRoomID = nil
		}
	}
	return nil
}

func (s *Store) FirstAvailableRoom(ctx context.Context) (*clinic.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *clinic.Room
	for _, r := range s.rooms {
		if !r.IsAvailable {
			continue
		}
		if best == nil || r.UpdatedAt.Before(best.UpdatedAt) || (r.UpdatedAt.Equal(best.UpdatedAt) && r.ID < best.ID) {
			best = r
		}
	}
	if best == nil {
		return nil, clinic.ErrRoomNotFound
	}
	c := *best
	return &c, nil
}

// Stages

func (s *Store) EnqueueStage(ctx context.Context, kind clinic.StageKind, h clinic.HandOff) (*clinic.StageEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailEnqueueStage != nil {
		return nil, false, s.FailEnqueueStage
	}
	e, created := s.enqueueLocked(kind, h)
	return e, created, nil
}

// enqueueLocked mirrors the UNIQUE(queue_id) insert. Callers hold s.mu.
func (s *Store) enqueueLocked(kind clinic.StageKind, h clinic.HandOff) (*clinic.StageEntry, bool) {
	if h.PatientID == nil && h.QueueNumber == "" {
		return nil, false
	}
	for _, e := range s.stages[kind] {
		if e.QueueID == h.QueueID {
			c := *e
			return &c, false
		}
	}

	now := s.now()
	e := &clinic.StageEntry{
		ID:          s.id(string(kind)),
		Kind:        kind,
		QueueID:     h.QueueID,
		PatientID:   h.PatientID,
		QueueNumber: h.QueueNumber,
		Status:      clinic.StageWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.stages[kind][e.ID] = e
	c := *e
	return &c, true
}

func (s *Store) GetStageEntry(ctx context.Context, kind clinic.StageKind, id int64) (*clinic.StageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.stages[kind][id]
	if !ok {
		return nil, clinic.ErrStageEntryNotFound
	}
	c := *e
	return &c, nil
}

func (s *Store) OldestWaitingStageEntry(ctx context.Context, kind clinic.StageKind) (*clinic.StageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *clinic.StageEntry
	for _, e := range s.stages[kind] {
		if e.Status != clinic.StageWaiting {
			continue
		}
		if best == nil || e.CreatedAt.Before(best.CreatedAt) || (e.CreatedAt.Equal(best.CreatedAt) && e.ID < best.ID) {
			best = e
		}
	}
	if best == nil {
		return nil, clinic.ErrStageEntryNotFound
	}
	c := *best
	return &c, nil
}

func (s *Store) MarkStageReady(ctx context.Context, kind clinic.StageKind, id int64) (*clinic.StageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.stages[kind][id]
	if !ok || e.Status != clinic.StageWaiting {
		return nil, clinic.ErrStageEntryNotFound
	}
	now := s.now()
	e.Status = clinic.StageReady
	e.CalledAt = ptr(now)
	e.UpdatedAt = now
	c := *e
	return &c, nil
}

func (s *Store) CompleteStageEntry(ctx context.Context, kind clinic.StageKind, id int64, next clinic.StageKind) (*clinic.CompletedStage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.stages[kind][id]
	if !ok {
		return nil, clinic.ErrStageEntryNotFound
	}
	if e.Status == clinic.StageCompleted {
		return nil, clinic.ErrStageEntryCompleted
	}
	if next != "" && s.FailEnqueueStage != nil {
		return nil, s.FailEnqueueStage
	}

	e.Status = clinic.StageCompleted
	e.UpdatedAt = s.now()
	c := *e
	out := &clinic.CompletedStage{Entry: &c}
	if next != "" {
		out.Next, out.NextCreated = s.enqueueLocked(next, clinic.HandOff{
			QueueID:     e.QueueID,
			PatientID:   e.PatientID,
			QueueNumber: e.QueueNumber,
		})
	}
	return out, nil
}

func (s *Store) StageQueue(ctx context.Context, kind clinic.StageKind) ([]clinic.StageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []clinic.StageView
	for _, e := range s.stages[kind] {
		if e.Status == clinic.StageCompleted {
			continue
		}
		v := clinic.StageView{
			ID:          e.ID,
			QueueID:     e.QueueID,
			QueueNumber: e.QueueNumber,
			Status:      e.Status,
			CalledAt:    e.CalledAt,
			CreatedAt:   e.CreatedAt,
		}
		if e.PatientID != nil {
			if p, ok := s.patients[*e.PatientID]; ok {
				v.FirstName = ptr(p.FirstName)
				v.LastName = ptr(p.LastName)
				if kind == clinic.StagePharmacy {
					v.Symptoms = p.Symptoms
				}
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Sensor

func (s *Store) InsertSensorLog(ctx context.Context, piIdentifier, status string, v clinic.Vitals) (*clinic.SensorLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := clinic.SensorLog{
		ID:           s.id("sensor_logs"),
		PiIdentifier: piIdentifier,
		Status:       status,
		Vitals:       v,
		CreatedAt:    s.now(),
	}
	s.sensorLogs = append(s.sensorLogs, l)
	return &l, nil
}

func (s *Store) LatestSensorLog(ctx context.Context, piIdentifier string) (*clinic.SensorLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sensorLogs) - 1; i >= 0; i-- {
		if s.sensorLogs[i].PiIdentifier == piIdentifier {
			l := s.sensorLogs[i]
			return &l, nil
		}
	}
	return nil, clinic.ErrSensorLogNotFound
}

// Appointments

func (s *Store) CreateAppointment(ctx context.Context, a clinic.NewAppointment) (*clinic.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	appt := &clinic.Appointment{
		ID:              s.id("appointments"),
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		DateOfBirth:     a.DateOfBirth,
		Phone:           a.Phone,
		AppointmentTime: a.AppointmentTime,
		Symptoms:        a.Symptoms,
		Status:          clinic.AppointmentBooked,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.appointments[appt.ID] = appt
	c := *appt
	return &c, nil
}

func (s *Store) GetAppointment(ctx context.Context, id int64) (*clinic.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, clinic.ErrAppointmentNotFound
	}
	c := *a
	return &c, nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, id int64, from, to clinic.AppointmentStatus) (*clinic.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok || a.Status != from {
		return nil, clinic.ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = s.now()
	c := *a
	return &c, nil
}

func (s *Store) LinkAppointmentPatient(ctx context.Context, id, patientID int64) (*clinic.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, clinic.ErrAppointmentNotFound
	}
	a.PatientID = ptr(patientID)
	a.UpdatedAt = s.now()
	c := *a
	return &c, nil
}

func (s *Store) sortedAppointments(keep func(*clinic.Appointment) bool) []clinic.Appointment {
	var out []clinic.Appointment
	for _, a := range s.appointments {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppointmentTime.Equal(out[j].AppointmentTime) {
			return out[i].AppointmentTime.Before(out[j].AppointmentTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func (s *Store) ListAppointmentsBetween(ctx context.Context, start, end time.Time) ([]clinic.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedAppointments(func(a *clinic.Appointment) bool {
		return inWindow(a.AppointmentTime, start, end)
	}), nil
}

func (s *Store) FindBookedAppointmentByPhone(ctx context.Context, phone string, start, end time.Time) (*clinic.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := s.sortedAppointments(func(a *clinic.Appointment) bool {
		return a.Status == clinic.AppointmentBooked &&
			a.Phone != nil && strings.Contains(*a.Phone, phone) &&
			inWindow(a.AppointmentTime, start, end)
	})
	if len(matches) == 0 {
		return nil, clinic.ErrAppointmentNotFound
	}
	return &matches[0], nil
}

func (s *Store) FindStaleBooked(ctx context.Context, before time.Time) ([]clinic.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedAppointments(func(a *clinic.Appointment) bool {
		return a.Status == clinic.AppointmentBooked && a.AppointmentTime.Before(before)
	}), nil
}

// Events and maintenance

func (s *Store) InsertEvent(ctx context.Context, ev clinic.EventLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = s.id("event_logs")
	s.events = append(s.events, ev)
	return nil
}

func (s *Store) ResetVisits(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		r.IsAvailable = true
		r.CurrentPatientID = nil
	}
	s.stages = map[clinic.StageKind]map[int64]*clinic.StageEntry{clinic.StagePayment: {}, clinic.StagePharmacy: {}}
	s.queue = map[int64]*clinic.QueueEntry{}
	for _, a := range s.appointments {
		a.PatientID = nil
	}
	s.patients = map[int64]*clinic.Patient{}
	for _, table := range []string{"patients", "queue", string(clinic.StagePayment), string(clinic.StagePharmacy)} {
		delete(s.nextID, table)
	}
	return nil
}
