package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queueNumberLockKey is the advisory lock serializing ticket issuance.
const queueNumberLockKey int64 = 0x636c696e6963

const (
	patientCols     = `id, first_name, last_name, date_of_birth, phone, symptoms, temp::float8, spo2, hr, queue_number, eta_minutes, created_at`
	queueCols       = `id, patient_id, queue_number, status, assigned_room_id, created_at, updated_at`
	roomCols        = `id, name, is_available, current_patient_id, created_at, updated_at`
	stageCols       = `id, queue_id, patient_id, queue_number, status, called_at, created_at, updated_at`
	sensorCols      = `id, pi_identifier, status, temp::float8, spo2, hr, created_at`
	appointmentCols = `id, first_name, last_name, date_of_birth, phone, appointment_time, symptoms, status, patient_id, created_at, updated_at`
)

var stageTables = map[StageKind]string{
	StagePayment:  "payment_entries",
	StagePharmacy: "pharmacy_entries",
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.DateOfBirth,
		&p.Phone,
		&p.Symptoms,
		&p.Temp,
		&p.SpO2,
		&p.HR,
		&p.QueueNumber,
		&p.EtaMinutes,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanQueueEntry(row pgx.Row) (*QueueEntry, error) {
	var q QueueEntry

	err := row.Scan(
		&q.ID,
		&q.PatientID,
		&q.QueueNumber,
		&q.Status,
		&q.AssignedRoomID,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQueueEntryNotFound
		}
		return nil, err
	}

	return &q, nil
}

func scanRoom(row pgx.Row) (*Room, error) {
	var r Room

	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.IsAvailable,
		&r.CurrentPatientID,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return &r, nil
}

func scanStageEntry(kind StageKind, row pgx.Row) (*StageEntry, error) {
	s := StageEntry{Kind: kind}

	err := row.Scan(
		&s.ID,
		&s.QueueID,
		&s.PatientID,
		&s.QueueNumber,
		&s.Status,
		&s.CalledAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStageEntryNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanSensorLog(row pgx.Row) (*SensorLog, error) {
	var l SensorLog

	err := row.Scan(
		&l.ID,
		&l.PiIdentifier,
		&l.Status,
		&l.Temp,
		&l.SpO2,
		&l.HR,
		&l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSensorLogNotFound
		}
		return nil, err
	}

	return &l, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.FirstName,
		&a.LastName,
		&a.DateOfBirth,
		&a.Phone,
		&a.AppointmentTime,
		&a.Symptoms,
		&a.Status,
		&a.PatientID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func stageTable(kind StageKind) (string, error) {
	table, ok := stageTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown stage %q", kind)
	}
	return table, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	var result []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Queue

func (r *PgRepository) CountActiveEntries(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM queue_entries
		WHERE status IN ('waiting', 'called')
	`).Scan(&n)
	return n, err
}

func (r *PgRepository) CreateVisit(ctx context.Context, p NewPatient, nextNumber func(lastIssued string) string) (*Patient, *QueueEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin check-in: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, queueNumberLockKey); err != nil {
		return nil, nil, fmt.Errorf("lock queue numbers: %w", err)
	}

	var last string
	err = tx.QueryRow(ctx, `
		SELECT queue_number
		FROM queue_entries
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("read last queue number: %w", err)
	}
	number := nextNumber(last)

	patient, err := scanPatient(tx.QueryRow(ctx, `
		INSERT INTO patients (first_name, last_name, date_of_birth, phone, symptoms, temp, spo2, hr, queue_number, eta_minutes)
		VALUES ($1, $2, $3, $4, $5, $6::float8, $7, $8, $9, $10)
		RETURNING `+patientCols,
		p.FirstName, p.LastName, p.DateOfBirth, p.Phone, p.Symptoms, p.Temp, p.SpO2, p.HR, number, p.EtaMinutes,
	))
	if err != nil {
		return nil, nil, fmt.Errorf("insert patient: %w", err)
	}

	entry, err := scanQueueEntry(tx.QueryRow(ctx, `
		INSERT INTO queue_entries (patient_id, queue_number, status)
		VALUES ($1, $2, 'waiting')
		RETURNING `+queueCols,
		patient.ID, number,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, ErrQueueNumberInUse
		}
		return nil, nil, fmt.Errorf("insert queue entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit check-in: %w", err)
	}

	return patient, entry, nil
}

func (r *PgRepository) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetQueueEntry(ctx context.Context, id int64) (*QueueEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+queueCols+` FROM queue_entries WHERE id = $1`, id)
	return scanQueueEntry(row)
}

func (r *PgRepository) OldestWaitingEntry(ctx context.Context) (*QueueEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+queueCols+`
		FROM queue_entries
		WHERE status = 'waiting'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`)
	return scanQueueEntry(row)
}

func (r *PgRepository) AssignRoom(ctx context.Context, queueID, roomID int64) (*QueueEntry, *Room, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin assignment: %w", err)
	}
	defer tx.Rollback(ctx)

	entry, err := scanQueueEntry(tx.QueryRow(ctx, `
		UPDATE queue_entries
		SET status = 'called',
		    assigned_room_id = $2,
		    updated_at = clock_timestamp()
		WHERE id = $1
		  AND status = 'waiting'
		RETURNING `+queueCols,
		queueID, roomID,
	))
	if err != nil {
		if errors.Is(err, ErrQueueEntryNotFound) {
			if exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM queue_entries WHERE id = $1)`, queueID) {
				return nil, nil, ErrQueueEntryNotWaiting
			}
			return nil, nil, ErrQueueEntryNotFound
		}
		if isUniqueViolation(err) {
			return nil, nil, ErrRoomOccupied
		}
		return nil, nil, fmt.Errorf("call queue entry: %w", err)
	}

	room, err := scanRoom(tx.QueryRow(ctx, `
		UPDATE rooms
		SET is_available = FALSE,
		    current_patient_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND is_available
		RETURNING `+roomCols,
		roomID, entry.PatientID,
	))
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			if exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, roomID) {
				return nil, nil, ErrRoomOccupied
			}
			return nil, nil, ErrRoomNotFound
		}
		return nil, nil, fmt.Errorf("occupy room: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit assignment: %w", err)
	}

	return entry, room, nil
}

func (r *PgRepository) FinishRoom(ctx context.Context, roomID int64) (*FinishedRoom, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin finish: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the room row first so a concurrent assignment waits for us.
	if _, err := scanRoom(tx.QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = $1 FOR UPDATE`, roomID)); err != nil {
		return nil, err
	}

	entry, err := scanQueueEntry(tx.QueryRow(ctx, `
		UPDATE queue_entries
		SET status = 'completed',
		    updated_at = clock_timestamp()
		WHERE id = (
			SELECT id
			FROM queue_entries
			WHERE assigned_room_id = $1
			  AND status = 'called'
			ORDER BY updated_at DESC, id DESC
			LIMIT 1
		)
		RETURNING `+queueCols,
		roomID,
	))
	if err != nil {
		if !errors.Is(err, ErrQueueEntryNotFound) {
			return nil, fmt.Errorf("complete queue entry: %w", err)
		}
		entry = nil
	}

	room, err := scanRoom(tx.QueryRow(ctx, `
		UPDATE rooms
		SET is_available = TRUE,
		    current_patient_id = NULL,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+roomCols,
		roomID,
	))
	if err != nil {
		return nil, fmt.Errorf("free room: %w", err)
	}

	out := &FinishedRoom{Entry: entry, Room: room}
	if entry != nil {
		patientID := entry.PatientID
		out.Payment, out.PaymentCreated, err = enqueueStage(ctx, tx, StagePayment, HandOff{
			QueueID:     entry.ID,
			PatientID:   &patientID,
			QueueNumber: entry.QueueNumber,
		})
		if err != nil {
			return nil, fmt.Errorf("enqueue payment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit finish: %w", err)
	}

	return out, nil
}

func (r *PgRepository) ActiveQueue(ctx context.Context) ([]QueueView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT q.id, q.queue_number, q.status, q.created_at, q.assigned_room_id, q.patient_id,
		       p.first_name, p.last_name, p.symptoms, p.eta_minutes, p.temp::float8, p.spo2, p.hr,
		       rm.name
		FROM queue_entries q
		JOIN patients p ON p.id = q.patient_id
		LEFT JOIN rooms rm ON rm.id = q.assigned_room_id
		WHERE q.status IN ('waiting', 'called')
		ORDER BY q.created_at ASC, q.id ASC
	`)
	if err != nil {
		return nil, err
	}

	return collect(rows, func(row pgx.Row) (*QueueView, error) {
		var v QueueView
		err := row.Scan(
			&v.QueueID, &v.QueueNumber, &v.Status, &v.CreatedAt, &v.AssignedRoomID, &v.PatientID,
			&v.FirstName, &v.LastName, &v.Symptoms, &v.EtaMinutes, &v.Temp, &v.SpO2, &v.HR,
			&v.RoomName,
		)
		return &v, err
	})
}

func (r *PgRepository) CompletedHistory(ctx context.Context, limit, offset int) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT q.id, q.queue_number, q.status, q.created_at, q.updated_at,
		       p.first_name, p.last_name, p.symptoms, rm.name
		FROM queue_entries q
		JOIN patients p ON p.id = q.patient_id
		LEFT JOIN rooms rm ON rm.id = q.assigned_room_id
		WHERE q.status = 'completed'
		ORDER BY q.updated_at DESC, q.id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}

	return collect(rows, func(row pgx.Row) (*HistoryEntry, error) {
		var h HistoryEntry
		err := row.Scan(
			&h.QueueID, &h.QueueNumber, &h.Status, &h.CreatedAt, &h.CompletedAt,
			&h.FirstName, &h.LastName, &h.Symptoms, &h.RoomName,
		)
		return &h, err
	})
}

// Rooms

func (r *PgRepository) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomCols+` FROM rooms ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRoom)
}

func (r *PgRepository) GetRoom(ctx context.Context, id int64) (*Room, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = $1`, id)
	return scanRoom(row)
}

func (r *PgRepository) CreateRoom(ctx context.Context, name string) (*Room, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `
		INSERT INTO rooms (name, is_available)
		VALUES ($1, TRUE)
		RETURNING `+roomCols,
		name,
	))
	if isUniqueViolation(err) {
		return nil, ErrRoomNameTaken
	}
	return room, err
}

func (r *PgRepository) RenameRoom(ctx context.Context, id int64, name string) (*Room, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `
		UPDATE rooms
		SET name = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+roomCols,
		id, name,
	))
	if isUniqueViolation(err) {
		return nil, ErrRoomNameTaken
	}
	return room, err
}

func (r *PgRepository) DeleteRoom(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1 AND is_available`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if exists(ctx, r.pool, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, id) {
		return ErrRoomOccupied
	}
	return ErrRoomNotFound
}

func (r *PgRepository) FirstAvailableRoom(ctx context.Context) (*Room, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+roomCols+`
		FROM rooms
		WHERE is_available
		ORDER BY updated_at ASC, id ASC
		LIMIT 1
	`)
	return scanRoom(row)
}

// Stages

func (r *PgRepository) EnqueueStage(ctx context.Context, kind StageKind, h HandOff) (*StageEntry, bool, error) {
	return enqueueStage(ctx, r.pool, kind, h)
}

// enqueueStage inserts a hand-off or returns the row already present for the
// queue id. It runs on the pool or inside the caller's transaction.
func enqueueStage(ctx context.Context, q rowQuerier, kind StageKind, h HandOff) (*StageEntry, bool, error) {
	if h.empty() {
		return nil, false, nil
	}
	table, err := stageTable(kind)
	if err != nil {
		return nil, false, err
	}

	entry, err := scanStageEntry(kind, q.QueryRow(ctx, `
		INSERT INTO `+table+` (queue_id, patient_id, queue_number, status)
		VALUES ($1, $2, $3, 'waiting')
		ON CONFLICT (queue_id) DO NOTHING
		RETURNING `+stageCols,
		h.QueueID, h.PatientID, h.QueueNumber,
	))
	if err == nil {
		return entry, true, nil
	}
	if !errors.Is(err, ErrStageEntryNotFound) {
		return nil, false, err
	}

	existing, err := scanStageEntry(kind, q.QueryRow(ctx,
		`SELECT `+stageCols+` FROM `+table+` WHERE queue_id = $1`, h.QueueID))
	if err != nil {
		return nil, false, fmt.Errorf("load existing %s entry: %w", kind, err)
	}
	return existing, false, nil
}

func (r *PgRepository) GetStageEntry(ctx context.Context, kind StageKind, id int64) (*StageEntry, error) {
	table, err := stageTable(kind)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `SELECT `+stageCols+` FROM `+table+` WHERE id = $1`, id)
	return scanStageEntry(kind, row)
}

func (r *PgRepository) OldestWaitingStageEntry(ctx context.Context, kind StageKind) (*StageEntry, error) {
	table, err := stageTable(kind)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+stageCols+`
		FROM `+table+`
		WHERE status = 'waiting'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`)
	return scanStageEntry(kind, row)
}

func (r *PgRepository) MarkStageReady(ctx context.Context, kind StageKind, id int64) (*StageEntry, error) {
	table, err := stageTable(kind)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE `+table+`
		SET status = 'ready',
		    called_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND status = 'waiting'
		RETURNING `+stageCols,
		id,
	)
	return scanStageEntry(kind, row)
}

func (r *PgRepository) CompleteStageEntry(ctx context.Context, kind StageKind, id int64, next StageKind) (*CompletedStage, error) {
	table, err := stageTable(kind)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin complete %s: %w", kind, err)
	}
	defer tx.Rollback(ctx)

	entry, err := scanStageEntry(kind, tx.QueryRow(ctx, `
		UPDATE `+table+`
		SET status = 'completed',
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('waiting', 'ready')
		RETURNING `+stageCols,
		id,
	))
	if err != nil {
		if errors.Is(err, ErrStageEntryNotFound) &&
			exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id) {
			return nil, ErrStageEntryCompleted
		}
		return nil, err
	}

	out := &CompletedStage{Entry: entry}
	if next != "" {
		out.Next, out.NextCreated, err = enqueueStage(ctx, tx, next, HandOff{
			QueueID:     entry.QueueID,
			PatientID:   entry.PatientID,
			QueueNumber: entry.QueueNumber,
		})
		if err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", next, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit complete %s: %w", kind, err)
	}
	return out, nil
}

func (r *PgRepository) StageQueue(ctx context.Context, kind StageKind) ([]StageView, error) {
	table, err := stageTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.queue_id, s.queue_number, s.status, s.called_at, s.created_at,
		       p.first_name, p.last_name, p.symptoms
		FROM `+table+` s
		LEFT JOIN patients p ON p.id = s.patient_id
		WHERE s.status IN ('waiting', 'ready')
		ORDER BY s.created_at ASC, s.id ASC
	`)
	if err != nil {
		return nil, err
	}

	return collect(rows, func(row pgx.Row) (*StageView, error) {
		var v StageView
		err := row.Scan(
			&v.ID, &v.QueueID, &v.QueueNumber, &v.Status, &v.CalledAt, &v.CreatedAt,
			&v.FirstName, &v.LastName, &v.Symptoms,
		)
		if kind != StagePharmacy {
			v.Symptoms = nil
		}
		return &v, err
	})
}

// Sensor

func (r *PgRepository) InsertSensorLog(ctx context.Context, piIdentifier, status string, v Vitals) (*SensorLog, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO sensor_logs (pi_identifier, status, temp, spo2, hr)
		VALUES ($1, $2, $3::float8, $4, $5)
		RETURNING `+sensorCols,
		piIdentifier, status, v.Temp, v.SpO2, v.HR,
	)
	return scanSensorLog(row)
}

func (r *PgRepository) LatestSensorLog(ctx context.Context, piIdentifier string) (*SensorLog, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sensorCols+`
		FROM sensor_logs
		WHERE pi_identifier = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, piIdentifier)
	return scanSensorLog(row)
}

// Appointments

func (r *PgRepository) CreateAppointment(ctx context.Context, a NewAppointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (first_name, last_name, date_of_birth, phone, appointment_time, symptoms, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'booked')
		RETURNING `+appointmentCols,
		a.FirstName, a.LastName, a.DateOfBirth, a.Phone, a.AppointmentTime, a.Symptoms,
	)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id int64, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentCols,
		id, to, from,
	)
	return scanAppointment(row)
}

func (r *PgRepository) LinkAppointmentPatient(ctx context.Context, id, patientID int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentCols,
		id, patientID,
	)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsBetween(ctx context.Context, start, end time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE appointment_time >= $1
		  AND appointment_time < $2
		ORDER BY appointment_time ASC, id ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

func (r *PgRepository) FindBookedAppointmentByPhone(ctx context.Context, phone string, start, end time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE status = 'booked'
		  AND strpos(phone, $1) > 0
		  AND appointment_time >= $2
		  AND appointment_time < $3
		ORDER BY appointment_time ASC, id ASC
		LIMIT 1
	`, phone, start, end)
	return scanAppointment(row)
}

func (r *PgRepository) FindStaleBooked(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE status = 'booked'
		  AND appointment_time < $1
	`, before)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

// Events and maintenance

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, queue_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.QueueID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func (r *PgRepository) ResetVisits(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`UPDATE rooms SET is_available = TRUE, current_patient_id = NULL, updated_at = now() WHERE NOT is_available`,
		`DELETE FROM pharmacy_entries`,
		`DELETE FROM payment_entries`,
		`DELETE FROM queue_entries`,
		`UPDATE appointments SET patient_id = NULL WHERE patient_id IS NOT NULL`,
		`DELETE FROM patients`,
		`SELECT setval(pg_get_serial_sequence('pharmacy_entries', 'id'), 1, false)`,
		`SELECT setval(pg_get_serial_sequence('payment_entries', 'id'), 1, false)`,
		`SELECT setval(pg_get_serial_sequence('queue_entries', 'id'), 1, false)`,
		`SELECT setval(pg_get_serial_sequence('patients', 'id'), 1, false)`,
	}
	for _, stmt := range steps {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset %q: %w", stmt, err)
		}
	}

	return tx.Commit(ctx)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// exists runs a SELECT EXISTS query, treating errors as false.
func exists(ctx context.Context, q rowQuerier, sql string, args ...any) bool {
	var ok bool
	if err := q.QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false
	}
	return ok
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
