package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/care-scheduling/internal/intake"
)

// SQLSTATE exclusion_violation, raised by the no-overlap constraint on appointments.
const exclusionViolation = "23P01"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, patient_id, patient_name, patient_phone, professional_id, specialty,
	scheduled_start, scheduled_end, status, priority, modality, reason,
	price, discount, consultation_notes, cancellation_reason, history, intake,
	created_at, updated_at
`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var history, rawIntake []byte

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PatientName,
		&a.PatientPhone,
		&a.ProfessionalID,
		&a.Specialty,
		&a.ScheduledStart,
		&a.ScheduledEnd,
		&a.Status,
		&a.Priority,
		&a.Modality,
		&a.Reason,
		&a.Price,
		&a.Discount,
		&a.ConsultationNotes,
		&a.CancellationReason,
		&history,
		&rawIntake,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &a.History); err != nil {
			return nil, fmt.Errorf("decode history of %s: %w", a.ID, err)
		}
	}
	in, err := intake.Unmarshal(rawIntake)
	if err != nil {
		return nil, fmt.Errorf("decode intake of %s: %w", a.ID, err)
	}
	a.Intake = in

	return &a, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return ErrScheduleConflict
	}
	return err
}

// Interface methods

func (r *PgRepository) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	history, err := json.Marshal(a.History)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	rawIntake, err := intake.Marshal(a.Intake)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, patient_name, patient_phone, professional_id, specialty,
			scheduled_start, scheduled_end, status, priority, modality, reason,
			price, discount, consultation_notes, cancellation_reason, history, intake,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.PatientName, a.PatientPhone, a.ProfessionalID, a.Specialty,
		a.ScheduledStart, a.ScheduledEnd, a.Status, a.Priority, a.Modality, a.Reason,
		a.Price, a.Discount, a.ConsultationNotes, a.CancellationReason, history, rawIntake,
		a.CreatedAt, a.UpdatedAt,
	)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return created, nil
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, p Patch) (*Appointment, error) {
	appendHistory := p.AppendHistory
	if appendHistory == nil {
		appendHistory = []HistoryEntry{}
	}
	history, err := json.Marshal(appendHistory)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}

	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = COALESCE($3::text, status),
		    scheduled_start = COALESCE($4::timestamptz, scheduled_start),
		    scheduled_end = COALESCE($5::timestamptz, scheduled_end),
		    consultation_notes = COALESCE($6::text, consultation_notes),
		    cancellation_reason = COALESCE($7::text, cancellation_reason),
		    history = history || $8::jsonb,
		    updated_at = $9
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns,
		id, p.ExpectedStatus, p.Status, p.ScheduledStart, p.ScheduledEnd,
		p.ConsultationNotes, p.CancellationReason, history, updatedAt,
	)

	updated, err := scanAppointment(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, mapWriteError(err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check appointment: %w", err)
	}
	if exists {
		return nil, ErrStatusChanged
	}
	return nil, ErrAppointmentNotFound
}

func (r *PgRepository) FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindByProfessionalAndRange(ctx context.Context, professionalID uuid.UUID, start, end time.Time) ([]Appointment, error) {
	return r.query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND scheduled_start < $3
		  AND scheduled_end > $2
		ORDER BY scheduled_start
	`, professionalID, start, end)
}

func (r *PgRepository) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return r.query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY scheduled_start
	`, patientID)
}

func (r *PgRepository) FindAll(ctx context.Context) ([]Appointment, error) {
	return r.query(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY scheduled_start`)
}

func (r *PgRepository) query(ctx context.Context, sql string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
