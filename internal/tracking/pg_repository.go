package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE unique_violation, raised by the partial index on live records.
const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const recordColumns = `
	id, patient_id, patient_name, professional_id, specialty, status, start_date,
	objective, origin_appointment_id, specialized_data, created_at, updated_at
`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var data []byte

	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.PatientName,
		&r.ProfessionalID,
		&r.Specialty,
		&r.Status,
		&r.StartDate,
		&r.Objective,
		&r.OriginAppointmentID,
		&data,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	d, err := UnmarshalData(data)
	if err != nil {
		return nil, fmt.Errorf("decode specialized data of %s: %w", r.ID, err)
	}
	r.Data = d

	return &r, nil
}

func (r *PgRepository) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM tracking_records
		WHERE patient_id = $1
		ORDER BY start_date
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Create(ctx context.Context, rec Record) (*Record, error) {
	data, err := MarshalData(rec.Data)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO tracking_records (
			id, patient_id, patient_name, professional_id, specialty, status, start_date,
			objective, origin_appointment_id, specialized_data, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+recordColumns,
		rec.ID, rec.PatientID, rec.PatientName, rec.ProfessionalID, rec.Specialty, rec.Status,
		rec.StartDate, rec.Objective, rec.OriginAppointmentID, data, rec.CreatedAt, rec.UpdatedAt,
	)

	created, err := scanRecord(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrLiveRecordExists
		}
		return nil, fmt.Errorf("insert tracking record: %w", err)
	}
	return created, nil
}

func (r *PgRepository) FindByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM tracking_records WHERE id = $1`, id)
	return scanRecord(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tracking_records
		SET status = $3,
		    updated_at = $4
		WHERE id = $1
		  AND status = $2
		RETURNING `+recordColumns,
		id, from, to, at,
	)

	updated, err := scanRecord(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrLiveRecordExists
		}
		return nil, err
	}
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, ErrRecordStatusChange
}
