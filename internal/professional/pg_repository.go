package professional

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectProfessional = `
	SELECT id, name, specialty, working_hours, consultation_duration_minutes, status, created_at, updated_at
	FROM professionals
`

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional
	var hours []byte

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Specialty,
		&hours,
		&p.ConsultationDurationMinutes,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalNotFound
		}
		return nil, err
	}

	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &p.WorkingHours); err != nil {
			return nil, fmt.Errorf("decode working hours for %s: %w", p.ID, err)
		}
	}

	return &p, nil
}

func (r *PgRepository) FindByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	row := r.pool.QueryRow(ctx, selectProfessional+`WHERE id = $1`, id)
	return scanProfessional(row)
}

func (r *PgRepository) FindBySpecialty(ctx context.Context, specialty Specialty) ([]Professional, error) {
	return r.query(ctx, selectProfessional+`WHERE specialty = $1 ORDER BY name`, specialty)
}

func (r *PgRepository) FindActive(ctx context.Context) ([]Professional, error) {
	return r.query(ctx, selectProfessional+`WHERE status = 'active' ORDER BY name`)
}

// Save upserts a professional. Used by the seeder and admin tooling.
func (r *PgRepository) Save(ctx context.Context, p Professional) error {
	hours, err := json.Marshal(p.WorkingHours)
	if err != nil {
		return fmt.Errorf("encode working hours: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO professionals (id, name, specialty, working_hours, consultation_duration_minutes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    specialty = EXCLUDED.specialty,
		    working_hours = EXCLUDED.working_hours,
		    consultation_duration_minutes = EXCLUDED.consultation_duration_minutes,
		    status = EXCLUDED.status,
		    updated_at = now()
	`, p.ID, p.Name, p.Specialty, hours, p.ConsultationDurationMinutes, p.Status)
	if err != nil {
		return fmt.Errorf("save professional: %w", err)
	}
	return nil
}

func (r *PgRepository) query(ctx context.Context, sql string, args ...any) ([]Professional, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
