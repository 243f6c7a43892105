package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/apperr"
)

var (
	ErrRecordNotFound     = apperr.NotFound("tracking record not found")
	ErrLiveRecordExists   = apperr.Conflict("patient already has a live tracking record with this professional")
	ErrRecordStatusChange = apperr.InvalidTransition("tracking record status changed concurrently")
)

// Store persists tracking records.
type Store interface {
	FindByPatient(ctx context.Context, patientID uuid.UUID) ([]Record, error)

	// Create returns ErrLiveRecordExists when the pairing already has a live record.
	Create(ctx context.Context, r Record) (*Record, error)

	FindByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// UpdateStatus moves a record from one status to another, failing with
	// ErrRecordStatusChange when the stored status is not from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (*Record, error)
}
