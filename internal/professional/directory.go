package professional

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/apperr"
)

var ErrProfessionalNotFound = apperr.NotFound("professional not found")

// Directory is the read side of the professional registry.
type Directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Professional, error)
	FindBySpecialty(ctx context.Context, specialty Specialty) ([]Professional, error)
	FindActive(ctx context.Context) ([]Professional, error)
}
