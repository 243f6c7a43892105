package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/apperr"
	"github.com/hackgods/care-scheduling/internal/professional"
)

// MaxRange bounds a single slot query.
const MaxRange = 62 * 24 * time.Hour

// BookingSource lists the bookings of a professional overlapping a range.
type BookingSource interface {
	Bookings(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Booking, error)
}

type Service struct {
	directory professional.Directory
	bookings  BookingSource
	loc       *time.Location
}

func NewService(directory professional.Directory, bookings BookingSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		directory: directory,
		bookings:  bookings,
		loc:       loc,
	}
}

// ProfessionalSlots is the open agenda of one professional.
type ProfessionalSlots struct {
	Professional professional.Professional
	Duration     time.Duration
	Slots        []time.Time
}

// Slots returns the open slots of a professional in [from, to).
func (s *Service) Slots(ctx context.Context, professionalID uuid.UUID, from, to time.Time) (*ProfessionalSlots, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	p, err := s.directory.FindByID(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("load professional: %w", err)
	}

	return s.slotsFor(ctx, *p, from, to)
}

// NextAvailable returns, for every active professional of the specialty, the earliest open
// slot in [from, to). Professionals with no open slot are left out. Ordered by slot time.
func (s *Service) NextAvailable(ctx context.Context, specialty professional.Specialty, from, to time.Time) ([]ProfessionalSlots, error) {
	if !specialty.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown specialty %q", specialty))
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	pros, err := s.directory.FindBySpecialty(ctx, specialty)
	if err != nil {
		return nil, fmt.Errorf("list professionals by specialty: %w", err)
	}

	var result []ProfessionalSlots
	for _, p := range pros {
		if !p.IsActive() {
			continue
		}
		ps, err := s.slotsFor(ctx, p, from, to)
		if err != nil {
			return nil, err
		}
		if len(ps.Slots) == 0 {
			continue
		}
		ps.Slots = ps.Slots[:1]
		result = append(result, *ps)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Slots[0].Before(result[j].Slots[0])
	})

	return result, nil
}

func (s *Service) slotsFor(ctx context.Context, p professional.Professional, from, to time.Time) (*ProfessionalSlots, error) {
	existing, err := s.bookings.Bookings(ctx, p.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	return &ProfessionalSlots{
		Professional: p,
		Duration:     ConsultationDuration(p),
		Slots:        AvailableSlots(p, from.In(s.loc), to.In(s.loc), existing),
	}, nil
}

func validateRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return apperr.Validation("range start and end are required")
	}
	if !to.After(from) {
		return apperr.Validation("range end must be after range start")
	}
	if to.Sub(from) > MaxRange {
		return apperr.Validation(fmt.Sprintf("range must not exceed %d days", int(MaxRange.Hours()/24)))
	}
	return nil
}
