package appointment

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/apperr"
)

var (
	ErrAppointmentNotFound = apperr.NotFound("appointment not found")
	ErrStatusChanged       = apperr.InvalidTransition("appointment status changed concurrently")
	ErrScheduleConflict    = apperr.Conflict("professional already has an active appointment in this interval")
)

// Patch is a conditional update. It applies only while the stored status equals
// ExpectedStatus; history can only grow.
type Patch struct {
	ExpectedStatus     Status
	Status             *Status
	ScheduledStart     *time.Time
	ScheduledEnd       *time.Time
	ConsultationNotes  *string
	CancellationReason *string
	AppendHistory      []HistoryEntry
	UpdatedAt          time.Time
}

// Apply returns a with the patch applied. The status precondition is the store's job.
func (p Patch) Apply(a Appointment) Appointment {
	a = a.Clone()
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.ScheduledStart != nil {
		a.ScheduledStart = *p.ScheduledStart
	}
	if p.ScheduledEnd != nil {
		a.ScheduledEnd = *p.ScheduledEnd
	}
	if p.ConsultationNotes != nil {
		a.ConsultationNotes = *p.ConsultationNotes
	}
	if p.CancellationReason != nil {
		a.CancellationReason = *p.CancellationReason
	}
	a.History = append(a.History, slices.Clone(p.AppendHistory)...)
	if !p.UpdatedAt.IsZero() {
		a.UpdatedAt = p.UpdatedAt
	}
	return a
}

// Store persists appointments.
type Store interface {
	Create(ctx context.Context, a Appointment) (*Appointment, error)

	// Update returns ErrAppointmentNotFound for an unknown id and ErrStatusChanged when
	// the stored status no longer matches the patch precondition.
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Appointment, error)

	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindByProfessionalAndRange returns appointments of any status overlapping [start, end).
	FindByProfessionalAndRange(ctx context.Context, professionalID uuid.UUID, start, end time.Time) ([]Appointment, error)
	FindByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	FindAll(ctx context.Context) ([]Appointment, error)
}
