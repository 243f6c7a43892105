package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/care-scheduling/internal/apperr"
	"github.com/hackgods/care-scheduling/internal/appointment"
)

var statusTransitions = map[Status][]Status{
	StatusActive: {StatusPaused, StatusClosed},
	StatusPaused: {StatusActive, StatusClosed},
}

type Service struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(store Store, log logrus.FieldLogger) *Service {
	return &Service{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// HandleConfirmed is the projection consumer of appointment.confirmed. Errors are for the
// dispatcher to log; a live record for the pairing is not an error.
func (s *Service) HandleConfirmed(ctx context.Context, ev appointment.Event) error {
	appt := ev.Appointment
	fields := logrus.Fields{
		"appointment_id":  appt.ID,
		"patient_id":      appt.PatientID,
		"professional_id": appt.ProfessionalID,
	}

	existing, err := s.store.FindByPatient(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("load tracking records: %w", err)
	}

	rec, ok := ProjectOnConfirm(appt, existing, s.now())
	if !ok {
		s.log.WithFields(fields).Debug("live tracking record exists, skipping projection")
		return nil
	}

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrLiveRecordExists) {
			s.log.WithFields(fields).Debug("tracking record created concurrently, skipping projection")
			return nil
		}
		return fmt.Errorf("create tracking record: %w", err)
	}

	s.log.WithFields(fields).WithField("record_id", created.ID).Info("tracking record opened")
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Record, error) {
	recs, err := s.store.FindByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list tracking records: %w", err)
	}
	return recs, nil
}

func (s *Service) Pause(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.setStatus(ctx, id, StatusPaused)
}

func (s *Service) Resume(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.setStatus(ctx, id, StatusActive)
}

// Close ends the follow-up. A closed record frees the pairing for a new one.
func (s *Service) Close(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.setStatus(ctx, id, StatusClosed)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, to Status) (*Record, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load tracking record: %w", err)
	}

	allowed := false
	for _, next := range statusTransitions[rec.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperr.InvalidTransition(fmt.Sprintf("cannot move tracking record from %s to %s", rec.Status, to))
	}

	updated, err := s.store.UpdateStatus(ctx, id, rec.Status, to, s.now())
	if err != nil {
		return nil, fmt.Errorf("update tracking record: %w", err)
	}
	return updated, nil
}
