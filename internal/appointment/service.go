package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/care-scheduling/internal/apperr"
	"github.com/hackgods/care-scheduling/internal/availability"
	"github.com/hackgods/care-scheduling/internal/config"
	"github.com/hackgods/care-scheduling/internal/intake"
	"github.com/hackgods/care-scheduling/internal/professional"
	"github.com/hackgods/care-scheduling/internal/validation"
)

const (
	noShowNote = "patient did not attend the appointment"

	// sweepLookback bounds how far back the no-show sweep looks for stale appointments.
	sweepLookback = 30 * 24 * time.Hour
)

// Locker serialises the conflict check and the write for one professional.
type Locker interface {
	WithProfessionalLock(ctx context.Context, professionalID uuid.UUID, fn func(ctx context.Context) error) error
}

type nopLocker struct{}

func (nopLocker) WithProfessionalLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	store     Store
	directory professional.Directory
	publisher Publisher
	locker    Locker
	validate  *validation.Validator
	cfg       config.Config
	log       logrus.FieldLogger
	now       func() time.Time
}

type Option func(*Service)

// WithLocker guards create and reschedule with l.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, directory professional.Directory, publisher Publisher, cfg config.Config, log logrus.FieldLogger, opts ...Option) *Service {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	s := &Service{
		store:     store,
		directory: directory,
		publisher: publisher,
		locker:    nopLocker{},
		validate:  validation.New(),
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is a booking request. A zero ScheduledEnd means one consultation long.
type CreateInput struct {
	PatientID      uuid.UUID       `json:"patient_id" validate:"required"`
	PatientName    string          `json:"patient_name" validate:"required,max=200"`
	PatientPhone   string          `json:"patient_phone" validate:"required,min=8,max=20"`
	ProfessionalID uuid.UUID       `json:"professional_id" validate:"required"`
	ScheduledStart time.Time       `json:"scheduled_start" validate:"required"`
	ScheduledEnd   time.Time       `json:"scheduled_end"`
	Priority       Priority        `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Modality       Modality        `json:"modality" validate:"omitempty,oneof=in_person remote"`
	Reason         string          `json:"reason" validate:"required"`
	Price          decimal.Decimal `json:"price" validate:"-"`
	Discount       decimal.Decimal `json:"discount" validate:"-"`
	Intake         intake.Intake   `json:"-" validate:"-"`
	ActorID        string          `json:"-" validate:"-"`
}

// Create books an appointment in status scheduled. A conflicting booking fails with
// ErrScheduleConflict and writes nothing.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	in.PatientName = strings.TrimSpace(in.PatientName)
	in.PatientPhone = strings.TrimSpace(in.PatientPhone)
	in.Reason = strings.TrimSpace(in.Reason)

	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	p, err := s.directory.FindByID(ctx, in.ProfessionalID)
	if err != nil {
		return nil, fmt.Errorf("load professional: %w", err)
	}
	if !p.IsActive() {
		return nil, apperr.Validation(fmt.Sprintf("professional is %s and not accepting appointments", p.Status))
	}

	if in.Intake != nil && in.Intake.Specialty() != p.Specialty {
		return nil, apperr.ValidationFields("invalid appointment", map[string]string{
			"intake": fmt.Sprintf("%s intake does not match professional specialty %s", in.Intake.Specialty(), p.Specialty),
		})
	}

	end := in.ScheduledEnd
	if end.IsZero() {
		end = in.ScheduledStart.Add(availability.ConsultationDuration(*p))
	}

	now := s.now()
	appt := Appointment{
		ID:             uuid.New(),
		PatientID:      in.PatientID,
		PatientName:    in.PatientName,
		PatientPhone:   in.PatientPhone,
		ProfessionalID: p.ID,
		Specialty:      p.Specialty,
		ScheduledStart: in.ScheduledStart,
		ScheduledEnd:   end,
		Status:         StatusScheduled,
		Priority:       in.Priority,
		Modality:       in.Modality,
		Reason:         in.Reason,
		Price:          in.Price,
		Discount:       in.Discount,
		Intake:         in.Intake,
		History: []HistoryEntry{{
			Timestamp: now,
			Action:    ActionCreated,
			ActorID:   actorOrSystem(in.ActorID),
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if appt.Priority == "" {
		appt.Priority = PriorityNormal
	}
	if appt.Modality == "" {
		appt.Modality = ModalityInPerson
	}

	var created *Appointment
	err = s.locker.WithProfessionalLock(ctx, p.ID, func(lockCtx context.Context) error {
		if err := s.checkConflict(lockCtx, p.ID, appt.ScheduledStart, appt.ScheduledEnd, uuid.Nil); err != nil {
			return err
		}

		c, err := s.store.Create(lockCtx, appt)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventCreated, created, appt.History[0].ActorID)
	return created, nil
}

func (s *Service) validateCreate(in CreateInput) error {
	if err := s.validate.Struct("invalid appointment", in); err != nil {
		return err
	}

	fields := map[string]string{}
	if n := utf8.RuneCountInString(in.Reason); n < s.cfg.MinReasonLength {
		fields["reason"] = fmt.Sprintf("reason must be at least %d characters", s.cfg.MinReasonLength)
	}
	if !in.ScheduledEnd.IsZero() && !in.ScheduledEnd.After(in.ScheduledStart) {
		fields["scheduled_end"] = "scheduled_end must be after scheduled_start"
	}
	if in.Price.IsNegative() {
		fields["price"] = "price must not be negative"
	}
	if in.Discount.IsNegative() {
		fields["discount"] = "discount must not be negative"
	} else if in.Discount.GreaterThan(in.Price) {
		fields["discount"] = "discount must not exceed price"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("invalid appointment", fields)
	}

	if in.Intake != nil {
		if err := s.validate.Struct("invalid intake", in.Intake); err != nil {
			return err
		}
	}
	return nil
}

// Confirm moves a scheduled or rescheduled appointment to confirmed. Record projection and
// notification run as detached consumers of the confirmation event; their failures never
// reach the caller.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actorID string) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, ActionConfirmed, EventConfirmed, actorID, "", nil)
}

// Cancel ends a non-terminal appointment with a reason.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason, actorID string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.ValidationFields("invalid cancellation", map[string]string{
			"reason": "reason is required",
		})
	}
	return s.transition(ctx, id, StatusCancelled, ActionCancelled, EventCancelled, actorID, reason, func(p *Patch, _ *Appointment) {
		p.CancellationReason = &reason
	})
}

func (s *Service) StartConsultation(ctx context.Context, id uuid.UUID, actorID string) (*Appointment, error) {
	return s.transition(ctx, id, StatusInProgress, ActionStarted, EventStarted, actorID, "", nil)
}

// CompleteConsultation closes an in-progress appointment. Notes are optional.
func (s *Service) CompleteConsultation(ctx context.Context, id uuid.UUID, notes, actorID string) (*Appointment, error) {
	notes = strings.TrimSpace(notes)
	return s.transition(ctx, id, StatusCompleted, ActionCompleted, EventCompleted, actorID, notes, func(p *Patch, _ *Appointment) {
		if notes != "" {
			p.ConsultationNotes = &notes
		}
	})
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID, actorID string) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow, ActionNoShow, EventNoShow, actorID, noShowNote, nil)
}

// Reschedule moves the appointment to newStart keeping its duration. The appointment is
// updated in place; the superseded time stays in its history.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, actorID string) (*Appointment, error) {
	if newStart.IsZero() {
		return nil, apperr.ValidationFields("invalid reschedule", map[string]string{
			"scheduled_start": "scheduled_start is required",
		})
	}

	appt, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !CanTransition(appt.Status, StatusRescheduled) {
		return nil, invalidTransition(appt.Status, StatusRescheduled)
	}

	newEnd := newStart.Add(appt.Duration())
	actor := actorOrSystem(actorID)

	var updated *Appointment
	err = s.locker.WithProfessionalLock(ctx, appt.ProfessionalID, func(lockCtx context.Context) error {
		if err := s.checkConflict(lockCtx, appt.ProfessionalID, newStart, newEnd, appt.ID); err != nil {
			return err
		}

		now := s.now()
		status := StatusRescheduled
		u, err := s.store.Update(lockCtx, appt.ID, Patch{
			ExpectedStatus: appt.Status,
			Status:         &status,
			ScheduledStart: &newStart,
			ScheduledEnd:   &newEnd,
			AppendHistory: []HistoryEntry{{
				Timestamp: now,
				Action:    ActionRescheduled,
				ActorID:   actor,
				Note: fmt.Sprintf("moved from %s to %s",
					appt.ScheduledStart.Format(time.RFC3339), newStart.Format(time.RFC3339)),
			}},
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("reschedule appointment: %w", err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventRescheduled, updated, actor)
	return updated, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, action, event, actorID, note string, mutate func(*Patch, *Appointment)) (*Appointment, error) {
	appt, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !CanTransition(appt.Status, to) {
		return nil, invalidTransition(appt.Status, to)
	}

	now := s.now()
	actor := actorOrSystem(actorID)
	patch := Patch{
		ExpectedStatus: appt.Status,
		Status:         &to,
		AppendHistory: []HistoryEntry{{
			Timestamp: now,
			Action:    action,
			ActorID:   actor,
			Note:      note,
		}},
		UpdatedAt: now,
	}
	if mutate != nil {
		mutate(&patch, appt)
	}

	updated, err := s.store.Update(ctx, appt.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("%s appointment: %w", action, err)
	}

	s.publish(ctx, event, updated, actor)
	return updated, nil
}

func (s *Service) checkConflict(ctx context.Context, professionalID uuid.UUID, start, end time.Time, exclude uuid.UUID) error {
	existing, err := s.store.FindByProfessionalAndRange(ctx, professionalID, start, end)
	if err != nil {
		return fmt.Errorf("load professional agenda: %w", err)
	}
	if availability.HasConflict(professionalID, start, end, bookings(existing), exclude) {
		return ErrScheduleConflict
	}
	return nil
}

func (s *Service) publish(ctx context.Context, name string, appt *Appointment, actorID string) {
	s.log.WithFields(logrus.Fields{
		"event":           name,
		"appointment_id":  appt.ID,
		"professional_id": appt.ProfessionalID,
		"status":          appt.Status,
		"actor_id":        actorID,
	}).Info("appointment transition")

	s.publisher.Publish(ctx, name, Event{
		Name:        name,
		Appointment: appt.Clone(),
		ActorID:     actorID,
		OccurredAt:  s.now(),
	})
}

// SweepNoShows marks as no-show every open appointment of an active professional that
// ended more than the configured grace ago. It returns how many were marked.
func (s *Service) SweepNoShows(ctx context.Context) (int, error) {
	pros, err := s.directory.FindActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active professionals: %w", err)
	}

	cutoff := s.now().Add(-s.cfg.NoShowGrace)
	marked := 0

	for _, p := range pros {
		appts, err := s.store.FindByProfessionalAndRange(ctx, p.ID, cutoff.Add(-sweepLookback), cutoff)
		if err != nil {
			return marked, fmt.Errorf("load agenda of professional %s: %w", p.ID, err)
		}

		for _, a := range appts {
			if a.ScheduledEnd.After(cutoff) || !CanTransition(a.Status, StatusNoShow) {
				continue
			}
			if _, err := s.MarkNoShow(ctx, a.ID, SystemActor); err != nil {
				if errors.Is(err, ErrStatusChanged) {
					continue
				}
				s.log.WithError(err).WithField("appointment_id", a.ID).Warn("failed to mark appointment as no-show")
				continue
			}
			marked++
		}
	}

	return marked, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	appts, err := s.store.FindByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

// ListByProfessional returns the professional's appointments overlapping [from, to).
func (s *Service) ListByProfessional(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	if !to.After(from) {
		return nil, apperr.Validation("range end must be after range start")
	}
	appts, err := s.store.FindByProfessionalAndRange(ctx, professionalID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments by professional: %w", err)
	}
	return appts, nil
}

func (s *Service) List(ctx context.Context) ([]Appointment, error) {
	appts, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// Bookings exposes the professional's agenda to the availability calculator.
func (s *Service) Bookings(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]availability.Booking, error) {
	appts, err := s.store.FindByProfessionalAndRange(ctx, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	return bookings(appts), nil
}

func invalidTransition(from, to Status) error {
	return apperr.InvalidTransition(fmt.Sprintf("cannot move appointment from %s to %s", from, to))
}

func actorOrSystem(actorID string) string {
	if strings.TrimSpace(actorID) == "" {
		return SystemActor
	}
	return actorID
}
