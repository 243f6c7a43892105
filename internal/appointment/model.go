package appointment

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/care-scheduling/internal/availability"
	"github.com/hackgods/care-scheduling/internal/intake"
	"github.com/hackgods/care-scheduling/internal/professional"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusConfirmed   Status = "confirmed"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
)

var transitions = map[Status][]Status{
	StatusScheduled:   {StatusConfirmed, StatusCancelled, StatusNoShow, StatusRescheduled},
	StatusRescheduled: {StatusConfirmed, StatusCancelled, StatusNoShow, StatusRescheduled},
	StatusConfirmed:   {StatusInProgress, StatusCancelled, StatusNoShow, StatusRescheduled},
	StatusInProgress:  {StatusCompleted},
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Terminal statuses admit no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Blocking reports whether an appointment in this status occupies the professional's agenda.
func (s Status) Blocking() bool {
	return !s.Terminal()
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusRescheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Modality string

const (
	ModalityInPerson Modality = "in_person"
	ModalityRemote   Modality = "remote"
)

// History actions.
const (
	ActionCreated     = "created"
	ActionConfirmed   = "confirmed"
	ActionCancelled   = "cancelled"
	ActionRescheduled = "rescheduled"
	ActionStarted     = "started"
	ActionCompleted   = "completed"
	ActionNoShow      = "no_show"
)

// SystemActor identifies transitions not performed by a person.
const SystemActor = "system"

type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id"`
	Note      string    `json:"note,omitempty"`
}

type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	PatientName        string
	PatientPhone       string
	ProfessionalID     uuid.UUID
	Specialty          professional.Specialty
	ScheduledStart     time.Time
	ScheduledEnd       time.Time
	Status             Status
	Priority           Priority
	Modality           Modality
	Reason             string
	Price              decimal.Decimal
	Discount           decimal.Decimal
	ConsultationNotes  string
	CancellationReason string
	History            []HistoryEntry
	Intake             intake.Intake
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FinalPrice is the amount charged after the discount.
func (a Appointment) FinalPrice() decimal.Decimal {
	return a.Price.Sub(a.Discount)
}

func (a Appointment) Duration() time.Duration {
	return a.ScheduledEnd.Sub(a.ScheduledStart)
}

// Booking is the calendar footprint of the appointment.
func (a Appointment) Booking() availability.Booking {
	return availability.Booking{
		ID:             a.ID,
		ProfessionalID: a.ProfessionalID,
		Start:          a.ScheduledStart,
		End:            a.ScheduledEnd,
		Active:         a.Status.Blocking(),
	}
}

// Clone returns a copy that shares no history backing array with a.
func (a Appointment) Clone() Appointment {
	a.History = slices.Clone(a.History)
	return a
}

func bookings(appts []Appointment) []availability.Booking {
	out := make([]availability.Booking, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.Booking())
	}
	return out
}
