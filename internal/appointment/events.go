package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Domain event names, published after the write they describe.
const (
	EventCreated     = "appointment.created"
	EventConfirmed   = "appointment.confirmed"
	EventCancelled   = "appointment.cancelled"
	EventRescheduled = "appointment.rescheduled"
	EventStarted     = "appointment.started"
	EventCompleted   = "appointment.completed"
	EventNoShow      = "appointment.no_show"
)

// Event carries the appointment as stored after the transition.
type Event struct {
	Name        string
	Appointment Appointment
	ActorID     string
	OccurredAt  time.Time
}

// Publisher hands events to post-commit consumers without waiting for them.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, Event) {}

// Notifier delivers appointment notifications. Failures never reach the lifecycle caller.
type Notifier interface {
	Notify(ctx context.Context, event string, payload Notification) error
}

// Notification is the payload handed to a Notifier.
type Notification struct {
	Event          string    `json:"event"`
	AppointmentID  uuid.UUID `json:"appointment_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	PatientName    string    `json:"patient_name"`
	PatientPhone   string    `json:"patient_phone"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Specialty      string    `json:"specialty"`
	Status         Status    `json:"status"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	Modality       Modality  `json:"modality"`
	ActorID        string    `json:"actor_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func NewNotification(ev Event) Notification {
	a := ev.Appointment
	return Notification{
		Event:          ev.Name,
		AppointmentID:  a.ID,
		PatientID:      a.PatientID,
		PatientName:    a.PatientName,
		PatientPhone:   a.PatientPhone,
		ProfessionalID: a.ProfessionalID,
		Specialty:      string(a.Specialty),
		Status:         a.Status,
		ScheduledStart: a.ScheduledStart,
		ScheduledEnd:   a.ScheduledEnd,
		Modality:       a.Modality,
		ActorID:        ev.ActorID,
		OccurredAt:     ev.OccurredAt,
	}
}

// NotifyHandler adapts a Notifier into an event consumer.
func NotifyHandler(n Notifier) func(ctx context.Context, ev Event) error {
	return func(ctx context.Context, ev Event) error {
		return n.Notify(ctx, ev.Name, NewNotification(ev))
	}
}
