package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/appointment"
)

type AppointmentStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]appointment.Appointment
}

func NewAppointmentStore() *AppointmentStore {
	return &AppointmentStore{items: make(map[uuid.UUID]appointment.Appointment)}
}

func (s *AppointmentStore) Create(_ context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.items[a.ID] = a.Clone()

	c := a.Clone()
	return &c, nil
}

func (s *AppointmentStore) Update(_ context.Context, id uuid.UUID, p appointment.Patch) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if cur.Status != p.ExpectedStatus {
		return nil, appointment.ErrStatusChanged
	}

	next := p.Apply(cur)
	s.items[id] = next

	c := next.Clone()
	return &c, nil
}

func (s *AppointmentStore) FindByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	c := a.Clone()
	return &c, nil
}

func (s *AppointmentStore) FindByProfessionalAndRange(_ context.Context, professionalID uuid.UUID, start, end time.Time) ([]appointment.Appointment, error) {
	return s.filter(func(a appointment.Appointment) bool {
		return a.ProfessionalID == professionalID && a.ScheduledStart.Before(end) && a.ScheduledEnd.After(start)
	}), nil
}

func (s *AppointmentStore) FindByPatient(_ context.Context, patientID uuid.UUID) ([]appointment.Appointment, error) {
	return s.filter(func(a appointment.Appointment) bool { return a.PatientID == patientID }), nil
}

func (s *AppointmentStore) FindAll(_ context.Context) ([]appointment.Appointment, error) {
	return s.filter(func(appointment.Appointment) bool { return true }), nil
}

func (s *AppointmentStore) filter(keep func(appointment.Appointment) bool) []appointment.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []appointment.Appointment
	for _, a := range s.items {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledStart.Equal(out[j].ScheduledStart) {
			return out[i].ScheduledStart.Before(out[j].ScheduledStart)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
