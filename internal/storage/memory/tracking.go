package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/tracking"
)

// TrackingStore enforces the one-live-record-per-pairing rule on writes.
type TrackingStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]tracking.Record
}

func NewTrackingStore() *TrackingStore {
	return &TrackingStore{items: make(map[uuid.UUID]tracking.Record)}
}

func (s *TrackingStore) FindByPatient(_ context.Context, patientID uuid.UUID) ([]tracking.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []tracking.Record
	for _, r := range s.items {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (s *TrackingStore) Create(_ context.Context, r tracking.Record) (*tracking.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Status.Live() && s.hasLive(r.PatientID, r.ProfessionalID, uuid.Nil) {
		return nil, tracking.ErrLiveRecordExists
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.items[r.ID] = r
	return &r, nil
}

func (s *TrackingStore) FindByID(_ context.Context, id uuid.UUID) (*tracking.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.items[id]
	if !ok {
		return nil, tracking.ErrRecordNotFound
	}
	return &r, nil
}

func (s *TrackingStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to tracking.Status, at time.Time) (*tracking.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[id]
	if !ok {
		return nil, tracking.ErrRecordNotFound
	}
	if r.Status != from {
		return nil, tracking.ErrRecordStatusChange
	}
	if to.Live() && !from.Live() && s.hasLive(r.PatientID, r.ProfessionalID, r.ID) {
		return nil, tracking.ErrLiveRecordExists
	}

	r.Status = to
	r.UpdatedAt = at
	s.items[id] = r
	return &r, nil
}

func (s *TrackingStore) hasLive(patientID, professionalID, exclude uuid.UUID) bool {
	for _, r := range s.items {
		if r.ID != exclude && r.PatientID == patientID && r.ProfessionalID == professionalID && r.Status.Live() {
			return true
		}
	}
	return false
}
