// Package memory holds map-backed implementations of the storage ports, used by the
// memory storage driver and by tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/professional"
)

type Directory struct {
	mu   sync.RWMutex
	pros map[uuid.UUID]professional.Professional
}

func NewDirectory(pros ...professional.Professional) *Directory {
	d := &Directory{pros: make(map[uuid.UUID]professional.Professional)}
	for _, p := range pros {
		d.pros[p.ID] = cloneProfessional(p)
	}
	return d
}

// Save inserts or replaces a professional.
func (d *Directory) Save(_ context.Context, p professional.Professional) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pros[p.ID] = cloneProfessional(p)
	return nil
}

func (d *Directory) FindByID(_ context.Context, id uuid.UUID) (*professional.Professional, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.pros[id]
	if !ok {
		return nil, professional.ErrProfessionalNotFound
	}
	c := cloneProfessional(p)
	return &c, nil
}

func (d *Directory) FindBySpecialty(_ context.Context, specialty professional.Specialty) ([]professional.Professional, error) {
	return d.filter(func(p professional.Professional) bool { return p.Specialty == specialty }), nil
}

func (d *Directory) FindActive(_ context.Context) ([]professional.Professional, error) {
	return d.filter(professional.Professional.IsActive), nil
}

func (d *Directory) filter(keep func(professional.Professional) bool) []professional.Professional {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []professional.Professional
	for _, p := range d.pros {
		if keep(p) {
			out = append(out, cloneProfessional(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func cloneProfessional(p professional.Professional) professional.Professional {
	p.WorkingHours = slices.Clone(p.WorkingHours)
	return p
}
