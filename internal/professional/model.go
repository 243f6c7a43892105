package professional

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Specialty string

const (
	SpecialtyPsychology    Specialty = "psychology"
	SpecialtySocial        Specialty = "social"
	SpecialtyLegal         Specialty = "legal"
	SpecialtyMedical       Specialty = "medical"
	SpecialtyPhysiotherapy Specialty = "physiotherapy"
	SpecialtyNutrition     Specialty = "nutrition"
)

var Specialties = []Specialty{
	SpecialtyPsychology,
	SpecialtySocial,
	SpecialtyLegal,
	SpecialtyMedical,
	SpecialtyPhysiotherapy,
	SpecialtyNutrition,
}

func (s Specialty) Valid() bool {
	for _, v := range Specialties {
		if s == v {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusOnLeave   Status = "on_leave"
	StatusSuspended Status = "suspended"
)

// WorkingHours is one weekly window. Start and End are "HH:MM" in the clinic timezone.
type WorkingHours struct {
	Weekday time.Weekday `json:"weekday"`
	Start   string       `json:"start"`
	End     string       `json:"end"`
}

// Minutes returns the window bounds as minutes from midnight.
func (w WorkingHours) Minutes() (start, end int, err error) {
	start, err = ParseClock(w.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err = ParseClock(w.End)
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("window %s-%s ends before it starts", w.Start, w.End)
	}
	return start, end, nil
}

// ParseClock parses "HH:MM" into minutes from midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q, use HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

type Professional struct {
	ID                          uuid.UUID
	Name                        string
	Specialty                   Specialty
	WorkingHours                []WorkingHours
	ConsultationDurationMinutes int
	Status                      Status
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

func (p Professional) IsActive() bool {
	return p.Status == StatusActive
}
