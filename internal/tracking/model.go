// Package tracking keeps the longitudinal record of a patient's follow-up with one
// professional, opened from the first confirmed appointment of the pairing.
package tracking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/intake"
	"github.com/hackgods/care-scheduling/internal/professional"
)

type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusClosed Status = "closed"
)

// Live records hold the pairing; at most one may exist per patient and professional.
func (s Status) Live() bool {
	return s == StatusActive || s == StatusPaused
}

type Record struct {
	ID                  uuid.UUID
	PatientID           uuid.UUID
	PatientName         string
	ProfessionalID      uuid.UUID
	Specialty           professional.Specialty
	Status              Status
	StartDate           time.Time
	Objective           string
	OriginAppointmentID uuid.UUID
	Data                SpecializedData
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SpecializedData is the specialty-specific part of a record. Only the variants in this
// package implement it.
type SpecializedData interface {
	Specialty() professional.Specialty
	isSpecializedData()
}

func (PhysiotherapyData) Specialty() professional.Specialty {
	return professional.SpecialtyPhysiotherapy
}
func (NutritionData) Specialty() professional.Specialty  { return professional.SpecialtyNutrition }
func (PsychologyData) Specialty() professional.Specialty { return professional.SpecialtyPsychology }

func (PhysiotherapyData) isSpecializedData() {}
func (NutritionData) isSpecializedData()     {}
func (PsychologyData) isSpecializedData()    {}

type PhysiotherapyData struct {
	intake.PhysiotherapyAssessment
}

type NutritionData struct {
	WeightKg                 *float64 `json:"weight_kg,omitempty"`
	HeightCm                 *float64 `json:"height_cm,omitempty"`
	BMI                      *float64 `json:"bmi,omitempty"`
	AbdominalCircumferenceCm *float64 `json:"abdominal_circumference_cm,omitempty"`
	Goals                    string   `json:"goals,omitempty"`
	DietaryRestrictions      []string `json:"dietary_restrictions,omitempty"`
	Supplementation          string   `json:"supplementation,omitempty"`
	PhysicalActivity         string   `json:"physical_activity,omitempty"`
	DietaryHistory           string   `json:"dietary_history,omitempty"`
	LabExams                 string   `json:"lab_exams,omitempty"`
}

type PsychologyData struct {
	intake.PsychologyAnamnesis
}

type dataEnvelope struct {
	Specialty professional.Specialty `json:"specialty"`
	Data      json.RawMessage        `json:"data"`
}

// MarshalData encodes d with its specialty tag. Nil data encodes as nil.
func MarshalData(d SpecializedData) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	body, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", d.Specialty(), err)
	}
	return json.Marshal(dataEnvelope{Specialty: d.Specialty(), Data: body})
}

// UnmarshalData decodes a tagged payload written by MarshalData.
func UnmarshalData(b []byte) (SpecializedData, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}

	var env dataEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode data envelope: %w", err)
	}

	var (
		d   SpecializedData
		err error
	)
	switch env.Specialty {
	case professional.SpecialtyPhysiotherapy:
		var v PhysiotherapyData
		err = json.Unmarshal(env.Data, &v)
		d = v
	case professional.SpecialtyNutrition:
		var v NutritionData
		err = json.Unmarshal(env.Data, &v)
		d = v
	case professional.SpecialtyPsychology:
		var v PsychologyData
		err = json.Unmarshal(env.Data, &v)
		d = v
	default:
		return nil, fmt.Errorf("no specialized data for specialty %q", env.Specialty)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s data: %w", env.Specialty, err)
	}
	return d, nil
}
