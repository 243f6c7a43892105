package tracking

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/care-scheduling/internal/appointment"
	"github.com/hackgods/care-scheduling/internal/intake"
	"github.com/hackgods/care-scheduling/internal/professional"
)

const objectiveFormat = "Follow-up started from the appointment of %s"

// ProjectOnConfirm derives the tracking record opened by a confirmed appointment. It
// reports false when the patient already has a live record with the professional.
// Specialized data is deep-copied; the record never aliases the appointment's intake.
func ProjectOnConfirm(appt appointment.Appointment, existing []Record, now time.Time) (Record, bool) {
	for _, r := range existing {
		if r.PatientID == appt.PatientID && r.ProfessionalID == appt.ProfessionalID && r.Status.Live() {
			return Record{}, false
		}
	}

	return Record{
		ID:                  uuid.New(),
		PatientID:           appt.PatientID,
		PatientName:         appt.PatientName,
		ProfessionalID:      appt.ProfessionalID,
		Specialty:           appt.Specialty,
		Status:              StatusActive,
		StartDate:           now,
		Objective:           fmt.Sprintf(objectiveFormat, appt.ScheduledStart.Format("2006-01-02")),
		OriginAppointmentID: appt.ID,
		Data:                project(appt.Specialty, appt.Intake),
		CreatedAt:           now,
		UpdatedAt:           now,
	}, true
}

func project(specialty professional.Specialty, in intake.Intake) SpecializedData {
	switch specialty {
	case professional.SpecialtyPhysiotherapy:
		if v, ok := in.(intake.Physiotherapy); ok {
			return PhysiotherapyData{PhysiotherapyAssessment: copyAssessment(v.Assessment)}
		}
	case professional.SpecialtyNutrition:
		if v, ok := in.(intake.Nutrition); ok {
			return projectNutrition(v)
		}
	case professional.SpecialtyPsychology:
		if v, ok := in.(intake.Psychology); ok {
			return PsychologyData{PsychologyAnamnesis: copyAnamnesis(v.Anamnesis)}
		}
	}
	return nil
}

func projectNutrition(n intake.Nutrition) NutritionData {
	return NutritionData{
		WeightKg:                 clonePtr(n.WeightKg),
		HeightCm:                 clonePtr(n.HeightCm),
		BMI:                      BMI(n.WeightKg, n.HeightCm),
		AbdominalCircumferenceCm: clonePtr(n.AbdominalCircumferenceCm),
		Goals:                    n.Goals,
		DietaryRestrictions:      slices.Clone(n.DietaryRestrictions),
		Supplementation:          n.Supplementation,
		PhysicalActivity:         n.PhysicalActivity,
		DietaryHistory:           n.DietaryHistory,
		LabExams:                 n.LabExams,
	}
}

// BMI is weight over height squared in kg/m², rounded to two decimals. Nil when either
// measurement is missing or not positive.
func BMI(weightKg, heightCm *float64) *float64 {
	if weightKg == nil || heightCm == nil || *weightKg <= 0 || *heightCm <= 0 {
		return nil
	}
	meters := decimal.NewFromFloat(*heightCm).Div(decimal.NewFromInt(100))
	bmi, _ := decimal.NewFromFloat(*weightKg).Div(meters.Mul(meters)).Round(2).Float64()
	return &bmi
}

func copyAssessment(a intake.PhysiotherapyAssessment) intake.PhysiotherapyAssessment {
	a.PainScale = clonePtr(a.PainScale)
	a.TherapeuticResources = slices.Clone(a.TherapeuticResources)
	return a
}

func copyAnamnesis(a intake.PsychologyAnamnesis) intake.PsychologyAnamnesis {
	a.Identification = clonePtr(a.Identification)
	a.PersonalHistory = clonePtr(a.PersonalHistory)
	a.ClinicalHistory = clonePtr(a.ClinicalHistory)
	a.EmotionalInventory = clonePtr(a.EmotionalInventory)
	a.Demands = slices.Clone(a.Demands)
	if a.FamilyHistory != nil {
		fh := *a.FamilyHistory
		fh.Parents = copyRelatives(fh.Parents)
		fh.Siblings = copyRelatives(fh.Siblings)
		fh.Children = copyRelatives(fh.Children)
		fh.Grandparents = copyRelatives(fh.Grandparents)
		a.FamilyHistory = &fh
	}
	return a
}

func copyRelatives(in []intake.Relative) []intake.Relative {
	out := slices.Clone(in)
	for i := range out {
		out[i].Age = clonePtr(out[i].Age)
		out[i].Alive = clonePtr(out[i].Alive)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
