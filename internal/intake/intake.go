// Package intake holds the specialty-specific clinical data captured at booking time.
//
// Intake is a closed sum type: only the variants declared here implement it, and each
// variant carries the fields of exactly one specialty.
package intake

import (
	"encoding/json"
	"fmt"

	"github.com/hackgods/care-scheduling/internal/professional"
)

type Intake interface {
	Specialty() professional.Specialty
	isIntake()
}

func (Physiotherapy) Specialty() professional.Specialty { return professional.SpecialtyPhysiotherapy }
func (Nutrition) Specialty() professional.Specialty     { return professional.SpecialtyNutrition }
func (Psychology) Specialty() professional.Specialty    { return professional.SpecialtyPsychology }

func (Physiotherapy) isIntake() {}
func (Nutrition) isIntake()     {}
func (Psychology) isIntake()    {}

// Physiotherapy is the physiotherapy booking form.
type Physiotherapy struct {
	ChiefComplaint string                  `json:"chief_complaint,omitempty"`
	ReferredBy     string                  `json:"referred_by,omitempty"`
	Assessment     PhysiotherapyAssessment `json:"assessment"`
}

// PhysiotherapyAssessment is the part of the form carried into the tracking record.
type PhysiotherapyAssessment struct {
	Habits                string            `json:"habits,omitempty"`
	CurrentMedicalHistory string            `json:"current_medical_history,omitempty"`
	PastMedicalHistory    string            `json:"past_medical_history,omitempty"`
	PersonalAntecedents   string            `json:"personal_antecedents,omitempty"`
	FamilyAntecedents     string            `json:"family_antecedents,omitempty"`
	PriorTreatments       string            `json:"prior_treatments,omitempty"`
	Presentation          PresentationFlags `json:"presentation"`
	ComplementaryExams    string            `json:"complementary_exams,omitempty"`
	Medications           string            `json:"medications,omitempty"`
	Surgeries             string            `json:"surgeries,omitempty"`
	Inspection            InspectionFlags   `json:"inspection"`
	Palpation             PalpationFlags    `json:"palpation"`
	Semiology             string            `json:"semiology,omitempty"`
	SpecificTests         string            `json:"specific_tests,omitempty"`
	PainScale             *int              `json:"pain_scale,omitempty" validate:"omitempty,gte=0,lte=10"`
	TreatmentGoals        string            `json:"treatment_goals,omitempty"`
	TherapeuticResources  []string          `json:"therapeutic_resources,omitempty"`
	TreatmentPlan         string            `json:"treatment_plan,omitempty"`
}

// PresentationFlags records how the patient arrived.
type PresentationFlags struct {
	Walking      bool `json:"walking"`
	Assisted     bool `json:"assisted"`
	Wheelchair   bool `json:"wheelchair"`
	Bedridden    bool `json:"bedridden"`
	Hospitalized bool `json:"hospitalized"`
}

type InspectionFlags struct {
	Edema     bool `json:"edema"`
	Scars     bool `json:"scars"`
	Deformity bool `json:"deformity"`
	Atrophy   bool `json:"atrophy"`
	Bruising  bool `json:"bruising"`
	Redness   bool `json:"redness"`
}

type PalpationFlags struct {
	Pain     bool `json:"pain"`
	Heat     bool `json:"heat"`
	Tension  bool `json:"tension"`
	Nodules  bool `json:"nodules"`
	Crepitus bool `json:"crepitus"`
	Spasm    bool `json:"spasm"`
}

// Nutrition is the nutrition booking form. Measurements are optional.
type Nutrition struct {
	ReferralReason           string   `json:"referral_reason,omitempty"`
	WeightKg                 *float64 `json:"weight_kg,omitempty" validate:"omitempty,gt=0,lt=700"`
	HeightCm                 *float64 `json:"height_cm,omitempty" validate:"omitempty,gt=0,lt=300"`
	AbdominalCircumferenceCm *float64 `json:"abdominal_circumference_cm,omitempty" validate:"omitempty,gt=0"`
	Goals                    string   `json:"goals,omitempty"`
	DietaryRestrictions      []string `json:"dietary_restrictions,omitempty"`
	Supplementation          string   `json:"supplementation,omitempty"`
	PhysicalActivity         string   `json:"physical_activity,omitempty"`
	DietaryHistory           string   `json:"dietary_history,omitempty"`
	LabExams                 string   `json:"lab_exams,omitempty"`
}

// Psychology is the psychology booking form.
type Psychology struct {
	PreferredApproach string              `json:"preferred_approach,omitempty"`
	Anamnesis         PsychologyAnamnesis `json:"anamnesis"`
}

// PsychologyAnamnesis is carried whole into the tracking record. Absent sections stay nil.
type PsychologyAnamnesis struct {
	Identification      *Identification     `json:"identification,omitempty"`
	PersonalHistory     *PersonalHistory    `json:"personal_history,omitempty"`
	FamilyHistory       *FamilyHistory      `json:"family_history,omitempty"`
	SchoolHistory       string              `json:"school_history,omitempty"`
	WorkHistory         string              `json:"work_history,omitempty"`
	SocialHistory       string              `json:"social_history,omitempty"`
	ResidentialHistory  string              `json:"residential_history,omitempty"`
	ClinicalHistory     *ClinicalHistory    `json:"clinical_history,omitempty"`
	EmotionalInventory  *EmotionalInventory `json:"emotional_inventory,omitempty"`
	ChiefComplaint      string              `json:"chief_complaint,omitempty"`
	SecondaryComplaint  string              `json:"secondary_complaint,omitempty"`
	Classification      string              `json:"classification,omitempty"`
	Demands             []string            `json:"demands,omitempty"`
	DemandJustification string              `json:"demand_justification,omitempty"`
}

type Identification struct {
	FullName      string `json:"full_name,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"`
	Gender        string `json:"gender,omitempty"`
	MaritalStatus string `json:"marital_status,omitempty"`
	Education     string `json:"education,omitempty"`
	Occupation    string `json:"occupation,omitempty"`
	Religion      string `json:"religion,omitempty"`
	Address       string `json:"address,omitempty"`
}

type PersonalHistory struct {
	Pregnancy   string `json:"pregnancy,omitempty"`
	Birth       string `json:"birth,omitempty"`
	Development string `json:"development,omitempty"`
	Childhood   string `json:"childhood,omitempty"`
	Adolescence string `json:"adolescence,omitempty"`
	AdultLife   string `json:"adult_life,omitempty"`
}

type FamilyHistory struct {
	Parents      []Relative `json:"parents,omitempty"`
	Siblings     []Relative `json:"siblings,omitempty"`
	Children     []Relative `json:"children,omitempty"`
	Grandparents []Relative `json:"grandparents,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

type Relative struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Age          *int   `json:"age,omitempty"`
	Occupation   string `json:"occupation,omitempty"`
	Alive        *bool  `json:"alive,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type ClinicalHistory struct {
	Diseases           string `json:"diseases,omitempty"`
	Medications        string `json:"medications,omitempty"`
	Hospitalizations   string `json:"hospitalizations,omitempty"`
	PsychiatricHistory string `json:"psychiatric_history,omitempty"`
	SubstanceUse       string `json:"substance_use,omitempty"`
}

type EmotionalInventory struct {
	Mood         string `json:"mood,omitempty"`
	Anxiety      string `json:"anxiety,omitempty"`
	Sleep        string `json:"sleep,omitempty"`
	Appetite     string `json:"appetite,omitempty"`
	Sexuality    string `json:"sexuality,omitempty"`
	SelfHarmRisk string `json:"self_harm_risk,omitempty"`
	Other        string `json:"other,omitempty"`
}

// envelope is the stored and transported form of an Intake.
type envelope struct {
	Specialty professional.Specialty `json:"specialty"`
	Data      json.RawMessage        `json:"data"`
}

// Marshal encodes in with its specialty tag. A nil intake encodes as nil.
func Marshal(in Intake) ([]byte, error) {
	if in == nil {
		return nil, nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode %s intake: %w", in.Specialty(), err)
	}
	return json.Marshal(envelope{Specialty: in.Specialty(), Data: data})
}

// Unmarshal decodes a tagged intake. Empty input or JSON null yields a nil intake.
func Unmarshal(b []byte) (Intake, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode intake envelope: %w", err)
	}
	return Decode(env.Specialty, env.Data)
}

// Decode builds the variant for specialty from its raw JSON body.
func Decode(specialty professional.Specialty, data []byte) (Intake, error) {
	var (
		in  Intake
		err error
	)
	switch specialty {
	case professional.SpecialtyPhysiotherapy:
		var v Physiotherapy
		err = json.Unmarshal(data, &v)
		in = v
	case professional.SpecialtyNutrition:
		var v Nutrition
		err = json.Unmarshal(data, &v)
		in = v
	case professional.SpecialtyPsychology:
		var v Psychology
		err = json.Unmarshal(data, &v)
		in = v
	default:
		return nil, fmt.Errorf("no intake form for specialty %q", specialty)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s intake: %w", specialty, err)
	}
	return in, nil
}
