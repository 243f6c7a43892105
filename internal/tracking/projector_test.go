package tracking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/care-scheduling/internal/appointment"
	"github.com/hackgods/care-scheduling/internal/intake"
	"github.com/hackgods/care-scheduling/internal/professional"
)

var now = time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

func confirmedAppointment(specialty professional.Specialty, in intake.Intake) appointment.Appointment {
	return appointment.Appointment{
		ID:             uuid.New(),
		PatientID:      uuid.New(),
		PatientName:    "Joana Lima",
		ProfessionalID: uuid.New(),
		Specialty:      specialty,
		ScheduledStart: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2025, time.March, 10, 9, 50, 0, 0, time.UTC),
		Status:         appointment.StatusConfirmed,
		Intake:         in,
	}
}

func ptr[T any](v T) *T { return &v }

func TestProjectPhysiotherapyCopiesAssessment(t *testing.T) {
	assessment := intake.PhysiotherapyAssessment{
		Habits:                "runs twice a week",
		CurrentMedicalHistory: "knee pain for 3 months",
		PastMedicalHistory:    "ACL reconstruction 2019",
		PersonalAntecedents:   "hypertension",
		FamilyAntecedents:     "arthritis",
		PriorTreatments:       "ice and rest",
		Presentation:          intake.PresentationFlags{Walking: true},
		ComplementaryExams:    "MRI",
		Medications:           "ibuprofen",
		Surgeries:             "knee",
		Inspection:            intake.InspectionFlags{Edema: true},
		Palpation:             intake.PalpationFlags{Pain: true},
		Semiology:             "pain on flexion",
		SpecificTests:         "Lachman negative",
		PainScale:             ptr(6),
		TreatmentGoals:        "return to running",
		TherapeuticResources:  []string{"TENS", "kinesiotherapy"},
		TreatmentPlan:         "2x week for 8 weeks",
	}
	appt := confirmedAppointment(professional.SpecialtyPhysiotherapy, intake.Physiotherapy{
		ChiefComplaint: "knee pain",
		ReferredBy:     "orthopedist",
		Assessment:     assessment,
	})

	rec, ok := ProjectOnConfirm(appt, nil, now)
	require.True(t, ok)

	assert.Equal(t, StatusActive, rec.Status)
	assert.Equal(t, professional.SpecialtyPhysiotherapy, rec.Specialty)
	assert.Equal(t, now, rec.StartDate)
	assert.Equal(t, appt.ID, rec.OriginAppointmentID)
	assert.Equal(t, "Follow-up started from the appointment of 2025-03-10", rec.Objective)

	data, ok := rec.Data.(PhysiotherapyData)
	require.True(t, ok, "got %T", rec.Data)
	assert.Equal(t, assessment, data.PhysiotherapyAssessment)

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "chief_complaint", "intake-only fields are not projected")
	assert.NotContains(t, string(raw), "referred_by")
}

func TestProjectedDataDoesNotAliasIntake(t *testing.T) {
	in := intake.Physiotherapy{Assessment: intake.PhysiotherapyAssessment{
		PainScale:            ptr(3),
		TherapeuticResources: []string{"TENS"},
	}}
	rec, ok := ProjectOnConfirm(confirmedAppointment(professional.SpecialtyPhysiotherapy, in), nil, now)
	require.True(t, ok)

	*in.Assessment.PainScale = 9
	in.Assessment.TherapeuticResources[0] = "laser"

	data := rec.Data.(PhysiotherapyData)
	assert.Equal(t, 3, *data.PainScale)
	assert.Equal(t, []string{"TENS"}, data.TherapeuticResources)
}

func TestProjectNutritionDerivesBMI(t *testing.T) {
	in := intake.Nutrition{
		ReferralReason:           "weight management",
		WeightKg:                 ptr(70.0),
		HeightCm:                 ptr(175.0),
		AbdominalCircumferenceCm: ptr(88.5),
		Goals:                    "lose 5kg",
		DietaryRestrictions:      []string{"lactose"},
		Supplementation:          "vitamin D",
		PhysicalActivity:         "walking",
		DietaryHistory:           "skips breakfast",
		LabExams:                 "glucose 98",
	}

	rec, ok := ProjectOnConfirm(confirmedAppointment(professional.SpecialtyNutrition, in), nil, now)
	require.True(t, ok)

	data, ok := rec.Data.(NutritionData)
	require.True(t, ok)
	require.NotNil(t, data.BMI)
	assert.Equal(t, 22.86, *data.BMI)
	assert.Equal(t, 70.0, *data.WeightKg)
	assert.Equal(t, 88.5, *data.AbdominalCircumferenceCm)
	assert.Equal(t, []string{"lactose"}, data.DietaryRestrictions)
	assert.Equal(t, "glucose 98", data.LabExams)
}

func TestBMIOmittedWithoutMeasurements(t *testing.T) {
	assert.Nil(t, BMI(nil, ptr(170.0)))
	assert.Nil(t, BMI(ptr(70.0), nil))
	assert.Nil(t, BMI(ptr(70.0), ptr(0.0)))

	rec, ok := ProjectOnConfirm(confirmedAppointment(professional.SpecialtyNutrition, intake.Nutrition{Goals: "eat better"}), nil, now)
	require.True(t, ok)
	raw, err := json.Marshal(rec.Data)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "bmi")
	assert.NotContains(t, string(raw), "weight_kg")
}

func TestProjectPsychologyKeepsAbsentFieldsAbsent(t *testing.T) {
	in := intake.Psychology{
		PreferredApproach: "CBT",
		Anamnesis: intake.PsychologyAnamnesis{
			ChiefComplaint: "anxiety at work",
			FamilyHistory: &intake.FamilyHistory{
				Parents: []intake.Relative{{Name: "Maria", Relationship: "mother", Age: ptr(61)}},
			},
			Demands: []string{"individual therapy"},
		},
	}

	rec, ok := ProjectOnConfirm(confirmedAppointment(professional.SpecialtyPsychology, in), nil, now)
	require.True(t, ok)

	data, ok := rec.Data.(PsychologyData)
	require.True(t, ok)
	assert.Equal(t, in.Anamnesis, data.PsychologyAnamnesis)
	assert.Nil(t, data.Identification)
	assert.Nil(t, data.ClinicalHistory)

	*in.Anamnesis.FamilyHistory.Parents[0].Age = 99
	assert.Equal(t, 61, *data.FamilyHistory.Parents[0].Age)

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "identification")
	assert.NotContains(t, string(raw), "school_history")
	assert.NotContains(t, string(raw), "preferred_approach")
}

func TestProjectWithoutSpecializedData(t *testing.T) {
	for _, tc := range []struct {
		name      string
		specialty professional.Specialty
		in        intake.Intake
	}{
		{"social", professional.SpecialtySocial, nil},
		{"legal", professional.SpecialtyLegal, nil},
		{"medical", professional.SpecialtyMedical, nil},
		{"physiotherapy without intake", professional.SpecialtyPhysiotherapy, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec, ok := ProjectOnConfirm(confirmedAppointment(tc.specialty, tc.in), nil, now)
			require.True(t, ok)
			assert.Nil(t, rec.Data)
			assert.Equal(t, tc.specialty, rec.Specialty)
		})
	}
}

func TestProjectIsNoOpForLivePairing(t *testing.T) {
	appt := confirmedAppointment(professional.SpecialtySocial, nil)

	for _, status := range []Status{StatusActive, StatusPaused} {
		existing := []Record{{ID: uuid.New(), PatientID: appt.PatientID, ProfessionalID: appt.ProfessionalID, Status: status}}
		_, ok := ProjectOnConfirm(appt, existing, now)
		assert.False(t, ok, "status %s blocks a new record", status)
	}

	closed := []Record{{ID: uuid.New(), PatientID: appt.PatientID, ProfessionalID: appt.ProfessionalID, Status: StatusClosed}}
	_, ok := ProjectOnConfirm(appt, closed, now)
	assert.True(t, ok, "a closed record frees the pairing")

	otherPro := []Record{{ID: uuid.New(), PatientID: appt.PatientID, ProfessionalID: uuid.New(), Status: StatusActive}}
	_, ok = ProjectOnConfirm(appt, otherPro, now)
	assert.True(t, ok)
}

func TestSpecializedDataEnvelope(t *testing.T) {
	in := NutritionData{WeightKg: ptr(80.0), HeightCm: ptr(180.0), BMI: ptr(24.69)}

	raw, err := MarshalData(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"specialty":"nutrition"`)

	out, err := UnmarshalData(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	none, err := UnmarshalData(nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = UnmarshalData([]byte(`{"specialty":"legal","data":{}}`))
	assert.Error(t, err)
}
