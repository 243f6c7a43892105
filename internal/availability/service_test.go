package availability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/care-scheduling/internal/apperr"
	"github.com/hackgods/care-scheduling/internal/appointment"
	"github.com/hackgods/care-scheduling/internal/availability"
	"github.com/hackgods/care-scheduling/internal/config"
	"github.com/hackgods/care-scheduling/internal/professional"
	"github.com/hackgods/care-scheduling/internal/storage/memory"
)

var monday = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func pro(name string, start, end string) professional.Professional {
	return professional.Professional{
		ID:                          uuid.New(),
		Name:                        name,
		Specialty:                   professional.SpecialtyNutrition,
		WorkingHours:                []professional.WorkingHours{{Weekday: time.Monday, Start: start, End: end}},
		ConsultationDurationMinutes: 60,
		Status:                      professional.StatusActive,
	}
}

func setup(t *testing.T, pros ...professional.Professional) (*availability.Service, *appointment.Service) {
	t.Helper()
	log, _ := test.NewNullLogger()
	dir := memory.NewDirectory(pros...)
	appts := appointment.NewService(memory.NewAppointmentStore(), dir, nil, config.Config{MinReasonLength: 1}, log)
	return availability.NewService(dir, appts, time.UTC), appts
}

func book(t *testing.T, svc *appointment.Service, p professional.Professional, start time.Time) *appointment.Appointment {
	t.Helper()
	a, err := svc.Create(context.Background(), appointment.CreateInput{
		PatientID:      uuid.New(),
		PatientName:    "Luiza Prado",
		PatientPhone:   "+55 31 98888-7777",
		ProfessionalID: p.ID,
		ScheduledStart: start,
		Reason:         "diet review",
	})
	require.NoError(t, err)
	return a
}

func TestServiceSlotsExcludeBookedIntervals(t *testing.T) {
	p := pro("Bruna", "08:00", "12:00")
	svc, appts := setup(t, p)
	ctx := context.Background()

	booked := book(t, appts, p, monday.Add(9*time.Hour))

	got, err := svc.Slots(ctx, p.ID, monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, got.Duration)
	assert.Equal(t, []time.Time{
		monday.Add(8 * time.Hour),
		monday.Add(10 * time.Hour),
		monday.Add(11 * time.Hour),
	}, got.Slots)

	_, err = appts.Cancel(ctx, booked.ID, "patient asked", "desk-1")
	require.NoError(t, err)

	got, err = svc.Slots(ctx, p.ID, monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, got.Slots, 4, "cancelled bookings free the slot")
}

func TestServiceSlotsErrors(t *testing.T) {
	p := pro("Bruna", "08:00", "12:00")
	svc, _ := setup(t, p)
	ctx := context.Background()

	_, err := svc.Slots(ctx, uuid.New(), monday, monday.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Slots(ctx, p.ID, monday, monday)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Slots(ctx, p.ID, monday, monday.AddDate(0, 3, 0))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestNextAvailableOrdersByEarliestSlot(t *testing.T) {
	early := pro("Early", "07:00", "09:00")
	late := pro("Late", "13:00", "15:00")
	full := pro("Full", "08:00", "09:00")
	inactive := pro("Away", "06:00", "10:00")
	inactive.Status = professional.StatusOnLeave
	other := pro("Other", "06:00", "10:00")
	other.Specialty = professional.SpecialtyLegal

	svc, appts := setup(t, early, late, full, inactive, other)
	book(t, appts, full, monday.Add(8*time.Hour))
	book(t, appts, early, monday.Add(7*time.Hour))

	got, err := svc.NextAvailable(context.Background(), professional.SpecialtyNutrition, monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, early.ID, got[0].Professional.ID)
	assert.Equal(t, []time.Time{monday.Add(8 * time.Hour)}, got[0].Slots)
	assert.Equal(t, late.ID, got[1].Professional.ID)
	assert.Equal(t, []time.Time{monday.Add(13 * time.Hour)}, got[1].Slots)
}

func TestNextAvailableRejectsUnknownSpecialty(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.NextAvailable(context.Background(), "astrology", monday, monday.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type brokenBookings struct{}

func (brokenBookings) Bookings(context.Context, uuid.UUID, time.Time, time.Time) ([]availability.Booking, error) {
	return nil, errors.New("store unavailable")
}

func TestServiceSlotsPropagatesStoreFailure(t *testing.T) {
	p := pro("Bruna", "08:00", "12:00")
	svc := availability.NewService(memory.NewDirectory(p), brokenBookings{}, nil)

	_, err := svc.Slots(context.Background(), p.ID, monday, monday.AddDate(0, 0, 1))
	assert.Error(t, err)
}
