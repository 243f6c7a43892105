package appointment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/care-scheduling/internal/apperr"
	"github.com/hackgods/care-scheduling/internal/appointment"
	"github.com/hackgods/care-scheduling/internal/config"
	"github.com/hackgods/care-scheduling/internal/events"
	"github.com/hackgods/care-scheduling/internal/intake"
	"github.com/hackgods/care-scheduling/internal/professional"
	"github.com/hackgods/care-scheduling/internal/storage/memory"
	"github.com/hackgods/care-scheduling/internal/tracking"
)

// 2025-03-03 is a Monday.
var monday = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type harness struct {
	svc        *appointment.Service
	store      *memory.AppointmentStore
	pro        professional.Professional
	dispatcher *events.Dispatcher[appointment.Event]
	log        *logrus.Logger
	hook       *test.Hook
}

func newHarness(t *testing.T, opts ...appointment.Option) *harness {
	t.Helper()

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	pro := professional.Professional{
		ID:                          uuid.New(),
		Name:                        "Dr. Carla Mendes",
		Specialty:                   professional.SpecialtyPhysiotherapy,
		WorkingHours:                []professional.WorkingHours{{Weekday: time.Monday, Start: "08:00", End: "18:00"}},
		ConsultationDurationMinutes: 50,
		Status:                      professional.StatusActive,
	}
	store := memory.NewAppointmentStore()
	dispatcher := events.NewDispatcher[appointment.Event](log, time.Second)
	cfg := config.Config{MinReasonLength: 10, NoShowGrace: 2 * time.Hour}

	svc := appointment.NewService(store, memory.NewDirectory(pro), dispatcher, cfg, log, opts...)

	return &harness{svc: svc, store: store, pro: pro, dispatcher: dispatcher, log: log, hook: hook}
}

func (h *harness) input(start, end time.Time) appointment.CreateInput {
	return appointment.CreateInput{
		PatientID:      uuid.New(),
		PatientName:    gofakeit.Name(),
		PatientPhone:   "+55 11 98765-4321",
		ProfessionalID: h.pro.ID,
		ScheduledStart: start,
		ScheduledEnd:   end,
		Reason:         "persistent lower back pain after lifting",
		Price:          decimal.NewFromInt(120),
		Discount:       decimal.NewFromInt(20),
	}
}

func (h *harness) book(t *testing.T, start, end time.Time) *appointment.Appointment {
	t.Helper()
	a, err := h.svc.Create(context.Background(), h.input(start, end))
	require.NoError(t, err)
	return a
}

func TestCreateRejectsOverlapAndAcceptsAbutting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.book(t, at(10, 0), at(11, 0))

	_, err := h.svc.Create(ctx, h.input(at(10, 30), at(11, 30)))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.ErrorIs(t, err, appointment.ErrScheduleConflict)

	all, err := h.store.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "a rejected booking writes nothing")

	next, err := h.svc.Create(ctx, h.input(at(11, 0), at(12, 0)))
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, next.Status)
}

func TestCreateSetsDefaultsAndHistory(t *testing.T) {
	h := newHarness(t)

	a := h.book(t, at(9, 0), time.Time{})

	assert.Equal(t, at(9, 50), a.ScheduledEnd, "zero end takes the consultation duration")
	assert.Equal(t, appointment.PriorityNormal, a.Priority)
	assert.Equal(t, appointment.ModalityInPerson, a.Modality)
	assert.Equal(t, professional.SpecialtyPhysiotherapy, a.Specialty)
	assert.True(t, decimal.NewFromInt(100).Equal(a.FinalPrice()))
	require.Len(t, a.History, 1)
	assert.Equal(t, appointment.ActionCreated, a.History[0].Action)
	assert.Equal(t, appointment.SystemActor, a.History[0].ActorID)
}

func TestCreateIgnoresInactiveBookings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.book(t, at(10, 0), at(11, 0))
	_, err := h.svc.Cancel(ctx, first.ID, "patient travelling", "desk-1")
	require.NoError(t, err)

	_, err = h.svc.Create(ctx, h.input(at(10, 0), at(11, 0)))
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*appointment.CreateInput)
		field  string
	}{
		{"empty patient name", func(in *appointment.CreateInput) { in.PatientName = "   " }, "patient_name"},
		{"missing phone", func(in *appointment.CreateInput) { in.PatientPhone = "" }, "patient_phone"},
		{"missing professional", func(in *appointment.CreateInput) { in.ProfessionalID = uuid.Nil }, "professional_id"},
		{"short reason", func(in *appointment.CreateInput) { in.Reason = "pain" }, "reason"},
		{"end before start", func(in *appointment.CreateInput) { in.ScheduledEnd = at(9, 0) }, "scheduled_end"},
		{"end equals start", func(in *appointment.CreateInput) { in.ScheduledEnd = in.ScheduledStart }, "scheduled_end"},
		{"discount above price", func(in *appointment.CreateInput) { in.Discount = decimal.NewFromInt(500) }, "discount"},
		{"bad modality", func(in *appointment.CreateInput) { in.Modality = "carrier-pigeon" }, "modality"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := h.input(at(10, 0), at(11, 0))
			tc.mutate(&in)

			_, err := h.svc.Create(ctx, in)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Contains(t, apperr.FieldsOf(err), tc.field)
		})
	}
}

func TestCreateRejectsOutOfRangePainScale(t *testing.T) {
	h := newHarness(t)
	pain := 11
	in := h.input(at(10, 0), at(11, 0))
	in.Intake = intake.Physiotherapy{Assessment: intake.PhysiotherapyAssessment{PainScale: &pain}}

	_, err := h.svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateRejectsIntakeOfAnotherSpecialty(t *testing.T) {
	h := newHarness(t)
	in := h.input(at(10, 0), at(11, 0))
	in.Intake = intake.Nutrition{Goals: "lose weight"}

	_, err := h.svc.Create(context.Background(), in)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.FieldsOf(err), "intake")
}

func TestCreateUnknownOrInactiveProfessional(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := h.input(at(10, 0), at(11, 0))
	in.ProfessionalID = uuid.New()
	_, err := h.svc.Create(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, err, professional.ErrProfessionalNotFound)

	onLeave := professional.Professional{ID: uuid.New(), Specialty: professional.SpecialtyLegal, Status: professional.StatusOnLeave}
	log, _ := test.NewNullLogger()
	svc := appointment.NewService(memory.NewAppointmentStore(), memory.NewDirectory(onLeave), nil, config.Config{}, log)
	in.ProfessionalID = onLeave.ID
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLifecycleHappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.book(t, at(10, 0), at(11, 0))

	a, err := h.svc.Confirm(ctx, a.ID, "desk-1")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, a.Status)

	a, err = h.svc.StartConsultation(ctx, a.ID, "pro-1")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusInProgress, a.Status)

	a, err = h.svc.CompleteConsultation(ctx, a.ID, "good progress, keep exercises", "pro-1")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCompleted, a.Status)
	assert.Equal(t, "good progress, keep exercises", a.ConsultationNotes)

	actions := make([]string, 0, len(a.History))
	for _, e := range a.History {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{
		appointment.ActionCreated,
		appointment.ActionConfirmed,
		appointment.ActionStarted,
		appointment.ActionCompleted,
	}, actions)
}

func TestScheduledToCompletedIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.book(t, at(10, 0), at(11, 0))

	_, err := h.svc.CompleteConsultation(ctx, a.ID, "", "pro-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	stored, err := h.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, stored.Status)
	assert.Len(t, stored.History, 1)
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cancelled := h.book(t, at(8, 0), at(9, 0))
	_, err := h.svc.Cancel(ctx, cancelled.ID, "patient asked", "desk-1")
	require.NoError(t, err)

	noShow := h.book(t, at(9, 0), at(10, 0))
	_, err = h.svc.MarkNoShow(ctx, noShow.ID, "desk-1")
	require.NoError(t, err)

	for _, id := range []uuid.UUID{cancelled.ID, noShow.ID} {
		_, err = h.svc.Confirm(ctx, id, "desk-1")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
		_, err = h.svc.Cancel(ctx, id, "again", "desk-1")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
		_, err = h.svc.Reschedule(ctx, id, at(15, 0), "desk-1")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
		_, err = h.svc.MarkNoShow(ctx, id, "desk-1")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	h := newHarness(t)
	a := h.book(t, at(10, 0), at(11, 0))

	_, err := h.svc.Cancel(context.Background(), a.ID, " ", "desk-1")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	c, err := h.svc.Cancel(context.Background(), a.ID, "family emergency", "desk-1")
	require.NoError(t, err)
	assert.Equal(t, "family emergency", c.CancellationReason)
	assert.Equal(t, "family emergency", c.History[len(c.History)-1].Note)
}

func TestMarkNoShowUsesSystemNote(t *testing.T) {
	h := newHarness(t)
	a := h.book(t, at(10, 0), at(11, 0))

	ns, err := h.svc.MarkNoShow(context.Background(), a.ID, "")
	require.NoError(t, err)
	last := ns.History[len(ns.History)-1]
	assert.Equal(t, appointment.ActionNoShow, last.Action)
	assert.Equal(t, appointment.SystemActor, last.ActorID)
	assert.NotEmpty(t, last.Note)
}

func TestRescheduleMovesInPlaceAndExcludesItself(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.book(t, at(10, 0), at(11, 0))
	h.book(t, at(13, 0), at(14, 0))

	// Overlaps only its own current slot.
	moved, err := h.svc.Reschedule(ctx, a.ID, at(10, 30), "desk-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, moved.ID)
	assert.Equal(t, appointment.StatusRescheduled, moved.Status)
	assert.Equal(t, at(10, 30), moved.ScheduledStart)
	assert.Equal(t, at(11, 30), moved.ScheduledEnd, "duration is kept")
	last := moved.History[len(moved.History)-1]
	assert.Equal(t, appointment.ActionRescheduled, last.Action)
	assert.Contains(t, last.Note, at(10, 0).Format(time.RFC3339))

	_, err = h.svc.Reschedule(ctx, a.ID, at(12, 30), "desk-1")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	all, err := h.store.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "reschedule never creates a second appointment")

	confirmed, err := h.svc.Confirm(ctx, a.ID, "desk-1")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, confirmed.Status)
}

func TestHistoryOnlyGrows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.book(t, at(8, 0), at(8, 50))

	steps := []func() (*appointment.Appointment, error){
		func() (*appointment.Appointment, error) { return h.svc.Reschedule(ctx, a.ID, at(9, 0), "u") },
		func() (*appointment.Appointment, error) { return h.svc.Reschedule(ctx, a.ID, at(12, 0), "u") },
		func() (*appointment.Appointment, error) { return h.svc.Confirm(ctx, a.ID, "u") },
		func() (*appointment.Appointment, error) { return h.svc.Reschedule(ctx, a.ID, at(14, 0), "u") },
		func() (*appointment.Appointment, error) { return h.svc.Confirm(ctx, a.ID, "u") },
		func() (*appointment.Appointment, error) { return h.svc.StartConsultation(ctx, a.ID, "u") },
		func() (*appointment.Appointment, error) { return h.svc.CompleteConsultation(ctx, a.ID, "", "u") },
	}

	prev := a.History
	for i, step := range steps {
		next, err := step()
		require.NoError(t, err, "step %d", i)
		require.GreaterOrEqual(t, len(next.History), len(prev))
		assert.Equal(t, prev, next.History[:len(prev)], "step %d rewrote history", i)
		prev = next.History
	}

	// Failed transitions leave history untouched.
	_, err := h.svc.Cancel(ctx, a.ID, "too late", "u")
	require.Error(t, err)
	final, err := h.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, prev, final.History)
}

type failingRecords struct{}

func (failingRecords) FindByPatient(context.Context, uuid.UUID) ([]tracking.Record, error) {
	return nil, errors.New("records store unavailable")
}

func (failingRecords) Create(context.Context, tracking.Record) (*tracking.Record, error) {
	return nil, errors.New("records store unavailable")
}

func (failingRecords) FindByID(context.Context, uuid.UUID) (*tracking.Record, error) {
	return nil, errors.New("records store unavailable")
}

func (failingRecords) UpdateStatus(context.Context, uuid.UUID, tracking.Status, tracking.Status, time.Time) (*tracking.Record, error) {
	return nil, errors.New("records store unavailable")
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, string, appointment.Notification) error {
	return errors.New("sms gateway down")
}

func TestConfirmSucceedsWhenSideEffectsFail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	records := tracking.NewService(failingRecords{}, h.log)
	h.dispatcher.Subscribe(appointment.EventConfirmed, "tracking-projection", records.HandleConfirmed)
	h.dispatcher.SubscribeAll("notifier", appointment.NotifyHandler(failingNotifier{}))

	a := h.book(t, at(10, 0), at(11, 0))
	confirmed, err := h.svc.Confirm(ctx, a.ID, "desk-1")
	h.dispatcher.Wait()

	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, confirmed.Status)

	failed := map[string]bool{}
	for _, e := range h.hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			consumer, _ := e.Data["consumer"].(string)
			failed[consumer] = true
			assert.ErrorIs(t, e.Data[logrus.ErrorKey].(error), apperr.ErrDependency)
		}
	}
	assert.True(t, failed["tracking-projection"])
	assert.True(t, failed["notifier"])
}

func TestEventsArePublishedAfterWrites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var mu sync.Mutex
	var names []string
	h.dispatcher.SubscribeAll("recorder", func(_ context.Context, ev appointment.Event) error {
		mu.Lock()
		defer mu.Unlock()
		names = append(names, ev.Name)
		return nil
	})

	a := h.book(t, at(10, 0), at(11, 0))
	h.dispatcher.Wait()
	_, err := h.svc.Confirm(ctx, a.ID, "desk-1")
	require.NoError(t, err)
	h.dispatcher.Wait()
	_, err = h.svc.Confirm(ctx, a.ID, "desk-1")
	require.Error(t, err)
	h.dispatcher.Wait()

	assert.Equal(t, []string{appointment.EventCreated, appointment.EventConfirmed}, names)
}

func TestNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = h.svc.Confirm(ctx, uuid.New(), "desk-1")
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
	_, err = h.svc.Reschedule(ctx, uuid.New(), at(9, 0), "desk-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

type recordingLocker struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (l *recordingLocker) WithProfessionalLock(ctx context.Context, id uuid.UUID, fn func(context.Context) error) error {
	l.mu.Lock()
	l.calls = append(l.calls, id)
	l.mu.Unlock()
	return fn(ctx)
}

func TestCreateAndRescheduleRunUnderLock(t *testing.T) {
	locker := &recordingLocker{}
	h := newHarness(t, appointment.WithLocker(locker))
	ctx := context.Background()

	a := h.book(t, at(10, 0), at(11, 0))
	_, err := h.svc.Reschedule(ctx, a.ID, at(15, 0), "desk-1")
	require.NoError(t, err)
	_, err = h.svc.Confirm(ctx, a.ID, "desk-1")
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{h.pro.ID, h.pro.ID}, locker.calls)
}

func TestSweepNoShows(t *testing.T) {
	now := at(16, 0)
	h := newHarness(t, appointment.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	stale := h.book(t, at(8, 0), at(9, 0))
	staleConfirmed := h.book(t, at(10, 0), at(11, 0))
	_, err := h.svc.Confirm(ctx, staleConfirmed.ID, "desk-1")
	require.NoError(t, err)
	recent := h.book(t, at(13, 30), at(14, 20))
	inProgress := h.book(t, at(11, 0), at(12, 0))
	_, err = h.svc.Confirm(ctx, inProgress.ID, "desk-1")
	require.NoError(t, err)
	_, err = h.svc.StartConsultation(ctx, inProgress.ID, "pro-1")
	require.NoError(t, err)

	marked, err := h.svc.SweepNoShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	for id, want := range map[uuid.UUID]appointment.Status{
		stale.ID:          appointment.StatusNoShow,
		staleConfirmed.ID: appointment.StatusNoShow,
		recent.ID:         appointment.StatusScheduled,
		inProgress.ID:     appointment.StatusInProgress,
	} {
		got, err := h.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}

	marked, err = h.svc.SweepNoShows(ctx)
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestBookingsReflectStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.book(t, at(10, 0), at(11, 0))
	b := h.book(t, at(12, 0), at(13, 0))
	_, err := h.svc.Cancel(ctx, b.ID, "patient asked", "desk-1")
	require.NoError(t, err)

	got, err := h.svc.Bookings(ctx, h.pro.ID, monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.True(t, got[0].Active)
	assert.False(t, got[1].Active)
}

func TestListings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := h.input(at(10, 0), at(11, 0))
	first, err := h.svc.Create(ctx, in)
	require.NoError(t, err)
	in.ScheduledStart, in.ScheduledEnd = at(14, 0), at(15, 0)
	_, err = h.svc.Create(ctx, in)
	require.NoError(t, err)
	h.book(t, at(16, 0), at(17, 0))

	byPatient, err := h.svc.ListByPatient(ctx, first.PatientID)
	require.NoError(t, err)
	assert.Len(t, byPatient, 2)

	window, err := h.svc.ListByProfessional(ctx, h.pro.ID, at(10, 30), at(14, 30))
	require.NoError(t, err)
	assert.Len(t, window, 2)

	_, err = h.svc.ListByProfessional(ctx, h.pro.ID, at(10, 0), at(10, 0))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	all, err := h.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTransitionTable(t *testing.T) {
	assert.True(t, appointment.CanTransition(appointment.StatusScheduled, appointment.StatusConfirmed))
	assert.True(t, appointment.CanTransition(appointment.StatusRescheduled, appointment.StatusConfirmed))
	assert.True(t, appointment.CanTransition(appointment.StatusConfirmed, appointment.StatusRescheduled))
	assert.False(t, appointment.CanTransition(appointment.StatusScheduled, appointment.StatusInProgress))
	assert.False(t, appointment.CanTransition(appointment.StatusScheduled, appointment.StatusCompleted))
	assert.False(t, appointment.CanTransition(appointment.StatusInProgress, appointment.StatusCancelled))
	for _, s := range []appointment.Status{appointment.StatusCompleted, appointment.StatusCancelled, appointment.StatusNoShow} {
		assert.True(t, s.Terminal())
		assert.False(t, s.Blocking())
		for _, to := range []appointment.Status{
			appointment.StatusScheduled, appointment.StatusConfirmed, appointment.StatusCancelled,
			appointment.StatusNoShow, appointment.StatusRescheduled,
		} {
			assert.False(t, appointment.CanTransition(s, to))
		}
	}
}
