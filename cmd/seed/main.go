package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/care-scheduling/internal/app"
	"github.com/hackgods/care-scheduling/internal/apperr"
	"github.com/hackgods/care-scheduling/internal/appointment"
	"github.com/hackgods/care-scheduling/internal/config"
	"github.com/hackgods/care-scheduling/internal/intake"
	"github.com/hackgods/care-scheduling/internal/logging"
	"github.com/hackgods/care-scheduling/internal/professional"
)

const (
	professionalsPerSpecialty = 5
	bookingsPerProfessional   = 8
	patientPool               = 200
)

var reasons = []string{
	"first evaluation requested by the family",
	"follow up after the last consultation",
	"persistent lower back pain after work",
	"weight management and diet planning",
	"anxiety episodes during the last month",
	"referral from the primary care team",
}

type patient struct {
	id    uuid.UUID
	name  string
	phone string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config load error")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.StorageDriver != config.StoragePostgres {
		log.Fatal("seed needs STORAGE_DRIVER=postgres")
	}
	log.Info("seed starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer a.Close()

	gofakeit.Seed(0)

	pros, err := seedProfessionals(ctx, a.Directory)
	if err != nil {
		log.WithError(err).Fatal("seed professionals")
	}
	log.WithField("count", len(pros)).Info("professionals seeded")

	patients := make([]patient, patientPool)
	for i := range patients {
		patients[i] = patient{id: uuid.New(), name: gofakeit.Name(), phone: gofakeit.Phone()}
	}

	booked, conflicts := 0, 0
	for _, p := range pros {
		b, c, err := seedBookings(ctx, a, p, patients, cfg.Location)
		if err != nil {
			log.WithError(err).WithField("professional_id", p.ID).Fatal("seed bookings")
		}
		booked += b
		conflicts += c
	}

	log.WithFields(logrus.Fields{
		"appointments": booked,
		"conflicts":    conflicts,
	}).Info("seed complete")
}

func seedProfessionals(ctx context.Context, reg app.Registry) ([]professional.Professional, error) {
	durations := []int{30, 45, 50, 60}
	now := time.Now()

	var out []professional.Professional
	for _, spec := range professional.Specialties {
		for i := 0; i < professionalsPerSpecialty; i++ {
			p := professional.Professional{
				ID:                          uuid.New(),
				Name:                        gofakeit.Name(),
				Specialty:                   spec,
				WorkingHours:                weekdayHours(),
				ConsultationDurationMinutes: durations[gofakeit.Number(0, len(durations)-1)],
				Status:                      professional.StatusActive,
				CreatedAt:                   now,
				UpdatedAt:                   now,
			}
			if i == professionalsPerSpecialty-1 {
				p.Status = professional.StatusOnLeave
			}
			if err := reg.Save(ctx, p); err != nil {
				return nil, fmt.Errorf("save professional %s: %w", p.Name, err)
			}
			if p.IsActive() {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func weekdayHours() []professional.WorkingHours {
	var wh []professional.WorkingHours
	for d := time.Monday; d <= time.Friday; d++ {
		wh = append(wh,
			professional.WorkingHours{Weekday: d, Start: "08:00", End: "12:00"},
			professional.WorkingHours{Weekday: d, Start: "13:00", End: "18:00"},
		)
	}
	return wh
}

// seedBookings books random open slots of the coming week, confirming about half of them.
func seedBookings(ctx context.Context, a *app.App, p professional.Professional, patients []patient, loc *time.Location) (booked, conflicts int, err error) {
	from := time.Now().In(loc).Add(time.Hour)
	open, err := a.Availability.Slots(ctx, p.ID, from, from.Add(7*24*time.Hour))
	if err != nil {
		return 0, 0, fmt.Errorf("load slots: %w", err)
	}
	if len(open.Slots) == 0 {
		return 0, 0, nil
	}

	for i := 0; i < bookingsPerProfessional; i++ {
		pt := patients[gofakeit.Number(0, len(patients)-1)]
		start := open.Slots[gofakeit.Number(0, len(open.Slots)-1)]

		appt, err := a.Appointments.Create(ctx, appointment.CreateInput{
			PatientID:      pt.id,
			PatientName:    pt.name,
			PatientPhone:   pt.phone,
			ProfessionalID: p.ID,
			ScheduledStart: start,
			Reason:         gofakeit.RandomString(reasons),
			Price:          decimal.NewFromInt(int64(gofakeit.Number(80, 250))),
			Intake:         fakeIntake(p.Specialty),
			ActorID:        "seed",
		})
		if err != nil {
			if apperr.KindOf(err) == apperr.KindConflict {
				conflicts++
				continue
			}
			return booked, conflicts, err
		}
		booked++

		if gofakeit.Bool() {
			if _, err := a.Appointments.Confirm(ctx, appt.ID, "seed"); err != nil && !errors.Is(err, appointment.ErrStatusChanged) {
				return booked, conflicts, err
			}
		}
	}
	return booked, conflicts, nil
}

func fakeIntake(spec professional.Specialty) intake.Intake {
	switch spec {
	case professional.SpecialtyNutrition:
		weight := gofakeit.Float64Range(50, 120)
		height := gofakeit.Float64Range(150, 200)
		return intake.Nutrition{
			WeightKg: &weight,
			HeightCm: &height,
			Goals:    "reach a healthy weight",
		}
	case professional.SpecialtyPhysiotherapy:
		return intake.Physiotherapy{
			ChiefComplaint: "pain when climbing stairs",
			Assessment: intake.PhysiotherapyAssessment{
				Habits:      "sedentary, office work",
				Semiology:   "localized knee pain",
				Medications: "ibuprofen as needed",
			},
		}
	case professional.SpecialtyPsychology:
		return intake.Psychology{
			PreferredApproach: "cognitive behavioral",
			Anamnesis: intake.PsychologyAnamnesis{
				ChiefComplaint: "trouble sleeping",
				Demands:        []string{"anxiety"},
			},
		}
	default:
		return nil
	}
}
