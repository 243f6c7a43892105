package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/care-scheduling/internal/appointment"
	"github.com/hackgods/care-scheduling/internal/availability"
	"github.com/hackgods/care-scheduling/internal/tracking"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Availability *availability.Service
	Tracking     *tracking.Service
	Dependencies []Dependency
	Location     *time.Location
	Log          logrus.FieldLogger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(RecoverMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.Dependencies, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment endpoints
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.Appointments))
		r.Get("/", listAppointmentsHandler(cfg.Appointments, loc))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/confirm", confirmAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/start", startAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/complete", completeAppointmentHandler(cfg.Appointments))
		r.Post("/{id}/no-show", noShowAppointmentHandler(cfg.Appointments))
	})

	// Availability endpoints
	r.Get("/professionals/{id}/slots", professionalSlotsHandler(cfg.Availability, loc))
	r.Get("/specialties/{specialty}/next-available", nextAvailableHandler(cfg.Availability, loc))

	// Tracking record endpoints
	r.Get("/patients/{id}/tracking-records", patientRecordsHandler(cfg.Tracking))
	r.Post("/tracking-records/{id}/pause", recordStatusHandler(cfg.Tracking, tracking.StatusPaused))
	r.Post("/tracking-records/{id}/resume", recordStatusHandler(cfg.Tracking, tracking.StatusActive))
	r.Post("/tracking-records/{id}/close", recordStatusHandler(cfg.Tracking, tracking.StatusClosed))

	return r
}
