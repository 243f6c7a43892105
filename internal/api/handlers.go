package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/appointment"
	"github.com/hackgods/care-scheduling/internal/intake"
)

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		professionalID, err := uuid.Parse(req.ProfessionalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}

		in, err := intake.Unmarshal(req.Intake)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_intake", err.Error())
			return
		}

		input := appointment.CreateInput{
			PatientID:      patientID,
			PatientName:    req.PatientName,
			PatientPhone:   req.PatientPhone,
			ProfessionalID: professionalID,
			ScheduledStart: req.ScheduledStart,
			Priority:       appointment.Priority(req.Priority),
			Modality:       appointment.Modality(req.Modality),
			Reason:         req.Reason,
			Price:          req.Price,
			Discount:       req.Discount,
			Intake:         in,
			ActorID:        actorID(r),
		}
		if req.ScheduledEnd != nil {
			input.ScheduledEnd = *req.ScheduledEnd
		}

		appt, err := svc.Create(r.Context(), input)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, newAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
	}
}

// listAppointmentsHandler filters by patient_id, or by professional_id with a from/to
// range, and lists everything otherwise.
func listAppointmentsHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			appts []appointment.Appointment
			err   error
		)
		switch {
		case q.Get("patient_id") != "":
			patientID, perr := uuid.Parse(q.Get("patient_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			appts, err = svc.ListByPatient(r.Context(), patientID)
		case q.Get("professional_id") != "":
			professionalID, perr := uuid.Parse(q.Get("professional_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
				return
			}
			from, to, ok := rangeQuery(w, r, loc, 7*24*time.Hour)
			if !ok {
				return
			}
			appts, err = svc.ListByProfessional(r.Context(), professionalID, from, to)
		default:
			appts, err = svc.List(r.Context())
		}
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newAppointmentList(appts))
	}
}

type transitionFunc func(ctx context.Context, id uuid.UUID, r *http.Request) (*appointment.Appointment, error)

// transitionHandler runs one lifecycle operation against the {id} appointment.
func transitionHandler(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := fn(r.Context(), id, r)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return transitionHandler(func(ctx context.Context, id uuid.UUID, r *http.Request) (*appointment.Appointment, error) {
		return svc.Confirm(ctx, id, actorID(r))
	})
}

func startAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return transitionHandler(func(ctx context.Context, id uuid.UUID, r *http.Request) (*appointment.Appointment, error) {
		return svc.StartConsultation(ctx, id, actorID(r))
	})
}

func noShowAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return transitionHandler(func(ctx context.Context, id uuid.UUID, r *http.Request) (*appointment.Appointment, error) {
		return svc.MarkNoShow(ctx, id, actorID(r))
	})
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		transitionHandler(func(ctx context.Context, id uuid.UUID, r *http.Request) (*appointment.Appointment, error) {
			return svc.Cancel(ctx, id, req.Reason, actorID(r))
		})(w, r)
	}
}

func rescheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RescheduleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		transitionHandler(func(ctx context.Context, id uuid.UUID, r *http.Request) (*appointment.Appointment, error) {
			return svc.Reschedule(ctx, id, req.ScheduledStart, actorID(r))
		})(w, r)
	}
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		transitionHandler(func(ctx context.Context, id uuid.UUID, r *http.Request) (*appointment.Appointment, error) {
			return svc.CompleteConsultation(ctx, id, req.Notes, actorID(r))
		})(w, r)
	}
}
