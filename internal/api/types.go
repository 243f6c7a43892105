package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/care-scheduling/internal/appointment"
	"github.com/hackgods/care-scheduling/internal/availability"
	"github.com/hackgods/care-scheduling/internal/intake"
	"github.com/hackgods/care-scheduling/internal/tracking"
)

type CreateAppointmentRequest struct {
	PatientID      string          `json:"patient_id"`
	PatientName    string          `json:"patient_name"`
	PatientPhone   string          `json:"patient_phone"`
	ProfessionalID string          `json:"professional_id"`
	ScheduledStart time.Time       `json:"scheduled_start"`
	ScheduledEnd   *time.Time      `json:"scheduled_end,omitempty"`
	Priority       string          `json:"priority,omitempty"`
	Modality       string          `json:"modality,omitempty"`
	Reason         string          `json:"reason"`
	Price          decimal.Decimal `json:"price"`
	Discount       decimal.Decimal `json:"discount"`
	Intake         json.RawMessage `json:"intake,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type RescheduleRequest struct {
	ScheduledStart time.Time `json:"scheduled_start"`
}

type CompleteRequest struct {
	Notes string `json:"notes"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID                  `json:"id"`
	PatientID          uuid.UUID                  `json:"patient_id"`
	PatientName        string                     `json:"patient_name"`
	PatientPhone       string                     `json:"patient_phone"`
	ProfessionalID     uuid.UUID                  `json:"professional_id"`
	Specialty          string                     `json:"specialty"`
	ScheduledStart     time.Time                  `json:"scheduled_start"`
	ScheduledEnd       time.Time                  `json:"scheduled_end"`
	Status             string                     `json:"status"`
	Priority           string                     `json:"priority"`
	Modality           string                     `json:"modality"`
	Reason             string                     `json:"reason"`
	Price              decimal.Decimal            `json:"price"`
	Discount           decimal.Decimal            `json:"discount"`
	FinalPrice         decimal.Decimal            `json:"final_price"`
	ConsultationNotes  string                     `json:"consultation_notes,omitempty"`
	CancellationReason string                     `json:"cancellation_reason,omitempty"`
	History            []appointment.HistoryEntry `json:"history"`
	Intake             json.RawMessage            `json:"intake,omitempty"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

func newAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		PatientName:        a.PatientName,
		PatientPhone:       a.PatientPhone,
		ProfessionalID:     a.ProfessionalID,
		Specialty:          string(a.Specialty),
		ScheduledStart:     a.ScheduledStart,
		ScheduledEnd:       a.ScheduledEnd,
		Status:             string(a.Status),
		Priority:           string(a.Priority),
		Modality:           string(a.Modality),
		Reason:             a.Reason,
		Price:              a.Price,
		Discount:           a.Discount,
		FinalPrice:         a.FinalPrice(),
		ConsultationNotes:  a.ConsultationNotes,
		CancellationReason: a.CancellationReason,
		History:            a.History,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	if raw, err := intake.Marshal(a.Intake); err == nil && raw != nil {
		resp.Intake = raw
	}
	return resp
}

func newAppointmentList(appts []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, newAppointmentResponse(&appts[i]))
	}
	return out
}

type SlotsResponse struct {
	ProfessionalID  uuid.UUID   `json:"professional_id"`
	Name            string      `json:"name"`
	Specialty       string      `json:"specialty"`
	DurationMinutes int         `json:"duration_minutes"`
	Slots           []time.Time `json:"slots"`
}

func newSlotsResponse(ps availability.ProfessionalSlots) SlotsResponse {
	return SlotsResponse{
		ProfessionalID:  ps.Professional.ID,
		Name:            ps.Professional.Name,
		Specialty:       string(ps.Professional.Specialty),
		DurationMinutes: int(ps.Duration.Minutes()),
		Slots:           ps.Slots,
	}
}

type TrackingRecordResponse struct {
	ID                  uuid.UUID       `json:"id"`
	PatientID           uuid.UUID       `json:"patient_id"`
	PatientName         string          `json:"patient_name"`
	ProfessionalID      uuid.UUID       `json:"professional_id"`
	Specialty           string          `json:"specialty"`
	Status              string          `json:"status"`
	StartDate           time.Time       `json:"start_date"`
	Objective           string          `json:"objective"`
	OriginAppointmentID uuid.UUID       `json:"origin_appointment_id"`
	SpecializedData     json.RawMessage `json:"specialized_data,omitempty"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func newTrackingRecordResponse(r *tracking.Record) TrackingRecordResponse {
	resp := TrackingRecordResponse{
		ID:                  r.ID,
		PatientID:           r.PatientID,
		PatientName:         r.PatientName,
		ProfessionalID:      r.ProfessionalID,
		Specialty:           string(r.Specialty),
		Status:              string(r.Status),
		StartDate:           r.StartDate,
		Objective:           r.Objective,
		OriginAppointmentID: r.OriginAppointmentID,
		UpdatedAt:           r.UpdatedAt,
	}
	if raw, err := tracking.MarshalData(r.Data); err == nil && raw != nil {
		resp.SpecializedData = raw
	}
	return resp
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
