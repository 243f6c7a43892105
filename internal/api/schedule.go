package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/care-scheduling/internal/availability"
	"github.com/hackgods/care-scheduling/internal/professional"
	"github.com/hackgods/care-scheduling/internal/tracking"
)

// rangeQuery reads from/to query parameters. from defaults to now, to to from+span.
func rangeQuery(w http.ResponseWriter, r *http.Request, loc *time.Location, span time.Duration) (time.Time, time.Time, bool) {
	q := r.URL.Query()

	from := time.Now().In(loc)
	if raw := q.Get("from"); raw != "" {
		t, err := parseTime(raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC 3339 or YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		from = t
	}

	to := from.Add(span)
	if raw := q.Get("to"); raw != "" {
		t, err := parseTime(raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC 3339 or YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		to = t
	}

	return from, to, true
}

func professionalSlotsHandler(svc *availability.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		from, to, ok := rangeQuery(w, r, loc, 7*24*time.Hour)
		if !ok {
			return
		}

		ps, err := svc.Slots(r.Context(), id, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newSlotsResponse(*ps))
	}
}

func nextAvailableHandler(svc *availability.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialty := professional.Specialty(chi.URLParam(r, "specialty"))
		from, to, ok := rangeQuery(w, r, loc, 14*24*time.Hour)
		if !ok {
			return
		}

		result, err := svc.NextAvailable(r.Context(), specialty, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]SlotsResponse, 0, len(result))
		for _, ps := range result {
			resp = append(resp, newSlotsResponse(ps))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func patientRecordsHandler(svc *tracking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		recs, err := svc.ListByPatient(r.Context(), patientID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]TrackingRecordResponse, 0, len(recs))
		for i := range recs {
			resp = append(resp, newTrackingRecordResponse(&recs[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func recordStatusHandler(svc *tracking.Service, to tracking.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var (
			rec *tracking.Record
			err error
		)
		switch to {
		case tracking.StatusPaused:
			rec, err = svc.Pause(r.Context(), id)
		case tracking.StatusActive:
			rec, err = svc.Resume(r.Context(), id)
		default:
			rec, err = svc.Close(r.Context(), id)
		}
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newTrackingRecordResponse(rec))
	}
}
