package availability

import (
	"iter"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/care-scheduling/internal/professional"
)

// DefaultConsultationMinutes applies when a professional has no usable duration configured.
const DefaultConsultationMinutes = 50

// DefaultWorkingHours applies when a professional has no working hours configured.
var DefaultWorkingHours = []professional.WorkingHours{
	{Weekday: time.Monday, Start: "07:00", End: "21:00"},
	{Weekday: time.Tuesday, Start: "07:00", End: "21:00"},
	{Weekday: time.Wednesday, Start: "07:00", End: "21:00"},
	{Weekday: time.Thursday, Start: "07:00", End: "21:00"},
	{Weekday: time.Friday, Start: "07:00", End: "21:00"},
}

// Booking is the part of an appointment that occupies a professional's calendar.
type Booking struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	Start          time.Time
	End            time.Time
	Active         bool
}

// Overlaps is the half-open interval test [aStart, aEnd) ∩ [bStart, bEnd) ≠ ∅.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// ConsultationDuration returns the professional's slot length with the default applied.
func ConsultationDuration(p professional.Professional) time.Duration {
	if p.ConsultationDurationMinutes <= 0 {
		return DefaultConsultationMinutes * time.Minute
	}
	return time.Duration(p.ConsultationDurationMinutes) * time.Minute
}

// EffectiveWorkingHours returns the professional's windows with the default applied.
func EffectiveWorkingHours(p professional.Professional) []professional.WorkingHours {
	if len(p.WorkingHours) == 0 {
		return DefaultWorkingHours
	}
	return p.WorkingHours
}

type window struct {
	weekday    time.Weekday
	start, end int
}

func windows(p professional.Professional) []window {
	var out []window
	for _, wh := range EffectiveWorkingHours(p) {
		start, end, err := wh.Minutes()
		if err != nil || wh.Weekday < time.Sunday || wh.Weekday > time.Saturday {
			continue
		}
		out = append(out, window{weekday: wh.Weekday, start: start, end: end})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].start < out[j].start
	})
	return out
}

// Slots yields open slot starts for p in [rangeStart, rangeEnd), ascending.
// Working hours are read in rangeStart's location. The sequence is pure and may be
// ranged over more than once.
func Slots(p professional.Professional, rangeStart, rangeEnd time.Time, existing []Booking) iter.Seq[time.Time] {
	duration := ConsultationDuration(p)
	wins := windows(p)

	var blocking []Booking
	for _, b := range existing {
		if !b.Active || b.ProfessionalID != p.ID {
			continue
		}
		blocking = append(blocking, b)
	}

	return func(yield func(time.Time) bool) {
		if !rangeStart.Before(rangeEnd) || len(wins) == 0 {
			return
		}

		loc := rangeStart.Location()
		y, m, d := rangeStart.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)

		for ; day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
			var last time.Time
			for _, w := range wins {
				if w.weekday != day.Weekday() {
					continue
				}
				windowEnd := atMinute(day, w.end)
				for slot := atMinute(day, w.start); !slot.Add(duration).After(windowEnd); slot = slot.Add(duration) {
					if slot.Before(rangeStart) || !slot.Before(rangeEnd) {
						continue
					}
					if !last.IsZero() && !slot.After(last) {
						continue
					}
					if overlapsAny(slot, slot.Add(duration), blocking) {
						continue
					}
					last = slot
					if !yield(slot) {
						return
					}
				}
			}
		}
	}
}

// AvailableSlots collects Slots into a slice. The result is empty, never nil, when no
// slot qualifies.
func AvailableSlots(p professional.Professional, rangeStart, rangeEnd time.Time, existing []Booking) []time.Time {
	out := slices.Collect(Slots(p, rangeStart, rangeEnd, existing))
	if out == nil {
		out = []time.Time{}
	}
	return out
}

// HasConflict reports whether [start, end) overlaps an active booking of professionalID,
// ignoring the booking identified by exclude.
func HasConflict(professionalID uuid.UUID, start, end time.Time, existing []Booking, exclude uuid.UUID) bool {
	for _, b := range existing {
		if b.ProfessionalID != professionalID || !b.Active {
			continue
		}
		if exclude != uuid.Nil && b.ID == exclude {
			continue
		}
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

func overlapsAny(start, end time.Time, bookings []Booking) bool {
	for _, b := range bookings {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

func atMinute(day time.Time, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, minute/60, minute%60, 0, 0, day.Location())
}
