package workday

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Status is the kind of day a record describes.
type Status string

const (
	StatusWorked Status = "worked"
	StatusOff    Status = "off"
)

// Record is one calendar date's entry. Records are owned by the sync layer and
// are read-only to the analytics code.
type Record struct {
	Date           string   `json:"date"`
	Status         Status   `json:"status"`
	Parcels        int      `json:"parcels"`
	Letters        int      `json:"letters"`
	RouteDuration  *float64 `json:"routeDuration,omitempty"`
	OfficeDuration *float64 `json:"officeDuration,omitempty"`
	TotalDuration  *float64 `json:"totalDuration,omitempty"`
	Miles          *float64 `json:"miles,omitempty"`
	Mood           string   `json:"mood,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Annotations    string   `json:"annotations,omitempty"`
}

// UnmarshalJSON decodes a record, coercing malformed counts to 0 and
// malformed durations to absent.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date           string          `json:"date"`
		Status         Status          `json:"status"`
		Parcels        json.RawMessage `json:"parcels"`
		Letters        json.RawMessage `json:"letters"`
		RouteDuration  json.RawMessage `json:"routeDuration"`
		OfficeDuration json.RawMessage `json:"officeDuration"`
		TotalDuration  json.RawMessage `json:"totalDuration"`
		Miles          json.RawMessage `json:"miles"`
		Mood           string          `json:"mood"`
		Notes          string          `json:"notes"`
		Annotations    string          `json:"annotations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{
		Date:           raw.Date,
		Status:         raw.Status,
		Parcels:        coerceCount(raw.Parcels),
		Letters:        coerceCount(raw.Letters),
		RouteDuration:  coerceOptional(raw.RouteDuration),
		OfficeDuration: coerceOptional(raw.OfficeDuration),
		TotalDuration:  coerceOptional(raw.TotalDuration),
		Miles:          coerceOptional(raw.Miles),
		Mood:           raw.Mood,
		Notes:          raw.Notes,
		Annotations:    raw.Annotations,
	}
	return nil
}

// IsWorked reports whether the record is a worked day.
func (r Record) IsWorked() bool {
	return r.Status == StatusWorked
}

// IsOff reports whether the record is an off day.
func (r Record) IsOff() bool {
	return r.Status == StatusOff
}

// Annotation parses the record's annotation string.
func (r Record) Annotation() Annotation {
	return ParseAnnotation(r.Annotations)
}

// IsHolidayOff reports whether the record is an off day marked as a holiday.
func (r Record) IsHolidayOff() bool {
	return r.IsOff() && r.Annotation().Holiday
}

// IsVacation reports whether the record is tagged as leave rather than a route day.
func (r Record) IsVacation() bool {
	switch strings.ToLower(strings.TrimSpace(r.Annotation().Reason)) {
	case "vacation", "pto", "annual leave", "leave":
		return true
	}
	return false
}

// RouteHours returns the normalized route duration.
func (r Record) RouteHours() (float64, bool) {
	d, ok := autoDuration(r.RouteDuration)
	return d.Hours(), ok
}

// OfficeHours returns the normalized office duration.
func (r Record) OfficeHours() (float64, bool) {
	d, ok := autoDuration(r.OfficeDuration)
	return d.Hours(), ok
}

// TotalHours returns the stored total, or route+office when no total was stored.
func (r Record) TotalHours() (float64, bool) {
	if d, ok := autoDuration(r.TotalDuration); ok {
		return d.Hours(), true
	}
	route, okR := r.RouteHours()
	office, okO := r.OfficeHours()
	if !okR && !okO {
		return 0, false
	}
	return route + office, true
}

// RouteMinutes returns route duration in minutes with boxholder and break
// overhead removed. Never negative.
func (r Record) RouteMinutes() (float64, bool) {
	hours, ok := r.RouteHours()
	if !ok {
		return 0, false
	}
	return math.Max(0, hours*60-r.Annotation().OverheadMinutes()), true
}

// Volume is parcels plus letters scaled by the letter cost weight.
func (r Record) Volume(letterWeight float64) float64 {
	return float64(r.Parcels) + letterWeight*float64(r.Letters)
}

// HasVolume reports whether the record carries any parcels or letters.
func (r Record) HasVolume() bool {
	return r.Parcels+r.Letters > 0
}

func coerceCount(raw json.RawMessage) int {
	v, ok := coerceNumber(raw)
	if !ok || v < 0 || v > math.MaxInt32 {
		return 0
	}
	return int(math.Round(v))
}

func coerceOptional(raw json.RawMessage) *float64 {
	v, ok := coerceNumber(raw)
	if !ok {
		return nil
	}
	return &v
}

// coerceNumber accepts JSON numbers and numeric strings.
func coerceNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
