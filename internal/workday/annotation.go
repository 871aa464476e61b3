package workday

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Boxholder overhead in minutes per load level.
var boxholderMinutes = map[string]float64{
	"none":   0,
	"light":  15,
	"medium": 30,
	"heavy":  45,
}

// SecondTrip is the serialized record of an extra trip after the main route.
type SecondTrip struct {
	Miles         float64 `json:"miles,omitempty"`
	PaidMinutes   float64 `json:"paidMinutes,omitempty"`
	ActualMinutes float64 `json:"actualMinutes,omitempty"`
}

// Annotation is the structured form of a record's annotation string.
type Annotation struct {
	Weather          string      `json:"weather,omitempty"`
	Holiday          bool        `json:"holiday,omitempty"`
	HolidayName      string      `json:"holidayName,omitempty"`
	Reason           string      `json:"reason,omitempty"`
	BoxholderLevel   string      `json:"boxholderLevel,omitempty"`
	BoxholderMinutes float64     `json:"boxholderMinutes,omitempty"`
	BreakMinutes     float64     `json:"breakMinutes,omitempty"`
	SecondTrip       *SecondTrip `json:"secondTrip,omitempty"`
}

// OverheadMinutes is the time removed from route duration before modeling.
func (a Annotation) OverheadMinutes() float64 {
	return a.BoxholderMinutes + a.BreakMinutes
}

// ParseAnnotation parses "Weather: Rain; Holiday: Labor Day • Break: 30".
// Unknown segments and malformed numbers are ignored.
func ParseAnnotation(s string) Annotation {
	var a Annotation
	for _, seg := range splitSegments(s) {
		key, value, hasValue := strings.Cut(seg, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "weather":
			a.Weather = value
		case "holiday":
			a.Holiday = true
			if hasValue {
				a.HolidayName = value
			}
		case "reason":
			a.Reason = value
		case "boxholder", "boxholders":
			level := strings.ToLower(value)
			if m, ok := boxholderMinutes[level]; ok {
				a.BoxholderLevel = level
				a.BoxholderMinutes = m
			} else if m, ok := parseMinutes(value); ok {
				a.BoxholderLevel = "custom"
				a.BoxholderMinutes = m
			}
		case "break":
			if m, ok := parseMinutes(value); ok {
				a.BreakMinutes = m
			}
		case "secondtrip", "second trip", "second_trip":
			var trip SecondTrip
			if err := json.Unmarshal([]byte(value), &trip); err == nil {
				a.SecondTrip = &trip
			}
		}
	}
	return a
}

func splitSegments(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == '•' || r == '·'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseMinutes(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, suffix := range []string{"minutes", "mins", "min", "m"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
