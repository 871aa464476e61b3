package workday

import "math"

// Unit tags the unit a stored duration was recorded in.
type Unit string

const (
	UnitHours   Unit = "hours"
	UnitMinutes Unit = "minutes"
	// UnitAuto marks legacy values whose unit was never recorded.
	UnitAuto Unit = "auto"
)

// ambiguousMinutesThreshold separates hour values from minute values for UnitAuto.
// No shift lasts more than 24 hours, so anything larger must be minutes.
const ambiguousMinutesThreshold = 24

// Duration is a unit-tagged duration value.
type Duration struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Hours returns the duration in hours. This is the only place the legacy
// unit heuristic is applied.
func (d Duration) Hours() float64 {
	switch d.Unit {
	case UnitHours:
		return d.Value
	case UnitMinutes:
		return d.Value / 60
	default:
		if math.Abs(d.Value) > ambiguousMinutesThreshold {
			return d.Value / 60
		}
		return d.Value
	}
}

// Minutes returns the duration in minutes.
func (d Duration) Minutes() float64 {
	return d.Hours() * 60
}

// autoDuration wraps an optional stored value as an untagged duration.
func autoDuration(v *float64) (Duration, bool) {
	if v == nil {
		return Duration{}, false
	}
	return Duration{Value: *v, Unit: UnitAuto}, true
}
