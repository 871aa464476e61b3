package stats

import (
	"slices"

	"routedash/internal/workday"
)

// Derived tags attached to annotated days. They are recomputed on every
// annotation pass and never persisted with the record.
const (
	TagPostHoliday    = "post_holiday"
	TagHolidayCatchup = "holiday_catchup"
)

// Day is a record plus in-memory annotations.
type Day struct {
	workday.Record
	Tags    []string        `json:"tags,omitempty"`
	Catchup *CatchupContext `json:"catchup,omitempty"`
}

// HasTag reports whether the day carries tag.
func (d Day) HasTag(tag string) bool {
	return slices.Contains(d.Tags, tag)
}

// WrapRecords converts records into untagged days.
func WrapRecords(records []workday.Record) []Day {
	days := make([]Day, len(records))
	for i, r := range records {
		days[i] = Day{Record: r}
	}
	return days
}
