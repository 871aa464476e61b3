package stats

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"routedash/internal/dates"
	"routedash/internal/workday"
)

// DefaultCompareWindow is the number of most recent worked days kept for comparisons.
const DefaultCompareWindow = 365

// CompareMode selects the reference for a day comparison.
type CompareMode string

const (
	CompareLast     CompareMode = "last"
	CompareBaseline CompareMode = "baseline"
	CompareManual   CompareMode = "manual"
)

// ParseCompareMode maps user input to a mode, defaulting to CompareLast.
func ParseCompareMode(s string) CompareMode {
	switch CompareMode(strings.ToLower(strings.TrimSpace(s))) {
	case CompareBaseline:
		return CompareBaseline
	case CompareManual:
		return CompareManual
	default:
		return CompareLast
	}
}

// Tone is the display classification of a delta.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneNeutral  Tone = "neutral"
)

// CompareContext is the lookup structure for comparisons: worked,
// non-vacation records in descending date order.
type CompareContext struct {
	Records      []workday.Record          `json:"-"`
	ByDate       map[string]workday.Record `json:"-"`
	LetterWeight float64                   `json:"letterWeight"`
}

// BuildCompareContext keeps the most recent limit worked, non-vacation records.
func BuildCompareContext(records []workday.Record, limit int, letterWeight float64) CompareContext {
	if limit <= 0 {
		limit = DefaultCompareWindow
	}

	var kept []workday.Record
	for _, r := range records {
		if r.IsWorked() && !r.IsVacation() {
			kept = append(kept, r)
		}
	}
	slices.SortStableFunc(kept, func(a, b workday.Record) int {
		return strings.Compare(b.Date, a.Date)
	})
	if len(kept) > limit {
		kept = kept[:limit]
	}

	byDate := make(map[string]workday.Record, len(kept))
	for _, r := range kept {
		byDate[r.Date] = r
	}
	return CompareContext{Records: kept, ByDate: byDate, LetterWeight: letterWeight}
}

// LastSameWeekday returns the nearest strictly earlier record on the same weekday.
func (c CompareContext) LastSameWeekday(iso string) (workday.Record, bool) {
	wd := dates.MondayIndexISO(iso)
	for _, r := range c.Records {
		if r.Date < iso && dates.MondayIndexISO(r.Date) == wd {
			return r, true
		}
	}
	return workday.Record{}, false
}

// WeekdayAverage averages every other record sharing iso's weekday.
func (c CompareContext) WeekdayAverage(iso string) (workday.DayMetrics, int) {
	wd := dates.MondayIndexISO(iso)
	var items []workday.DayMetrics
	for _, r := range c.Records {
		if r.Date != iso && dates.MondayIndexISO(r.Date) == wd {
			items = append(items, workday.MetricsFromRecord(r, c.LetterWeight))
		}
	}
	if len(items) == 0 {
		return workday.DayMetrics{}, 0
	}
	label := fmt.Sprintf("Weekday average (%d days)", len(items))
	return workday.AverageMetrics(items, label), len(items)
}

// MetricDelta is the comparison of one metric.
type MetricDelta struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	Subject   *float64 `json:"subject"`
	Reference *float64 `json:"reference"`
	Delta     *float64 `json:"delta"`
	Percent   *float64 `json:"percent"`
	Tone      Tone     `json:"tone"`
}

// DayComparison is the full comparison of a subject day against a reference.
type DayComparison struct {
	Mode         CompareMode        `json:"mode"`
	SubjectISO   string             `json:"subjectIso"`
	ReferenceISO string             `json:"referenceIso,omitempty"`
	Subject      workday.DayMetrics `json:"subject"`
	Reference    workday.DayMetrics `json:"reference"`
	Deltas       []MetricDelta      `json:"deltas"`
	Highlights   []MetricDelta      `json:"highlights"`
}

type metricDef struct {
	key, label string
	value      func(workday.DayMetrics) *float64
	inverted   bool
}

func val(f func(workday.DayMetrics) float64) func(workday.DayMetrics) *float64 {
	return func(m workday.DayMetrics) *float64 {
		v := f(m)
		return &v
	}
}

var compareMetrics = []metricDef{
	{key: "totalHours", label: "Total hours", value: val(func(m workday.DayMetrics) float64 { return m.TotalHours })},
	{key: "routeHours", label: "Route hours", value: val(func(m workday.DayMetrics) float64 { return m.RouteHours })},
	{key: "officeHours", label: "Office hours", value: val(func(m workday.DayMetrics) float64 { return m.OfficeHours })},
	{key: "parcels", label: "Parcels", value: val(func(m workday.DayMetrics) float64 { return m.Parcels })},
	{key: "letters", label: "Letters", value: val(func(m workday.DayMetrics) float64 { return m.Letters })},
	{key: "volume", label: "Volume", value: val(func(m workday.DayMetrics) float64 { return m.Volume })},
	{key: "miles", label: "Miles", value: val(func(m workday.DayMetrics) float64 { return m.Miles })},
	// Lower minutes per unit of volume is better.
	{key: "efficiencyMinutes", label: "Minutes per volume", value: func(m workday.DayMetrics) *float64 { return m.EfficiencyMinutes }, inverted: true},
}

// ComputeDeltaDetails compares the eight display metrics of two views.
func ComputeDeltaDetails(subject, reference workday.DayMetrics) []MetricDelta {
	out := make([]MetricDelta, 0, len(compareMetrics))
	for _, def := range compareMetrics {
		d := MetricDelta{
			Key:       def.key,
			Label:     def.label,
			Subject:   def.value(subject),
			Reference: def.value(reference),
			Tone:      ToneNeutral,
		}
		if d.Subject != nil && d.Reference != nil {
			delta := *d.Subject - *d.Reference
			d.Delta = &delta
			d.Percent = percentChange(*d.Subject, *d.Reference)
			d.Tone = toneFor(delta, def.inverted)
		}
		out = append(out, d)
	}
	return out
}

func toneFor(delta float64, inverted bool) Tone {
	if delta == 0 {
		return ToneNeutral
	}
	if inverted {
		delta = -delta
	}
	if delta > 0 {
		return TonePositive
	}
	return ToneNegative
}

// Highlights returns the n metrics with the largest absolute percent change,
// using the absolute delta where no percent exists.
func Highlights(deltas []MetricDelta, n int) []MetricDelta {
	score := func(d MetricDelta) float64 {
		if d.Percent != nil {
			return math.Abs(*d.Percent)
		}
		if d.Delta != nil {
			return math.Abs(*d.Delta)
		}
		return 0
	}

	var candidates []MetricDelta
	for _, d := range deltas {
		if score(d) > 0 {
			candidates = append(candidates, d)
		}
	}
	slices.SortStableFunc(candidates, func(a, b MetricDelta) int {
		return cmp.Compare(score(b), score(a))
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// CompareDay compares the subject date to a reference chosen by mode. It
// returns false when the subject or reference is unavailable.
func (c CompareContext) CompareDay(subjectISO string, mode CompareMode, manualISO string) (*DayComparison, bool) {
	subjectRec, ok := c.ByDate[subjectISO]
	if !ok {
		return nil, false
	}

	result := &DayComparison{
		Mode:       mode,
		SubjectISO: subjectISO,
		Subject:    workday.MetricsFromRecord(subjectRec, c.LetterWeight),
	}

	switch mode {
	case CompareBaseline:
		ref, n := c.WeekdayAverage(subjectISO)
		if n == 0 {
			return nil, false
		}
		result.Reference = ref
	case CompareManual:
		ref, ok := c.ByDate[manualISO]
		if !ok || manualISO == subjectISO {
			return nil, false
		}
		result.ReferenceISO = manualISO
		result.Reference = workday.MetricsFromRecord(ref, c.LetterWeight)
	default:
		ref, ok := c.LastSameWeekday(subjectISO)
		if !ok {
			return nil, false
		}
		result.Mode = CompareLast
		result.ReferenceISO = ref.Date
		result.Reference = workday.MetricsFromRecord(ref, c.LetterWeight)
	}

	result.Deltas = ComputeDeltaDetails(result.Subject, result.Reference)
	result.Highlights = Highlights(result.Deltas, 3)
	return result, true
}
