package stats

import (
	"time"

	"routedash/internal/dates"
	"routedash/internal/workday"
)

// DefaultAnchorWeeks is the anchor baseline horizon.
const DefaultAnchorWeeks = 8

// WeekdayBaselineSnapshot holds per-weekday mean volume over the two most
// recently completed weeks. Slots are Monday-indexed.
type WeekdayBaselineSnapshot struct {
	WeekStartISO string     `json:"weekStartISO"`
	Parcels      [7]float64 `json:"parcels"`
	Letters      [7]float64 `json:"letters"`
}

// AnchorBaseline holds per-weekday medians of weekly totals over a longer horizon.
type AnchorBaseline struct {
	Weeks   int        `json:"weeks"`
	Parcels [7]float64 `json:"parcels"`
	Letters [7]float64 `json:"letters"`
}

// BaselineDrift is the percent difference of the rolling baseline against the anchor.
type BaselineDrift struct {
	Parcels [7]*float64 `json:"parcels"`
	Letters [7]*float64 `json:"letters"`
}

// BaselineCache persists the weekly snapshot between rebuilds.
type BaselineCache interface {
	WeeklyBaseline() (WeekdayBaselineSnapshot, bool)
	SetWeeklyBaseline(WeekdayBaselineSnapshot)
}

// weekTotals sums volume per weekday for the Monday-Sunday week starting at weekStart.
func weekTotals(byDate map[string]workday.Record, weekStart time.Time) (parcels, letters [7]int) {
	for i := 0; i < 7; i++ {
		iso := dates.FormatISO(weekStart.AddDate(0, 0, i))
		if r, ok := byDate[iso]; ok {
			parcels[i] += r.Parcels
			letters[i] += r.Letters
		}
	}
	return parcels, letters
}

func indexByDate(records []workday.Record) map[string]workday.Record {
	byDate := make(map[string]workday.Record, len(records))
	for _, r := range records {
		byDate[r.Date] = r
	}
	return byDate
}

// ComputeWeeklyBaselines averages per-weekday totals over weeks -1 and -2
// relative to the week containing today.
func ComputeWeeklyBaselines(records []workday.Record, today time.Time) WeekdayBaselineSnapshot {
	thisWeek := dates.WeekStart(today)
	byDate := indexByDate(records)

	snap := WeekdayBaselineSnapshot{WeekStartISO: dates.FormatISO(thisWeek)}
	for k := 1; k <= 2; k++ {
		p, l := weekTotals(byDate, thisWeek.AddDate(0, 0, -7*k))
		for i := 0; i < 7; i++ {
			snap.Parcels[i] += float64(p[i])
			snap.Letters[i] += float64(l[i])
		}
	}
	for i := 0; i < 7; i++ {
		snap.Parcels[i] /= 2
		snap.Letters[i] /= 2
	}
	return snap
}

// EnsureWeeklyBaselines returns the cached snapshot when it belongs to the
// current week, otherwise recomputes and stores it. The second result reports
// a cache hit.
func EnsureWeeklyBaselines(records []workday.Record, today time.Time, cache BaselineCache) (WeekdayBaselineSnapshot, bool) {
	want := dates.FormatISO(dates.WeekStart(today))
	if cache != nil {
		if snap, ok := cache.WeeklyBaseline(); ok && snap.WeekStartISO == want {
			return snap, true
		}
	}

	snap := ComputeWeeklyBaselines(records, today)
	if cache != nil {
		cache.SetWeeklyBaseline(snap)
	}
	return snap, false
}

// ComputeAnchorBaselines takes, per weekday, the median of weekly totals over
// the given number of completed weeks before today. Never cached.
func ComputeAnchorBaselines(records []workday.Record, today time.Time, weeks int) AnchorBaseline {
	if weeks <= 0 {
		weeks = DefaultAnchorWeeks
	}
	thisWeek := dates.WeekStart(today)
	byDate := indexByDate(records)

	var parcels, letters [7][]int
	for k := 1; k <= weeks; k++ {
		p, l := weekTotals(byDate, thisWeek.AddDate(0, 0, -7*k))
		for i := 0; i < 7; i++ {
			parcels[i] = append(parcels[i], p[i])
			letters[i] = append(letters[i], l[i])
		}
	}

	anchor := AnchorBaseline{Weeks: weeks}
	for i := 0; i < 7; i++ {
		anchor.Parcels[i] = CalculateMedianDiscrete(parcels[i])
		anchor.Letters[i] = CalculateMedianDiscrete(letters[i])
	}
	return anchor
}

// ComputeBaselineDrift compares each rolling slot to its anchor slot in percent.
// Slots with a zero anchor have no drift value.
func ComputeBaselineDrift(rolling WeekdayBaselineSnapshot, anchor AnchorBaseline) BaselineDrift {
	var drift BaselineDrift
	for i := 0; i < 7; i++ {
		drift.Parcels[i] = percentChange(rolling.Parcels[i], anchor.Parcels[i])
		drift.Letters[i] = percentChange(rolling.Letters[i], anchor.Letters[i])
	}
	return drift
}

func percentChange(value, reference float64) *float64 {
	if reference == 0 {
		return nil
	}
	pct := (value - reference) / reference * 100
	return &pct
}
