package stats

import (
	"slices"
	"strings"

	"routedash/internal/dates"
	"routedash/internal/workday"
)

// CatchupThresholds configures holiday catch-up detection.
type CatchupThresholds struct {
	ParcelsRatio      float64 `json:"parcelsRatio" yaml:"parcels_ratio"`
	LettersRatio      float64 `json:"lettersRatio" yaml:"letters_ratio"`
	RouteRatio        float64 `json:"routeRatio" yaml:"route_ratio"`
	RecommendedWeight float64 `json:"recommendedWeight" yaml:"recommended_weight"`
}

// DefaultCatchupThresholds returns the standard catch-up thresholds.
func DefaultCatchupThresholds() CatchupThresholds {
	return CatchupThresholds{
		ParcelsRatio:      1.25,
		LettersRatio:      1.25,
		RouteRatio:        1.15,
		RecommendedWeight: 0.65,
	}
}

// WeekdayBucket accumulates same-weekday history. Indexed Monday=0.
type WeekdayBucket struct {
	Count           int     `json:"count"`
	ParcelsSum      float64 `json:"parcelsSum"`
	LettersSum      float64 `json:"lettersSum"`
	RouteMinutesSum float64 `json:"routeMinutesSum"`
}

func (b WeekdayBucket) averages() (parcels, letters, route float64) {
	n := float64(b.Count)
	return b.ParcelsSum / n, b.LettersSum / n, b.RouteMinutesSum / n
}

// CatchupContext explains why a day was flagged as a holiday catch-up day.
type CatchupContext struct {
	HolidayDate          string   `json:"holidayDate"`
	HolidayName          string   `json:"holidayName,omitempty"`
	BaselineParcels      float64  `json:"baselineParcels"`
	BaselineLetters      float64  `json:"baselineLetters"`
	BaselineRouteMinutes float64  `json:"baselineRouteMinutes"`
	ParcelsRatio         *float64 `json:"parcelsRatio,omitempty"`
	LettersRatio         *float64 `json:"lettersRatio,omitempty"`
	RouteRatio           *float64 `json:"routeRatio,omitempty"`
	SampleSize           int      `json:"sampleSize"`
	Triggers             []string `json:"triggers"`
	RecommendedWeight    float64  `json:"recommendedWeight"`
}

// CatchupResult is the output of the causal scan: annotated days in ascending
// date order plus the final per-weekday accumulators.
type CatchupResult struct {
	Days    []Day            `json:"days"`
	Buckets [7]WeekdayBucket `json:"buckets"`
	Flagged int              `json:"flagged"`
}

// DetectHolidayCatchup folds over the records in ascending date order. Each
// worked day is compared against the same-weekday bucket as it stood before
// that day was added, so no day ever sees its own or later values.
func DetectHolidayCatchup(records []workday.Record, th CatchupThresholds) CatchupResult {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b workday.Record) int {
		return strings.Compare(a.Date, b.Date)
	})

	byDate := make(map[string]workday.Record, len(sorted))
	for _, r := range sorted {
		byDate[r.Date] = r
	}

	result := CatchupResult{Days: make([]Day, 0, len(sorted))}

	for _, r := range sorted {
		day := Day{Record: r}
		idx := dates.MondayIndexISO(r.Date)
		if !r.IsWorked() || idx < 0 {
			result.Days = append(result.Days, day)
			continue
		}

		routeMinutes, _ := r.RouteMinutes()
		bucket := result.Buckets[idx]

		// 1. Evaluate against strictly earlier history
		prevISO := dates.AddDaysISO(r.Date, -1)
		if prev, ok := byDate[prevISO]; ok && prev.IsHolidayOff() && bucket.Count > 0 {
			if ctx := evaluateCatchup(r, routeMinutes, bucket, prev, th); ctx != nil {
				day.Tags = []string{TagPostHoliday, TagHolidayCatchup}
				day.Catchup = ctx
				result.Flagged++
			}
		}

		// 2. Fold this day into its weekday bucket
		if r.HasVolume() || routeMinutes > 0 {
			b := &result.Buckets[idx]
			b.Count++
			b.ParcelsSum += float64(r.Parcels)
			b.LettersSum += float64(r.Letters)
			b.RouteMinutesSum += routeMinutes
		}

		result.Days = append(result.Days, day)
	}

	return result
}

func evaluateCatchup(r workday.Record, routeMinutes float64, bucket WeekdayBucket, holiday workday.Record, th CatchupThresholds) *CatchupContext {
	avgP, avgL, avgR := bucket.averages()

	ctx := &CatchupContext{
		HolidayDate:          holiday.Date,
		HolidayName:          holiday.Annotation().HolidayName,
		BaselineParcels:      avgP,
		BaselineLetters:      avgL,
		BaselineRouteMinutes: avgR,
		SampleSize:           bucket.Count,
		RecommendedWeight:    th.RecommendedWeight,
	}

	ctx.ParcelsRatio = ratio(float64(r.Parcels), avgP)
	ctx.LettersRatio = ratio(float64(r.Letters), avgL)
	ctx.RouteRatio = ratio(routeMinutes, avgR)

	if ctx.ParcelsRatio != nil && *ctx.ParcelsRatio >= th.ParcelsRatio {
		ctx.Triggers = append(ctx.Triggers, "parcels")
	}
	if ctx.LettersRatio != nil && *ctx.LettersRatio >= th.LettersRatio {
		ctx.Triggers = append(ctx.Triggers, "letters")
	}
	if ctx.RouteRatio != nil && *ctx.RouteRatio >= th.RouteRatio {
		ctx.Triggers = append(ctx.Triggers, "route")
	}

	if len(ctx.Triggers) == 0 {
		return nil
	}
	return ctx
}

func ratio(value, baseline float64) *float64 {
	if baseline <= 0 {
		return nil
	}
	r := value / baseline
	return &r
}
