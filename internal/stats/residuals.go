package stats

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// DismissalTag is one curated reason for excluding a day from anomaly statistics.
type DismissalTag struct {
	Reason  string   `json:"reason"`
	Minutes *float64 `json:"minutes"`
	NotedAt string   `json:"notedAt"`
}

// DismissalEntry holds every reason recorded for one date.
type DismissalEntry struct {
	ISO  string         `json:"iso"`
	Tags []DismissalTag `json:"tags"`
}

// ResidualOptions configures the anomaly view.
type ResidualOptions struct {
	TopN     int     `json:"topN" yaml:"top_n"`
	OutlierZ float64 `json:"outlierZ" yaml:"outlier_z"`
}

// DefaultResidualOptions returns the standard anomaly view settings.
func DefaultResidualOptions() ResidualOptions {
	return ResidualOptions{TopN: 10, OutlierZ: 1.5}
}

// ScoredResidual is a residual with its standardized score.
type ScoredResidual struct {
	Residual
	Z         float64         `json:"z"`
	Outlier   bool            `json:"outlier"`
	Dismissed bool            `json:"dismissed"`
	Dismissal *DismissalEntry `json:"dismissal,omitempty"`
}

// ResidualReport is the ranked anomaly view of a model.
type ResidualReport struct {
	Mean           float64          `json:"mean"`
	StdDev         float64          `json:"stdDev"`
	Median         float64          `json:"median"`
	PoolSize       int              `json:"poolSize"`
	DismissedCount int              `json:"dismissedCount"`
	Ranked         []ScoredResidual `json:"ranked"`
	All            []ScoredResidual `json:"all"`
}

// AnalyzeResiduals scores every residual against the pool of non-dismissed
// residuals and ranks the non-dismissed ones by absolute size. The model
// itself is never modified.
func AnalyzeResiduals(model *RegressionModel, dismissals []DismissalEntry, opts ResidualOptions) ResidualReport {
	var report ResidualReport
	if model == nil {
		return report
	}

	// 1. Index dismissals
	dismissed := make(map[string]DismissalEntry, len(dismissals))
	for _, e := range dismissals {
		dismissed[e.ISO] = e
	}

	// 2. Pool statistics over non-dismissed residuals
	pool := make([]float64, 0, len(model.Residuals))
	for _, r := range model.Residuals {
		if _, ok := dismissed[r.ISO]; !ok {
			pool = append(pool, r.ResidualMinutes)
		}
	}
	report.PoolSize = len(pool)
	report.Mean = CalculateMean(pool)
	report.StdDev = CalculateSampleStdDev(pool)
	report.Median = CalculateMedianContinuous(pool)

	// 3. Score every residual
	report.All = make([]ScoredResidual, 0, len(model.Residuals))
	for _, r := range model.Residuals {
		s := ScoredResidual{Residual: r}
		if report.StdDev > 0 {
			s.Z = (r.ResidualMinutes - report.Mean) / report.StdDev
		}
		s.Outlier = math.Abs(s.Z) >= opts.OutlierZ
		if e, ok := dismissed[r.ISO]; ok {
			entry := e
			s.Dismissed = true
			s.Dismissal = &entry
			report.DismissedCount++
		}
		report.All = append(report.All, s)
	}

	// 4. Rank visible rows
	for _, s := range report.All {
		if !s.Dismissed {
			report.Ranked = append(report.Ranked, s)
		}
	}
	slices.SortStableFunc(report.Ranked, func(a, b ScoredResidual) int {
		if c := cmp.Compare(math.Abs(b.ResidualMinutes), math.Abs(a.ResidualMinutes)); c != 0 {
			return c
		}
		return cmp.Compare(a.ISO, b.ISO)
	})
	if opts.TopN > 0 && len(report.Ranked) > opts.TopN {
		report.Ranked = report.Ranked[:opts.TopN]
	}

	return report
}

// DismissDay replaces any entry for iso with the given reasons. It returns the
// list unchanged and false when no reasons were supplied.
func DismissDay(list []DismissalEntry, iso string, reasons []ParsedReason, now time.Time) ([]DismissalEntry, bool) {
	if iso == "" || len(reasons) == 0 {
		return list, false
	}

	noted := now.Format(time.RFC3339)
	entry := DismissalEntry{ISO: iso, Tags: make([]DismissalTag, 0, len(reasons))}
	for _, r := range reasons {
		entry.Tags = append(entry.Tags, DismissalTag{Reason: r.Reason, Minutes: r.Minutes, NotedAt: noted})
	}

	out := make([]DismissalEntry, 0, len(list)+1)
	for _, e := range list {
		if e.ISO != iso {
			out = append(out, e)
		}
	}
	return append(out, entry), true
}

// DismissDayFromText parses free text and dismisses iso with the result.
func DismissDayFromText(list []DismissalEntry, iso, input string, now time.Time) ([]DismissalEntry, bool) {
	return DismissDay(list, iso, ParseDismissReasonInput(input), now)
}

// ReinstateDay removes the entry for iso. It reports whether anything was removed.
func ReinstateDay(list []DismissalEntry, iso string) ([]DismissalEntry, bool) {
	out := make([]DismissalEntry, 0, len(list))
	removed := false
	for _, e := range list {
		if e.ISO == iso {
			removed = true
			continue
		}
		out = append(out, e)
	}
	if !removed {
		return list, false
	}
	return out, true
}

// TotalMinutes sums the minutes noted across an entry's tags.
func (e DismissalEntry) TotalMinutes() float64 {
	total := 0.0
	for _, t := range e.Tags {
		if t.Minutes != nil {
			total += *t.Minutes
		}
	}
	return total
}
