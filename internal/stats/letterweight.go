package stats

import (
	"math"
	"slices"
	"strings"
)

// LetterWeightStrategy names an input path for the learned letter weight.
type LetterWeightStrategy string

const (
	// StrategyRegression derives the weight from the diagnostics model as bl/bp.
	StrategyRegression LetterWeightStrategy = "regression"
	// StrategyTrailing fits an unweighted model over the most recent worked days.
	StrategyTrailing LetterWeightStrategy = "trailing"
)

// DefaultLetterWeight is used until a weight has been learned.
const DefaultLetterWeight = 0.33

// LetterWeightLearner smooths learned letter/parcel cost ratios into a
// persisted value with an exponential moving average.
type LetterWeightLearner struct {
	Alpha          float64 `json:"alpha" yaml:"alpha"`
	Min            float64 `json:"min" yaml:"min"`
	Max            float64 `json:"max" yaml:"max"`
	TrailingSample int     `json:"trailingSample" yaml:"trailing_sample"`
}

// DefaultLetterWeightLearner returns the standard learner settings.
func DefaultLetterWeightLearner() LetterWeightLearner {
	return LetterWeightLearner{Alpha: 0.3, Min: 0, Max: 1.5, TrailingSample: 60}
}

// LetterWeightUpdate is the outcome of one learning step.
type LetterWeightUpdate struct {
	Strategy LetterWeightStrategy `json:"strategy"`
	Prior    float64              `json:"prior"`
	Learned  *float64             `json:"learned,omitempty"`
	Current  float64              `json:"current"`
	Applied  bool                 `json:"applied"`
}

// FromRegression returns bl/bp when bp is non-negligible and the ratio lies
// within the learner's bounds. Out-of-range ratios are rejected, not clamped.
func (l LetterWeightLearner) FromRegression(m *RegressionModel) (float64, bool) {
	if m == nil || math.Abs(m.BP) <= 1e-6 {
		return 0, false
	}
	w := m.BL / m.BP
	if math.IsNaN(w) || w < l.Min || w > l.Max {
		return 0, false
	}
	return w, true
}

// FromTrailingSample fits an unweighted model over the most recent worked days
// with volume and clamps the implied ratio to the learner's bounds.
func (l LetterWeightLearner) FromTrailingSample(days []Day) (float64, bool) {
	recent := TrailingWorkedDays(days, l.TrailingSample)
	m := FitRegression(recent, nil)
	if m == nil || math.Abs(m.BP) <= 1e-6 {
		return 0, false
	}
	w := m.BL / m.BP
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, false
	}
	return Clamp(w, l.Min, l.Max), true
}

// Smooth applies the EMA: alpha*learned + (1-alpha)*prior.
func (l LetterWeightLearner) Smooth(prior, learned float64) float64 {
	return l.Alpha*learned + (1-l.Alpha)*prior
}

// Update runs one learning step for a strategy. When nothing can be learned
// the prior is kept unchanged.
func (l LetterWeightLearner) Update(strategy LetterWeightStrategy, prior float64, model *RegressionModel, days []Day) LetterWeightUpdate {
	u := LetterWeightUpdate{Strategy: strategy, Prior: prior, Current: prior}

	var learned float64
	var ok bool
	switch strategy {
	case StrategyRegression:
		learned, ok = l.FromRegression(model)
	case StrategyTrailing:
		learned, ok = l.FromTrailingSample(days)
	}
	if !ok {
		return u
	}

	u.Learned = &learned
	u.Current = l.Smooth(prior, learned)
	u.Applied = true
	return u
}

// TrailingWorkedDays returns up to n of the latest worked days with volume,
// in ascending date order.
func TrailingWorkedDays(days []Day, n int) []Day {
	var worked []Day
	for _, d := range days {
		if d.IsWorked() && d.HasVolume() {
			worked = append(worked, d)
		}
	}
	slices.SortStableFunc(worked, func(a, b Day) int {
		return strings.Compare(a.Date, b.Date)
	})
	if n > 0 && len(worked) > n {
		worked = worked[len(worked)-n:]
	}
	return worked
}
