package diagnostics

import (
	"time"

	"routedash/internal/stats"
	"routedash/internal/workday"
)

// LetterWeights carries the outcome of both learning strategies for one rebuild.
type LetterWeights struct {
	Regression stats.LetterWeightUpdate `json:"regression"`
	Trailing   stats.LetterWeightUpdate `json:"trailing"`
}

// Baselines groups the weekday volume baselines of one rebuild.
type Baselines struct {
	Weekly       stats.WeekdayBaselineSnapshot `json:"weekly"`
	WeeklyCached bool                          `json:"weeklyCached"`
	Anchor       stats.AnchorBaseline          `json:"anchor"`
	Drift        stats.BaselineDrift           `json:"drift"`
}

// Pipeline is the immutable result of one rebuild pass. It is the context
// threaded from the fit to every consumer; the letter weight used for volume
// comes from here rather than from shared state.
type Pipeline struct {
	Today           time.Time              `json:"-"`
	RowsFingerprint string                 `json:"-"`
	StateKey        string                 `json:"-"`
	Scope           stats.ModelScope       `json:"scope"`
	Records         []workday.Record       `json:"-"`
	Days            []stats.Day            `json:"-"`
	FitDays         []stats.Day            `json:"-"`
	CatchupFlagged  int                    `json:"catchupFlagged"`
	Weighting       stats.HolidayWeighting `json:"weighting"`
	Model           *stats.RegressionModel `json:"model"`
	ModelKey        string                 `json:"modelKey"`
	LetterWeights   LetterWeights          `json:"letterWeights"`
	Dismissals      []stats.DismissalEntry `json:"dismissals"`
	Residuals       stats.ResidualReport   `json:"residuals"`
	Baselines       Baselines              `json:"baselines"`
}

// LetterWeight is the weight used for volume in comparisons and displays.
func (p *Pipeline) LetterWeight() float64 {
	return p.LetterWeights.Regression.Current
}

// CatchupDay lists one flagged day with the weight the fit actually used.
type CatchupDay struct {
	ISO        string                `json:"iso"`
	WeightUsed float64               `json:"weightUsed"`
	Context    *stats.CatchupContext `json:"context"`
}

// CatchupDays lists every flagged day in ascending order.
func (p *Pipeline) CatchupDays() []CatchupDay {
	weight := p.Weighting.Func()
	var out []CatchupDay
	for _, d := range p.Days {
		if !d.HasTag(stats.TagHolidayCatchup) {
			continue
		}
		w := 1.0
		if weight != nil {
			w = weight(d)
		}
		out = append(out, CatchupDay{ISO: d.Date, WeightUsed: w, Context: d.Catchup})
	}
	return out
}
