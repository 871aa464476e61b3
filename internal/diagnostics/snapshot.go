package diagnostics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"routedash/internal/dates"
	"routedash/internal/stats"
)

// ModelSummary is the prompt-facing view of a fitted model.
type ModelSummary struct {
	A         float64                `json:"a"`
	BP        float64                `json:"bp"`
	BL        float64                `json:"bl"`
	R2        float64                `json:"r2"`
	N         int                    `json:"n"`
	Weighting stats.WeightingSummary `json:"weighting"`
}

// ResidualSummary holds the pooled statistics of non-dismissed residuals, in minutes.
type ResidualSummary struct {
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stdDev"`
	Median   float64 `json:"median"`
	PoolSize int     `json:"poolSize"`
}

// Context is the latest diagnostics snapshot handed to prompt builders.
type Context struct {
	ID                string                 `json:"id"`
	GeneratedAt       time.Time              `json:"generatedAt"`
	Today             string                 `json:"today"`
	Scope             stats.ModelScope       `json:"scope"`
	HolidayDownweight bool                   `json:"holidayDownweight"`
	Model             *ModelSummary          `json:"model"`
	Residuals         ResidualSummary        `json:"residuals"`
	TopResiduals      []stats.ScoredResidual `json:"topResiduals"`
	DismissedCount    int                    `json:"dismissedCount"`
	CatchupDays       []CatchupDay           `json:"catchupDays"`
	LetterWeights     LetterWeights          `json:"letterWeights"`
	Baselines         Baselines              `json:"baselines"`
}

// Snapshot builds a Context from a pipeline. Model absence stays absent.
func Snapshot(p *Pipeline, now time.Time) Context {
	c := Context{
		ID:                uuid.NewString(),
		GeneratedAt:       now,
		Today:             dates.FormatISO(p.Today),
		Scope:             p.Scope,
		HolidayDownweight: p.Weighting.Enabled,
		TopResiduals:      p.Residuals.Ranked,
		DismissedCount:    p.Residuals.DismissedCount,
		CatchupDays:       p.CatchupDays(),
		LetterWeights:     p.LetterWeights,
		Baselines:         p.Baselines,
		Residuals: ResidualSummary{
			Mean:     stats.Round1(p.Residuals.Mean),
			StdDev:   stats.Round1(p.Residuals.StdDev),
			Median:   stats.Round1(p.Residuals.Median),
			PoolSize: p.Residuals.PoolSize,
		},
	}
	if m := p.Model; m != nil {
		c.Model = &ModelSummary{
			A:         m.A,
			BP:        m.BP,
			BL:        m.BL,
			R2:        m.DisplayR2(),
			N:         m.N,
			Weighting: m.Weighting,
		}
	}
	return c
}

// Context returns a fresh snapshot of the current pipeline.
func (e *Engine) Context(ctx context.Context) (Context, error) {
	p, err := e.Current(ctx)
	if err != nil {
		return Context{}, err
	}
	return Snapshot(p, e.clock.Now()), nil
}
