// Package diagnostics orchestrates the rebuild pipeline: annotate, select,
// fit, learn, score and aggregate.
package diagnostics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"routedash/internal/dates"
	"routedash/internal/metrics"
	"routedash/internal/prefs"
	"routedash/internal/stats"
	"routedash/internal/workday"
)

// Rebuild triggers.
const (
	TriggerStartup     = "startup"
	TriggerRowsChanged = "rows_changed"
	TriggerDayChanged  = "day_changed"
	TriggerReload      = "reload"
	TriggerDismiss     = "dismiss"
	TriggerReinstate   = "reinstate"
	TriggerPreference  = "preference"
)

// ErrInvalidDate is returned when a date argument is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// Engine owns the latest pipeline and the model memo.
type Engine struct {
	source  workday.Source
	prefs   *prefs.Preferences
	tuning  stats.Tuning
	clock   *dates.Clock
	metrics *metrics.Registry
	cache   *ModelCache

	mu     sync.Mutex
	latest *Pipeline
}

// NewEngine wires an engine. A nil clock uses UTC; a nil registry
// disables metrics.
func NewEngine(source workday.Source, p *prefs.Preferences, tuning stats.Tuning, clock *dates.Clock, m *metrics.Registry) *Engine {
	if clock == nil {
		clock = dates.NewClock(nil)
	}
	return &Engine{
		source:  source,
		prefs:   p,
		tuning:  tuning,
		clock:   clock,
		metrics: m,
		cache:   NewModelCache(0, m),
	}
}

// Cache exposes the model memo.
func (e *Engine) Cache() *ModelCache {
	return e.cache
}

// Tuning returns the engine constants.
func (e *Engine) Tuning() stats.Tuning {
	return e.tuning
}

func (e *Engine) load(ctx context.Context) ([]workday.Record, error) {
	timer := e.metrics.StartStep("load")
	records, err := e.source.Records(ctx)
	if err != nil {
		timer.Stop("error")
		return nil, fmt.Errorf("failed to load work day records: %w", err)
	}
	timer.Stop("ok")
	return records, nil
}

// Current returns the latest pipeline, rebuilding when the row history, the
// calendar day or a persisted preference has changed since it was built.
// Preferences are re-read so writes by another process are picked up.
func (e *Engine) Current(ctx context.Context) (*Pipeline, error) {
	records, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	fp := rowsFingerprint(records)
	today := e.clock.Today()
	key := stateKey(fp, today, e.prefs.HolidayDownweight(ctx), e.prefs.ModelScope(ctx), e.prefs.Dismissals(ctx))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.latest != nil && e.latest.StateKey == key {
		return e.latest, nil
	}
	var trigger string
	switch {
	case e.latest == nil:
		trigger = TriggerStartup
	case e.latest.RowsFingerprint != fp:
		trigger = TriggerRowsChanged
	case dates.FormatISO(e.latest.Today) != dates.FormatISO(today):
		trigger = TriggerDayChanged
	default:
		trigger = TriggerPreference
	}
	return e.rebuildLocked(ctx, records, fp, trigger), nil
}

// Rebuild runs a full pass. TriggerReload also drops every memoized model.
func (e *Engine) Rebuild(ctx context.Context, trigger string) (*Pipeline, error) {
	records, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if trigger == TriggerReload {
		e.cache.Invalidate()
	}
	return e.rebuildLocked(ctx, records, rowsFingerprint(records), trigger), nil
}

func (e *Engine) rebuildLocked(ctx context.Context, records []workday.Record, fp, trigger string) *Pipeline {
	e.metrics.Rebuild(trigger)
	today := e.clock.Today()

	p := &Pipeline{Today: today, RowsFingerprint: fp, Records: records}

	// 1. Annotate catch-up days
	timer := e.metrics.StartStep("annotate")
	annotated := stats.DetectHolidayCatchup(records, e.tuning.Catchup)
	p.Days = annotated.Days
	p.CatchupFlagged = annotated.Flagged
	timer.Stop("ok")

	// 2. Select and fit
	timer = e.metrics.StartStep("fit")
	p.Scope = e.prefs.ModelScope(ctx)
	p.FitDays = stats.SelectFitDays(p.Days, p.Scope, today, e.tuning.RollingDays)
	p.Weighting = stats.HolidayWeighting{
		Enabled: e.prefs.HolidayDownweight(ctx),
		Factor:  e.tuning.Catchup.RecommendedWeight,
	}
	p.Model, p.ModelKey = e.cache.Fit(p.FitDays, p.Weighting)
	if p.Model == nil {
		timer.Stop("no_model")
	} else {
		timer.Stop("ok")
	}

	// 3. Learn letter weights
	timer = e.metrics.StartStep("learn")
	p.LetterWeights = e.learnLetterWeights(ctx, p)
	timer.Stop("ok")

	// 4. Score residuals against the curated list
	timer = e.metrics.StartStep("residuals")
	p.Dismissals = e.prefs.Dismissals(ctx)
	p.Residuals = stats.AnalyzeResiduals(p.Model, p.Dismissals, e.tuning.Residuals)
	timer.Stop("ok")

	// 5. Weekday baselines
	timer = e.metrics.StartStep("baselines")
	p.Baselines = e.baselines(ctx, records, p.Today)
	timer.Stop("ok")

	p.StateKey = stateKey(fp, today, p.Weighting.Enabled, p.Scope, p.Dismissals)
	e.observe(p)
	e.latest = p

	ev := log.Debug().Str("trigger", trigger).Int("rows", len(records)).Int("fitRows", len(p.FitDays)).Str("scope", string(p.Scope))
	if p.Model != nil {
		ev = ev.Float64("r2", p.Model.DisplayR2()).Float64("bp", p.Model.BP).Float64("bl", p.Model.BL)
	}
	ev.Msg("Diagnostics rebuilt")
	return p
}

func (e *Engine) learnLetterWeights(ctx context.Context, p *Pipeline) LetterWeights {
	trailing := stats.TrailingWorkedDays(p.Days, e.tuning.LetterWeight.TrailingSample)
	return LetterWeights{
		Regression: e.learnLetterWeight(ctx, stats.StrategyRegression, p.ModelKey, p.Model, nil),
		Trailing:   e.learnLetterWeight(ctx, stats.StrategyTrailing, fingerprint(trailing), nil, p.Days),
	}
}

// learnLetterWeight folds one learned value into the persisted EMA. A source
// that was already folded in, by this or another process, leaves the weight
// untouched.
func (e *Engine) learnLetterWeight(ctx context.Context, strategy stats.LetterWeightStrategy, source string, model *stats.RegressionModel, days []stats.Day) stats.LetterWeightUpdate {
	prior := e.prefs.LetterWeight(ctx, strategy)
	if source != "" && e.prefs.LetterWeightSource(ctx, strategy) == source {
		return stats.LetterWeightUpdate{Strategy: strategy, Prior: prior, Current: prior}
	}
	u := e.tuning.LetterWeight.Update(strategy, prior, model, days)
	if u.Applied {
		e.prefs.SetLetterWeight(ctx, strategy, u.Current)
		e.prefs.SetLetterWeightSource(ctx, strategy, source)
	}
	return u
}

func (e *Engine) baselines(ctx context.Context, records []workday.Record, today time.Time) Baselines {
	var b Baselines
	b.Weekly, b.WeeklyCached = stats.EnsureWeeklyBaselines(records, today, e.prefs.BaselineCache(ctx))
	if b.WeeklyCached {
		e.metrics.CacheHit("weekly_baseline")
	} else {
		e.metrics.CacheMiss("weekly_baseline")
	}
	b.Anchor = stats.ComputeAnchorBaselines(records, today, e.tuning.AnchorWeeks)
	b.Drift = stats.ComputeBaselineDrift(b.Weekly, b.Anchor)
	return b
}

func (e *Engine) observe(p *Pipeline) {
	if e.metrics == nil {
		return
	}
	e.metrics.FitRows.Set(float64(len(p.FitDays)))
	if p.Model != nil {
		e.metrics.ModelR2.Set(p.Model.DisplayR2())
	} else {
		e.metrics.ModelR2.Set(0)
	}
	e.metrics.LetterWeight.WithLabelValues(string(stats.StrategyRegression)).Set(p.LetterWeights.Regression.Current)
	e.metrics.LetterWeight.WithLabelValues(string(stats.StrategyTrailing)).Set(p.LetterWeights.Trailing.Current)
	e.metrics.CatchupDays.Set(float64(p.CatchupFlagged))
	e.metrics.Dismissed.Set(float64(p.Residuals.DismissedCount))
}

// rowsFingerprint identifies a row history so unchanged data skips a rebuild.
func rowsFingerprint(records []workday.Record) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, r := range records {
		_ = enc.Encode(r)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func fingerprint(v any) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(v)
	return hex.EncodeToString(h.Sum(nil))
}

// stateKey covers every input a pipeline depends on.
func stateKey(rowsFP string, today time.Time, downweight bool, scope stats.ModelScope, dismissals []stats.DismissalEntry) string {
	if dismissals == nil {
		dismissals = []stats.DismissalEntry{}
	}
	return fingerprint(struct {
		Rows       string                 `json:"rows"`
		Today      string                 `json:"today"`
		Downweight bool                   `json:"downweight"`
		Scope      stats.ModelScope       `json:"scope"`
		Dismissals []stats.DismissalEntry `json:"dismissals"`
	}{rowsFP, dates.FormatISO(today), downweight, scope, dismissals})
}
