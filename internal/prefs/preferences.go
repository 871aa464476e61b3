package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"routedash/internal/stats"
)

// Preference keys.
const (
	KeyLetterWeight      = "letterWeight"
	KeyChartLetterWeight = "chartLetterWeight"
	KeyHolidayDownweight = "holidayDownweight"
	KeyDismissals        = "residualDismissals"
	KeyWeeklyBaseline    = "weeklyBaseline"
	KeyModelScope        = "modelScope"

	KeyLetterWeightSource      = "letterWeightSource"
	KeyChartLetterWeightSource = "chartLetterWeightSource"
)

const opTimeout = 5 * time.Second

// Preferences is the typed view over a Store. Read failures log and fall back
// to defaults; write failures log and are dropped. Analytics never fail
// because a preference could not be read or written.
type Preferences struct {
	store Store
}

// New wraps a Store.
func New(store Store) *Preferences {
	return &Preferences{store: store}
}

func (p *Preferences) read(ctx context.Context, key string, dst any) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("Failed to read preference, using default")
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Malformed preference, using default")
		return false
	}
	return true
}

func (p *Preferences) write(ctx context.Context, key string, v any) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to encode preference")
		return
	}
	if err := p.store.Set(ctx, key, data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to persist preference")
	}
}

func letterWeightKey(strategy stats.LetterWeightStrategy) string {
	if strategy == stats.StrategyTrailing {
		return KeyChartLetterWeight
	}
	return KeyLetterWeight
}

func letterWeightSourceKey(strategy stats.LetterWeightStrategy) string {
	if strategy == stats.StrategyTrailing {
		return KeyChartLetterWeightSource
	}
	return KeyLetterWeightSource
}

// LetterWeight returns the persisted weight for a strategy, or the default.
// Non-finite and negative values are treated as absent.
func (p *Preferences) LetterWeight(ctx context.Context, strategy stats.LetterWeightStrategy) float64 {
	var w float64
	if !p.read(ctx, letterWeightKey(strategy), &w) || !(w >= 0) {
		return stats.DefaultLetterWeight
	}
	return w
}

// SetLetterWeight persists the weight for a strategy.
func (p *Preferences) SetLetterWeight(ctx context.Context, strategy stats.LetterWeightStrategy, w float64) {
	p.write(ctx, letterWeightKey(strategy), w)
}

// LetterWeightSource returns the fingerprint of the data last folded into a
// strategy's weight, or "" when none was recorded.
func (p *Preferences) LetterWeightSource(ctx context.Context, strategy stats.LetterWeightStrategy) string {
	var src string
	p.read(ctx, letterWeightSourceKey(strategy), &src)
	return src
}

// SetLetterWeightSource records the fingerprint a strategy's weight was learned from.
func (p *Preferences) SetLetterWeightSource(ctx context.Context, strategy stats.LetterWeightStrategy, source string) {
	p.write(ctx, letterWeightSourceKey(strategy), source)
}

// HolidayDownweight reports whether catch-up days are downweighted. Off by default.
func (p *Preferences) HolidayDownweight(ctx context.Context) bool {
	var on bool
	p.read(ctx, KeyHolidayDownweight, &on)
	return on
}

// SetHolidayDownweight toggles catch-up downweighting.
func (p *Preferences) SetHolidayDownweight(ctx context.Context, on bool) {
	p.write(ctx, KeyHolidayDownweight, on)
}

// ModelScope returns the persisted fit scope.
func (p *Preferences) ModelScope(ctx context.Context) stats.ModelScope {
	var s string
	p.read(ctx, KeyModelScope, &s)
	return stats.ParseModelScope(s)
}

// SetModelScope persists the fit scope.
func (p *Preferences) SetModelScope(ctx context.Context, scope stats.ModelScope) {
	p.write(ctx, KeyModelScope, string(scope))
}

// Dismissals returns the curated dismissal list. Entries without a date are dropped.
func (p *Preferences) Dismissals(ctx context.Context) []stats.DismissalEntry {
	var list []stats.DismissalEntry
	if !p.read(ctx, KeyDismissals, &list) {
		return nil
	}
	out := list[:0]
	for _, e := range list {
		if e.ISO != "" {
			out = append(out, e)
		}
	}
	return out
}

// SetDismissals replaces the dismissal list.
func (p *Preferences) SetDismissals(ctx context.Context, list []stats.DismissalEntry) {
	if list == nil {
		list = []stats.DismissalEntry{}
	}
	p.write(ctx, KeyDismissals, list)
}

// BaselineCache binds the weekly baseline snapshot to ctx.
func (p *Preferences) BaselineCache(ctx context.Context) stats.BaselineCache {
	return baselineCache{ctx: ctx, p: p}
}

type baselineCache struct {
	ctx context.Context
	p   *Preferences
}

func (b baselineCache) WeeklyBaseline() (stats.WeekdayBaselineSnapshot, bool) {
	var snap stats.WeekdayBaselineSnapshot
	if !b.p.read(b.ctx, KeyWeeklyBaseline, &snap) || snap.WeekStartISO == "" {
		return stats.WeekdayBaselineSnapshot{}, false
	}
	return snap, true
}

func (b baselineCache) SetWeeklyBaseline(snap stats.WeekdayBaselineSnapshot) {
	b.p.write(b.ctx, KeyWeeklyBaseline, snap)
}
