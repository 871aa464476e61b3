package stats

import (
	"strings"
	"time"

	"routedash/internal/dates"
)

// ModelScope selects how much history feeds the diagnostics model.
type ModelScope string

const (
	ScopeRolling ModelScope = "rolling"
	ScopeAll     ModelScope = "all"
)

// DefaultRollingDays is the trailing window for ScopeRolling.
const DefaultRollingDays = 120

// ParseModelScope maps a stored preference to a scope, defaulting to rolling.
func ParseModelScope(s string) ModelScope {
	if ModelScope(strings.ToLower(strings.TrimSpace(s))) == ScopeAll {
		return ScopeAll
	}
	return ScopeRolling
}

// SelectFitDays keeps worked days with volume and a route duration that fall
// inside the scope window ending today.
func SelectFitDays(days []Day, scope ModelScope, today time.Time, rollingDays int) []Day {
	if rollingDays <= 0 {
		rollingDays = DefaultRollingDays
	}
	start := today.AddDate(0, 0, -rollingDays)

	var out []Day
	for _, d := range days {
		if !d.IsWorked() || !d.HasVolume() {
			continue
		}
		if _, ok := d.RouteMinutes(); !ok {
			continue
		}
		if scope == ScopeRolling && !dates.InRange(d.Date, start, today) {
			continue
		}
		out = append(out, d)
	}
	return out
}
