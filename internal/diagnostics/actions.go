package diagnostics

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"routedash/internal/dates"
	"routedash/internal/stats"
)

// DismissResult reports the outcome of a dismissal request.
type DismissResult struct {
	ISO     string                `json:"iso"`
	Applied bool                  `json:"applied"`
	Reasons []stats.ParsedReason  `json:"reasons"`
	Entry   *stats.DismissalEntry `json:"entry,omitempty"`
}

func validDate(iso string) error {
	if _, err := dates.ParseISO(iso); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, iso)
	}
	return nil
}

// Dismiss parses free-text reasons and replaces the dismissal entry for iso.
// Input without any reason leaves the persisted list untouched.
func (e *Engine) Dismiss(ctx context.Context, iso, input string) (DismissResult, error) {
	if err := validDate(iso); err != nil {
		return DismissResult{}, err
	}

	reasons := stats.ParseDismissReasonInput(input)
	res := DismissResult{ISO: iso, Reasons: reasons}
	if len(reasons) == 0 {
		log.Info().Str("date", iso).Msg("Dismissal cancelled, no reason given")
		return res, nil
	}

	list, ok := stats.DismissDay(e.prefs.Dismissals(ctx), iso, reasons, e.clock.Now())
	if !ok {
		return res, nil
	}
	e.prefs.SetDismissals(ctx, list)
	for i := range list {
		if list[i].ISO == iso {
			entry := list[i]
			res.Entry = &entry
		}
	}
	res.Applied = true

	if _, err := e.Rebuild(ctx, TriggerDismiss); err != nil {
		return res, err
	}
	log.Info().Str("date", iso).Int("reasons", len(reasons)).Msg("Day dismissed from anomaly statistics")
	return res, nil
}

// Reinstate removes the dismissal for iso. It reports whether one existed.
func (e *Engine) Reinstate(ctx context.Context, iso string) (bool, error) {
	if err := validDate(iso); err != nil {
		return false, err
	}

	list, removed := stats.ReinstateDay(e.prefs.Dismissals(ctx), iso)
	if !removed {
		return false, nil
	}
	e.prefs.SetDismissals(ctx, list)

	if _, err := e.Rebuild(ctx, TriggerReinstate); err != nil {
		return true, err
	}
	log.Info().Str("date", iso).Msg("Day reinstated")
	return true, nil
}

// SetHolidayDownweight persists the toggle and rebuilds. The new policy
// fingerprint selects a different memo entry.
func (e *Engine) SetHolidayDownweight(ctx context.Context, on bool) (*Pipeline, error) {
	e.prefs.SetHolidayDownweight(ctx, on)
	log.Info().Bool("enabled", on).Msg("Holiday downweighting changed")
	return e.Rebuild(ctx, TriggerPreference)
}

// SetModelScope persists the fit scope and rebuilds.
func (e *Engine) SetModelScope(ctx context.Context, scope stats.ModelScope) (*Pipeline, error) {
	e.prefs.SetModelScope(ctx, scope)
	log.Info().Str("scope", string(scope)).Msg("Model scope changed")
	return e.Rebuild(ctx, TriggerPreference)
}

// Compare compares iso against a reference chosen by mode using the current
// pipeline's letter weight. The second result is false when no reference exists.
func (e *Engine) Compare(ctx context.Context, iso string, mode stats.CompareMode, refISO string) (*stats.DayComparison, bool, error) {
	if err := validDate(iso); err != nil {
		return nil, false, err
	}
	if mode == stats.CompareManual {
		if err := validDate(refISO); err != nil {
			return nil, false, err
		}
	}

	p, err := e.Current(ctx)
	if err != nil {
		return nil, false, err
	}
	cc := stats.BuildCompareContext(p.Records, e.tuning.CompareWindow, p.LetterWeight())
	result, ok := cc.CompareDay(iso, mode, refISO)
	return result, ok, nil
}
