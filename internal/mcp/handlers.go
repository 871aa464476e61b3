package mcp

import (
	"context"
	"fmt"
	"strings"

	"routedash/internal/diagnostics"
	"routedash/internal/stats"
)

// fitSummary is the fit_model payload.
type fitSummary struct {
	Model          *diagnostics.ModelSummary `json:"model"`
	Scope          stats.ModelScope          `json:"scope"`
	FitRows        int                       `json:"fitRows"`
	CatchupFlagged int                       `json:"catchupFlagged"`
	LetterWeight   float64                   `json:"letterWeight"`
}

func (s *Server) handleFitModel(ctx context.Context, in fitModelInput) (Response, error) {
	var (
		p   *diagnostics.Pipeline
		err error
	)
	if in.Fresh {
		p, err = s.engine.Rebuild(ctx, diagnostics.TriggerReload)
	} else {
		p, err = s.engine.Current(ctx)
	}
	if err != nil {
		return Response{}, err
	}

	snap := diagnostics.Snapshot(p, p.Today)
	res := fitSummary{
		Model:          snap.Model,
		Scope:          p.Scope,
		FitRows:        len(p.FitDays),
		CatchupFlagged: p.CatchupFlagged,
		LetterWeight:   p.LetterWeight(),
	}

	var warnings, guidance []string
	if res.Model == nil {
		warnings = append(warnings, "Not enough usable worked days to fit a model (need at least 3 with volume and route time).")
		return WrapResponse(res, warnings, nil), nil
	}
	if res.Model.R2 < 0.3 {
		warnings = append(warnings, fmt.Sprintf("Low fit quality (R2 %.2f); volume explains little of the route time.", res.Model.R2))
	}
	if p.CatchupFlagged > 0 && !p.Weighting.Enabled {
		guidance = append(guidance, fmt.Sprintf("%d post-holiday catch-up days were found; consider 'set_holiday_downweight' with enabled=true.", p.CatchupFlagged))
	}
	return WrapResponse(res, warnings, guidance), nil
}

func (s *Server) handleResidualTable(ctx context.Context, in residualTableInput) (Response, error) {
	p, err := s.engine.Current(ctx)
	if err != nil {
		return Response{}, err
	}
	if p.Model == nil {
		return WrapResponse(stats.ResidualReport{}, []string{"No model available; residuals cannot be computed."}, nil), nil
	}

	report := p.Residuals
	if !in.IncludeAll {
		report.All = nil
	}

	var guidance []string
	outliers := 0
	for _, r := range report.Ranked {
		if r.Outlier {
			outliers++
		}
	}
	if outliers > 0 {
		guidance = append(guidance, fmt.Sprintf("%d ranked days are outliers. Use 'compare_days' to explain one, or 'dismiss_day' if the cause is known.", outliers))
	}
	return WrapResponse(report, nil, guidance), nil
}

func (s *Server) handleDismissDay(ctx context.Context, in dismissDayInput) (Response, error) {
	res, err := s.engine.Dismiss(ctx, in.Date, in.Reasons)
	if err != nil {
		return Response{}, err
	}
	if !res.Applied {
		return WrapResponse(res, []string{"No reason was recognized; nothing was dismissed."}, nil), nil
	}
	return WrapResponse(res, nil, nil), nil
}

func (s *Server) handleReinstateDay(ctx context.Context, in dateInput) (Response, error) {
	removed, err := s.engine.Reinstate(ctx, in.Date)
	if err != nil {
		return Response{}, err
	}
	res := map[string]any{"iso": in.Date, "reinstated": removed}
	if !removed {
		return WrapResponse(res, []string{fmt.Sprintf("%s was not dismissed.", in.Date)}, nil), nil
	}
	return WrapResponse(res, nil, nil), nil
}

func (s *Server) handleCompareDays(ctx context.Context, in compareDaysInput) (Response, error) {
	mode := stats.ParseCompareMode(in.Mode)
	if mode == stats.CompareManual && strings.TrimSpace(in.Ref) == "" {
		return Response{}, fmt.Errorf("mode manual requires a ref date")
	}

	result, ok, err := s.engine.Compare(ctx, in.Date, mode, in.Ref)
	if err != nil {
		return Response{}, err
	}
	if !ok {
		return Response{}, fmt.Errorf("no %s reference available for %s", mode, in.Date)
	}
	return WrapResponse(result, nil, nil), nil
}

func (s *Server) handleWeekdayBaselines(ctx context.Context, _ emptyInput) (Response, error) {
	p, err := s.engine.Current(ctx)
	if err != nil {
		return Response{}, err
	}
	return WrapResponse(p.Baselines, nil, nil), nil
}

func (s *Server) handleDiagnosticsContext(ctx context.Context, _ emptyInput) (Response, error) {
	c, err := s.engine.Context(ctx)
	if err != nil {
		return Response{}, err
	}
	return WrapResponse(c, nil, nil), nil
}

func (s *Server) handleSetHolidayDownweight(ctx context.Context, in holidayDownweightInput) (Response, error) {
	p, err := s.engine.SetHolidayDownweight(ctx, in.Enabled)
	if err != nil {
		return Response{}, err
	}
	return WrapResponse(map[string]any{
		"enabled":  p.Weighting.Enabled,
		"modelKey": p.ModelKey,
		"model":    diagnostics.Snapshot(p, p.Today).Model,
	}, nil, nil), nil
}

func (s *Server) handleSetModelScope(ctx context.Context, in modelScopeInput) (Response, error) {
	raw := strings.ToLower(strings.TrimSpace(in.Scope))
	if raw != string(stats.ScopeRolling) && raw != string(stats.ScopeAll) {
		return Response{}, fmt.Errorf("unknown scope %q: use rolling or all", in.Scope)
	}
	p, err := s.engine.SetModelScope(ctx, stats.ParseModelScope(raw))
	if err != nil {
		return Response{}, err
	}
	return WrapResponse(map[string]any{
		"scope":   p.Scope,
		"fitRows": len(p.FitDays),
		"model":   diagnostics.Snapshot(p, p.Today).Model,
	}, nil, nil), nil
}
