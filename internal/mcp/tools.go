package mcp

import (
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type fitModelInput struct {
	Fresh bool `json:"fresh,omitempty" jsonschema:"reload the day rows and drop memoized fits before fitting"`
}

type residualTableInput struct {
	IncludeAll bool `json:"include_all,omitempty" jsonschema:"return every scored residual instead of only the ranked top list"`
}

type dismissDayInput struct {
	Date    string `json:"date" jsonschema:"day to dismiss as YYYY-MM-DD"`
	Reasons string `json:"reasons" jsonschema:"free text reasons separated by commas or semicolons with optional minutes such as Weather +10"`
}

type dateInput struct {
	Date string `json:"date" jsonschema:"day as YYYY-MM-DD"`
}

type compareDaysInput struct {
	Date string `json:"date" jsonschema:"subject day as YYYY-MM-DD"`
	Mode string `json:"mode,omitempty" jsonschema:"reference selection: last (default) or baseline or manual"`
	Ref  string `json:"ref,omitempty" jsonschema:"reference day as YYYY-MM-DD when mode is manual"`
}

type holidayDownweightInput struct {
	Enabled bool `json:"enabled" jsonschema:"whether holiday catch-up days are downweighted in the fit"`
}

type modelScopeInput struct {
	Scope string `json:"scope" jsonschema:"rolling for the trailing window or all for the full history"`
}

type emptyInput struct{}

func (s *Server) registerTools(server *sdk.Server) {
	sdk.AddTool(server, &sdk.Tool{
		Name:        "fit_model",
		Description: "Fit the route-minutes regression on parcels and letters and report coefficients, R2 and holiday weighting. Guidance: Call 'residual_table' next to find anomalous days.",
	}, adapt("fit_model", s.handleFitModel))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "residual_table",
		Description: "List days whose actual route minutes deviate most from the model, with z-scores and outlier flags. Dismissed days are excluded from the ranking and the pooled statistics.",
	}, adapt("residual_table", s.handleResidualTable))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "dismiss_day",
		Description: "Dismiss a day from anomaly statistics with one or more reasons (e.g. 'Weather +10, Late mail'). The regression itself is not refit without the day.",
	}, adapt("dismiss_day", s.handleDismissDay))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "reinstate_day",
		Description: "Remove a dismissal so the day counts again in anomaly statistics.",
	}, adapt("reinstate_day", s.handleReinstateDay))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "compare_days",
		Description: "Compare a day against the last same weekday, the weekday average, or a chosen day. Returns per-metric deltas and the largest movers.",
	}, adapt("compare_days", s.handleCompareDays))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "weekday_baselines",
		Description: "Report weekday volume baselines for the current week, the long-run anchor and the drift between them.",
	}, adapt("weekday_baselines", s.handleWeekdayBaselines))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "diagnostics_context",
		Description: "Return the full diagnostics snapshot: model, residual summary, catch-up days, letter weights and baselines. Guidance: Use this as background before explaining a day.",
	}, adapt("diagnostics_context", s.handleDiagnosticsContext))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "set_holiday_downweight",
		Description: "Turn downweighting of post-holiday catch-up days in the fit on or off.",
	}, adapt("set_holiday_downweight", s.handleSetHolidayDownweight))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "set_model_scope",
		Description: "Choose whether the model fits the rolling window or the full history.",
	}, adapt("set_model_scope", s.handleSetModelScope))
}
