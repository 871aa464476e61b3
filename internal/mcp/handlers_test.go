package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routedash/internal/dates"
	"routedash/internal/diagnostics"
	"routedash/internal/prefs"
	"routedash/internal/stats"
	"routedash/internal/workday"
)

const outlierDay = "2024-02-15"

func fptr(v float64) *float64 { return &v }

// records spans 2024-02-01..2024-03-11, weekends off, with one slow day.
func records() []workday.Record {
	var out []workday.Record
	for i := 0; i < 40; i++ {
		iso := dates.AddDaysISO("2024-02-01", i)
		if dates.MondayIndexISO(iso) >= 5 {
			out = append(out, workday.Record{Date: iso, Status: workday.StatusOff})
			continue
		}
		p := 70 + (i*31)%60
		l := 250 + (i*47)%200
		route := 60 + 1.5*float64(p) + 0.2*float64(l) + float64((i*7)%5) - 2
		if iso == outlierDay {
			route += 60
		}
		out = append(out, workday.Record{
			Date:          iso,
			Status:        workday.StatusWorked,
			Parcels:       p,
			Letters:       l,
			RouteDuration: fptr(route),
			Miles:         fptr(20),
		})
	}
	return out
}

func newTestServer() *Server {
	store := workday.NewStore()
	store.Upsert(records()...)
	clock := dates.FixedClock(time.Date(2024, time.March, 13, 9, 0, 0, 0, time.UTC))
	engine := diagnostics.NewEngine(store, prefs.New(prefs.NewMemoryStore()), stats.DefaultTuning(), clock, nil)
	return NewServer(engine, "test")
}

func TestHandleFitModel(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.handleFitModel(ctx, fitModelInput{})
	require.NoError(t, err)
	summary := res.Data.(fitSummary)
	require.NotNil(t, summary.Model)
	assert.Equal(t, stats.ScopeRolling, summary.Scope)
	assert.Equal(t, 28, summary.FitRows)
	assert.Empty(t, res.Warnings)

	fresh, err := s.handleFitModel(ctx, fitModelInput{Fresh: true})
	require.NoError(t, err)
	assert.Equal(t, summary.Model.BP, fresh.Data.(fitSummary).Model.BP)
}

func TestHandleResidualTable(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.handleResidualTable(ctx, residualTableInput{})
	require.NoError(t, err)
	report := res.Data.(stats.ResidualReport)
	require.NotEmpty(t, report.Ranked)
	assert.Equal(t, outlierDay, report.Ranked[0].ISO)
	assert.True(t, report.Ranked[0].Outlier)
	assert.Nil(t, report.All)
	assert.NotEmpty(t, res.Guidance)

	full, err := s.handleResidualTable(ctx, residualTableInput{IncludeAll: true})
	require.NoError(t, err)
	assert.Len(t, full.Data.(stats.ResidualReport).All, 28)
}

func TestDismissAndReinstateFlow(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.handleDismissDay(ctx, dismissDayInput{Date: outlierDay, Reasons: "Weather +30, Late mail"})
	require.NoError(t, err)
	dismissed := res.Data.(diagnostics.DismissResult)
	assert.True(t, dismissed.Applied)
	require.NotNil(t, dismissed.Entry)
	assert.Len(t, dismissed.Entry.Tags, 2)

	table, err := s.handleResidualTable(ctx, residualTableInput{})
	require.NoError(t, err)
	report := table.Data.(stats.ResidualReport)
	assert.Equal(t, 1, report.DismissedCount)
	for _, r := range report.Ranked {
		assert.NotEqual(t, outlierDay, r.ISO)
	}

	back, err := s.handleReinstateDay(ctx, dateInput{Date: outlierDay})
	require.NoError(t, err)
	assert.Equal(t, true, back.Data.(map[string]any)["reinstated"])

	again, err := s.handleReinstateDay(ctx, dateInput{Date: outlierDay})
	require.NoError(t, err)
	assert.NotEmpty(t, again.Warnings)
}

func TestHandleDismissDay_Validation(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, err := s.handleDismissDay(ctx, dismissDayInput{Date: "02/15/2024", Reasons: "Weather"})
	assert.True(t, errors.Is(err, diagnostics.ErrInvalidDate))

	res, err := s.handleDismissDay(ctx, dismissDayInput{Date: outlierDay, Reasons: " ; "})
	require.NoError(t, err)
	assert.False(t, res.Data.(diagnostics.DismissResult).Applied)
	assert.NotEmpty(t, res.Warnings)
}

func TestHandleCompareDays(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.handleCompareDays(ctx, compareDaysInput{Date: outlierDay})
	require.NoError(t, err)
	cmp := res.Data.(*stats.DayComparison)
	assert.Equal(t, stats.CompareLast, cmp.Mode)
	assert.Equal(t, "2024-02-08", cmp.ReferenceISO)

	_, err = s.handleCompareDays(ctx, compareDaysInput{Date: outlierDay, Mode: "manual"})
	assert.Error(t, err)

	manual, err := s.handleCompareDays(ctx, compareDaysInput{Date: outlierDay, Mode: "manual", Ref: "2024-02-14"})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-14", manual.Data.(*stats.DayComparison).ReferenceISO)

	// The first Thursday has no earlier Thursday to compare with.
	_, err = s.handleCompareDays(ctx, compareDaysInput{Date: "2024-02-01"})
	assert.Error(t, err)
}

func TestHandlePreferences(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	_, err := s.handleSetModelScope(ctx, modelScopeInput{Scope: "weekly"})
	assert.Error(t, err)

	res, err := s.handleSetModelScope(ctx, modelScopeInput{Scope: " ALL "})
	require.NoError(t, err)
	assert.Equal(t, stats.ScopeAll, res.Data.(map[string]any)["scope"])

	hw, err := s.handleSetHolidayDownweight(ctx, holidayDownweightInput{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, true, hw.Data.(map[string]any)["enabled"])

	c, err := s.handleDiagnosticsContext(ctx, emptyInput{})
	require.NoError(t, err)
	snap := c.Data.(diagnostics.Context)
	assert.True(t, snap.HolidayDownweight)
	assert.Equal(t, stats.ScopeAll, snap.Scope)
}

func TestAdapt(t *testing.T) {
	ctx := context.Background()

	ok := adapt("ok", func(context.Context, emptyInput) (Response, error) {
		return WrapResponse(map[string]int{"n": 1}, nil, []string{"next"}), nil
	})
	res, _, err := ok(ctx, nil, emptyInput{})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := res.Content[0].(*sdk.TextContent).Text
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	assert.Equal(t, []any{"next"}, decoded["guidance"])

	fail := adapt("fail", func(context.Context, emptyInput) (Response, error) {
		return Response{}, errors.New("boom")
	})
	res, _, err = fail(ctx, nil, emptyInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "boom", res.Content[0].(*sdk.TextContent).Text)
}

func TestServer_InMemorySession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	ss, err := newTestServer().Build().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"fit_model", "residual_table", "dismiss_day", "reinstate_day", "compare_days",
		"weekday_baselines", "diagnostics_context", "set_holiday_downweight", "set_model_scope",
	}, names)

	res, err := cs.CallTool(ctx, &sdk.CallToolParams{Name: "weekday_baselines", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].(*sdk.TextContent).Text, `"weekly"`)
}
