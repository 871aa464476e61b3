package stats

import (
	"slices"
	"testing"

	"routedash/internal/workday"
)

func hoursRecord(date string, parcels, letters int, route, office, miles float64) workday.Record {
	return workday.Record{
		Date:           date,
		Status:         workday.StatusWorked,
		Parcels:        parcels,
		Letters:        letters,
		RouteDuration:  fptr(route),
		OfficeDuration: fptr(office),
		Miles:          fptr(miles),
	}
}

func compareHistory() []workday.Record {
	vacation := hoursRecord("2024-02-12", 10, 10, 1, 1, 0)
	vacation.Annotations = "Reason: Vacation"
	return []workday.Record{
		hoursRecord("2024-02-19", 80, 200, 4, 1, 0),
		hoursRecord("2024-03-04", 120, 300, 6, 1.5, 20),
		vacation,
		hoursRecord("2024-02-26", 100, 300, 5, 1.5, 0),
		hoursRecord("2024-03-05", 90, 250, 5, 1, 10),
		offRecord("2024-03-11", "Holiday"),
	}
}

func deltaByKey(t *testing.T, deltas []MetricDelta, key string) MetricDelta {
	t.Helper()
	for _, d := range deltas {
		if d.Key == key {
			return d
		}
	}
	t.Fatalf("delta %s not found", key)
	return MetricDelta{}
}

func TestBuildCompareContext(t *testing.T) {
	ctx := BuildCompareContext(compareHistory(), 0, 0.33)
	if len(ctx.Records) != 4 {
		t.Fatalf("Expected 4 worked non-vacation records, got %d", len(ctx.Records))
	}
	if ctx.Records[0].Date != "2024-03-05" || ctx.Records[3].Date != "2024-02-19" {
		t.Errorf("Expected descending order, got %s..%s", ctx.Records[0].Date, ctx.Records[3].Date)
	}
	if _, ok := ctx.ByDate["2024-02-12"]; ok {
		t.Error("Expected vacation day to be excluded")
	}

	limited := BuildCompareContext(compareHistory(), 2, 0.33)
	if len(limited.Records) != 2 {
		t.Fatalf("Expected limit of 2, got %d", len(limited.Records))
	}
	if _, ok := limited.CompareDay("2024-03-04", CompareLast, ""); ok {
		t.Error("Expected no last-weekday reference beyond the window")
	}
}

func TestCompareDay_Last(t *testing.T) {
	ctx := BuildCompareContext(compareHistory(), 0, 0.33)
	res, ok := ctx.CompareDay("2024-03-04", CompareLast, "")
	if !ok {
		t.Fatal("Expected a comparison")
	}
	if res.ReferenceISO != "2024-02-26" {
		t.Errorf("Expected reference 2024-02-26, got %s", res.ReferenceISO)
	}
	if len(res.Deltas) != 8 {
		t.Fatalf("Expected 8 deltas, got %d", len(res.Deltas))
	}

	parcels := deltaByKey(t, res.Deltas, "parcels")
	if *parcels.Delta != 20 || *parcels.Percent != 20 || parcels.Tone != TonePositive {
		t.Errorf("Unexpected parcels delta: %+v", parcels)
	}

	letters := deltaByKey(t, res.Deltas, "letters")
	if *letters.Delta != 0 || letters.Tone != ToneNeutral {
		t.Errorf("Expected neutral letters delta, got %+v", letters)
	}

	miles := deltaByKey(t, res.Deltas, "miles")
	if miles.Percent != nil || *miles.Delta != 20 {
		t.Errorf("Expected absolute-only miles delta, got %+v", miles)
	}

	eff := deltaByKey(t, res.Deltas, "efficiencyMinutes")
	if eff.Tone != ToneNegative {
		t.Errorf("Expected slower minutes per volume to be negative, got %s", eff.Tone)
	}

	if len(res.Highlights) != 3 {
		t.Fatalf("Expected 3 highlights, got %d", len(res.Highlights))
	}
	var keys []string
	for _, h := range res.Highlights {
		keys = append(keys, h.Key)
	}
	for _, want := range []string{"miles", "routeHours", "parcels"} {
		if !slices.Contains(keys, want) {
			t.Errorf("Expected %s among highlights, got %v", want, keys)
		}
	}
}

func TestCompareDay_Baseline(t *testing.T) {
	ctx := BuildCompareContext(compareHistory(), 0, 0.33)
	res, ok := ctx.CompareDay("2024-03-04", CompareBaseline, "")
	if !ok {
		t.Fatal("Expected a comparison")
	}
	if res.Reference.Label != "Weekday average (2 days)" {
		t.Errorf("Unexpected label %q", res.Reference.Label)
	}
	if res.Reference.Parcels != 90 || res.Reference.RouteHours != 4.5 {
		t.Errorf("Expected averaged reference 90 parcels and 4.5h, got %+v", res.Reference)
	}
	if res.ReferenceISO != "" {
		t.Errorf("Expected no reference date for an average, got %s", res.ReferenceISO)
	}
}

func TestCompareDay_ManualAndMissing(t *testing.T) {
	ctx := BuildCompareContext(compareHistory(), 0, 0.33)

	res, ok := ctx.CompareDay("2024-03-04", CompareManual, "2024-03-05")
	if !ok || res.ReferenceISO != "2024-03-05" {
		t.Fatalf("Expected manual comparison against 2024-03-05, got %+v", res)
	}

	tests := []struct {
		name    string
		subject string
		mode    CompareMode
		manual  string
	}{
		{"UnknownSubject", "2024-01-01", CompareLast, ""},
		{"OffDaySubject", "2024-03-11", CompareLast, ""},
		{"NoEarlierWeekday", "2024-02-19", CompareLast, ""},
		{"NoEarlierTuesday", "2024-03-05", CompareBaseline, ""},
		{"ManualVacation", "2024-03-04", CompareManual, "2024-02-12"},
		{"ManualSelf", "2024-03-04", CompareManual, "2024-03-04"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ctx.CompareDay(tt.subject, tt.mode, tt.manual); ok {
				t.Error("Expected no comparison")
			}
		})
	}
}

func TestParseCompareMode(t *testing.T) {
	if ParseCompareMode("Baseline") != CompareBaseline || ParseCompareMode("manual") != CompareManual || ParseCompareMode("x") != CompareLast {
		t.Error("Unexpected compare mode parsing")
	}
}
