package stats

import (
	"math"
	"testing"

	"routedash/internal/workday"
)

// Tuesdays in January 2024: 2, 9, 16, 23, 30. Monday the 22nd is the holiday.
func tuesdayHistory() []workday.Record {
	return []workday.Record{
		workedRecord("2024-01-02", 100, 200, 300),
		workedRecord("2024-01-09", 100, 200, 300),
		workedRecord("2024-01-16", 100, 200, 300),
		offRecord("2024-01-22", "Holiday: Observed"),
	}
}

func findDay(t *testing.T, res CatchupResult, iso string) Day {
	t.Helper()
	for _, d := range res.Days {
		if d.Date == iso {
			return d
		}
	}
	t.Fatalf("day %s not found", iso)
	return Day{}
}

func TestDetectHolidayCatchup_Triggers(t *testing.T) {
	tests := []struct {
		name     string
		day      workday.Record
		flagged  bool
		triggers []string
	}{
		{"ParcelsSpike", workedRecord("2024-01-23", 130, 200, 300), true, []string{"parcels"}},
		{"LettersSpike", workedRecord("2024-01-23", 100, 250, 300), true, []string{"letters"}},
		{"RouteSpike", workedRecord("2024-01-23", 100, 200, 350), true, []string{"route"}},
		{"AllSpike", workedRecord("2024-01-23", 200, 400, 500), true, []string{"parcels", "letters", "route"}},
		{"BelowThresholds", workedRecord("2024-01-23", 110, 240, 320), false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := append(tuesdayHistory(), tt.day)
			res := DetectHolidayCatchup(records, DefaultCatchupThresholds())
			d := findDay(t, res, "2024-01-23")

			if d.HasTag(TagHolidayCatchup) != tt.flagged || d.HasTag(TagPostHoliday) != tt.flagged {
				t.Fatalf("Expected flagged=%v, got tags %v", tt.flagged, d.Tags)
			}
			if !tt.flagged {
				if d.Catchup != nil {
					t.Error("Expected no context for an unflagged day")
				}
				return
			}
			if len(d.Catchup.Triggers) != len(tt.triggers) {
				t.Fatalf("Expected triggers %v, got %v", tt.triggers, d.Catchup.Triggers)
			}
			for i, tr := range tt.triggers {
				if d.Catchup.Triggers[i] != tr {
					t.Errorf("Expected trigger %s at %d, got %s", tr, i, d.Catchup.Triggers[i])
				}
			}
			if d.Catchup.HolidayDate != "2024-01-22" || d.Catchup.HolidayName != "Observed" {
				t.Errorf("Unexpected holiday reference: %+v", d.Catchup)
			}
			if d.Catchup.SampleSize != 3 || d.Catchup.RecommendedWeight != 0.65 {
				t.Errorf("Unexpected sample size or weight: %+v", d.Catchup)
			}
		})
	}
}

func TestDetectHolidayCatchup_IsCausal(t *testing.T) {
	records := append(tuesdayHistory(),
		workedRecord("2024-01-23", 130, 200, 300),
		workedRecord("2024-01-30", 1000, 2000, 900),
	)
	res := DetectHolidayCatchup(records, DefaultCatchupThresholds())
	d := findDay(t, res, "2024-01-23")

	if d.Catchup == nil {
		t.Fatal("Expected catch-up context")
	}
	if d.Catchup.BaselineParcels != 100 || d.Catchup.BaselineLetters != 200 || d.Catchup.BaselineRouteMinutes != 300 {
		t.Errorf("Baseline leaked later or same-day values: %+v", d.Catchup)
	}
	if math.Abs(*d.Catchup.ParcelsRatio-1.3) > 1e-12 {
		t.Errorf("Expected parcels ratio 1.3, got %v", *d.Catchup.ParcelsRatio)
	}

	// Tuesday bucket holds all five worked Tuesdays after the fold.
	tue := res.Buckets[1]
	if tue.Count != 5 || tue.ParcelsSum != 1430 {
		t.Errorf("Unexpected final Tuesday bucket: %+v", tue)
	}
	if res.Flagged != 1 {
		t.Errorf("Expected 1 flagged day, got %d", res.Flagged)
	}
}

func TestDetectHolidayCatchup_RequiresHolidayOffDay(t *testing.T) {
	tests := []struct {
		name     string
		previous workday.Record
	}{
		{"WorkedDayBefore", workedRecord("2024-01-22", 100, 200, 300)},
		{"PlainOffDayBefore", offRecord("2024-01-22", "Reason: Sick")},
		{"WorkedHolidayBefore", workday.Record{Date: "2024-01-22", Status: workday.StatusWorked, Annotations: "Holiday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []workday.Record{
				workedRecord("2024-01-02", 100, 200, 300),
				workedRecord("2024-01-09", 100, 200, 300),
				tt.previous,
				workedRecord("2024-01-23", 900, 2000, 800),
			}
			res := DetectHolidayCatchup(records, DefaultCatchupThresholds())
			if d := findDay(t, res, "2024-01-23"); len(d.Tags) != 0 {
				t.Errorf("Expected no tags without a preceding holiday off-day, got %v", d.Tags)
			}
		})
	}
}

func TestDetectHolidayCatchup_NoBaselineNoFlag(t *testing.T) {
	records := []workday.Record{
		offRecord("2024-01-22", "Holiday"),
		workedRecord("2024-01-23", 900, 2000, 800),
	}
	res := DetectHolidayCatchup(records, DefaultCatchupThresholds())
	if d := findDay(t, res, "2024-01-23"); d.HasTag(TagHolidayCatchup) {
		t.Error("Expected no flag without same-weekday history")
	}
}

func TestDetectHolidayCatchup_UnsortedInputAndEmptyDays(t *testing.T) {
	records := []workday.Record{
		workedRecord("2024-01-23", 130, 200, 300),
		offRecord("2024-01-22", "Holiday"),
		{Date: "2024-01-16", Status: workday.StatusWorked}, // no volume, no route
		workedRecord("2024-01-09", 100, 200, 300),
	}
	res := DetectHolidayCatchup(records, DefaultCatchupThresholds())

	if res.Days[0].Date != "2024-01-09" || res.Days[len(res.Days)-1].Date != "2024-01-23" {
		t.Errorf("Expected ascending output, got %s..%s", res.Days[0].Date, res.Days[len(res.Days)-1].Date)
	}
	d := findDay(t, res, "2024-01-23")
	if d.Catchup == nil || d.Catchup.SampleSize != 1 {
		t.Errorf("Expected empty day to be left out of the bucket, got %+v", d.Catchup)
	}
}
