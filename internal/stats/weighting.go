package stats

import "fmt"

// HolidayWeighting is the weighting policy for holiday catch-up days.
type HolidayWeighting struct {
	Enabled bool    `json:"enabled"`
	Factor  float64 `json:"factor"`
}

// Func returns the weight function, or nil when downweighting is off.
// Catch-up days use the context's recommended weight, falling back to Factor.
func (h HolidayWeighting) Func() WeightFunc {
	if !h.Enabled {
		return nil
	}
	return func(d Day) float64 {
		if !d.HasTag(TagHolidayCatchup) {
			return 1
		}
		if d.Catchup != nil && d.Catchup.RecommendedWeight > 0 {
			return d.Catchup.RecommendedWeight
		}
		return h.Factor
	}
}

// Fingerprint identifies the policy for model memoization.
func (h HolidayWeighting) Fingerprint() string {
	if !h.Enabled {
		return "uniform"
	}
	return fmt.Sprintf("holiday:on:%g", h.Factor)
}
