package workday

// DayMetrics is a display view of one record or an aggregate of several.
type DayMetrics struct {
	Label             string   `json:"label"`
	TotalHours        float64  `json:"totalHours"`
	RouteHours        float64  `json:"routeHours"`
	OfficeHours       float64  `json:"officeHours"`
	Parcels           float64  `json:"parcels"`
	Letters           float64  `json:"letters"`
	Volume            float64  `json:"volume"`
	Miles             float64  `json:"miles"`
	EfficiencyMinutes *float64 `json:"efficiencyMinutes,omitempty"`
	Mood              string   `json:"mood,omitempty"`
	Weather           string   `json:"weather,omitempty"`
	Reason            string   `json:"reason,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

// MetricsFromRecord normalizes a record into DayMetrics.
func MetricsFromRecord(r Record, letterWeight float64) DayMetrics {
	a := r.Annotation()
	total, _ := r.TotalHours()
	route, _ := r.RouteHours()
	office, _ := r.OfficeHours()
	miles := 0.0
	if r.Miles != nil {
		miles = *r.Miles
	}

	m := DayMetrics{
		Label:       r.Date,
		TotalHours:  total,
		RouteHours:  route,
		OfficeHours: office,
		Parcels:     float64(r.Parcels),
		Letters:     float64(r.Letters),
		Volume:      r.Volume(letterWeight),
		Miles:       miles,
		Mood:        r.Mood,
		Weather:     a.Weather,
		Reason:      a.Reason,
		Notes:       r.Notes,
	}
	m.EfficiencyMinutes = efficiency(m.RouteHours, m.Volume)
	return m
}

// AverageMetrics averages the numeric fields of several views. Text fields are dropped.
func AverageMetrics(items []DayMetrics, label string) DayMetrics {
	avg := DayMetrics{Label: label}
	if len(items) == 0 {
		return avg
	}
	n := float64(len(items))
	for _, m := range items {
		avg.TotalHours += m.TotalHours
		avg.RouteHours += m.RouteHours
		avg.OfficeHours += m.OfficeHours
		avg.Parcels += m.Parcels
		avg.Letters += m.Letters
		avg.Volume += m.Volume
		avg.Miles += m.Miles
	}
	avg.TotalHours /= n
	avg.RouteHours /= n
	avg.OfficeHours /= n
	avg.Parcels /= n
	avg.Letters /= n
	avg.Volume /= n
	avg.Miles /= n
	avg.EfficiencyMinutes = efficiency(avg.RouteHours, avg.Volume)
	return avg
}

func efficiency(routeHours, volume float64) *float64 {
	if volume <= 0 {
		return nil
	}
	e := routeHours * 60 / volume
	return &e
}
