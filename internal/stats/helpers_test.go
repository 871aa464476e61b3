package stats

import "routedash/internal/workday"

func fptr(v float64) *float64 { return &v }

// workedDay builds a worked day; routeMinutes must exceed 24 so the stored
// value is read as minutes.
func workedDay(date string, parcels, letters int, routeMinutes float64) Day {
	return Day{Record: workedRecord(date, parcels, letters, routeMinutes)}
}

func workedRecord(date string, parcels, letters int, routeMinutes float64) workday.Record {
	return workday.Record{
		Date:          date,
		Status:        workday.StatusWorked,
		Parcels:       parcels,
		Letters:       letters,
		RouteDuration: fptr(routeMinutes),
	}
}

func offRecord(date, annotations string) workday.Record {
	return workday.Record{Date: date, Status: workday.StatusOff, Annotations: annotations}
}
