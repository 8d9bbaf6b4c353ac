// Package pipeline derives chart-ready series from an analytics snapshot.
//
// Every function here is pure and total: a nil snapshot, a missing model
// breakdown or an empty daily series yields empty slices, never an error.
// Several series are estimates built by proportional allocation because the
// snapshot has no hourly, per-model-per-day or per-model-error data.
package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/gwlens/internal/model"
)

// LabelLayout formats day labels on chart axes ("Jan 2").
const LabelLayout = "Jan 2"

// Normalize clips daily buckets to the last rangeDays days relative to now
// and returns them ascending with display labels.
//
// Buckets dated before today-rangeDays are dropped, then only the trailing
// rangeDays buckets are kept, so a boundary bucket that survives the date
// filter cannot widen the window.
func Normalize(days []model.DayBucket, rangeDays int, now time.Time) []model.DayPoint {
	points := make([]model.DayPoint, 0, len(days))
	if rangeDays <= 0 || len(days) == 0 {
		return points
	}

	loc := now.Location()
	cutoff := startOfDay(now, loc).AddDate(0, 0, -rangeDays)

	kept := make([]model.DayBucket, 0, len(days))
	for _, d := range days {
		if d.Date.IsZero() {
			continue
		}
		if startOfDay(d.Date, loc).Before(cutoff) {
			continue
		}
		kept = append(kept, d)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Date.Before(kept[j].Date)
	})
	if len(kept) > rangeDays {
		kept = kept[len(kept)-rangeDays:]
	}

	for _, d := range kept {
		date := startOfDay(d.Date, loc)
		points = append(points, model.DayPoint{
			Date:        date,
			Label:       date.Format(LabelLayout),
			Requests:    d.Requests,
			TokensIn:    d.TokensIn,
			TokensOut:   d.TokensOut,
			Cost:        d.Cost,
			Errors:      d.Errors,
			SuccessRate: d.SuccessRate,
		})
	}
	return points
}

// startOfDay reinterprets t's calendar date as midnight in loc. Bucket dates
// carry no time of day, so the calendar fields are what matter.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
