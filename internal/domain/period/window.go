// Package period computes the calendar-month and rolling date windows that
// all aggregations are bounded by. Dates are compared by calendar day, never
// by timestamp: every boundary and every record date is normalized to
// midnight UTC before comparison.
package period

import "time"

// Rolling window presets supported by the chart UI, in days.
var Presets = []int{7, 15, 30, 60, 90}

const (
	// DefaultChartDays is the rolling window used for chart display.
	DefaultChartDays = 15
	// DefaultRetentionDays is the rolling window of source data retained
	// for the cash-flow series.
	DefaultRetentionDays = 90
)

// Window is an inclusive calendar-date range: a date d belongs to the window
// when Start <= d <= End.
type Window struct {
	Start time.Time
	End   time.Time
}

// Date truncates t to its calendar day at midnight UTC.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CurrentMonth returns the window covering the calendar month of now,
// first day through last day inclusive.
func CurrentMonth(now time.Time) Window {
	d := Date(now)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return Window{Start: start, End: end}
}

// PreviousMonth returns the window covering the calendar month before now.
func PreviousMonth(now time.Time) Window {
	d := Date(now)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	end := start.AddDate(0, 1, -1)
	return Window{Start: start, End: end}
}

// Rolling returns the trailing days-day window ending today: with days=1 the
// window is exactly today.
func Rolling(now time.Time, days int) Window {
	if days < 1 {
		days = 1
	}
	end := Date(now)
	start := end.AddDate(0, 0, -(days - 1))
	return Window{Start: start, End: end}
}

// IsPreset reports whether n is one of the supported rolling-window presets.
func IsPreset(n int) bool {
	for _, p := range Presets {
		if p == n {
			return true
		}
	}
	return false
}

// Contains reports whether the calendar date of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	d := Date(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns every calendar day in the window in ascending order.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Len returns the number of calendar days in the window.
func (w Window) Len() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}
