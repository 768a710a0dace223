package core

import "time"

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// WindowCalculator computes calendar week and month ranges relative to a
// reference instant. It is pure: callers capture "now" once per aggregation
// pass and feed the same instant to every range computation, so window
// boundaries cannot flap mid-pass.
type WindowCalculator struct {
	weekStart time.Weekday
}

func NewWindowCalculator(weekStart time.Weekday) WindowCalculator {
	return WindowCalculator{weekStart: weekStart}
}

// WeekOf returns the calendar week containing now, starting on the
// configured weekday.
func (c WindowCalculator) WeekOf(now time.Time) Window {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	back := (int(day.Weekday()) - int(c.weekStart) + 7) % 7
	start := day.AddDate(0, 0, -back)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthOf returns the calendar month containing now.
func (c WindowCalculator) MonthOf(now time.Time) Window {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}
