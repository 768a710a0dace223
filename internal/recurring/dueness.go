// Package recurring materializes new instances of recurring bills. Each
// recurrence frequency has its own dueness strategy deciding whether a new
// instance is owed given the group's most recent instance date.
package recurring

import (
	"fmt"
	"time"

	"carteira/internal/core"
)

// DuenessChecker decides whether a recurring bill group is due for a new
// instance, given the date of the most recent instance and the current time.
type DuenessChecker interface {
	IsDue(lastInstance, now time.Time) bool
}

// DailyChecker is due once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastInstance, now time.Time) bool {
	if lastInstance.IsZero() {
		return true
	}
	return lastInstance.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker is due when 7 or more days have passed.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastInstance, now time.Time) bool {
	if lastInstance.IsZero() {
		return true
	}
	return now.Sub(lastInstance).Hours()/24 >= 7
}

// MonthlyChecker is due in a new month once the day of month of the last
// instance has been reached, clamped to the current month's length.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastInstance, now time.Time) bool {
	if lastInstance.IsZero() {
		return true
	}
	if lastInstance.Year() == now.Year() && lastInstance.Month() == now.Month() {
		return false
	}
	targetDay := lastInstance.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}
	return now.Day() >= targetDay
}

// AnnualChecker is due in a new year once the last instance's month and day
// have been reached.
type AnnualChecker struct{}

func (AnnualChecker) IsDue(lastInstance, now time.Time) bool {
	if lastInstance.IsZero() {
		return true
	}
	if lastInstance.Year() == now.Year() {
		return false
	}
	if now.Month() < lastInstance.Month() {
		return false
	}
	if now.Month() > lastInstance.Month() {
		return true
	}
	targetDay := lastInstance.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}
	return now.Day() >= targetDay
}

var duenessStrategies = map[core.Recurrence]DuenessChecker{
	core.Daily:    DailyChecker{},
	core.Weekly:   WeeklyChecker{},
	core.Monthly:  MonthlyChecker{},
	core.Annually: AnnualChecker{},
}

// GetDuenessChecker returns the checker for a recurrence. One-off bills have
// no checker: they are never due again.
func GetDuenessChecker(recurrence core.Recurrence) (DuenessChecker, error) {
	checker, ok := duenessStrategies[recurrence]
	if !ok {
		return nil, fmt.Errorf("no dueness strategy for recurrence %q", string(recurrence))
	}
	return checker, nil
}
