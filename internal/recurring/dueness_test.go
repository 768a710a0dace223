package recurring

import (
	"testing"
	"time"

	"carteira/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestDailyChecker(t *testing.T) {
	c := DailyChecker{}

	cases := []struct {
		name string
		last time.Time
		now  time.Time
		want bool
	}{
		{"never instantiated", time.Time{}, day(2024, 6, 5), true},
		{"same day", day(2024, 6, 5), day(2024, 6, 5), false},
		{"next day", day(2024, 6, 4), day(2024, 6, 5), true},
		{"several days later", day(2024, 6, 1), day(2024, 6, 5), true},
	}
	for _, tc := range cases {
		if got := c.IsDue(tc.last, tc.now); got != tc.want {
			t.Errorf("%s: IsDue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestWeeklyChecker(t *testing.T) {
	c := WeeklyChecker{}

	cases := []struct {
		name string
		last time.Time
		now  time.Time
		want bool
	}{
		{"never instantiated", time.Time{}, day(2024, 6, 5), true},
		{"three days", day(2024, 6, 2), day(2024, 6, 5), false},
		{"exactly seven days", day(2024, 5, 29), day(2024, 6, 5), true},
		{"ten days", day(2024, 5, 26), day(2024, 6, 5), true},
	}
	for _, tc := range cases {
		if got := c.IsDue(tc.last, tc.now); got != tc.want {
			t.Errorf("%s: IsDue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMonthlyChecker(t *testing.T) {
	c := MonthlyChecker{}

	cases := []struct {
		name string
		last time.Time
		now  time.Time
		want bool
	}{
		{"never instantiated", time.Time{}, day(2024, 6, 5), true},
		{"same month", day(2024, 6, 1), day(2024, 6, 25), false},
		{"next month before day", day(2024, 5, 15), day(2024, 6, 10), false},
		{"next month on day", day(2024, 5, 15), day(2024, 6, 15), true},
		{"next month after day", day(2024, 5, 15), day(2024, 6, 20), true},
		{"day 31 clamped to short month", day(2024, 1, 31), day(2024, 2, 29), true},
		{"day 31 clamped, not yet reached", day(2024, 1, 31), day(2024, 2, 27), false},
	}
	for _, tc := range cases {
		if got := c.IsDue(tc.last, tc.now); got != tc.want {
			t.Errorf("%s: IsDue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAnnualChecker(t *testing.T) {
	c := AnnualChecker{}

	cases := []struct {
		name string
		last time.Time
		now  time.Time
		want bool
	}{
		{"never instantiated", time.Time{}, day(2024, 6, 5), true},
		{"same year", day(2024, 1, 10), day(2024, 11, 1), false},
		{"next year before month", day(2023, 6, 10), day(2024, 5, 20), false},
		{"next year same month before day", day(2023, 6, 10), day(2024, 6, 5), false},
		{"next year on day", day(2023, 6, 10), day(2024, 6, 10), true},
		{"next year after month", day(2023, 6, 10), day(2024, 7, 1), true},
	}
	for _, tc := range cases {
		if got := c.IsDue(tc.last, tc.now); got != tc.want {
			t.Errorf("%s: IsDue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGetDuenessChecker(t *testing.T) {
	for _, r := range []core.Recurrence{core.Daily, core.Weekly, core.Monthly, core.Annually} {
		if _, err := GetDuenessChecker(r); err != nil {
			t.Errorf("GetDuenessChecker(%s): %v", r, err)
		}
	}
	if _, err := GetDuenessChecker(core.Once); err == nil {
		t.Error("one-off bills must have no dueness strategy")
	}
	if _, err := GetDuenessChecker("fortnightly"); err == nil {
		t.Error("unknown recurrence must have no dueness strategy")
	}
}
