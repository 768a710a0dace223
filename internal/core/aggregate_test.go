package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func rec(id string, kind Kind, amount int64, d time.Time) Record {
	return Record{
		ID:      id,
		OwnerID: "owner-1",
		Kind:    kind,
		Name:    "entry " + id,
		Amount:  decimal.NewFromInt(amount),
		Date:    d,
	}
}

func toMap(recs ...Record) map[string]Record {
	m := make(map[string]Record, len(recs))
	for _, r := range recs {
		m[r.ID] = r
	}
	return m
}

func TestAggregateWalletAndWeek(t *testing.T) {
	// Income 1000 and expense 400 on 2024-06-03 (Monday); now is Wednesday
	// of the same week.
	now := date(2024, 6, 5)
	incomes := toMap(rec("i1", KindIncome, 1000, date(2024, 6, 3)))
	expenses := toMap(rec("e1", KindExpense, 400, date(2024, 6, 3)))

	snap := Aggregate(incomes, expenses, now, NewWindowCalculator(time.Monday))

	if want := decimal.NewFromInt(600); !snap.WalletTotal.Equal(want) {
		t.Errorf("WalletTotal = %s, want %s", snap.WalletTotal, want)
	}
	if want := decimal.NewFromInt(600); !snap.WeekBalance.Equal(want) {
		t.Errorf("WeekBalance = %s, want %s", snap.WeekBalance, want)
	}
}

func TestAggregateMonthCountsAndBalance(t *testing.T) {
	// One income in the current month, one in the prior month.
	now := date(2024, 6, 15)
	incomes := toMap(
		rec("i1", KindIncome, 100, date(2024, 6, 10)),
		rec("i2", KindIncome, 50, date(2024, 5, 10)),
	)

	snap := Aggregate(incomes, nil, now, NewWindowCalculator(time.Monday))

	if snap.MonthIncomeCount != 1 {
		t.Errorf("MonthIncomeCount = %d, want 1", snap.MonthIncomeCount)
	}
	if want := decimal.NewFromInt(100); !snap.MonthBalance.Equal(want) {
		t.Errorf("MonthBalance = %s, want %s", snap.MonthBalance, want)
	}
	if want := decimal.NewFromInt(150); !snap.WalletTotal.Equal(want) {
		t.Errorf("WalletTotal = %s, want %s", snap.WalletTotal, want)
	}
}

func TestAggregateSkipsMalformedRecords(t *testing.T) {
	now := date(2024, 6, 15)

	undated := rec("i2", KindIncome, 100, time.Time{})
	negative := rec("i3", KindIncome, -5, date(2024, 6, 10))
	incomes := toMap(rec("i1", KindIncome, 100, date(2024, 6, 10)), undated, negative)

	snap := Aggregate(incomes, nil, now, NewWindowCalculator(time.Monday))

	if want := decimal.NewFromInt(100); !snap.WalletTotal.Equal(want) {
		t.Errorf("WalletTotal = %s, want %s", snap.WalletTotal, want)
	}
	if snap.MonthIncomeCount != 1 {
		t.Errorf("MonthIncomeCount = %d, want 1", snap.MonthIncomeCount)
	}
}

func TestAggregateMissingToGreen(t *testing.T) {
	now := date(2024, 6, 15)
	incomes := toMap(rec("i1", KindIncome, 100, date(2024, 6, 1)))
	expenses := toMap(rec("e1", KindExpense, 250, date(2024, 6, 1)))

	snap := Aggregate(incomes, expenses, now, NewWindowCalculator(time.Monday))

	if want := decimal.NewFromInt(150); !snap.MissingToGreen.Equal(want) {
		t.Errorf("MissingToGreen = %s, want %s", snap.MissingToGreen, want)
	}
	if want := decimal.NewFromInt(-150); !snap.WalletTotal.Equal(want) {
		t.Errorf("WalletTotal = %s, want %s", snap.WalletTotal, want)
	}
}

func TestAggregateProjected7Days(t *testing.T) {
	now := date(2024, 6, 15)
	incomes := toMap(
		rec("i1", KindIncome, 100, date(2024, 6, 1)),  // past: counts
		rec("i2", KindIncome, 40, date(2024, 6, 20)),  // within 7 days: counts
		rec("i3", KindIncome, 70, date(2024, 6, 30)),  // beyond horizon: ignored
	)

	snap := Aggregate(incomes, nil, now, NewWindowCalculator(time.Monday))

	if want := decimal.NewFromInt(140); !snap.Projected7Days.Equal(want) {
		t.Errorf("Projected7Days = %s, want %s", snap.Projected7Days, want)
	}
}

func TestAggregateEmptySets(t *testing.T) {
	snap := Aggregate(nil, nil, date(2024, 6, 15), NewWindowCalculator(time.Monday))

	if !snap.WalletTotal.IsZero() || !snap.WeekBalance.IsZero() || !snap.MonthBalance.IsZero() {
		t.Errorf("expected all-zero snapshot, got %+v", snap)
	}
	if snap.MonthIncomeCount != 0 || snap.MonthExpenseCount != 0 {
		t.Errorf("expected zero counts, got %+v", snap)
	}
}
