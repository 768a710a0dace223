package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// AggregateSnapshot is the derived rolling summary of one owner's ledger.
// It is never persisted: every value is recomputed from the same materialized
// record sets and the same captured instant, so the five core figures are
// always mutually consistent.
type AggregateSnapshot struct {
	WeekBalance       decimal.Decimal
	MonthBalance      decimal.Decimal
	WalletTotal       decimal.Decimal
	MonthIncomeCount  int
	MonthExpenseCount int

	// Projection figures shown next to the balances on the dashboard.
	Projected7Days decimal.Decimal
	MissingToGreen decimal.Decimal

	ComputedAt time.Time
}

// Aggregate computes the snapshot for the given income and expense sets.
// Records with a negative amount or missing date contribute nothing to any
// sum or count. The computation is synchronous and cannot fail.
func Aggregate(incomes, expenses map[string]Record, now time.Time, calc WindowCalculator) AggregateSnapshot {
	week := calc.WeekOf(now)
	month := calc.MonthOf(now)
	horizon := now.AddDate(0, 0, 7)

	snap := AggregateSnapshot{ComputedAt: now}

	var incomeTotal, expenseTotal decimal.Decimal

	for _, r := range incomes {
		if !r.Aggregatable() {
			continue
		}
		incomeTotal = incomeTotal.Add(r.Amount)
		if week.Contains(r.Date) {
			snap.WeekBalance = snap.WeekBalance.Add(r.Amount)
		}
		if month.Contains(r.Date) {
			snap.MonthBalance = snap.MonthBalance.Add(r.Amount)
			snap.MonthIncomeCount++
		}
		if !r.Date.After(horizon) {
			snap.Projected7Days = snap.Projected7Days.Add(r.Amount)
		}
	}

	for _, r := range expenses {
		if !r.Aggregatable() {
			continue
		}
		expenseTotal = expenseTotal.Add(r.Amount)
		if week.Contains(r.Date) {
			snap.WeekBalance = snap.WeekBalance.Sub(r.Amount)
		}
		if month.Contains(r.Date) {
			snap.MonthBalance = snap.MonthBalance.Sub(r.Amount)
			snap.MonthExpenseCount++
		}
	}

	snap.WalletTotal = incomeTotal.Sub(expenseTotal)
	if deficit := expenseTotal.Sub(incomeTotal); deficit.Sign() > 0 {
		snap.MissingToGreen = deficit
	}

	return snap
}
