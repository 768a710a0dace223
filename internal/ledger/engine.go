package ledger

import (
	"sync"
	"time"

	"carteira/internal/core"
)

// Engine recomputes the aggregate snapshot in reaction to snapshot-store
// emissions. Recomputation is strictly ordered by the emission sequence: a
// result carrying an older sequence than the one already applied is
// discarded, so a slow earlier recompute can never overwrite a newer one.
type Engine struct {
	calc core.WindowCalculator
	now  func() time.Time

	mu         sync.Mutex
	appliedSeq uint64
	current    core.AggregateSnapshot
	ready      bool
}

func NewEngine(calc core.WindowCalculator) *Engine {
	return &Engine{calc: calc, now: time.Now}
}

// Recompute derives the aggregate for the given record sets and installs it
// if seq is newer than the currently applied sequence. It returns the
// installed snapshot and whether this call installed it.
//
// "Now" is captured once at entry and used for every window test in the
// pass, and the input maps are private copies, so all five figures come
// from one consistent instant and one consistent snapshot.
func (e *Engine) Recompute(seq uint64, incomes, expenses map[string]core.Record) (core.AggregateSnapshot, bool) {
	snap := core.Aggregate(incomes, expenses, e.now(), e.calc)

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq <= e.appliedSeq {
		return e.current, false
	}
	e.appliedSeq = seq
	e.current = snap
	e.ready = true
	return snap, true
}

// Current returns the last applied aggregate. ok is false until the first
// recompute lands; on stream failures the engine simply keeps returning the
// last-known-good snapshot rather than resetting to zero.
func (e *Engine) Current() (core.AggregateSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.ready
}
