// Package ledger implements the aggregation and merge-pagination engine over
// the record store collaborator.
package ledger

import (
	"sync"

	"carteira/internal/core"
	"carteira/internal/records"
)

// readiness is the two-slot gate for aggregation: nothing is computed until
// both kinds have delivered at least one full snapshot, so a wallet total can
// never be derived from half the data.
type readiness int

const (
	readyNone readiness = iota
	readyIncome
	readyExpense
	readyBoth
)

func (r readiness) with(kind core.Kind) readiness {
	switch r {
	case readyNone:
		switch kind {
		case core.KindIncome:
			return readyIncome
		case core.KindExpense:
			return readyExpense
		}
		return r
	case readyIncome:
		if kind == core.KindExpense {
			return readyBoth
		}
		return r
	case readyExpense:
		if kind == core.KindIncome {
			return readyBoth
		}
		return r
	default:
		return readyBoth
	}
}

// SnapshotStore holds the most recently observed full income and expense
// sets for one owner. Each inbound emission replaces the entire map for its
// kind; emissions are full current state, never diffs.
type SnapshotStore struct {
	mu       sync.Mutex
	ownerID  string
	incomes  map[string]core.Record
	expenses map[string]core.Record
	state    readiness
	seq      uint64
	closed   bool
}

func NewSnapshotStore(ownerID string) *SnapshotStore {
	return &SnapshotStore{
		ownerID:  ownerID,
		incomes:  make(map[string]core.Record),
		expenses: make(map[string]core.Record),
	}
}

// Apply replaces the stored set for the snapshot's kind and returns copies
// of both sets together with a monotonically increasing sequence number.
// ready is false until both kinds have been loaded at least once, and
// permanently false for snapshots that do not belong to this store's owner
// or arrive after Close; those are discarded silently.
func (s *SnapshotStore) Apply(snap records.Snapshot) (seq uint64, incomes, expenses map[string]core.Record, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || snap.OwnerID != s.ownerID {
		return 0, nil, nil, false
	}

	var target map[string]core.Record
	switch snap.Kind {
	case core.KindIncome:
		target = make(map[string]core.Record, len(snap.Records))
		s.incomes = target
	case core.KindExpense:
		target = make(map[string]core.Record, len(snap.Records))
		s.expenses = target
	default:
		return 0, nil, nil, false
	}
	for _, rec := range snap.Records {
		target[rec.ID] = rec
	}

	s.state = s.state.with(snap.Kind)
	s.seq++

	if s.state != readyBoth {
		return s.seq, nil, nil, false
	}
	return s.seq, copyRecords(s.incomes), copyRecords(s.expenses), true
}

// Close marks the store torn down; later Apply calls are discarded. Used
// when the active owner switches so late-arriving emissions tagged with the
// old owner can never be installed.
func (s *SnapshotStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func copyRecords(src map[string]core.Record) map[string]core.Record {
	dst := make(map[string]core.Record, len(src))
	for id, rec := range src {
		dst[id] = rec
	}
	return dst
}
