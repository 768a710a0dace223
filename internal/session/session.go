// Package session ties one owner's subscriptions, aggregates and feed
// together into an explicit session context that is created on login and
// torn down on logout.
package session

import (
	"context"
	"sync"
	"time"

	"carteira/internal/core"
	"carteira/internal/ledger"
	"carteira/internal/log"
	"carteira/internal/records"
)

// Config carries the tunables a session needs.
type Config struct {
	WeekStart    time.Weekday
	FeedPageSize int
}

// Session owns everything scoped to the active owner: the live
// subscriptions, the snapshot store, the aggregate engine, the merged feed
// and the editor. No other goroutine mutates this state directly.
type Session struct {
	ownerID string
	logger  *log.Logger

	snapshots *ledger.SnapshotStore
	engine    *ledger.Engine
	paginator *ledger.Paginator
	feed      *ledger.LiveFeed
	editor    *ledger.Editor

	cancel context.CancelFunc
	wg     sync.WaitGroup
	subs   []records.Subscription

	mu     sync.Mutex
	subErr error
}

// subscribed kinds: income and expense drive the aggregates, bills join the
// live recent list only.
var liveKinds = [3]core.Kind{core.KindIncome, core.KindExpense, core.KindBill}

func open(ctx context.Context, store records.Store, ownerID string, cfg Config, logger *log.Logger) (*Session, error) {
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ownerID:   ownerID,
		logger:    logger.WithComponent(log.ComponentSession),
		snapshots: ledger.NewSnapshotStore(ownerID),
		engine:    ledger.NewEngine(core.NewWindowCalculator(cfg.WeekStart)),
		paginator: ledger.NewPaginator(store, ownerID, cfg.FeedPageSize),
		feed:      ledger.NewLiveFeed(),
		editor:    ledger.NewEditor(store, ownerID),
		cancel:    cancel,
	}

	for _, kind := range liveKinds {
		sub, err := store.Subscribe(sctx, kind, ownerID)
		if err != nil {
			s.Close()
			return nil, &records.SubscriptionError{Kind: kind, Err: err}
		}
		s.subs = append(s.subs, sub)
		s.wg.Add(1)
		go s.pump(kind, sub)
	}

	s.logger.Info("session opened", log.FieldOwnerID, ownerID)
	return s, nil
}

// pump feeds one kind's subscription emissions into the feed and, for the
// aggregate kinds, through the readiness gate into the engine.
func (s *Session) pump(kind core.Kind, sub records.Subscription) {
	defer s.wg.Done()

	for snap := range sub.Updates() {
		s.feed.Replace(snap.Kind, snap.Records)

		if snap.Kind != core.KindIncome && snap.Kind != core.KindExpense {
			continue
		}
		seq, incomes, expenses, ready := s.snapshots.Apply(snap)
		if !ready {
			continue
		}
		if _, applied := s.engine.Recompute(seq, incomes, expenses); applied {
			s.logger.Debug("aggregates recomputed",
				log.FieldOwnerID, s.ownerID,
				log.FieldKind, string(kind),
				log.FieldSeq, seq)
		}
	}

	if err := sub.Err(); err != nil {
		s.mu.Lock()
		s.subErr = &records.SubscriptionError{Kind: kind, Err: err}
		s.mu.Unlock()
		s.logger.Warn("subscription failed, keeping last aggregates",
			log.FieldOwnerID, s.ownerID,
			log.FieldKind, string(kind),
			log.FieldError, err.Error())
	}
}

func (s *Session) OwnerID() string { return s.ownerID }

// Aggregates returns the last applied snapshot; ok is false until both
// aggregate kinds have delivered at least once.
func (s *Session) Aggregates() (core.AggregateSnapshot, bool) {
	return s.engine.Current()
}

// Feed returns the live merged recent list.
func (s *Session) Feed() []core.Record {
	return s.feed.Entries()
}

// LoadMore advances the cursor-paginated merged history.
func (s *Session) LoadMore(ctx context.Context) ([]core.Record, error) {
	return s.paginator.LoadMore(ctx)
}

// Exhausted reports whether the paginated history has run out on both
// kinds.
func (s *Session) Exhausted() bool {
	return s.paginator.Exhausted()
}

func (s *Session) Editor() *ledger.Editor { return s.editor }

// Err returns the first subscription failure observed, if any. Aggregates
// and the feed freeze at their last-good values in that case.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subErr
}

// Close tears the session down: all subscriptions are cancelled and the
// snapshot store is sealed so late-arriving emissions for this owner are
// discarded rather than applied.
func (s *Session) Close() {
	s.cancel()
	s.snapshots.Close()
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.wg.Wait()
	s.logger.Info("session closed", log.FieldOwnerID, s.ownerID)
}
