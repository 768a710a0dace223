// Package memory provides an in-memory record store. It backs local
// development and tests with the same subscription and pagination semantics
// as the persistent store.
package memory

import (
	"context"
	"sync"

	"carteira/internal/core"
	"carteira/internal/records"
)

type collectionKey struct {
	kind  core.Kind
	owner string
}

// Store keeps records per (kind, owner) and fans full-set emissions out to
// live subscribers on every write.
type Store struct {
	mu   sync.Mutex
	docs map[collectionKey]map[string]core.Record
	subs map[collectionKey][]*subscription
}

func New() *Store {
	return &Store{
		docs: make(map[collectionKey]map[string]core.Record),
		subs: make(map[collectionKey][]*subscription),
	}
}

type subscription struct {
	store  *Store
	key    collectionKey
	ch     chan records.Snapshot
	closed bool
}

func (s *subscription) Updates() <-chan records.Snapshot { return s.ch }

// Err implements records.Subscription. The in-memory stream has no failure
// mode; it only ends through Unsubscribe.
func (s *subscription) Err() error { return nil }

func (s *subscription) Unsubscribe() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.dropLocked(s)
}

// push delivers a snapshot without blocking. A pending undelivered emission
// is replaced: each snapshot is the complete current set, so only the latest
// one matters. Caller holds the store mutex.
func (s *subscription) push(snap records.Snapshot) {
	if s.closed {
		return
	}
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

// Subscribe implements records.Store. The current set (possibly empty) is
// emitted immediately so subscribers always observe an initial snapshot.
func (m *Store) Subscribe(ctx context.Context, kind core.Kind, ownerID string) (records.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := collectionKey{kind: kind, owner: ownerID}
	sub := &subscription{store: m, key: key, ch: make(chan records.Snapshot, 1)}
	m.subs[key] = append(m.subs[key], sub)
	sub.push(m.snapshotLocked(key))

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Unsubscribe()
		}()
	}

	return sub, nil
}

// FetchPage implements records.Store using keyset pagination over the
// (date desc, id asc) feed order.
func (m *Store) FetchPage(_ context.Context, kind core.Kind, ownerID string, cursor records.Cursor, pageSize int) (records.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered := m.orderedLocked(collectionKey{kind: kind, owner: ownerID})

	var page records.Page
	for _, rec := range ordered {
		if !cursor.After(rec.Date, rec.ID) {
			continue
		}
		page.Records = append(page.Records, rec)
		if len(page.Records) == pageSize {
			break
		}
	}
	if n := len(page.Records); n > 0 {
		last := page.Records[n-1]
		page.Next = records.Cursor{Date: last.Date, ID: last.ID}
	} else {
		page.Next = cursor
	}
	return page, nil
}

func (m *Store) Insert(_ context.Context, rec core.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := collectionKey{kind: rec.Kind, owner: rec.OwnerID}
	if m.docs[key] == nil {
		m.docs[key] = make(map[string]core.Record)
	}
	m.docs[key][rec.ID] = rec
	m.broadcastLocked(key)
	return nil
}

func (m *Store) UpdateFields(_ context.Context, kind core.Kind, id string, patch records.FieldPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, rec, err := m.findLocked(kind, id)
	if err != nil {
		return err
	}
	if patch.Name != nil {
		rec.Name = *patch.Name
	}
	if patch.Amount != nil {
		rec.Amount = *patch.Amount
	}
	if patch.Notes != nil {
		rec.Notes = *patch.Notes
	}
	m.docs[key][id] = rec
	m.broadcastLocked(key)
	return nil
}

func (m *Store) Delete(_ context.Context, kind core.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, _, err := m.findLocked(kind, id)
	if err != nil {
		return err
	}
	delete(m.docs[key], id)
	m.broadcastLocked(key)
	return nil
}

// ListRecurring implements records.RecurringLister: the newest instance of
// every recurring bill group, across owners.
func (m *Store) ListRecurring(_ context.Context) ([]core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newest := make(map[string]core.Record)
	for key, docs := range m.docs {
		if key.kind != core.KindBill {
			continue
		}
		for _, rec := range docs {
			if rec.Recurrence == core.Once || rec.Recurrence == "" || rec.RecurrenceGroupID == "" {
				continue
			}
			cur, ok := newest[rec.RecurrenceGroupID]
			if !ok || rec.Date.After(cur.Date) {
				newest[rec.RecurrenceGroupID] = rec
			}
		}
	}

	out := make([]core.Record, 0, len(newest))
	for _, rec := range newest {
		out = append(out, rec)
	}
	records.SortByDateDesc(out)
	return out, nil
}

func (m *Store) findLocked(kind core.Kind, id string) (collectionKey, core.Record, error) {
	for key, docs := range m.docs {
		if key.kind != kind {
			continue
		}
		if rec, ok := docs[id]; ok {
			return key, rec, nil
		}
	}
	return collectionKey{}, core.Record{}, records.ErrNotFound
}

func (m *Store) orderedLocked(key collectionKey) []core.Record {
	docs := m.docs[key]
	out := make([]core.Record, 0, len(docs))
	for _, rec := range docs {
		out = append(out, rec)
	}
	records.SortByDateDesc(out)
	return out
}

func (m *Store) snapshotLocked(key collectionKey) records.Snapshot {
	return records.Snapshot{
		Kind:    key.kind,
		OwnerID: key.owner,
		Records: m.orderedLocked(key),
	}
}

func (m *Store) broadcastLocked(key collectionKey) {
	subs := m.subs[key]
	if len(subs) == 0 {
		return
	}
	snap := m.snapshotLocked(key)
	for _, sub := range subs {
		sub.push(snap)
	}
}

func (m *Store) dropLocked(sub *subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)

	subs := m.subs[sub.key]
	for i, s := range subs {
		if s == sub {
			m.subs[sub.key] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

var (
	_ records.Store           = (*Store)(nil)
	_ records.RecurringLister = (*Store)(nil)
)
