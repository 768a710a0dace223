// Package sqlite provides the persistent record store. Subscriptions are
// fed by re-querying the full current set after every committed write; an
// optional Notifier extends the same wakeups across processes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"carteira/internal/core"
	"carteira/internal/records"
)

// Notifier is told after every committed write so other processes sharing
// the database can refresh their own subscriptions.
type Notifier interface {
	RecordChanged(ctx context.Context, kind core.Kind, ownerID string) error
}

type collectionKey struct {
	kind  core.Kind
	owner string
}

type Store struct {
	db       *sql.DB
	notifier Notifier

	mu   sync.Mutex
	subs map[collectionKey][]*subscription
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:   db,
		subs: make(map[collectionKey][]*subscription),
	}, nil
}

// SetNotifier installs the cross-process change announcer. Must be called
// before the store is shared.
func (s *Store) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Store) Close() error {
	s.mu.Lock()
	for key, subs := range s.subs {
		for _, sub := range subs {
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
			}
		}
		delete(s.subs, key)
	}
	s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type subscription struct {
	store  *Store
	key    collectionKey
	ch     chan records.Snapshot
	closed bool
	err    error
}

func (s *subscription) Updates() <-chan records.Snapshot { return s.ch }

func (s *subscription) Err() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.err
}

func (s *subscription) Unsubscribe() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)

	subs := s.store.subs[s.key]
	for i, sub := range subs {
		if sub == s {
			s.store.subs[s.key] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// push delivers without blocking, replacing a pending undelivered emission;
// each snapshot is the full current set, so only the latest matters.
// Caller holds the store mutex.
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

// Subscribe implements records.Store. The current set is emitted
// immediately; if the initial query fails the subscription is not created.
func (s *Store) Subscribe(ctx context.Context, kind core.Kind, ownerID string) (records.Subscription, error) {
	recs, err := s.queryCollection(ctx, kind, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load initial %s set: %w", kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := collectionKey{kind: kind, owner: ownerID}
	sub := &subscription{store: s, key: key, ch: make(chan records.Snapshot, 1)}
	s.subs[key] = append(s.subs[key], sub)
	sub.push(records.Snapshot{Kind: kind, OwnerID: ownerID, Records: recs})

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Unsubscribe()
		}()
	}

	return sub, nil
}

// NotifyChanged re-emits the full current set for one collection to local
// subscribers. Called for writes announced by other processes.
func (s *Store) NotifyChanged(ctx context.Context, kind core.Kind, ownerID string) error {
	return s.emit(ctx, kind, ownerID)
}

func (s *Store) FetchPage(ctx context.Context, kind core.Kind, ownerID string, cursor records.Cursor, pageSize int) (records.Page, error) {
	const q = `
		SELECT id, owner_id, kind, name, amount, date, notes, created_at, recurrence, recurrence_group_id
		FROM records
		WHERE owner_id = ? AND kind = ?
		  AND (? = 1 OR date < ? OR (date = ? AND id > ?))
		ORDER BY date DESC, id ASC
		LIMIT ?`

	fromStart := 0
	if cursor.IsZero() {
		fromStart = 1
	}
	cursorDate := cursor.Date.UnixNano()

	rows, err := s.db.QueryContext(ctx, q,
		ownerID, string(kind),
		fromStart, cursorDate, cursorDate, cursor.ID,
		pageSize)
	if err != nil {
		return records.Page{}, fmt.Errorf("query %s page: %w", kind, err)
	}
	defer rows.Close()

	page := records.Page{Next: cursor}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return records.Page{}, fmt.Errorf("scan %s record: %w", kind, err)
		}
		page.Records = append(page.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return records.Page{}, fmt.Errorf("iterate %s page: %w", kind, err)
	}
	if n := len(page.Records); n > 0 {
		last := page.Records[n-1]
		page.Next = records.Cursor{Date: last.Date, ID: last.ID}
	}
	return page, nil
}

func (s *Store) Insert(ctx context.Context, rec core.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	const q = `
		INSERT INTO records (id, owner_id, kind, name, amount, date, notes, created_at, recurrence, recurrence_group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.OwnerID, string(rec.Kind), rec.Name,
		rec.Amount.String(), rec.Date.UnixNano(), rec.Notes,
		rec.CreatedAt.UnixNano(), string(rec.Recurrence), rec.RecurrenceGroupID)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	return s.changed(ctx, rec.Kind, rec.OwnerID)
}

func (s *Store) UpdateFields(ctx context.Context, kind core.Kind, id string, patch records.FieldPatch) error {
	ownerID, err := s.ownerOf(ctx, kind, id)
	if err != nil {
		return err
	}

	set := ""
	var args []any
	if patch.Name != nil {
		set += "name = ?"
		args = append(args, *patch.Name)
	}
	if patch.Amount != nil {
		if set != "" {
			set += ", "
		}
		set += "amount = ?"
		args = append(args, patch.Amount.String())
	}
	if patch.Notes != nil {
		if set != "" {
			set += ", "
		}
		set += "notes = ?"
		args = append(args, *patch.Notes)
	}
	if set == "" {
		return nil
	}
	args = append(args, id, string(kind))

	if _, err := s.db.ExecContext(ctx, "UPDATE records SET "+set+" WHERE id = ? AND kind = ?", args...); err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	return s.changed(ctx, kind, ownerID)
}

func (s *Store) Delete(ctx context.Context, kind core.Kind, id string) error {
	ownerID, err := s.ownerOf(ctx, kind, id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ? AND kind = ?", id, string(kind)); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	return s.changed(ctx, kind, ownerID)
}

// ListRecurring implements records.RecurringLister: the newest instance per
// recurring bill group, across owners.
func (s *Store) ListRecurring(ctx context.Context) ([]core.Record, error) {
	const q = `
		SELECT id, owner_id, kind, name, amount, date, notes, created_at, recurrence, recurrence_group_id
		FROM records r
		WHERE kind = ? AND recurrence NOT IN ('', 'once') AND recurrence_group_id != ''
		  AND date = (SELECT MAX(date) FROM records
		              WHERE recurrence_group_id = r.recurrence_group_id)
		GROUP BY recurrence_group_id`

	rows, err := s.db.QueryContext(ctx, q, string(core.KindBill))
	if err != nil {
		return nil, fmt.Errorf("query recurring groups: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) ownerOf(ctx context.Context, kind core.Kind, id string) (string, error) {
	var ownerID string
	err := s.db.QueryRowContext(ctx,
		"SELECT owner_id FROM records WHERE id = ? AND kind = ?", id, string(kind)).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return "", records.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("look up record owner: %w", err)
	}
	return ownerID, nil
}

// changed re-emits locally and announces the write to other processes.
func (s *Store) changed(ctx context.Context, kind core.Kind, ownerID string) error {
	if err := s.emit(ctx, kind, ownerID); err != nil {
		return err
	}
	if s.notifier != nil {
		if err := s.notifier.RecordChanged(ctx, kind, ownerID); err != nil {
			// The local write already succeeded; remote wakeup is best
			// effort.
			slog.WarnContext(ctx, "failed to announce record change",
				"kind", string(kind), "owner_id", ownerID, "error", err)
		}
	}
	return nil
}

func (s *Store) emit(ctx context.Context, kind core.Kind, ownerID string) error {
	key := collectionKey{kind: kind, owner: ownerID}

	s.mu.Lock()
	hasSubs := len(s.subs[key]) > 0
	s.mu.Unlock()
	if !hasSubs {
		return nil
	}

	recs, err := s.queryCollection(ctx, kind, ownerID)
	if err != nil {
		err = fmt.Errorf("reload %s set: %w", kind, err)
		s.failSubscribers(key, err)
		return err
	}
	snap := records.Snapshot{Kind: kind, OwnerID: ownerID, Records: recs}

	s.mu.Lock()
	for _, sub := range s.subs[key] {
		sub.push(snap)
	}
	s.mu.Unlock()
	return nil
}

// failSubscribers ends every live stream for one collection with the given
// error. A stream that cannot reload its full set can no longer honor the
// full-set contract, so it is closed rather than left silently stale.
func (s *Store) failSubscribers(key collectionKey, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs[key] {
		if sub.closed {
			continue
		}
		sub.err = err
		sub.closed = true
		close(sub.ch)
	}
	delete(s.subs, key)
}

func (s *Store) queryCollection(ctx context.Context, kind core.Kind, ownerID string) ([]core.Record, error) {
	const q = `
		SELECT id, owner_id, kind, name, amount, date, notes, created_at, recurrence, recurrence_group_id
		FROM records
		WHERE owner_id = ? AND kind = ?
		ORDER BY date DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, ownerID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (core.Record, error) {
	var (
		rec        core.Record
		kind       string
		amount     string
		dateNanos  int64
		createdAt  int64
		recurrence string
	)
	if err := rows.Scan(&rec.ID, &rec.OwnerID, &kind, &rec.Name, &amount,
		&dateNanos, &rec.Notes, &createdAt, &recurrence, &rec.RecurrenceGroupID); err != nil {
		return core.Record{}, err
	}
	rec.Kind = core.Kind(kind)
	rec.Recurrence = core.Recurrence(recurrence)
	rec.Date = time.Unix(0, dateNanos)
	rec.CreatedAt = time.Unix(0, createdAt)

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		// Corrupted amounts contribute zero rather than breaking the pass.
		slog.Warn("unparsable record amount, treating as zero",
			"record_id", rec.ID, "amount", amount)
		amt = decimal.Zero
	}
	rec.Amount = amt
	return rec, nil
}

var (
	_ records.Store           = (*Store)(nil)
	_ records.RecurringLister = (*Store)(nil)
)
