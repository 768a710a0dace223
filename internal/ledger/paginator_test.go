package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"carteira/internal/core"
	"carteira/internal/records"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(id string, kind core.Kind, amount int64, d time.Time) core.Record {
	return core.Record{
		ID:      id,
		OwnerID: "owner-1",
		Kind:    kind,
		Name:    "entry " + id,
		Amount:  decimal.NewFromInt(amount),
		Date:    d,
	}
}

// fakeStore serves pre-seeded per-kind feeds with keyset pagination and
// records every write. fetchErr injects page failures per kind.
type fakeStore struct {
	feeds    map[core.Kind][]core.Record
	fetchErr map[core.Kind]error

	inserts []core.Record
	updates []records.FieldPatch
	deletes []string
	fetches int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		feeds:    make(map[core.Kind][]core.Record),
		fetchErr: make(map[core.Kind]error),
	}
}

func (f *fakeStore) seed(recs ...core.Record) {
	for _, r := range recs {
		f.feeds[r.Kind] = append(f.feeds[r.Kind], r)
	}
	for kind := range f.feeds {
		records.SortByDateDesc(f.feeds[kind])
	}
}

func (f *fakeStore) Subscribe(context.Context, core.Kind, string) (records.Subscription, error) {
	return nil, errors.New("not supported by fake")
}

func (f *fakeStore) FetchPage(_ context.Context, kind core.Kind, _ string, cursor records.Cursor, pageSize int) (records.Page, error) {
	f.fetches++
	if err := f.fetchErr[kind]; err != nil {
		return records.Page{}, err
	}

	var page records.Page
	for _, r := range f.feeds[kind] {
		if !cursor.After(r.Date, r.ID) {
			continue
		}
		page.Records = append(page.Records, r)
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

func (f *fakeStore) Insert(_ context.Context, r core.Record) error {
	f.inserts = append(f.inserts, r)
	return nil
}

func (f *fakeStore) UpdateFields(_ context.Context, _ core.Kind, _ string, patch records.FieldPatch) error {
	f.updates = append(f.updates, patch)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, _ core.Kind, id string) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func assertOrdered(t *testing.T, entries []core.Record) {
	t.Helper()
	for i := 0; i+1 < len(entries); i++ {
		if entries[i].Date.Before(entries[i+1].Date) {
			t.Fatalf("entries out of order at %d: %v before %v",
				i, entries[i].Date, entries[i+1].Date)
		}
	}
}

func TestLoadMoreMergesAcrossKinds(t *testing.T) {
	store := newFakeStore()
	store.seed(
		rec("i1", core.KindIncome, 10, date(2024, 6, 9)),
		rec("i2", core.KindIncome, 10, date(2024, 6, 7)),
		rec("e1", core.KindExpense, 5, date(2024, 6, 8)),
		rec("e2", core.KindExpense, 5, date(2024, 6, 6)),
	)

	p := NewPaginator(store, "owner-1", 5)
	entries, err := p.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	assertOrdered(t, entries)
	if entries[0].ID != "i1" || entries[1].ID != "e1" {
		t.Errorf("unexpected interleave order: %s, %s", entries[0].ID, entries[1].ID)
	}
}

func TestLoadMorePerKindPageSize(t *testing.T) {
	// 5 incomes and 5 expenses with pageSize 5: both full pages load, and
	// the merged list holds all 10 in global date order.
	store := newFakeStore()
	for i := 0; i < 5; i++ {
		store.seed(rec("i"+string(rune('0'+i)), core.KindIncome, 10, date(2024, 6, 20-i)))
		store.seed(rec("e"+string(rune('0'+i)), core.KindExpense, 5, date(2024, 6, 19-i)))
	}

	p := NewPaginator(store, "owner-1", 5)
	entries, err := p.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected 10 merged entries, got %d", len(entries))
	}
	assertOrdered(t, entries)
}

func TestLoadMoreAdvancesWithoutDuplicates(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 7; i++ {
		store.seed(rec("i"+string(rune('a'+i)), core.KindIncome, 10, date(2024, 6, 28-i)))
	}
	for i := 0; i < 3; i++ {
		store.seed(rec("e"+string(rune('a'+i)), core.KindExpense, 5, date(2024, 6, 27-i)))
	}

	p := NewPaginator(store, "owner-1", 3)
	first, err := p.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("first LoadMore: %v", err)
	}
	second, err := p.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("second LoadMore: %v", err)
	}
	if len(second) <= len(first) {
		t.Fatalf("second load did not grow the list: %d then %d", len(first), len(second))
	}

	seen := make(map[string]bool)
	for _, e := range second {
		key := string(e.Kind) + "/" + e.ID
		if seen[key] {
			t.Fatalf("duplicate entry %s", key)
		}
		seen[key] = true
	}
	assertOrdered(t, second)
}

func TestLoadMoreKeepsFetchingAfterOneKindExhausts(t *testing.T) {
	store := newFakeStore()
	store.seed(rec("e1", core.KindExpense, 5, date(2024, 6, 10)))
	for i := 0; i < 6; i++ {
		store.seed(rec("i"+string(rune('a'+i)), core.KindIncome, 10, date(2024, 6, 20-i)))
	}

	p := NewPaginator(store, "owner-1", 2)

	// First load exhausts expenses (1 < 2) but not incomes.
	if _, err := p.LoadMore(context.Background()); err != nil {
		t.Fatalf("first LoadMore: %v", err)
	}
	if p.Exhausted() {
		t.Fatal("paginator should not be exhausted while incomes remain")
	}

	entries, err := p.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("second LoadMore: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries after second load, got %d", len(entries))
	}
}

func TestLoadMoreNoOpWhenBothExhausted(t *testing.T) {
	store := newFakeStore()
	store.seed(rec("i1", core.KindIncome, 10, date(2024, 6, 9)))

	p := NewPaginator(store, "owner-1", 5)
	first, err := p.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if !p.Exhausted() {
		t.Fatal("expected both kinds exhausted")
	}

	fetchesBefore := store.fetches
	again, err := p.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("LoadMore after exhaustion: %v", err)
	}
	if store.fetches != fetchesBefore {
		t.Error("exhausted LoadMore should not hit the store")
	}
	if len(again) != len(first) {
		t.Errorf("list changed on no-op load: %d vs %d", len(again), len(first))
	}
}

func TestLoadMoreFetchErrorLeavesCursorsUntouched(t *testing.T) {
	store := newFakeStore()
	store.seed(
		rec("i1", core.KindIncome, 10, date(2024, 6, 9)),
		rec("e1", core.KindExpense, 5, date(2024, 6, 8)),
	)
	store.fetchErr[core.KindExpense] = errors.New("backend unavailable")

	p := NewPaginator(store, "owner-1", 5)
	_, err := p.LoadMore(context.Background())
	var fetchErr *records.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if len(p.Entries()) != 0 {
		t.Fatal("failed load must not apply partial results")
	}

	// Retry after the failure clears; the load succeeds from the start.
	store.fetchErr = map[core.Kind]error{}
	entries, err := p.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("retry LoadMore: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after retry, got %d", len(entries))
	}
}

func TestLoadMoreSkipsUndatedRecords(t *testing.T) {
	store := newFakeStore()
	undated := rec("i2", core.KindIncome, 10, time.Time{})
	store.seed(rec("i1", core.KindIncome, 10, date(2024, 6, 9)), undated)

	p := NewPaginator(store, "owner-1", 5)
	entries, err := p.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	for _, e := range entries {
		if e.ID == "i2" {
			t.Fatal("undated record must not enter the merged feed")
		}
	}
}

func TestLiveFeedReplaceAndResort(t *testing.T) {
	feed := NewLiveFeed()

	feed.Replace(core.KindIncome, []core.Record{
		rec("i1", core.KindIncome, 10, date(2024, 6, 9)),
		rec("i2", core.KindIncome, 10, date(2024, 6, 5)),
	})
	merged := feed.Replace(core.KindExpense, []core.Record{
		rec("e1", core.KindExpense, 5, date(2024, 6, 7)),
	})

	if len(merged) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(merged))
	}
	assertOrdered(t, merged)
	if merged[1].ID != "e1" {
		t.Errorf("expected e1 in the middle, got %s", merged[1].ID)
	}

	// A new full snapshot without i1 removes it from the merged list.
	merged = feed.Replace(core.KindIncome, []core.Record{
		rec("i2", core.KindIncome, 10, date(2024, 6, 5)),
	})
	for _, e := range merged {
		if e.ID == "i1" {
			t.Fatal("replaced snapshot should have dropped i1")
		}
	}
}

func TestLiveFeedDropsUndated(t *testing.T) {
	feed := NewLiveFeed()
	merged := feed.Replace(core.KindBill, []core.Record{
		rec("b1", core.KindBill, 5, time.Time{}),
		rec("b2", core.KindBill, 5, date(2024, 6, 7)),
	})
	if len(merged) != 1 || merged[0].ID != "b2" {
		t.Fatalf("expected only b2, got %+v", merged)
	}
}
