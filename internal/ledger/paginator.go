package ledger

import (
	"context"
	"errors"
	"sync"

	"carteira/internal/core"
	"carteira/internal/records"
)

// ErrLoadInFlight rejects a LoadMore issued while another one is still
// running for the same owner. Both would mutate shared cursor state, so they
// are never allowed to interleave.
var ErrLoadInFlight = errors.New("feed load already in flight")

// Paginator merges the two independently cursor-paginated kind feeds into
// one globally date-ordered list. Because the kinds paginate independently,
// a page boundary in one kind can land chronologically inside the other
// kind's already-loaded records; every load therefore re-sorts the whole
// accumulated list instead of appending.
type Paginator struct {
	store    records.Store
	ownerID  string
	pageSize int

	mu        sync.Mutex
	inFlight  bool
	cursors   map[core.Kind]records.Cursor
	exhausted map[core.Kind]bool
	seen      map[core.Kind]map[string]struct{}
	entries   []core.Record
}

func NewPaginator(store records.Store, ownerID string, pageSize int) *Paginator {
	p := &Paginator{
		store:     store,
		ownerID:   ownerID,
		pageSize:  pageSize,
		cursors:   make(map[core.Kind]records.Cursor),
		exhausted: make(map[core.Kind]bool),
		seen:      make(map[core.Kind]map[string]struct{}),
	}
	for _, kind := range core.FeedKinds {
		p.seen[kind] = make(map[string]struct{})
	}
	return p
}

// LoadMore fetches the next page of every non-exhausted kind, merges the
// results into the accumulated list and returns the full re-sorted list.
//
// Cursors advance only after every fetch of the pass has succeeded; on a
// FetchError nothing is applied, so the same call can simply be retried.
// When both kinds are exhausted the call is a no-op returning the unchanged
// list.
func (p *Paginator) LoadMore(ctx context.Context) ([]core.Record, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return nil, ErrLoadInFlight
	}
	if p.exhausted[core.KindIncome] && p.exhausted[core.KindExpense] {
		out := p.entriesLocked()
		p.mu.Unlock()
		return out, nil
	}
	p.inFlight = true
	cursors := map[core.Kind]records.Cursor{}
	skip := map[core.Kind]bool{}
	for _, kind := range core.FeedKinds {
		cursors[kind] = p.cursors[kind]
		skip[kind] = p.exhausted[kind]
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	pages := map[core.Kind]records.Page{}
	for _, kind := range core.FeedKinds {
		if skip[kind] {
			continue
		}
		page, err := p.store.FetchPage(ctx, kind, p.ownerID, cursors[kind], p.pageSize)
		if err != nil {
			return nil, &records.FetchError{Kind: kind, Err: err}
		}
		pages[kind] = page
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for kind, page := range pages {
		if len(page.Records) > 0 {
			p.cursors[kind] = page.Next
		}
		if len(page.Records) < p.pageSize {
			p.exhausted[kind] = true
		}
		for _, rec := range page.Records {
			if rec.Date.IsZero() {
				// Undated records have no feed position.
				continue
			}
			if _, dup := p.seen[kind][rec.ID]; dup {
				continue
			}
			p.seen[kind][rec.ID] = struct{}{}
			p.entries = append(p.entries, rec)
		}
	}
	records.SortByDateDesc(p.entries)
	return p.entriesLocked(), nil
}

// Entries returns the accumulated merged list.
func (p *Paginator) Entries() []core.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entriesLocked()
}

// Exhausted reports whether both kind feeds have run out.
func (p *Paginator) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exhausted[core.KindIncome] && p.exhausted[core.KindExpense]
}

func (p *Paginator) entriesLocked() []core.Record {
	out := make([]core.Record, len(p.entries))
	copy(out, p.entries)
	return out
}

// LiveFeed is the subscription-fed variant of the merged list. Every inbound
// full snapshot replaces its kind's entire contribution and the merged list
// is re-sorted; no cursor bookkeeping is needed because each emission is
// already the complete current set for that kind.
type LiveFeed struct {
	mu     sync.Mutex
	byKind map[core.Kind][]core.Record
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{byKind: make(map[core.Kind][]core.Record)}
}

// Replace swaps the given kind's contribution and returns the re-sorted
// merged list. Records without a valid date are left out of the feed.
func (f *LiveFeed) Replace(kind core.Kind, recs []core.Record) []core.Record {
	kept := make([]core.Record, 0, len(recs))
	for _, rec := range recs {
		if rec.Date.IsZero() {
			continue
		}
		kept = append(kept, rec)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKind[kind] = kept
	return f.mergedLocked()
}

// Entries returns the current merged list.
func (f *LiveFeed) Entries() []core.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mergedLocked()
}

func (f *LiveFeed) mergedLocked() []core.Record {
	var out []core.Record
	for _, recs := range f.byKind {
		out = append(out, recs...)
	}
	records.SortByDateDesc(out)
	return out
}
