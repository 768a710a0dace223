// Package records defines the boundary contract to the external record
// store: live owner-scoped subscriptions, cursor-paginated fetches and the
// three write primitives.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"carteira/internal/core"
)

// ErrNotFound is returned by writes addressing a record that does not exist.
var ErrNotFound = errors.New("record not found")

type (
	// Snapshot is one subscription emission: the full current record set for
	// a single kind and owner, not a diff.
	Snapshot struct {
		Kind    core.Kind
		OwnerID string
		Records []core.Record
	}

	// Subscription is a live stream of Snapshots until unsubscribed.
	Subscription interface {
		// Updates yields full-set emissions. The channel is closed on
		// Unsubscribe or stream failure; Err distinguishes the two.
		Updates() <-chan Snapshot
		// Err returns the failure that closed the stream, nil after a
		// plain Unsubscribe.
		Err() error
		Unsubscribe()
	}

	// Cursor is the continuation marker for one kind's feed. It keys into
	// the (date desc, id asc) ordering; the zero value means "start from
	// the most recent record".
	Cursor struct {
		Date time.Time
		ID   string
	}

	// Page is one cursor-paginated slice of a kind's feed, most recent
	// first.
	Page struct {
		Records []core.Record
		Next    Cursor
	}

	// FieldPatch carries a partial update. Nil fields are omitted from the
	// write entirely, not overwritten with defaults.
	FieldPatch struct {
		Name   *string
		Amount *decimal.Decimal
		Notes  *string
	}

	// Store is the record store collaborator.
	Store interface {
		// Subscribe starts a live full-set stream for one kind and owner.
		Subscribe(ctx context.Context, kind core.Kind, ownerID string) (Subscription, error)

		// FetchPage returns up to pageSize records ordered by date
		// descending, starting strictly after cursor.
		FetchPage(ctx context.Context, kind core.Kind, ownerID string, cursor Cursor, pageSize int) (Page, error)

		Insert(ctx context.Context, rec core.Record) error
		UpdateFields(ctx context.Context, kind core.Kind, id string, patch FieldPatch) error
		Delete(ctx context.Context, kind core.Kind, id string) error
	}

	// RecurringLister is implemented by stores that can enumerate recurring
	// bill groups for materialization. For each group it returns the most
	// recently dated instance.
	RecurringLister interface {
		ListRecurring(ctx context.Context) ([]core.Record, error)
	}
)

// IsZero reports whether the cursor is the unset starting position.
func (c Cursor) IsZero() bool {
	return c.Date.IsZero() && c.ID == ""
}

// After reports whether a record at (date, id) sorts strictly after the
// cursor in (date desc, id asc) order.
func (c Cursor) After(date time.Time, id string) bool {
	if c.IsZero() {
		return true
	}
	if date.Before(c.Date) {
		return true
	}
	return date.Equal(c.Date) && id > c.ID
}

// SubscriptionError reports a failed live stream. Consumers keep their
// last-known-good state; retry policy belongs to the caller.
type SubscriptionError struct {
	Kind core.Kind
	Err  error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription for %s records failed: %v", e.Kind, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// FetchError reports a failed page request. Cursor state is never advanced
// on failure, so retrying the same load is safe.
type FetchError struct {
	Kind core.Kind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s page: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
