package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"carteira/internal/core"
	"carteira/internal/records"
)

// CreateInput carries the fields for a new record.
type CreateInput struct {
	Kind       core.Kind
	Name       string
	Amount     decimal.Decimal
	Date       time.Time
	Notes      string
	Recurrence core.Recurrence
}

// Editor applies create, update and delete operations for one owner against
// the external store. All three are fire-and-forget with respect to
// aggregation and the feed: their effects become visible only through the
// next snapshot or page emission, never through a local mutation that could
// race with the authoritative source.
type Editor struct {
	store   records.Store
	ownerID string
	now     func() time.Time
	newID   func() string
}

func NewEditor(store records.Store, ownerID string) *Editor {
	return &Editor{
		store:   store,
		ownerID: ownerID,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Create validates the input and issues the insert tagged with the current
// owner. Bills get a freshly minted recurrence group id so generated
// instances can be tied back together.
func (e *Editor) Create(ctx context.Context, in CreateInput) (core.Record, error) {
	rec := core.Record{
		ID:        e.newID(),
		OwnerID:   e.ownerID,
		Kind:      in.Kind,
		Name:      strings.TrimSpace(in.Name),
		Amount:    in.Amount,
		Date:      in.Date,
		Notes:     strings.TrimSpace(in.Notes),
		CreatedAt: e.now(),
	}
	if rec.Kind == core.KindBill {
		rec.Recurrence = in.Recurrence
		if rec.Recurrence == "" {
			rec.Recurrence = core.Once
		}
		rec.RecurrenceGroupID = e.newID()
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	if err := e.store.Insert(ctx, rec); err != nil {
		return core.Record{}, fmt.Errorf("insert %s record: %w", rec.Kind, err)
	}
	return rec, nil
}

// Update writes only the supplied fields; kind and owner are never touched.
// An all-nil patch is a no-op and issues no write at all.
func (e *Editor) Update(ctx context.Context, kind core.Kind, id string, patch records.FieldPatch) error {
	if !kind.Valid() {
		return &core.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", string(kind))}
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return &core.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if patch.Amount != nil && patch.Amount.Sign() < 0 {
		return &core.ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if patch.Name == nil && patch.Amount == nil && patch.Notes == nil {
		return nil
	}
	if err := e.store.UpdateFields(ctx, kind, id, patch); err != nil {
		return fmt.Errorf("update %s record %s: %w", kind, id, err)
	}
	return nil
}

// Delete issues the external delete unconditionally. Asking the user for
// confirmation is the caller's concern, not the engine's.
func (e *Editor) Delete(ctx context.Context, kind core.Kind, id string) error {
	if !kind.Valid() {
		return &core.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", string(kind))}
	}
	if err := e.store.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("delete %s record %s: %w", kind, id, err)
	}
	return nil
}
