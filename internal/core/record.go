package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
	KindBill    Kind = "bill"
)

const (
	Once     Recurrence = "once"
	Daily    Recurrence = "daily"
	Weekly   Recurrence = "weekly"
	Monthly  Recurrence = "monthly"
	Annually Recurrence = "annually"
)

type (
	// Kind partitions records into their ledger collections.
	Kind string

	// Recurrence describes how often a bill repeats.
	Recurrence string

	// Record is a single income, expense or bill entry. Kind and OwnerID are
	// fixed at creation and never change for the lifetime of the record.
	Record struct {
		ID        string
		OwnerID   string
		Kind      Kind
		Name      string
		Amount    decimal.Decimal
		Date      time.Time
		Notes     string
		CreatedAt time.Time

		// Bill-only fields. Generated instances of a recurring bill share
		// the same RecurrenceGroupID.
		Recurrence        Recurrence
		RecurrenceGroupID string
	}
)

// ValidationError reports a rejected create or update input. The write is
// never issued when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindBill:
		return true
	}
	return false
}

func (r Recurrence) Valid() bool {
	switch r {
	case Once, Daily, Weekly, Monthly, Annually:
		return true
	}
	return false
}

// FeedKinds are the two independently paginated collections merged into the
// transaction feed.
var FeedKinds = [2]Kind{KindIncome, KindExpense}

// Validate checks the record against the create-time rules.
func (r Record) Validate() error {
	if !r.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", string(r.Kind))}
	}
	if r.OwnerID == "" {
		return &ValidationError{Field: "ownerId", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if r.Amount.Sign() < 0 {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if r.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "must be set"}
	}
	if r.Kind == KindBill && !r.Recurrence.Valid() {
		return &ValidationError{Field: "recurrence", Reason: fmt.Sprintf("unknown recurrence %q", string(r.Recurrence))}
	}
	return nil
}

// Aggregatable reports whether the record may contribute to sums and the
// ordered feed. Malformed records are skipped, never fatal.
func (r Record) Aggregatable() bool {
	return r.Amount.Sign() >= 0 && !r.Date.IsZero()
}
