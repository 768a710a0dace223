package notify

import (
	"encoding/json"
	"time"

	"carteira/internal/core"
)

// RecordChangedMessage announces that one (kind, owner) collection changed.
// It carries no record data: consumers re-query the full current set, which
// keeps emissions idempotent and ordering-insensitive.
type RecordChangedMessage struct {
	Kind      core.Kind `json:"kind"`
	OwnerID   string    `json:"ownerId"`
	ChangedAt time.Time `json:"changedAt"`
}

// NewRecordChangedMessage creates a change announcement for one collection.
func NewRecordChangedMessage(kind core.Kind, ownerID string) *RecordChangedMessage {
	return &RecordChangedMessage{
		Kind:      kind,
		OwnerID:   ownerID,
		ChangedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON creates a message from JSON bytes.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
