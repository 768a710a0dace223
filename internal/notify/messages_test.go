package notify

import (
	"testing"

	"carteira/internal/core"
)

func TestRecordChangedMessageRoundTrip(t *testing.T) {
	msg := NewRecordChangedMessage(core.KindExpense, "owner-1")

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	decoded, err := RecordChangedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.Kind != core.KindExpense || decoded.OwnerID != "owner-1" {
		t.Errorf("round trip lost fields: %+v", decoded)
	}
	if decoded.ChangedAt.IsZero() {
		t.Error("ChangedAt should be set")
	}
}

func TestRecordChangedMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := RecordChangedMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
