package chat

import (
	"errors"
	"testing"
)

func strptr(s string) *string { return &s }

func TestNewMessageTrimsBody(t *testing.T) {
	m, err := NewMessage(Message{ConversationID: "c", SenderID: "s", Body: strptr("  hello  ")}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Body == nil || *m.Body != "hello" {
		t.Errorf("body not trimmed: %v", m.Body)
	}
	if m.CreatedAt.IsZero() {
		t.Error("createdAt must be stamped")
	}
}

func TestNewMessageRejectsBlankWithoutAttachments(t *testing.T) {
	cases := []*string{nil, strptr(""), strptr("   \n\t ")}
	for _, body := range cases {
		if _, err := NewMessage(Message{ConversationID: "c", SenderID: "s", Body: body}, false); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("body %v: expected ErrEmptyMessage, got %v", body, err)
		}
	}
}

func TestNewMessageAttachmentOnlyIsValid(t *testing.T) {
	m, err := NewMessage(Message{ConversationID: "c", SenderID: "s"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Body != nil {
		t.Errorf("expected nil body, got %v", m.Body)
	}
}

func TestNewMessageRequiresIdentity(t *testing.T) {
	if _, err := NewMessage(Message{SenderID: "s", Body: strptr("x")}, false); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("missing conversation: expected ErrInvalidMessage, got %v", err)
	}
	if _, err := NewMessage(Message{ConversationID: "c", Body: strptr("x")}, false); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("missing sender: expected ErrInvalidMessage, got %v", err)
	}
}

func TestDeliveryStatusOrdering(t *testing.T) {
	if !(StatusSent < StatusDelivered && StatusDelivered < StatusRead) {
		t.Fatal("delivery states must be ordered SENT < DELIVERED < READ")
	}
}

func TestDeliveryStatusValid(t *testing.T) {
	for _, s := range []DeliveryStatus{StatusSent, StatusDelivered, StatusRead} {
		if !s.Valid() {
			t.Errorf("%v should be valid", s)
		}
	}
	for _, s := range []DeliveryStatus{-1, 3, 42} {
		if s.Valid() {
			t.Errorf("%v should be invalid", s)
		}
	}
}

func TestDeliveryStatusString(t *testing.T) {
	if StatusSent.String() != "sent" || StatusDelivered.String() != "delivered" || StatusRead.String() != "read" {
		t.Error("unexpected status labels")
	}
	if DeliveryStatus(9).String() != "unknown" {
		t.Error("out-of-range status should print unknown")
	}
}
