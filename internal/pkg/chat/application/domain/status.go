package chat

import "time"

// DeliveryStatus is the per-recipient state of a message.
// Ordering is significant: transitions are monotonically non-decreasing
// under SENT < DELIVERED < READ; a lower-valued update is a no-op.
type DeliveryStatus int16

const (
	StatusSent      DeliveryStatus = 0
	StatusDelivered DeliveryStatus = 1
	StatusRead      DeliveryStatus = 2
)

func (s DeliveryStatus) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusDelivered:
		return "delivered"
	case StatusRead:
		return "read"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the known delivery states.
func (s DeliveryStatus) Valid() bool {
	return s >= StatusSent && s <= StatusRead
}

// MessageStatus is one recipient's delivery record for one message.
// Unique on (MessageID, ReceiverID). DeliveredAt is set only on the
// DELIVERED transition and ReadAt only on the READ transition; neither
// is ever overwritten.
type MessageStatus struct {
	MessageID   string         `db:"message_id" json:"messageId"`
	ReceiverID  string         `db:"receiver_id" json:"receiverId"`
	Status      DeliveryStatus `db:"status" json:"status"`
	DeliveredAt *time.Time     `db:"delivered_at" json:"deliveredAt,omitempty"`
	ReadAt      *time.Time     `db:"read_at" json:"readAt,omitempty"`
}
