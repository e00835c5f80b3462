package chat

import "time"

// ConversationType distinguishes direct threads from group threads.
// Some realtime events (the read-by-all aggregate) only apply to groups.
type ConversationType string

const (
	ConversationTypeDM    ConversationType = "DM"
	ConversationTypeGroup ConversationType = "GROUP"
)

// Conversation is a persisted chat thread scoped to a tenant.
type Conversation struct {
	ID        string           `db:"id"`
	TenantID  string           `db:"tenant_id"`
	Type      ConversationType `db:"type"`
	CreatedAt time.Time        `db:"created_at"`
}

// IsGroup reports whether aggregate read events apply to this thread.
func (c Conversation) IsGroup() bool {
	return c.Type == ConversationTypeGroup
}
