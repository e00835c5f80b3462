package chat

import "time"

// MemberRole expresses the role within a conversation.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

// Member captures conversation membership.
// Primary key: (ConversationID, UserID)
type Member struct {
	ConversationID string     `db:"conversation_id"`
	UserID         string     `db:"user_id"`
	Role           MemberRole `db:"role"`
	JoinedAt       time.Time  `db:"joined_at"`
}
