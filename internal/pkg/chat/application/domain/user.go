package chat

// User is the slice of the account entity the realtime layer needs:
// identity plus the display fields hydrated into outbound messages.
type User struct {
	ID          string  `db:"id"`
	DisplayName string  `db:"display_name"`
	AvatarURL   *string `db:"avatar_url"`
}
