package chat

import "time"

// Attachment is uploaded out-of-band; messages reference it through a bridge
// table so one upload can be linked before the message itself exists.
type Attachment struct {
	ID        string    `db:"id"`
	FileURL   string    `db:"file_url"`
	MimeType  string    `db:"mime_type"`
	CreatedAt time.Time `db:"created_at"`
}
