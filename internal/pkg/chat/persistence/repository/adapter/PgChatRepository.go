package adapter

import (
	"context"
	"errors"
	"time"

	chat "github.com/bk-ghauri/subscription-based-chat-app/internal/pkg/chat/application/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

func (r *PgChatRepository) CreateConversation(ctx context.Context, c chat.Conversation, members []chat.Member) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgChatRepository: nil pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.conversation (tenant_id, type, created_at)
		VALUES (NULLIF($1, '')::uuid, $2, $3)
		RETURNING id::text
	`, c.TenantID, c.Type, c.CreatedAt).Scan(&id)
	if err != nil {
		return "", err
	}

	for _, m := range members {
		_, err = tx.Exec(ctx, `
			INSERT INTO chat.member (conversation_id, user_id, role, joined_at)
			VALUES ($1::uuid, $2::uuid, $3, $4)
			ON CONFLICT (conversation_id, user_id) DO NOTHING
		`, id, m.UserID, m.Role, m.JoinedAt)
		if err != nil {
			return "", err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PgChatRepository) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	var c chat.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, COALESCE(tenant_id::text, ''), type, created_at
		FROM chat.conversation
		WHERE id = $1::uuid
	`, conversationID).Scan(&c.ID, &c.TenantID, &c.Type, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgChatRepository) GetMembership(ctx context.Context, conversationID string, userID string) (*chat.Member, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	var m chat.Member
	err := r.pool.QueryRow(ctx, `
		SELECT conversation_id::text, user_id::text, role, joined_at
		FROM chat.member
		WHERE conversation_id = $1::uuid AND user_id = $2::uuid
	`, conversationID, userID).Scan(&m.ConversationID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgChatRepository) ListMemberIDs(ctx context.Context, conversationID string) ([]string, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT user_id::text FROM chat.member WHERE conversation_id = $1::uuid
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgChatRepository) FindUser(ctx context.Context, userID string) (*chat.User, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	var u chat.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, display_name, avatar_url
		FROM chat.app_user
		WHERE id = $1::uuid
	`, userID).Scan(&u.ID, &u.DisplayName, &u.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveMessage persists the message, its attachment links and the initial SENT
// status rows in one transaction so a partial send can never be observed.
func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message, attachmentIDs []string, recipientIDs []string) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgChatRepository: nil pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.message (conversation_id, sender_id, body, created_at, read_by_all)
		VALUES ($1::uuid, $2::uuid, $3, $4, FALSE)
		RETURNING id::text
	`, m.ConversationID, m.SenderID, m.Body, m.CreatedAt).Scan(&id)
	if err != nil {
		return "", err
	}

	for _, attID := range attachmentIDs {
		ct, err := tx.Exec(ctx, `
			INSERT INTO chat.message_attachment (message_id, attachment_id)
			SELECT $1::uuid, id FROM chat.attachment
			WHERE id = $2::uuid AND deleted_at IS NULL
		`, id, attID)
		if err != nil {
			return "", err
		}
		if ct.RowsAffected() == 0 {
			return "", chat.ErrAttachmentNotFound
		}
	}

	for _, uid := range recipientIDs {
		_, err = tx.Exec(ctx, `
			INSERT INTO chat.message_status (message_id, receiver_id, status)
			VALUES ($1::uuid, $2::uuid, $3)
			ON CONFLICT (message_id, receiver_id) DO NOTHING
		`, id, uid, chat.StatusSent)
		if err != nil {
			return "", err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PgChatRepository) GetMessage(ctx context.Context, messageID string) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	var m chat.Message
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, body, created_at, deleted_at, read_by_all
		FROM chat.message
		WHERE id = $1::uuid AND deleted_at IS NULL
	`, messageID).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt, &m.DeletedAt, &m.ReadByAll)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.MessageView, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT m.id::text, m.conversation_id::text, m.body, m.created_at, m.read_by_all,
		       u.id::text, u.display_name, u.avatar_url
		FROM chat.message m
		JOIN chat.app_user u ON u.id = m.sender_id
		WHERE m.conversation_id = $1::uuid AND m.deleted_at IS NULL
		ORDER BY m.created_at ASC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []chat.MessageView
	for rows.Next() {
		var v chat.MessageView
		if err := rows.Scan(&v.ID, &v.ConversationID, &v.Body, &v.CreatedAt, &v.ReadByAll,
			&v.Sender.ID, &v.Sender.DisplayName, &v.Sender.AvatarURL); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range views {
		atts, err := r.attachmentsForMessage(ctx, views[i].ID)
		if err != nil {
			return nil, err
		}
		views[i].Attachments = atts
		sts, err := r.ListStatuses(ctx, views[i].ID)
		if err != nil {
			return nil, err
		}
		views[i].Statuses = sts
	}
	return views, nil
}

func (r *PgChatRepository) attachmentsForMessage(ctx context.Context, messageID string) ([]chat.AttachmentView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text, a.file_url
		FROM chat.message_attachment ma
		JOIN chat.attachment a ON a.id = ma.attachment_id
		WHERE ma.message_id = $1::uuid AND ma.deleted_at IS NULL AND a.deleted_at IS NULL
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	atts := []chat.AttachmentView{}
	for rows.Next() {
		var a chat.AttachmentView
		if err := rows.Scan(&a.ID, &a.FileURL); err != nil {
			return nil, err
		}
		atts = append(atts, a)
	}
	return atts, rows.Err()
}

// SoftDeleteMessage tombstones the message and its attachment links together;
// a partially deleted message is never visible.
func (r *PgChatRepository) SoftDeleteMessage(ctx context.Context, messageID string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE chat.message SET deleted_at = now()
		WHERE id = $1::uuid AND deleted_at IS NULL
	`, messageID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrMessageNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE chat.message_attachment SET deleted_at = now()
		WHERE message_id = $1::uuid AND deleted_at IS NULL
	`, messageID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PgChatRepository) ResolveAttachments(ctx context.Context, attachmentIDs []string) ([]chat.Attachment, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if len(attachmentIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, file_url, mime_type, created_at
		FROM chat.attachment
		WHERE id = ANY($1::uuid[]) AND deleted_at IS NULL
	`, attachmentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var atts []chat.Attachment
	for rows.Next() {
		var a chat.Attachment
		if err := rows.Scan(&a.ID, &a.FileURL, &a.MimeType, &a.CreatedAt); err != nil {
			return nil, err
		}
		atts = append(atts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(atts) != len(attachmentIDs) {
		return nil, chat.ErrAttachmentNotFound
	}
	return atts, nil
}

// UpdateStatus enforces the monotonic ordering invariant in SQL: the stored
// status never decreases and each transition timestamp is written at most
// once, only by the transition that owns it. Strictly update-only: a missing
// row means the caller is not a send-time recipient and the event is a no-op,
// keeping the read-by-all denominator fixed.
func (r *PgChatRepository) UpdateStatus(ctx context.Context, messageID string, receiverID string, status chat.DeliveryStatus, at time.Time) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgChatRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.message_status SET
			status = GREATEST(status, $3),
			delivered_at = COALESCE(delivered_at,
				CASE WHEN $3 = 1 THEN $4::timestamptz END),
			read_at = COALESCE(read_at,
				CASE WHEN $3 = 2 THEN $4::timestamptz END)
		WHERE message_id = $1::uuid AND receiver_id = $2::uuid
	`, messageID, receiverID, status, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgChatRepository) ListStatuses(ctx context.Context, messageID string) ([]chat.MessageStatus, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT message_id::text, receiver_id::text, status, delivered_at, read_at
		FROM chat.message_status
		WHERE message_id = $1::uuid
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := []chat.MessageStatus{}
	for rows.Next() {
		var s chat.MessageStatus
		if err := rows.Scan(&s.MessageID, &s.ReceiverID, &s.Status, &s.DeliveredAt, &s.ReadAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// MarkReadByAllIfComplete performs the read-count-then-flip as a single
// guarded UPDATE. The read_by_all = FALSE predicate is the compare-and-set:
// when concurrent READ updates race to be last, exactly one caller's UPDATE
// matches a row and returns true.
func (r *PgChatRepository) MarkReadByAllIfComplete(ctx context.Context, messageID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgChatRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.message
		SET read_by_all = TRUE
		WHERE id = $1::uuid
		  AND deleted_at IS NULL
		  AND read_by_all = FALSE
		  AND NOT EXISTS (
			SELECT 1 FROM chat.message_status
			WHERE message_id = $1::uuid AND status <> 2
		  )
	`, messageID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
