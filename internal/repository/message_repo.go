package repository

import (
	"context"
	"time"

	"github.com/famguard/FamGuardBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, conversation_id, sender_child_id, content, status, is_read, delivered_at, created_at`

func scanMessage(row interface{ Scan(dest ...any) error }, message *models.Message) error {
	return row.Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderChildID,
		&message.Content,
		&message.Status,
		&message.IsRead,
		&message.DeliveredAt,
		&message.CreatedAt,
	)
}

func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID int64,
	senderChildID int64,
	content string,
	status models.MessageStatus,
	deliveredAt *time.Time,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_child_id, content, status, is_read, delivered_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		RETURNING ` + messageColumns

	var message models.Message
	err := scanMessage(
		r.db.QueryRow(ctx, query, conversationID, senderChildID, content, status, deliveredAt),
		&message,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, messageID int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	var message models.Message
	if err := scanMessage(r.db.QueryRow(ctx, query, messageID), &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) GetByIDForUpdate(ctx context.Context, messageID int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1 FOR UPDATE`

	var message models.Message
	if err := scanMessage(r.db.QueryRow(ctx, query, messageID), &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// UpdateStatusIfCurrent transitions a message only when its status still
// matches what the caller read, so a concurrent decision loses with
// pgx.ErrNoRows instead of overwriting. delivered_at is stamped at most once.
func (r *MessageRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	messageID int64,
	currentStatus models.MessageStatus,
	nextStatus models.MessageStatus,
	deliveredAt *time.Time,
) (*models.Message, error) {
	query := `
		UPDATE messages
		SET status = $3, delivered_at = COALESCE(delivered_at, $4)
		WHERE id = $1 AND status = $2
		RETURNING ` + messageColumns

	var message models.Message
	err := scanMessage(
		r.db.QueryRow(ctx, query, messageID, currentStatus, nextStatus, deliveredAt),
		&message,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// HasQualifyingHistory reports whether the sender already has a delivered or
// approved message in this conversation, i.e. whether first contact has
// graduated.
func (r *MessageRepository) HasQualifyingHistory(
	ctx context.Context,
	conversationID int64,
	senderChildID int64,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM messages
			WHERE conversation_id = $1
			  AND sender_child_id = $2
			  AND status IN ('delivered', 'approved')
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, conversationID, senderChildID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListDelivered returns the child-visible messages of a conversation, newest
// first.
func (r *MessageRepository) ListDelivered(
	ctx context.Context,
	conversationID int64,
	limit int,
	offset int,
) ([]models.Message, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1
		  AND status IN ('delivered', 'approved')
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		  AND status IN ('delivered', 'approved')
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := scanMessage(rows, &message); err != nil {
			return nil, 0, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// ListPendingForGuardian returns messages currently waiting on the given
// guardian: pending ones sent by their children plus pending_recipient ones
// addressed to their children.
func (r *MessageRepository) ListPendingForGuardian(
	ctx context.Context,
	guardianID int64,
) ([]models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_child_id, m.content, m.status, m.is_read, m.delivered_at, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		JOIN children approver ON approver.id = CASE
			WHEN m.status = 'pending' THEN m.sender_child_id
			WHEN m.sender_child_id = c.child_a_id THEN c.child_b_id
			ELSE c.child_a_id
		END
		WHERE m.status IN ('pending', 'pending_recipient')
		  AND approver.guardian_id = $1
		ORDER BY m.created_at, m.id
	`

	rows, err := r.db.Query(ctx, query, guardianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := scanMessage(rows, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *MessageRepository) MarkMessagesRead(
	ctx context.Context,
	messageIDs []int64,
	readerChildID int64,
) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE id = ANY($1)
		  AND sender_child_id <> $2
		  AND status IN ('delivered', 'approved')
		  AND is_read = FALSE
	`, messageIDs, readerChildID)
	return err
}
