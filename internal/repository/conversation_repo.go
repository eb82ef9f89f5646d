package repository

import (
	"context"
	"database/sql"

	"github.com/famguard/FamGuardBack/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGet returns the single conversation for an unordered child pair,
// creating it on first use. Callers pass ids in any order.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	firstChildID int64,
	secondChildID int64,
) (*models.Conversation, error) {
	childA, childB := models.NormalizePair(firstChildID, secondChildID)

	query := `
		INSERT INTO conversations (child_a_id, child_b_id)
		VALUES ($1, $2)
		ON CONFLICT (child_a_id, child_b_id)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id, child_a_id, child_b_id, created_at, updated_at
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, childA, childB).Scan(
		&conversation.ID,
		&conversation.ChildAID,
		&conversation.ChildBID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `
		SELECT id, child_a_id, child_b_id, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.ChildAID,
		&conversation.ChildBID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

// ListForParticipant returns conversation summaries for a child. Only
// delivered messages are surfaced as previews or counted as unread; held and
// denied messages stay invisible to children.
func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	childID int64,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id,
			c.child_a_id,
			c.child_b_id,
			c.created_at,
			c.updated_at,
			lm.id,
			lm.conversation_id,
			lm.sender_child_id,
			lm.content,
			lm.status,
			lm.is_read,
			lm.delivered_at,
			lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, conversation_id, sender_child_id, content, status, is_read, delivered_at, created_at
			FROM messages
			WHERE conversation_id = c.id
			  AND status IN ('delivered', 'approved')
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages
			WHERE conversation_id = c.id
			  AND sender_child_id <> $1
			  AND status IN ('delivered', 'approved')
			  AND is_read = FALSE
		) uc ON TRUE
		WHERE c.child_a_id = $1 OR c.child_b_id = $1
		ORDER BY COALESCE(lm.created_at, c.updated_at, c.created_at) DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullInt64
		var messageConversationID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageContent sql.NullString
		var messageStatus sql.NullString
		var messageIsRead sql.NullBool
		var messageDeliveredAt sql.NullTime
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.ChildAID,
			&summary.ChildBID,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&messageID,
			&messageConversationID,
			&messageSenderID,
			&messageContent,
			&messageStatus,
			&messageIsRead,
			&messageDeliveredAt,
			&messageCreatedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			message := &models.Message{
				ID:             messageID.Int64,
				ConversationID: messageConversationID.Int64,
				SenderChildID:  messageSenderID.Int64,
				Content:        messageContent.String,
				Status:         models.MessageStatus(messageStatus.String),
				IsRead:         messageIsRead.Bool,
				CreatedAt:      messageCreatedAt.Time,
			}
			if messageDeliveredAt.Valid {
				deliveredAt := messageDeliveredAt.Time
				message.DeliveredAt = &deliveredAt
			}
			summary.LastMessage = message
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *ConversationRepository) Touch(ctx context.Context, conversationID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET updated_at = NOW()
		WHERE id = $1
	`, conversationID)
	return err
}
