package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/famguard/FamGuardBack/internal/audit"
	"github.com/famguard/FamGuardBack/internal/metrics"
	"github.com/famguard/FamGuardBack/internal/models"
	"github.com/famguard/FamGuardBack/internal/notify"
	"github.com/famguard/FamGuardBack/internal/oversight"
	"github.com/famguard/FamGuardBack/internal/repository"
)

type timeoutGate interface {
	IsGated(ctx context.Context, childID, conversationID int64, now time.Time) (bool, error)
}

// MessagingService runs the send orchestration: hard gates in strict order,
// then dual policy evaluation, then the persisted initial status.
type MessagingService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	friendshipRepo   *repository.FriendshipRepository
	children         childReader
	gate             timeoutGate
	auditLog         *audit.Logger
	events           notify.Publisher
	now              func() time.Time
}

func NewMessagingService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	friendshipRepo *repository.FriendshipRepository,
	children childReader,
	gate timeoutGate,
	auditLog *audit.Logger,
	events notify.Publisher,
) *MessagingService {
	return &MessagingService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		friendshipRepo:   friendshipRepo,
		children:         children,
		gate:             gate,
		auditLog:         auditLog,
		events:           events,
		now:              time.Now,
	}
}

// AttemptSendMessage applies the gates in order, each short-circuiting the
// rest: participant check, friendship standing, sender pause, sender timeout,
// recipient timeout. Only then is the initial status derived and the message
// persisted.
func (s *MessagingService) AttemptSendMessage(
	ctx context.Context,
	senderChildID int64,
	conversationID int64,
	content string,
) (*models.Message, error) {
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(senderChildID) {
		return nil, ErrForbidden
	}
	recipientChildID := conversation.OtherParticipant(senderChildID)

	friendship, err := s.friendshipRepo.GetByPair(ctx, senderChildID, recipientChildID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFriends
		}
		return nil, err
	}
	if friendship.Status != models.FriendshipStatusApproved {
		return nil, ErrNotFriends
	}

	sender, err := s.children.GetByID(ctx, senderChildID)
	if err != nil {
		return nil, err
	}
	if sender.MessagingPaused {
		metrics.MessageSendAttempts.WithLabelValues("paused").Inc()
		return nil, ErrMessagingPaused
	}

	now := s.now().UTC()
	gated, err := s.gate.IsGated(ctx, senderChildID, conversationID, now)
	if err != nil {
		return nil, err
	}
	if gated {
		metrics.MessageSendAttempts.WithLabelValues("timeout_active").Inc()
		return nil, ErrTimeoutActive
	}

	gated, err = s.gate.IsGated(ctx, recipientChildID, conversationID, now)
	if err != nil {
		return nil, err
	}
	if gated {
		metrics.MessageSendAttempts.WithLabelValues("friend_timeout").Inc()
		return nil, ErrFriendTimeout
	}

	recipient, err := s.children.GetByID(ctx, recipientChildID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Serialize sends per conversation so two rapid messages cannot both
	// pass the first-contact check before either commits.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", conversationID); err != nil {
		return nil, err
	}

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	hasHistory, err := txMessageRepo.HasQualifyingHistory(ctx, conversationID, senderChildID)
	if err != nil {
		return nil, err
	}
	firstExchange := !hasHistory

	// Both gates key off the sender's history with this peer; the
	// recipient side does not consult the reverse direction.
	senderNeedsApproval := oversight.RequiresApproval(sender.OversightMode, firstExchange)
	recipientNeedsApproval := oversight.RequiresApproval(recipient.OversightMode, firstExchange)
	status := oversight.InitialMessageStatus(senderNeedsApproval, recipientNeedsApproval)

	var deliveredAt *time.Time
	if status == models.MessageStatusDelivered {
		deliveredAt = &now
	}

	message, err := txMessageRepo.Create(ctx, conversationID, senderChildID, trimmed, status, deliveredAt)
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.Touch(ctx, conversationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.MessageSendAttempts.WithLabelValues(string(status)).Inc()
	s.auditLog.MessageCreated(message.ID, conversationID, senderChildID, string(status))
	s.events.Publish(ctx, notify.Event{
		Kind:     notify.KindMessageStatus,
		EntityID: message.ID,
		ChildID:  recipientChildID,
		Status:   string(status),
		At:       now,
	})

	return message, nil
}

// CreateConversation opens (or returns) the conversation for two approved
// friends.
func (s *MessagingService) CreateConversation(
	ctx context.Context,
	actorChildID int64,
	peerChildID int64,
) (*models.Conversation, error) {
	if peerChildID <= 0 || peerChildID == actorChildID {
		return nil, ErrInvalidInput
	}

	friendship, err := s.friendshipRepo.GetByPair(ctx, actorChildID, peerChildID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFriends
		}
		return nil, err
	}
	if friendship.Status != models.FriendshipStatusApproved {
		return nil, ErrNotFriends
	}

	return s.conversationRepo.CreateOrGet(ctx, actorChildID, peerChildID)
}

func (s *MessagingService) ListConversations(ctx context.Context, childID int64) ([]models.ConversationSummary, error) {
	return s.conversationRepo.ListForParticipant(ctx, childID)
}

// ListMessages returns the delivered messages of a conversation for one of
// its participants and marks the fetched page as read.
func (s *MessagingService) ListMessages(
	ctx context.Context,
	actorChildID int64,
	conversationID int64,
	page int,
	limit int,
) ([]models.Message, int, error) {
	if conversationID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if !conversation.HasParticipant(actorChildID) {
		return nil, 0, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)

	messages, total, err := txMessageRepo.ListDelivered(
		ctx,
		conversationID,
		limit,
		(page-1)*limit,
	)
	if err != nil {
		return nil, 0, err
	}

	messageIDs := make([]int64, 0, len(messages))
	for _, message := range messages {
		messageIDs = append(messageIDs, message.ID)
	}

	if err := txMessageRepo.MarkMessagesRead(ctx, messageIDs, actorChildID); err != nil {
		return nil, 0, err
	}

	for i := range messages {
		if messages[i].SenderChildID != actorChildID {
			messages[i].IsRead = true
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}
