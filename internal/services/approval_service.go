package services

import (
	"context"
	"errors"
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

const (
	EntityMessage    = "message"
	EntityFriendship = "friendship"
)

// ApprovalService applies guardian decisions to held messages and friend
// requests. Transitions run under a row lock plus an optimistic status check,
// so of two concurrent decisions the first commit wins and the second gets
// ErrAlreadyTerminal.
type ApprovalService struct {
	db               *pgxpool.Pool
	messageRepo      *repository.MessageRepository
	friendshipRepo   *repository.FriendshipRepository
	conversationRepo *repository.ConversationRepository
	children         childReader
	auditLog         *audit.Logger
	events           notify.Publisher
	now              func() time.Time
}

func NewApprovalService(
	db *pgxpool.Pool,
	messageRepo *repository.MessageRepository,
	friendshipRepo *repository.FriendshipRepository,
	conversationRepo *repository.ConversationRepository,
	children childReader,
	auditLog *audit.Logger,
	events notify.Publisher,
) *ApprovalService {
	return &ApprovalService{
		db:               db,
		messageRepo:      messageRepo,
		friendshipRepo:   friendshipRepo,
		conversationRepo: conversationRepo,
		children:         children,
		auditLog:         auditLog,
		events:           events,
		now:              time.Now,
	}
}

type PendingApprovals struct {
	Messages    []models.Message    `json:"messages"`
	Friendships []models.Friendship `json:"friendships"`
}

// ListPending returns everything currently waiting on this guardian.
func (s *ApprovalService) ListPending(ctx context.Context, guardianID int64) (*PendingApprovals, error) {
	messages, err := s.messageRepo.ListPendingForGuardian(ctx, guardianID)
	if err != nil {
		return nil, err
	}
	friendships, err := s.friendshipRepo.ListPendingForGuardian(ctx, guardianID)
	if err != nil {
		return nil, err
	}
	return &PendingApprovals{Messages: messages, Friendships: friendships}, nil
}

type DecisionResult struct {
	EntityType string             `json:"entity_type"`
	Message    *models.Message    `json:"message,omitempty"`
	Friendship *models.Friendship `json:"friendship,omitempty"`
	Status     string             `json:"status"`
}

// Decide applies an approve/deny decision on behalf of a guardian.
func (s *ApprovalService) Decide(
	ctx context.Context,
	guardianID int64,
	entityType string,
	entityID int64,
	rawDecision string,
) (*DecisionResult, error) {
	decision, ok := oversight.ParseDecision(rawDecision)
	if !ok {
		return nil, ErrInvalidInput
	}

	switch entityType {
	case EntityMessage:
		return s.decideMessage(ctx, guardianID, entityID, decision)
	case EntityFriendship:
		return s.decideFriendship(ctx, guardianID, entityID, decision)
	default:
		return nil, ErrInvalidInput
	}
}

func (s *ApprovalService) decideMessage(
	ctx context.Context,
	guardianID int64,
	messageID int64,
	decision oversight.Decision,
) (*DecisionResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.GetByIDForUpdate(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if oversight.MessageStatusTerminal(message.Status) {
		return nil, ErrAlreadyTerminal
	}

	conversation, err := txConversationRepo.GetByID(ctx, message.ConversationID)
	if err != nil {
		return nil, err
	}
	recipientChildID := conversation.OtherParticipant(message.SenderChildID)

	approverChildID := message.SenderChildID
	if message.Status == models.MessageStatusPendingRecipient {
		approverChildID = recipientChildID
	}
	approverChild, err := s.children.GetByID(ctx, approverChildID)
	if err != nil {
		return nil, err
	}
	if approverChild.GuardianID != guardianID {
		return nil, ErrForbidden
	}

	// When the sender's guardian approves, the recipient gate is
	// re-evaluated against history as of now, not as of the send.
	recipientNeedsApproval := false
	if message.Status == models.MessageStatusPending && decision == oversight.DecisionApprove {
		hasHistory, err := txMessageRepo.HasQualifyingHistory(ctx, conversation.ID, message.SenderChildID)
		if err != nil {
			return nil, err
		}
		recipient, err := s.children.GetByID(ctx, recipientChildID)
		if err != nil {
			return nil, err
		}
		recipientNeedsApproval = oversight.RequiresApproval(recipient.OversightMode, !hasHistory)
	}

	nextStatus, err := oversight.NextMessageStatus(message.Status, decision, recipientNeedsApproval)
	if err != nil {
		if errors.Is(err, oversight.ErrTerminalStatus) {
			return nil, ErrAlreadyTerminal
		}
		return nil, err
	}

	now := s.now().UTC()
	var deliveredAt *time.Time
	if nextStatus == models.MessageStatusDelivered {
		deliveredAt = &now
	}

	updated, err := txMessageRepo.UpdateStatusIfCurrent(ctx, messageID, message.Status, nextStatus, deliveredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyTerminal
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.ApprovalDecisions.WithLabelValues(EntityMessage, string(decision)).Inc()
	s.auditLog.MessageDecided(messageID, guardianID, string(decision), string(message.Status), string(updated.Status))
	s.events.Publish(ctx, notify.Event{
		Kind:     notify.KindMessageStatus,
		EntityID: updated.ID,
		ChildID:  recipientChildID,
		Status:   string(updated.Status),
		At:       now,
	})

	return &DecisionResult{
		EntityType: EntityMessage,
		Message:    updated,
		Status:     string(updated.Status),
	}, nil
}

func (s *ApprovalService) decideFriendship(
	ctx context.Context,
	guardianID int64,
	friendshipID int64,
	decision oversight.Decision,
) (*DecisionResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txFriendshipRepo := repository.NewFriendshipRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	friendship, err := txFriendshipRepo.GetByIDForUpdate(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if oversight.FriendshipStatusTerminal(friendship.Status) {
		return nil, ErrAlreadyTerminal
	}

	targetChildID := friendship.TargetChildID()
	approverChildID := friendship.RequesterChildID
	if friendship.Status == models.FriendshipStatusPendingRecipient {
		approverChildID = targetChildID
	}
	approverChild, err := s.children.GetByID(ctx, approverChildID)
	if err != nil {
		return nil, err
	}
	if approverChild.GuardianID != guardianID {
		return nil, ErrForbidden
	}

	targetNeedsApproval := false
	if friendship.Status == models.FriendshipStatusPending && decision == oversight.DecisionApprove {
		everApproved, err := txFriendshipRepo.HasApprovedFriendship(ctx, friendship.ChildAID, friendship.ChildBID)
		if err != nil {
			return nil, err
		}
		target, err := s.children.GetByID(ctx, targetChildID)
		if err != nil {
			return nil, err
		}
		targetNeedsApproval = oversight.RequiresApproval(target.OversightMode, !everApproved)
	}

	nextStatus, err := oversight.NextFriendshipStatus(friendship.Status, decision, targetNeedsApproval)
	if err != nil {
		if errors.Is(err, oversight.ErrTerminalStatus) {
			return nil, ErrAlreadyTerminal
		}
		return nil, err
	}

	updated, err := txFriendshipRepo.UpdateStatusIfCurrent(ctx, friendshipID, friendship.Status, nextStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyTerminal
		}
		return nil, err
	}

	// An approved friendship opens the pair's conversation.
	if updated.Status == models.FriendshipStatusApproved {
		if _, err := txConversationRepo.CreateOrGet(ctx, updated.ChildAID, updated.ChildBID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	metrics.ApprovalDecisions.WithLabelValues(EntityFriendship, string(decision)).Inc()
	s.auditLog.FriendshipDecided(friendshipID, guardianID, string(decision), string(friendship.Status), string(updated.Status))
	s.events.Publish(ctx, notify.Event{
		Kind:     notify.KindFriendshipStatus,
		EntityID: updated.ID,
		ChildID:  targetChildID,
		Status:   string(updated.Status),
		At:       now,
	})

	return &DecisionResult{
		EntityType: EntityFriendship,
		Friendship: updated,
		Status:     string(updated.Status),
	}, nil
}
