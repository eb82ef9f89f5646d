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

// FriendshipService handles friend requests and unilateral guardian blocks.
type FriendshipService struct {
	db               *pgxpool.Pool
	friendshipRepo   *repository.FriendshipRepository
	conversationRepo *repository.ConversationRepository
	children         childReader
	gate             timeoutGate
	auditLog         *audit.Logger
	events           notify.Publisher
	now              func() time.Time
}

func NewFriendshipService(
	db *pgxpool.Pool,
	friendshipRepo *repository.FriendshipRepository,
	conversationRepo *repository.ConversationRepository,
	children childReader,
	gate timeoutGate,
	auditLog *audit.Logger,
	events notify.Publisher,
) *FriendshipService {
	return &FriendshipService{
		db:               db,
		friendshipRepo:   friendshipRepo,
		conversationRepo: conversationRepo,
		children:         children,
		gate:             gate,
		auditLog:         auditLog,
		events:           events,
		now:              time.Now,
	}
}

// RequestFriendship runs the same gate order as a message send, with timeout
// checks against global windows only since no conversation exists yet, then
// derives the initial status from both sides' policies.
func (s *FriendshipService) RequestFriendship(
	ctx context.Context,
	requesterChildID int64,
	targetChildID int64,
) (*models.Friendship, error) {
	if targetChildID <= 0 || targetChildID == requesterChildID {
		return nil, ErrInvalidInput
	}

	requester, err := s.children.GetByID(ctx, requesterChildID)
	if err != nil {
		return nil, err
	}
	target, err := s.children.GetByID(ctx, targetChildID)
	if err != nil {
		return nil, err
	}

	if requester.MessagingPaused {
		metrics.FriendRequests.WithLabelValues("paused").Inc()
		return nil, ErrMessagingPaused
	}

	now := s.now().UTC()
	gated, err := s.gate.IsGated(ctx, requesterChildID, 0, now)
	if err != nil {
		return nil, err
	}
	if gated {
		metrics.FriendRequests.WithLabelValues("timeout_active").Inc()
		return nil, ErrTimeoutActive
	}

	gated, err = s.gate.IsGated(ctx, targetChildID, 0, now)
	if err != nil {
		return nil, err
	}
	if gated {
		metrics.FriendRequests.WithLabelValues("friend_timeout").Inc()
		return nil, ErrFriendTimeout
	}

	if _, err := s.friendshipRepo.GetByPair(ctx, requesterChildID, targetChildID); err == nil {
		return nil, ErrFriendshipExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// A brand-new pair is by definition a first qualifying exchange for
	// both sides.
	requesterNeedsApproval := oversight.RequiresApproval(requester.OversightMode, true)
	targetNeedsApproval := oversight.RequiresApproval(target.OversightMode, true)
	status := oversight.InitialFriendshipStatus(requesterNeedsApproval, targetNeedsApproval)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txFriendshipRepo := repository.NewFriendshipRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	friendship, err := txFriendshipRepo.Create(ctx, requesterChildID, targetChildID, status)
	if err != nil {
		return nil, err
	}

	if status == models.FriendshipStatusApproved {
		if _, err := txConversationRepo.CreateOrGet(ctx, requesterChildID, targetChildID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.FriendRequests.WithLabelValues(string(status)).Inc()
	s.auditLog.FriendshipCreated(friendship.ID, requesterChildID, targetChildID, string(status))
	s.events.Publish(ctx, notify.Event{
		Kind:     notify.KindFriendshipStatus,
		EntityID: friendship.ID,
		ChildID:  targetChildID,
		Status:   string(status),
		At:       now,
	})

	return friendship, nil
}

// BlockFriendship lets the guardian of either child block the pair, from any
// state including approved.
func (s *FriendshipService) BlockFriendship(
	ctx context.Context,
	guardianID int64,
	friendshipID int64,
) (*models.Friendship, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txFriendshipRepo := repository.NewFriendshipRepository(tx)

	friendship, err := txFriendshipRepo.GetByIDForUpdate(ctx, friendshipID)
	if err != nil {
		return nil, err
	}

	childA, err := s.children.GetByID(ctx, friendship.ChildAID)
	if err != nil {
		return nil, err
	}
	childB, err := s.children.GetByID(ctx, friendship.ChildBID)
	if err != nil {
		return nil, err
	}
	if childA.GuardianID != guardianID && childB.GuardianID != guardianID {
		return nil, ErrForbidden
	}

	if !oversight.CanBlockFriendship(friendship.Status) {
		return nil, ErrAlreadyTerminal
	}

	blocked, err := txFriendshipRepo.SetBlocked(ctx, friendshipID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyTerminal
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.FriendshipsBlocked.Inc()
	s.auditLog.FriendshipBlocked(friendshipID, guardianID)
	s.events.Publish(ctx, notify.Event{
		Kind:     notify.KindFriendshipStatus,
		EntityID: blocked.ID,
		Status:   string(blocked.Status),
		At:       s.now().UTC(),
	})

	return blocked, nil
}

func (s *FriendshipService) ListForChild(ctx context.Context, childID int64) ([]models.Friendship, error) {
	return s.friendshipRepo.ListForChild(ctx, childID)
}
