package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/famguard/FamGuardBack/internal/audit"
	"github.com/famguard/FamGuardBack/internal/metrics"
	"github.com/famguard/FamGuardBack/internal/models"
	"github.com/famguard/FamGuardBack/internal/notify"
	"github.com/famguard/FamGuardBack/internal/oversight"
)

const (
	maxStartInMinutes  = 60
	minDurationMinutes = 1
	maxDurationMinutes = 480
)

type childReader interface {
	GetByID(ctx context.Context, childID int64) (*models.Child, error)
}

type conversationReader interface {
	GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error)
}

type timeoutStore interface {
	Create(ctx context.Context, timeout *models.Timeout) error
	GetByID(ctx context.Context, timeoutID int64) (*models.Timeout, error)
	ActiveWindowExists(ctx context.Context, childID, conversationID int64, now time.Time) (bool, error)
	ListNotEndedByGuardian(ctx context.Context, guardianID int64) ([]models.Timeout, error)
	RefreshLifecycle(ctx context.Context, childID int64, now time.Time) error
	MarkStatus(ctx context.Context, timeoutID int64, currentStatus, nextStatus models.TimeoutStatus, endedBy *string) error
	EndEarly(ctx context.Context, timeoutID int64, endedBy string, now time.Time) (*models.Timeout, error)
}

// TimeoutService manages suppression windows. There is no background timer;
// lifecycle transitions happen lazily on every read or gate check.
type TimeoutService struct {
	timeouts      timeoutStore
	children      childReader
	conversations conversationReader
	auditLog      *audit.Logger
	events        notify.Publisher
	now           func() time.Time
}

func NewTimeoutService(
	timeouts timeoutStore,
	children childReader,
	conversations conversationReader,
	auditLog *audit.Logger,
	events notify.Publisher,
) *TimeoutService {
	return &TimeoutService{
		timeouts:      timeouts,
		children:      children,
		conversations: conversations,
		auditLog:      auditLog,
		events:        events,
		now:           time.Now,
	}
}

type CreateTimeoutInput struct {
	ChildID         int64
	ConversationID  *int64
	StartInMinutes  int
	DurationMinutes int
	Reason          *string
}

func (s *TimeoutService) CreateTimeout(
	ctx context.Context,
	guardianID int64,
	input CreateTimeoutInput,
) (*models.Timeout, error) {
	if input.ChildID <= 0 {
		return nil, ErrInvalidInput
	}
	if input.StartInMinutes < 0 || input.StartInMinutes > maxStartInMinutes {
		return nil, ErrInvalidInput
	}
	if input.DurationMinutes < minDurationMinutes || input.DurationMinutes > maxDurationMinutes {
		return nil, ErrInvalidInput
	}

	child, err := s.children.GetByID(ctx, input.ChildID)
	if err != nil {
		return nil, err
	}
	if child.GuardianID != guardianID {
		return nil, ErrForbidden
	}

	scope := "global"
	if input.ConversationID != nil {
		conversation, err := s.conversations.GetByID(ctx, *input.ConversationID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidInput
			}
			return nil, err
		}
		if !conversation.HasParticipant(input.ChildID) {
			return nil, ErrInvalidInput
		}
		scope = "conversation"
	}

	now := s.now().UTC()
	startAt := now.Add(time.Duration(input.StartInMinutes) * time.Minute)
	endAt := startAt.Add(time.Duration(input.DurationMinutes) * time.Minute)

	timeout := &models.Timeout{
		ChildID:        input.ChildID,
		ConversationID: input.ConversationID,
		StartAt:        startAt,
		EndAt:          endAt,
		Status:         oversight.DeriveTimeoutStatus(startAt, endAt, now),
		Reason:         input.Reason,
		CreatedBy:      guardianID,
	}
	if err := s.timeouts.Create(ctx, timeout); err != nil {
		return nil, err
	}

	metrics.TimeoutsCreated.WithLabelValues(scope).Inc()
	s.auditLog.TimeoutCreated(timeout.ID, timeout.ChildID, guardianID, string(timeout.Status))
	s.events.Publish(ctx, notify.Event{
		Kind:     notify.KindTimeoutCreated,
		EntityID: timeout.ID,
		ChildID:  timeout.ChildID,
		Status:   string(timeout.Status),
		At:       now,
	})

	return timeout, nil
}

// ListActiveTimeouts returns a guardian's scheduled and running windows with
// statuses derived from the clock. Stale cached statuses are rewritten as a
// side effect; windows past their end are excluded without needing any
// explicit update call.
func (s *TimeoutService) ListActiveTimeouts(ctx context.Context, guardianID int64) ([]models.Timeout, error) {
	rows, err := s.timeouts.ListNotEndedByGuardian(ctx, guardianID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	active := make([]models.Timeout, 0, len(rows))
	for _, timeout := range rows {
		derived := oversight.DeriveTimeoutStatus(timeout.StartAt, timeout.EndAt, now)
		if derived != timeout.Status {
			s.refreshCachedStatus(ctx, &timeout, derived)
		}
		if derived == models.TimeoutStatusEnded {
			continue
		}
		timeout.Status = derived
		active = append(active, timeout)
	}

	return active, nil
}

// EndTimeout lets a guardian terminate a window before its natural expiry.
func (s *TimeoutService) EndTimeout(ctx context.Context, guardianID, timeoutID int64) (*models.Timeout, error) {
	timeout, err := s.timeouts.GetByID(ctx, timeoutID)
	if err != nil {
		return nil, err
	}

	child, err := s.children.GetByID(ctx, timeout.ChildID)
	if err != nil {
		return nil, err
	}
	if child.GuardianID != guardianID {
		return nil, ErrForbidden
	}

	now := s.now().UTC()
	if oversight.DeriveTimeoutStatus(timeout.StartAt, timeout.EndAt, now) == models.TimeoutStatusEnded {
		s.refreshCachedStatus(ctx, timeout, models.TimeoutStatusEnded)
		return nil, ErrAlreadyTerminal
	}

	ended, err := s.timeouts.EndEarly(ctx, timeoutID, models.TimeoutEndedByGuardian, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyTerminal
		}
		return nil, err
	}

	metrics.TimeoutsEndedEarly.Inc()
	s.auditLog.TimeoutEnded(ended.ID, guardianID, models.TimeoutEndedByGuardian)
	s.events.Publish(ctx, notify.Event{
		Kind:     notify.KindTimeoutEnded,
		EntityID: ended.ID,
		ChildID:  ended.ChildID,
		Status:   string(ended.Status),
		At:       now,
	})

	return ended, nil
}

// IsGated reports whether any window for the child contains now, globally or
// scoped to the given conversation. The answer comes from the window bounds;
// the cached status refresh beforehand is advisory and its failure is not
// allowed to block the check.
func (s *TimeoutService) IsGated(ctx context.Context, childID, conversationID int64, now time.Time) (bool, error) {
	_ = s.timeouts.RefreshLifecycle(ctx, childID, now)
	return s.timeouts.ActiveWindowExists(ctx, childID, conversationID, now)
}

func (s *TimeoutService) refreshCachedStatus(ctx context.Context, timeout *models.Timeout, derived models.TimeoutStatus) {
	var endedBy *string
	if derived == models.TimeoutStatusEnded {
		system := models.TimeoutEndedBySystem
		endedBy = &system
	}
	// Cache maintenance only; a lost race or write failure is harmless.
	_ = s.timeouts.MarkStatus(ctx, timeout.ID, timeout.Status, derived, endedBy)
}
