package oversight

import (
	"errors"

	"github.com/famguard/FamGuardBack/internal/models"
)

// ErrTerminalStatus is returned when a transition is attempted on an entity
// whose status accepts no further changes. Callers report it as a conflict,
// not a failure.
var ErrTerminalStatus = errors.New("status is terminal")

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// ParseDecision validates a guardian decision string.
func ParseDecision(raw string) (Decision, bool) {
	switch Decision(raw) {
	case DecisionApprove, DecisionDeny:
		return Decision(raw), true
	}
	return "", false
}

// InitialMessageStatus derives the status a new message is created with from
// the two independent policy results. The sender's gate is evaluated first.
func InitialMessageStatus(senderNeedsApproval, recipientNeedsApproval bool) models.MessageStatus {
	switch {
	case senderNeedsApproval:
		return models.MessageStatusPending
	case recipientNeedsApproval:
		return models.MessageStatusPendingRecipient
	default:
		return models.MessageStatusDelivered
	}
}

// MessageStatusTerminal reports whether a message accepts further decisions.
func MessageStatusTerminal(status models.MessageStatus) bool {
	switch status {
	case models.MessageStatusDelivered, models.MessageStatusApproved, models.MessageStatusDenied:
		return true
	}
	return false
}

// NextMessageStatus applies a guardian decision to a message.
// recipientNeedsApproval is re-evaluated by the caller at decision time and
// only consulted when the sender's guardian approves from pending.
func NextMessageStatus(current models.MessageStatus, decision Decision, recipientNeedsApproval bool) (models.MessageStatus, error) {
	if MessageStatusTerminal(current) {
		return current, ErrTerminalStatus
	}
	if decision == DecisionDeny {
		return models.MessageStatusDenied, nil
	}
	switch current {
	case models.MessageStatusPending:
		if recipientNeedsApproval {
			return models.MessageStatusPendingRecipient, nil
		}
		return models.MessageStatusDelivered, nil
	case models.MessageStatusPendingRecipient:
		return models.MessageStatusDelivered, nil
	default:
		return current, ErrTerminalStatus
	}
}

// InitialFriendshipStatus mirrors InitialMessageStatus for friend requests.
func InitialFriendshipStatus(requesterNeedsApproval, targetNeedsApproval bool) models.FriendshipStatus {
	switch {
	case requesterNeedsApproval:
		return models.FriendshipStatusPending
	case targetNeedsApproval:
		return models.FriendshipStatusPendingRecipient
	default:
		return models.FriendshipStatusApproved
	}
}

// FriendshipStatusTerminal reports whether approve/deny decisions still apply.
// Approved friendships accept no further decisions, but remain blockable via
// CanBlockFriendship.
func FriendshipStatusTerminal(status models.FriendshipStatus) bool {
	switch status {
	case models.FriendshipStatusApproved, models.FriendshipStatusBlocked:
		return true
	}
	return false
}

// NextFriendshipStatus applies a guardian decision to a friend request. A
// denial blocks the pair.
func NextFriendshipStatus(current models.FriendshipStatus, decision Decision, targetNeedsApproval bool) (models.FriendshipStatus, error) {
	if FriendshipStatusTerminal(current) {
		return current, ErrTerminalStatus
	}
	if decision == DecisionDeny {
		return models.FriendshipStatusBlocked, nil
	}
	switch current {
	case models.FriendshipStatusPending:
		if targetNeedsApproval {
			return models.FriendshipStatusPendingRecipient, nil
		}
		return models.FriendshipStatusApproved, nil
	case models.FriendshipStatusPendingRecipient:
		return models.FriendshipStatusApproved, nil
	default:
		return current, ErrTerminalStatus
	}
}

// CanBlockFriendship reports whether a unilateral guardian block applies.
// Blocking is allowed from any state, including approved, except when the
// pair is already blocked.
func CanBlockFriendship(current models.FriendshipStatus) bool {
	return current != models.FriendshipStatusBlocked
}
