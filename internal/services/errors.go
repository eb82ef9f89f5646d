package services

import "errors"

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmailTaken   = errors.New("email already exists")

	// Business-rule blocks. These are expected, named outcomes the UI
	// renders distinctly; handlers must not collapse them.
	ErrMessagingPaused = errors.New("messaging is paused for this child")
	ErrTimeoutActive   = errors.New("a timeout is active for this child")
	ErrFriendTimeout   = errors.New("the friend is taking a break")
	ErrNotFriends      = errors.New("children are not approved friends")

	ErrFriendshipExists = errors.New("friendship already exists for this pair")

	// ErrAlreadyTerminal reports a late transition attempt on an entity
	// that has already been resolved; callers re-fetch, they don't retry.
	ErrAlreadyTerminal = errors.New("entity is already in a terminal state")
)
