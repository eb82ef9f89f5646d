package models

import "time"

type FriendshipStatus string

const (
	// FriendshipStatusPending is waiting on the requester's guardian.
	FriendshipStatusPending FriendshipStatus = "pending"
	// FriendshipStatusPendingRecipient is waiting on the target's guardian.
	FriendshipStatusPendingRecipient FriendshipStatus = "pending_recipient"
	// FriendshipStatusApproved means the children may converse.
	FriendshipStatusApproved FriendshipStatus = "approved"
	// FriendshipStatusBlocked is terminal and reachable from any state by
	// either guardian.
	FriendshipStatusBlocked FriendshipStatus = "blocked"
)

// Friendship links an unordered pair of children. ChildAID is always the
// smaller id; RequesterChildID records which side initiated.
type Friendship struct {
	ID               int64            `json:"id"`
	ChildAID         int64            `json:"child_a_id"`
	ChildBID         int64            `json:"child_b_id"`
	RequesterChildID int64            `json:"requester_child_id"`
	Status           FriendshipStatus `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// TargetChildID returns the side that did not initiate the request.
func (f *Friendship) TargetChildID() int64 {
	if f.RequesterChildID == f.ChildAID {
		return f.ChildBID
	}
	return f.ChildAID
}
