package models

import "time"

type MessageStatus string

const (
	// MessageStatusPending is waiting on the sender's guardian.
	MessageStatusPending MessageStatus = "pending"
	// MessageStatusPendingRecipient is waiting on the recipient's guardian.
	MessageStatusPendingRecipient MessageStatus = "pending_recipient"
	// MessageStatusDelivered is terminal; the recipient can read the message.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusApproved is a legacy terminal label equivalent to
	// delivered; it still counts toward qualifying history.
	MessageStatusApproved MessageStatus = "approved"
	// MessageStatusDenied is terminal; the message is never shown.
	MessageStatusDenied MessageStatus = "denied"
)

// Conversation is the unique, unordered pair of two children. ChildAID is
// always the smaller id.
type Conversation struct {
	ID        int64     `json:"id"`
	ChildAID  int64     `json:"child_a_id"`
	ChildBID  int64     `json:"child_b_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OtherParticipant returns the conversation member that is not childID.
func (c *Conversation) OtherParticipant(childID int64) int64 {
	if childID == c.ChildAID {
		return c.ChildBID
	}
	return c.ChildAID
}

// HasParticipant reports whether childID is one of the two members.
func (c *Conversation) HasParticipant(childID int64) bool {
	return childID == c.ChildAID || childID == c.ChildBID
}

type Message struct {
	ID             int64         `json:"id"`
	ConversationID int64         `json:"conversation_id"`
	SenderChildID  int64         `json:"sender_child_id"`
	Content        string        `json:"content"`
	Status         MessageStatus `json:"status"`
	IsRead         bool          `json:"is_read"`
	DeliveredAt    *time.Time    `json:"delivered_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

type ConversationSummary struct {
	Conversation
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}

// NormalizePair orders two child ids so (a, b) always satisfies a < b,
// matching the storage convention for conversations and friendships.
func NormalizePair(first, second int64) (int64, int64) {
	if first < second {
		return first, second
	}
	return second, first
}
