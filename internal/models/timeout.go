package models

import "time"

type TimeoutStatus string

const (
	TimeoutStatusScheduled TimeoutStatus = "scheduled"
	TimeoutStatusActive    TimeoutStatus = "active"
	TimeoutStatusEnded     TimeoutStatus = "ended"
)

const (
	TimeoutEndedBySystem   = "system"
	TimeoutEndedByGuardian = "guardian"
)

// Timeout is a scheduled messaging-suppression window for one child. A nil
// ConversationID means the window applies to every conversation the child is
// in. Status is a cached hint only; whether the window is in effect is always
// derived from StartAt/EndAt against the clock.
type Timeout struct {
	ID             int64         `json:"id"`
	ChildID        int64         `json:"child_id"`
	ConversationID *int64        `json:"conversation_id,omitempty"`
	StartAt        time.Time     `json:"start_at"`
	EndAt          time.Time     `json:"end_at"`
	Status         TimeoutStatus `json:"status"`
	Reason         *string       `json:"reason,omitempty"`
	EndedBy        *string       `json:"ended_by,omitempty"`
	CreatedBy      int64         `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
}
