package models

import "time"

// OversightMode controls how much guardian sign-off a child's messaging
// requires.
type OversightMode string

const (
	// OversightMonitor delivers content immediately; the guardian can read
	// it retrospectively.
	OversightMonitor OversightMode = "monitor"
	// OversightApproveFirst requires approval only until the child has a
	// first delivered or approved exchange with a given peer.
	OversightApproveFirst OversightMode = "approve_first"
	// OversightApproveAll requires approval for every exchange.
	OversightApproveAll OversightMode = "approve_all"
)

// NormalizeOversightMode maps unknown or empty values to the default mode.
func NormalizeOversightMode(mode OversightMode) OversightMode {
	switch mode {
	case OversightMonitor, OversightApproveFirst, OversightApproveAll:
		return mode
	default:
		return OversightApproveFirst
	}
}

// ValidOversightMode reports whether mode is one of the configured values.
func ValidOversightMode(mode OversightMode) bool {
	switch mode {
	case OversightMonitor, OversightApproveFirst, OversightApproveAll:
		return true
	}
	return false
}

// Child is a supervised account. Its ID is the child's user id; settings are
// mutable only by the owning guardian.
type Child struct {
	ID              int64         `json:"id"`
	GuardianID      int64         `json:"guardian_id"`
	DisplayName     string        `json:"display_name"`
	OversightMode   OversightMode `json:"oversight_mode"`
	MessagingPaused bool          `json:"messaging_paused"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
