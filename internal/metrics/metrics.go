package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessageSendAttempts counts send attempts by outcome: the initial
	// status for accepted sends, or the gate that rejected the attempt
	// (paused, timeout_active, friend_timeout).
	MessageSendAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "famguard_message_send_attempts_total",
			Help: "Total message send attempts by outcome",
		},
		[]string{"outcome"},
	)

	FriendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "famguard_friend_requests_total",
			Help: "Total friend requests by outcome",
		},
		[]string{"outcome"},
	)

	ApprovalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "famguard_approval_decisions_total",
			Help: "Total guardian approval decisions",
		},
		[]string{"entity", "decision"},
	)

	FriendshipsBlocked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "famguard_friendships_blocked_total",
			Help: "Total unilateral guardian blocks",
		},
	)

	TimeoutsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "famguard_timeouts_created_total",
			Help: "Total timeout windows created",
		},
		[]string{"scope"}, // "global" or "conversation"
	)

	TimeoutsEndedEarly = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "famguard_timeouts_ended_early_total",
			Help: "Total timeout windows ended by a guardian before expiry",
		},
	)
)
