// Package audit writes a best-effort structured trail of oversight
// decisions. Writes must never block or fail the transition they describe;
// zerolog events are fire-and-forget by construction.
package audit

import (
	"io"

	"github.com/rs/zerolog"
)

type Logger struct {
	log zerolog.Logger
}

func New(w io.Writer) *Logger {
	return &Logger{
		log: zerolog.New(w).With().Timestamp().Str("stream", "audit").Logger(),
	}
}

// NewNop returns a logger that discards everything; used in tests.
func NewNop() *Logger {
	return &Logger{log: zerolog.Nop()}
}

func (l *Logger) MessageCreated(messageID, conversationID, senderChildID int64, status string) {
	l.log.Info().
		Str("event", "message_created").
		Int64("message_id", messageID).
		Int64("conversation_id", conversationID).
		Int64("sender_child_id", senderChildID).
		Str("status", status).
		Send()
}

func (l *Logger) MessageDecided(messageID, guardianID int64, decision, from, to string) {
	l.log.Info().
		Str("event", "message_decided").
		Int64("message_id", messageID).
		Int64("guardian_id", guardianID).
		Str("decision", decision).
		Str("from", from).
		Str("to", to).
		Send()
}

func (l *Logger) FriendshipCreated(friendshipID, requesterChildID, targetChildID int64, status string) {
	l.log.Info().
		Str("event", "friendship_created").
		Int64("friendship_id", friendshipID).
		Int64("requester_child_id", requesterChildID).
		Int64("target_child_id", targetChildID).
		Str("status", status).
		Send()
}

func (l *Logger) FriendshipDecided(friendshipID, guardianID int64, decision, from, to string) {
	l.log.Info().
		Str("event", "friendship_decided").
		Int64("friendship_id", friendshipID).
		Int64("guardian_id", guardianID).
		Str("decision", decision).
		Str("from", from).
		Str("to", to).
		Send()
}

func (l *Logger) FriendshipBlocked(friendshipID, guardianID int64) {
	l.log.Info().
		Str("event", "friendship_blocked").
		Int64("friendship_id", friendshipID).
		Int64("guardian_id", guardianID).
		Send()
}

func (l *Logger) TimeoutCreated(timeoutID, childID, guardianID int64, status string) {
	l.log.Info().
		Str("event", "timeout_created").
		Int64("timeout_id", timeoutID).
		Int64("child_id", childID).
		Int64("guardian_id", guardianID).
		Str("status", status).
		Send()
}

func (l *Logger) TimeoutEnded(timeoutID, guardianID int64, endedBy string) {
	l.log.Info().
		Str("event", "timeout_ended").
		Int64("timeout_id", timeoutID).
		Int64("guardian_id", guardianID).
		Str("ended_by", endedBy).
		Send()
}

func (l *Logger) ChildSettingsChanged(childID, guardianID int64, mode string, paused bool) {
	l.log.Info().
		Str("event", "child_settings_changed").
		Int64("child_id", childID).
		Int64("guardian_id", guardianID).
		Str("oversight_mode", mode).
		Bool("messaging_paused", paused).
		Send()
}
