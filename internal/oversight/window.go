package oversight

import (
	"time"

	"github.com/famguard/FamGuardBack/internal/models"
)

// WindowContains reports whether now falls inside [startAt, endAt). This is
// the source of truth for gating; the persisted timeout status is only a
// cached hint.
func WindowContains(startAt, endAt, now time.Time) bool {
	return !now.Before(startAt) && now.Before(endAt)
}

// DeriveTimeoutStatus computes the effective lifecycle stage of a window at
// the given instant, independent of whatever status was last persisted.
func DeriveTimeoutStatus(startAt, endAt, now time.Time) models.TimeoutStatus {
	switch {
	case !now.Before(endAt):
		return models.TimeoutStatusEnded
	case !now.Before(startAt):
		return models.TimeoutStatusActive
	default:
		return models.TimeoutStatusScheduled
	}
}
