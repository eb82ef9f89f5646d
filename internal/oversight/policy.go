package oversight

import "github.com/famguard/FamGuardBack/internal/models"

// RequiresApproval decides whether a child's guardian must sign off on an
// exchange, given the child's configured mode and whether this is the first
// qualifying exchange with the peer. Pure; modes are defaulted here so an
// unset value behaves like approve_first.
func RequiresApproval(mode models.OversightMode, firstQualifyingExchange bool) bool {
	switch models.NormalizeOversightMode(mode) {
	case models.OversightMonitor:
		return false
	case models.OversightApproveAll:
		return true
	default:
		return firstQualifyingExchange
	}
}
