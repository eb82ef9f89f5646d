package oversight

import (
	"testing"

	"github.com/famguard/FamGuardBack/internal/models"
)

func TestRequiresApproval(t *testing.T) {
	cases := []struct {
		mode  models.OversightMode
		first bool
		want  bool
	}{
		{models.OversightMonitor, true, false},
		{models.OversightMonitor, false, false},
		{models.OversightApproveAll, true, true},
		{models.OversightApproveAll, false, true},
		{models.OversightApproveFirst, true, true},
		{models.OversightApproveFirst, false, false},
	}

	for _, tc := range cases {
		if got := RequiresApproval(tc.mode, tc.first); got != tc.want {
			t.Errorf("RequiresApproval(%q, first=%v) = %v, want %v", tc.mode, tc.first, got, tc.want)
		}
	}
}

func TestRequiresApprovalDefaultsUnknownModes(t *testing.T) {
	if !RequiresApproval("", true) {
		t.Error("unset mode with first exchange should require approval")
	}
	if RequiresApproval("", false) {
		t.Error("unset mode after first exchange should not require approval")
	}
	if !RequiresApproval("somenewmode", true) {
		t.Error("unknown mode should behave like approve_first")
	}
}

// Every (sender mode, recipient mode, first exchange) combination must map to
// exactly one initial status.
func TestInitialMessageStatusMatrix(t *testing.T) {
	modes := []models.OversightMode{
		models.OversightMonitor,
		models.OversightApproveFirst,
		models.OversightApproveAll,
	}

	expected := map[[3]string]models.MessageStatus{
		{"monitor", "monitor", "first"}:             models.MessageStatusDelivered,
		{"monitor", "monitor", "later"}:             models.MessageStatusDelivered,
		{"monitor", "approve_first", "first"}:       models.MessageStatusPendingRecipient,
		{"monitor", "approve_first", "later"}:       models.MessageStatusDelivered,
		{"monitor", "approve_all", "first"}:         models.MessageStatusPendingRecipient,
		{"monitor", "approve_all", "later"}:         models.MessageStatusPendingRecipient,
		{"approve_first", "monitor", "first"}:       models.MessageStatusPending,
		{"approve_first", "monitor", "later"}:       models.MessageStatusDelivered,
		{"approve_first", "approve_first", "first"}: models.MessageStatusPending,
		{"approve_first", "approve_first", "later"}: models.MessageStatusDelivered,
		{"approve_first", "approve_all", "first"}:   models.MessageStatusPending,
		{"approve_first", "approve_all", "later"}:   models.MessageStatusPendingRecipient,
		{"approve_all", "monitor", "first"}:         models.MessageStatusPending,
		{"approve_all", "monitor", "later"}:         models.MessageStatusPending,
		{"approve_all", "approve_first", "first"}:   models.MessageStatusPending,
		{"approve_all", "approve_first", "later"}:   models.MessageStatusPending,
		{"approve_all", "approve_all", "first"}:     models.MessageStatusPending,
		{"approve_all", "approve_all", "later"}:     models.MessageStatusPending,
	}

	seen := 0
	for _, senderMode := range modes {
		for _, recipientMode := range modes {
			for _, first := range []bool{true, false} {
				key := [3]string{string(senderMode), string(recipientMode), "later"}
				if first {
					key[2] = "first"
				}
				want, ok := expected[key]
				if !ok {
					t.Fatalf("missing expectation for %v", key)
				}
				got := InitialMessageStatus(
					RequiresApproval(senderMode, first),
					RequiresApproval(recipientMode, first),
				)
				if got != want {
					t.Errorf("sender=%s recipient=%s first=%v: got %q, want %q",
						senderMode, recipientMode, first, got, want)
				}
				seen++
			}
		}
	}
	if seen != 18 {
		t.Fatalf("expected 18 combinations, covered %d", seen)
	}
}
