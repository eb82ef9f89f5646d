package oversight

import (
	"testing"
	"time"

	"github.com/famguard/FamGuardBack/internal/models"
)

func TestWindowContainsBoundaries(t *testing.T) {
	start := time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	if WindowContains(start, end, start.Add(-time.Second)) {
		t.Error("window should not gate one second before start")
	}
	if !WindowContains(start, end, start) {
		t.Error("window should gate at exactly startAt")
	}
	if !WindowContains(start, end, start.Add(time.Second)) {
		t.Error("window should gate one second after start")
	}
	if !WindowContains(start, end, end.Add(-time.Second)) {
		t.Error("window should gate one second before end")
	}
	if WindowContains(start, end, end) {
		t.Error("window should not gate at exactly endAt")
	}
	if WindowContains(start, end, start.Add(31*time.Minute)) {
		t.Error("window should not gate after end")
	}
}

func TestDeriveTimeoutStatus(t *testing.T) {
	start := time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	cases := []struct {
		now  time.Time
		want models.TimeoutStatus
	}{
		{start.Add(-time.Minute), models.TimeoutStatusScheduled},
		{start, models.TimeoutStatusActive},
		{end.Add(-time.Second), models.TimeoutStatusActive},
		{end, models.TimeoutStatusEnded},
		{end.Add(time.Hour), models.TimeoutStatusEnded},
	}

	for _, tc := range cases {
		if got := DeriveTimeoutStatus(start, end, tc.now); got != tc.want {
			t.Errorf("DeriveTimeoutStatus at %s = %q, want %q", tc.now, got, tc.want)
		}
	}
}
