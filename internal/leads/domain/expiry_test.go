package domain

import (
	"testing"
	"time"
)

func TestEffectiveStatus_StaleLeadReportedPerso(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	last := now.Add(-16 * 24 * time.Hour)

	state := ExpiryState{Status: StatusContattato, LastAttemptAt: &last}

	if got := EffectiveStatus(state, now); got != StatusPerso {
		t.Fatalf("expected effective PERSO for a 16-day-stale lead, got %s", got)
	}
}

func TestEffectiveStatus_WithinWindowKeepsStoredStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	last := now.Add(-14 * 24 * time.Hour)

	state := ExpiryState{Status: StatusInTrattativa, LastAttemptAt: &last}

	if got := EffectiveStatus(state, now); got != StatusInTrattativa {
		t.Fatalf("expected stored status preserved inside the window, got %s", got)
	}
}

func TestEffectiveStatus_ExactWindowBoundaryNotExpired(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	last := now.Add(-InactivityWindow)

	state := ExpiryState{Status: StatusContattato, LastAttemptAt: &last}

	// The rule is strictly "more than 15 days".
	if IsExpired(state, now) {
		t.Fatal("lead exactly at the window boundary must not expire")
	}
}

func TestIsExpired_NeverAttemptedLeadDoesNotExpire(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	state := ExpiryState{Status: StatusNuovo}

	if IsExpired(state, now) {
		t.Fatal("a lead with no attempts has no inactivity clock")
	}
}

func TestIsExpired_TerminalLeadsUntouched(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	last := now.Add(-30 * 24 * time.Hour)

	cases := []ExpiryState{
		{Status: StatusIscritto, LastAttemptAt: &last},
		{Status: StatusPerso, LastAttemptAt: &last},
		{Status: StatusInTrattativa, Enrolled: true, LastAttemptAt: &last},
	}

	for _, state := range cases {
		if IsExpired(state, now) {
			t.Fatalf("terminal lead %s must not expire again", state.Status)
		}
	}
}
