package domain

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func TestProcessCallOutcome_FirstRichiamareContactsLead(t *testing.T) {
	state := CallState{Status: StatusNuovo, CallAttempts: 0}

	result, err := ProcessCallOutcome(state, OutcomeRichiamare, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusContattato {
		t.Fatalf("expected status CONTATTATO, got %s", result.Status)
	}
	if result.CallAttempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", result.CallAttempts)
	}
	if !result.Contacted {
		t.Fatal("expected contacted to be set")
	}
	if !result.ContactedAt.Equal(testNow) || !result.FirstAttemptAt.Equal(testNow) {
		t.Fatalf("expected first contact timestamps at %v, got contactedAt=%v firstAttemptAt=%v", testNow, result.ContactedAt, result.FirstAttemptAt)
	}
	if result.BecamePerso {
		t.Fatal("first RICHIAMARE must not lose the lead")
	}
}

func TestProcessCallOutcome_EighthRichiamareLosesLead(t *testing.T) {
	// Seven RICHIAMARE calls already logged; the eighth hits the cap.
	first := testNow.Add(-10 * 24 * time.Hour)
	state := CallState{Status: StatusContattato, CallAttempts: 7, FirstAttemptAt: &first}

	result, err := ProcessCallOutcome(state, OutcomeRichiamare, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusPerso {
		t.Fatalf("expected status PERSO at attempt cap, got %s", result.Status)
	}
	if result.CallAttempts != 8 {
		t.Fatalf("expected 8 attempts, got %d", result.CallAttempts)
	}
	if !result.BecamePerso {
		t.Fatal("expected becamePerso")
	}
	if result.LostReason != LostReasonMaxAttempts {
		t.Fatalf("expected lost reason %q, got %q", LostReasonMaxAttempts, result.LostReason)
	}
	if result.LostAt == nil || !result.LostAt.Equal(testNow) {
		t.Fatalf("expected lostAt %v, got %v", testNow, result.LostAt)
	}
	if !result.FirstAttemptAt.Equal(first) {
		t.Fatalf("first attempt timestamp must be preserved, got %v", result.FirstAttemptAt)
	}
}

func TestProcessCallOutcome_PositivoAtCapDoesNotLose(t *testing.T) {
	first := testNow.Add(-10 * 24 * time.Hour)
	state := CallState{Status: StatusContattato, CallAttempts: 7, FirstAttemptAt: &first}

	result, err := ProcessCallOutcome(state, OutcomePositivo, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CallAttempts != 8 {
		t.Fatalf("expected 8 attempts, got %d", result.CallAttempts)
	}
	if result.Status != StatusContattato {
		t.Fatalf("POSITIVO must not change a CONTATTATO lead, got %s", result.Status)
	}
	if result.BecamePerso {
		t.Fatal("POSITIVO must never force PERSO, not even at the cap")
	}
}

func TestProcessCallOutcome_NegativoIsImmediate(t *testing.T) {
	state := CallState{Status: StatusNuovo, CallAttempts: 0}

	result, err := ProcessCallOutcome(state, OutcomeNegativo, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusPerso {
		t.Fatalf("expected PERSO after NEGATIVO, got %s", result.Status)
	}
	if result.CallAttempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", result.CallAttempts)
	}
	if result.LostReason != LostReasonNegative {
		t.Fatalf("expected lost reason %q, got %q", LostReasonNegative, result.LostReason)
	}
}

func TestProcessCallOutcome_PositivoDoesNotRegressNegotiation(t *testing.T) {
	first := testNow.Add(-24 * time.Hour)
	state := CallState{Status: StatusInTrattativa, CallAttempts: 3, FirstAttemptAt: &first}

	result, err := ProcessCallOutcome(state, OutcomePositivo, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusInTrattativa {
		t.Fatalf("expected IN_TRATTATIVA preserved, got %s", result.Status)
	}
}

func TestProcessCallOutcome_TerminalLeadsRejected(t *testing.T) {
	cases := []struct {
		name  string
		state CallState
	}{
		{"perso", CallState{Status: StatusPerso, CallAttempts: 8}},
		{"iscritto", CallState{Status: StatusIscritto, CallAttempts: 2}},
		{"enrolled flag", CallState{Status: StatusInTrattativa, CallAttempts: 2, Enrolled: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ProcessCallOutcome(tc.state, OutcomePositivo, testNow)
			if !errors.Is(err, ErrTerminalLead) {
				t.Fatalf("expected ErrTerminalLead, got %v", err)
			}
		})
	}
}

func TestProcessCallOutcome_AttemptsGrowByExactlyOne(t *testing.T) {
	// Walk a lead through seven RICHIAMARE calls and check attempts are
	// monotonic with unit steps until the terminal eighth call.
	state := CallState{Status: StatusNuovo, CallAttempts: 0}
	now := testNow

	for i := 1; i <= 7; i++ {
		result, err := ProcessCallOutcome(state, OutcomeRichiamare, now)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if result.CallAttempts != i {
			t.Fatalf("call %d: expected %d attempts, got %d", i, i, result.CallAttempts)
		}
		if result.BecamePerso {
			t.Fatalf("call %d: lead lost before the cap", i)
		}

		first := result.FirstAttemptAt
		state = CallState{Status: result.Status, CallAttempts: result.CallAttempts, FirstAttemptAt: &first}
		now = now.Add(24 * time.Hour)
	}

	final, err := ProcessCallOutcome(state, OutcomeRichiamare, now)
	if err != nil {
		t.Fatalf("final call: unexpected error: %v", err)
	}
	if final.CallAttempts != 8 || !final.BecamePerso {
		t.Fatalf("expected terminal eighth attempt, got attempts=%d becamePerso=%v", final.CallAttempts, final.BecamePerso)
	}
	if final.LostReason != LostReasonMaxAttempts {
		t.Fatalf("expected lost reason %q, got %q", LostReasonMaxAttempts, final.LostReason)
	}
}
