package editor

import (
	"errors"
	"fmt"
	"testing"
)

func TestJournal_CommitTransition(t *testing.T) {
	var j Journal
	rec := j.begin("create", "node-1")

	if rec.State != OpPending {
		t.Fatalf("expected pending, got %s", rec.State)
	}
	j.commit(rec)

	got := j.Last("create")
	if got == nil || got.State != OpCommitted {
		t.Fatalf("expected committed record, got %+v", got)
	}
	if got.Ended.IsZero() {
		t.Error("expected end timestamp set")
	}
}

func TestJournal_RollbackTransition(t *testing.T) {
	var j Journal
	rec := j.begin("link", "a→b")
	cause := errors.New("rejected")
	j.rollback(rec, cause)

	got := j.Last("link")
	if got == nil || got.State != OpRolledBack {
		t.Fatalf("expected rolled-back record, got %+v", got)
	}
	if !errors.Is(got.Err, cause) {
		t.Errorf("expected cause recorded, got %v", got.Err)
	}
}

func TestJournal_SequenceIsMonotonic(t *testing.T) {
	var j Journal
	a := j.begin("create", "x")
	b := j.begin("delete", "y")
	if b.Seq <= a.Seq {
		t.Errorf("expected increasing sequence, got %d then %d", a.Seq, b.Seq)
	}
}

func TestJournal_CapBoundsRetention(t *testing.T) {
	var j Journal
	for i := 0; i < journalCap+50; i++ {
		j.commit(j.begin("move", fmt.Sprintf("n%d", i)))
	}
	recent := j.Recent()
	if len(recent) != journalCap {
		t.Fatalf("expected %d retained entries, got %d", journalCap, len(recent))
	}
	// Oldest entries were discarded.
	if recent[0].Subject != "n50" {
		t.Errorf("expected oldest retained to be n50, got %s", recent[0].Subject)
	}
}

func TestJournal_LastUnknownOp(t *testing.T) {
	var j Journal
	j.commit(j.begin("create", "x"))
	if got := j.Last("duplicate"); got != nil {
		t.Errorf("expected nil for unrecorded op, got %+v", got)
	}
}

func TestOpState_String(t *testing.T) {
	tests := []struct {
		state    OpState
		expected string
	}{
		{OpPending, "pending"},
		{OpCommitted, "committed"},
		{OpRolledBack, "rolled-back"},
		{OpState(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.expected {
			t.Errorf("OpState(%d).String() = %q, expected %q", tc.state, got, tc.expected)
		}
	}
}
