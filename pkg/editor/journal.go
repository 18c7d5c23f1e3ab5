package editor

import (
	"sync"
	"time"
)

// OpState tracks a mutation through its lifecycle. Optimistic operations
// enter Pending when the local change is applied and move to Committed or
// RolledBack when the remote call resolves. Confirm-then-apply operations
// enter Pending when the remote call starts and never roll back locally
// (there is nothing local to roll back).
type OpState int

const (
	OpPending OpState = iota
	OpCommitted
	OpRolledBack
)

func (s OpState) String() string {
	switch s {
	case OpPending:
		return "pending"
	case OpCommitted:
		return "committed"
	case OpRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// journalCap bounds retained entries; older entries are discarded.
const journalCap = 256

// OpRecord describes one mutation's progress for diagnostics.
type OpRecord struct {
	Seq     uint64
	Op      string // "create", "delete", "link", "unlink", "move", "duplicate", "undo"
	Subject string // node id or "src→dst"
	State   OpState
	Err     error
	Started time.Time
	Ended   time.Time
}

// Journal records per-mutation state transitions. It exists for visibility:
// tests assert the Pending→Committed|RolledBack transitions and PG_DEBUG
// output traces them.
type Journal struct {
	mu      sync.Mutex
	nextSeq uint64
	entries []*OpRecord
}

// begin records a new pending mutation and returns its entry.
func (j *Journal) begin(op, subject string) *OpRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.nextSeq++
	rec := &OpRecord{
		Seq:     j.nextSeq,
		Op:      op,
		Subject: subject,
		State:   OpPending,
		Started: time.Now(),
	}
	j.entries = append(j.entries, rec)
	if len(j.entries) > journalCap {
		j.entries = j.entries[len(j.entries)-journalCap:]
	}
	return rec
}

// commit marks the mutation confirmed by the remote.
func (j *Journal) commit(rec *OpRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec.State = OpCommitted
	rec.Ended = time.Now()
}

// rollback marks the mutation reverted after a remote failure.
func (j *Journal) rollback(rec *OpRecord, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec.State = OpRolledBack
	rec.Err = err
	rec.Ended = time.Now()
}

// Recent returns a copy of the retained records, oldest first.
func (j *Journal) Recent() []OpRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]OpRecord, len(j.entries))
	for i, rec := range j.entries {
		out[i] = *rec
	}
	return out
}

// Last returns the most recent record matching op, or nil.
func (j *Journal) Last(op string) *OpRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].Op == op {
			cp := *j.entries[i]
			return &cp
		}
	}
	return nil
}
