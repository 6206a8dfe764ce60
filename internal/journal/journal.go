// Package journal keeps an audit trail of governance executions.
package journal

import (
	"time"

	"github.com/google/uuid"
)

// Outcome of a recorded action.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// Entry is one governance execution attempt.
type Entry struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Session string    `json:"session,omitempty"`
	Action  string    `json:"action"`
	Source  string    `json:"source,omitempty"`
	Target  string    `json:"target,omitempty"`
	Value   string    `json:"value,omitempty"`
	TxHash  string    `json:"tx_hash,omitempty"`
	Outcome string    `json:"outcome"`
	Message string    `json:"message,omitempty"`
}

// Recorder captures journal entries.
type Recorder interface {
	Record(Entry)
}

// Stamp fills in the id and time when the caller left them empty.
func Stamp(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	return e
}

// Multi fans an entry out to every recorder.
type Multi []Recorder

func (m Multi) Record(e Entry) {
	for _, r := range m {
		if r != nil {
			r.Record(e)
		}
	}
}
