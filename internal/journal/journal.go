// Package journal records promotion outcomes that left the record store in a
// state an operator must reconcile by hand.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 50

// MaxListLimit caps a single List call.
const MaxListLimit = 500

// Entry is one reconciliation item.
type Entry struct {
	ID                 uuid.UUID `json:"id"`
	SourceID           string    `json:"sourceId"`
	State              string    `json:"state"`
	CreatedTaskIDs     []string  `json:"createdTasks"`
	CreatedDecisionIDs []string  `json:"createdDecisions"`
	Reason             string    `json:"reason"`
	RecordedAt         time.Time `json:"recordedAt"`
}

// Store persists entries. List returns the newest first.
type Store interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// NewEntry fills in the id and timestamp.
func NewEntry(sourceID, state, reason string, tasks, decisions []string, at time.Time) Entry {
	return Entry{
		ID:                 uuid.New(),
		SourceID:           sourceID,
		State:              state,
		CreatedTaskIDs:     nonNil(tasks),
		CreatedDecisionIDs: nonNil(decisions),
		Reason:             reason,
		RecordedAt:         at.UTC(),
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
