package promotion

// State is a step of the promotion workflow. Terminal states are
// SourceDeleted and the three failure states.
type State string

const (
	StateStart            State = "START"
	StateTasksCreated     State = "TASKS_CREATED"
	StateDecisionsCreated State = "DECISIONS_CREATED"
	StateSourceDeleted    State = "SOURCE_DELETED"

	StateFailedNoWrites          State = "FAILED_NO_WRITES"
	StateFailedPartial           State = "FAILED_PARTIAL"
	StateFailedPartialOrphanRisk State = "FAILED_PARTIAL_ORPHAN_RISK"
)

// Succeeded reports whether the children are all in place. An orphaned
// source counts: only a harmless duplicate of the promoted item remains.
func (s State) Succeeded() bool {
	return s == StateSourceDeleted || s == StateFailedPartialOrphanRisk
}

// NeedsReconciliation reports whether an operator must finish the promotion by hand.
func (s State) NeedsReconciliation() bool {
	return s == StateFailedPartial || s == StateFailedPartialOrphanRisk
}
