package model

import "time"

type DecisionTarget string

const (
	TargetFinding   DecisionTarget = "finding"
	TargetRewrite   DecisionTarget = "rewrite"
	TargetCriterion DecisionTarget = "criterion"
)

type DecisionKind string

const (
	DecisionAccepted DecisionKind = "accepted"
	DecisionRejected DecisionKind = "rejected"
	DecisionEdited   DecisionKind = "edited"
)

// Decision is one append-only audit record of a human accept/reject/edit.
// Records are never mutated or deleted; re-deciding a target appends a new
// record. OriginalValue snapshots the target's value before the decision so
// the audit trail survives later edits.
type Decision struct {
	ID            int64          `json:"id"`
	TargetType    DecisionTarget `json:"target_type"`
	TargetID      int64          `json:"target_id"`
	Decision      DecisionKind   `json:"decision"`
	OriginalValue string         `json:"original_value"`
	EditedValue   *string        `json:"edited_value,omitempty"`
	DecidedAt     time.Time      `json:"decided_at"`
}
