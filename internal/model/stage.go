package model

import "time"

// Stage is one ordered step of the review pipeline.
type Stage string

const (
	StageAmbiguityAnalysis  Stage = "ambiguity_analysis"
	StageStructureCheck     Stage = "structure_check"
	StageQualityCheck       Stage = "quality_check"
	StageBusinessValue      Stage = "business_value"
	StageSolutionBias       Stage = "solution_bias"
	StageAcceptanceCriteria Stage = "acceptance_criteria"
)

// StageOrder is the canonical execution order for a full pipeline run.
// Stage N's instruction depends on the accumulated output of stages 1..N-1,
// so the order is load-bearing and stages must not run in parallel.
var StageOrder = []Stage{
	StageAmbiguityAnalysis,
	StageStructureCheck,
	StageQualityCheck,
	StageBusinessValue,
	StageSolutionBias,
	StageAcceptanceCriteria,
}

type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageSkipped   StageStatus = "skipped"
	StageFailed    StageStatus = "failed"
)

// StageResult records how one stage of a run went. A failed stage carries
// the error message and zero findings; the run continues past it.
type StageResult struct {
	Stage      Stage         `json:"stage"`
	Status     StageStatus   `json:"status"`
	FindingIDs []int64       `json:"finding_ids,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
}
