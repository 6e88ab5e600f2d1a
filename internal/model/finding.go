package model

// FindingCategory is the closed set of quality problem kinds. Free-form
// engine output is normalized into this set before a Finding is stored.
type FindingCategory string

const (
	CategoryAmbiguity        FindingCategory = "ambiguity"
	CategoryMissingRole      FindingCategory = "missing_role"
	CategoryMissingGoal      FindingCategory = "missing_goal"
	CategoryMissingBenefit   FindingCategory = "missing_benefit"
	CategoryVagueLanguage    FindingCategory = "vague_language"
	CategoryTooBroadScope    FindingCategory = "too_broad_scope"
	CategorySolutionBias     FindingCategory = "solution_bias"
	CategoryPersonaUnclear   FindingCategory = "persona_unclear"
	CategoryBusinessValueGap FindingCategory = "business_value_gap"
	CategoryNotTestable      FindingCategory = "not_testable"
	CategoryInconsistency    FindingCategory = "inconsistency"
	CategoryMissingContext   FindingCategory = "missing_context"
	CategoryTechnicalDebt    FindingCategory = "technical_debt"
	CategoryOther            FindingCategory = "other"
)

// Severity orders findings from most to least pressing.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// Rank returns the sort rank of a severity: critical=0 through info=3.
// Unknown severities rank with info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityMajor:
		return 1
	case SeverityMinor:
		return 2
	default:
		return 3
	}
}

// Finding is one quality problem surfaced by a pipeline stage. The ID is
// stable for the lifetime of a run so human decisions can reference it.
// Stages never mutate findings once emitted; only curation sets IsRelevant
// and UserNote.
type Finding struct {
	ID                    int64           `json:"id"`
	Stage                 Stage           `json:"stage"`
	Category              FindingCategory `json:"category"`
	Severity              Severity        `json:"severity"`
	TextReference         string          `json:"text_reference,omitempty"`
	Reasoning             string          `json:"reasoning"`
	ClarificationQuestion string          `json:"clarification_question,omitempty"`
	SuggestedAction       string          `json:"suggested_action,omitempty"`
	Confidence            Confidence      `json:"confidence"`
	IsRelevant            *bool           `json:"is_relevant,omitempty"`
	UserNote              string          `json:"user_note,omitempty"`
}
