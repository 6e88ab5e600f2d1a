package model

type CriterionType string

const (
	CriterionHappyPath    CriterionType = "happy_path"
	CriterionEdgeCase     CriterionType = "edge_case"
	CriterionErrorCase    CriterionType = "error_case"
	CriterionNegativeCase CriterionType = "negative_case"
)

type CriterionPriority string

const (
	PriorityMust   CriterionPriority = "must"
	PriorityShould CriterionPriority = "should"
	PriorityCould  CriterionPriority = "could"
)

// AcceptanceCriterion is a Given/When/Then triple generated for the story.
// Unlike rewrite candidates, multiple criteria may be accepted at once.
// EditedFields records per-field overrides applied by the human; rendering
// prefers the override when present.
type AcceptanceCriterion struct {
	ID           int64             `json:"id"`
	Title        string            `json:"title"`
	Given        string            `json:"given"`
	When         string            `json:"when"`
	Then         string            `json:"then"`
	Type         CriterionType     `json:"type"`
	Priority     CriterionPriority `json:"priority"`
	Status       ReviewStatus      `json:"status"`
	EditedFields map[string]string `json:"edited_fields,omitempty"`
}

// Field returns the effective value of a GWT field, preferring an edit.
func (c AcceptanceCriterion) Field(name string) string {
	if v, ok := c.EditedFields[name]; ok && v != "" {
		return v
	}
	switch name {
	case "title":
		return c.Title
	case "given":
		return c.Given
	case "when":
		return c.When
	case "then":
		return c.Then
	}
	return ""
}

// CriteriaCoverage reports which behavioral areas the generated criteria
// claim to cover. Passed through from the engine unmodified.
type CriteriaCoverage struct {
	MainFlow      bool `json:"main_flow"`
	ErrorCases    bool `json:"error_cases"`
	EdgeCases     bool `json:"edge_cases"`
	NegativeCases bool `json:"negative_cases"`
}
