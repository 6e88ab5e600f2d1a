package model

// Confidence indicates how certain a decomposition or finding is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// StructuredStory is the role/goal/benefit decomposition of a story text.
// Produced first by the heuristic parser, later replaced by the
// structure_check stage when that stage returns one.
type StructuredStory struct {
	Role        string     `json:"role"`
	Goal        string     `json:"goal"`
	Benefit     string     `json:"benefit"`
	Constraints []string   `json:"constraints,omitempty"`
	Confidence  Confidence `json:"confidence"`
}

// Story is the unit of work. CurrentText starts as OriginalText and is
// replaced when a rewrite candidate is accepted or edited.
type Story struct {
	ID              int64            `json:"id"`
	OriginalText    string           `json:"original_text"`
	CurrentText     string           `json:"current_text"`
	StructuredModel *StructuredStory `json:"structured_model,omitempty"`
}
