package model

// ReviewStatus is the human decision state shared by rewrite candidates and
// acceptance criteria.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusAccepted ReviewStatus = "accepted"
	ReviewStatusRejected ReviewStatus = "rejected"
	ReviewStatusEdited   ReviewStatus = "edited"
)

// RewriteCandidate is one proposed full replacement of the story text.
// At most one candidate per story holds status accepted or edited; its
// (possibly edited) text is the story's current text.
type RewriteCandidate struct {
	ID                  int64        `json:"id"`
	SuggestedText       string       `json:"suggested_text"`
	Explanation         string       `json:"explanation"`
	AddressedFindingIDs []int64      `json:"addressed_finding_ids,omitempty"`
	Status              ReviewStatus `json:"status"`
	EditedText          string       `json:"edited_text,omitempty"`
}

// Text returns the candidate's effective text: the edit when present,
// otherwise the suggestion.
func (c RewriteCandidate) Text() string {
	if c.Status == ReviewStatusEdited && c.EditedText != "" {
		return c.EditedText
	}
	return c.SuggestedText
}
