package model

import "time"

// Session is the aggregate working state for one story: the story itself,
// everything the pipeline produced for it, and the append-only decision and
// version records. It is the unit of persistence: stores save and load
// whole sessions as snapshots on demand.
type Session struct {
	ID            int64                 `json:"id"`
	Story         Story                 `json:"story"`
	Findings      []Finding             `json:"findings,omitempty"`
	Candidates    []RewriteCandidate    `json:"candidates,omitempty"`
	Criteria      []AcceptanceCriterion `json:"criteria,omitempty"`
	StageResults  []StageResult         `json:"stage_results,omitempty"`
	OverallScore  *int                  `json:"overall_score,omitempty"`
	Summary       string                `json:"summary,omitempty"`
	Coverage      *CriteriaCoverage     `json:"coverage,omitempty"`
	OpenQuestions []string              `json:"open_questions,omitempty"`
	Decisions     []Decision            `json:"decisions,omitempty"`
	History       []VersionEntry        `json:"history,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// FindingByID returns the finding with the given id, or nil.
func (s *Session) FindingByID(id int64) *Finding {
	for i := range s.Findings {
		if s.Findings[i].ID == id {
			return &s.Findings[i]
		}
	}
	return nil
}

// CandidateByID returns the rewrite candidate with the given id, or nil.
func (s *Session) CandidateByID(id int64) *RewriteCandidate {
	for i := range s.Candidates {
		if s.Candidates[i].ID == id {
			return &s.Candidates[i]
		}
	}
	return nil
}

// CriterionByID returns the criterion with the given id, or nil.
func (s *Session) CriterionByID(id int64) *AcceptanceCriterion {
	for i := range s.Criteria {
		if s.Criteria[i].ID == id {
			return &s.Criteria[i]
		}
	}
	return nil
}

// RelevantFindings returns the findings the human explicitly marked
// relevant. Findings with IsRelevant unset or false are excluded.
func (s *Session) RelevantFindings() []Finding {
	var out []Finding
	for _, f := range s.Findings {
		if f.IsRelevant != nil && *f.IsRelevant {
			out = append(out, f)
		}
	}
	return out
}

// FinalCriteria returns the criteria in the final set: status accepted or
// edited. Rejected criteria stay in the working collection for audit but
// are filtered here.
func (s *Session) FinalCriteria() []AcceptanceCriterion {
	var out []AcceptanceCriterion
	for _, c := range s.Criteria {
		if c.Status == ReviewStatusAccepted || c.Status == ReviewStatusEdited {
			out = append(out, c)
		}
	}
	return out
}
