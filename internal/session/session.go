// Package session owns one story's review lifecycle: the text versions, the
// pipeline output, and every human decision made along the way. Decisions
// and version history are append-only; mutating methods preserve the session
// invariants and report via their return value whether the target existed.
// A Session is not safe for concurrent use; the service layer serializes
// access per session.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"storysmith.app/refinery/common/id"
	"storysmith.app/refinery/internal/model"
	"storysmith.app/refinery/internal/pipeline"
)

type Session struct {
	data model.Session
}

// New starts a session for a freshly submitted story. Current text defaults
// to the original until a rewrite is accepted.
func New(sessionID int64, storyText string) *Session {
	now := time.Now()
	s := &Session{data: model.Session{
		ID: sessionID,
		Story: model.Story{
			ID:           sessionID,
			OriginalText: storyText,
			CurrentText:  storyText,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}}
	s.appendHistory(model.VersionInitial, "story created")
	return s
}

// Restore rehydrates a session from a stored snapshot.
func Restore(data model.Session) *Session {
	return &Session{data: data}
}

func (s *Session) ID() int64 { return s.data.ID }

func (s *Session) Story() model.Story { return s.data.Story }

// Snapshot returns the serializable state of the session.
func (s *Session) Snapshot() model.Session { return s.data }

// RelevantFindings returns the findings a human explicitly marked relevant.
func (s *Session) RelevantFindings() []model.Finding {
	return s.data.RelevantFindings()
}

// SetStructured seeds the decomposition, normally with the heuristic parse.
// The structure_check stage may replace it during a run.
func (s *Session) SetStructured(m *model.StructuredStory) {
	s.data.Story.StructuredModel = m
	s.touch()
}

// SetOriginal replaces the story and resets every derived artifact. The
// decision audit and the version history survive; they describe the
// session, not one text version.
func (s *Session) SetOriginal(text string) {
	s.data.Story.OriginalText = text
	s.data.Story.CurrentText = text
	s.data.Story.StructuredModel = nil
	s.data.Findings = nil
	s.data.Candidates = nil
	s.data.Criteria = nil
	s.data.StageResults = nil
	s.data.OverallScore = nil
	s.data.Summary = ""
	s.data.Coverage = nil
	s.data.OpenQuestions = nil
	s.appendHistory(model.VersionManualEdit, "original text replaced")
	s.touch()
}

// EditCurrentText records a manual edit of the working text, outside any
// rewrite candidate.
func (s *Session) EditCurrentText(text string) {
	s.data.Story.CurrentText = text
	s.appendHistory(model.VersionManualEdit, "current text edited")
	s.touch()
}

// ApplyRunResult adopts a pipeline run: analysis artifacts are replaced,
// generated criteria are appended. Candidates, decisions and history are
// left alone.
func (s *Session) ApplyRunResult(res *pipeline.RunResult) {
	s.data.Findings = res.Findings
	s.data.StageResults = res.StageResults
	score := res.OverallScore
	s.data.OverallScore = &score
	s.data.Summary = res.Summary
	if res.Structured != nil {
		s.data.Story.StructuredModel = res.Structured
	}
	s.data.Coverage = res.Coverage
	s.data.OpenQuestions = res.OpenQuestions
	if len(res.Criteria) > 0 {
		s.data.Criteria = append(s.data.Criteria, res.Criteria...)
		s.appendHistory(model.VersionCriteriaAdded, fmt.Sprintf("%d criteria generated", len(res.Criteria)))
	}
	s.touch()
}

// AddCandidates appends freshly generated rewrite candidates.
func (s *Session) AddCandidates(cands []model.RewriteCandidate) {
	s.data.Candidates = append(s.data.Candidates, cands...)
	s.touch()
}

// AddCriteria appends criteria generated outside a full run.
func (s *Session) AddCriteria(criteria []model.AcceptanceCriterion, coverage *model.CriteriaCoverage, openQuestions []string) {
	s.data.Criteria = append(s.data.Criteria, criteria...)
	if coverage != nil {
		s.data.Coverage = coverage
	}
	s.data.OpenQuestions = append(s.data.OpenQuestions, openQuestions...)
	if len(criteria) > 0 {
		s.appendHistory(model.VersionCriteriaAdded, fmt.Sprintf("%d criteria generated", len(criteria)))
	}
	s.touch()
}

// AnnotateFinding sets the reviewer's note on a finding. A bare annotation
// is not a decision, so no audit record is appended.
func (s *Session) AnnotateFinding(findingID int64, note string) bool {
	f := s.data.FindingByID(findingID)
	if f == nil {
		return false
	}
	f.UserNote = note
	s.touch()
	return true
}

// AcceptFinding marks a finding relevant for rewrite conditioning.
// Unknown ids are a no-op without an audit record: stale ids from a racing
// UI must neither crash nor pollute the audit.
func (s *Session) AcceptFinding(findingID int64) bool {
	f := s.data.FindingByID(findingID)
	if f == nil {
		return false
	}
	relevant := true
	f.IsRelevant = &relevant
	s.appendDecision(model.TargetFinding, findingID, model.DecisionAccepted, f.Reasoning, nil)
	s.touch()
	return true
}

// RejectFinding marks a finding irrelevant.
func (s *Session) RejectFinding(findingID int64) bool {
	f := s.data.FindingByID(findingID)
	if f == nil {
		return false
	}
	relevant := false
	f.IsRelevant = &relevant
	s.appendDecision(model.TargetFinding, findingID, model.DecisionRejected, f.Reasoning, nil)
	s.touch()
	return true
}

// AcceptRewrite makes one candidate's text the current story text. A
// non-empty editedText differing from the suggestion records an edited
// decision instead of a plain accept. Whichever sibling previously held
// accepted or edited status returns to pending; only one candidate's text
// may be current.
func (s *Session) AcceptRewrite(candidateID int64, editedText string) bool {
	c := s.data.CandidateByID(candidateID)
	if c == nil {
		return false
	}

	for i := range s.data.Candidates {
		sib := &s.data.Candidates[i]
		if sib.ID == candidateID {
			continue
		}
		if sib.Status == model.ReviewStatusAccepted || sib.Status == model.ReviewStatusEdited {
			sib.Status = model.ReviewStatusPending
			sib.EditedText = ""
		}
	}

	original := c.SuggestedText
	if editedText != "" && editedText != c.SuggestedText {
		c.Status = model.ReviewStatusEdited
		c.EditedText = editedText
		s.data.Story.CurrentText = editedText
		s.appendDecision(model.TargetRewrite, candidateID, model.DecisionEdited, original, &editedText)
		s.appendHistory(model.VersionRewriteAccepted, "rewrite accepted with edits")
	} else {
		c.Status = model.ReviewStatusAccepted
		c.EditedText = ""
		s.data.Story.CurrentText = c.SuggestedText
		s.appendDecision(model.TargetRewrite, candidateID, model.DecisionAccepted, original, nil)
		s.appendHistory(model.VersionRewriteAccepted, "rewrite accepted")
	}
	s.touch()
	return true
}

// RejectRewrite marks a candidate rejected. Rejecting the candidate whose
// text is current reverts the story to its original text, keeping the
// single-current-text invariant.
func (s *Session) RejectRewrite(candidateID int64) bool {
	c := s.data.CandidateByID(candidateID)
	if c == nil {
		return false
	}

	wasCurrent := c.Status == model.ReviewStatusAccepted || c.Status == model.ReviewStatusEdited
	s.appendDecision(model.TargetRewrite, candidateID, model.DecisionRejected, c.SuggestedText, nil)
	c.Status = model.ReviewStatusRejected
	c.EditedText = ""
	if wasCurrent {
		s.data.Story.CurrentText = s.data.Story.OriginalText
		s.appendHistory(model.VersionManualEdit, "accepted rewrite rejected, text reverted to original")
	}
	s.touch()
	return true
}

// criterionFields are the editable parts of a criterion.
var criterionFields = map[string]bool{
	"title": true,
	"given": true,
	"when":  true,
	"then":  true,
}

// AcceptCriterion accepts a criterion into the final set, optionally with
// field edits. Unknown edit keys are dropped; with nothing left the accept
// is recorded without edits.
func (s *Session) AcceptCriterion(criterionID int64, edits map[string]string) bool {
	c := s.data.CriterionByID(criterionID)
	if c == nil {
		return false
	}

	original := criterionSnapshot(*c)

	applied := make(map[string]string, len(edits))
	for k, v := range edits {
		if criterionFields[k] {
			applied[k] = v
		}
	}

	if len(applied) > 0 {
		if c.EditedFields == nil {
			c.EditedFields = make(map[string]string, len(applied))
		}
		for k, v := range applied {
			c.EditedFields[k] = v
		}
		c.Status = model.ReviewStatusEdited
		edited := marshalEdits(applied)
		s.appendDecision(model.TargetCriterion, criterionID, model.DecisionEdited, original, &edited)
	} else {
		c.Status = model.ReviewStatusAccepted
		s.appendDecision(model.TargetCriterion, criterionID, model.DecisionAccepted, original, nil)
	}
	s.touch()
	return true
}

// RejectCriterion marks a criterion rejected. It stays in the working list
// and is filtered from the final set on read.
func (s *Session) RejectCriterion(criterionID int64) bool {
	c := s.data.CriterionByID(criterionID)
	if c == nil {
		return false
	}
	s.appendDecision(model.TargetCriterion, criterionID, model.DecisionRejected, criterionSnapshot(*c), nil)
	c.Status = model.ReviewStatusRejected
	s.touch()
	return true
}

func (s *Session) appendDecision(target model.DecisionTarget, targetID int64, kind model.DecisionKind, original string, edited *string) {
	s.data.Decisions = append(s.data.Decisions, model.Decision{
		ID:            id.New(),
		TargetType:    target,
		TargetID:      targetID,
		Decision:      kind,
		OriginalValue: original,
		EditedValue:   edited,
		DecidedAt:     time.Now(),
	})
}

func (s *Session) appendHistory(action model.VersionAction, description string) {
	s.data.History = append(s.data.History, model.VersionEntry{
		ID:              id.New(),
		RecordedAt:      time.Now(),
		StoryText:       s.data.Story.CurrentText,
		StructuredModel: copyStructured(s.data.Story.StructuredModel),
		Action:          action,
		Description:     description,
	})
}

func (s *Session) touch() {
	s.data.UpdatedAt = time.Now()
}

// criterionSnapshot renders the effective criterion text for the audit
// record, before the decision mutates it.
func criterionSnapshot(c model.AcceptanceCriterion) string {
	return fmt.Sprintf("%s: Given %s, when %s, then %s",
		c.Field("title"), c.Field("given"), c.Field("when"), c.Field("then"))
}

func marshalEdits(edits map[string]string) string {
	b, err := json.Marshal(edits)
	if err != nil {
		return ""
	}
	return string(b)
}

func copyStructured(m *model.StructuredStory) *model.StructuredStory {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Constraints = append([]string(nil), m.Constraints...)
	return &cp
}
