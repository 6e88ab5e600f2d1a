package dto

import (
	"fmt"
	"strconv"
	"time"

	"storysmith.app/refinery/internal/model"
	"storysmith.app/refinery/internal/parse"
)

type CreateSessionRequest struct {
	OriginalText string `json:"original_text" binding:"required,min=1"`
}

type ReplaceStoryRequest struct {
	Text string `json:"text" binding:"required,min=1"`
}

type EditTextRequest struct {
	Text string `json:"text" binding:"required,min=1"`
}

type RunPipelineRequest struct {
	AdditionalContext string   `json:"additional_context,omitempty"`
	Language          string   `json:"language,omitempty" binding:"omitempty,oneof=de en"`
	Stages            []string `json:"stages,omitempty"`
}

type AnalyzeRequest struct {
	Language string `json:"language,omitempty" binding:"omitempty,oneof=de en"`
}

type GenerateRequest struct {
	AdditionalContext string `json:"additional_context,omitempty"`
	Language          string `json:"language,omitempty" binding:"omitempty,oneof=de en"`
}

type DecisionRequest struct {
	TargetType string            `json:"target_type" binding:"required,oneof=finding rewrite criterion"`
	TargetID   int64             `json:"target_id,string" binding:"required"`
	Decision   string            `json:"decision" binding:"required,oneof=accepted rejected edited"`
	EditedText string            `json:"edited_text,omitempty"`
	Edits      map[string]string `json:"edits,omitempty"`
}

type NoteRequest struct {
	Note string `json:"note" binding:"required"`
}

// ParseStages maps stage names onto the canonical stage set.
func ParseStages(names []string) ([]model.Stage, error) {
	if len(names) == 0 {
		return nil, nil
	}
	valid := make(map[model.Stage]bool, len(model.StageOrder))
	for _, s := range model.StageOrder {
		valid[s] = true
	}
	out := make([]model.Stage, 0, len(names))
	for _, n := range names {
		s := model.Stage(n)
		if !valid[s] {
			return nil, fmt.Errorf("unknown stage %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// SessionResponse is the full session state. Snowflake IDs serialize as
// strings; collection fields always serialize, empty as [].
type SessionResponse struct {
	ID            int64                 `json:"id,string"`
	Story         StoryResponse         `json:"story"`
	Findings      []FindingResponse     `json:"findings"`
	Candidates    []CandidateResponse   `json:"candidates"`
	Criteria      []CriterionResponse   `json:"criteria"`
	StageResults  []StageResultResponse `json:"stage_results"`
	OverallScore  *int                  `json:"overall_score,omitempty"`
	Summary       string                `json:"summary,omitempty"`
	Coverage      *CoverageResponse     `json:"coverage,omitempty"`
	OpenQuestions []string              `json:"open_questions,omitempty"`
	Decisions     []DecisionRecord      `json:"decisions"`
	History       []VersionRecord       `json:"history"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type StoryResponse struct {
	ID              int64               `json:"id,string"`
	OriginalText    string              `json:"original_text"`
	CurrentText     string              `json:"current_text"`
	StructuredModel *StructuredResponse `json:"structured_model,omitempty"`
}

type StructuredResponse struct {
	Role        string   `json:"role"`
	Goal        string   `json:"goal"`
	Benefit     string   `json:"benefit"`
	Constraints []string `json:"constraints,omitempty"`
	Confidence  string   `json:"confidence"`
}

type FindingResponse struct {
	ID                    int64  `json:"id,string"`
	Stage                 string `json:"stage"`
	Category              string `json:"category"`
	Severity              string `json:"severity"`
	TextReference         string `json:"text_reference,omitempty"`
	Reasoning             string `json:"reasoning"`
	ClarificationQuestion string `json:"clarification_question,omitempty"`
	SuggestedAction       string `json:"suggested_action,omitempty"`
	Confidence            string `json:"confidence"`
	IsRelevant            *bool  `json:"is_relevant,omitempty"`
	UserNote              string `json:"user_note,omitempty"`
}

type CandidateResponse struct {
	ID                  int64    `json:"id,string"`
	SuggestedText       string   `json:"suggested_text"`
	Explanation         string   `json:"explanation"`
	AddressedFindingIDs []string `json:"addressed_finding_ids,omitempty"`
	Status              string   `json:"status"`
	EditedText          string   `json:"edited_text,omitempty"`
}

type CriterionResponse struct {
	ID           int64             `json:"id,string"`
	Title        string            `json:"title"`
	Given        string            `json:"given"`
	When         string            `json:"when"`
	Then         string            `json:"then"`
	Type         string            `json:"type"`
	Priority     string            `json:"priority"`
	Status       string            `json:"status"`
	EditedFields map[string]string `json:"edited_fields,omitempty"`
}

type StageResultResponse struct {
	Stage      string   `json:"stage"`
	Status     string   `json:"status"`
	FindingIDs []string `json:"finding_ids,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

type CoverageResponse struct {
	MainFlow      bool `json:"main_flow"`
	ErrorCases    bool `json:"error_cases"`
	EdgeCases     bool `json:"edge_cases"`
	NegativeCases bool `json:"negative_cases"`
}

type DecisionRecord struct {
	ID            int64     `json:"id,string"`
	TargetType    string    `json:"target_type"`
	TargetID      int64     `json:"target_id,string"`
	Decision      string    `json:"decision"`
	OriginalValue string    `json:"original_value"`
	EditedValue   *string   `json:"edited_value,omitempty"`
	DecidedAt     time.Time `json:"decided_at"`
}

type VersionRecord struct {
	ID          int64     `json:"id,string"`
	Action      string    `json:"action"`
	Description string    `json:"description,omitempty"`
	StoryText   string    `json:"story_text"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type ParseInfo struct {
	StructureDetected bool   `json:"structure_detected"`
	Language          string `json:"language,omitempty"`
	Completeness      int    `json:"completeness"`
}

type CreateSessionResponse struct {
	Session *SessionResponse `json:"session"`
	Parse   ParseInfo        `json:"parse"`
}

type ListSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

type SessionSummary struct {
	ID           int64     `json:"id,string"`
	CurrentText  string    `json:"current_text"`
	OverallScore *int      `json:"overall_score,omitempty"`
	Findings     int       `json:"findings"`
	Criteria     int       `json:"criteria"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type DecisionResponse struct {
	Applied bool             `json:"applied"`
	Session *SessionResponse `json:"session"`
}

type NoteResponse struct {
	Applied bool `json:"applied"`
}

type RewritesResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
}

type CriteriaResponse struct {
	Criteria      []CriterionResponse `json:"criteria"`
	Coverage      *CoverageResponse   `json:"coverage,omitempty"`
	OpenQuestions []string            `json:"open_questions,omitempty"`
}

func ToSessionResponse(s *model.Session) *SessionResponse {
	resp := &SessionResponse{
		ID:            s.ID,
		Story:         toStoryResponse(s.Story),
		Findings:      make([]FindingResponse, 0, len(s.Findings)),
		Candidates:    make([]CandidateResponse, 0, len(s.Candidates)),
		Criteria:      make([]CriterionResponse, 0, len(s.Criteria)),
		StageResults:  make([]StageResultResponse, 0, len(s.StageResults)),
		OverallScore:  s.OverallScore,
		Summary:       s.Summary,
		Coverage:      toCoverageResponse(s.Coverage),
		OpenQuestions: s.OpenQuestions,
		Decisions:     make([]DecisionRecord, 0, len(s.Decisions)),
		History:       make([]VersionRecord, 0, len(s.History)),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	for _, f := range s.Findings {
		resp.Findings = append(resp.Findings, ToFindingResponse(f))
	}
	for _, c := range s.Candidates {
		resp.Candidates = append(resp.Candidates, ToCandidateResponse(c))
	}
	for _, c := range s.Criteria {
		resp.Criteria = append(resp.Criteria, ToCriterionResponse(c))
	}
	for _, sr := range s.StageResults {
		resp.StageResults = append(resp.StageResults, toStageResultResponse(sr))
	}
	for _, d := range s.Decisions {
		resp.Decisions = append(resp.Decisions, toDecisionRecord(d))
	}
	for _, v := range s.History {
		resp.History = append(resp.History, toVersionRecord(v))
	}
	return resp
}

func ToParseInfo(res parse.Result) ParseInfo {
	return ParseInfo{
		StructureDetected: res.Structured != nil,
		Language:          res.Language,
		Completeness:      res.Completeness,
	}
}

func ToSessionSummary(s model.Session) SessionSummary {
	return SessionSummary{
		ID:           s.ID,
		CurrentText:  s.Story.CurrentText,
		OverallScore: s.OverallScore,
		Findings:     len(s.Findings),
		Criteria:     len(s.Criteria),
		UpdatedAt:    s.UpdatedAt,
	}
}

func ToFindingResponse(f model.Finding) FindingResponse {
	return FindingResponse{
		ID:                    f.ID,
		Stage:                 string(f.Stage),
		Category:              string(f.Category),
		Severity:              string(f.Severity),
		TextReference:         f.TextReference,
		Reasoning:             f.Reasoning,
		ClarificationQuestion: f.ClarificationQuestion,
		SuggestedAction:       f.SuggestedAction,
		Confidence:            string(f.Confidence),
		IsRelevant:            f.IsRelevant,
		UserNote:              f.UserNote,
	}
}

func ToCandidateResponse(c model.RewriteCandidate) CandidateResponse {
	return CandidateResponse{
		ID:                  c.ID,
		SuggestedText:       c.SuggestedText,
		Explanation:         c.Explanation,
		AddressedFindingIDs: formatIDs(c.AddressedFindingIDs),
		Status:              string(c.Status),
		EditedText:          c.EditedText,
	}
}

func ToCriterionResponse(c model.AcceptanceCriterion) CriterionResponse {
	return CriterionResponse{
		ID:           c.ID,
		Title:        c.Title,
		Given:        c.Given,
		When:         c.When,
		Then:         c.Then,
		Type:         string(c.Type),
		Priority:     string(c.Priority),
		Status:       string(c.Status),
		EditedFields: c.EditedFields,
	}
}

func ToCoverageResponse(cov model.CriteriaCoverage) CoverageResponse {
	return CoverageResponse{
		MainFlow:      cov.MainFlow,
		ErrorCases:    cov.ErrorCases,
		EdgeCases:     cov.EdgeCases,
		NegativeCases: cov.NegativeCases,
	}
}

func toCoverageResponse(cov *model.CriteriaCoverage) *CoverageResponse {
	if cov == nil {
		return nil
	}
	out := ToCoverageResponse(*cov)
	return &out
}

func toStoryResponse(s model.Story) StoryResponse {
	resp := StoryResponse{
		ID:           s.ID,
		OriginalText: s.OriginalText,
		CurrentText:  s.CurrentText,
	}
	if s.StructuredModel != nil {
		resp.StructuredModel = &StructuredResponse{
			Role:        s.StructuredModel.Role,
			Goal:        s.StructuredModel.Goal,
			Benefit:     s.StructuredModel.Benefit,
			Constraints: s.StructuredModel.Constraints,
			Confidence:  string(s.StructuredModel.Confidence),
		}
	}
	return resp
}

func toStageResultResponse(sr model.StageResult) StageResultResponse {
	return StageResultResponse{
		Stage:      string(sr.Stage),
		Status:     string(sr.Status),
		FindingIDs: formatIDs(sr.FindingIDs),
		DurationMS: sr.DurationMS,
		Error:      sr.Error,
	}
}

func toDecisionRecord(d model.Decision) DecisionRecord {
	return DecisionRecord{
		ID:            d.ID,
		TargetType:    string(d.TargetType),
		TargetID:      d.TargetID,
		Decision:      string(d.Decision),
		OriginalValue: d.OriginalValue,
		EditedValue:   d.EditedValue,
		DecidedAt:     d.DecidedAt,
	}
}

func toVersionRecord(v model.VersionEntry) VersionRecord {
	return VersionRecord{
		ID:          v.ID,
		Action:      string(v.Action),
		Description: v.Description,
		StoryText:   v.StoryText,
		RecordedAt:  v.RecordedAt,
	}
}

func formatIDs(ids []int64) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out
}
