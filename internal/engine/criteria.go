package engine

import (
	"context"
	"encoding/json"
	"strings"

	"storysmith.app/refinery/common/id"
	"storysmith.app/refinery/common/llm"
	"storysmith.app/refinery/internal/model"
)

// CriteriaInput conditions acceptance criteria generation. Previous carries
// the full pipeline history because criteria run as the last stage; the
// curated findings sharpen what the criteria must guard against.
type CriteriaInput struct {
	StoryText        string
	Structured       *model.StructuredStory
	RelevantFindings []model.Finding
	Previous         []PriorStage
	Context          string
	Additional       string
	Language         string
}

type CriteriaOutput struct {
	Criteria      []model.AcceptanceCriterion
	Coverage      model.CriteriaCoverage
	OpenQuestions []string
}

type criterionItem struct {
	Title    string `json:"title" jsonschema_description:"Short name of the behavior under test"`
	Given    string `json:"given" jsonschema_description:"Precondition"`
	When     string `json:"when" jsonschema_description:"Action or trigger"`
	Then     string `json:"then" jsonschema_description:"Observable outcome"`
	Type     string `json:"type" jsonschema:"enum=happy_path,enum=edge_case,enum=error_case,enum=negative_case" jsonschema_description:"Which flow the criterion covers"`
	Priority string `json:"priority" jsonschema:"enum=must,enum=should,enum=could" jsonschema_description:"How essential the criterion is"`
}

type coverageItem struct {
	MainFlow      bool `json:"main_flow" jsonschema_description:"The primary success path is covered"`
	ErrorCases    bool `json:"error_cases" jsonschema_description:"Failure behavior is covered"`
	EdgeCases     bool `json:"edge_cases" jsonschema_description:"Boundary conditions are covered"`
	NegativeCases bool `json:"negative_cases" jsonschema_description:"Forbidden behavior is covered"`
}

type criteriaResponse struct {
	Criteria      []criterionItem `json:"criteria" jsonschema_description:"Three to five acceptance criteria"`
	Coverage      coverageItem    `json:"coverage" jsonschema_description:"Self-assessment of what the set covers"`
	OpenQuestions []string        `json:"open_questions" jsonschema_description:"Questions that must be answered before the story is testable, empty when none"`
}

var criteriaSchema = llm.GenerateSchema[criteriaResponse]()

const criteriaPromptVersion = "v3"

// Criteria generates Given/When/Then acceptance criteria for the story.
// Criteria come back pending; multiple may later be accepted side by side.
func (e *Engine) Criteria(ctx context.Context, in CriteriaInput) (*CriteriaOutput, error) {
	op := operation{"acceptance_criteria", criteriaPromptVersion}
	user := e.buildCriteriaPrompt(in)

	var wire criteriaResponse
	err := e.complete(ctx, op, criteriaSystemPrompt, user, "acceptance_criteria", criteriaSchema, func(raw string) error {
		wire = criteriaResponse{}
		if err := requireNonEmptyArray(raw, "criteria"); err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &wire)
	})
	if err != nil {
		return nil, err
	}

	out := &CriteriaOutput{
		Coverage: model.CriteriaCoverage{
			MainFlow:      wire.Coverage.MainFlow,
			ErrorCases:    wire.Coverage.ErrorCases,
			EdgeCases:     wire.Coverage.EdgeCases,
			NegativeCases: wire.Coverage.NegativeCases,
		},
	}
	for _, q := range wire.OpenQuestions {
		if q = strings.TrimSpace(q); q != "" {
			out.OpenQuestions = append(out.OpenQuestions, q)
		}
	}
	for _, c := range wire.Criteria {
		out.Criteria = append(out.Criteria, model.AcceptanceCriterion{
			ID:       id.New(),
			Title:    strings.TrimSpace(c.Title),
			Given:    strings.TrimSpace(c.Given),
			When:     strings.TrimSpace(c.When),
			Then:     strings.TrimSpace(c.Then),
			Type:     normalizeCriterionType(c.Type),
			Priority: normalizePriority(c.Priority),
			Status:   model.ReviewStatusPending,
		})
	}
	return out, nil
}

func (e *Engine) buildCriteriaPrompt(in CriteriaInput) string {
	var sb strings.Builder
	writeStory(&sb, in.StoryText)
	writeStructured(&sb, in.Structured)
	writePrevious(&sb, in.Previous)
	writeRelevantFindings(&sb, in.RelevantFindings)
	writeContext(&sb, in.Context)
	writeAdditional(&sb, in.Additional)
	writeLanguage(&sb, e.outputLanguage(in.Language))
	return sb.String()
}

const criteriaSystemPrompt = `You write acceptance criteria for user stories.

Produce three to five Given/When/Then criteria a tester could execute without asking the author anything. Cover the main flow first, then the error, edge and negative cases the story implies.

## Rules

- given, when and then are single declarative sentences, no "and" chains.
- Each criterion tests one observable behavior.
- must criteria gate the story; should and could refine it.
- Findings marked relevant tell you where the story is fragile; cover those paths.
- Unanswerable aspects go to open_questions instead of becoming vague criteria.`
