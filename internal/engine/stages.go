package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storysmith.app/refinery/common/id"
	"storysmith.app/refinery/common/llm"
	"storysmith.app/refinery/internal/model"
)

// StageInput carries everything one analysis stage may condition on.
type StageInput struct {
	StoryText  string
	Structured *model.StructuredStory
	// Context holds retrieved document snippets, already joined and labeled.
	Context string
	// Additional is free-form context the reviewer supplied for this run.
	Additional string
	// Previous is the accumulated outcome of every earlier stage, in
	// execution order.
	Previous []PriorStage
	// Language selects the output language; empty uses the engine default.
	Language string
}

// StageOutput is the mapped result of one analysis stage. Structured is set
// only by structure_check, Score and Summary only by quality_check.
type StageOutput struct {
	Findings   []model.Finding
	Structured *model.StructuredStory
	Score      *int
	Summary    string
}

// PriorStage is the compact view of a finished stage that later stages see.
type PriorStage struct {
	Stage  model.Stage       `json:"stage"`
	Status model.StageStatus `json:"status"`
	Issues []PriorIssue      `json:"issues,omitempty"`
}

type PriorIssue struct {
	Category      string `json:"category"`
	Severity      string `json:"severity"`
	TextReference string `json:"text_reference,omitempty"`
	Reasoning     string `json:"reasoning,omitempty"`
}

// NewPriorStage digests a finished stage for downstream instructions.
func NewPriorStage(stage model.Stage, status model.StageStatus, findings []model.Finding) PriorStage {
	p := PriorStage{Stage: stage, Status: status}
	for _, f := range findings {
		p.Issues = append(p.Issues, PriorIssue{
			Category:      string(f.Category),
			Severity:      string(f.Severity),
			TextReference: f.TextReference,
			Reasoning:     f.Reasoning,
		})
	}
	return p
}

type issueItem struct {
	Category              string `json:"category" jsonschema:"enum=ambiguity,enum=missing_role,enum=missing_goal,enum=missing_benefit,enum=vague_language,enum=too_broad_scope,enum=solution_bias,enum=persona_unclear,enum=business_value_gap,enum=not_testable,enum=inconsistency,enum=missing_context,enum=technical_debt,enum=other" jsonschema_description:"Problem category from the vocabulary"`
	Severity              string `json:"severity" jsonschema:"enum=critical,enum=major,enum=minor,enum=info" jsonschema_description:"How much the problem degrades the story"`
	TextReference         string `json:"text_reference" jsonschema_description:"Exact quote from the story the issue points at, empty when the issue concerns the whole story"`
	Reasoning             string `json:"reasoning" jsonschema_description:"Why this is a problem for refinement"`
	ClarificationQuestion string `json:"clarification_question" jsonschema_description:"Question to ask the author, empty when none"`
	SuggestedAction       string `json:"suggested_action" jsonschema_description:"Concrete improvement step, empty when none"`
	Confidence            string `json:"confidence" jsonschema:"enum=high,enum=medium,enum=low" jsonschema_description:"How certain the issue is real"`
}

type issuesResponse struct {
	Issues []issueItem `json:"issues" jsonschema_description:"Problems found in this pass, empty when the story is clean"`
}

type structuredItem struct {
	Role        string   `json:"role" jsonschema_description:"Acting persona, empty when not detectable"`
	Goal        string   `json:"goal" jsonschema_description:"What the persona wants to do, empty when not detectable"`
	Benefit     string   `json:"benefit" jsonschema_description:"Why the persona wants it, empty when not detectable"`
	Constraints []string `json:"constraints" jsonschema_description:"Conditions limiting the goal"`
	Confidence  string   `json:"confidence" jsonschema:"enum=high,enum=medium,enum=low" jsonschema_description:"How certain the decomposition is"`
}

type structureResponse struct {
	Issues     []issueItem    `json:"issues" jsonschema_description:"Structural problems such as a missing role, goal or benefit"`
	Structured structuredItem `json:"structured_model" jsonschema_description:"Best-effort decomposition of the story"`
}

type qualityResponse struct {
	Issues  []issueItem `json:"issues" jsonschema_description:"Checklist violations"`
	Score   int         `json:"score" jsonschema_description:"Overall quality score from 0 to 100"`
	Summary string      `json:"summary" jsonschema_description:"Two or three sentence verdict on the story"`
}

var (
	issuesSchema    = llm.GenerateSchema[issuesResponse]()
	structureSchema = llm.GenerateSchema[structureResponse]()
	qualitySchema   = llm.GenerateSchema[qualityResponse]()
)

const (
	ambiguityPromptVersion     = "v3"
	structureCheckVersion      = "v3"
	qualityCheckVersion        = "v4"
	businessValuePromptVersion = "v2"
	solutionBiasPromptVersion  = "v2"
)

// RunStage executes one analysis stage against the engine. The
// acceptance_criteria stage is not an analysis stage; the pipeline calls
// Criteria for it.
func (e *Engine) RunStage(ctx context.Context, stage model.Stage, in StageInput) (*StageOutput, error) {
	switch stage {
	case model.StageAmbiguityAnalysis:
		return e.issueStage(ctx, stage, operation{"ambiguity_analysis", ambiguityPromptVersion}, ambiguitySystemPrompt, in)
	case model.StageStructureCheck:
		return e.structureCheck(ctx, in)
	case model.StageQualityCheck:
		return e.qualityCheck(ctx, in)
	case model.StageBusinessValue:
		return e.issueStage(ctx, stage, operation{"business_value", businessValuePromptVersion}, businessValueSystemPrompt, in)
	case model.StageSolutionBias:
		return e.issueStage(ctx, stage, operation{"solution_bias", solutionBiasPromptVersion}, solutionBiasSystemPrompt, in)
	case model.StageAcceptanceCriteria:
		return nil, fmt.Errorf("stage %s is served by Criteria", stage)
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

// issueStage runs the stages whose only output is a list of issues.
func (e *Engine) issueStage(ctx context.Context, stage model.Stage, op operation, system string, in StageInput) (*StageOutput, error) {
	user := e.buildStagePrompt(in)

	var wire issuesResponse
	err := e.complete(ctx, op, system, user, "stage_issues", issuesSchema, func(raw string) error {
		wire = issuesResponse{}
		if err := requireArray(raw, "issues"); err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &wire)
	})
	if err != nil {
		return nil, err
	}

	return &StageOutput{Findings: e.toFindings(stage, wire.Issues)}, nil
}

func (e *Engine) structureCheck(ctx context.Context, in StageInput) (*StageOutput, error) {
	op := operation{"structure_check", structureCheckVersion}
	user := e.buildStagePrompt(in)

	var wire structureResponse
	err := e.complete(ctx, op, structureSystemPrompt, user, "structure_check", structureSchema, func(raw string) error {
		wire = structureResponse{}
		if err := requireArray(raw, "issues"); err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &wire)
	})
	if err != nil {
		return nil, err
	}

	out := &StageOutput{Findings: e.toFindings(model.StageStructureCheck, wire.Issues)}
	if s := wire.Structured; s.Role != "" || s.Goal != "" || s.Benefit != "" {
		out.Structured = &model.StructuredStory{
			Role:        s.Role,
			Goal:        s.Goal,
			Benefit:     s.Benefit,
			Constraints: s.Constraints,
			Confidence:  normalizeConfidence(s.Confidence),
		}
	}
	return out, nil
}

func (e *Engine) qualityCheck(ctx context.Context, in StageInput) (*StageOutput, error) {
	op := operation{"quality_check", qualityCheckVersion}
	user := e.buildStagePrompt(in)

	var wire qualityResponse
	err := e.complete(ctx, op, qualitySystemPrompt, user, "quality_check", qualitySchema, func(raw string) error {
		wire = qualityResponse{}
		if err := requireArray(raw, "issues"); err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &wire)
	})
	if err != nil {
		return nil, err
	}

	score := clampScore(wire.Score)
	return &StageOutput{
		Findings: e.toFindings(model.StageQualityCheck, wire.Issues),
		Score:    &score,
		Summary:  strings.TrimSpace(wire.Summary),
	}, nil
}

// buildStagePrompt assembles the shared instruction body for analysis stages.
func (e *Engine) buildStagePrompt(in StageInput) string {
	var sb strings.Builder
	writeStory(&sb, in.StoryText)
	writeStructured(&sb, in.Structured)
	writePrevious(&sb, in.Previous)
	writeContext(&sb, in.Context)
	writeAdditional(&sb, in.Additional)
	writeChecklist(&sb, e.rules)
	writeVocabulary(&sb, e.rules)
	writeLanguage(&sb, e.outputLanguage(in.Language))
	return sb.String()
}

// toFindings maps wire issues onto domain findings, normalizing every label
// and assigning stable ids.
func (e *Engine) toFindings(stage model.Stage, items []issueItem) []model.Finding {
	if len(items) == 0 {
		return nil
	}
	findings := make([]model.Finding, len(items))
	for i, it := range items {
		findings[i] = model.Finding{
			ID:                    id.New(),
			Stage:                 stage,
			Category:              normalizeCategory(it.Category),
			Severity:              normalizeSeverity(it.Severity),
			TextReference:         strings.TrimSpace(it.TextReference),
			Reasoning:             strings.TrimSpace(it.Reasoning),
			ClarificationQuestion: strings.TrimSpace(it.ClarificationQuestion),
			SuggestedAction:       strings.TrimSpace(it.SuggestedAction),
			Confidence:            normalizeConfidence(it.Confidence),
		}
	}
	return findings
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

const ambiguitySystemPrompt = `You review user stories for ambiguity before a team refines them.

Find wording a developer and a product owner would read differently: unclear references, undefined terms, vague quantities, timing left open, and context the story assumes but never states.

## Rules

- Quote the ambiguous wording exactly in text_reference.
- One issue per distinct problem. Do not repeat issues already listed under Previous Stage Results.
- Ask a clarification_question the author can answer in one sentence.
- Prefer categories ambiguity, vague_language, missing_context and persona_unclear.
- A clean story gets an empty issues array. Do not invent problems.`

const structureSystemPrompt = `You decompose user stories into role, goal and benefit.

Extract who wants something, what they want, and why. Report what is missing or unclear as issues, and always return your best-effort decomposition in structured_model, with empty strings for parts you cannot detect.

## Rules

- Use categories missing_role, missing_goal, missing_benefit and persona_unclear for structural gaps.
- The decomposition reflects what the story says, not what it should say.
- Constraints are conditions the story itself states, such as clauses after "aber" or "unless".
- Set confidence low when you had to guess, high only when the story is explicit.`

const qualitySystemPrompt = `You grade user stories against a quality checklist.

Walk the checklist, report each violation as an issue, then give an overall score and a short verdict. The score reflects readiness for implementation: 90 and above means ready, below 50 means the story needs a rewrite before refinement.

## Rules

- Every issue cites the checklist dimension it violates in reasoning.
- Do not repeat issues already listed under Previous Stage Results; grade them into the score instead.
- suggested_action states the smallest change that fixes the violation.
- The summary addresses the story author directly, in two or three sentences.`

const businessValueSystemPrompt = `You assess whether a user story justifies its existence.

Judge the benefit clause: is the value concrete, plausible and tied to the persona or the business? A story whose benefit restates its goal has no articulated value.

## Rules

- Prefer categories business_value_gap and missing_benefit.
- Severity major when no reviewer could say why the story matters, minor when value is implied but not stated.
- suggested_action proposes a sharper benefit clause when you can infer one.
- Do not repeat issues already listed under Previous Stage Results.`

const solutionBiasSystemPrompt = `You detect solution bias in user stories.

A story states a need; it does not prescribe buttons, endpoints, schemas, vendors or architectures. Find places where the story fixes the implementation instead of the outcome, and where baked-in solutions hide the actual requirement.

## Rules

- Prefer categories solution_bias, technical_debt and too_broad_scope.
- Quote the prescriptive wording exactly in text_reference.
- suggested_action rephrases the need without the prescribed solution.
- Mentioning an existing system the story integrates with is context, not bias.
- Do not repeat issues already listed under Previous Stage Results.`
