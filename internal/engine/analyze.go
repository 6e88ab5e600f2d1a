package engine

import (
	"context"
	"encoding/json"
	"strings"

	"storysmith.app/refinery/common/llm"
	"storysmith.app/refinery/internal/model"
)

// AnalyzeInput feeds the legacy single-shot analysis, which predates the
// staged pipeline and answers everything in one call.
type AnalyzeInput struct {
	StoryText string
	Context   string
	Language  string
}

type AnalyzeOutput struct {
	Findings   []model.Finding
	Structured *model.StructuredStory
	Score      *int
	Summary    string
}

type analyzeResponse struct {
	Issues     []issueItem    `json:"issues" jsonschema_description:"Every quality problem found"`
	Structured structuredItem `json:"structured_model" jsonschema_description:"Best-effort decomposition of the story"`
	Score      int            `json:"score" jsonschema_description:"Overall quality score from 0 to 100"`
	Summary    string         `json:"summary" jsonschema_description:"Two or three sentence verdict"`
}

var analyzeSchema = llm.GenerateSchema[analyzeResponse]()

const analyzePromptVersion = "v5"

// Analyze performs the combined one-call review. Findings carry no stage
// attribution because no stage ran.
func (e *Engine) Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeOutput, error) {
	op := operation{"analyze", analyzePromptVersion}

	var sb strings.Builder
	writeStory(&sb, in.StoryText)
	writeContext(&sb, in.Context)
	writeChecklist(&sb, e.rules)
	writeVocabulary(&sb, e.rules)
	writeLanguage(&sb, e.outputLanguage(in.Language))

	var wire analyzeResponse
	err := e.complete(ctx, op, analyzeSystemPrompt, sb.String(), "analyze_story", analyzeSchema, func(raw string) error {
		wire = analyzeResponse{}
		if err := requireArray(raw, "issues"); err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &wire)
	})
	if err != nil {
		return nil, err
	}

	score := clampScore(wire.Score)
	out := &AnalyzeOutput{
		Findings: e.toFindings("", wire.Issues),
		Score:    &score,
		Summary:  strings.TrimSpace(wire.Summary),
	}
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

const analyzeSystemPrompt = `You review a user story in a single pass: structure, clarity, value and testability.

Decompose the story into role, goal and benefit, report every quality problem you find, and grade the story from 0 to 100.

## Rules

- Quote problematic wording exactly in text_reference.
- Use only vocabulary values for category, severity and confidence.
- The decomposition reflects what the story says, with empty strings for undetectable parts.
- Score 90 and above means ready for implementation, below 50 means rewrite first.
- A clean story gets an empty issues array and a short positive summary.`
