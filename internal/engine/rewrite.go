package engine

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"storysmith.app/refinery/common/id"
	"storysmith.app/refinery/common/llm"
	"storysmith.app/refinery/internal/model"
)

// RewriteInput conditions rewrite generation. RelevantFindings is the
// human-curated subset; with none curated the rewrite degrades to general
// quality improvement.
type RewriteInput struct {
	StoryText        string
	Structured       *model.StructuredStory
	RelevantFindings []model.Finding
	Context          string
	Language         string
}

type RewriteOutput struct {
	Candidates []model.RewriteCandidate
}

type rewriteItem struct {
	SuggestedText       string   `json:"suggested_text" jsonschema_description:"The complete replacement story text"`
	Explanation         string   `json:"explanation" jsonschema_description:"What this candidate changes and why"`
	AddressedFindingIDs []string `json:"addressed_finding_ids" jsonschema_description:"IDs of the relevant findings this candidate resolves, echoed from the instruction"`
}

type rewriteResponse struct {
	Candidates []rewriteItem `json:"candidates" jsonschema_description:"Two or three alternative rewrites"`
}

var rewriteSchema = llm.GenerateSchema[rewriteResponse]()

const rewritePromptVersion = "v3"

// Rewrite proposes full replacement texts for the story. Candidates come
// back pending; the human decides which one, if any, becomes current text.
func (e *Engine) Rewrite(ctx context.Context, in RewriteInput) (*RewriteOutput, error) {
	op := operation{"rewrite", rewritePromptVersion}
	user := e.buildRewritePrompt(in)

	var wire rewriteResponse
	err := e.complete(ctx, op, rewriteSystemPrompt, user, "rewrite_candidates", rewriteSchema, func(raw string) error {
		wire = rewriteResponse{}
		if err := requireNonEmptyArray(raw, "candidates"); err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &wire)
	})
	if err != nil {
		return nil, err
	}

	known := make(map[int64]bool, len(in.RelevantFindings))
	for _, f := range in.RelevantFindings {
		known[f.ID] = true
	}

	out := &RewriteOutput{Candidates: make([]model.RewriteCandidate, 0, len(wire.Candidates))}
	for _, c := range wire.Candidates {
		text := strings.TrimSpace(c.SuggestedText)
		if text == "" {
			continue
		}
		out.Candidates = append(out.Candidates, model.RewriteCandidate{
			ID:                  id.New(),
			SuggestedText:       text,
			Explanation:         strings.TrimSpace(c.Explanation),
			AddressedFindingIDs: parseFindingIDs(c.AddressedFindingIDs, known),
			Status:              model.ReviewStatusPending,
		})
	}
	return out, nil
}

// parseFindingIDs keeps only ids that reference a finding from the
// instruction; everything else the engine made up is dropped.
func parseFindingIDs(raw []string, known map[int64]bool) []int64 {
	var ids []int64
	for _, s := range raw {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil || !known[v] {
			continue
		}
		ids = append(ids, v)
	}
	return ids
}

func (e *Engine) buildRewritePrompt(in RewriteInput) string {
	var sb strings.Builder
	writeStory(&sb, in.StoryText)
	writeStructured(&sb, in.Structured)
	writeRelevantFindings(&sb, in.RelevantFindings)
	if len(in.RelevantFindings) == 0 {
		sb.WriteString("## Task\n")
		sb.WriteString("No findings were marked relevant. Improve the general quality of the story: structure, precision, testability and value.\n\n")
	}
	writeContext(&sb, in.Context)
	writeChecklist(&sb, e.rules)
	writeLanguage(&sb, e.outputLanguage(in.Language))
	return sb.String()
}

const rewriteSystemPrompt = `You rewrite user stories so they pass refinement on the first try.

Produce two or three alternative rewrites. Each candidate is the complete story text, standing on its own, keeping the original intent while fixing the findings it addresses.

## Rules

- Keep the author's language and domain terms; fix structure and precision, not voice.
- Candidates differ in approach, not in phrasing of the same idea.
- Never invent requirements the original does not imply.
- List in addressed_finding_ids exactly the relevant finding ids a candidate resolves.
- explanation names the tradeoff the candidate makes in one or two sentences.`
