package engine

import (
	"encoding/json"
	"strconv"
	"strings"

	"storysmith.app/refinery/internal/model"
)

// Instructions are assembled from markdown sections so every operation reads
// the same way: story first, then whatever conditioning the operation needs.
// Section writers append nothing when their input is empty.

func writeStory(sb *strings.Builder, text string) {
	sb.WriteString("## Story\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
}

func writeStructured(sb *strings.Builder, s *model.StructuredStory) {
	if s == nil {
		return
	}
	sb.WriteString("## Structured Model\n")
	sb.WriteString("Role: " + s.Role + "\n")
	sb.WriteString("Goal: " + s.Goal + "\n")
	sb.WriteString("Benefit: " + s.Benefit + "\n")
	if len(s.Constraints) > 0 {
		sb.WriteString("Constraints: " + strings.Join(s.Constraints, "; ") + "\n")
	}
	if s.Confidence != "" {
		sb.WriteString("Confidence: " + string(s.Confidence) + "\n")
	}
	sb.WriteString("\n")
}

// writePrevious serializes the accumulated results of every earlier stage.
// Stage N must see stages 1..N-1, not just its predecessor.
func writePrevious(sb *strings.Builder, prev []PriorStage) {
	if len(prev) == 0 {
		return
	}
	b, err := json.Marshal(prev)
	if err != nil {
		return
	}
	sb.WriteString("## Previous Stage Results\n")
	sb.Write(b)
	sb.WriteString("\n\n")
}

func writeContext(sb *strings.Builder, contextText string) {
	if contextText == "" {
		return
	}
	sb.WriteString("## Reference Documents\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\n")
}

func writeAdditional(sb *strings.Builder, additional string) {
	if additional == "" {
		return
	}
	sb.WriteString("## Additional Context\n")
	sb.WriteString(additional)
	sb.WriteString("\n\n")
}

func writeChecklist(sb *strings.Builder, rules Rules) {
	if len(rules.Checklist) == 0 {
		return
	}
	sb.WriteString("## Quality Checklist\n")
	for _, r := range rules.Checklist {
		sb.WriteString("- " + r.Rule + "\n")
	}
	sb.WriteString("\n")
}

func writeVocabulary(sb *strings.Builder, rules Rules) {
	v := rules.Vocabulary
	if len(v.Categories) == 0 {
		return
	}
	sb.WriteString("## Vocabulary\n")
	sb.WriteString("Categories: " + strings.Join(v.Categories, ", ") + "\n")
	sb.WriteString("Severities: " + strings.Join(v.Severities, ", ") + "\n")
	sb.WriteString("Confidences: " + strings.Join(v.Confidences, ", ") + "\n")
	if len(v.CriterionTypes) > 0 {
		sb.WriteString("Criterion types: " + strings.Join(v.CriterionTypes, ", ") + "\n")
	}
	if len(v.Priorities) > 0 {
		sb.WriteString("Priorities: " + strings.Join(v.Priorities, ", ") + "\n")
	}
	sb.WriteString("\n")
}

func writeLanguage(sb *strings.Builder, lang string) {
	sb.WriteString("## Output Language\n")
	sb.WriteString("Write all reasoning, questions, summaries and suggested texts in " + languageName(lang) + ".\n\n")
}

func languageName(code string) string {
	switch code {
	case "de":
		return "German"
	case "en":
		return "English"
	default:
		return code
	}
}

// curatedFinding is the digest of a human-curated finding that conditions
// rewrite and criteria generation. IDs travel as strings so the engine can
// echo them back without rounding.
type curatedFinding struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Severity  string `json:"severity"`
	Reasoning string `json:"reasoning"`
	UserNote  string `json:"user_note,omitempty"`
}

// writeRelevantFindings serializes the findings a human marked relevant.
// With nothing curated the operation degrades to general quality guidance,
// which the caller states in its own section.
func writeRelevantFindings(sb *strings.Builder, findings []model.Finding) {
	if len(findings) == 0 {
		return
	}
	digest := make([]curatedFinding, len(findings))
	for i, f := range findings {
		digest[i] = curatedFinding{
			ID:        strconv.FormatInt(f.ID, 10),
			Category:  string(f.Category),
			Severity:  string(f.Severity),
			Reasoning: f.Reasoning,
			UserNote:  f.UserNote,
		}
	}
	b, err := json.Marshal(digest)
	if err != nil {
		return
	}
	sb.WriteString("## Relevant Findings\n")
	sb.WriteString("The reviewer marked these findings as relevant. Address every one of them.\n")
	sb.Write(b)
	sb.WriteString("\n\n")
}
