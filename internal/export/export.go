// Package export projects a session snapshot into a shareable review
// document. Projection is pure: it reads the snapshot and produces a string,
// no I/O and no mutation.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"storysmith.app/refinery/internal/model"
)

// Format selects the projection output.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat maps a user-supplied format name onto a Format. An empty
// string selects Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatMarkdown):
		return FormatMarkdown, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Project renders a session snapshot in the requested format.
func Project(snap model.Session, format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return projectMarkdown(snap), nil
	case FormatJSON:
		return projectJSON(snap)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

func projectMarkdown(snap model.Session) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Story Review %d\n\n", snap.ID))

	sb.WriteString("## Original Text\n\n")
	sb.WriteString(strings.TrimSpace(snap.Story.OriginalText))
	sb.WriteString("\n\n")

	sb.WriteString("## Current Text\n\n")
	sb.WriteString(strings.TrimSpace(snap.Story.CurrentText))
	sb.WriteString("\n\n")

	if m := snap.Story.StructuredModel; m != nil {
		sb.WriteString("## Structured Breakdown\n\n")
		sb.WriteString(fmt.Sprintf("- Role: %s\n", orMissing(m.Role)))
		sb.WriteString(fmt.Sprintf("- Goal: %s\n", orMissing(m.Goal)))
		sb.WriteString(fmt.Sprintf("- Benefit: %s\n", orMissing(m.Benefit)))
		if len(m.Constraints) > 0 {
			sb.WriteString(fmt.Sprintf("- Constraints: %s\n", strings.Join(m.Constraints, "; ")))
		}
		sb.WriteString(fmt.Sprintf("- Confidence: %s\n\n", m.Confidence))
	}

	if len(snap.StageResults) > 0 || snap.OverallScore != nil {
		sb.WriteString("## Pipeline Summary\n\n")
		if snap.OverallScore != nil {
			sb.WriteString(fmt.Sprintf("Overall score: %d/100\n\n", *snap.OverallScore))
		}
		if snap.Summary != "" {
			sb.WriteString(strings.TrimSpace(snap.Summary))
			sb.WriteString("\n\n")
		}
		for _, sr := range snap.StageResults {
			line := fmt.Sprintf("- %s: %s", sr.Stage, sr.Status)
			if len(sr.FindingIDs) > 0 {
				line += fmt.Sprintf(", %d findings", len(sr.FindingIDs))
			}
			if sr.Error != "" {
				line += fmt.Sprintf(" (%s)", sr.Error)
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}

	if significant := significantFindings(snap.Findings); len(significant) > 0 {
		sb.WriteString("## Critical and Major Findings\n\n")
		for _, f := range significant {
			sb.WriteString(fmt.Sprintf("- [%s] %s: %s", f.Severity, f.Category, strings.TrimSpace(f.Reasoning)))
			if f.TextReference != "" {
				sb.WriteString(fmt.Sprintf(" (at %q)", f.TextReference))
			}
			sb.WriteString("\n")
			if f.SuggestedAction != "" {
				sb.WriteString(fmt.Sprintf("  Suggested: %s\n", f.SuggestedAction))
			}
		}
		sb.WriteString("\n")
	}

	if final := snap.FinalCriteria(); len(final) > 0 {
		sb.WriteString("## Accepted Criteria\n\n")
		for _, c := range final {
			sb.WriteString(fmt.Sprintf("### %s\n\n", c.Field("title")))
			sb.WriteString(fmt.Sprintf("- Given %s\n", c.Field("given")))
			sb.WriteString(fmt.Sprintf("- When %s\n", c.Field("when")))
			sb.WriteString(fmt.Sprintf("- Then %s\n", c.Field("then")))
			sb.WriteString(fmt.Sprintf("- Type: %s, Priority: %s\n\n", c.Type, c.Priority))
		}
	}

	if len(snap.OpenQuestions) > 0 {
		sb.WriteString("## Open Questions\n\n")
		for _, q := range snap.OpenQuestions {
			sb.WriteString("- " + q + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Decisions\n\n")
	counts := countDecisions(snap.Decisions)
	if len(snap.Decisions) == 0 {
		sb.WriteString("No decisions recorded.\n")
	} else {
		for _, target := range []model.DecisionTarget{model.TargetFinding, model.TargetRewrite, model.TargetCriterion} {
			c := counts[target]
			if c.total() == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("- %s: %d accepted, %d rejected, %d edited\n", target, c.Accepted, c.Rejected, c.Edited))
		}
	}

	return sb.String()
}

// document is the JSON shape of an export. It carries the same information
// as the Markdown projection.
type document struct {
	SessionID     int64                              `json:"session_id"`
	OriginalText  string                             `json:"original_text"`
	CurrentText   string                             `json:"current_text"`
	Structured    *model.StructuredStory             `json:"structured_model,omitempty"`
	OverallScore  *int                               `json:"overall_score,omitempty"`
	Summary       string                             `json:"summary,omitempty"`
	Stages        []model.StageResult                `json:"stages,omitempty"`
	KeyFindings   []model.Finding                    `json:"key_findings,omitempty"`
	Criteria      []model.AcceptanceCriterion        `json:"accepted_criteria,omitempty"`
	OpenQuestions []string                           `json:"open_questions,omitempty"`
	Decisions     map[model.DecisionTarget]tallyJSON `json:"decision_counts"`
}

type tallyJSON struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Edited   int `json:"edited"`
}

func projectJSON(snap model.Session) (string, error) {
	doc := document{
		SessionID:     snap.ID,
		OriginalText:  snap.Story.OriginalText,
		CurrentText:   snap.Story.CurrentText,
		Structured:    snap.Story.StructuredModel,
		OverallScore:  snap.OverallScore,
		Summary:       snap.Summary,
		Stages:        snap.StageResults,
		KeyFindings:   significantFindings(snap.Findings),
		Criteria:      snap.FinalCriteria(),
		OpenQuestions: snap.OpenQuestions,
		Decisions:     map[model.DecisionTarget]tallyJSON{},
	}
	for target, c := range countDecisions(snap.Decisions) {
		doc.Decisions[target] = tallyJSON{Accepted: c.Accepted, Rejected: c.Rejected, Edited: c.Edited}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling export: %w", err)
	}
	return string(out), nil
}

// significantFindings filters down to critical and major severity, which is
// what a reader of the review document acts on.
func significantFindings(findings []model.Finding) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if f.Severity == model.SeverityCritical || f.Severity == model.SeverityMajor {
			out = append(out, f)
		}
	}
	return out
}

type tally struct {
	Accepted int
	Rejected int
	Edited   int
}

func (t tally) total() int { return t.Accepted + t.Rejected + t.Edited }

func countDecisions(decisions []model.Decision) map[model.DecisionTarget]tally {
	counts := map[model.DecisionTarget]tally{}
	for _, d := range decisions {
		c := counts[d.TargetType]
		switch d.Decision {
		case model.DecisionAccepted:
			c.Accepted++
		case model.DecisionRejected:
			c.Rejected++
		case model.DecisionEdited:
			c.Edited++
		}
		counts[d.TargetType] = c
	}
	return counts
}

func orMissing(s string) string {
	if s == "" {
		return "(not detected)"
	}
	return s
}
