// Package parse extracts a first-pass role/goal/benefit decomposition from
// raw story text with deterministic regexes, so the caller gets an immediate
// structured preview without waiting on the engine. The structure_check
// stage may later replace the result.
package parse

import (
	"regexp"
	"strings"

	"storysmith.app/refinery/internal/model"
)

// Completeness weights. Goal is judged most essential.
const (
	roleWeight    = 35
	goalWeight    = 40
	benefitWeight = 25
)

const (
	LanguageGerman  = "de"
	LanguageEnglish = "en"
)

// Result is the outcome of a heuristic parse. Structured is nil when no
// story pattern was detected.
type Result struct {
	Structured   *model.StructuredStory
	Language     string
	Completeness int
}

var (
	roleDE    = regexp.MustCompile(`(?i)\bals\s+(?:ein(?:e|er|em|en)?\s+)?(.*?)\s+(?:möchte|will|brauche|benötige)\s+ich\b`)
	goalDE    = regexp.MustCompile(`(?i)\b(?:möchte|will|brauche|benötige)\s+ich\s+(.*?)(?:\s*,?\s+(?:damit|sodass|so\s+dass)\b|[.!?]|$)`)
	benefitDE = regexp.MustCompile(`(?i)\b(?:damit|sodass|so\s+dass)\s+(.*?)\s*(?:[.!?]|$)`)

	roleEN    = regexp.MustCompile(`(?i)\bas\s+an?\s+(.*?)\s*,?\s+i\s+(?:want|would\s+like|need)\b`)
	goalEN    = regexp.MustCompile(`(?i)\bi\s+(?:want|would\s+like|need)\s+(?:to\s+)?(.*?)(?:\s*,?\s+so\s+that\b|[.!?]|$)`)
	benefitEN = regexp.MustCompile(`(?i)\bso\s+that\s+(.*?)\s*(?:[.!?]|$)`)

	// Contrastive/negating conjunction clauses are read as constraints.
	constraintPattern = regexp.MustCompile(`(?i)\b(?:aber|jedoch|allerdings|außer\s+wenn|ohne\s+dass|nur\s+wenn|but|however|unless|except\s+(?:when|if)|only\s+if|without)\s+([^,.;!?]+)`)
)

// Structure runs the heuristic parse. The German pattern set is tried
// first; English is only consulted when no German role or goal matched.
// When neither language matches, Structured is nil and the caller reports
// "no structure detected" instead of guessing.
func Structure(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}
	}

	role, goal, benefit := extract(text, roleDE, goalDE, benefitDE)
	language := LanguageGerman
	if role == "" && goal == "" {
		role, goal, benefit = extract(text, roleEN, goalEN, benefitEN)
		language = LanguageEnglish
	}
	if role == "" && goal == "" {
		return Result{}
	}

	score := 0
	matched := 0
	if role != "" {
		score += roleWeight
		matched++
	}
	if goal != "" {
		score += goalWeight
		matched++
	}
	if benefit != "" {
		score += benefitWeight
		matched++
	}

	structured := &model.StructuredStory{
		Role:        role,
		Goal:        goal,
		Benefit:     benefit,
		Constraints: constraints(text),
		Confidence:  confidenceFor(matched),
	}

	return Result{
		Structured:   structured,
		Language:     language,
		Completeness: score,
	}
}

func extract(text string, rolePat, goalPat, benefitPat *regexp.Regexp) (role, goal, benefit string) {
	if m := rolePat.FindStringSubmatch(text); m != nil {
		role = cleanField(m[1])
	}
	if m := goalPat.FindStringSubmatch(text); m != nil {
		goal = cleanField(m[1])
	}
	if m := benefitPat.FindStringSubmatch(text); m != nil {
		benefit = cleanField(m[1])
	}
	return role, goal, benefit
}

// cleanField strips trailing punctuation and collapses excess whitespace.
func cleanField(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ".,;:!? ")
}

// constraints scans for contrastive clauses. Duplicates are suppressed by
// exact string match; order of first occurrence is kept.
func constraints(text string) []string {
	matches := constraintPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		c := cleanField(m[1])
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func confidenceFor(matched int) model.Confidence {
	switch matched {
	case 3:
		return model.ConfidenceHigh
	case 2:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
