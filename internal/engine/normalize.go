package engine

import (
	"strings"

	"storysmith.app/refinery/internal/model"
)

// The engine is instructed to use the controlled vocabulary, but replies
// drift: casing varies, spaces or hyphens stand in for underscores, and
// older template versions used labels that have since been renamed. The
// normalizers below fold any reply into the closed sets the model defines.
// Unknown values never fail an operation; they map to a documented default.

// categoryAliases maps retired or paraphrased labels to current categories.
var categoryAliases = map[string]model.FindingCategory{
	"clarity":        model.CategoryVagueLanguage,
	"vague":          model.CategoryVagueLanguage,
	"ambiguous":      model.CategoryAmbiguity,
	"no_role":        model.CategoryMissingRole,
	"no_goal":        model.CategoryMissingGoal,
	"no_benefit":     model.CategoryMissingBenefit,
	"scope":          model.CategoryTooBroadScope,
	"testability":    model.CategoryNotTestable,
	"business_value": model.CategoryBusinessValueGap,
}

var knownCategories = map[model.FindingCategory]bool{
	model.CategoryAmbiguity:        true,
	model.CategoryMissingRole:      true,
	model.CategoryMissingGoal:      true,
	model.CategoryMissingBenefit:   true,
	model.CategoryVagueLanguage:    true,
	model.CategoryTooBroadScope:    true,
	model.CategorySolutionBias:     true,
	model.CategoryPersonaUnclear:   true,
	model.CategoryBusinessValueGap: true,
	model.CategoryNotTestable:      true,
	model.CategoryInconsistency:    true,
	model.CategoryMissingContext:   true,
	model.CategoryTechnicalDebt:    true,
	model.CategoryOther:            true,
}

// normalizeCategory maps a raw category label into the closed category set.
// Anything unrecognized becomes CategoryOther.
func normalizeCategory(raw string) model.FindingCategory {
	key := canonical(raw)
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	if c := model.FindingCategory(key); knownCategories[c] {
		return c
	}
	return model.CategoryOther
}

// normalizeSeverity defaults unknown severities to info so a drifting reply
// can never inflate the severity ranking.
func normalizeSeverity(raw string) model.Severity {
	switch model.Severity(canonical(raw)) {
	case model.SeverityCritical:
		return model.SeverityCritical
	case model.SeverityMajor:
		return model.SeverityMajor
	case model.SeverityMinor:
		return model.SeverityMinor
	case model.SeverityInfo:
		return model.SeverityInfo
	default:
		return model.SeverityInfo
	}
}

func normalizeConfidence(raw string) model.Confidence {
	switch model.Confidence(canonical(raw)) {
	case model.ConfidenceHigh:
		return model.ConfidenceHigh
	case model.ConfidenceLow:
		return model.ConfidenceLow
	default:
		return model.ConfidenceMedium
	}
}

func normalizeCriterionType(raw string) model.CriterionType {
	switch key := canonical(raw); key {
	case string(model.CriterionHappyPath), "happy", "positive":
		return model.CriterionHappyPath
	case string(model.CriterionErrorCase), "error":
		return model.CriterionErrorCase
	case string(model.CriterionNegativeCase), "negative":
		return model.CriterionNegativeCase
	default:
		return model.CriterionEdgeCase
	}
}

func normalizePriority(raw string) model.CriterionPriority {
	switch model.CriterionPriority(canonical(raw)) {
	case model.PriorityMust:
		return model.PriorityMust
	case model.PriorityCould:
		return model.PriorityCould
	default:
		return model.PriorityShould
	}
}

// canonical lowercases a label and folds spaces and hyphens to underscores.
func canonical(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
