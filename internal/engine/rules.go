package engine

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// defaultRules is parsed once at init. The file is part of the binary, so a
// parse failure is a build defect, not a runtime condition.
var defaultRules = mustParseRules(rulesYAML)

// Rules carries the quality checklist and the controlled vocabulary that are
// substituted into every stage instruction. Version pins the rule revision a
// run was produced with.
type Rules struct {
	Version    string     `yaml:"version"`
	Vocabulary Vocabulary `yaml:"vocabulary"`
	Checklist  []Rule     `yaml:"checklist"`
}

type Vocabulary struct {
	Categories     []string `yaml:"categories"`
	Severities     []string `yaml:"severities"`
	Confidences    []string `yaml:"confidences"`
	CriterionTypes []string `yaml:"criterion_types"`
	Priorities     []string `yaml:"priorities"`
}

type Rule struct {
	ID   string `yaml:"id"`
	Rule string `yaml:"rule"`
}

func mustParseRules(b []byte) Rules {
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		panic(fmt.Sprintf("engine: parsing embedded rules: %v", err))
	}
	return r
}
