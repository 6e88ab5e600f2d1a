package engine

import (
	"regexp"
	"strings"
)

// fencedBlock matches a markdown code fence with an optional language tag.
// Examples: "```json\n{...}\n```", "```\n[...]\n```"
var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// StripFences removes markdown code fences the engine sometimes wraps its
// output in, even when the fence is preceded or followed by prose. When a
// fenced block is present the payload of the first block is returned;
// otherwise the input is returned trimmed.
func StripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}
