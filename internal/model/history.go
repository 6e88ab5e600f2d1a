package model

import "time"

type VersionAction string

const (
	VersionInitial         VersionAction = "initial"
	VersionRewriteAccepted VersionAction = "rewrite_accepted"
	VersionManualEdit      VersionAction = "manual_edit"
	VersionCriteriaAdded   VersionAction = "criteria_added"
)

// VersionEntry is one append-only snapshot of the story text. Entries exist
// for export and audit only; pipeline logic never reads them.
type VersionEntry struct {
	ID              int64            `json:"id"`
	RecordedAt      time.Time        `json:"recorded_at"`
	StoryText       string           `json:"story_text"`
	StructuredModel *StructuredStory `json:"structured_model,omitempty"`
	Action          VersionAction    `json:"action"`
	Description     string           `json:"description,omitempty"`
}
