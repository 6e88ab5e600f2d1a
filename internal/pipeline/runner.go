// Package pipeline orchestrates the staged review of a user story. Stages
// run strictly in order because every stage conditions on the accumulated
// output of the ones before it; a failed stage is recorded and the run
// continues, so one engine hiccup costs a stage, not the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storysmith.app/refinery/common/logger"
	"storysmith.app/refinery/internal/engine"
	"storysmith.app/refinery/internal/model"
)

// ErrEmptyStory rejects a run before any stage starts. It is the only
// per-run error; everything stage-level is folded into StageResults.
var ErrEmptyStory = errors.New("story text is empty")

type Runner struct {
	invoker engine.Invoker
}

func NewRunner(invoker engine.Invoker) *Runner {
	return &Runner{invoker: invoker}
}

// RunInput describes one pipeline run over a story.
type RunInput struct {
	StoryText string
	// Structured seeds the stages with a prior decomposition, usually the
	// heuristic parse. The structure_check stage may replace it mid-run.
	Structured *model.StructuredStory
	// Context holds retrieved document snippets, already joined and labeled.
	Context string
	// AdditionalContext is free-form background the reviewer typed in.
	AdditionalContext string
	Language          string
	// Stages restricts the run to a subset; stages not listed are recorded
	// as skipped. Empty runs everything.
	Stages []model.Stage
	// OnStageComplete fires synchronously after each stage result is
	// recorded, including skipped and failed ones.
	OnStageComplete func(model.StageResult)
}

// RunResult is the complete outcome of a run. Findings are severity-sorted;
// StageResults keep the canonical stage order with one entry per stage.
type RunResult struct {
	StageResults  []model.StageResult
	Findings      []model.Finding
	ByCategory    map[model.FindingCategory]int
	Structured    *model.StructuredStory
	OverallScore  int
	Summary       string
	Criteria      []model.AcceptanceCriterion
	Coverage      *model.CriteriaCoverage
	OpenQuestions []string
}

// Run executes the ordered stages against one story. The returned error is
// non-nil only for input problems; stage failures land in StageResults with
// status failed and the run carries on.
func (r *Runner) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	text := strings.TrimSpace(in.StoryText)
	if text == "" {
		return nil, ErrEmptyStory
	}

	var (
		structured    = in.Structured
		prior         []engine.PriorStage
		findings      []model.Finding
		stageScore    *int
		summary       string
		criteria      []model.AcceptanceCriterion
		coverage      *model.CriteriaCoverage
		openQuestions []string
	)
	results := make([]model.StageResult, 0, len(model.StageOrder))
	selected := stageSet(in.Stages)

	for _, stage := range model.StageOrder {
		if selected != nil && !selected[stage] {
			res := model.StageResult{Stage: stage, Status: model.StageSkipped}
			results = append(results, res)
			prior = append(prior, engine.NewPriorStage(stage, model.StageSkipped, nil))
			if in.OnStageComplete != nil {
				in.OnStageComplete(res)
			}
			continue
		}

		stageCtx := logger.WithLogFields(ctx, logger.LogFields{Stage: logger.Ptr(string(stage))})
		start := time.Now()
		var (
			emitted []model.Finding
			err     error
		)

		if stage == model.StageAcceptanceCriteria {
			var out *engine.CriteriaOutput
			out, err = r.invoker.Criteria(stageCtx, engine.CriteriaInput{
				StoryText:  text,
				Structured: structured,
				Previous:   prior,
				Context:    in.Context,
				Additional: in.AdditionalContext,
				Language:   in.Language,
			})
			if err == nil {
				criteria = out.Criteria
				coverage = &out.Coverage
				openQuestions = out.OpenQuestions
			}
		} else {
			var out *engine.StageOutput
			out, err = r.invoker.RunStage(stageCtx, stage, engine.StageInput{
				StoryText:  text,
				Structured: structured,
				Context:    in.Context,
				Additional: in.AdditionalContext,
				Previous:   prior,
				Language:   in.Language,
			})
			if err == nil {
				emitted = out.Findings
				if stage == model.StageStructureCheck && out.Structured != nil {
					structured = out.Structured
				}
				if stage == model.StageQualityCheck {
					stageScore = out.Score
					summary = out.Summary
				}
			}
		}

		elapsed := time.Since(start)
		res := model.StageResult{
			Stage:      stage,
			Duration:   elapsed,
			DurationMS: elapsed.Milliseconds(),
		}
		if err != nil {
			res.Status = model.StageFailed
			res.Error = err.Error()
			slog.WarnContext(stageCtx, "pipeline stage failed", "error", err)
		} else {
			res.Status = model.StageCompleted
			res.FindingIDs = findingIDs(emitted)
			findings = append(findings, emitted...)
		}

		results = append(results, res)
		prior = append(prior, engine.NewPriorStage(stage, res.Status, emitted))
		if in.OnStageComplete != nil {
			in.OnStageComplete(res)
		}
	}

	agg := Aggregate(findings)
	overall := agg.Score
	if stageScore != nil {
		// The quality stage's self-reported score wins over the derived one.
		overall = *stageScore
	}
	if summary == "" {
		summary = fallbackSummary(results, agg)
	}

	slog.InfoContext(ctx, "pipeline run finished",
		"stages", len(results),
		"findings", len(agg.Findings),
		"score", overall)

	return &RunResult{
		StageResults:  results,
		Findings:      agg.Findings,
		ByCategory:    agg.ByCategory,
		Structured:    structured,
		OverallScore:  overall,
		Summary:       summary,
		Criteria:      criteria,
		Coverage:      coverage,
		OpenQuestions: openQuestions,
	}, nil
}

// AnalyzeInput feeds the legacy one-call review mode.
type AnalyzeInput struct {
	StoryText string
	Context   string
	Language  string
}

// Analyze runs the legacy single-shot review. Unlike Run there is no
// per-stage tolerance: the one call either succeeds or the analysis fails.
func (r *Runner) Analyze(ctx context.Context, in AnalyzeInput) (*RunResult, error) {
	text := strings.TrimSpace(in.StoryText)
	if text == "" {
		return nil, ErrEmptyStory
	}

	out, err := r.invoker.Analyze(ctx, engine.AnalyzeInput{
		StoryText: text,
		Context:   in.Context,
		Language:  in.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing story: %w", err)
	}

	agg := Aggregate(out.Findings)
	overall := agg.Score
	if out.Score != nil {
		overall = *out.Score
	}

	return &RunResult{
		Findings:     agg.Findings,
		ByCategory:   agg.ByCategory,
		Structured:   out.Structured,
		OverallScore: overall,
		Summary:      out.Summary,
	}, nil
}

func stageSet(stages []model.Stage) map[model.Stage]bool {
	if len(stages) == 0 {
		return nil
	}
	set := make(map[model.Stage]bool, len(stages))
	for _, s := range stages {
		set[s] = true
	}
	return set
}

func findingIDs(findings []model.Finding) []int64 {
	if len(findings) == 0 {
		return nil
	}
	ids := make([]int64, len(findings))
	for i, f := range findings {
		ids[i] = f.ID
	}
	return ids
}

func fallbackSummary(results []model.StageResult, agg Aggregation) string {
	completed := 0
	for _, r := range results {
		if r.Status == model.StageCompleted {
			completed++
		}
	}
	return fmt.Sprintf("%d of %d stages completed with %d findings.", completed, len(results), len(agg.Findings))
}
