package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"storysmith.app/refinery/common/id"
	"storysmith.app/refinery/common/logger"
	"storysmith.app/refinery/internal/engine"
	"storysmith.app/refinery/internal/export"
	"storysmith.app/refinery/internal/model"
	"storysmith.app/refinery/internal/parse"
	"storysmith.app/refinery/internal/pipeline"
	"storysmith.app/refinery/internal/retriever"
	"storysmith.app/refinery/internal/session"
	"storysmith.app/refinery/internal/store"
)

var (
	// ErrEmptyStory rejects session creation and story replacement without text.
	ErrEmptyStory = errors.New("story text is empty")
	// ErrInvalidDecision reports a decision kind the target type does not
	// support, such as editing a finding.
	ErrInvalidDecision = errors.New("decision not valid for target type")
)

// RunOptions tune one pipeline run or generator call.
type RunOptions struct {
	// AdditionalContext is free-form background the reviewer typed in.
	AdditionalContext string
	// Language overrides the configured output language for this call.
	Language string
	// Stages restricts a pipeline run to a subset; empty runs everything.
	Stages []model.Stage
}

// DecisionInput is one human accept/reject/edit against a finding, rewrite
// candidate or criterion.
type DecisionInput struct {
	TargetType model.DecisionTarget
	TargetID   int64
	Decision   model.DecisionKind
	// EditedText applies to rewrite targets.
	EditedText string
	// Edits applies to criterion targets, keyed by field name.
	Edits map[string]string
}

// CriteriaResult carries generated criteria plus the engine's coverage
// self-assessment and open questions, passed through for display.
type CriteriaResult struct {
	Criteria      []model.AcceptanceCriterion
	Coverage      model.CriteriaCoverage
	OpenQuestions []string
}

// RefinementService drives a story through parse, pipeline, curation,
// generation and export. All session mutation is serialized per session.
type RefinementService interface {
	Create(ctx context.Context, originalText string) (*model.Session, parse.Result, error)
	Get(ctx context.Context, sessionID int64) (*model.Session, error)
	List(ctx context.Context) ([]model.Session, error)
	Delete(ctx context.Context, sessionID int64) error
	ReplaceStory(ctx context.Context, sessionID int64, text string) (*model.Session, parse.Result, error)
	EditCurrentText(ctx context.Context, sessionID int64, text string) (*model.Session, error)
	RunPipeline(ctx context.Context, sessionID int64, opts RunOptions) (*model.Session, error)
	Analyze(ctx context.Context, sessionID int64, opts RunOptions) (*model.Session, error)
	GenerateRewrites(ctx context.Context, sessionID int64, opts RunOptions) ([]model.RewriteCandidate, error)
	GenerateCriteria(ctx context.Context, sessionID int64, opts RunOptions) (*CriteriaResult, error)
	Decide(ctx context.Context, sessionID int64, input DecisionInput) (*model.Session, bool, error)
	AnnotateFinding(ctx context.Context, sessionID, findingID int64, note string) (bool, error)
	Export(ctx context.Context, sessionID int64, format export.Format) (string, error)
}

type refinementService struct {
	sessions     store.SessionStore
	runner       PipelineRunner
	invoker      engine.Invoker
	retriever    retriever.Retriever
	snippetLimit int
	locks        *keyedMutex
}

func NewRefinementService(sessions store.SessionStore, runner PipelineRunner, invoker engine.Invoker, search retriever.Retriever, snippetLimit int) RefinementService {
	return &refinementService{
		sessions:     sessions,
		runner:       runner,
		invoker:      invoker,
		retriever:    search,
		snippetLimit: snippetLimit,
		locks:        newKeyedMutex(),
	}
}

func (s *refinementService) Create(ctx context.Context, originalText string) (*model.Session, parse.Result, error) {
	text := strings.TrimSpace(originalText)
	if text == "" {
		return nil, parse.Result{}, ErrEmptyStory
	}

	sess := session.New(id.New(), text)
	parsed := parse.Structure(text)
	if parsed.Structured != nil {
		sess.SetStructured(parsed.Structured)
	}

	if err := s.sessions.Save(ctx, sess.Snapshot()); err != nil {
		return nil, parse.Result{}, fmt.Errorf("persisting session: %w", err)
	}

	snap := sess.Snapshot()
	slog.InfoContext(ctx, "session created",
		"session_id", snap.ID,
		"structure_detected", parsed.Structured != nil,
		"completeness", parsed.Completeness)
	return &snap, parsed, nil
}

func (s *refinementService) Get(ctx context.Context, sessionID int64) (*model.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *refinementService) List(ctx context.Context) ([]model.Session, error) {
	return s.sessions.List(ctx)
}

func (s *refinementService) Delete(ctx context.Context, sessionID int64) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.locks.forget(sessionID)
	slog.InfoContext(ctx, "session deleted", "session_id", sessionID)
	return nil
}

func (s *refinementService) ReplaceStory(ctx context.Context, sessionID int64, text string) (*model.Session, parse.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, parse.Result{}, ErrEmptyStory
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, parse.Result{}, err
	}

	sess.SetOriginal(text)
	parsed := parse.Structure(text)
	if parsed.Structured != nil {
		sess.SetStructured(parsed.Structured)
	}

	if err := s.sessions.Save(ctx, sess.Snapshot()); err != nil {
		return nil, parse.Result{}, fmt.Errorf("persisting session: %w", err)
	}

	snap := sess.Snapshot()
	slog.InfoContext(ctx, "story replaced", "session_id", sessionID, "structure_detected", parsed.Structured != nil)
	return &snap, parsed, nil
}

func (s *refinementService) EditCurrentText(ctx context.Context, sessionID int64, text string) (*model.Session, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyStory
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.EditCurrentText(text)
	if err := s.sessions.Save(ctx, sess.Snapshot()); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	snap := sess.Snapshot()
	return &snap, nil
}

// RunPipeline executes the full staged review over the session's current
// text and adopts the result. Per-stage failures land in the session's
// stage results; only input and persistence problems surface as errors.
func (s *refinementService) RunPipeline(ctx context.Context, sessionID int64, opts RunOptions) (*model.Session, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(sessionID),
		Component: "refinery.service.refinement",
	})

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	story := sess.Story()
	res, err := s.runner.Run(ctx, pipeline.RunInput{
		StoryText:         story.CurrentText,
		Structured:        story.StructuredModel,
		Context:           s.retrieveContext(ctx, story.CurrentText),
		AdditionalContext: opts.AdditionalContext,
		Language:          opts.Language,
		Stages:            opts.Stages,
		OnStageComplete: func(sr model.StageResult) {
			slog.InfoContext(ctx, "pipeline stage settled",
				"stage", sr.Stage,
				"status", sr.Status,
				"findings", len(sr.FindingIDs),
				"duration_ms", sr.DurationMS)
		},
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyStory) {
			return nil, ErrEmptyStory
		}
		return nil, fmt.Errorf("running pipeline: %w", err)
	}

	sess.ApplyRunResult(res)
	if err := s.sessions.Save(ctx, sess.Snapshot()); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	snap := sess.Snapshot()
	return &snap, nil
}

// Analyze runs the legacy single-shot review and adopts its result.
func (s *refinementService) Analyze(ctx context.Context, sessionID int64, opts RunOptions) (*model.Session, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(sessionID),
		Component: "refinery.service.refinement",
	})

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	story := sess.Story()
	res, err := s.runner.Analyze(ctx, pipeline.AnalyzeInput{
		StoryText: story.CurrentText,
		Context:   s.retrieveContext(ctx, story.CurrentText),
		Language:  opts.Language,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyStory) {
			return nil, ErrEmptyStory
		}
		return nil, fmt.Errorf("analyzing story: %w", err)
	}

	sess.ApplyRunResult(res)
	if err := s.sessions.Save(ctx, sess.Snapshot()); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	snap := sess.Snapshot()
	return &snap, nil
}

// GenerateRewrites proposes replacement texts conditioned on the findings
// the human marked relevant. With nothing marked, the engine is asked for a
// general quality improvement.
func (s *refinementService) GenerateRewrites(ctx context.Context, sessionID int64, opts RunOptions) ([]model.RewriteCandidate, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(sessionID),
		Component: "refinery.service.refinement",
	})

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	story := sess.Story()
	relevant := sess.RelevantFindings()
	out, err := s.invoker.Rewrite(ctx, engine.RewriteInput{
		StoryText:        story.CurrentText,
		Structured:       story.StructuredModel,
		RelevantFindings: relevant,
		Context:          s.retrieveContext(ctx, story.CurrentText),
		Language:         opts.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("generating rewrites: %w", err)
	}

	sess.AddCandidates(out.Candidates)
	if err := s.sessions.Save(ctx, sess.Snapshot()); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	slog.InfoContext(ctx, "rewrite candidates generated",
		"candidates", len(out.Candidates),
		"relevant_findings", len(relevant))
	return out.Candidates, nil
}

// GenerateCriteria produces acceptance criteria outside a full pipeline
// run, conditioned on the accumulated stage results and curated findings.
func (s *refinementService) GenerateCriteria(ctx context.Context, sessionID int64, opts RunOptions) (*CriteriaResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(sessionID),
		Component: "refinery.service.refinement",
	})

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	snap := sess.Snapshot()
	out, err := s.invoker.Criteria(ctx, engine.CriteriaInput{
		StoryText:        snap.Story.CurrentText,
		Structured:       snap.Story.StructuredModel,
		RelevantFindings: sess.RelevantFindings(),
		Previous:         priorStages(snap),
		Context:          s.retrieveContext(ctx, snap.Story.CurrentText),
		Additional:       opts.AdditionalContext,
		Language:         opts.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("generating criteria: %w", err)
	}

	sess.AddCriteria(out.Criteria, &out.Coverage, out.OpenQuestions)
	if err := s.sessions.Save(ctx, sess.Snapshot()); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	slog.InfoContext(ctx, "criteria generated", "criteria", len(out.Criteria))
	return &CriteriaResult{
		Criteria:      out.Criteria,
		Coverage:      out.Coverage,
		OpenQuestions: out.OpenQuestions,
	}, nil
}

// Decide applies one human decision. Unknown target ids are reported as not
// applied, without an error and without an audit record, so a stale UI can
// never crash a session.
func (s *refinementService) Decide(ctx context.Context, sessionID int64, input DecisionInput) (*model.Session, bool, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	applied, err := dispatchDecision(sess, input)
	if err != nil {
		return nil, false, err
	}

	if applied {
		if err := s.sessions.Save(ctx, sess.Snapshot()); err != nil {
			return nil, false, fmt.Errorf("persisting session: %w", err)
		}
	} else {
		slog.WarnContext(ctx, "decision targeted unknown id",
			"session_id", sessionID,
			"target_type", input.TargetType,
			"target_id", input.TargetID)
	}

	snap := sess.Snapshot()
	return &snap, applied, nil
}

func dispatchDecision(sess *session.Session, input DecisionInput) (bool, error) {
	switch input.TargetType {
	case model.TargetFinding:
		switch input.Decision {
		case model.DecisionAccepted:
			return sess.AcceptFinding(input.TargetID), nil
		case model.DecisionRejected:
			return sess.RejectFinding(input.TargetID), nil
		default:
			// Findings are annotated, never edited.
			return false, ErrInvalidDecision
		}
	case model.TargetRewrite:
		switch input.Decision {
		case model.DecisionAccepted, model.DecisionEdited:
			return sess.AcceptRewrite(input.TargetID, input.EditedText), nil
		case model.DecisionRejected:
			return sess.RejectRewrite(input.TargetID), nil
		default:
			return false, ErrInvalidDecision
		}
	case model.TargetCriterion:
		switch input.Decision {
		case model.DecisionAccepted, model.DecisionEdited:
			return sess.AcceptCriterion(input.TargetID, input.Edits), nil
		case model.DecisionRejected:
			return sess.RejectCriterion(input.TargetID), nil
		default:
			return false, ErrInvalidDecision
		}
	default:
		return false, ErrInvalidDecision
	}
}

// AnnotateFinding sets the reviewer note on a finding without recording a
// decision.
func (s *refinementService) AnnotateFinding(ctx context.Context, sessionID, findingID int64, note string) (bool, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return false, err
	}

	applied := sess.AnnotateFinding(findingID, note)
	if applied {
		if err := s.sessions.Save(ctx, sess.Snapshot()); err != nil {
			return false, fmt.Errorf("persisting session: %w", err)
		}
	}
	return applied, nil
}

// Export projects the session into the requested document format.
func (s *refinementService) Export(ctx context.Context, sessionID int64, format export.Format) (string, error) {
	snap, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return export.Project(*snap, format)
}

func (s *refinementService) load(ctx context.Context, sessionID int64) (*session.Session, error) {
	snap, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Restore(*snap), nil
}

// retrieveContext fetches reference snippets for the story. Retrieval is
// best-effort: a search failure degrades the run to no reference documents
// instead of aborting it.
func (s *refinementService) retrieveContext(ctx context.Context, query string) string {
	snippets, err := s.retriever.Search(ctx, query, s.snippetLimit)
	if err != nil {
		slog.WarnContext(ctx, "snippet retrieval failed, continuing without context", "error", err)
		return ""
	}
	return retriever.JoinSnippets(snippets)
}

// priorStages reconstructs the accumulated stage digest from a stored
// session so criteria generated later still see the pipeline history.
func priorStages(snap model.Session) []engine.PriorStage {
	if len(snap.StageResults) == 0 {
		return nil
	}

	byStage := make(map[model.Stage][]model.Finding, len(snap.StageResults))
	for _, f := range snap.Findings {
		byStage[f.Stage] = append(byStage[f.Stage], f)
	}

	prior := make([]engine.PriorStage, 0, len(snap.StageResults))
	for _, sr := range snap.StageResults {
		if sr.Stage == model.StageAcceptanceCriteria {
			continue
		}
		prior = append(prior, engine.NewPriorStage(sr.Stage, sr.Status, byStage[sr.Stage]))
	}
	return prior
}
