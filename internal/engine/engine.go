// Package engine calls the external reasoning engine for story analysis.
// Every operation is a single request/response pair: build a version-pinned
// instruction, send it with the story content, strip fences, validate the
// structural shape of the reply, and map it onto the domain model. Operations
// hold no state; the pipeline and session layers own everything else.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"storysmith.app/refinery/common/llm"
	"storysmith.app/refinery/common/logger"
	"storysmith.app/refinery/internal/model"
)

// Invoker is the engine surface the pipeline and services consume.
type Invoker interface {
	// RunStage executes one analysis stage. It rejects the
	// acceptance_criteria stage, which is served by Criteria.
	RunStage(ctx context.Context, stage model.Stage, in StageInput) (*StageOutput, error)
	// Rewrite proposes replacement texts conditioned on curated findings.
	Rewrite(ctx context.Context, in RewriteInput) (*RewriteOutput, error)
	// Criteria generates Given/When/Then acceptance criteria.
	Criteria(ctx context.Context, in CriteriaInput) (*CriteriaOutput, error)
	// Analyze is the legacy single-shot analysis of a story.
	Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeOutput, error)
}

// Config tunes engine behavior. Zero values fall back to defaults.
type Config struct {
	// StageTimeout bounds one engine call. A timeout counts as a transport
	// failure and triggers the same single retry as a malformed response.
	StageTimeout time.Duration
	Temperature  float64
	// MaxTokens caps one completion; zero lets the client pick its default.
	MaxTokens int
	// Language is the default output language when a call does not carry one.
	Language string
}

const (
	defaultStageTimeout = 45 * time.Second
	defaultTemperature  = 0.2
	defaultLanguage     = "de"
)

type Engine struct {
	llm         llm.Client
	rules       Rules
	timeout     time.Duration
	temperature float64
	maxTokens   int
	language    string
}

var _ Invoker = (*Engine)(nil)

func New(client llm.Client, cfg Config) *Engine {
	e := &Engine{
		llm:         client,
		rules:       defaultRules,
		timeout:     cfg.StageTimeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		language:    cfg.Language,
	}
	if e.timeout <= 0 {
		e.timeout = defaultStageTimeout
	}
	if e.temperature <= 0 {
		e.temperature = defaultTemperature
	}
	if e.language == "" {
		e.language = defaultLanguage
	}
	return e
}

// StageInvocationError reports an operation that failed both attempts. It
// keeps the raw response of the last attempt so malformed output can be
// diagnosed without re-running the stage.
type StageInvocationError struct {
	Stage       string
	Attempts    int
	RawResponse string
	Err         error
}

func (e *StageInvocationError) Error() string {
	return fmt.Sprintf("stage %s failed after %d attempts: %v", e.Stage, e.Attempts, e.Err)
}

func (e *StageInvocationError) Unwrap() error {
	return e.Err
}

// operation identifies one engine call for logging and error reporting.
type operation struct {
	name    string
	version string
}

// retrySuffix is appended to the instruction on the second attempt. Both a
// transport failure and a shape-invalid response trigger the same retry.
const retrySuffix = "Respond with valid structured output only."

// complete runs the two-attempt loop shared by every operation. decode is
// the per-operation structural validator; it must fully parse raw into the
// operation's response value or return an error describing the shape problem.
func (e *Engine) complete(ctx context.Context, op operation, system, user, schemaName string, schema any, decode func(raw string) error) error {
	sc := logger.StartSpan(ctx, "engine."+op.name, trace.WithSpanKind(trace.SpanKindClient))
	defer sc.End()
	ctx = logger.WithLogFields(sc.Context(), logger.LogFields{Operation: logger.Ptr(op.name)})

	start := time.Now()

	raw, err := e.attempt(ctx, user, system, schemaName, schema, decode)
	if err == nil {
		e.logCompleted(ctx, op, 1, start)
		return nil
	}

	slog.WarnContext(ctx, "engine response rejected, retrying once",
		"prompt_version", op.version,
		"error", err,
		"raw", logger.Truncate(raw, 200))

	retryRaw, retryErr := e.attempt(ctx, user+"\n\n"+retrySuffix, system, schemaName, schema, decode)
	if retryErr == nil {
		e.logCompleted(ctx, op, 2, start)
		return nil
	}
	if retryRaw == "" {
		// Transport failure on retry; keep whatever the first attempt
		// produced for diagnosis.
		retryRaw = raw
	}

	sc.RecordError(retryErr)
	return &StageInvocationError{
		Stage:       op.name,
		Attempts:    2,
		RawResponse: retryRaw,
		Err:         retryErr,
	}
}

func (e *Engine) attempt(ctx context.Context, user, system, schemaName string, schema any, decode func(raw string) error) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.llm.Chat(ctx, llm.Request{
		System:      system,
		User:        user,
		SchemaName:  schemaName,
		Schema:      schema,
		MaxTokens:   e.maxTokens,
		Temperature: llm.Temp(e.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("engine call: %w", err)
	}

	raw := StripFences(resp.Content)
	if err := decode(raw); err != nil {
		return raw, err
	}
	return raw, nil
}

func (e *Engine) logCompleted(ctx context.Context, op operation, attempts int, start time.Time) {
	slog.InfoContext(ctx, "engine operation completed",
		"prompt_version", op.version,
		"attempts", attempts,
		"latency_ms", time.Since(start).Milliseconds())
}

// outputLanguage resolves the language findings and texts should be written
// in, preferring the per-call value over the engine default.
func (e *Engine) outputLanguage(lang string) string {
	if lang != "" {
		return lang
	}
	return e.language
}
