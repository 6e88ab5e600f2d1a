// Package service orchestrates the review workflow: it owns session
// lifecycle and persistence, feeds the pipeline and the generators, and
// applies human decisions. Handlers and the CLI talk to services only.
package service

import (
	"context"

	"storysmith.app/refinery/internal/engine"
	"storysmith.app/refinery/internal/pipeline"
	"storysmith.app/refinery/internal/queue"
	"storysmith.app/refinery/internal/retriever"
	"storysmith.app/refinery/internal/store"
)

// PipelineRunner is the slice of pipeline.Runner the service consumes.
type PipelineRunner interface {
	Run(ctx context.Context, in pipeline.RunInput) (*pipeline.RunResult, error)
	Analyze(ctx context.Context, in pipeline.AnalyzeInput) (*pipeline.RunResult, error)
}

type ServicesConfig struct {
	Stores  *store.Stores
	Runner  PipelineRunner
	Invoker engine.Invoker
	// Retriever may be nil; refinement then runs without reference documents.
	Retriever retriever.Retriever
	// Producer may be nil; document intake is then reported as disabled.
	Producer     queue.Producer
	SnippetLimit int
}

type Services struct {
	refinements RefinementService
	documents   DocumentService
}

func NewServices(cfg ServicesConfig) *Services {
	search := cfg.Retriever
	if search == nil {
		search = retriever.NewNoop()
	}
	return &Services{
		refinements: NewRefinementService(cfg.Stores.Sessions(), cfg.Runner, cfg.Invoker, search, cfg.SnippetLimit),
		documents:   NewDocumentService(cfg.Producer),
	}
}

func (s *Services) Refinements() RefinementService {
	return s.refinements
}

func (s *Services) Documents() DocumentService {
	return s.documents
}
