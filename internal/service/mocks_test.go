package service_test

import (
	"context"

	"storysmith.app/refinery/internal/engine"
	"storysmith.app/refinery/internal/model"
	"storysmith.app/refinery/internal/pipeline"
	"storysmith.app/refinery/internal/queue"
	"storysmith.app/refinery/internal/retriever"
	"storysmith.app/refinery/internal/store"
)

type mockSessionStore struct {
	saveFn    func(ctx context.Context, snap model.Session) error
	getFn     func(ctx context.Context, id int64) (*model.Session, error)
	listFn    func(ctx context.Context) ([]model.Session, error)
	deleteFn  func(ctx context.Context, id int64) error
	saveCalls int
}

func (m *mockSessionStore) Save(ctx context.Context, snap model.Session) error {
	m.saveCalls++
	if m.saveFn != nil {
		return m.saveFn(ctx, snap)
	}
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, id int64) (*model.Session, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockSessionStore) List(ctx context.Context) ([]model.Session, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Session{}, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockRunner struct {
	runFn     func(ctx context.Context, in pipeline.RunInput) (*pipeline.RunResult, error)
	analyzeFn func(ctx context.Context, in pipeline.AnalyzeInput) (*pipeline.RunResult, error)
}

func (m *mockRunner) Run(ctx context.Context, in pipeline.RunInput) (*pipeline.RunResult, error) {
	if m.runFn != nil {
		return m.runFn(ctx, in)
	}
	return &pipeline.RunResult{}, nil
}

func (m *mockRunner) Analyze(ctx context.Context, in pipeline.AnalyzeInput) (*pipeline.RunResult, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, in)
	}
	return &pipeline.RunResult{}, nil
}

type mockInvoker struct {
	runStageFn func(ctx context.Context, stage model.Stage, in engine.StageInput) (*engine.StageOutput, error)
	rewriteFn  func(ctx context.Context, in engine.RewriteInput) (*engine.RewriteOutput, error)
	criteriaFn func(ctx context.Context, in engine.CriteriaInput) (*engine.CriteriaOutput, error)
	analyzeFn  func(ctx context.Context, in engine.AnalyzeInput) (*engine.AnalyzeOutput, error)
}

func (m *mockInvoker) RunStage(ctx context.Context, stage model.Stage, in engine.StageInput) (*engine.StageOutput, error) {
	if m.runStageFn != nil {
		return m.runStageFn(ctx, stage, in)
	}
	return &engine.StageOutput{}, nil
}

func (m *mockInvoker) Rewrite(ctx context.Context, in engine.RewriteInput) (*engine.RewriteOutput, error) {
	if m.rewriteFn != nil {
		return m.rewriteFn(ctx, in)
	}
	return &engine.RewriteOutput{}, nil
}

func (m *mockInvoker) Criteria(ctx context.Context, in engine.CriteriaInput) (*engine.CriteriaOutput, error) {
	if m.criteriaFn != nil {
		return m.criteriaFn(ctx, in)
	}
	return &engine.CriteriaOutput{}, nil
}

func (m *mockInvoker) Analyze(ctx context.Context, in engine.AnalyzeInput) (*engine.AnalyzeOutput, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, in)
	}
	return &engine.AnalyzeOutput{}, nil
}

type mockRetriever struct {
	searchFn func(ctx context.Context, query string, limit int) ([]retriever.Snippet, error)
}

func (m *mockRetriever) Search(ctx context.Context, query string, limit int) ([]retriever.Snippet, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

type mockProducer struct {
	enqueueFn    func(ctx context.Context, msg queue.DocumentMessage) error
	enqueueCalls int
}

func (m *mockProducer) EnqueueDocument(ctx context.Context, msg queue.DocumentMessage) error {
	m.enqueueCalls++
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, msg)
	}
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
