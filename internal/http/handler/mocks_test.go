package handler_test

import (
	"context"

	"storysmith.app/refinery/internal/export"
	"storysmith.app/refinery/internal/model"
	"storysmith.app/refinery/internal/parse"
	"storysmith.app/refinery/internal/service"
)

type mockRefinementService struct {
	createFn           func(ctx context.Context, text string) (*model.Session, parse.Result, error)
	getFn              func(ctx context.Context, id int64) (*model.Session, error)
	listFn             func(ctx context.Context) ([]model.Session, error)
	deleteFn           func(ctx context.Context, id int64) error
	replaceStoryFn     func(ctx context.Context, id int64, text string) (*model.Session, parse.Result, error)
	editCurrentTextFn  func(ctx context.Context, id int64, text string) (*model.Session, error)
	runPipelineFn      func(ctx context.Context, id int64, opts service.RunOptions) (*model.Session, error)
	analyzeFn          func(ctx context.Context, id int64, opts service.RunOptions) (*model.Session, error)
	generateRewritesFn func(ctx context.Context, id int64, opts service.RunOptions) ([]model.RewriteCandidate, error)
	generateCriteriaFn func(ctx context.Context, id int64, opts service.RunOptions) (*service.CriteriaResult, error)
	decideFn           func(ctx context.Context, id int64, input service.DecisionInput) (*model.Session, bool, error)
	annotateFindingFn  func(ctx context.Context, sessionID, findingID int64, note string) (bool, error)
	exportFn           func(ctx context.Context, id int64, format export.Format) (string, error)
}

func (m *mockRefinementService) Create(ctx context.Context, text string) (*model.Session, parse.Result, error) {
	if m.createFn != nil {
		return m.createFn(ctx, text)
	}
	return &model.Session{}, parse.Result{}, nil
}

func (m *mockRefinementService) Get(ctx context.Context, id int64) (*model.Session, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Session{ID: id}, nil
}

func (m *mockRefinementService) List(ctx context.Context) ([]model.Session, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Session{}, nil
}

func (m *mockRefinementService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockRefinementService) ReplaceStory(ctx context.Context, id int64, text string) (*model.Session, parse.Result, error) {
	if m.replaceStoryFn != nil {
		return m.replaceStoryFn(ctx, id, text)
	}
	return &model.Session{ID: id}, parse.Result{}, nil
}

func (m *mockRefinementService) EditCurrentText(ctx context.Context, id int64, text string) (*model.Session, error) {
	if m.editCurrentTextFn != nil {
		return m.editCurrentTextFn(ctx, id, text)
	}
	return &model.Session{ID: id}, nil
}

func (m *mockRefinementService) RunPipeline(ctx context.Context, id int64, opts service.RunOptions) (*model.Session, error) {
	if m.runPipelineFn != nil {
		return m.runPipelineFn(ctx, id, opts)
	}
	return &model.Session{ID: id}, nil
}

func (m *mockRefinementService) Analyze(ctx context.Context, id int64, opts service.RunOptions) (*model.Session, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, id, opts)
	}
	return &model.Session{ID: id}, nil
}

func (m *mockRefinementService) GenerateRewrites(ctx context.Context, id int64, opts service.RunOptions) ([]model.RewriteCandidate, error) {
	if m.generateRewritesFn != nil {
		return m.generateRewritesFn(ctx, id, opts)
	}
	return nil, nil
}

func (m *mockRefinementService) GenerateCriteria(ctx context.Context, id int64, opts service.RunOptions) (*service.CriteriaResult, error) {
	if m.generateCriteriaFn != nil {
		return m.generateCriteriaFn(ctx, id, opts)
	}
	return &service.CriteriaResult{}, nil
}

func (m *mockRefinementService) Decide(ctx context.Context, id int64, input service.DecisionInput) (*model.Session, bool, error) {
	if m.decideFn != nil {
		return m.decideFn(ctx, id, input)
	}
	return &model.Session{ID: id}, true, nil
}

func (m *mockRefinementService) AnnotateFinding(ctx context.Context, sessionID, findingID int64, note string) (bool, error) {
	if m.annotateFindingFn != nil {
		return m.annotateFindingFn(ctx, sessionID, findingID, note)
	}
	return true, nil
}

func (m *mockRefinementService) Export(ctx context.Context, id int64, format export.Format) (string, error) {
	if m.exportFn != nil {
		return m.exportFn(ctx, id, format)
	}
	return "", nil
}

type mockDocumentService struct {
	ingestFn func(ctx context.Context, name, text string) error
}

func (m *mockDocumentService) Ingest(ctx context.Context, name, text string) error {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, name, text)
	}
	return nil
}
