package pipeline_test

import (
	"context"

	"storysmith.app/refinery/internal/engine"
	"storysmith.app/refinery/internal/model"
)

type mockInvoker struct {
	runStageFn func(ctx context.Context, stage model.Stage, in engine.StageInput) (*engine.StageOutput, error)
	criteriaFn func(ctx context.Context, in engine.CriteriaInput) (*engine.CriteriaOutput, error)
	rewriteFn  func(ctx context.Context, in engine.RewriteInput) (*engine.RewriteOutput, error)
	analyzeFn  func(ctx context.Context, in engine.AnalyzeInput) (*engine.AnalyzeOutput, error)

	stageCalls    []model.Stage
	stageInputs   []engine.StageInput
	criteriaCalls []engine.CriteriaInput
}

func (m *mockInvoker) RunStage(ctx context.Context, stage model.Stage, in engine.StageInput) (*engine.StageOutput, error) {
	m.stageCalls = append(m.stageCalls, stage)
	m.stageInputs = append(m.stageInputs, in)
	if m.runStageFn != nil {
		return m.runStageFn(ctx, stage, in)
	}
	return &engine.StageOutput{}, nil
}

func (m *mockInvoker) Criteria(ctx context.Context, in engine.CriteriaInput) (*engine.CriteriaOutput, error) {
	m.criteriaCalls = append(m.criteriaCalls, in)
	if m.criteriaFn != nil {
		return m.criteriaFn(ctx, in)
	}
	return &engine.CriteriaOutput{
		Criteria: []model.AcceptanceCriterion{{ID: 1, Title: "default", Status: model.ReviewStatusPending}},
	}, nil
}

func (m *mockInvoker) Rewrite(ctx context.Context, in engine.RewriteInput) (*engine.RewriteOutput, error) {
	if m.rewriteFn != nil {
		return m.rewriteFn(ctx, in)
	}
	return &engine.RewriteOutput{}, nil
}

func (m *mockInvoker) Analyze(ctx context.Context, in engine.AnalyzeInput) (*engine.AnalyzeOutput, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, in)
	}
	return &engine.AnalyzeOutput{}, nil
}
