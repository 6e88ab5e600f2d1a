package engine_test

import (
	"context"

	"storysmith.app/refinery/common/llm"
)

type mockClient struct {
	chatFn func(ctx context.Context, req llm.Request) (*llm.Response, error)
	calls  []llm.Request
}

func (m *mockClient) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.calls = append(m.calls, req)
	if m.chatFn != nil {
		return m.chatFn(ctx, req)
	}
	return &llm.Response{Content: "{}"}, nil
}

func (m *mockClient) Model() string { return "mock-model" }

// reply returns valid content on the given attempt and junk before it.
func reply(validOn int, content string) func(ctx context.Context, req llm.Request) (*llm.Response, error) {
	attempt := 0
	return func(_ context.Context, _ llm.Request) (*llm.Response, error) {
		attempt++
		if attempt >= validOn {
			return &llm.Response{Content: content}, nil
		}
		return &llm.Response{Content: "I could not produce JSON for this story."}, nil
	}
}
