package mock

import (
	"context"
	"fmt"
	"strings"

	"ai-dispatch-be/pkg/llm"
)

const vendor = "mock"

// MockProvider is the deterministic last-resort fallback. It never fails
// and costs nothing, so a fallback chain ending here always terminates.
type MockProvider struct{}

var _ llm.Provider = &MockProvider{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) VendorFamily() string {
	return vendor
}

func (p *MockProvider) Invoke(_ context.Context, _ llm.Credential, req *llm.Request) (*llm.Completion, error) {
	prompt := req.Prompt
	if prompt == "" {
		msgs := req.Messages()
		if len(msgs) > 0 {
			prompt = msgs[len(msgs)-1].Content
		}
	}

	content := fmt.Sprintf("[mock-echo] %s", prompt)
	return &llm.Completion{
		Content:    content,
		Model:      "mock-echo",
		TokensUsed: len(strings.Fields(prompt)) + 2,
	}, nil
}
