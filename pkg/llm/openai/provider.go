package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-dispatch-be/pkg/llm"
)

const vendor = "openai"

// OpenAIProvider speaks the chat-completions wire format. Any
// OpenAI-compatible gateway works by overriding BaseURL.
type OpenAIProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ llm.Provider = &OpenAIProvider{}

func NewOpenAIProvider(baseURL, modelName string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (p *OpenAIProvider) VendorFamily() string {
	return vendor
}

// --- Request/Response structs (internal to this package) ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *OpenAIProvider) Invoke(ctx context.Context, cred llm.Credential, req *llm.Request) (*llm.Completion, error) {
	model := p.ModelName
	if req.Model != "" {
		model = req.Model
	}

	payload := chatRequest{
		Model:       model,
		Messages:    req.Messages(),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &llm.ProviderError{Vendor: vendor, Outcome: llm.OutcomeNonRetryable, Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := p.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, &llm.ProviderError{Vendor: vendor, Outcome: llm.OutcomeNonRetryable, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cred.ApiKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, llm.NewTransportError(vendor, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.NewTransportError(vendor, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, llm.NewStatusError(vendor, resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, llm.NewTransportError(vendor, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, llm.NewTransportError(vendor, fmt.Errorf("empty choices in response"))
	}

	return &llm.Completion{
		Content:    parsed.Choices[0].Message.Content,
		Model:      parsed.Model,
		TokensUsed: parsed.Usage.TotalTokens,
	}, nil
}
