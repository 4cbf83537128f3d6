package gemini

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

const vendor = "gemini"

type GeminiProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ llm.Provider = &GeminiProvider{}

func NewGeminiProvider(baseURL, modelName string) *GeminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (p *GeminiProvider) VendorFamily() string {
	return vendor
}

// --- Request/Response structs (internal to this package) ---

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig *struct {
		Temperature     float64 `json:"temperature,omitempty"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (p *GeminiProvider) Invoke(ctx context.Context, cred llm.Credential, req *llm.Request) (*llm.Completion, error) {
	model := p.ModelName
	if req.Model != "" {
		model = req.Model
	}

	// Gemini uses "model" instead of "assistant" and has no system role in
	// the contents array.
	var contents []geminiContent
	for _, msg := range req.Messages() {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		if role == "system" {
			role = "user"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	payload := generateRequest{Contents: contents}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		payload.GenerationConfig = &struct {
			Temperature     float64 `json:"temperature,omitempty"`
			MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
		}{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &llm.ProviderError{Vendor: vendor, Outcome: llm.OutcomeNonRetryable, Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.BaseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, &llm.ProviderError{Vendor: vendor, Outcome: llm.OutcomeNonRetryable, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", cred.ApiKey)

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

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, llm.NewTransportError(vendor, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, llm.NewTransportError(vendor, fmt.Errorf("empty candidates in response"))
	}

	return &llm.Completion{
		Content:    parsed.Candidates[0].Content.Parts[0].Text,
		Model:      model,
		TokensUsed: parsed.UsageMetadata.TotalTokenCount,
	}, nil
}
