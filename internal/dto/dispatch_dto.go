package dto

import "ai-dispatch-be/pkg/llm"

// --- Dispatch DTOs ---

type DispatchRequest struct {
	ProviderId string          `json:"provider_id" validate:"required"`
	Prompt     string          `json:"prompt" validate:"required,min=1"`
	History    []llm.Message   `json:"history,omitempty"`
	Options    DispatchOptions `json:"options"`
}

type DispatchOptions struct {
	Temperature float64 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"max_tokens" validate:"gte=0"`
}

type DispatchResponse struct {
	Success       bool   `json:"success"`
	ProviderUsed  string `json:"provider_used"`
	ModelUsed     string `json:"model_used,omitempty"`
	TokensUsed    int    `json:"tokens_used,omitempty"`
	Cost          string `json:"cost,omitempty"`
	FundingSource string `json:"funding_source"`
	Result        string `json:"result,omitempty"`
	ErrorKind     string `json:"error_kind,omitempty"`
}

type ProviderResponse struct {
	Id           string   `json:"id"`
	ModelName    string   `json:"model_name"`
	CreditCost   string   `json:"credit_cost"`
	VendorFamily string   `json:"vendor_family"`
	Tier         string   `json:"tier"`
	Aliases      []string `json:"aliases,omitempty"`
}
