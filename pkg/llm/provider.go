package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Request is the provider-agnostic generation payload.
type Request struct {
	Prompt      string
	History     []Message
	Temperature float64
	MaxTokens   int
	Model       string // override the provider's default model
}

// Messages returns the chat history with the prompt appended as the final
// user turn.
func (r *Request) Messages() []Message {
	msgs := make([]Message, 0, len(r.History)+1)
	msgs = append(msgs, r.History...)
	if r.Prompt != "" {
		msgs = append(msgs, Message{Role: "user", Content: r.Prompt})
	}
	return msgs
}

// Completion is a successful provider response.
type Completion struct {
	Content    string
	Model      string
	TokensUsed int
}

// Credential carries the API key used for one invocation. The zero value
// means "no key" (keyless transports like a local runtime).
type Credential struct {
	ApiKey string
}

// Provider is the contract for one vendor transport client. Errors returned
// from Invoke should be *ProviderError so the dispatcher can classify them;
// anything else is treated as retryable.
type Provider interface {
	VendorFamily() string
	Invoke(ctx context.Context, cred Credential, req *Request) (*Completion, error)
}
