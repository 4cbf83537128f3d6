package dto

import "github.com/google/uuid"

// DispatchSettledMessage is published on the internal bus once per
// logically successful dispatch.
type DispatchSettledMessage struct {
	UserId        uuid.UUID `json:"user_id"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	FundingSource string    `json:"funding_source"`
	Cost          string    `json:"cost"`
	BalanceAfter  string    `json:"balance_after,omitempty"`
	TokensUsed    int       `json:"tokens_used"`
}
