package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Ledger DTOs ---

type BalanceResponse struct {
	UserId  uuid.UUID `json:"user_id"`
	Balance string    `json:"balance"`
}

type TransactionResponse struct {
	Id            uuid.UUID              `json:"id"`
	Type          string                 `json:"type"`
	Amount        string                 `json:"amount"`
	BalanceBefore string                 `json:"balance_before"`
	BalanceAfter  string                 `json:"balance_after"`
	Description   string                 `json:"description,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	AiProvider    *string                `json:"ai_provider,omitempty"`
	AiModel       *string                `json:"ai_model,omitempty"`
	TokensUsed    *int                   `json:"tokens_used,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

type RefundResponse struct {
	RefundId     uuid.UUID `json:"refund_id"`
	OriginalId   uuid.UUID `json:"original_id"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
}

type AdjustmentRequest struct {
	UserId      uuid.UUID `json:"user_id" validate:"required"`
	Amount      string    `json:"amount" validate:"required"`
	Description string    `json:"description" validate:"required,min=3"`
}
