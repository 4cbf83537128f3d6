package mapper

import (
	"encoding/json"

	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/model"

	"gorm.io/datatypes"
)

type CreditTransactionMapper struct{}

func NewCreditTransactionMapper() *CreditTransactionMapper {
	return &CreditTransactionMapper{}
}

func (m *CreditTransactionMapper) ToEntity(t *model.CreditTransaction) *entity.CreditTransaction {
	if t == nil {
		return nil
	}
	var metadata map[string]interface{}
	if len(t.Metadata) > 0 {
		// Invalid JSON in the column is treated as absent metadata; the
		// ledger never interprets it beyond well-known keys anyway.
		_ = json.Unmarshal(t.Metadata, &metadata)
	}
	return &entity.CreditTransaction{
		Id:               t.Id,
		UserId:           t.UserId,
		Type:             entity.TransactionType(t.Type),
		Amount:           t.Amount,
		BalanceBefore:    t.BalanceBefore,
		BalanceAfter:     t.BalanceAfter,
		Description:      t.Description,
		Metadata:         metadata,
		AiProvider:       t.AiProvider,
		AiModel:          t.AiModel,
		TokensUsed:       t.TokensUsed,
		PaymentReference: t.PaymentReference,
		PaymentMethod:    t.PaymentMethod,
		PaymentStatus:    t.PaymentStatus,
		CreatedAt:        t.CreatedAt,
	}
}

func (m *CreditTransactionMapper) ToModel(t *entity.CreditTransaction) *model.CreditTransaction {
	if t == nil {
		return nil
	}
	var metadata datatypes.JSON
	if t.Metadata != nil {
		if raw, err := json.Marshal(t.Metadata); err == nil {
			metadata = raw
		}
	}
	return &model.CreditTransaction{
		Id:               t.Id,
		UserId:           t.UserId,
		Type:             string(t.Type),
		Amount:           t.Amount,
		BalanceBefore:    t.BalanceBefore,
		BalanceAfter:     t.BalanceAfter,
		Description:      t.Description,
		Metadata:         metadata,
		AiProvider:       t.AiProvider,
		AiModel:          t.AiModel,
		TokensUsed:       t.TokensUsed,
		PaymentReference: t.PaymentReference,
		PaymentMethod:    t.PaymentMethod,
		PaymentStatus:    t.PaymentStatus,
		CreatedAt:        t.CreatedAt,
	}
}
