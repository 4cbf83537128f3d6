package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType categorizes a ledger row. The ledger is append-only;
// corrections are expressed as new refund/adjustment rows.
type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeUsage      TransactionType = "usage"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeBonus      TransactionType = "bonus"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// Metadata keys interpreted outside the ledger core.
const (
	MetadataKeyRefundOf = "refund_of" // refund rows: id of the refunded usage row
	MetadataKeyPrice    = "price"     // purchase rows: money paid, for cost-per-credit views
)

type CreditTransaction struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	Type          TransactionType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	Metadata      map[string]interface{}

	// Usage rows only
	AiProvider *string
	AiModel    *string
	TokensUsed *int

	// Purchase rows only
	PaymentReference *string
	PaymentMethod    *string
	PaymentStatus    *string

	CreatedAt time.Time
}

// RefundOf returns the id of the usage row this refund compensates, if any.
func (t *CreditTransaction) RefundOf() (uuid.UUID, bool) {
	if t.Metadata == nil {
		return uuid.Nil, false
	}
	raw, ok := t.Metadata[MetadataKeyRefundOf]
	if !ok {
		return uuid.Nil, false
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
