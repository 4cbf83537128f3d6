package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CreditTransaction rows are append-only. Balance snapshots are stored per
// row so the current balance is always the latest row, never a SUM().
type CreditTransaction struct {
	Id            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId        uuid.UUID       `gorm:"type:uuid;not null;index:idx_credit_tx_user_created,priority:1"`
	Type          string          `gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	Description   string          `gorm:"type:text"`
	Metadata      datatypes.JSON  `gorm:"type:jsonb"`

	AiProvider *string `gorm:"type:varchar(100);index"`
	AiModel    *string `gorm:"type:varchar(100)"`
	TokensUsed *int

	PaymentReference *string `gorm:"type:varchar(255);index"`
	PaymentMethod    *string `gorm:"type:varchar(50)"`
	PaymentStatus    *string `gorm:"type:varchar(50)"`

	CreatedAt time.Time `gorm:"default:now();not null;index:idx_credit_tx_user_created,priority:2"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
