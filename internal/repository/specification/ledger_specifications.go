package specification

import (
	"gorm.io/gorm"
)

// ByTransactionType filters ledger rows by their type column.
type ByTransactionType struct {
	Type string
}

func (s ByTransactionType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("type = ?", s.Type)
}

// ByAiProvider filters usage rows for one provider id.
type ByAiProvider struct {
	Provider string
}

func (s ByAiProvider) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("ai_provider = ?", s.Provider)
}

// ByPaymentReference filters purchase rows by the external payment reference.
type ByPaymentReference struct {
	Reference string
}

func (s ByPaymentReference) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("payment_reference = ?", s.Reference)
}
