package unitofwork

import (
	"context"

	"ai-dispatch-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	CreditTransactionRepository() contract.CreditTransactionRepository
	CredentialRepository() contract.CredentialRepository
}
