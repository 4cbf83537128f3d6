package contract

import (
	"context"

	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/repository/specification"

	"github.com/google/uuid"
)

// CreditTransactionRepository is the append-only ledger store.
// Rows are never updated or deleted.
type CreditTransactionRepository interface {
	// LockUserLedger serializes writers of one user's ledger tail for the
	// duration of the surrounding transaction. Different users never block
	// each other.
	LockUserLedger(ctx context.Context, userId uuid.UUID) error

	Create(ctx context.Context, tx *entity.CreditTransaction) error

	// FindLatest returns the newest row for a user, or nil if the ledger
	// is empty. Its BalanceAfter is the user's current balance.
	FindLatest(ctx context.Context, userId uuid.UUID) (*entity.CreditTransaction, error)

	FindByID(ctx context.Context, id uuid.UUID) (*entity.CreditTransaction, error)

	// FindRefundOf returns the refund row referencing the given usage row,
	// or nil if it has not been refunded.
	FindRefundOf(ctx context.Context, originalId uuid.UUID) (*entity.CreditTransaction, error)

	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditTransaction, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
