package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/pkg/logger"
	"ai-dispatch-be/internal/repository/specification"
	"ai-dispatch-be/internal/repository/unitofwork"
	"ai-dispatch-be/pkg/events"
	pktNats "ai-dispatch-be/pkg/nats"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ledgerConflictAttempts bounds internal retries of a whole ledger
// transaction after a write conflict. Conflicts are never surfaced.
const ledgerConflictAttempts = 3

// UsageContext carries the provider attribution stored on usage rows.
type UsageContext struct {
	Provider    string
	Model       string
	TokensUsed  int
	Description string
}

// CreditContext carries the optional attribution for credit-side rows.
type CreditContext struct {
	Description      string
	Metadata         map[string]interface{}
	PaymentReference *string
	PaymentMethod    *string
	PaymentStatus    *string
}

type ILedgerService interface {
	GetBalance(ctx context.Context, userId uuid.UUID) (decimal.Decimal, error)
	GetTransactions(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.CreditTransaction, int64, error)

	// ReserveAndCharge atomically verifies the balance covers cost and
	// appends the usage row. Fails with ErrInsufficientCredits without
	// writing anything otherwise.
	ReserveAndCharge(ctx context.Context, userId uuid.UUID, cost decimal.Decimal, usage UsageContext) (*entity.CreditTransaction, error)

	Credit(ctx context.Context, userId uuid.UUID, amount decimal.Decimal, txType entity.TransactionType, opts CreditContext) (*entity.CreditTransaction, error)
	Refund(ctx context.Context, originalId uuid.UUID) (*entity.CreditTransaction, error)
	GrantSignupBonus(ctx context.Context, userId uuid.UUID) (*entity.CreditTransaction, error)
}

type ledgerService struct {
	uowFactory     unitofwork.RepositoryFactory
	log            logger.ILogger
	eventPublisher *pktNats.Publisher
	signupBonus    decimal.Decimal
}

func NewLedgerService(
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
	eventPublisher *pktNats.Publisher,
	signupBonus decimal.Decimal,
) ILedgerService {
	return &ledgerService{
		uowFactory:     uowFactory,
		log:            log,
		eventPublisher: eventPublisher,
		signupBonus:    signupBonus,
	}
}

func (s *ledgerService) GetBalance(ctx context.Context, userId uuid.UUID) (decimal.Decimal, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	tail, err := uow.CreditTransactionRepository().FindLatest(ctx, userId)
	if err != nil {
		return decimal.Zero, err
	}
	if tail == nil {
		return decimal.Zero, nil
	}
	// Balance is the tail row's snapshot, never a SUM() over history.
	return tail.BalanceAfter, nil
}

func (s *ledgerService) GetTransactions(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.CreditTransaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.CreditTransactionRepository()

	total, err := repo.Count(ctx, specification.ByUserId{UserId: userId})
	if err != nil {
		return nil, 0, err
	}

	rows, err := repo.FindAll(ctx,
		specification.ByUserId{UserId: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *ledgerService) ReserveAndCharge(ctx context.Context, userId uuid.UUID, cost decimal.Decimal, usage UsageContext) (*entity.CreditTransaction, error) {
	if cost.IsNegative() {
		return nil, fmt.Errorf("charge cost must be non-negative, got %s", cost)
	}

	description := usage.Description
	if description == "" {
		description = fmt.Sprintf("AI usage: %s", usage.Provider)
	}

	return s.appendWithRetry(ctx, userId, cost.Neg(), func(tx *entity.CreditTransaction) {
		tx.Type = entity.TransactionTypeUsage
		tx.Description = description
		provider, model := usage.Provider, usage.Model
		tokens := usage.TokensUsed
		tx.AiProvider = &provider
		tx.AiModel = &model
		tx.TokensUsed = &tokens
	})
}

func (s *ledgerService) Credit(ctx context.Context, userId uuid.UUID, amount decimal.Decimal, txType entity.TransactionType, opts CreditContext) (*entity.CreditTransaction, error) {
	switch txType {
	case entity.TransactionTypePurchase, entity.TransactionTypeBonus, entity.TransactionTypeRefund:
		if amount.IsNegative() {
			return nil, fmt.Errorf("%s amount must be non-negative, got %s", txType, amount)
		}
	case entity.TransactionTypeAdjustment:
		// either sign
	default:
		return nil, fmt.Errorf("type %q cannot be written via Credit", txType)
	}

	return s.appendWithRetry(ctx, userId, amount, func(tx *entity.CreditTransaction) {
		tx.Type = txType
		tx.Description = opts.Description
		tx.Metadata = opts.Metadata
		tx.PaymentReference = opts.PaymentReference
		tx.PaymentMethod = opts.PaymentMethod
		tx.PaymentStatus = opts.PaymentStatus
	})
}

func (s *ledgerService) Refund(ctx context.Context, originalId uuid.UUID) (*entity.CreditTransaction, error) {
	var refunded *entity.CreditTransaction
	err := s.withConflictRetry(ctx, func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()
		repo := uow.CreditTransactionRepository()

		original, err := repo.FindByID(ctx, originalId)
		if err != nil {
			return err
		}
		if original == nil {
			return fmt.Errorf("%w: transaction %s not found", entity.ErrRefundTargetInvalid, originalId)
		}
		if original.Type != entity.TransactionTypeUsage {
			return fmt.Errorf("%w: transaction %s is %s, only usage rows are refundable", entity.ErrRefundTargetInvalid, originalId, original.Type)
		}

		if err := repo.LockUserLedger(ctx, original.UserId); err != nil {
			return err
		}

		// Checked under the ledger lock so two concurrent refunds of the
		// same row cannot both pass.
		existing, err := repo.FindRefundOf(ctx, originalId)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: transaction %s already refunded by %s", entity.ErrRefundTargetInvalid, originalId, existing.Id)
		}

		tail, err := repo.FindLatest(ctx, original.UserId)
		if err != nil {
			return err
		}
		balanceBefore := decimal.Zero
		if tail != nil {
			balanceBefore = tail.BalanceAfter
		}

		amount := original.Amount.Neg()
		row := &entity.CreditTransaction{
			UserId:        original.UserId,
			Type:          entity.TransactionTypeRefund,
			Amount:        amount,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceBefore.Add(amount),
			Description:   fmt.Sprintf("Refund of %s", originalId),
			Metadata: map[string]interface{}{
				entity.MetadataKeyRefundOf: originalId.String(),
			},
		}
		if err := repo.Create(ctx, row); err != nil {
			return err
		}
		if err := uow.Commit(); err != nil {
			return err
		}
		refunded = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ledger", "refund appended", map[string]interface{}{
		"user_id":     refunded.UserId,
		"original_id": originalId,
		"amount":      refunded.Amount.String(),
	})
	s.publish(ctx, events.NewCreditsRefunded(
		refunded.UserId.String(), refunded.Id.String(), originalId.String(), refunded.Amount.String(),
	))
	return refunded, nil
}

// GrantSignupBonus writes the demo-credit bonus row for a new account.
// Idempotent: a user gets at most one bonus row, checked under the ledger
// lock so duplicate registration events cannot double-grant.
func (s *ledgerService) GrantSignupBonus(ctx context.Context, userId uuid.UUID) (*entity.CreditTransaction, error) {
	var row *entity.CreditTransaction
	err := s.withConflictRetry(ctx, func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()
		repo := uow.CreditTransactionRepository()

		if err := repo.LockUserLedger(ctx, userId); err != nil {
			return err
		}

		count, err := repo.Count(ctx,
			specification.ByUserId{UserId: userId},
			specification.ByTransactionType{Type: string(entity.TransactionTypeBonus)},
		)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		tail, err := repo.FindLatest(ctx, userId)
		if err != nil {
			return err
		}
		balanceBefore := decimal.Zero
		if tail != nil {
			balanceBefore = tail.BalanceAfter
		}

		candidate := &entity.CreditTransaction{
			UserId:        userId,
			Type:          entity.TransactionTypeBonus,
			Amount:        s.signupBonus,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceBefore.Add(s.signupBonus),
			Description:   "Signup demo credits",
		}
		if err := repo.Create(ctx, candidate); err != nil {
			return err
		}
		if err := uow.Commit(); err != nil {
			return err
		}
		row = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	if row != nil {
		s.log.Info("ledger", "signup bonus granted", map[string]interface{}{
			"user_id": userId,
			"amount":  s.signupBonus.String(),
		})
	}
	return row, nil
}

// appendWithRetry runs the read-balance-then-append step under the user's
// ledger lock, retrying the whole transaction on write conflicts.
func (s *ledgerService) appendWithRetry(ctx context.Context, userId uuid.UUID, amount decimal.Decimal, build func(*entity.CreditTransaction)) (*entity.CreditTransaction, error) {
	var row *entity.CreditTransaction
	err := s.withConflictRetry(ctx, func() error {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()
		repo := uow.CreditTransactionRepository()

		if err := repo.LockUserLedger(ctx, userId); err != nil {
			return err
		}

		tail, err := repo.FindLatest(ctx, userId)
		if err != nil {
			return err
		}
		balanceBefore := decimal.Zero
		if tail != nil {
			balanceBefore = tail.BalanceAfter
		}

		balanceAfter := balanceBefore.Add(amount)
		if balanceAfter.IsNegative() {
			return fmt.Errorf("%w: balance %s cannot cover %s", entity.ErrInsufficientCredits, balanceBefore, amount.Neg())
		}

		candidate := &entity.CreditTransaction{
			UserId:        userId,
			Amount:        amount,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceAfter,
		}
		build(candidate)

		if err := repo.Create(ctx, candidate); err != nil {
			return err
		}
		if err := uow.Commit(); err != nil {
			return err
		}
		row = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ledger", "transaction appended", map[string]interface{}{
		"user_id":       userId,
		"type":          string(row.Type),
		"amount":        row.Amount.String(),
		"balance_after": row.BalanceAfter.String(),
	})
	return row, nil
}

func (s *ledgerService) withConflictRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, ledgerConflictAttempts), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, entity.ErrLedgerWriteConflict) {
			s.log.Warn("ledger", "write conflict, retrying transaction", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func (s *ledgerService) publish(ctx context.Context, event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.log.Warn("ledger", "failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}
