package service

import (
	"context"
	"sync"
	"testing"

	"ai-dispatch-be/internal/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (ILedgerService, *fakeFactory) {
	t.Helper()
	factory := newFakeFactory()
	return NewLedgerService(factory, nopLogger{}, nil, decimal.NewFromInt(10)), factory
}

func TestLedgerBalanceStartsAtZero(t *testing.T) {
	ledger, _ := newTestLedger(t)

	balance, err := ledger.GetBalance(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestLedgerChargeDebitsAndSnapshotsBalance(t *testing.T) {
	ledger, factory := newTestLedger(t)
	userId := uuid.New()
	ctx := context.Background()

	_, err := ledger.Credit(ctx, userId, decimal.NewFromInt(5), entity.TransactionTypePurchase, CreditContext{Description: "topup"})
	require.NoError(t, err)

	row, err := ledger.ReserveAndCharge(ctx, userId, decimal.RequireFromString("1.5"), UsageContext{
		Provider:   "gemini-1.5-pro",
		Model:      "gemini-1.5-pro",
		TokensUsed: 120,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.TransactionTypeUsage, row.Type)
	assert.Equal(t, "-1.5", row.Amount.String())
	assert.Equal(t, "5", row.BalanceBefore.String())
	assert.Equal(t, "3.5", row.BalanceAfter.String())
	require.NotNil(t, row.AiProvider)
	assert.Equal(t, "gemini-1.5-pro", *row.AiProvider)

	balance, err := ledger.GetBalance(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "3.5", balance.String())
	assert.Len(t, factory.ledger.snapshot(), 2)
}

func TestLedgerChargeInsufficientWritesNothing(t *testing.T) {
	ledger, factory := newTestLedger(t)
	userId := uuid.New()
	ctx := context.Background()

	_, err := ledger.Credit(ctx, userId, decimal.NewFromInt(1), entity.TransactionTypeBonus, CreditContext{})
	require.NoError(t, err)

	_, err = ledger.ReserveAndCharge(ctx, userId, decimal.NewFromInt(2), UsageContext{Provider: "gpt-4o"})
	require.ErrorIs(t, err, entity.ErrInsufficientCredits)

	// Only the bonus row exists; the failed charge left no trace.
	rows := factory.ledger.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, entity.TransactionTypeBonus, rows[0].Type)

	balance, err := ledger.GetBalance(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "1", balance.String())
}

func TestLedgerZeroCostChargeAllowedAtZeroBalance(t *testing.T) {
	ledger, _ := newTestLedger(t)
	userId := uuid.New()

	row, err := ledger.ReserveAndCharge(context.Background(), userId, decimal.Zero, UsageContext{Provider: "mock-echo"})
	require.NoError(t, err)
	assert.True(t, row.Amount.IsZero())
	assert.True(t, row.BalanceAfter.IsZero())
}

func TestLedgerConcurrentChargesNeverOverdraw(t *testing.T) {
	ledger, factory := newTestLedger(t)
	userId := uuid.New()
	ctx := context.Background()

	_, err := ledger.Credit(ctx, userId, decimal.NewFromInt(1), entity.TransactionTypePurchase, CreditContext{})
	require.NoError(t, err)

	// Balance covers exactly one of the two concurrent 1-credit charges.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.ReserveAndCharge(ctx, userId, decimal.NewFromInt(1), UsageContext{Provider: "gpt-4o-mini"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, entity.ErrInsufficientCredits)
		}
	}
	assert.Equal(t, 1, succeeded)

	balance, err := ledger.GetBalance(ctx, userId)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	// Purchase plus exactly one usage row, each with its own snapshot.
	rows := factory.ledger.snapshot()
	require.Len(t, rows, 2)
	assert.False(t, rows[0].BalanceBefore.Equal(rows[1].BalanceBefore))
}

func TestLedgerCreditRejectsNegativeForNonAdjustments(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	userId := uuid.New()

	_, err := ledger.Credit(ctx, userId, decimal.NewFromInt(-1), entity.TransactionTypePurchase, CreditContext{})
	assert.Error(t, err)

	_, err = ledger.Credit(ctx, userId, decimal.NewFromInt(-1), entity.TransactionTypeUsage, CreditContext{})
	assert.Error(t, err)

	// Adjustments may go either direction, as long as the balance stays
	// non-negative.
	_, err = ledger.Credit(ctx, userId, decimal.NewFromInt(3), entity.TransactionTypeAdjustment, CreditContext{Description: "manual grant"})
	require.NoError(t, err)
	row, err := ledger.Credit(ctx, userId, decimal.NewFromInt(-2), entity.TransactionTypeAdjustment, CreditContext{Description: "correction"})
	require.NoError(t, err)
	assert.Equal(t, "1", row.BalanceAfter.String())
}

func TestLedgerRefundRestoresBalanceOnce(t *testing.T) {
	ledger, _ := newTestLedger(t)
	userId := uuid.New()
	ctx := context.Background()

	_, err := ledger.Credit(ctx, userId, decimal.NewFromInt(5), entity.TransactionTypePurchase, CreditContext{})
	require.NoError(t, err)
	usage, err := ledger.ReserveAndCharge(ctx, userId, decimal.NewFromInt(2), UsageContext{Provider: "gpt-4o"})
	require.NoError(t, err)

	refund, err := ledger.Refund(ctx, usage.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionTypeRefund, refund.Type)
	assert.Equal(t, "2", refund.Amount.String())
	assert.Equal(t, "5", refund.BalanceAfter.String())

	refundOf, ok := refund.RefundOf()
	require.True(t, ok)
	assert.Equal(t, usage.Id, refundOf)

	// A second refund of the same row must be rejected.
	_, err = ledger.Refund(ctx, usage.Id)
	assert.ErrorIs(t, err, entity.ErrRefundTargetInvalid)

	balance, err := ledger.GetBalance(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "5", balance.String())
}

func TestLedgerRefundRejectsNonUsageRows(t *testing.T) {
	ledger, _ := newTestLedger(t)
	userId := uuid.New()
	ctx := context.Background()

	purchase, err := ledger.Credit(ctx, userId, decimal.NewFromInt(5), entity.TransactionTypePurchase, CreditContext{})
	require.NoError(t, err)

	_, err = ledger.Refund(ctx, purchase.Id)
	assert.ErrorIs(t, err, entity.ErrRefundTargetInvalid)

	_, err = ledger.Refund(ctx, uuid.New())
	assert.ErrorIs(t, err, entity.ErrRefundTargetInvalid)
}

func TestLedgerSignupBonusIsIdempotent(t *testing.T) {
	ledger, factory := newTestLedger(t)
	userId := uuid.New()
	ctx := context.Background()

	row, err := ledger.GrantSignupBonus(ctx, userId)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "10", row.Amount.String())

	// Redelivered registration event: no second bonus row.
	row, err = ledger.GrantSignupBonus(ctx, userId)
	require.NoError(t, err)
	assert.Nil(t, row)

	assert.Len(t, factory.ledger.snapshot(), 1)
}

func TestLedgerTransactionHistoryPagination(t *testing.T) {
	ledger, _ := newTestLedger(t)
	userId := uuid.New()
	ctx := context.Background()

	_, err := ledger.Credit(ctx, userId, decimal.NewFromInt(10), entity.TransactionTypePurchase, CreditContext{})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := ledger.ReserveAndCharge(ctx, userId, decimal.NewFromInt(1), UsageContext{Provider: "llama3"})
		require.NoError(t, err)
	}

	rows, total, err := ledger.GetTransactions(ctx, userId, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, rows, 2)
	// Newest first.
	assert.Equal(t, entity.TransactionTypeUsage, rows[0].Type)

	rows, _, err = ledger.GetTransactions(ctx, userId, 2, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, entity.TransactionTypePurchase, rows[1].Type)
}
