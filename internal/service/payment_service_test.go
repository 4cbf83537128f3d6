package service

import (
	"context"
	"crypto/sha512"
	"fmt"
	"testing"

	"ai-dispatch-be/internal/config"
	"ai-dispatch-be/internal/dto"
	"ai-dispatch-be/internal/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerKey = "SB-Mid-server-test"

func newTestPayment(t *testing.T) (IPaymentService, ILedgerService, *fakeFactory) {
	t.Helper()
	factory := newFakeFactory()
	ledger := NewLedgerService(factory, nopLogger{}, nil, decimal.NewFromInt(10))
	payment := NewPaymentService(
		factory,
		ledger,
		nil, // no redis in unit tests; the ledger dedupe still holds
		nil,
		nopLogger{},
		config.CreditConfig{
			SignupBonus:    decimal.NewFromInt(10),
			PricePerCredit: decimal.NewFromInt(1000),
		},
		config.MidtransConfig{ServerKey: testServerKey},
	)
	return payment, ledger, factory
}

func signedNotification(orderId, statusCode, grossAmount, status string) *dto.MidtransWebhookRequest {
	sig := fmt.Sprintf("%x", sha512.Sum512([]byte(orderId+statusCode+grossAmount+testServerKey)))
	return &dto.MidtransWebhookRequest{
		OrderId:           orderId,
		StatusCode:        statusCode,
		GrossAmount:       grossAmount,
		SignatureKey:      sig,
		TransactionStatus: status,
		PaymentType:       "bank_transfer",
	}
}

func TestPaymentNotificationCreditsLedger(t *testing.T) {
	payment, ledger, factory := newTestPayment(t)
	userId := uuid.New()
	orderId := fmt.Sprintf("topup-%s-abcd1234", userId)

	req := signedNotification(orderId, "200", "5000", "settlement")
	require.NoError(t, payment.HandleNotification(context.Background(), req))

	// 5000 money units at 1000 per credit.
	balance, err := ledger.GetBalance(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, "5", balance.String())

	rows := factory.ledger.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, entity.TransactionTypePurchase, rows[0].Type)
	require.NotNil(t, rows[0].PaymentReference)
	assert.Equal(t, orderId, *rows[0].PaymentReference)
	assert.Equal(t, "5000", rows[0].Metadata[entity.MetadataKeyPrice])
}

func TestPaymentNotificationRejectsBadSignature(t *testing.T) {
	payment, _, factory := newTestPayment(t)
	userId := uuid.New()
	orderId := fmt.Sprintf("topup-%s-abcd1234", userId)

	req := signedNotification(orderId, "200", "5000", "settlement")
	req.SignatureKey = "forged"

	err := payment.HandleNotification(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, factory.ledger.snapshot())
}

func TestPaymentNotificationReplayCreditsOnce(t *testing.T) {
	payment, ledger, _ := newTestPayment(t)
	userId := uuid.New()
	orderId := fmt.Sprintf("topup-%s-abcd1234", userId)

	req := signedNotification(orderId, "200", "3000", "settlement")
	require.NoError(t, payment.HandleNotification(context.Background(), req))
	// Gateways redeliver notifications; the order id dedupes them.
	require.NoError(t, payment.HandleNotification(context.Background(), req))

	balance, err := ledger.GetBalance(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, "3", balance.String())
}

func TestPaymentNotificationRejectsUnconfiguredPrice(t *testing.T) {
	factory := newFakeFactory()
	ledger := NewLedgerService(factory, nopLogger{}, nil, decimal.NewFromInt(10))
	payment := NewPaymentService(
		factory,
		ledger,
		nil,
		nil,
		nopLogger{},
		config.CreditConfig{SignupBonus: decimal.NewFromInt(10)},
		config.MidtransConfig{ServerKey: testServerKey},
	)
	userId := uuid.New()
	orderId := fmt.Sprintf("topup-%s-abcd1234", userId)

	// A zero price per credit must fail the webhook, not divide by zero.
	req := signedNotification(orderId, "200", "5000", "settlement")
	err := payment.HandleNotification(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, factory.ledger.snapshot())
}

func TestPaymentNotificationIgnoresNonSettlingStatuses(t *testing.T) {
	payment, _, factory := newTestPayment(t)
	userId := uuid.New()
	orderId := fmt.Sprintf("topup-%s-abcd1234", userId)

	for _, status := range []string{"pending", "deny", "cancel", "expire"} {
		req := signedNotification(orderId, "201", "5000", status)
		require.NoError(t, payment.HandleNotification(context.Background(), req))
	}
	assert.Empty(t, factory.ledger.snapshot())
}

func TestParseTopupOrderId(t *testing.T) {
	userId := uuid.New()

	parsed, err := parseTopupOrderId(fmt.Sprintf("topup-%s-deadbeef", userId))
	require.NoError(t, err)
	assert.Equal(t, userId, parsed)

	_, err = parseTopupOrderId("subscription-123")
	assert.Error(t, err)

	_, err = parseTopupOrderId("topup-not-a-uuid")
	assert.Error(t, err)
}
