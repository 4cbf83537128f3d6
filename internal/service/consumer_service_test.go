package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai-dispatch-be/internal/config"
	"ai-dispatch-be/internal/dto"
	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/pkg/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	alerts []string
}

func (m *recordingMailer) SendLowBalanceAlert(toEmail, userId, balance string) error {
	m.alerts = append(m.alerts, userId+"="+balance)
	return nil
}

func newTestConsumer(t *testing.T) (*consumerService, *recordingMailer, ILedgerService, *fakeFactory) {
	t.Helper()
	factory := newFakeFactory()
	ledger := NewLedgerService(factory, nopLogger{}, nil, decimal.NewFromInt(10))
	mail := &recordingMailer{}
	svc := NewConsumerService(nil, nil, ledger, mail, nopLogger{}, config.CreditConfig{
		SignupBonus:         decimal.NewFromInt(10),
		LowBalanceThreshold: decimal.NewFromInt(2),
		AlertEmail:          "ops@example.com",
	}).(*consumerService)
	return svc, mail, ledger, factory
}

func settledPayload(t *testing.T, msg dto.DispatchSettledMessage) []byte {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	return payload
}

func TestConsumerAlertsBelowThreshold(t *testing.T) {
	svc, mail, _, _ := newTestConsumer(t)
	userId := uuid.New()

	payload := settledPayload(t, dto.DispatchSettledMessage{
		UserId:        userId,
		Provider:      "gpt-4o",
		FundingSource: string(entity.FundingCreditFunded),
		Cost:          "2",
		BalanceAfter:  "1.5",
	})
	require.NoError(t, svc.handleSettled(payload))
	require.Len(t, mail.alerts, 1)
	assert.Equal(t, userId.String()+"=1.5", mail.alerts[0])
}

func TestConsumerStaysQuietAtOrAboveThreshold(t *testing.T) {
	svc, mail, _, _ := newTestConsumer(t)

	payload := settledPayload(t, dto.DispatchSettledMessage{
		UserId:        uuid.New(),
		FundingSource: string(entity.FundingCreditFunded),
		BalanceAfter:  "2",
	})
	require.NoError(t, svc.handleSettled(payload))
	assert.Empty(t, mail.alerts)
}

func TestConsumerIgnoresSelfFundedSettlements(t *testing.T) {
	svc, mail, _, _ := newTestConsumer(t)

	payload := settledPayload(t, dto.DispatchSettledMessage{
		UserId:        uuid.New(),
		FundingSource: string(entity.FundingSelfFunded),
	})
	require.NoError(t, svc.handleSettled(payload))
	assert.Empty(t, mail.alerts)

	assert.Error(t, svc.handleSettled([]byte("not json")))
}

func TestConsumerGrantsBonusOnUserRegistered(t *testing.T) {
	svc, _, ledger, factory := newTestConsumer(t)
	userId := uuid.New()

	event := events.BaseEvent{
		Type:       events.TypeUserRegistered,
		Data:       map[string]interface{}{"user_id": userId.String()},
		OccurredAt: time.Now(),
	}
	require.NoError(t, svc.handleUserRegistered(context.Background(), event))
	// Redelivery is a no-op.
	require.NoError(t, svc.handleUserRegistered(context.Background(), event))

	balance, err := ledger.GetBalance(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, "10", balance.String())
	assert.Len(t, factory.ledger.snapshot(), 1)

	bad := events.BaseEvent{Type: events.TypeUserRegistered, Data: map[string]interface{}{"user_id": 42}}
	assert.Error(t, svc.handleUserRegistered(context.Background(), bad))
}
