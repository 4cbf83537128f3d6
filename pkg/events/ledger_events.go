package events

import "time"

// Event type codes published on the bus.
const (
	TypeCreditsPurchased = "CREDITS_PURCHASED"
	TypeCreditsRefunded  = "CREDITS_REFUNDED"
	TypeDispatchSettled  = "DISPATCH_SETTLED"

	// TypeUserRegistered is published by the external identity service when
	// an account is created. Consumed here to grant the signup bonus.
	TypeUserRegistered = "USER_REGISTERED"
)

// NewCreditsPurchased is emitted after a purchase row has been committed.
func NewCreditsPurchased(userId, transactionId, amount, balanceAfter, paymentReference string) Event {
	return BaseEvent{
		Type: TypeCreditsPurchased,
		Data: map[string]interface{}{
			"user_id":           userId,
			"transaction_id":    transactionId,
			"amount":            amount,
			"balance_after":     balanceAfter,
			"payment_reference": paymentReference,
			"occurred_at":       time.Now(),
		},
		OccurredAt: time.Now(),
	}
}

// NewCreditsRefunded is emitted after a refund row has been committed.
func NewCreditsRefunded(userId, transactionId, originalId, amount string) Event {
	return BaseEvent{
		Type: TypeCreditsRefunded,
		Data: map[string]interface{}{
			"user_id":        userId,
			"transaction_id": transactionId,
			"original_id":    originalId,
			"amount":         amount,
			"occurred_at":    time.Now(),
		},
		OccurredAt: time.Now(),
	}
}

// NewDispatchSettled is emitted once per logically successful dispatch.
func NewDispatchSettled(userId, provider, fundingSource, cost, balanceAfter string, tokensUsed int) Event {
	return BaseEvent{
		Type: TypeDispatchSettled,
		Data: map[string]interface{}{
			"user_id":        userId,
			"provider":       provider,
			"funding_source": fundingSource,
			"cost":           cost,
			"balance_after":  balanceAfter,
			"tokens_used":    tokensUsed,
			"occurred_at":    time.Now(),
		},
		OccurredAt: time.Now(),
	}
}
