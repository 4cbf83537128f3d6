package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-dispatch-be/internal/config"
	"ai-dispatch-be/internal/dto"
	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/pkg/logger"
	"ai-dispatch-be/internal/pkg/mailer"
	"ai-dispatch-be/pkg/events"
	pktNats "ai-dispatch-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopicDispatchSettled is the internal bus topic for settled dispatches.
const TopicDispatchSettled = "dispatch.settled"

// IConsumerService runs the background consumers: the internal settled-message
// stream (low balance alerts) and the identity event stream (signup bonus).
type IConsumerService interface {
	Start(ctx context.Context) error
}

type consumerService struct {
	subscriber     message.Subscriber
	natsSubscriber *pktNats.Subscriber
	ledger         ILedgerService
	emailService   mailer.IEmailService
	log            logger.ILogger
	credits        config.CreditConfig
}

func NewConsumerService(
	subscriber message.Subscriber,
	natsSubscriber *pktNats.Subscriber,
	ledger ILedgerService,
	emailService mailer.IEmailService,
	log logger.ILogger,
	credits config.CreditConfig,
) IConsumerService {
	return &consumerService{
		subscriber:     subscriber,
		natsSubscriber: natsSubscriber,
		ledger:         ledger,
		emailService:   emailService,
		log:            log,
		credits:        credits,
	}
}

func (s *consumerService) Start(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, TopicDispatchSettled)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicDispatchSettled, err)
	}
	go s.consumeSettled(messages)

	if s.natsSubscriber != nil {
		subject := fmt.Sprintf("events.%s", events.TypeUserRegistered)
		if err := s.natsSubscriber.Subscribe(subject, "dispatch-signup-bonus", s.handleUserRegistered); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}

	return nil
}

func (s *consumerService) consumeSettled(messages <-chan *message.Message) {
	for msg := range messages {
		if err := s.handleSettled(msg.Payload); err != nil {
			s.log.Error("consumer", "failed to process settled message", map[string]interface{}{
				"message_id": msg.UUID,
				"error":      err.Error(),
			})
		}
		// Alerts are best-effort; never requeue.
		msg.Ack()
	}
}

func (s *consumerService) handleSettled(payload []byte) error {
	var settled dto.DispatchSettledMessage
	if err := json.Unmarshal(payload, &settled); err != nil {
		return fmt.Errorf("malformed settled payload: %w", err)
	}

	// Self-funded dispatches never touch the ledger, so there is no
	// balance movement to alert on.
	if settled.FundingSource != string(entity.FundingCreditFunded) || settled.BalanceAfter == "" {
		return nil
	}

	balanceAfter, err := decimal.NewFromString(settled.BalanceAfter)
	if err != nil {
		return fmt.Errorf("malformed balance %q: %w", settled.BalanceAfter, err)
	}

	if balanceAfter.GreaterThanOrEqual(s.credits.LowBalanceThreshold) {
		return nil
	}

	if s.credits.AlertEmail == "" || s.emailService == nil {
		return nil
	}

	s.log.Info("consumer", "low balance detected", map[string]interface{}{
		"user_id":       settled.UserId,
		"balance_after": settled.BalanceAfter,
	})

	return s.emailService.SendLowBalanceAlert(s.credits.AlertEmail, settled.UserId.String(), settled.BalanceAfter)
}

func (s *consumerService) handleUserRegistered(ctx context.Context, event events.Event) error {
	raw, ok := event.Payload()["user_id"]
	if !ok {
		return fmt.Errorf("user registered event missing user_id")
	}
	userIdStr, ok := raw.(string)
	if !ok {
		return fmt.Errorf("user registered event has non-string user_id")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userIdStr, err)
	}

	row, err := s.ledger.GrantSignupBonus(ctx, userId)
	if err != nil {
		return err
	}
	if row == nil {
		// Bonus already granted; redelivery of the same event.
		return nil
	}

	s.log.Info("consumer", "signup bonus granted", map[string]interface{}{
		"user_id": userId,
		"amount":  row.Amount.String(),
	})
	return nil
}
