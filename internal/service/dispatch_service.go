package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ai-dispatch-be/internal/config"
	"ai-dispatch-be/internal/dto"
	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/pkg/logger"
	"ai-dispatch-be/pkg/events"
	"ai-dispatch-be/pkg/llm"
	"ai-dispatch-be/pkg/llm/registry"
	pktNats "ai-dispatch-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type IDispatchService interface {
	// Dispatch runs one generation request end to end: resolve provider,
	// resolve funding, invoke with retry/fallback, settle the ledger.
	Dispatch(ctx context.Context, userId uuid.UUID, req *dto.DispatchRequest) (*dto.DispatchResponse, error)
}

type dispatchService struct {
	registry       *registry.Registry
	providers      map[string]llm.Provider // keyed by vendor family
	credentials    ICredentialService
	ledger         ILedgerService
	systemKeys     map[string]string // vendor family -> system-level API key
	pubSub         *gochannel.GoChannel
	settledTopic   string
	eventPublisher *pktNats.Publisher
	log            logger.ILogger
	cfg            config.DispatchConfig
}

func NewDispatchService(
	reg *registry.Registry,
	providers map[string]llm.Provider,
	credentials ICredentialService,
	ledger ILedgerService,
	systemKeys map[string]string,
	pubSub *gochannel.GoChannel,
	settledTopic string,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
	cfg config.DispatchConfig,
) IDispatchService {
	return &dispatchService{
		registry:       reg,
		providers:      providers,
		credentials:    credentials,
		ledger:         ledger,
		systemKeys:     systemKeys,
		pubSub:         pubSub,
		settledTopic:   settledTopic,
		eventPublisher: eventPublisher,
		log:            log,
		cfg:            cfg,
	}
}

// funding is the resolved payment decision for one attempt.
type funding struct {
	source     entity.FundingSource
	credential llm.Credential
	cost       decimal.Decimal
}

func (s *dispatchService) Dispatch(ctx context.Context, userId uuid.UUID, req *dto.DispatchRequest) (*dto.DispatchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	head, err := s.registry.Resolve(req.ProviderId)
	if err != nil {
		// Unknown provider: zero ledger writes, zero provider invocations.
		return &dto.DispatchResponse{
			Success:   false,
			ErrorKind: entity.ErrorKind(err),
		}, err
	}

	chain := s.registry.Chain(head.Id)
	var lastErr error
	lastFunding := entity.FundingCreditFunded

	for i, desc := range chain {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		fund, err := s.resolveFunding(ctx, userId, desc)
		if err != nil {
			// Funding failures are terminal, not a fallback trigger.
			return &dto.DispatchResponse{
				Success:       false,
				ProviderUsed:  desc.Id,
				FundingSource: string(entity.FundingCreditFunded),
				ErrorKind:     entity.ErrorKind(err),
			}, err
		}
		lastFunding = fund.source

		provider, ok := s.providers[desc.VendorFamily]
		if !ok {
			lastErr = fmt.Errorf("%w: no transport client for vendor %s", entity.ErrProviderUnavailable, desc.VendorFamily)
			continue
		}

		if i > 0 {
			s.log.Warn("dispatch", "falling back to alternate provider", map[string]interface{}{
				"user_id":  userId,
				"provider": desc.Id,
				"attempt":  i + 1,
			})
		}

		completion, err := s.invokeWithRetry(ctx, provider, fund.credential, desc, req)
		if err != nil {
			lastErr = err
			s.log.Warn("dispatch", "provider invocation failed", map[string]interface{}{
				"user_id":  userId,
				"provider": desc.Id,
				"outcome":  llm.Classify(err).String(),
				"error":    err.Error(),
			})
			continue
		}

		return s.settle(ctx, userId, desc, fund, completion)
	}

	err = fmt.Errorf("%w: last error: %v", entity.ErrAllProvidersExhausted, lastErr)
	return &dto.DispatchResponse{
		Success:       false,
		FundingSource: string(lastFunding),
		ErrorKind:     entity.ErrorKind(err),
	}, err
}

// resolveFunding applies the priority chain: user-owned credential first,
// then the unified credit pool. Self-funded calls never touch the ledger.
func (s *dispatchService) resolveFunding(ctx context.Context, userId uuid.UUID, desc registry.Descriptor) (funding, error) {
	cred, err := s.credentials.GetCredential(ctx, userId, desc.VendorFamily)
	if err != nil {
		return funding{}, err
	}
	if cred != nil {
		return funding{
			source:     entity.FundingSelfFunded,
			credential: llm.Credential{ApiKey: cred.ApiKey},
			cost:       decimal.Zero,
		}, nil
	}

	if desc.CreditCost.IsPositive() {
		balance, err := s.ledger.GetBalance(ctx, userId)
		if err != nil {
			return funding{}, err
		}
		if balance.LessThan(desc.CreditCost) {
			return funding{}, fmt.Errorf("%w: balance %s, provider %s costs %s",
				entity.ErrInsufficientCredits, balance, desc.Id, desc.CreditCost)
		}
	}

	return funding{
		source:     entity.FundingCreditFunded,
		credential: llm.Credential{ApiKey: s.systemKeys[desc.VendorFamily]},
		cost:       desc.CreditCost,
	}, nil
}

// invokeWithRetry calls one provider, retrying only rate limits with
// exponential backoff. Any other failure is returned for the fallback
// decision.
func (s *dispatchService) invokeWithRetry(ctx context.Context, provider llm.Provider, cred llm.Credential, desc registry.Descriptor, req *dto.DispatchRequest) (*llm.Completion, error) {
	llmReq := &llm.Request{
		Prompt:      req.Prompt,
		History:     req.History,
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxTokens,
		Model:       desc.ModelName,
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.cfg.BackoffBaseDelay
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(s.cfg.MaxRateLimitRetries)), ctx)

	var completion *llm.Completion
	err := backoff.Retry(func() error {
		c, invokeErr := provider.Invoke(ctx, cred, llmReq)
		if invokeErr != nil {
			if llm.Classify(invokeErr) == llm.OutcomeRateLimited {
				return invokeErr
			}
			return backoff.Permanent(invokeErr)
		}
		completion = c
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// settle charges the ledger after provider success. Charging after the
// outcome is known means a fallback never leaves a dangling debit: failed
// attempts were never charged.
func (s *dispatchService) settle(ctx context.Context, userId uuid.UUID, desc registry.Descriptor, fund funding, completion *llm.Completion) (*dto.DispatchResponse, error) {
	resp := &dto.DispatchResponse{
		Success:       true,
		ProviderUsed:  desc.Id,
		ModelUsed:     completion.Model,
		TokensUsed:    completion.TokensUsed,
		FundingSource: string(fund.source),
		Result:        completion.Content,
	}

	balanceAfter := ""
	if fund.source == entity.FundingCreditFunded && fund.cost.IsPositive() {
		// The provider call already happened; settlement must not be lost
		// to a caller hanging up between success and charge.
		chargeCtx := context.WithoutCancel(ctx)
		row, err := s.ledger.ReserveAndCharge(chargeCtx, userId, fund.cost, UsageContext{
			Provider:   desc.Id,
			Model:      completion.Model,
			TokensUsed: completion.TokensUsed,
		})
		if err != nil {
			if errors.Is(err, entity.ErrInsufficientCredits) {
				// Balance was drained concurrently between the funding
				// check and settlement. Nothing was written.
				return &dto.DispatchResponse{
					Success:       false,
					ProviderUsed:  desc.Id,
					FundingSource: string(entity.FundingCreditFunded),
					ErrorKind:     entity.ErrorKind(err),
				}, err
			}
			return nil, err
		}
		resp.Cost = fund.cost.String()
		balanceAfter = row.BalanceAfter.String()
	}

	s.publishSettled(ctx, userId, desc, fund, completion, balanceAfter)
	return resp, nil
}

func (s *dispatchService) publishSettled(ctx context.Context, userId uuid.UUID, desc registry.Descriptor, fund funding, completion *llm.Completion, balanceAfter string) {
	s.log.Info("dispatch", "request settled", map[string]interface{}{
		"user_id":        userId,
		"provider":       desc.Id,
		"funding_source": string(fund.source),
		"cost":           fund.cost.String(),
		"tokens_used":    completion.TokensUsed,
	})

	if s.pubSub != nil {
		payload, err := json.Marshal(dto.DispatchSettledMessage{
			UserId:        userId,
			Provider:      desc.Id,
			Model:         completion.Model,
			FundingSource: string(fund.source),
			Cost:          fund.cost.String(),
			BalanceAfter:  balanceAfter,
			TokensUsed:    completion.TokensUsed,
		})
		if err == nil {
			msg := message.NewMessage(watermill.NewUUID(), payload)
			if err := s.pubSub.Publish(s.settledTopic, msg); err != nil {
				s.log.Warn("dispatch", "failed to publish settled message", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	if s.eventPublisher != nil {
		evt := events.NewDispatchSettled(
			userId.String(), desc.Id, string(fund.source), fund.cost.String(), balanceAfter, completion.TokensUsed,
		)
		if err := s.eventPublisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
			s.log.Warn("dispatch", "failed to publish settled event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
