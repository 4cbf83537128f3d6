package service

import (
	"context"
	"crypto/sha512"
	"fmt"
	"strings"

	"ai-dispatch-be/internal/config"
	"ai-dispatch-be/internal/dto"
	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/pkg/logger"
	"ai-dispatch-be/internal/repository/specification"
	"ai-dispatch-be/internal/repository/unitofwork"
	"ai-dispatch-be/pkg/events"
	pktNats "ai-dispatch-be/pkg/nats"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const orderIdPrefix = "topup-"

// IPaymentService handles credit purchases. Card processing itself happens
// at the payment gateway; this service creates the order and consumes the
// resulting capture notification.
type IPaymentService interface {
	CreateTopup(ctx context.Context, userId uuid.UUID, req *dto.TopupRequest) (*dto.TopupResponse, error)
	HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest) error
}

type paymentService struct {
	uowFactory     unitofwork.RepositoryFactory
	ledger         ILedgerService
	redisClient    *redis.Client
	eventPublisher *pktNats.Publisher
	log            logger.ILogger
	credits        config.CreditConfig
	midtrans       config.MidtransConfig
}

func NewPaymentService(
	uowFactory unitofwork.RepositoryFactory,
	ledger ILedgerService,
	redisClient *redis.Client,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
	credits config.CreditConfig,
	midtransCfg config.MidtransConfig,
) IPaymentService {
	return &paymentService{
		uowFactory:     uowFactory,
		ledger:         ledger,
		redisClient:    redisClient,
		eventPublisher: eventPublisher,
		log:            log,
		credits:        credits,
		midtrans:       midtransCfg,
	}
}

func (s *paymentService) CreateTopup(ctx context.Context, userId uuid.UUID, req *dto.TopupRequest) (*dto.TopupResponse, error) {
	creditsWanted, err := decimal.NewFromString(req.Credits)
	if err != nil || !creditsWanted.IsPositive() {
		return nil, fmt.Errorf("invalid credit amount %q", req.Credits)
	}

	gross := creditsWanted.Mul(s.credits.PricePerCredit)
	orderId := fmt.Sprintf("%s%s-%s", orderIdPrefix, userId, uuid.New().String()[:8])

	var sClient snap.Client
	env := midtrans.Sandbox
	if s.midtrans.IsProduction {
		env = midtrans.Production
	}
	sClient.New(s.midtrans.ServerKey, env)

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderId,
			GrossAmt: gross.IntPart(),
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Name,
			Email: req.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    "ai-credits",
				Price: s.credits.PricePerCredit.IntPart(),
				Qty:   int32(creditsWanted.IntPart()),
				Name:  "AI credits",
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}

	snapResp, midErr := sClient.CreateTransaction(snapReq)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}

	s.log.Info("payment", "topup order created", map[string]interface{}{
		"user_id":  userId,
		"order_id": orderId,
		"credits":  creditsWanted.String(),
	})

	return &dto.TopupResponse{
		OrderId:         orderId,
		SnapToken:       snapResp.Token,
		SnapRedirectUrl: snapResp.RedirectURL,
	}, nil
}

func (s *paymentService) HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest) error {
	if s.midtrans.ServerKey == "" {
		return fmt.Errorf("server configuration error")
	}

	// Midtrans signature = SHA512(order_id + status_code + gross_amount + server_key)
	signatureInput := req.OrderId + req.StatusCode + req.GrossAmount + s.midtrans.ServerKey
	expectedSignature := fmt.Sprintf("%x", sha512.Sum512([]byte(signatureInput)))
	if req.SignatureKey != expectedSignature {
		s.log.Warn("payment", "webhook signature mismatch", map[string]interface{}{
			"order_id": req.OrderId,
		})
		return fmt.Errorf("invalid signature")
	}

	userId, err := parseTopupOrderId(req.OrderId)
	if err != nil {
		return err
	}

	switch req.TransactionStatus {
	case "capture", "settlement":
		// fall through to crediting
	case "deny", "cancel", "expire", "failure":
		s.log.Info("payment", "non-settling notification ignored", map[string]interface{}{
			"order_id": req.OrderId,
			"status":   req.TransactionStatus,
		})
		return nil
	default:
		// pending and friends: wait for the final notification
		return nil
	}

	// Fast replay guard; the ledger check below is the durable one.
	if s.redisClient != nil {
		ok, err := s.redisClient.SetNX(ctx, "payment:order:"+req.OrderId, 1, 0).Result()
		if err == nil && !ok {
			s.log.Info("payment", "duplicate notification dropped", map[string]interface{}{
				"order_id": req.OrderId,
			})
			return nil
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	existing, err := uow.CreditTransactionRepository().Count(ctx,
		specification.ByPaymentReference{Reference: req.OrderId},
	)
	if err != nil {
		return err
	}
	if existing > 0 {
		s.log.Info("payment", "order already credited", map[string]interface{}{
			"order_id": req.OrderId,
		})
		return nil
	}

	gross, err := decimal.NewFromString(req.GrossAmount)
	if err != nil {
		return fmt.Errorf("invalid gross amount %q", req.GrossAmount)
	}
	if !s.credits.PricePerCredit.IsPositive() {
		return fmt.Errorf("credit price per credit is not configured")
	}
	creditsBought := gross.Div(s.credits.PricePerCredit)

	orderId := req.OrderId
	paymentType := req.PaymentType
	status := req.TransactionStatus
	row, err := s.ledger.Credit(ctx, userId, creditsBought, entity.TransactionTypePurchase, CreditContext{
		Description: fmt.Sprintf("Credit purchase %s", orderId),
		Metadata: map[string]interface{}{
			entity.MetadataKeyPrice: gross.String(),
		},
		PaymentReference: &orderId,
		PaymentMethod:    &paymentType,
		PaymentStatus:    &status,
	})
	if err != nil {
		return err
	}

	s.log.Info("payment", "credits purchased", map[string]interface{}{
		"user_id":       userId,
		"order_id":      orderId,
		"credits":       creditsBought.String(),
		"balance_after": row.BalanceAfter.String(),
	})

	if s.eventPublisher != nil {
		evt := events.NewCreditsPurchased(
			userId.String(), row.Id.String(), creditsBought.String(), row.BalanceAfter.String(), orderId,
		)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.log.Warn("payment", "failed to publish purchase event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return nil
}

// parseTopupOrderId extracts the user id from "topup-<uuid>-<suffix>".
func parseTopupOrderId(orderId string) (uuid.UUID, error) {
	if !strings.HasPrefix(orderId, orderIdPrefix) {
		return uuid.Nil, fmt.Errorf("unrecognized order id format: %s", orderId)
	}
	rest := strings.TrimPrefix(orderId, orderIdPrefix)
	if len(rest) < 36 {
		return uuid.Nil, fmt.Errorf("unrecognized order id format: %s", orderId)
	}
	return uuid.Parse(rest[:36])
}
