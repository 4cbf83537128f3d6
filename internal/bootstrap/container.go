package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-dispatch-be/internal/config"
	"ai-dispatch-be/internal/controller"
	"ai-dispatch-be/internal/pkg/logger"
	"ai-dispatch-be/internal/pkg/mailer"
	"ai-dispatch-be/internal/repository/memory"
	"ai-dispatch-be/internal/repository/unitofwork"
	"ai-dispatch-be/internal/service"
	"ai-dispatch-be/pkg/llm/factory"
	"ai-dispatch-be/pkg/llm/registry"

	pktNats "ai-dispatch-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AiController         controller.IAiController
	CreditController     controller.ICreditController
	CredentialController controller.ICredentialController

	// Background services (main.go runs them)
	ConsumerService service.IConsumerService

	// Held for shutdown
	NatsPublisher  *pktNats.Publisher
	NatsSubscriber *pktNats.Subscriber
	PubSub         *gochannel.GoChannel
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
	)

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// 3. Provider table and vendor clients
	reg, err := registry.NewDefault()
	if err != nil {
		log.Fatalf("[FATAL] Invalid provider registry: %v", err)
	}
	providers, err := factory.BuildProviderSet(reg, factory.Config{
		OpenAIBaseURL: cfg.Keys.OpenAIBaseURL,
		GeminiBaseURL: cfg.Keys.GeminiBaseURL,
		OllamaBaseURL: cfg.Keys.OllamaBaseURL,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to build provider clients: %v", err)
	}
	systemKeys := map[string]string{
		registry.VendorOpenAI: cfg.Keys.OpenAI,
		registry.VendorGemini: cfg.Keys.Gemini,
	}

	// 4. Services
	credentialCache := memory.NewCredentialCache(5 * time.Minute)
	credentialService := service.NewCredentialService(uowFactory, credentialCache, sysLogger)
	ledgerService := service.NewLedgerService(uowFactory, sysLogger, natsPub, cfg.Credits.SignupBonus)

	dispatchService := service.NewDispatchService(
		reg,
		providers,
		credentialService,
		ledgerService,
		systemKeys,
		pubSub,
		service.TopicDispatchSettled,
		natsPub,
		sysLogger,
		cfg.Dispatch,
	)

	paymentService := service.NewPaymentService(
		uowFactory,
		ledgerService,
		rdb,
		natsPub,
		sysLogger,
		cfg.Credits,
		cfg.Midtrans,
	)

	consumerService := service.NewConsumerService(
		pubSub,
		natsSub,
		ledgerService,
		emailService,
		sysLogger,
		cfg.Credits,
	)

	// 5. Controllers
	return &Container{
		AiController:         controller.NewAiController(dispatchService, reg),
		CreditController:     controller.NewCreditController(ledgerService, paymentService),
		CredentialController: controller.NewCredentialController(credentialService),

		ConsumerService: consumerService,

		NatsPublisher:  natsPub,
		NatsSubscriber: natsSub,
		PubSub:         pubSub,
	}
}
