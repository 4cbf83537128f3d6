package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/model"
	"ai-dispatch-be/internal/repository/unitofwork"
	"ai-dispatch-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepositoryAgainstPostgres(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}
	require.NoError(t, gormDB.AutoMigrate(&model.CreditTransaction{}, &model.ApiCredential{}))

	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	ctx := context.Background()
	userId := uuid.New()

	t.Run("Append and read back the ledger tail", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		repo := uow.CreditTransactionRepository()

		require.NoError(t, repo.LockUserLedger(ctx, userId))

		tail, err := repo.FindLatest(ctx, userId)
		require.NoError(t, err)
		assert.Nil(t, tail)

		row := &entity.CreditTransaction{
			UserId:        userId,
			Type:          entity.TransactionTypeBonus,
			Amount:        decimal.NewFromInt(10),
			BalanceBefore: decimal.Zero,
			BalanceAfter:  decimal.NewFromInt(10),
			Description:   "integration bonus",
		}
		require.NoError(t, repo.Create(ctx, row))
		require.NoError(t, uow.Commit())

		uow = uowFactory.NewUnitOfWork(ctx)
		tail, err = uow.CreditTransactionRepository().FindLatest(ctx, userId)
		require.NoError(t, err)
		require.NotNil(t, tail)
		assert.True(t, tail.BalanceAfter.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, entity.TransactionTypeBonus, tail.Type)
	})

	t.Run("Refund lookup via metadata", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		repo := uow.CreditTransactionRepository()
		require.NoError(t, repo.LockUserLedger(ctx, userId))

		provider := "mock-echo"
		usage := &entity.CreditTransaction{
			UserId:        userId,
			Type:          entity.TransactionTypeUsage,
			Amount:        decimal.NewFromInt(-2),
			BalanceBefore: decimal.NewFromInt(10),
			BalanceAfter:  decimal.NewFromInt(8),
			AiProvider:    &provider,
		}
		require.NoError(t, repo.Create(ctx, usage))
		require.NoError(t, uow.Commit())

		uow = uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		repo = uow.CreditTransactionRepository()

		found, err := repo.FindRefundOf(ctx, usage.Id)
		require.NoError(t, err)
		assert.Nil(t, found)

		refund := &entity.CreditTransaction{
			UserId:        userId,
			Type:          entity.TransactionTypeRefund,
			Amount:        decimal.NewFromInt(2),
			BalanceBefore: decimal.NewFromInt(8),
			BalanceAfter:  decimal.NewFromInt(10),
			Metadata:      map[string]interface{}{entity.MetadataKeyRefundOf: usage.Id.String()},
		}
		require.NoError(t, repo.Create(ctx, refund))
		require.NoError(t, uow.Commit())

		uow = uowFactory.NewUnitOfWork(ctx)
		found, err = uow.CreditTransactionRepository().FindRefundOf(ctx, usage.Id)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, refund.Id, found.Id)
	})

	t.Run("Credential upsert is idempotent per vendor", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		repo := uow.CredentialRepository()

		cred := &entity.ApiCredential{UserId: userId, VendorFamily: "openai", ApiKey: "sk-first"}
		require.NoError(t, repo.Upsert(ctx, cred))

		cred2 := &entity.ApiCredential{UserId: userId, VendorFamily: "openai", ApiKey: "sk-second"}
		require.NoError(t, repo.Upsert(ctx, cred2))

		stored, err := repo.FindOne(ctx, userId, "openai")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "sk-second", stored.ApiKey)

		all, err := repo.FindAllByUser(ctx, userId)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}
