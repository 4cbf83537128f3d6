package main

import (
	"context"
	"flag"
	"log"
	"os"

	"ai-dispatch-be/internal/pkg/logger"
	"ai-dispatch-be/internal/repository/unitofwork"
	"ai-dispatch-be/internal/service"
	"ai-dispatch-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Grants the signup demo credits to an existing user. Useful for local
// environments without the identity event stream running.
func main() {
	userIdFlag := flag.String("user", "", "user id to grant demo credits to")
	amountFlag := flag.String("amount", "10", "credit amount to grant")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	userId, err := uuid.Parse(*userIdFlag)
	if err != nil {
		log.Fatalf("Error: invalid -user flag: %v", err)
	}
	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil || amount.IsNegative() {
		log.Fatalf("Error: invalid -amount flag: %s", *amountFlag)
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger("seed.log", false)
	ledger := service.NewLedgerService(uowFactory, sysLogger, nil, amount)

	row, err := ledger.GrantSignupBonus(context.Background(), userId)
	if err != nil {
		log.Fatalf("Error: failed to grant bonus: %v", err)
	}
	if row == nil {
		log.Printf("User %s already has a bonus row, nothing to do", userId)
		return
	}
	log.Printf("✅ Granted %s credits to %s (balance: %s)", row.Amount, userId, row.BalanceAfter)
}
