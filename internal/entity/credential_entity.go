package entity

import (
	"time"

	"github.com/google/uuid"
)

// ApiCredential is a user-stored API key for one vendor family.
// A present, non-empty key makes calls to that vendor self-funded.
type ApiCredential struct {
	Id           uuid.UUID
	UserId       uuid.UUID
	VendorFamily string
	ApiKey       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FundingSource identifies which mechanism pays for a provider call.
type FundingSource string

const (
	FundingSelfFunded   FundingSource = "self_funded"
	FundingCreditFunded FundingSource = "credit_funded"
)
