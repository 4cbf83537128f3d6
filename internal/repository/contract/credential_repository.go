package contract

import (
	"context"

	"ai-dispatch-be/internal/entity"

	"github.com/google/uuid"
)

// CredentialRepository stores per-user API keys, keyed by vendor family.
type CredentialRepository interface {
	Upsert(ctx context.Context, cred *entity.ApiCredential) error
	Delete(ctx context.Context, userId uuid.UUID, vendorFamily string) error
	FindOne(ctx context.Context, userId uuid.UUID, vendorFamily string) (*entity.ApiCredential, error)
	FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.ApiCredential, error)
}
