package service

import (
	"context"
	"strings"

	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/pkg/logger"
	"ai-dispatch-be/internal/repository/memory"
	"ai-dispatch-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// ICredentialService decides whether a user funds their own provider calls.
// The policy: a present, non-empty user-scoped key counts as self-funded,
// regardless of any system-level key for the same vendor.
type ICredentialService interface {
	HasOwnCredential(ctx context.Context, userId uuid.UUID, vendorFamily string) (bool, error)
	GetCredential(ctx context.Context, userId uuid.UUID, vendorFamily string) (*entity.ApiCredential, error)

	SetCredential(ctx context.Context, userId uuid.UUID, vendorFamily, apiKey string) (*entity.ApiCredential, error)
	RemoveCredential(ctx context.Context, userId uuid.UUID, vendorFamily string) error
	ListCredentials(ctx context.Context, userId uuid.UUID) ([]*entity.ApiCredential, error)
}

type credentialService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *memory.CredentialCache
	log        logger.ILogger
}

func NewCredentialService(
	uowFactory unitofwork.RepositoryFactory,
	cache *memory.CredentialCache,
	log logger.ILogger,
) ICredentialService {
	return &credentialService{
		uowFactory: uowFactory,
		cache:      cache,
		log:        log,
	}
}

func (s *credentialService) HasOwnCredential(ctx context.Context, userId uuid.UUID, vendorFamily string) (bool, error) {
	cred, err := s.GetCredential(ctx, userId, vendorFamily)
	if err != nil {
		return false, err
	}
	return cred != nil, nil
}

func (s *credentialService) GetCredential(ctx context.Context, userId uuid.UUID, vendorFamily string) (*entity.ApiCredential, error) {
	if cred, hit := s.cache.Get(userId, vendorFamily); hit {
		return cred, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	cred, err := uow.CredentialRepository().FindOne(ctx, userId, vendorFamily)
	if err != nil {
		return nil, err
	}

	// A stored but blank key does not count as a credential.
	if cred != nil && strings.TrimSpace(cred.ApiKey) == "" {
		cred = nil
	}

	s.cache.Set(userId, vendorFamily, cred)
	return cred, nil
}

func (s *credentialService) SetCredential(ctx context.Context, userId uuid.UUID, vendorFamily, apiKey string) (*entity.ApiCredential, error) {
	cred := &entity.ApiCredential{
		UserId:       userId,
		VendorFamily: vendorFamily,
		ApiKey:       strings.TrimSpace(apiKey),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.CredentialRepository().Upsert(ctx, cred); err != nil {
		return nil, err
	}
	s.cache.Invalidate(userId, vendorFamily)

	s.log.Info("credential", "user credential stored", map[string]interface{}{
		"user_id": userId,
		"vendor":  vendorFamily,
	})
	return cred, nil
}

func (s *credentialService) RemoveCredential(ctx context.Context, userId uuid.UUID, vendorFamily string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.CredentialRepository().Delete(ctx, userId, vendorFamily); err != nil {
		return err
	}
	s.cache.Invalidate(userId, vendorFamily)

	s.log.Info("credential", "user credential removed", map[string]interface{}{
		"user_id": userId,
		"vendor":  vendorFamily,
	})
	return nil
}

func (s *credentialService) ListCredentials(ctx context.Context, userId uuid.UUID) ([]*entity.ApiCredential, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.CredentialRepository().FindAllByUser(ctx, userId)
}
