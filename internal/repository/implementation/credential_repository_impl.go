package implementation

import (
	"context"
	"errors"

	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/mapper"
	"ai-dispatch-be/internal/model"
	"ai-dispatch-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CredentialRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CredentialMapper
}

func NewCredentialRepository(db *gorm.DB) contract.CredentialRepository {
	return &CredentialRepositoryImpl{
		db:     db,
		mapper: mapper.NewCredentialMapper(),
	}
}

func (r *CredentialRepositoryImpl) Upsert(ctx context.Context, cred *entity.ApiCredential) error {
	m := r.mapper.ToModel(cred)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "vendor_family"}},
			DoUpdates: clause.AssignmentColumns([]string{"api_key", "updated_at"}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*cred = *r.mapper.ToEntity(m)
	return nil
}

func (r *CredentialRepositoryImpl) Delete(ctx context.Context, userId uuid.UUID, vendorFamily string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND vendor_family = ?", userId, vendorFamily).
		Delete(&model.ApiCredential{}).Error
}

func (r *CredentialRepositoryImpl) FindOne(ctx context.Context, userId uuid.UUID, vendorFamily string) (*entity.ApiCredential, error) {
	var m model.ApiCredential
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND vendor_family = ?", userId, vendorFamily).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CredentialRepositoryImpl) FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.ApiCredential, error) {
	var models []*model.ApiCredential
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ApiCredential, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
