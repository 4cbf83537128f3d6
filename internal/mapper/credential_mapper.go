package mapper

import (
	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/model"
)

type CredentialMapper struct{}

func NewCredentialMapper() *CredentialMapper {
	return &CredentialMapper{}
}

func (m *CredentialMapper) ToEntity(c *model.ApiCredential) *entity.ApiCredential {
	if c == nil {
		return nil
	}
	return &entity.ApiCredential{
		Id:           c.Id,
		UserId:       c.UserId,
		VendorFamily: c.VendorFamily,
		ApiKey:       c.ApiKey,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (m *CredentialMapper) ToModel(c *entity.ApiCredential) *model.ApiCredential {
	if c == nil {
		return nil
	}
	return &model.ApiCredential{
		Id:           c.Id,
		UserId:       c.UserId,
		VendorFamily: c.VendorFamily,
		ApiKey:       c.ApiKey,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
