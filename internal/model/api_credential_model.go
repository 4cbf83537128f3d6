package model

import (
	"time"

	"github.com/google/uuid"
)

type ApiCredential struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_credential_user_vendor,priority:1"`
	VendorFamily string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_credential_user_vendor,priority:2"`
	ApiKey       string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (ApiCredential) TableName() string {
	return "api_credentials"
}
