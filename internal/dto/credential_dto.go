package dto

import "time"

// --- Credential DTOs ---

type SetCredentialRequest struct {
	ApiKey string `json:"api_key" validate:"required,min=8"`
}

type CredentialResponse struct {
	VendorFamily string `json:"vendor_family"`
	// The key itself is never echoed back; only a masked suffix.
	KeyHint   string    `json:"key_hint"`
	UpdatedAt time.Time `json:"updated_at"`
}
