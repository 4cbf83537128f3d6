package registry

import "github.com/shopspring/decimal"

// Vendor families, matched against stored user credentials and system keys.
const (
	VendorOpenAI = "openai"
	VendorGemini = "gemini"
	VendorOllama = "ollama"
	VendorMock   = "mock"
)

// NewDefault builds the production provider table. The legacy alias set is
// frozen for backward compatibility with requests issued against old
// deployments; removing or remapping an alias is a breaking change.
func NewDefault() (*Registry, error) {
	descriptors := []Descriptor{
		{
			Id:           "gpt-4o",
			ModelName:    "gpt-4o",
			CreditCost:   decimal.NewFromFloat(2.0),
			VendorFamily: VendorOpenAI,
			Tier:         "premium",
			Aliases:      []string{"gpt-4", "openai-gpt4", "chatgpt-4"},
		},
		{
			Id:           "gpt-4o-mini",
			ModelName:    "gpt-4o-mini",
			CreditCost:   decimal.NewFromFloat(0.5),
			VendorFamily: VendorOpenAI,
			Tier:         "standard",
			Aliases:      []string{"gpt-3.5-turbo", "openai-default", "chatgpt"},
		},
		{
			Id:           "gemini-1.5-pro",
			ModelName:    "gemini-1.5-pro",
			CreditCost:   decimal.NewFromFloat(1.5),
			VendorFamily: VendorGemini,
			Tier:         "premium",
			Aliases:      []string{"google-gemini", "gemini-pro"},
		},
		{
			Id:           "gemini-1.5-flash",
			ModelName:    "gemini-1.5-flash",
			CreditCost:   decimal.NewFromFloat(0.5),
			VendorFamily: VendorGemini,
			Tier:         "standard",
			Aliases:      []string{"gemini-flash"},
		},
		{
			Id:           "llama3",
			ModelName:    "llama3",
			CreditCost:   decimal.NewFromFloat(0.25),
			VendorFamily: VendorOllama,
			Tier:         "basic",
			Aliases:      []string{"ollama-llama3", "local-llama"},
		},
		{
			Id:           "mock-echo",
			ModelName:    "mock-echo",
			CreditCost:   decimal.Zero,
			VendorFamily: VendorMock,
			Tier:         "internal",
			Aliases:      []string{"echo"},
		},
	}

	// Every chain ends in the deterministic mock so a dispatch always has a
	// last resort.
	fallbacks := map[string][]string{
		"gpt-4o":           {"gpt-4o-mini", "gemini-1.5-flash", "mock-echo"},
		"gpt-4o-mini":      {"gemini-1.5-flash", "mock-echo"},
		"gemini-1.5-pro":   {"gemini-1.5-flash", "gpt-4o-mini", "mock-echo"},
		"gemini-1.5-flash": {"gpt-4o-mini", "mock-echo"},
		"llama3":           {"gpt-4o-mini", "mock-echo"},
	}

	return New(descriptors, fallbacks)
}
