package factory

import (
	"fmt"

	"ai-dispatch-be/pkg/llm"
	"ai-dispatch-be/pkg/llm/gemini"
	"ai-dispatch-be/pkg/llm/mock"
	"ai-dispatch-be/pkg/llm/ollama"
	"ai-dispatch-be/pkg/llm/openai"
	"ai-dispatch-be/pkg/llm/registry"
)

// Config carries the transport endpoints for each vendor family.
type Config struct {
	OpenAIBaseURL string
	GeminiBaseURL string
	OllamaBaseURL string
}

// NewProvider builds one vendor transport client.
func NewProvider(vendorFamily string, cfg Config) (llm.Provider, error) {
	switch vendorFamily {
	case registry.VendorOpenAI:
		return openai.NewOpenAIProvider(cfg.OpenAIBaseURL, ""), nil
	case registry.VendorGemini:
		return gemini.NewGeminiProvider(cfg.GeminiBaseURL, ""), nil
	case registry.VendorOllama:
		return ollama.NewOllamaProvider(cfg.OllamaBaseURL, ""), nil
	case registry.VendorMock:
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported vendor family: %s", vendorFamily)
	}
}

// BuildProviderSet builds one client per vendor family present in the
// registry. Model names are chosen per request from the resolved descriptor.
func BuildProviderSet(reg *registry.Registry, cfg Config) (map[string]llm.Provider, error) {
	providers := make(map[string]llm.Provider)
	for _, d := range reg.List() {
		if _, ok := providers[d.VendorFamily]; ok {
			continue
		}
		p, err := NewProvider(d.VendorFamily, cfg)
		if err != nil {
			return nil, err
		}
		providers[d.VendorFamily] = p
	}
	return providers, nil
}
