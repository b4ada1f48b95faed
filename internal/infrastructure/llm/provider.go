package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/service"
)

// Provider is the infrastructure-layer LLM provider interface.
// Each provider implements service.LLMClient so the conversation layer
// can stay provider-agnostic.
type Provider interface {
	service.LLMClient

	// Name returns the provider identifier (e.g. "gemini", "openai")
	Name() string

	// IsAvailable checks if the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// ProviderConfig holds configuration for an LLM provider.
type ProviderConfig struct {
	Name    string        `json:"name"`
	Type    string        `json:"type"` // "gemini" (default) | "openai"
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Model   string        `json:"model"`
	Timeout time.Duration `json:"timeout"`
}

// ProviderFactory creates a Provider from config.
type ProviderFactory func(cfg ProviderConfig, logger *zap.Logger) Provider

var (
	factoryMu sync.RWMutex
	factories = map[string]ProviderFactory{}
)

// RegisterFactory makes a provider type constructible by CreateProvider.
// Each provider sub-package registers itself from init(), so importing
// llm/gemini or llm/openai is all it takes to enable that type.
func RegisterFactory(typeName string, factory ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[typeName] = factory
}

// CreateProvider builds a Provider using the registered factory for
// cfg.Type. An empty Type defaults to "gemini".
func CreateProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	t := cfg.Type
	if t == "" {
		t = "gemini"
	}

	factoryMu.RLock()
	factory, ok := factories[t]
	if !ok {
		available := make([]string, 0, len(factories))
		for k := range factories {
			available = append(available, k)
		}
		factoryMu.RUnlock()
		return nil, fmt.Errorf("unknown provider type %q (available: %v)", t, available)
	}
	factoryMu.RUnlock()

	return factory(cfg, logger), nil
}
