// Package llm provides centralized LLM configuration and client abstractions.
// The outreach agent routes every generation call through this package so the
// provider and model tiers can change without touching callers.
package llm

// ModelTier names a capability level rather than a concrete model, so
// callers state how hard their task is and the config decides what runs it.
type ModelTier string

const (
	// TierLite covers simple tasks: sender-info extraction, follow-up drafting
	TierLite ModelTier = "lite"
	// TierStandard covers moderate reasoning: full application email drafting
	TierStandard ModelTier = "standard"
	// TierAdvanced is reserved for future heavy-reasoning work
	TierAdvanced ModelTier = "advanced"
)

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Config maps tiers to concrete model names for one provider.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the standard Gemini tier mapping.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel resolves a tier to a model name, falling back through standard
// and lite when the requested tier has no mapping.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model, ok := c.Models[t]; ok {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of the config with one tier remapped.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	models := make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		models[k] = v
	}
	models[tier] = model
	return &Config{Provider: c.Provider, Models: models}
}
