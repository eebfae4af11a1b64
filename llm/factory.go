// Provider factory: pick a vendor by name, adjust a few knobs, build.
//
//	planner, err := llm.ProviderOpenAI.FromEnv()
//
//	vision, err := llm.ProviderOllama.
//	    ForVision().
//	    BaseURL("http://gpu-box:11434/v1").
//	    FromEnv()
//
//	claude, err := llm.ProviderAnthropic.
//	    Model(llm.ModelClaudeSonnet4).
//	    MaxTokens(8192).
//	    APIKey(key)
//
// Information Hiding:
// - Per-vendor key variables and default models
// - Fallback token and temperature values
// - Which constructor serves which vendor

package llm

import (
	"fmt"
	"os"
	"strings"
)

// ProviderType identifies a vendor API.
type ProviderType int

const (
	ProviderOpenAI ProviderType = iota
	ProviderAnthropic
	ProviderDeepSeek
	ProviderGemini
	// ProviderOllama is a local or remote Ollama server. It needs no key.
	ProviderOllama
)

// Model identifiers used as defaults. Any other identifier the vendor
// accepts can be passed to Model.
const (
	ModelGPT4o         = "gpt-4o"
	ModelClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelDeepSeekChat  = "deepseek-chat"
	ModelGeminiFlash25 = "gemini-2.5-flash"
	ModelOllamaGPTOSS  = "gpt-oss"
	ModelOllamaQwen3VL = "qwen3-vl:30b"
)

const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
	visionMaxTokens    = 2048
)

type vendor struct {
	name        string
	keyEnv      string
	model       string
	visionModel string // empty: no model known to read screenshots
}

var vendors = map[ProviderType]vendor{
	ProviderOpenAI:    {"openai", "OPENAI_API_KEY", ModelGPT4o, ModelGPT4o},
	ProviderAnthropic: {"anthropic", "ANTHROPIC_API_KEY", ModelClaudeSonnet4, ModelClaudeSonnet4},
	ProviderDeepSeek:  {"deepseek", "DEEPSEEK_API_KEY", ModelDeepSeekChat, ""},
	ProviderGemini:    {"gemini", "GEMINI_API_KEY", ModelGeminiFlash25, ModelGeminiFlash25},
	ProviderOllama:    {"ollama", "OLLAMA_API_KEY", ModelOllamaGPTOSS, ModelOllamaQwen3VL},
}

var vendorAliases = map[string]ProviderType{
	"openai":    ProviderOpenAI,
	"gpt":       ProviderOpenAI,
	"anthropic": ProviderAnthropic,
	"claude":    ProviderAnthropic,
	"deepseek":  ProviderDeepSeek,
	"gemini":    ProviderGemini,
	"google":    ProviderGemini,
	"ollama":    ProviderOllama,
	"local":     ProviderOllama,
}

// ParseProviderType resolves a vendor name or alias, ignoring case.
func ParseProviderType(s string) (ProviderType, error) {
	if p, ok := vendorAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown provider: %s", s)
}

func (p ProviderType) String() string {
	if v, ok := vendors[p]; ok {
		return v.name
	}
	return "unknown"
}

// EnvVar is the environment variable holding the vendor's API key.
func (p ProviderType) EnvVar() string { return vendors[p].keyEnv }

// DefaultModel is the planner model used when none is set.
func (p ProviderType) DefaultModel() string { return vendors[p].model }

// VisionModel is the screenshot-reading model used when none is set. It is
// empty for vendors without one.
func (p ProviderType) VisionModel() string { return vendors[p].visionModel }

// KeyOptional reports whether the provider works without an API key.
func (p ProviderType) KeyOptional() bool { return p == ProviderOllama }

// FromEnv builds a provider with defaults, reading the key from the environment.
func (p ProviderType) FromEnv() (Provider, error) { return NewProviderBuilder(p).FromEnv() }

// APIKey builds a provider with defaults and an explicit key.
func (p ProviderType) APIKey(key string) (Provider, error) { return NewProviderBuilder(p).APIKey(key) }

// Model starts a builder with the given model.
func (p ProviderType) Model(model string) *ProviderBuilder { return NewProviderBuilder(p).Model(model) }

// ForVision starts a builder tuned for the vision client.
func (p ProviderType) ForVision() *ProviderBuilder { return NewProviderBuilder(p).ForVision() }

// ProviderBuilder collects options for one provider. Zero values fall back
// to the vendor defaults at build time.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	baseURL      string
	maxTokens    uint32
	temperature  *float32
	vision       bool
}

// NewProviderBuilder starts a builder for providerType.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{providerType: providerType}
}

// Model sets the model identifier.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// BaseURL overrides the endpoint. Only OpenAI-compatible vendors honor it.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.baseURL = url
	return b
}

func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// ForVision switches the defaults to the vendor's vision model with greedy
// decoding. Explicit Model and Temperature calls still win.
func (b *ProviderBuilder) ForVision() *ProviderBuilder {
	b.vision = true
	return b
}

// FromEnv builds the provider, reading the key from the environment.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	envVar := b.providerType.EnvVar()
	apiKey := os.Getenv(envVar)
	if apiKey == "" && !b.providerType.KeyOptional() {
		return nil, fmt.Errorf("%s: %s environment variable not set", b.providerType, envVar)
	}
	return b.build(apiKey)
}

// APIKey builds the provider with an explicit key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

func (b *ProviderBuilder) build(apiKey string) (Provider, error) {
	if _, ok := vendors[b.providerType]; !ok {
		return nil, fmt.Errorf("unknown provider type: %v", b.providerType)
	}

	model, maxTokens, temperature := b.providerType.DefaultModel(), uint32(defaultMaxTokens), float32(defaultTemperature)
	if b.vision {
		model, maxTokens, temperature = b.providerType.VisionModel(), visionMaxTokens, 0
		if model == "" && b.model == "" {
			return nil, fmt.Errorf("%s has no default vision model", b.providerType)
		}
	}
	if b.model != "" {
		model = b.model
	}
	if b.maxTokens != 0 {
		maxTokens = b.maxTokens
	}
	if b.temperature != nil {
		temperature = *b.temperature
	}

	switch b.providerType {
	case ProviderOpenAI:
		if b.baseURL != "" {
			return NewOpenAICompatibleProvider("openai", apiKey, b.baseURL, model, maxTokens, temperature), nil
		}
		return NewOpenAIProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderDeepSeek:
		return NewDeepSeekProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderGemini:
		return NewGeminiProvider(apiKey, model, maxTokens, temperature), nil
	default:
		return NewOllamaProvider(apiKey, b.baseURL, model, maxTokens, temperature), nil
	}
}
