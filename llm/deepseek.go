// DeepSeek and Ollama providers.
//
// Information Hiding:
// - Both speak the OpenAI-compatible API and reuse OpenAIProvider
// - Base URLs and key defaults are hidden here

package llm

const (
	deepseekBaseURL = "https://api.deepseek.com/v1"

	// DefaultOllamaBaseURL is the OpenAI-compatible endpoint of a local Ollama server.
	DefaultOllamaBaseURL = "http://localhost:11434/v1"

	// ollamaPlaceholderKey is sent when no key is configured; Ollama ignores it.
	ollamaPlaceholderKey = "ollama"
)

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return NewOpenAICompatibleProvider("deepseek", apiKey, deepseekBaseURL, model, maxTokens, temperature)
}

// NewOllamaProvider creates a provider for a local or remote Ollama server.
// An empty baseURL selects DefaultOllamaBaseURL.
func NewOllamaProvider(apiKey, baseURL, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	if apiKey == "" {
		apiKey = ollamaPlaceholderKey
	}
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	return NewOpenAICompatibleProvider("ollama", apiKey, baseURL, model, maxTokens, temperature)
}
