// Package config provides application settings loaded through viper.
//
// Settings are created via Load() which handles:
// - Default value application
// - Optional YAML file plus SIGHTLINE_* environment overrides
// - Provider-specific model and API key lookup
// - Validation

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/richinex/sightline/llm"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SIGHTLINE_PLANNER_PROVIDER.
const EnvPrefix = "SIGHTLINE"

// Settings holds all application configuration.
type Settings struct {
	Planner LLMConfig     `mapstructure:"planner"`
	Vision  VisionConfig  `mapstructure:"vision"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Screen  ScreenConfig  `mapstructure:"screen"`
	Trace   TraceConfig   `mapstructure:"trace"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	MaxTokens   uint32  `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// VisionConfig configures the model that reads screenshots.
type VisionConfig struct {
	LLMConfig `mapstructure:",squash"`

	RateLimit float64 `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	Burst     int     `mapstructure:"burst"`
	MaxSide   int     `mapstructure:"max_side"`   // longest image side sent to the model
	CacheSize int     `mapstructure:"cache_size"` // prepared frames kept in memory
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxIterations int           `mapstructure:"max_iterations"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ToolRetries   int           `mapstructure:"tool_retries"`
}

// ScreenConfig selects and configures the screen driver.
type ScreenConfig struct {
	Driver      string        `mapstructure:"driver"` // rod or chromedp
	StartURL    string        `mapstructure:"start_url"`
	Headless    bool          `mapstructure:"headless"`
	Width       int           `mapstructure:"width"`
	Height      int           `mapstructure:"height"`
	DeviceScale float64       `mapstructure:"device_scale"`
	AfterClick  time.Duration `mapstructure:"after_click"`
	KeyInterval time.Duration `mapstructure:"key_interval"`
	BeforeEnter time.Duration `mapstructure:"before_enter"`
	AfterType   time.Duration `mapstructure:"after_type"`
}

// TraceConfig locates run directories and the trace index.
type TraceConfig struct {
	Dir   string `mapstructure:"dir"`
	Index string `mapstructure:"index"` // sqlite path, empty disables the index
}

// LoggerConfig configures zap and the optional rotating log file.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"` // console or json
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// ArchiveConfig configures uploads of finished runs.
type ArchiveConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	visionModel  string
	apiKeyEnv    string
	keyOptional  bool
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", llm.ModelGPT4o, llm.ModelGPT4o, "OPENAI_API_KEY", false},
	"anthropic": {"ANTHROPIC_MODEL", llm.ModelClaudeSonnet4, llm.ModelClaudeSonnet4, "ANTHROPIC_API_KEY", false},
	"deepseek":  {"DEEPSEEK_MODEL", llm.ModelDeepSeekChat, "", "DEEPSEEK_API_KEY", false},
	"gemini":    {"GEMINI_MODEL", llm.ModelGeminiFlash25, llm.ModelGeminiFlash25, "GEMINI_API_KEY", false},
	"ollama":    {"OLLAMA_MODEL", llm.ModelOllamaGPTOSS, llm.ModelOllamaQwen3VL, "OLLAMA_API_KEY", true},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
	"local":  "ollama",
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("planner.provider", "ollama")
	v.SetDefault("planner.model", "")
	v.SetDefault("planner.base_url", "")
	v.SetDefault("planner.max_tokens", 4096)
	v.SetDefault("planner.temperature", 0.0)

	v.SetDefault("vision.provider", "ollama")
	v.SetDefault("vision.model", "")
	v.SetDefault("vision.base_url", "")
	v.SetDefault("vision.max_tokens", 2048)
	v.SetDefault("vision.temperature", 0.0)
	v.SetDefault("vision.rate_limit", 0.0)
	v.SetDefault("vision.burst", 1)
	v.SetDefault("vision.max_side", 1568)
	v.SetDefault("vision.cache_size", 16)

	v.SetDefault("agent.max_iterations", 40)
	v.SetDefault("agent.timeout", "15m")
	v.SetDefault("agent.tool_retries", 2)

	v.SetDefault("screen.driver", "rod")
	v.SetDefault("screen.start_url", "about:blank")
	v.SetDefault("screen.headless", false)
	v.SetDefault("screen.width", 1920)
	v.SetDefault("screen.height", 1080)
	v.SetDefault("screen.device_scale", 1.0)
	v.SetDefault("screen.after_click", "500ms")
	v.SetDefault("screen.key_interval", "50ms")
	v.SetDefault("screen.before_enter", "200ms")
	v.SetDefault("screen.after_type", "2s")

	v.SetDefault("trace.dir", "runs")
	v.SetDefault("trace.index", "runs/index.db")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "sightline")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "runs")
	v.SetDefault("archive.region", "")
}

// NewViper returns a viper instance with defaults and environment overrides
// wired. If path is non-empty the file is read as well.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// Load reads settings from defaults, the optional file at path and the environment.
func Load(path string) (Settings, error) {
	v, err := NewViper(path)
	if err != nil {
		return Settings{}, err
	}
	return FromViper(v)
}

// FromViper decodes, completes and validates settings held by v.
func FromViper(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}

	s.Planner.Provider = normalizeProvider(s.Planner.Provider)
	s.Vision.Provider = normalizeProvider(s.Vision.Provider)

	if s.Planner.Model == "" {
		model, err := ModelFor(s.Planner.Provider)
		if err != nil {
			return Settings{}, fmt.Errorf("planner: %w", err)
		}
		s.Planner.Model = model
	}
	if s.Vision.Model == "" {
		model, err := VisionModelFor(s.Vision.Provider)
		if err != nil {
			return Settings{}, fmt.Errorf("vision: %w", err)
		}
		s.Vision.Model = model
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// MustLoad loads settings and panics on failure.
// Use this only when configuration errors should be fatal.
func MustLoad(path string) Settings {
	settings, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Validate checks value ranges and enumerations.
func (s Settings) Validate() error {
	if _, err := getProviderInfo(s.Planner.Provider); err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	if _, err := getProviderInfo(s.Vision.Provider); err != nil {
		return fmt.Errorf("vision: %w", err)
	}
	if s.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be a positive integer")
	}
	if s.Agent.ToolRetries < 0 {
		return fmt.Errorf("agent.tool_retries must not be negative")
	}
	switch s.Screen.Driver {
	case "rod", "chromedp":
	default:
		return fmt.Errorf("screen.driver must be rod or chromedp, got %q", s.Screen.Driver)
	}
	if s.Screen.Width <= 0 || s.Screen.Height <= 0 {
		return fmt.Errorf("screen.width and screen.height must be positive")
	}
	if s.Screen.DeviceScale <= 0 {
		return fmt.Errorf("screen.device_scale must be positive")
	}
	if s.Vision.MaxSide < 0 {
		return fmt.Errorf("vision.max_side must not be negative")
	}
	if s.Vision.CacheSize <= 0 {
		return fmt.Errorf("vision.cache_size must be a positive integer")
	}
	if s.Trace.Dir == "" {
		return fmt.Errorf("trace.dir is required")
	}
	return nil
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
// Providers that run without a key return an empty key and no error.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" && !info.keyOptional {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the planner model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// VisionModelFor returns the default vision model for a provider.
func VisionModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}
	if info.visionModel == "" {
		return "", fmt.Errorf("provider %q has no default vision model; set vision.model", provider)
	}
	return info.visionModel, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}
