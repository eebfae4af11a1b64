package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	settings, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Planner.Provider != "ollama" {
		t.Errorf("expected planner provider 'ollama', got %q", settings.Planner.Provider)
	}
	if settings.Vision.Model != "qwen3-vl:30b" {
		t.Errorf("expected vision model 'qwen3-vl:30b', got %q", settings.Vision.Model)
	}
	if settings.Planner.Temperature != 0 {
		t.Errorf("expected planner temperature 0, got %v", settings.Planner.Temperature)
	}
	if settings.Screen.AfterClick != 500*time.Millisecond {
		t.Errorf("expected after_click 500ms, got %v", settings.Screen.AfterClick)
	}
	if settings.Screen.AfterType != 2*time.Second {
		t.Errorf("expected after_type 2s, got %v", settings.Screen.AfterType)
	}
	if settings.Trace.Dir != "runs" {
		t.Errorf("expected trace dir 'runs', got %q", settings.Trace.Dir)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SIGHTLINE_PLANNER_PROVIDER", "claude")
	t.Setenv("SIGHTLINE_SCREEN_DRIVER", "chromedp")
	t.Setenv("SIGHTLINE_AGENT_MAX_ITERATIONS", "7")

	settings, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Planner.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.Planner.Provider)
	}
	if settings.Screen.Driver != "chromedp" {
		t.Errorf("expected driver 'chromedp', got %q", settings.Screen.Driver)
	}
	if settings.Agent.MaxIterations != 7 {
		t.Errorf("expected 7 iterations, got %d", settings.Agent.MaxIterations)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sightline.yaml")
	content := []byte("vision:\n  provider: openai\n  rate_limit: 2\nscreen:\n  width: 1280\n  height: 800\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Vision.Provider != "openai" || settings.Vision.Model != "gpt-4o" {
		t.Errorf("unexpected vision config: %+v", settings.Vision.LLMConfig)
	}
	if settings.Vision.RateLimit != 2 {
		t.Errorf("expected rate limit 2, got %v", settings.Vision.RateLimit)
	}
	if settings.Screen.Width != 1280 || settings.Screen.Height != 800 {
		t.Errorf("expected 1280x800, got %dx%d", settings.Screen.Width, settings.Screen.Height)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadUnknownProvider(t *testing.T) {
	t.Setenv("SIGHTLINE_PLANNER_PROVIDER", "unknown_provider")
	_, err := Load("")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestLoadVisionWithoutDefaultModel(t *testing.T) {
	t.Setenv("SIGHTLINE_VISION_PROVIDER", "deepseek")
	_, err := Load("")
	if err == nil {
		t.Error("expected error for provider without a vision model")
	}
}

func TestValidateRejectsBadDriver(t *testing.T) {
	t.Setenv("SIGHTLINE_SCREEN_DRIVER", "selenium")
	_, err := Load("")
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	key, err := APIKeyFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := APIKeyFor("openai")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestAPIKeyForOptional(t *testing.T) {
	t.Setenv("OLLAMA_API_KEY", "")

	key, err := APIKeyFor("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "" {
		t.Errorf("expected empty key, got %q", key)
	}
}

func TestAPIKeyForUnknownProvider(t *testing.T) {
	_, err := APIKeyFor("unknown")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestModelFor(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "")
	model, err := ModelFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %q", model)
	}

	t.Setenv("OPENAI_MODEL", "gpt-5")
	model, _ = ModelFor("gpt")
	if model != "gpt-5" {
		t.Errorf("expected env override gpt-5, got %q", model)
	}
}

func TestMustLoadPanics(t *testing.T) {
	t.Setenv("SIGHTLINE_PLANNER_PROVIDER", "unknown_provider")
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown provider")
		}
	}()
	MustLoad("")
}

func TestSupportedProviders(t *testing.T) {
	providers := SupportedProviders()
	if len(providers) != 5 {
		t.Errorf("expected 5 supported providers, got %d", len(providers))
	}
}
