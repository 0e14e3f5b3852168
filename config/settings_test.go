package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/richinex/sleuth/llm"
)

var envKeys = []string{
	"SLEUTH_PROVIDER", "API_KEY", "API_BASE_URL", "MODEL_NAME", "LLM_TEMPERATURE",
	"LLM_MAX_TOKENS", "LLM_MAX_TRIES", "AGENT_MAX_STEPS", "AGENT_ENABLE_THINKING",
	"SERPER_API_KEY", "SEARCH_RATE_LIMIT", "JINA_API_KEY", "SUMMARY_API_KEY",
	"SUMMARY_API_BASE_URL", "SUMMARY_MODEL_NAME", "VISIT_SERVER_MAX_RETRIES",
	"TOOL_CACHE_PATH", "BATCH_WORKERS", "BATCH_BUDGET_SECONDS", "LOG_LEVEL",
	"LOG_FORMAT", "METRICS_ADDR", "ANTHROPIC_API_KEY", "DEEPSEEK_API_KEY", "GEMINI_API_KEY",
}

// clearEnv blanks every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sleuth.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	settings, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", settings.LLM.Provider)
	}
	if settings.LLM.Model != llm.ModelOpenAIGPT5 {
		t.Errorf("expected default model %q, got %q", llm.ModelOpenAIGPT5, settings.LLM.Model)
	}
	if settings.Agent.MaxSteps != 30 || !settings.Agent.EnableThinking {
		t.Errorf("unexpected agent defaults: %+v", settings.Agent)
	}
	if settings.Visit.MaxRetries != 1 || settings.Cache.Path != "tool_cache.db" {
		t.Errorf("unexpected defaults: visit %+v cache %+v", settings.Visit, settings.Cache)
	}
	if settings.BatchBudget() != 900*time.Second || settings.Batch.Workers != 5 {
		t.Errorf("unexpected batch defaults: %+v", settings.Batch)
	}
	sampling := settings.Sampling()
	if sampling.Temperature != 0.7 || sampling.MaxTokens != 8192 {
		t.Errorf("unexpected sampling: %+v", sampling)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
llm:
  provider: anthropic
  model: claude-from-file
  temperature: 0.3
agent:
  max_steps: 12
batch:
  workers: 8
`)
	t.Setenv("AGENT_MAX_STEPS", "20")
	t.Setenv("ANTHROPIC_API_KEY", "ak-test")

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.ProviderType() != llm.ProviderAnthropic {
		t.Errorf("expected anthropic provider, got %v", settings.ProviderType())
	}
	if settings.LLM.Model != "claude-from-file" || settings.LLM.Temperature != 0.3 {
		t.Errorf("file values not applied: %+v", settings.LLM)
	}
	if settings.Agent.MaxSteps != 20 {
		t.Errorf("expected env to override max steps to 20, got %d", settings.Agent.MaxSteps)
	}
	if settings.Batch.Workers != 8 || settings.Batch.BudgetSeconds != 900 {
		t.Errorf("expected file workers with default budget, got %+v", settings.Batch)
	}
	if settings.LLM.APIKey != "ak-test" {
		t.Errorf("expected provider key from ANTHROPIC_API_KEY, got %q", settings.LLM.APIKey)
	}
}

func TestLoadSummaryFallsBackToResearchModel(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "main-key")
	t.Setenv("API_BASE_URL", "https://openrouter.ai/api/v1")
	t.Setenv("MODEL_NAME", "moonshotai/kimi-k2")

	settings, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Visit.SummaryModel != "moonshotai/kimi-k2" ||
		settings.Visit.SummaryAPIKey != "main-key" ||
		settings.Visit.SummaryBaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("summary settings did not fall back: %+v", settings.Visit)
	}
}

func TestLoadDeepSeekBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLEUTH_PROVIDER", "deepseek")

	settings, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.BaseURL != llm.DeepSeekBaseURL {
		t.Errorf("expected DeepSeek base URL, got %q", settings.LLM.BaseURL)
	}
}

func TestLoadWithInvalidEnvVar(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LLM_MAX_TOKENS", "not-a-number"},
		{"LLM_TEMPERATURE", "warm"},
		{"AGENT_ENABLE_THINKING", "maybe"},
		{"BATCH_WORKERS", "five"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			if err == nil {
				t.Fatal("expected error for invalid env var")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("expected error to mention %s, got %v", tt.key, err)
			}
		})
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown provider", "SLEUTH_PROVIDER", "unknown_provider"},
		{"zero steps", "AGENT_MAX_STEPS", "0"},
		{"hot temperature", "LLM_TEMPERATURE", "3.5"},
		{"negative rate", "SEARCH_RATE_LIMIT", "-1"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"zero budget", "BATCH_BUDGET_SECONDS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(""); err == nil {
				t.Errorf("expected validation error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "llm: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestMustLoadPanics(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLEUTH_PROVIDER", "nope")

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustLoad("")
}
