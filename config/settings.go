// Package config provides application settings.
//
// Settings are created via Load() which handles:
// - Default value application
// - An optional YAML file
// - Environment variable parsing with validation (highest precedence)
// - Provider-specific API key lookup

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/richinex/sleuth/internal/logging"
	"github.com/richinex/sleuth/llm"
	"gopkg.in/yaml.v3"
)

// Settings holds all application configuration.
type Settings struct {
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	Search  SearchConfig  `yaml:"search"`
	Visit   VisitConfig   `yaml:"visit"`
	Cache   CacheConfig   `yaml:"cache"`
	Batch   BatchConfig   `yaml:"batch"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LLMConfig holds the research model configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	MaxTries    int     `yaml:"max_tries"`
}

// AgentConfig holds research loop configuration.
type AgentConfig struct {
	MaxSteps       int  `yaml:"max_steps"`
	EnableThinking bool `yaml:"enable_thinking"`
}

// SearchConfig configures the search backend.
type SearchConfig struct {
	SerperAPIKey string  `yaml:"serper_api_key"`
	RateLimit    float64 `yaml:"rate_limit"` // queries per second, 0 = unlimited
}

// VisitConfig configures page reading and summarization.
type VisitConfig struct {
	JinaAPIKey     string `yaml:"jina_api_key"`
	SummaryAPIKey  string `yaml:"summary_api_key"`
	SummaryBaseURL string `yaml:"summary_base_url"`
	SummaryModel   string `yaml:"summary_model"`
	MaxRetries     int    `yaml:"max_retries"`
}

// CacheConfig configures the tool result cache.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// BatchConfig configures batched tool execution.
type BatchConfig struct {
	Workers       int `yaml:"workers"`
	BudgetSeconds int `yaml:"budget_seconds"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		LLM: LLMConfig{
			Provider:    "openai",
			Temperature: 0.7,
			MaxTokens:   8192,
			MaxTries:    5,
		},
		Agent: AgentConfig{
			MaxSteps:       30,
			EnableThinking: true,
		},
		Visit: VisitConfig{
			MaxRetries: 1,
		},
		Cache: CacheConfig{
			Path: "tool_cache.db",
		},
		Batch: BatchConfig{
			Workers:       5,
			BudgetSeconds: 900,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds settings from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates them.
func Load(path string) (Settings, error) {
	settings := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := settings.applyEnv(); err != nil {
		return Settings{}, err
	}
	settings.fillProviderDefaults()

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// MustLoad is Load that panics on error.
// Use this only when configuration errors should be fatal.
func MustLoad(path string) Settings {
	settings, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

func (s *Settings) applyEnv() error {
	var err error
	setString(&s.LLM.Provider, "SLEUTH_PROVIDER")
	setString(&s.LLM.APIKey, "API_KEY")
	setString(&s.LLM.BaseURL, "API_BASE_URL")
	setString(&s.LLM.Model, "MODEL_NAME")
	if s.LLM.Temperature, err = getEnvFloat64("LLM_TEMPERATURE", s.LLM.Temperature); err != nil {
		return err
	}
	if s.LLM.MaxTokens, err = getEnvInt("LLM_MAX_TOKENS", s.LLM.MaxTokens); err != nil {
		return err
	}
	if s.LLM.MaxTries, err = getEnvInt("LLM_MAX_TRIES", s.LLM.MaxTries); err != nil {
		return err
	}

	if s.Agent.MaxSteps, err = getEnvInt("AGENT_MAX_STEPS", s.Agent.MaxSteps); err != nil {
		return err
	}
	if s.Agent.EnableThinking, err = getEnvBool("AGENT_ENABLE_THINKING", s.Agent.EnableThinking); err != nil {
		return err
	}

	setString(&s.Search.SerperAPIKey, "SERPER_API_KEY")
	if s.Search.RateLimit, err = getEnvFloat64("SEARCH_RATE_LIMIT", s.Search.RateLimit); err != nil {
		return err
	}

	setString(&s.Visit.JinaAPIKey, "JINA_API_KEY")
	setString(&s.Visit.SummaryAPIKey, "SUMMARY_API_KEY")
	setString(&s.Visit.SummaryBaseURL, "SUMMARY_API_BASE_URL")
	setString(&s.Visit.SummaryModel, "SUMMARY_MODEL_NAME")
	if s.Visit.MaxRetries, err = getEnvInt("VISIT_SERVER_MAX_RETRIES", s.Visit.MaxRetries); err != nil {
		return err
	}

	setString(&s.Cache.Path, "TOOL_CACHE_PATH")
	if s.Batch.Workers, err = getEnvInt("BATCH_WORKERS", s.Batch.Workers); err != nil {
		return err
	}
	if s.Batch.BudgetSeconds, err = getEnvInt("BATCH_BUDGET_SECONDS", s.Batch.BudgetSeconds); err != nil {
		return err
	}

	setString(&s.Log.Level, "LOG_LEVEL")
	setString(&s.Log.Format, "LOG_FORMAT")
	setString(&s.Metrics.Addr, "METRICS_ADDR")
	return nil
}

// fillProviderDefaults applies the provider's default model and key variable.
// The summarizer falls back to the research model settings.
func (s *Settings) fillProviderDefaults() {
	pt, err := llm.ParseProviderType(s.LLM.Provider)
	if err != nil {
		return
	}
	if s.LLM.Model == "" {
		s.LLM.Model = pt.DefaultModel()
	}
	if s.LLM.APIKey == "" && pt.EnvVar() != "" {
		s.LLM.APIKey = os.Getenv(pt.EnvVar())
	}
	if pt == llm.ProviderDeepSeek && s.LLM.BaseURL == "" {
		s.LLM.BaseURL = llm.DeepSeekBaseURL
	}

	if s.Visit.SummaryModel == "" {
		s.Visit.SummaryModel = s.LLM.Model
	}
	if s.Visit.SummaryAPIKey == "" {
		s.Visit.SummaryAPIKey = s.LLM.APIKey
	}
	if s.Visit.SummaryBaseURL == "" {
		s.Visit.SummaryBaseURL = s.LLM.BaseURL
	}
}

// Validate checks value ranges. API keys are not required here; commands
// that need them report their absence.
func (s *Settings) Validate() error {
	var errs []error
	if _, err := llm.ParseProviderType(s.LLM.Provider); err != nil {
		errs = append(errs, err)
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %v", s.LLM.Temperature))
	}
	if s.LLM.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("max tokens must be positive, got %d", s.LLM.MaxTokens))
	}
	if s.LLM.MaxTries < 1 {
		errs = append(errs, fmt.Errorf("max tries must be at least 1, got %d", s.LLM.MaxTries))
	}
	if s.Agent.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("max steps must be at least 1, got %d", s.Agent.MaxSteps))
	}
	if s.Search.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("search rate limit must not be negative, got %v", s.Search.RateLimit))
	}
	if s.Visit.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("visit max retries must be at least 1, got %d", s.Visit.MaxRetries))
	}
	if s.Batch.Workers < 1 {
		errs = append(errs, fmt.Errorf("batch workers must be at least 1, got %d", s.Batch.Workers))
	}
	if s.Batch.BudgetSeconds < 1 {
		errs = append(errs, fmt.Errorf("batch budget must be positive, got %d", s.Batch.BudgetSeconds))
	}
	if s.Cache.Path == "" {
		errs = append(errs, errors.New("cache path must not be empty"))
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch logging.Format(s.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format: %q", s.Log.Format))
	}
	return errors.Join(errs...)
}

// ProviderType returns the parsed research provider.
func (s *Settings) ProviderType() llm.ProviderType {
	pt, _ := llm.ParseProviderType(s.LLM.Provider)
	return pt
}

// BatchBudget returns the batch wall-clock budget.
func (s *Settings) BatchBudget() time.Duration {
	return time.Duration(s.Batch.BudgetSeconds) * time.Second
}

// Sampling returns the research loop sampling settings.
func (s *Settings) Sampling() llm.Sampling {
	return llm.Sampling{
		Temperature:    float32(s.LLM.Temperature),
		MaxTokens:      s.LLM.MaxTokens,
		EnableThinking: s.Agent.EnableThinking,
	}
}

// Environment variable helpers with proper error handling

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}
