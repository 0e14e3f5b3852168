// Research stack assembly for CLI commands.
//
// Information Hiding:
// - Provider, cache, reader and tool construction from settings
// - Resource cleanup

package cli

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/richinex/sleuth/agent"
	"github.com/richinex/sleuth/config"
	"github.com/richinex/sleuth/llm"
	"github.com/richinex/sleuth/storage"
	"github.com/richinex/sleuth/tools"
	"github.com/richinex/sleuth/web"
)

// directReadTimeout bounds a direct page download.
const directReadTimeout = 30 * time.Second

// Stack is a fully wired research agent and the resources it owns.
type Stack struct {
	Agent     *agent.Agent
	Cache     *storage.ResultCache
	ModelName string
}

// Close releases the cache.
func (s *Stack) Close() error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Close()
}

// BuildStack creates the research agent described by settings.
func BuildStack(settings config.Settings, logger *slog.Logger) (*Stack, error) {
	provider, err := createProvider(settings)
	if err != nil {
		return nil, err
	}

	cache, err := storage.OpenCache(settings.Cache.Path, storage.WithCacheLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open tool cache: %w", err)
	}

	toolList, err := researchTools(settings, cache, logger)
	if err != nil {
		cache.Close()
		return nil, err
	}

	a, err := agent.NewBuilder(provider).
		MaxSteps(settings.Agent.MaxSteps).
		Sampling(settings.Sampling()).
		BaseURL(settings.LLM.BaseURL).
		MaxTries(settings.LLM.MaxTries).
		Tools(toolList).
		Logger(logger).
		Build()
	if err != nil {
		cache.Close()
		return nil, err
	}

	return &Stack{Agent: a, Cache: cache, ModelName: settings.LLM.Model}, nil
}

func createProvider(settings config.Settings) (llm.Provider, error) {
	if settings.LLM.APIKey == "" {
		return nil, fmt.Errorf("no API key: set API_KEY or %s", settings.ProviderType().EnvVar())
	}
	return settings.ProviderType().
		Model(settings.LLM.Model).
		BaseURL(settings.LLM.BaseURL).
		APIKey(settings.LLM.APIKey)
}

// researchTools builds search and visit. The summarizer always talks to an
// OpenAI-compatible endpoint.
func researchTools(settings config.Settings, cache *storage.ResultCache, logger *slog.Logger) ([]tools.Tool, error) {
	if settings.Search.SerperAPIKey == "" {
		return nil, fmt.Errorf("SERPER_API_KEY is required for the search tool")
	}
	if settings.Visit.SummaryAPIKey == "" {
		return nil, fmt.Errorf("SUMMARY_API_KEY is required for the visit tool")
	}

	batch := &tools.BatchExecutor{
		Workers: settings.Batch.Workers,
		Budget:  settings.BatchBudget(),
		Logger:  logger,
	}

	search := tools.NewSearch(web.NewSerper(settings.Search.SerperAPIKey, settings.Search.RateLimit), cache, batch).
		WithLogger(logger)

	summaryProvider := llm.NewOpenAIProvider(settings.Visit.SummaryAPIKey, settings.Visit.SummaryBaseURL, settings.Visit.SummaryModel)
	summarizer := tools.NewSummarizer(summaryProvider, settings.Visit.SummaryBaseURL, settings.Visit.MaxRetries).
		WithLogger(logger)
	visit := tools.NewVisit(pageReader(settings, logger), summarizer, cache, batch).WithLogger(logger)

	return []tools.Tool{search, visit}, nil
}

// pageReader prefers Jina when a key is configured and falls back to a direct fetch.
func pageReader(settings config.Settings, logger *slog.Logger) tools.PageReader {
	direct := web.NewDirect(directReadTimeout)
	if settings.Visit.JinaAPIKey == "" {
		return direct
	}
	return web.NewFallback(web.NewJina(settings.Visit.JinaAPIKey).WithLogger(logger), direct)
}

// ListTools prints the tools offered to the model.
func ListTools(verbose bool) {
	registry, err := tools.NewRegistry(
		tools.NewSearch(nil, nil, nil),
		tools.NewVisit(nil, nil, nil, nil),
	)
	if err != nil {
		fmt.Printf("Failed to list tools: %v\n", err)
		return
	}

	fmt.Println("Available tools:")
	fmt.Println()

	for _, def := range registry.Definitions() {
		fmt.Printf("  %s\n", def.Name)
		fmt.Printf("    %s\n", def.Description)

		props, _ := def.Parameters["properties"].(map[string]interface{})
		if verbose && len(props) > 0 {
			required := map[string]bool{}
			if names, ok := def.Parameters["required"].([]string); ok {
				for _, n := range names {
					required[n] = true
				}
			}
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println("    Parameters:")
			for _, name := range names {
				prop, _ := props[name].(map[string]interface{})
				req := ""
				if required[name] {
					req = "*"
				}
				fmt.Printf("      %s%s: %v - %v\n", name, req, prop["type"], prop["description"])
			}
		}
		fmt.Println()
	}
}
