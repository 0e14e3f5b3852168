// Package main provides the sleuth CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/sleuth/cli"
	"github.com/richinex/sleuth/config"
	"github.com/richinex/sleuth/internal/logging"
	"github.com/richinex/sleuth/metrics"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	logLevel    string
	metricsAddr string
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "sleuth",
		Short: "Bounded-step deep-research agent",
		Long: `A CLI tool for answering questions with a ReAct research agent.

The agent searches the web, reads pages through a summarizer and answers
within a fixed number of model calls. Runs are stored as JSON artifacts and
tool results are cached in SQLite.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	rootCmd.AddCommand(benchCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(toolsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSettings applies the persistent flags over file and environment settings.
func loadSettings() (config.Settings, *slog.Logger, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return config.Settings{}, nil, err
	}
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return config.Settings{}, nil, err
		}
		settings.Log.Level = logLevel
	}
	if metricsAddr != "" {
		settings.Metrics.Addr = metricsAddr
	}

	logger := logging.New(logging.Config{
		Level:   settings.Log.Level,
		Format:  logging.Format(settings.Log.Format),
		Service: "sleuth",
	})
	slog.SetDefault(logger)
	return settings, logger, nil
}

// startMetrics serves /metrics in the background until ctx is done.
func startMetrics(ctx context.Context, settings config.Settings, logger *slog.Logger) {
	if settings.Metrics.Addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, settings.Metrics.Addr); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", settings.Metrics.Addr)
}

func benchCmd() *cobra.Command {
	opts := cli.DefaultBenchOptions()

	cmd := &cobra.Command{
		Use:   "bench [questions.jsonl]",
		Short: "Run the agent over a JSONL question file",
		Long: `Run the research agent over every question in a JSONL file.

Each line holds {"id": ..., "question": ...}. Results are written to
<output>/<model>_<thinking|nothinking>[_<note>]/<id>.json together with
_report_all.json. Questions that already have an artifact are skipped, so a
rerun retries only the failures.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := loadSettings()
			if err != nil {
				return err
			}
			startMetrics(cmd.Context(), settings, logger)

			opts.DataPath = args[0]
			return cli.Bench(cmd.Context(), settings, opts, logger)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", opts.OutputDir, "Base output directory")
	cmd.Flags().StringVar(&opts.Note, "note", "", "Suffix for the run directory name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Run only the first N questions (0 = all)")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", opts.Workers, "Questions solved concurrently")

	return cmd
}

func askCmd() *cobra.Command {
	var id string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := loadSettings()
			if err != nil {
				return err
			}
			startMetrics(cmd.Context(), settings, logger)

			return cli.Ask(cmd.Context(), settings, args[0], id, outputDir, logger)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Question id (random UUID when empty)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "results/ask", "Artifact directory")

	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the tool result cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Print a cached entry (search_v1:<query> or visit_v1:<url>)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := loadSettings()
			if err != nil {
				return err
			}
			return cli.CacheGet(cmd.Context(), settings.Cache.Path, args[0], os.Stdout)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := loadSettings()
			if err != nil {
				return err
			}
			return cli.CacheStats(cmd.Context(), settings.Cache.Path, os.Stdout)
		},
	})

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.ListTools(verboseTools)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}
