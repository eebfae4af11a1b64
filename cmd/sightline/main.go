// Package main provides the sightline CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/sightline/cli"
	"github.com/richinex/sightline/config"
	"github.com/richinex/sightline/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "sightline",
		Short: "Drive a web browser from screenshots with a vision model",
		Long: `A browser automation agent that sees the screen the way a person does.

A planner model decides what to do next and calls four tools:
- describe_webpage: structured report of the current screenshot
- get_coordinates_for: locate an element and return its center pixel
- click / write: act on the page

Every screenshot, report and annotated locate is kept under runs/.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (YAML); SIGHTLINE_* environment variables override it")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(runCmd(ctx))
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(runsCmd(ctx))
	rootCmd.AddCommand(archiveCmd(ctx))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadSettings reads the config file and environment, then lets explicitly
// set flags win.
func loadSettings(cmd *cobra.Command, bindings map[string]string) (config.Settings, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return config.Settings{}, err
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return config.Settings{}, fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	settings, err := config.FromViper(v)
	if err != nil {
		return config.Settings{}, err
	}
	if verbose && settings.Logger.Level == "info" {
		settings.Logger.Level = "debug"
	}
	return settings, nil
}

func newLogger(settings config.Settings) *zap.Logger {
	return observability.NewStderrLogger(settings.Logger)
}

func runCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Execute a task in a browser",
		Long: `Open a browser at --url and work on the task until the planner answers,
the iteration limit is reached or the timeout expires.

Example:
  sightline run --url https://www.booking.com \
    "Search for accommodation in Paris, check-in April 22 2026, check-out April 27 2026."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, map[string]string{
				"screen.start_url":     "url",
				"screen.driver":        "driver",
				"screen.headless":      "headless",
				"planner.provider":     "provider",
				"vision.provider":      "vision-provider",
				"agent.max_iterations": "max-iter",
			})
			if err != nil {
				return err
			}

			logger := newLogger(settings)
			defer observability.Sync(logger)

			task := strings.Join(args, " ")
			return cli.RunTask(ctx, cmd.OutOrStdout(), task, settings, cli.Options{Verbose: verbose}, logger)
		},
	}

	cmd.Flags().String("url", "about:blank", "Page to open before the task starts")
	cmd.Flags().String("driver", "rod", "Screen driver: rod or chromedp")
	cmd.Flags().Bool("headless", false, "Run the browser without a window")
	cmd.Flags().StringP("provider", "p", "ollama", "Planner provider (ollama, openai, anthropic, deepseek, gemini)")
	cmd.Flags().String("vision-provider", "ollama", "Vision provider (ollama, openai, anthropic, gemini)")
	cmd.Flags().IntP("max-iter", "m", 40, "Maximum planner iterations")

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.ListTools(cmd.OutOrStdout(), verboseTools)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}

func runsCmd(ctx context.Context) *cobra.Command {
	var runID, forget string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, show one with --run, or drop its conversation with --forget",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, map[string]string{"trace.index": "index"})
			if err != nil {
				return err
			}
			if settings.Trace.Index == "" {
				return fmt.Errorf("no trace index configured")
			}
			if forget != "" {
				return cli.ForgetRun(ctx, cmd.OutOrStdout(), settings.Trace.Index, forget)
			}
			if runID != "" {
				return cli.ShowRun(ctx, cmd.OutOrStdout(), settings.Trace.Index, runID)
			}
			return cli.ListRuns(ctx, cmd.OutOrStdout(), settings.Trace.Index)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID to show")
	cmd.Flags().StringVar(&forget, "forget", "", "Run ID whose stored conversation should be deleted")
	cmd.Flags().String("index", "runs/index.db", "Trace index database")

	return cmd
}

func archiveCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <run-dir>",
		Short: "Upload a run directory to S3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, map[string]string{
				"archive.bucket": "bucket",
				"archive.prefix": "prefix",
				"archive.region": "region",
			})
			if err != nil {
				return err
			}
			if settings.Archive.Bucket == "" {
				return fmt.Errorf("--bucket is required (or set archive.bucket)")
			}

			logger := newLogger(settings)
			defer observability.Sync(logger)

			return cli.ArchiveRun(ctx, cmd.OutOrStdout(), args[0], settings.Archive, logger)
		},
	}

	cmd.Flags().String("bucket", "", "Destination bucket")
	cmd.Flags().String("prefix", "runs", "Key prefix inside the bucket")
	cmd.Flags().String("region", "", "AWS region (defaults to the AWS configuration)")

	return cmd
}
