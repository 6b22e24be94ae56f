// Command promptqa drives a real browser against a web application,
// using an LLM to translate a natural-language goal plus a structured
// page snapshot into a short sequence of deterministic browser actions,
// then evaluates each action and reports a verdict.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	var logLevel, logFormat string

	rootCmd := &cobra.Command{
		Use:   "promptqa",
		Short: "LLM-guided, browser-driven QA testing",
		Long: `PromptQA drives a real browser against a web application, using an LLM to
translate a natural-language goal plus a structured page snapshot into a
short sequence of deterministic browser actions, then evaluates each action
and reports a verdict.

Usage:
  promptqa test <url> <prompt>   # plan, execute, and evaluate one test
  promptqa run                   # run every test named in a config file`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(logLevel, logFormat)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json")

	rootCmd.AddCommand(newTestCmd())
	rootCmd.AddCommand(newRunCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeForErr(err))
	}
}

// setupLogger installs the process-wide slog logger, writing structured
// records to stderr only — stdout is reserved for the --json report
// contract.
func setupLogger(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
