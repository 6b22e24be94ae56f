package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptqa/promptqa/pkg/config"
	"github.com/promptqa/promptqa/pkg/schema"
)

// newRunCmd implements `promptqa run`: runs every test named in
// the config file (or a single named one), partitioning outputDir per test
// and exiting with the worst exit code seen.
func newRunCmd() *cobra.Command {
	var (
		configPath  string
		testName    string
		jsonOutput  bool
		reportPath  string
		maxSteps    int
		headless    bool
		timeout     int
		cookie      string
		loginPrompt string
		strategy    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every test named in a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			o := overrides{
				maxSteps: maxSteps, headless: headless, headlessSet: cmd.Flags().Changed("headless"),
				timeout: timeout, cookie: cookie, loginPrompt: loginPrompt, reportPath: reportPath,
			}
			o.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return schema.NewRunError(schema.ExitConfigOrOther, "invalid configuration: %w", err)
			}

			tests, err := selectTests(cfg, testName)
			if err != nil {
				return err
			}

			ctx := context.Background()
			var codes []int
			var records []string

			for _, t := range tests {
				url := t.URL
				if url == "" {
					url = cfg.BaseURL
				}
				outDir := sanitizedOutputDir(cfg.ReportPath, t.Name)

				s, exitCode, err := runJob(ctx, cfg, testJob{
					Name:        t.Name,
					URL:         url,
					Prompt:      t.Prompt,
					LoginPrompt: cfg.Auth.LoginPrompt,
					OutputDir:   outDir,
				}, strategy, progressToStderr)
				if err != nil {
					return err
				}
				codes = append(codes, exitCode)
				if jsonOutput {
					records = append(records, jsonRecordFor(s, exitCode))
				}
			}

			if jsonOutput {
				fmt.Fprintln(os.Stdout, "["+joinRecords(records)+"]")
			}

			os.Exit(worstExitCode(codes))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a .promptqa.yaml/.json config file")
	cmd.Flags().StringVar(&testName, "test", "", "run only the named test from the config")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit each test's summary as a JSON array on stdout")
	cmd.Flags().StringVar(&reportPath, "report-path", "", "base directory for artifacts (default .artifacts)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "override the configured maximum step count")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser headless")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "override the configured total timeout, in seconds")
	cmd.Flags().StringVar(&cookie, "cookie", "", `pre-auth cookie string, "name=value; name2=value2"`)
	cmd.Flags().StringVar(&loginPrompt, "login-prompt", "", "natural-language login sequence to run before each test")
	cmd.Flags().StringVar(&strategy, "strategy", "plan-once", "execution strategy: plan-once or agent")

	return cmd
}

// selectTests resolves the tests `run` should execute: a single named test,
// or every test in the config when name is empty.
func selectTests(cfg *config.Config, name string) ([]config.TestCase, error) {
	if len(cfg.Tests) == 0 {
		return nil, schema.NewRunError(schema.ExitConfigOrOther, "config has no tests defined")
	}
	if name == "" {
		return cfg.Tests, nil
	}
	for _, t := range cfg.Tests {
		if t.Name == name {
			return []config.TestCase{t}, nil
		}
	}
	return nil, schema.NewRunError(schema.ExitConfigOrOther, "no test named %q in config", name)
}
