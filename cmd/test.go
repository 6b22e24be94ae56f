package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptqa/promptqa/pkg/schema"
)

// newTestCmd implements `promptqa test <url> <prompt>`.
func newTestCmd() *cobra.Command {
	var (
		jsonOutput  bool
		reportPath  string
		maxSteps    int
		headless    bool
		timeout     int
		configPath  string
		cookie      string
		loginPrompt string
		strategy    string
	)

	cmd := &cobra.Command{
		Use:   "test <url> <prompt>",
		Short: "Plan, execute, and evaluate one natural-language test against a URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, prompt := args[0], args[1]

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

			ctx := context.Background()
			s, exitCode, err := runJob(ctx, cfg, testJob{
				Name:        "test",
				URL:         url,
				Prompt:      prompt,
				LoginPrompt: cfg.Auth.LoginPrompt,
				OutputDir:   cfg.ReportPath,
			}, strategy, progressToStderr)
			if err != nil {
				return err
			}

			if jsonOutput {
				record := jsonRecordFor(s, exitCode)
				fmt.Fprintln(os.Stdout, record)
			}

			os.Exit(exitCode)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the summary as JSON on stdout")
	cmd.Flags().StringVar(&reportPath, "report-path", "", "directory for artifacts (default .artifacts)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "override the configured maximum step count")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser headless")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "override the configured total timeout, in seconds")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a .promptqa.yaml/.json config file")
	cmd.Flags().StringVar(&cookie, "cookie", "", `pre-auth cookie string, "name=value; name2=value2"`)
	cmd.Flags().StringVar(&loginPrompt, "login-prompt", "", "natural-language login sequence to run before the main test")
	cmd.Flags().StringVar(&strategy, "strategy", "plan-once", "execution strategy: plan-once or agent")

	return cmd
}
