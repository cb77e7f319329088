package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sssxyd/go-page-handle/config"
	"github.com/sssxyd/go-page-handle/runner"
)

func runFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", 0)
	flags.SortFlags = false
	flags.StringP("tags", "t", "", "run only scenarios matching the tag expression, e.g. @smoke && ~@slow")
	flags.StringP("format", "f", "", "console formatter: pretty, progress, cucumber, junit or events")
	flags.StringSlice("report", nil, "report files to write: cucumber, junit")
	flags.String("report-dir", "", "directory for reports and screenshots")
	flags.StringP("browser", "b", "", "browser: chromium, chrome, msedge, firefox or webkit")
	flags.Bool("headless", true, "run the browser without a window")
	flags.Duration("timeout", 0, "element wait bound")
	flags.Bool("attach", false, "attach to a browser started with remote debugging")
	flags.Int("debug-port", 0, "remote debugging port to attach to")
	flags.Bool("strict", true, "fail on undefined or pending steps")
	return flags
}

// applyRunFlags overrides cfg with the flags set on the command line.
func applyRunFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("tags") {
		cfg.Suite.Tags, _ = flags.GetString("tags")
	}
	if flags.Changed("format") {
		cfg.Suite.Format, _ = flags.GetString("format")
	}
	if flags.Changed("report") {
		cfg.Suite.Reports, _ = flags.GetStringSlice("report")
	}
	if flags.Changed("report-dir") {
		cfg.Suite.ReportDir, _ = flags.GetString("report-dir")
	}
	if flags.Changed("strict") {
		cfg.Suite.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("browser") {
		cfg.Browser.Name, _ = flags.GetString("browser")
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("timeout") {
		cfg.Browser.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("attach") {
		cfg.Browser.Attach, _ = flags.GetBool("attach")
	}
	if flags.Changed("debug-port") {
		cfg.Browser.DebugPort, _ = flags.GetInt("debug-port")
	}
	return cfg.Validate()
}

func getRunCmd(c *rootCommand) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [features...]",
		Short: "Run features",
		Long: `Run the scenarios of the given feature files or directories, or of the
configured feature paths, against one browser session.`,
		Example: `  pagerun run features/login.feature --tags @smoke
  pagerun run --browser firefox --headless=false --report junit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if len(args) > 0 {
				cfg.Suite.Features = args
			}
			if err := applyRunFlags(cmd.Flags(), &cfg); err != nil {
				return ExitCode{error: err, Code: runner.ExitOptionError}
			}

			provider := c.newProvider(cfg.Browser, c.logger)
			code := runner.New(cfg.Suite, provider, c.logger).WithOutput(cmd.OutOrStdout()).Run()
			if code != runner.ExitOK {
				return ExitCode{error: fmt.Errorf("suite failed with exit code %d", code), Code: code}
			}
			return nil
		},
	}
	runCmd.Flags().AddFlagSet(runFlagSet())
	return runCmd
}
