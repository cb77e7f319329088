package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sssxyd/go-page-handle/config"
	"github.com/sssxyd/go-page-handle/handle"
	"github.com/sssxyd/go-page-handle/runner"
)

const defaultConfigFile = "pagehandle.yaml"

// ExitCode carries the process exit code of a failed command.
type ExitCode struct {
	error
	Code int
}

type rootCommand struct {
	logger *logrus.Logger
	cmd    *cobra.Command
	stdout io.Writer

	configPath string
	logLevel   string
	logFormat  string
	cfg        config.Config

	// newProvider starts sessions for the run command.
	newProvider func(config.Browser, logrus.FieldLogger) runner.Provider
}

func newRootCommand(logger *logrus.Logger, stdout io.Writer) *rootCommand {
	c := &rootCommand{logger: logger, stdout: stdout}
	c.newProvider = func(cfg config.Browser, log logrus.FieldLogger) runner.Provider {
		return handle.NewLauncher(cfg, log)
	}
	c.cmd = &cobra.Command{
		Use:               "pagerun",
		Short:             "run Gherkin features in a real browser",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}
	c.cmd.SetOut(stdout)
	c.cmd.PersistentFlags().AddFlagSet(c.rootFlagSet())
	c.cmd.AddCommand(
		getRunCmd(c),
		getBrowsersCmd(c),
		getInstallCmd(c),
	)
	return c
}

func (c *rootCommand) rootFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&c.configPath, "config", "c", "", "YAML config file (default "+defaultConfigFile+" when present)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&c.logFormat, "log-format", "", "log format: text or json")
	return flags
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, args []string) error {
	path := c.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return ExitCode{error: err, Code: runner.ExitOptionError}
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if err := setupLogger(c.logger, cfg.Log); err != nil {
		return ExitCode{error: err, Code: runner.ExitOptionError}
	}
	c.cfg = cfg
	if path != "" {
		c.logger.WithField("config", path).Debug("loaded config")
	}
	return nil
}

// Execute runs the command line and exits with its code.
func Execute() {
	logger := &logrus.Logger{
		Out:       os.Stderr,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
	}
	c := newRootCommand(logger, os.Stdout)
	if err := c.cmd.Execute(); err != nil {
		code := 1
		var e ExitCode
		if errors.As(err, &e) {
			code = e.Code
		}
		logger.Error(err)
		os.Exit(code)
	}
}

func fprintf(w io.Writer, format string, a ...any) {
	if _, err := fmt.Fprintf(w, format, a...); err != nil {
		panic(err.Error())
	}
}
