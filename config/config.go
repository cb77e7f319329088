// Package config loads pagerun settings from a YAML file and PAGEHANDLE_*
// environment variables, in that order, on top of the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PAGEHANDLE_BROWSER_NAME
// or PAGEHANDLE_SUITE_REPORT_DIR.
const EnvPrefix = "PAGEHANDLE"

// DefaultTimeout bounds every element wait.
const DefaultTimeout = 5 * time.Second

type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Browser configures how a session is started.
type Browser struct {
	// Name is one of chromium, chrome, msedge, edge, firefox, webkit.
	Name           string        `yaml:"name"`
	Channel        string        `yaml:"channel"`
	ExecutablePath string        `yaml:"executablePath" split_words:"true"`
	Headless       bool          `yaml:"headless"`
	SlowMo         time.Duration `yaml:"slowMo" split_words:"true"`
	Timeout        time.Duration `yaml:"timeout"`
	Viewport       Viewport      `yaml:"viewport"`
	BaseURL        string        `yaml:"baseURL" split_words:"true"`
	Install        bool          `yaml:"install"`

	// Attach connects over CDP to a browser started with remote debugging
	// instead of letting playwright launch one.
	Attach     bool          `yaml:"attach"`
	DebugPort  int           `yaml:"debugPort" split_words:"true"`
	KillStale  bool          `yaml:"killStale" split_words:"true"`
	ConnectFor time.Duration `yaml:"connectFor" split_words:"true"`
}

// Suite configures the behavior-driven runner.
type Suite struct {
	Features    []string `yaml:"features"`
	Tags        string   `yaml:"tags"`
	Format      string   `yaml:"format"`
	Reports     []string `yaml:"reports"`
	ReportDir   string   `yaml:"reportDir" split_words:"true"`
	Strict      bool     `yaml:"strict"`
	NoColors    bool     `yaml:"noColors" split_words:"true"`
	Screenshots bool     `yaml:"screenshots"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Browser Browser `yaml:"browser"`
	Suite   Suite   `yaml:"suite"`
	Log     Log     `yaml:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Browser: Browser{
			Name:       "chromium",
			Headless:   true,
			Timeout:    DefaultTimeout,
			Viewport:   Viewport{Width: 1280, Height: 720},
			ConnectFor: 15 * time.Second,
		},
		Suite: Suite{
			Features:    []string{"features"},
			Format:      "pretty",
			Reports:     []string{"cucumber"},
			ReportDir:   "target/cucumber-reports",
			Strict:      true,
			Screenshots: true,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	return cfg, cfg.Validate()
}

var knownBrowsers = []string{"chromium", "chrome", "msedge", "edge", "firefox", "webkit"}

func (c Config) Validate() error {
	var errs []error
	name := strings.ToLower(c.Browser.Name)
	if !slices.Contains(knownBrowsers, name) {
		errs = append(errs, fmt.Errorf("browser.name: unknown browser %q", c.Browser.Name))
	}
	if c.Browser.Timeout <= 0 {
		errs = append(errs, errors.New("browser.timeout: must be positive"))
	}
	if c.Browser.DebugPort < 0 || c.Browser.DebugPort > 65535 {
		errs = append(errs, fmt.Errorf("browser.debugPort: %d out of range", c.Browser.DebugPort))
	}
	if c.Browser.Attach && (name == "firefox" || name == "webkit") {
		errs = append(errs, fmt.Errorf("browser.attach: %s does not speak CDP", c.Browser.Name))
	}
	if c.Suite.Format == "" {
		errs = append(errs, errors.New("suite.format: required"))
	}
	return errors.Join(errs...)
}
