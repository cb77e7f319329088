// Package runner runs Gherkin features against a browser session with
// godog. The session is started before the first scenario and closed after
// the last one.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/sirupsen/logrus"

	"github.com/sssxyd/go-page-handle/config"
	"github.com/sssxyd/go-page-handle/handle"
	"github.com/sssxyd/go-page-handle/page"
	"github.com/sssxyd/go-page-handle/steps"
)

// godog exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitOptionError = 2
)

// Provider hands out the browser session scenarios run in. handle.Launcher
// is the usual one.
type Provider interface {
	Session() (*handle.Session, error)
	Close() error
}

// Glue registers step definitions bound to a page.
type Glue func(sc *godog.ScenarioContext, p *page.Base)

// reportFiles names the file each report formatter writes.
var reportFiles = map[string]string{
	"cucumber": "cucumber.json",
	"junit":    "junit.xml",
}

type Suite struct {
	cfg      config.Suite
	provider Provider
	log      logrus.FieldLogger
	glue     []Glue
	output   io.Writer
}

// New returns a suite running cfg's features with the given glue, or with
// the phrases of package steps when no glue is given.
func New(cfg config.Suite, provider Provider, log logrus.FieldLogger, glue ...Glue) *Suite {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(glue) == 0 {
		glue = []Glue{steps.Register}
	}
	return &Suite{cfg: cfg, provider: provider, log: log, glue: glue}
}

// WithOutput sends the console formatter's output to w instead of stdout.
func (s *Suite) WithOutput(w io.Writer) *Suite {
	s.output = w
	return s
}

// Options returns the godog options for the suite, creating the report
// directory when reports are requested.
func (s *Suite) Options() (*godog.Options, error) {
	formats := []string{s.cfg.Format}
	if len(s.cfg.Reports) > 0 {
		if err := os.MkdirAll(s.cfg.ReportDir, 0o755); err != nil {
			return nil, fmt.Errorf("create report dir: %w", err)
		}
	}
	for _, report := range s.cfg.Reports {
		file, ok := reportFiles[report]
		if !ok {
			return nil, fmt.Errorf("unknown report %q", report)
		}
		formats = append(formats, report+":"+filepath.Join(s.cfg.ReportDir, file))
	}

	return &godog.Options{
		Format:      strings.Join(formats, ","),
		Paths:       s.cfg.Features,
		Tags:        s.cfg.Tags,
		Strict:      s.cfg.Strict,
		NoColors:    s.cfg.NoColors,
		Output:      s.output,
		Concurrency: 1,
	}, nil
}

func (s *Suite) testSuite(opts *godog.Options) godog.TestSuite {
	return godog.TestSuite{
		Name:                 "pagerun",
		TestSuiteInitializer: s.initSuite,
		ScenarioInitializer:  s.initScenario,
		Options:              opts,
	}
}

// Run runs every scenario and returns godog's exit code.
func (s *Suite) Run() int {
	opts, err := s.Options()
	if err != nil {
		s.log.WithError(err).Error("invalid suite options")
		return ExitOptionError
	}
	code := s.testSuite(opts).Run()
	s.log.WithField("code", code).Info("suite finished")
	return code
}

// RunT runs every scenario as a subtest of t.
func (s *Suite) RunT(t *testing.T) {
	t.Helper()
	opts, err := s.Options()
	if err != nil {
		t.Fatal(err)
	}
	opts.TestingT = t
	if code := s.testSuite(opts).Run(); code != ExitOK {
		t.Fatalf("suite exited with code %d", code)
	}
}

func (s *Suite) initSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(func() {
		if _, err := s.provider.Session(); err != nil {
			s.log.WithError(err).Error("start browser session")
		}
	})
	ctx.AfterSuite(func() {
		if err := s.provider.Close(); err != nil {
			s.log.WithError(err).Warn("close browser session")
			return
		}
		s.log.Debug("browser session released")
	})
}

func (s *Suite) initScenario(sc *godog.ScenarioContext) {
	session, err := s.provider.Session()
	if err != nil {
		sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
			return ctx, fmt.Errorf("browser session: %w", err)
		})
		return
	}

	p := page.New(session, s.log)
	for _, glue := range s.glue {
		glue(sc, p)
	}

	sc.Before(func(ctx context.Context, scenario *godog.Scenario) (context.Context, error) {
		s.log.WithField("scenario", scenario.Name).Debug("scenario started")
		return ctx, nil
	})
	sc.After(func(ctx context.Context, scenario *godog.Scenario, err error) (context.Context, error) {
		if err == nil {
			return ctx, nil
		}
		log := s.log.WithField("scenario", scenario.Name)
		log.WithError(err).Warn("scenario failed")
		if s.cfg.Screenshots {
			path := s.screenshotPath(scenario)
			if err := session.Screenshot(path); err != nil {
				log.WithError(err).Warn("screenshot failed scenario")
			} else {
				log.WithField("path", path).Info("saved screenshot")
			}
		}
		return ctx, nil
	})
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

func (s *Suite) screenshotPath(scenario *godog.Scenario) string {
	name := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(scenario.Name), "-"), "-")
	if name == "" {
		name = "scenario"
	}
	return filepath.Join(s.cfg.ReportDir, "screenshots", name+"-"+scenario.Id+".png")
}
