package runner_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sssxyd/go-page-handle/config"
	"github.com/sssxyd/go-page-handle/handle"
	"github.com/sssxyd/go-page-handle/internal/pwfake"
	"github.com/sssxyd/go-page-handle/page"
	"github.com/sssxyd/go-page-handle/runner"
)

type provider struct {
	session  *handle.Session
	err      error
	sessions int
	closes   int
}

func newProvider(t *testing.T, web *pwfake.Page) *provider {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	s, err := handle.NewSession(pwfake.NewContext(web), handle.Options{
		Timeout: 20 * time.Millisecond,
		Logger:  logger,
	})
	require.NoError(t, err)
	return &provider{session: s}
}

func (p *provider) Session() (*handle.Session, error) {
	p.sessions++
	if p.err != nil {
		return nil, p.err
	}
	return p.session, nil
}

func (p *provider) Close() error {
	p.closes++
	return p.session.Close()
}

func writeFeature(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func suiteConfig(t *testing.T) (config.Suite, string) {
	t.Helper()
	root := t.TempDir()
	features := filepath.Join(root, "features")
	require.NoError(t, os.Mkdir(features, 0o755))
	cfg := config.Default().Suite
	cfg.Features = []string{features}
	cfg.Format = "progress"
	cfg.NoColors = true
	cfg.ReportDir = filepath.Join(root, "reports")
	return cfg, features
}

const login = `Feature: login

  Scenario: welcome page
    Given I navigate to "https://example.com/"
    Then the id element "welcome" should contain the text "Hello"
`

func TestOptions(t *testing.T) {
	cfg, features := suiteConfig(t)
	cfg.Reports = []string{"cucumber", "junit"}
	cfg.Tags = "@smoke && ~@slow"
	logger, _ := logtest.NewNullLogger()

	opts, err := runner.New(cfg, nil, logger).Options()
	require.NoError(t, err)
	assert.Equal(t, "progress,cucumber:"+filepath.Join(cfg.ReportDir, "cucumber.json")+
		",junit:"+filepath.Join(cfg.ReportDir, "junit.xml"), opts.Format)
	assert.Equal(t, []string{features}, opts.Paths)
	assert.Equal(t, "@smoke && ~@slow", opts.Tags)
	assert.True(t, opts.Strict)
	assert.Equal(t, 1, opts.Concurrency)
	assert.DirExists(t, cfg.ReportDir)

	cfg.Reports = []string{"html"}
	_, err = runner.New(cfg, nil, logger).Options()
	assert.ErrorContains(t, err, `unknown report "html"`)
}

func TestRunPasses(t *testing.T) {
	cfg, features := suiteConfig(t)
	cfg.Reports = []string{"cucumber", "junit"}
	writeFeature(t, features, "login.feature", login)

	web := pwfake.NewPage("Home", "about:blank")
	web.Main.Add("id=welcome", &pwfake.Element{Text: "Hello there"})
	p := newProvider(t, web)
	logger, _ := logtest.NewNullLogger()
	var out bytes.Buffer

	code := runner.New(cfg, p, logger).WithOutput(&out).Run()
	assert.Equal(t, runner.ExitOK, code, out.String())
	assert.Equal(t, "https://example.com/", web.URL())
	assert.Equal(t, 1, p.closes)
	assert.False(t, p.session.IsAlive())
	assert.Empty(t, web.Screenshots)

	for _, name := range []string{"cucumber.json", "junit.xml"} {
		data, err := os.ReadFile(filepath.Join(cfg.ReportDir, name))
		require.NoError(t, err)
		assert.Contains(t, string(data), "welcome page")
	}
}

func TestRunFailureTakesScreenshot(t *testing.T) {
	cfg, features := suiteConfig(t)
	cfg.Reports = nil
	writeFeature(t, features, "login.feature", login)

	web := pwfake.NewPage("Home", "about:blank")
	web.Main.Add("id=welcome", &pwfake.Element{Text: "Goodbye"})
	p := newProvider(t, web)
	logger, _ := logtest.NewNullLogger()

	code := runner.New(cfg, p, logger).WithOutput(&bytes.Buffer{}).Run()
	assert.Equal(t, runner.ExitFailure, code)
	require.Len(t, web.Screenshots, 1)
	shot := web.Screenshots[0]
	assert.Equal(t, filepath.Join(cfg.ReportDir, "screenshots"), filepath.Dir(shot))
	assert.True(t, strings.HasPrefix(filepath.Base(shot), "welcome-page-"), shot)
	assert.Equal(t, 1, p.closes)
}

func TestRunWithoutScreenshots(t *testing.T) {
	cfg, features := suiteConfig(t)
	cfg.Screenshots = false
	writeFeature(t, features, "login.feature", login)

	web := pwfake.NewPage("Home", "about:blank")
	p := newProvider(t, web)
	logger, _ := logtest.NewNullLogger()

	code := runner.New(cfg, p, logger).WithOutput(&bytes.Buffer{}).Run()
	assert.Equal(t, runner.ExitFailure, code)
	assert.Empty(t, web.Screenshots)
}

func TestRunWithoutSession(t *testing.T) {
	cfg, features := suiteConfig(t)
	writeFeature(t, features, "login.feature", login)

	p := newProvider(t, pwfake.NewPage("", "about:blank"))
	p.err = errors.New("browser not installed")
	logger, hook := logtest.NewNullLogger()

	code := runner.New(cfg, p, logger).WithOutput(&bytes.Buffer{}).Run()
	assert.Equal(t, runner.ExitFailure, code)
	assert.GreaterOrEqual(t, p.sessions, 2)
	assert.Equal(t, 1, p.closes)

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Message == "start browser session" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestRunAppliesTagsAndGlue(t *testing.T) {
	cfg, features := suiteConfig(t)
	cfg.Tags = "@smoke"
	writeFeature(t, features, "tags.feature", `Feature: tags

  @smoke
  Scenario: fast
    When I count

  Scenario: slow
    When I count
    And I count
`)

	p := newProvider(t, pwfake.NewPage("", "about:blank"))
	logger, _ := logtest.NewNullLogger()
	var count int
	var pages []*page.Base
	glue := func(sc *godog.ScenarioContext, pg *page.Base) {
		pages = append(pages, pg)
		sc.Step(`^I count$`, func() { count++ })
	}

	code := runner.New(cfg, p, logger, glue).WithOutput(&bytes.Buffer{}).Run()
	assert.Equal(t, runner.ExitOK, code)
	assert.Equal(t, 1, count)
	require.Len(t, pages, 1)
	assert.Same(t, p.session, pages[0].Session())
}

func TestRunInvalidOptions(t *testing.T) {
	cfg, _ := suiteConfig(t)
	cfg.Reports = []string{"pdf"}
	logger, _ := logtest.NewNullLogger()
	p := newProvider(t, pwfake.NewPage("", "about:blank"))

	assert.Equal(t, runner.ExitOptionError, runner.New(cfg, p, logger).Run())
	assert.Zero(t, p.sessions)
}

func TestRunT(t *testing.T) {
	cfg, features := suiteConfig(t)
	writeFeature(t, features, "login.feature", login)

	web := pwfake.NewPage("Home", "about:blank")
	web.Main.Add("id=welcome", &pwfake.Element{Text: "Hello"})
	logger, _ := logtest.NewNullLogger()

	runner.New(cfg, newProvider(t, web), logger).WithOutput(&bytes.Buffer{}).RunT(t)
}
