package handle

import (
	"fmt"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"github.com/sssxyd/go-page-handle/config"
)

// Launcher hands out the live browser session, starting one when there is
// none or the previous one died. At most one session is live per launcher.
type Launcher struct {
	cfg   config.Browser
	log   logrus.FieldLogger
	start func(config.Browser, logrus.FieldLogger) (*Session, error)

	lock    sync.Mutex
	session *Session
}

func NewLauncher(cfg config.Browser, log logrus.FieldLogger) *Launcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Launcher{cfg: cfg, log: log, start: launch}
}

func (l *Launcher) Session() (*Session, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.session != nil {
		if l.session.IsAlive() {
			return l.session, nil
		}
		l.log.Warn("browser session lost, starting a new one")
		if err := l.session.Close(); err != nil {
			l.log.WithError(err).Warn("close lost session")
		}
		l.session = nil
	}

	session, err := l.start(l.cfg, l.log)
	if err != nil {
		return nil, fmt.Errorf("start %s session: %w", l.cfg.Name, err)
	}
	l.session = session
	return session, nil
}

// Close closes the live session, if any.
func (l *Launcher) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.session == nil {
		return nil
	}
	err := l.session.Close()
	l.session = nil
	return err
}

// browserKind maps a configured browser name to the playwright browser type
// and the release channel to launch.
func browserKind(name string) (kind, channel string, err error) {
	switch strings.ToLower(name) {
	case "chromium", "":
		return "chromium", "", nil
	case "chrome":
		return "chromium", "chrome", nil
	case "msedge", "edge":
		return "chromium", "msedge", nil
	case "firefox":
		return "firefox", "", nil
	case "webkit":
		return "webkit", "", nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedBrowser, name)
	}
}

func browserType(pw *playwright.Playwright, kind string) playwright.BrowserType {
	switch kind {
	case "firefox":
		return pw.Firefox
	case "webkit":
		return pw.WebKit
	default:
		return pw.Chromium
	}
}

func millis(cfg config.Browser) float64 {
	return float64(cfg.Timeout.Milliseconds())
}

func launchOptions(cfg config.Browser, channel string) playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}
	if cfg.Channel != "" {
		channel = cfg.Channel
	}
	if channel != "" {
		opts.Channel = playwright.String(channel)
	}
	if cfg.ExecutablePath != "" {
		opts.ExecutablePath = playwright.String(cfg.ExecutablePath)
	}
	if cfg.SlowMo > 0 {
		opts.SlowMo = playwright.Float(float64(cfg.SlowMo.Milliseconds()))
	}
	return opts
}

func contextOptions(cfg config.Browser) playwright.BrowserNewContextOptions {
	var opts playwright.BrowserNewContextOptions
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		opts.Viewport = &playwright.Size{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height}
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = playwright.String(cfg.BaseURL)
	}
	return opts
}

// Install downloads the playwright driver and the browser cfg names.
func Install(cfg config.Browser) error {
	kind, channel, err := browserKind(cfg.Name)
	if err != nil {
		return err
	}
	browsers := []string{kind}
	if channel != "" {
		browsers = []string{channel}
	}
	if err := playwright.Install(&playwright.RunOptions{Browsers: browsers}); err != nil {
		return fmt.Errorf("install playwright: %w", err)
	}
	return nil
}

// warnOnError logs an error left over from cleaning up.
func warnOnError(log logrus.FieldLogger, what string, err error) {
	if err != nil {
		log.WithError(err).Warn(what)
	}
}

func launch(cfg config.Browser, log logrus.FieldLogger) (*Session, error) {
	kind, channel, err := browserKind(cfg.Name)
	if err != nil {
		return nil, err
	}
	if cfg.Install {
		if err := Install(cfg); err != nil {
			return nil, err
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	var (
		browser        playwright.Browser
		browserContext playwright.BrowserContext
		started        *debugBrowser
	)
	abort := func() {
		if browser != nil {
			warnOnError(log, "close browser", browser.Close())
		}
		if started != nil {
			warnOnError(log, "stop started browser", started.stop())
		}
		warnOnError(log, "stop playwright", pw.Stop())
	}
	if cfg.Attach {
		browser, started, err = attach(pw, cfg, log)
		if err == nil {
			browserContext, err = attachedContext(browser, log)
		}
	} else {
		browser, err = browserType(pw, kind).Launch(launchOptions(cfg, channel))
		if err == nil {
			browserContext, err = browser.NewContext(contextOptions(cfg))
		}
	}
	if err != nil {
		abort()
		return nil, err
	}
	browserContext.SetDefaultTimeout(millis(cfg))

	session, err := NewSession(browserContext, Options{Timeout: cfg.Timeout, Logger: log})
	if err != nil {
		abort()
		return nil, err
	}
	session.alive = browser.IsConnected
	if !cfg.Attach {
		session.closers = append(session.closers, func() error { return browserContext.Close() })
	}
	session.closers = append(session.closers, func() error { return browser.Close() })
	if started != nil {
		session.closers = append(session.closers, started.stop)
	}
	session.closers = append(session.closers, pw.Stop)

	log.WithFields(logrus.Fields{
		"browser":  cfg.Name,
		"headless": cfg.Headless,
		"attach":   cfg.Attach,
	}).Info("browser session started")
	return session, nil
}
