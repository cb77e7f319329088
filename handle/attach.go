package handle

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/phayes/freeport"
	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"github.com/sssxyd/go-page-handle/config"
)

func debugEndpoint(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

func debugArgs(port int, headless bool, profileDir string) []string {
	args := []string{
		"--new-window",
		"--remote-debugging-address=127.0.0.1",
		fmt.Sprintf("--remote-debugging-port=%d", port),
		fmt.Sprintf("--remote-allow-origins=http://127.0.0.1:%d", port),
		"--user-data-dir=" + profileDir,
		"--no-first-run",
	}
	if headless {
		args = append(args, "--headless=new")
	}
	return append(args, "about:blank")
}

// debugBrowser is a browser started for attach mode, with the throwaway
// profile it runs on.
type debugBrowser struct {
	cmd        *exec.Cmd
	profileDir string
	log        logrus.FieldLogger
}

// startDebugBrowser starts the browser at path listening for CDP clients on
// port.
func startDebugBrowser(path string, port int, headless bool, log logrus.FieldLogger) (*debugBrowser, error) {
	profileDir, err := os.MkdirTemp("", "pagehandle-profile-")
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(path, debugArgs(port, headless, profileDir)...)
	log.WithField("cmd", cmd.String()).Info("starting browser")
	if err := cmd.Start(); err != nil {
		warnOnError(log, "remove browser profile", os.RemoveAll(profileDir))
		return nil, fmt.Errorf("start %s: %w", path, err)
	}
	return &debugBrowser{cmd: cmd, profileDir: profileDir, log: log}, nil
}

// stop kills the browser, reaps it and removes its profile.
func (d *debugBrowser) stop() error {
	var errs []error
	if err := d.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		errs = append(errs, fmt.Errorf("kill browser: %w", err))
	}
	var exit *exec.ExitError
	if err := d.cmd.Wait(); err != nil && !errors.As(err, &exit) {
		errs = append(errs, fmt.Errorf("wait for browser: %w", err))
	}
	if err := os.RemoveAll(d.profileDir); err != nil {
		errs = append(errs, fmt.Errorf("remove browser profile: %w", err))
	}
	d.log.WithField("pid", d.cmd.Process.Pid).Debug("started browser stopped")
	return errors.Join(errs...)
}

func connectBackoff(limit time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = limit
	return b
}

// attach connects to a browser listening on the configured debug port,
// starting one first when nothing answers there. The started browser is
// returned so it can be stopped with the session; it is nil when an already
// running browser was attached.
func attach(pw *playwright.Playwright, cfg config.Browser, log logrus.FieldLogger) (playwright.Browser, *debugBrowser, error) {
	port := cfg.DebugPort
	if port == 0 {
		p, err := freeport.GetFreePort()
		if err != nil {
			return nil, nil, fmt.Errorf("pick debug port: %w", err)
		}
		port = p
	}
	endpoint := debugEndpoint(port)
	log = log.WithField("port", port)

	if browser, err := pw.Chromium.ConnectOverCDP(endpoint); err == nil {
		log.Info("attached to running browser")
		return browser, nil, nil
	}

	path := cfg.ExecutablePath
	if path == "" {
		found, ok := LookupBrowser(FindInstalledBrowsers(), cfg.Name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrBrowserNotFound, cfg.Name)
		}
		path = found
	}
	if cfg.KillStale {
		if err := KillBrowserProcesses(cfg.Name, log); err != nil {
			return nil, nil, err
		}
	}
	started, err := startDebugBrowser(path, port, cfg.Headless, log)
	if err != nil {
		return nil, nil, err
	}

	var browser playwright.Browser
	err = backoff.Retry(func() error {
		b, err := pw.Chromium.ConnectOverCDP(endpoint)
		if err != nil {
			log.WithError(err).Debug("browser not ready")
			return err
		}
		browser = b
		return nil
	}, connectBackoff(cfg.ConnectFor))
	if err != nil {
		warnOnError(log, "stop started browser", started.stop())
		return nil, nil, fmt.Errorf("connect to %s: %w", endpoint, err)
	}
	log.Info("attached to started browser")
	return browser, started, nil
}

// attachedContext returns the default context of an attached browser with
// its leftover tabs closed.
func attachedContext(browser playwright.Browser, log logrus.FieldLogger) (playwright.BrowserContext, error) {
	contexts := browser.Contexts()
	if len(contexts) == 0 {
		return nil, errors.New("attached browser has no context")
	}
	browserContext := contexts[0]
	for _, page := range browserContext.Pages() {
		if err := page.Close(); err != nil {
			log.WithError(err).Warn("close leftover tab")
		}
	}
	return browserContext, nil
}
