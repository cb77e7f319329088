//go:build !windows

package handle

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

func findBrowsers(browsers map[string]string) {
	if runtime.GOOS == "darwin" {
		findMacBrowsers(browsers)
		return
	}
	findLinuxBrowsers(browsers)
}

var macApps = map[string]string{
	"chrome":   "Google Chrome.app",
	"chromium": "Chromium.app",
	"firefox":  "Firefox.app",
	"safari":   "Safari.app",
	"edge":     "Microsoft Edge.app",
	"opera":    "Opera.app",
}

func findMacBrowsers(browsers map[string]string) {
	appDirs := []string{
		"/Applications",
		filepath.Join(os.Getenv("HOME"), "Applications"),
	}
	for _, dir := range appDirs {
		for name, app := range macApps {
			exePath := filepath.Join(dir, app, "Contents/MacOS", strings.TrimSuffix(app, ".app"))
			if _, err := os.Stat(exePath); err == nil {
				browsers[name] = exePath
			}
		}
	}
}

var linuxExecutables = []string{
	"google-chrome", "google-chrome-stable", "chrome",
	"chromium", "chromium-browser",
	"firefox", "microsoft-edge",
	"opera",
}

var flatpakApps = map[string]string{
	"com.google.Chrome":     "chrome",
	"org.chromium.Chromium": "chromium",
	"org.mozilla.firefox":   "firefox",
	"com.microsoft.Edge":    "edge",
}

func findLinuxBrowsers(browsers map[string]string) {
	for _, exe := range linuxExecutables {
		name := canonicalName(exe)
		if _, ok := browsers[name]; ok {
			continue
		}
		if path, err := exec.LookPath(exe); err == nil {
			browsers[name] = path
		}
	}

	for app, name := range flatpakApps {
		if _, ok := browsers[name]; ok {
			continue
		}
		out, err := exec.Command("flatpak", "info", "--show-location", app).Output()
		if err != nil {
			continue
		}
		exePath := filepath.Join(strings.TrimSpace(string(out)), "files", "bin", app)
		if _, err := os.Stat(exePath); err == nil {
			browsers[name] = exePath
		}
	}
}
