package handle

import "strings"

// FindInstalledBrowsers maps browser names (chrome, chromium, edge,
// firefox, opera, safari) to the executables found on this machine.
func FindInstalledBrowsers() map[string]string {
	browsers := make(map[string]string)
	findBrowsers(browsers)
	return browsers
}

// canonicalNames folds executable and package names into browser names.
var canonicalNames = map[string]string{
	"google-chrome":        "chrome",
	"google-chrome-stable": "chrome",
	"chromium-browser":     "chromium",
	"microsoft-edge":       "edge",
	"msedge":               "edge",
}

func canonicalName(name string) string {
	name = strings.ToLower(name)
	if c, ok := canonicalNames[name]; ok {
		return c
	}
	return name
}

// fallbacks lists what may stand in for a browser that is not installed.
var fallbacks = map[string][]string{
	"chromium": {"chrome", "edge"},
	"chrome":   {"chromium"},
}

// LookupBrowser finds the executable for name among found.
func LookupBrowser(found map[string]string, name string) (string, bool) {
	name = canonicalName(name)
	if path, ok := found[name]; ok {
		return path, true
	}
	for _, alt := range fallbacks[name] {
		if path, ok := found[alt]; ok {
			return path, true
		}
	}
	return "", false
}
