//go:build windows

package handle

import (
	"os"

	"golang.org/x/sys/windows/registry"
)

// App Paths registry entries of common browsers.
var registryPaths = map[string]string{
	"chrome":  `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\chrome.exe`,
	"edge":    `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\msedge.exe`,
	"firefox": `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\firefox.exe`,
	"opera":   `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\opera.exe`,
}

func registryValue(root registry.Key, path string) (string, bool) {
	key, err := registry.OpenKey(root, path, registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return "", false
	}
	defer key.Close()

	value, _, err := key.GetStringValue("")
	if err != nil {
		return "", false
	}
	return value, true
}

func findBrowsers(browsers map[string]string) {
	for name, regPath := range registryPaths {
		for _, root := range []registry.Key{registry.LOCAL_MACHINE, registry.CURRENT_USER} {
			path, ok := registryValue(root, regPath)
			if !ok {
				continue
			}
			if _, err := os.Stat(path); err == nil {
				browsers[name] = path
				break
			}
		}
	}
}
