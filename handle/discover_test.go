package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "chrome", canonicalName("google-chrome-stable"))
	assert.Equal(t, "edge", canonicalName("MSEdge"))
	assert.Equal(t, "chromium", canonicalName("chromium-browser"))
	assert.Equal(t, "firefox", canonicalName("Firefox"))
}

func TestLookupBrowser(t *testing.T) {
	found := map[string]string{
		"chrome":  "/usr/bin/google-chrome",
		"firefox": "/usr/bin/firefox",
	}

	path, ok := LookupBrowser(found, "google-chrome")
	assert.True(t, ok)
	assert.Equal(t, "/usr/bin/google-chrome", path)

	path, ok = LookupBrowser(found, "chromium")
	assert.True(t, ok, "chrome stands in for chromium")
	assert.Equal(t, "/usr/bin/google-chrome", path)

	_, ok = LookupBrowser(found, "msedge")
	assert.False(t, ok)

	_, ok = LookupBrowser(map[string]string{}, "chrome")
	assert.False(t, ok)
}

func TestFindInstalledBrowsersNeverNil(t *testing.T) {
	assert.NotNil(t, FindInstalledBrowsers())
}
