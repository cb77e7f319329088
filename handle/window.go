package handle

import (
	"github.com/playwright-community/playwright-go"
)

// Window is a browser tab or popup tracked by a Session. Its ID is the
// handle used to switch back to it.
type Window struct {
	id   string
	page playwright.Page
}

func (w *Window) ID() string {
	return w.id
}

func (w *Window) Title() (string, error) {
	return w.page.Title()
}

func (w *Window) URL() string {
	return w.page.URL()
}

func (w *Window) IsClosed() bool {
	return w.page.IsClosed()
}

func (w *Window) Page() playwright.Page {
	return w.page
}
