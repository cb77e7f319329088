package handle

import "errors"

var (
	ErrSessionClosed      = errors.New("session closed")
	ErrNoSuchWindow       = errors.New("no such window")
	ErrNoSuchFrame        = errors.New("no such frame")
	ErrNoAlert            = errors.New("no alert open")
	ErrUnsupportedBrowser = errors.New("unsupported browser")
	ErrBrowserNotFound    = errors.New("browser not installed")
)
