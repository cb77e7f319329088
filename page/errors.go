package page

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/sssxyd/go-page-handle/handle"
	"github.com/sssxyd/go-page-handle/locator"
)

var (
	// ErrElementNotFound means no element matched the locator within the
	// wait bound.
	ErrElementNotFound = errors.New("element not found")
	// ErrUnsupportedKind is reported for locators whose kind has no
	// selector strategy.
	ErrUnsupportedKind = locator.ErrUnsupportedKind
	// ErrDriver wraps any other failure reported by the browser driver.
	ErrDriver = errors.New("driver operation failed")
)

// ElementError reports an element operation that failed. Err wraps one of
// ErrElementNotFound, ErrUnsupportedKind, ErrDriver, locator.ErrInvalidSelector
// or a session error from package handle.
type ElementError struct {
	Op      string
	Locator locator.Locator
	Err     error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Locator, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

func classify(err error) error {
	switch {
	case errors.Is(err, locator.ErrUnsupportedKind),
		errors.Is(err, locator.ErrInvalidSelector),
		errors.Is(err, handle.ErrSessionClosed),
		errors.Is(err, handle.ErrNoSuchWindow),
		errors.Is(err, ErrElementNotFound),
		errors.Is(err, ErrDriver):
		return err
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrElementNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrDriver, err)
	}
}
