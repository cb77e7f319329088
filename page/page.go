// Package page provides Base, the page object every page of a site under
// test builds on. Each operation resolves its locator again, waits for it
// within the page's timeout and applies one browser action.
package page

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"github.com/sssxyd/go-page-handle/handle"
	"github.com/sssxyd/go-page-handle/locator"
)

// Base drives the current window and frame of a session.
type Base struct {
	session *handle.Session
	timeout time.Duration
	log     logrus.FieldLogger
}

// New returns a page over session that waits as long as the session's
// timeout.
func New(session *handle.Session, log logrus.FieldLogger) *Base {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Base{session: session, timeout: session.Timeout(), log: log}
}

// WithTimeout returns a copy of the page bound to another wait.
func (b *Base) WithTimeout(d time.Duration) *Base {
	c := *b
	c.timeout = d
	return &c
}

func (b *Base) Session() *handle.Session {
	return b.session
}

func (b *Base) Timeout() time.Duration {
	return b.timeout
}

func (b *Base) millis() *float64 {
	return playwright.Float(float64(b.timeout.Milliseconds()))
}

func (b *Base) fail(op string, loc locator.Locator, err error) error {
	err = &ElementError{Op: op, Locator: loc, Err: classify(err)}
	entry := b.log.WithFields(logrus.Fields{"op": op, "locator": loc.String()})
	if errors.Is(err, ErrUnsupportedKind) {
		entry.Warn("unsupported selector kind")
	} else {
		entry.WithError(err).Error("element operation failed")
	}
	return err
}

// pass logs a failed session operation and hands the error back.
func (b *Base) pass(op string, err error) error {
	if err != nil {
		b.log.WithField("op", op).WithError(err).Error("page operation failed")
	}
	return err
}

func (b *Base) locate(loc locator.Locator) (playwright.Locator, error) {
	selector, err := loc.Selector()
	if err != nil {
		return nil, err
	}
	scope, err := b.session.Scope()
	if err != nil {
		return nil, err
	}
	return scope.Locator(selector), nil
}

func (b *Base) wait(loc locator.Locator, state *playwright.WaitForSelectorState) (playwright.Locator, error) {
	all, err := b.locate(loc)
	if err != nil {
		return nil, err
	}
	el := all.First()
	err = el.WaitFor(playwright.LocatorWaitForOptions{State: state, Timeout: b.millis()})
	if err != nil {
		return nil, err
	}
	return el, nil
}

// Find waits for the first element matching loc to be attached.
func (b *Base) Find(loc locator.Locator) (playwright.Locator, error) {
	el, err := b.wait(loc, playwright.WaitForSelectorStateAttached)
	if err != nil {
		return nil, b.fail("find", loc, err)
	}
	return el, nil
}

// FindAll returns every element matching loc right now, without waiting.
func (b *Base) FindAll(loc locator.Locator) ([]playwright.Locator, error) {
	all, err := b.locate(loc)
	if err != nil {
		return nil, b.fail("find all", loc, err)
	}
	els, err := all.All()
	if err != nil {
		return nil, b.fail("find all", loc, err)
	}
	return els, nil
}

// WaitVisible waits for the first element matching loc to be visible.
func (b *Base) WaitVisible(loc locator.Locator) error {
	if _, err := b.wait(loc, playwright.WaitForSelectorStateVisible); err != nil {
		return b.fail("wait visible", loc, err)
	}
	return nil
}

// act applies an action to the element loc finds. Once the element is found
// any failure of the action itself is a driver error. An action that opens a
// dialog succeeds as soon as the dialog is up.
func (b *Base) act(op string, loc locator.Locator, fn func(el playwright.Locator) error) error {
	el, err := b.Find(loc)
	if err != nil {
		return err
	}
	if err := b.session.Interact(func() error { return fn(el) }); err != nil {
		return b.fail(op, loc, fmt.Errorf("%w: %w", ErrDriver, err))
	}
	b.log.WithFields(logrus.Fields{"op": op, "locator": loc.String()}).Debug("element action")
	return nil
}

// query reads from the element loc finds.
func (b *Base) query(op string, loc locator.Locator, fn func(el playwright.Locator) error) error {
	el, err := b.Find(loc)
	if err != nil {
		return err
	}
	if err := fn(el); err != nil {
		return b.fail(op, loc, fmt.Errorf("%w: %w", ErrDriver, err))
	}
	return nil
}

func (b *Base) Click(loc locator.Locator) error {
	return b.act("click", loc, func(el playwright.Locator) error {
		return el.Click(playwright.LocatorClickOptions{Timeout: b.millis()})
	})
}

func (b *Base) DoubleClick(loc locator.Locator) error {
	return b.act("double click", loc, func(el playwright.Locator) error {
		return el.Dblclick(playwright.LocatorDblclickOptions{Timeout: b.millis()})
	})
}

func (b *Base) RightClick(loc locator.Locator) error {
	return b.act("right click", loc, func(el playwright.Locator) error {
		return el.Click(playwright.LocatorClickOptions{
			Button:  playwright.MouseButtonRight,
			Timeout: b.millis(),
		})
	})
}

func (b *Base) Hover(loc locator.Locator) error {
	return b.act("hover", loc, func(el playwright.Locator) error {
		return el.Hover(playwright.LocatorHoverOptions{Timeout: b.millis()})
	})
}

// Write clears the element, then types text into it key by key.
func (b *Base) Write(loc locator.Locator, text string) error {
	return b.act("write", loc, func(el playwright.Locator) error {
		if err := el.Clear(playwright.LocatorClearOptions{Timeout: b.millis()}); err != nil {
			return err
		}
		return el.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{Timeout: b.millis()})
	})
}

func (b *Base) selectOption(op string, loc locator.Locator, values playwright.SelectOptionValues) error {
	return b.act(op, loc, func(el playwright.Locator) error {
		_, err := el.SelectOption(values, playwright.LocatorSelectOptionOptions{Timeout: b.millis()})
		return err
	})
}

// SelectByValue picks the option whose value attribute is value.
func (b *Base) SelectByValue(loc locator.Locator, value string) error {
	return b.selectOption("select by value", loc, playwright.SelectOptionValues{Values: &[]string{value}})
}

// SelectByIndex picks the index-th option, counting from 0.
func (b *Base) SelectByIndex(loc locator.Locator, index int) error {
	return b.selectOption("select by index", loc, playwright.SelectOptionValues{Indexes: &[]int{index}})
}

// SelectByText picks the option whose label is text.
func (b *Base) SelectByText(loc locator.Locator, text string) error {
	return b.selectOption("select by text", loc, playwright.SelectOptionValues{Labels: &[]string{text}})
}

// Text returns the rendered text of the element.
func (b *Base) Text(loc locator.Locator) (string, error) {
	var text string
	err := b.query("text", loc, func(el playwright.Locator) error {
		var err error
		text, err = el.InnerText(playwright.LocatorInnerTextOptions{Timeout: b.millis()})
		return err
	})
	return text, err
}

func (b *Base) IsDisplayed(loc locator.Locator) (bool, error) {
	var visible bool
	err := b.query("is displayed", loc, func(el playwright.Locator) error {
		var err error
		visible, err = el.IsVisible()
		return err
	})
	return visible, err
}

func (b *Base) IsEnabled(loc locator.Locator) (bool, error) {
	var enabled bool
	err := b.query("is enabled", loc, func(el playwright.Locator) error {
		var err error
		enabled, err = el.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: b.millis()})
		return err
	})
	return enabled, err
}

const selectedScript = `el => Boolean(el.checked || el.selected)`

// IsSelected reports whether a checkbox or radio button is checked or an
// option is selected.
func (b *Base) IsSelected(loc locator.Locator) (bool, error) {
	var selected bool
	err := b.query("is selected", loc, func(el playwright.Locator) error {
		result, err := el.Evaluate(selectedScript, nil)
		if err != nil {
			return err
		}
		selected, _ = result.(bool)
		return nil
	})
	return selected, err
}

// TableCell returns the text of the cell at row and col, both counted from
// 1, of the table inside the element loc points at. Only xpath locators can
// be extended this way.
func (b *Base) TableCell(loc locator.Locator, row, col int) (string, error) {
	if loc.Kind != locator.XPath {
		return "", b.fail("table cell", loc, fmt.Errorf("%w: table cells need an xpath locator", ErrUnsupportedKind))
	}
	return b.Text(locator.ByXPath(fmt.Sprintf("%s/table/tbody/tr[%d]/td[%d]", loc.Value, row, col)))
}

const revealScript = `el => {
	el.style.display = "block";
	el.style.visibility = "visible";
}`

// Reveal makes a hidden element, such as a styled-away file input, visible
// so it can be interacted with.
func (b *Base) Reveal(loc locator.Locator) error {
	return b.act("reveal", loc, func(el playwright.Locator) error {
		_, err := el.Evaluate(revealScript, nil)
		return err
	})
}

func (b *Base) Navigate(url string) error {
	return b.pass("navigate", b.session.Navigate(url))
}

// Title returns the title of the current window.
func (b *Base) Title() (string, error) {
	w, err := b.session.Current()
	if err != nil {
		return "", b.pass("title", err)
	}
	title, err := w.Title()
	return title, b.pass("title", err)
}

func (b *Base) MaximizeWindow() error {
	return b.pass("maximize window", b.session.Maximize())
}

func (b *Base) SwitchToFrameIndex(index int) error {
	return b.pass("switch to frame", b.session.SwitchToFrameIndex(index))
}

func (b *Base) SwitchToFrame(nameOrID string) error {
	return b.pass("switch to frame", b.session.SwitchToFrame(nameOrID))
}

func (b *Base) SwitchToParentFrame() error {
	return b.pass("switch to parent frame", b.session.SwitchToParentFrame())
}

func (b *Base) SwitchToDefaultContent() error {
	return b.pass("switch to default content", b.session.SwitchToDefaultContent())
}

func (b *Base) SwitchToWindow(id string) error {
	return b.pass("switch to window", b.session.SwitchToWindow(id))
}

// SwitchToWindowWithTitle switches to the window titled title. When there is
// none the current window stays current and ErrNoSuchWindow is returned.
func (b *Base) SwitchToWindowWithTitle(title string) error {
	return b.pass("switch to window", b.session.SwitchToWindowWithTitle(title))
}

func (b *Base) WindowHandle() string {
	return b.session.WindowHandle()
}

func (b *Base) WindowHandles() []string {
	return b.session.WindowHandles()
}

func (b *Base) AcceptAlert(promptText ...string) error {
	return b.pass("accept alert", b.session.AcceptAlert(promptText...))
}

func (b *Base) DismissAlert() error {
	return b.pass("dismiss alert", b.session.DismissAlert())
}
