// Package pwfake provides in-memory stand-ins for the playwright interfaces
// used by this module. Each fake embeds the playwright interface it replaces,
// so calling a method that is not overridden here panics.
package pwfake

import (
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Aliases give the embedded interfaces field names that do not collide with
// their own methods, such as Locator.Locator.
type (
	pwContext        = playwright.BrowserContext
	pwPage           = playwright.Page
	pwFrame          = playwright.Frame
	pwElementHandle  = playwright.ElementHandle
	pwLocator        = playwright.Locator
	pwDialog         = playwright.Dialog
	pwConsoleMessage = playwright.ConsoleMessage
)

// handleWait bounds how long an action that opened a dialog waits for it to
// be handled.
const handleWait = 2 * time.Second

// Element is a node the fakes can resolve a selector to.
type Element struct {
	Text     string
	Value    string
	Hidden   bool
	Disabled bool
	// EvalResult is returned by Locator.Evaluate on this element.
	EvalResult any
	// Err fails every action on the element after it was found.
	Err error
	// Opens is delivered to the page's dialog listeners when the element is
	// clicked. The click then blocks until the dialog is handled.
	Opens *Dialog
	// Calls records every action applied to the element, in order.
	Calls []string
}

func (e *Element) record(call string) { e.Calls = append(e.Calls, call) }

type Context struct {
	pwContext

	mu         sync.Mutex
	pages      []*Page
	onPage     []func(playwright.Page)
	NewPageErr error
	Closed     bool
}

func NewContext(pages ...*Page) *Context {
	return &Context{pages: pages}
}

func (c *Context) NewPage() (playwright.Page, error) {
	if c.NewPageErr != nil {
		return nil, c.NewPageErr
	}
	p := NewPage("", "about:blank")
	c.Popup(p)
	return p, nil
}

// Popup adds a page as if the site had opened it and fires the page
// listeners.
func (c *Context) Popup(p *Page) {
	c.mu.Lock()
	c.pages = append(c.pages, p)
	listeners := append([]func(playwright.Page){}, c.onPage...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
}

func (c *Context) Pages() []playwright.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	pages := make([]playwright.Page, 0, len(c.pages))
	for _, p := range c.pages {
		pages = append(pages, p)
	}
	return pages
}

func (c *Context) OnPage(fn func(playwright.Page)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPage = append(c.onPage, fn)
}

func (c *Context) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.Closed = true
	return nil
}

type Page struct {
	pwPage

	Main        *Frame
	TitleText   string
	Location    string
	Closed      bool
	Fronted     int
	ViewportSet [2]int
	Screenshots []string
	CloseErr    error
	// TitleHook and CloseHook run inside Title and Close, as a site's scripts
	// would while the call is in flight.
	TitleHook func()
	CloseHook func()

	dialogs []func(playwright.Dialog)
	console []func(playwright.ConsoleMessage)
}

func NewPage(title, url string) *Page {
	p := &Page{TitleText: title, Location: url}
	p.Main = NewFrame("")
	p.Main.page = p
	return p
}

func (p *Page) MainFrame() playwright.Frame { return p.Main }

func (p *Page) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.Location = url
	return nil, nil
}

func (p *Page) Title() (string, error) {
	if p.TitleHook != nil {
		p.TitleHook()
	}
	return p.TitleText, nil
}

func (p *Page) URL() string { return p.Location }

func (p *Page) IsClosed() bool { return p.Closed }

func (p *Page) Close(options ...playwright.PageCloseOptions) error {
	if p.CloseHook != nil {
		p.CloseHook()
	}
	p.Closed = true
	return p.CloseErr
}

func (p *Page) BringToFront() error {
	p.Fronted++
	return nil
}

func (p *Page) OnDialog(fn func(playwright.Dialog)) { p.dialogs = append(p.dialogs, fn) }

func (p *Page) OnConsole(fn func(playwright.ConsoleMessage)) { p.console = append(p.console, fn) }

// OpenDialog delivers d to the dialog listeners as the browser would.
func (p *Page) OpenDialog(d *Dialog) {
	for _, fn := range p.dialogs {
		fn(d)
	}
}

// Log delivers a console message to the console listeners.
func (p *Page) Log(kind, text string) {
	for _, fn := range p.console {
		fn(&ConsoleMessage{kind: kind, text: text})
	}
}

func (p *Page) SetViewportSize(width, height int) error {
	p.ViewportSet = [2]int{width, height}
	return nil
}

func (p *Page) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	for _, o := range options {
		if o.Path != nil {
			p.Screenshots = append(p.Screenshots, *o.Path)
		}
	}
	return []byte("\x89PNG"), nil
}

func (p *Page) SetDefaultTimeout(timeout float64) {}

type Frame struct {
	pwFrame

	FrameName string
	ElementID string
	Elements  map[string][]*Element

	// EvalResult and EvalErr are returned by Evaluate; Scripts records the
	// evaluated expressions.
	EvalResult any
	EvalErr    error
	Scripts    []string
	EvalArgs   []any
	// Waits records the timeout in milliseconds of every locator wait.
	Waits []float64

	page     *Page
	parent   *Frame
	children []*Frame
}

func NewFrame(name string) *Frame {
	return &Frame{FrameName: name, Elements: map[string][]*Element{}}
}

// Add registers el under a playwright selector such as "id=login".
func (f *Frame) Add(selector string, el *Element) *Element {
	f.Elements[selector] = append(f.Elements[selector], el)
	return el
}

// Attach makes child an iframe of f.
func (f *Frame) Attach(child *Frame) *Frame {
	child.parent = f
	child.page = f.page
	f.children = append(f.children, child)
	return child
}

func (f *Frame) Locator(selector string, options ...playwright.FrameLocatorOptions) playwright.Locator {
	return &Locator{frame: f, selector: selector}
}

func (f *Frame) ChildFrames() []playwright.Frame {
	frames := make([]playwright.Frame, 0, len(f.children))
	for _, c := range f.children {
		frames = append(frames, c)
	}
	return frames
}

func (f *Frame) ParentFrame() playwright.Frame {
	if f.parent == nil {
		return nil
	}
	return f.parent
}

func (f *Frame) Name() string { return f.FrameName }

func (f *Frame) FrameElement() (playwright.ElementHandle, error) {
	if f.parent == nil {
		return nil, fmt.Errorf("main frame has no frame element")
	}
	return &ElementHandle{attrs: map[string]string{"id": f.ElementID, "name": f.FrameName}}, nil
}

func (f *Frame) Evaluate(expression string, arg ...any) (any, error) {
	f.Scripts = append(f.Scripts, expression)
	f.EvalArgs = append(f.EvalArgs, arg...)
	return f.EvalResult, f.EvalErr
}

type ElementHandle struct {
	pwElementHandle
	attrs map[string]string
}

func (h *ElementHandle) GetAttribute(name string) (string, error) {
	return h.attrs[name], nil
}

// Locator resolves lazily against its frame, like the real one.
type Locator struct {
	pwLocator

	frame    *Frame
	selector string
	index    int
}

func (l *Locator) element() (*Element, error) {
	els := l.frame.Elements[l.selector]
	if l.index >= len(els) {
		return nil, fmt.Errorf("%w: no element matches %s", playwright.ErrTimeout, l.selector)
	}
	return els[l.index], nil
}

func (l *Locator) First() playwright.Locator { return l }

func (l *Locator) WaitFor(options ...playwright.LocatorWaitForOptions) error {
	visible := false
	for _, o := range options {
		if o.Timeout != nil {
			l.frame.Waits = append(l.frame.Waits, *o.Timeout)
		}
		if o.State != nil && *o.State == *playwright.WaitForSelectorStateVisible {
			visible = true
		}
	}
	el, err := l.element()
	if err != nil {
		return err
	}
	if visible && el.Hidden {
		return fmt.Errorf("%w: %s is not visible", playwright.ErrTimeout, l.selector)
	}
	return nil
}

func (l *Locator) act(call string) (*Element, error) {
	el, err := l.element()
	if err != nil {
		return nil, err
	}
	el.record(call)
	return el, el.Err
}

func (l *Locator) Click(options ...playwright.LocatorClickOptions) error {
	call := "click"
	for _, o := range options {
		if o.Button != nil && *o.Button == *playwright.MouseButtonRight {
			call = "rightclick"
		}
	}
	el, err := l.act(call)
	if err != nil || el.Opens == nil {
		return err
	}
	l.frame.page.OpenDialog(el.Opens)
	select {
	case <-el.Opens.handled():
		return nil
	case <-time.After(handleWait):
		return fmt.Errorf("%w: %s dialog was never handled", playwright.ErrTimeout, el.Opens.Kind)
	}
}

func (l *Locator) Dblclick(options ...playwright.LocatorDblclickOptions) error {
	_, err := l.act("dblclick")
	return err
}

func (l *Locator) Hover(options ...playwright.LocatorHoverOptions) error {
	_, err := l.act("hover")
	return err
}

func (l *Locator) Clear(options ...playwright.LocatorClearOptions) error {
	el, err := l.act("clear")
	if err != nil {
		return err
	}
	el.Value = ""
	return nil
}

func (l *Locator) PressSequentially(text string, options ...playwright.LocatorPressSequentiallyOptions) error {
	el, err := l.act("type:" + text)
	if err != nil {
		return err
	}
	el.Value += text
	return nil
}

func (l *Locator) SelectOption(values playwright.SelectOptionValues, options ...playwright.LocatorSelectOptionOptions) ([]string, error) {
	var call string
	switch {
	case values.Values != nil:
		call = fmt.Sprintf("select-value:%v", *values.Values)
	case values.Indexes != nil:
		call = fmt.Sprintf("select-index:%v", *values.Indexes)
	case values.Labels != nil:
		call = fmt.Sprintf("select-label:%v", *values.Labels)
	}
	if _, err := l.act(call); err != nil {
		return nil, err
	}
	if values.Values != nil {
		return *values.Values, nil
	}
	return nil, nil
}

func (l *Locator) InnerText(options ...playwright.LocatorInnerTextOptions) (string, error) {
	el, err := l.element()
	if err != nil {
		return "", err
	}
	if el.Err != nil {
		return "", el.Err
	}
	return el.Text, nil
}

func (l *Locator) IsVisible(options ...playwright.LocatorIsVisibleOptions) (bool, error) {
	el, err := l.element()
	if err != nil {
		return false, err
	}
	if el.Err != nil {
		return false, el.Err
	}
	return !el.Hidden, nil
}

func (l *Locator) IsEnabled(options ...playwright.LocatorIsEnabledOptions) (bool, error) {
	el, err := l.element()
	if err != nil {
		return false, err
	}
	if el.Err != nil {
		return false, el.Err
	}
	return !el.Disabled, nil
}

func (l *Locator) Evaluate(expression string, arg any, options ...playwright.LocatorEvaluateOptions) (any, error) {
	el, err := l.act("eval:" + expression)
	if err != nil {
		return nil, err
	}
	return el.EvalResult, nil
}

func (l *Locator) All() ([]playwright.Locator, error) {
	els := l.frame.Elements[l.selector]
	all := make([]playwright.Locator, 0, len(els))
	for i := range els {
		all = append(all, &Locator{frame: l.frame, selector: l.selector, index: i})
	}
	return all, nil
}

type Dialog struct {
	pwDialog

	Kind       string
	Text       string
	Accepted   bool
	Dismissed  bool
	PromptText string

	once sync.Once
	done chan struct{}
}

func (d *Dialog) handled() chan struct{} {
	d.once.Do(func() { d.done = make(chan struct{}) })
	return d.done
}

func (d *Dialog) settle() {
	done := d.handled()
	select {
	case <-done:
	default:
		close(done)
	}
}

func (d *Dialog) Type() string { return d.Kind }

func (d *Dialog) Message() string { return d.Text }

func (d *Dialog) Accept(promptText ...string) error {
	d.Accepted = true
	if len(promptText) > 0 {
		d.PromptText = promptText[0]
	}
	d.settle()
	return nil
}

func (d *Dialog) Dismiss() error {
	d.Dismissed = true
	d.settle()
	return nil
}

type ConsoleMessage struct {
	pwConsoleMessage
	kind, text string
}

func (m *ConsoleMessage) Type() string { return m.kind }

func (m *ConsoleMessage) Text() string { return m.text }
