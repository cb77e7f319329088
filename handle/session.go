package handle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"github.com/sssxyd/go-page-handle/config"
)

// dialogQueue bounds how many unhandled dialogs are kept; later ones are
// dismissed.
const dialogQueue = 4

type Options struct {
	// Timeout bounds element waits and alert waits. Zero means
	// config.DefaultTimeout.
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// Session is one live browser connection: its windows, the window and frame
// commands currently apply to, and the dialogs waiting to be handled.
//
// playwright delivers events on the goroutine that reads RPC replies, so
// locker is never held across a call into the browser.
type Session struct {
	context playwright.BrowserContext
	timeout time.Duration
	log     logrus.FieldLogger

	locker  sync.Mutex
	windows []*Window
	current *Window
	frame   playwright.Frame // nil means the main frame of current
	closed  bool

	dialogs chan playwright.Dialog
	opened  chan struct{} // closed and replaced when a dialog is queued
	alive   func() bool
	closers []func() error
}

// NewSession takes over a browser context. Pages already open become
// windows, otherwise a blank one is opened. Pages the site opens later are
// tracked as they appear.
func NewSession(browserContext playwright.BrowserContext, opts Options) (*Session, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	s := &Session{
		context: browserContext,
		timeout: opts.Timeout,
		log:     opts.Logger,
		dialogs: make(chan playwright.Dialog, dialogQueue),
		opened:  make(chan struct{}),
	}

	browserContext.OnPage(func(page playwright.Page) { s.adopt(page) })

	for _, page := range browserContext.Pages() {
		if !page.IsClosed() {
			s.adopt(page)
		}
	}
	if len(s.Windows()) == 0 {
		page, err := browserContext.NewPage()
		if err != nil {
			return nil, fmt.Errorf("open window: %w", err)
		}
		s.adopt(page)
	}
	return s, nil
}

// adopt tracks page as a window. It only holds locker for the bookkeeping
// and returns nil once the session is closed.
func (s *Session) adopt(page playwright.Page) *Window {
	s.locker.Lock()
	if s.closed {
		s.locker.Unlock()
		return nil
	}
	for _, w := range s.windows {
		if w.page == page {
			s.locker.Unlock()
			return w
		}
	}
	w := &Window{id: uuid.NewString(), page: page}
	s.windows = append(s.windows, w)
	if s.current == nil {
		s.current = w
	}
	s.locker.Unlock()

	page.OnDialog(s.queueDialog)
	forwardConsole(page, s.log.WithField("window", w.id))
	s.log.WithField("window", w.id).Debug("window opened")
	return w
}

// commit makes w current with frame as the scope, unless the session was
// closed or w stopped being tracked while the lock was released.
func (s *Session) commit(w *Window, frame playwright.Frame) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !slices.Contains(s.windows, w) || w.IsClosed() {
		return fmt.Errorf("%w: window %s closed", ErrNoSuchWindow, w.id)
	}
	s.current, s.frame = w, frame
	return nil
}

// commitFrame sets the scope of w, which must still be current.
func (s *Session) commitFrame(w *Window, frame playwright.Frame) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if _, err := s.currentLocked(); err != nil {
		return err
	}
	if s.current != w {
		return fmt.Errorf("%w: window %s is no longer current", ErrNoSuchWindow, w.id)
	}
	s.frame = frame
	return nil
}

// snapshot returns the current window and scope.
func (s *Session) snapshot() (*Window, playwright.Frame, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	w, err := s.currentLocked()
	if err != nil {
		return nil, nil, err
	}
	return w, s.frame, nil
}

func (s *Session) removeWindow(id string) {
	for i, w := range s.windows {
		if w.id == id {
			s.windows = slices.Delete(s.windows, i, i+1)
			break
		}
	}
}

func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// IsAlive reports whether the session is open and its browser still
// connected.
func (s *Session) IsAlive() bool {
	s.locker.Lock()
	closed, alive := s.closed, s.alive
	s.locker.Unlock()
	if closed {
		return false
	}
	return alive == nil || alive()
}

func (s *Session) currentLocked() (*Window, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.current == nil || s.current.IsClosed() {
		return nil, fmt.Errorf("%w: current window is closed", ErrNoSuchWindow)
	}
	return s.current, nil
}


// Current returns the window commands apply to.
func (s *Session) Current() (*Window, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.currentLocked()
}

// Scope returns the frame element lookups run in.
func (s *Session) Scope() (playwright.Frame, error) {
	w, frame, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if frame != nil {
		return frame, nil
	}
	return w.page.MainFrame(), nil
}

func (s *Session) Navigate(url string) error {
	w, err := s.Current()
	if err != nil {
		return err
	}
	if _, err := w.page.Goto(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return s.commitFrame(w, nil)
}

// Windows returns the open windows in the order they appeared.
func (s *Session) Windows() []*Window {
	s.locker.Lock()
	defer s.locker.Unlock()
	windows := make([]*Window, 0, len(s.windows))
	for _, w := range s.windows {
		if !w.IsClosed() {
			windows = append(windows, w)
		}
	}
	return windows
}

func (s *Session) WindowHandle() string {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.id
}

func (s *Session) WindowHandles() []string {
	windows := s.Windows()
	handles := make([]string, 0, len(windows))
	for _, w := range windows {
		handles = append(handles, w.id)
	}
	return handles
}

// NewWindow opens a tab at url and switches to it.
func (s *Session) NewWindow(url string) (*Window, error) {
	if _, err := s.Current(); errors.Is(err, ErrSessionClosed) {
		return nil, err
	}
	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("open window: %w", err)
	}
	w := s.adopt(page)
	if w == nil {
		return nil, ErrSessionClosed
	}
	if err := s.commit(w, nil); err != nil {
		return nil, err
	}

	if url == "" {
		return w, nil
	}
	if _, err := page.Goto(url); err != nil {
		return w, fmt.Errorf("navigate to %s: %w", url, err)
	}
	return w, nil
}

func (s *Session) switchTo(w *Window) error {
	if err := w.page.BringToFront(); err != nil {
		return fmt.Errorf("bring window %s to front: %w", w.id, err)
	}
	return s.commit(w, nil)
}

// openWindows returns the tracked windows that are still open.
func (s *Session) openWindows() ([]*Window, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	windows := make([]*Window, 0, len(s.windows))
	for _, w := range s.windows {
		if !w.IsClosed() {
			windows = append(windows, w)
		}
	}
	return windows, nil
}

func (s *Session) SwitchToWindow(handle string) error {
	windows, err := s.openWindows()
	if err != nil {
		return err
	}
	for _, w := range windows {
		if w.id == handle {
			return s.switchTo(w)
		}
	}
	return fmt.Errorf("%w: %s", ErrNoSuchWindow, handle)
}

// SwitchToWindowWithTitle switches to the first window whose title is title.
// When none matches the current window is kept.
func (s *Session) SwitchToWindowWithTitle(title string) error {
	windows, err := s.openWindows()
	if err != nil {
		return err
	}
	for _, w := range windows {
		t, err := w.Title()
		if err != nil {
			s.log.WithField("window", w.id).WithError(err).Warn("read window title")
			continue
		}
		if t == title {
			return s.switchTo(w)
		}
	}
	return fmt.Errorf("%w: no window titled %q", ErrNoSuchWindow, title)
}

// CloseWindow closes the current window and switches to the first one left.
func (s *Session) CloseWindow() error {
	s.locker.Lock()
	w, err := s.currentLocked()
	if err != nil {
		s.locker.Unlock()
		return err
	}
	s.removeWindow(w.id)
	s.current, s.frame = nil, nil
	for _, next := range s.windows {
		if !next.IsClosed() {
			s.current = next
			break
		}
	}
	s.locker.Unlock()

	if err := w.page.Close(); err != nil {
		return fmt.Errorf("close window %s: %w", w.id, err)
	}
	return nil
}

// SwitchToFrameIndex switches into the index-th child frame of the current
// frame.
func (s *Session) SwitchToFrameIndex(index int) error {
	w, scope, err := s.frameScope()
	if err != nil {
		return err
	}
	children := scope.ChildFrames()
	if index < 0 || index >= len(children) {
		return fmt.Errorf("%w: index %d, %d frames", ErrNoSuchFrame, index, len(children))
	}
	return s.commitFrame(w, children[index])
}

// SwitchToFrame switches into the child frame with the given name, or whose
// frame element has the given id.
func (s *Session) SwitchToFrame(nameOrID string) error {
	w, scope, err := s.frameScope()
	if err != nil {
		return err
	}
	for _, child := range scope.ChildFrames() {
		if child.Name() == nameOrID {
			return s.commitFrame(w, child)
		}
	}
	for _, child := range scope.ChildFrames() {
		el, err := child.FrameElement()
		if err != nil {
			continue
		}
		if id, err := el.GetAttribute("id"); err == nil && id == nameOrID {
			return s.commitFrame(w, child)
		}
	}
	return fmt.Errorf("%w: %s", ErrNoSuchFrame, nameOrID)
}

func (s *Session) frameScope() (*Window, playwright.Frame, error) {
	w, frame, err := s.snapshot()
	if err != nil {
		return nil, nil, err
	}
	if frame == nil {
		frame = w.page.MainFrame()
	}
	return w, frame, nil
}

func (s *Session) SwitchToParentFrame() error {
	w, frame, err := s.snapshot()
	if err != nil || frame == nil {
		return err
	}
	parent := frame.ParentFrame()
	if parent == nil || parent == w.page.MainFrame() {
		parent = nil
	}
	return s.commitFrame(w, parent)
}

func (s *Session) SwitchToDefaultContent() error {
	w, _, err := s.snapshot()
	if err != nil {
		return err
	}
	return s.commitFrame(w, nil)
}

func (s *Session) queueDialog(d playwright.Dialog) {
	log := s.log.WithField("dialog", d.Type())
	select {
	case s.dialogs <- d:
		log.Debugf("dialog opened: %s", d.Message())
		s.locker.Lock()
		close(s.opened)
		s.opened = make(chan struct{})
		s.locker.Unlock()
	default:
		log.Warnf("too many open dialogs, dismissing: %s", d.Message())
		if err := d.Dismiss(); err != nil {
			log.WithError(err).Warn("dismiss dialog")
		}
	}
}

func (s *Session) nextDialog() (playwright.Dialog, error) {
	s.locker.Lock()
	closed := s.closed
	s.locker.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case d := <-s.dialogs:
		return d, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w within %s", ErrNoAlert, s.timeout)
	}
}

// Interact runs fn, an action on the current window. A page that opens a
// dialog stays blocked until the dialog is handled, so Interact returns nil
// as soon as a dialog is queued and lets fn finish in the background.
func (s *Session) Interact(fn func() error) error {
	s.locker.Lock()
	opened := s.opened
	s.locker.Unlock()

	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-opened:
		s.log.Debug("action opened a dialog")
		go func() {
			if err := <-done; err != nil {
				s.log.WithError(err).Debug("action finished after its dialog")
			}
		}()
		return nil
	}
}

// AcceptAlert accepts the oldest open dialog, typing promptText into it
// when it is a prompt.
func (s *Session) AcceptAlert(promptText ...string) error {
	d, err := s.nextDialog()
	if err != nil {
		return err
	}
	if err := d.Accept(promptText...); err != nil {
		return fmt.Errorf("accept %s: %w", d.Type(), err)
	}
	return nil
}

func (s *Session) DismissAlert() error {
	d, err := s.nextDialog()
	if err != nil {
		return err
	}
	if err := d.Dismiss(); err != nil {
		return fmt.Errorf("dismiss %s: %w", d.Type(), err)
	}
	return nil
}

const screenScript = `() => ({ width: window.screen.availWidth, height: window.screen.availHeight })`

type screenSize struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// Maximize sizes the viewport of the current window to the screen's
// available area.
func (s *Session) Maximize() error {
	w, err := s.Current()
	if err != nil {
		return err
	}
	result, err := w.page.MainFrame().Evaluate(screenScript)
	if err != nil {
		return fmt.Errorf("read screen size: %w", err)
	}
	var size screenSize
	if err := mapstructure.Decode(result, &size); err != nil {
		return fmt.Errorf("read screen size: %w", err)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("read screen size: got %dx%d", size.Width, size.Height)
	}
	return w.page.SetViewportSize(size.Width, size.Height)
}

// Evaluate runs a playwright expression or function in the current frame.
func (s *Session) Evaluate(expression string, arg ...any) (any, error) {
	scope, err := s.Scope()
	if err != nil {
		return nil, err
	}
	return scope.Evaluate(expression, arg...)
}

const scriptWrapper = "(args) => (function() {\n%s\n}).apply(null, args)"

// ExecuteScript runs a function body in the current frame. The body reads
// its arguments from `arguments` and hands back a value with `return`.
func (s *Session) ExecuteScript(body string, args ...any) (any, error) {
	if args == nil {
		args = []any{}
	}
	return s.Evaluate(fmt.Sprintf(scriptWrapper, body), args)
}

// Screenshot writes a PNG of the current window to path.
func (s *Session) Screenshot(path string) error {
	w, err := s.Current()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := w.page.Screenshot(playwright.PageScreenshotOptions{Path: playwright.String(path)}); err != nil {
		return fmt.Errorf("screenshot %s: %w", path, err)
	}
	return nil
}

// Close closes every window, then whatever started the session. Closing a
// closed session does nothing.
func (s *Session) Close() error {
	s.locker.Lock()
	if s.closed {
		s.locker.Unlock()
		return nil
	}
	s.closed = true
	windows, closers := s.windows, s.closers
	s.windows, s.current, s.frame = nil, nil, nil
	s.locker.Unlock()

	var errs []error
	for _, w := range windows {
		if w.IsClosed() {
			continue
		}
		if err := w.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close window %s: %w", w.id, err))
		}
	}
	for _, fn := range closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		s.log.WithError(err).Error("close session")
	} else {
		s.log.Debug("session closed")
	}
	return err
}
