package page_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sssxyd/go-page-handle/handle"
	"github.com/sssxyd/go-page-handle/internal/pwfake"
	"github.com/sssxyd/go-page-handle/locator"
	"github.com/sssxyd/go-page-handle/page"
)

type fixture struct {
	page *page.Base
	web  *pwfake.Page
	hook *logtest.Hook
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	web := pwfake.NewPage("Login", "https://example.com/login")
	s, err := handle.NewSession(pwfake.NewContext(web), handle.Options{
		Timeout: 50 * time.Millisecond,
		Logger:  logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	hook.Reset()
	return &fixture{page: page.New(s, logger), web: web, hook: hook}
}

func TestFindSupportedKinds(t *testing.T) {
	f := setup(t)
	main := f.web.Main
	main.Add(`xpath=//button[@type="submit"]`, &pwfake.Element{Text: "Sign in"})
	main.Add("css=form > input.user", &pwfake.Element{})
	main.Add("id=password", &pwfake.Element{})
	main.Add(`css=[class~="banner"]`, &pwfake.Element{})

	for _, loc := range []locator.Locator{
		locator.ByXPath(`//button[@type="submit"]`),
		locator.ByCSS("form > input.user"),
		locator.ByID("password"),
		locator.ByClassName("banner"),
	} {
		el, err := f.page.Find(loc)
		require.NoError(t, err, loc.String())
		assert.NotNil(t, el)
	}
	assert.Equal(t, []float64{50, 50, 50, 50}, main.Waits)
}

func TestFindNotFound(t *testing.T) {
	f := setup(t)

	_, err := f.page.Find(locator.ByID("missing"))
	assert.ErrorIs(t, err, page.ErrElementNotFound)
	assert.ErrorIs(t, err, playwright.ErrTimeout)

	var elErr *page.ElementError
	require.ErrorAs(t, err, &elErr)
	assert.Equal(t, "find", elErr.Op)
	assert.Equal(t, locator.ByID("missing"), elErr.Locator)

	entry := f.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "id=missing", entry.Data["locator"])
}

func TestFindUnsupportedKind(t *testing.T) {
	f := setup(t)

	el, err := f.page.Find(locator.Locator{Value: "q", Kind: "name"})
	assert.Nil(t, el)
	assert.ErrorIs(t, err, page.ErrUnsupportedKind)

	entry := f.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Empty(t, f.web.Main.Waits, "nothing is waited for")
}

func TestFindUsesPageTimeout(t *testing.T) {
	f := setup(t)
	f.web.Main.Add("id=slow", &pwfake.Element{})

	_, err := f.page.WithTimeout(2 * time.Second).Find(locator.ByID("slow"))
	require.NoError(t, err)
	assert.Equal(t, []float64{2000}, f.web.Main.Waits)
	assert.Equal(t, 50*time.Millisecond, f.page.Timeout())
}

func TestFindAll(t *testing.T) {
	f := setup(t)
	f.web.Main.Add(`css=[class~="item"]`, &pwfake.Element{Text: "a"})
	f.web.Main.Add(`css=[class~="item"]`, &pwfake.Element{Text: "b"})

	els, err := f.page.FindAll(locator.ByClassName("item"))
	require.NoError(t, err)
	require.Len(t, els, 2)
	text, err := els[1].InnerText()
	require.NoError(t, err)
	assert.Equal(t, "b", text)

	els, err = f.page.FindAll(locator.ByClassName("none"))
	require.NoError(t, err)
	assert.Empty(t, els)

	_, err = f.page.FindAll(locator.ByClassName("two words"))
	assert.ErrorIs(t, err, locator.ErrInvalidSelector)
}

func TestActions(t *testing.T) {
	f := setup(t)
	button := f.web.Main.Add("id=go", &pwfake.Element{})

	require.NoError(t, f.page.Click(locator.ByID("go")))
	require.NoError(t, f.page.DoubleClick(locator.ByID("go")))
	require.NoError(t, f.page.RightClick(locator.ByID("go")))
	require.NoError(t, f.page.Hover(locator.ByID("go")))
	assert.Equal(t, []string{"click", "dblclick", "rightclick", "hover"}, button.Calls)

	err := f.page.Click(locator.ByID("gone"))
	assert.ErrorIs(t, err, page.ErrElementNotFound)
}

func TestActionFailureAfterFindIsDriverError(t *testing.T) {
	f := setup(t)
	covered := fmt.Errorf("%w: element is covered by another element", playwright.ErrTimeout)
	f.web.Main.Add("id=go", &pwfake.Element{Text: "Go", Err: covered})

	err := f.page.Click(locator.ByID("go"))
	assert.ErrorIs(t, err, page.ErrDriver)
	assert.ErrorIs(t, err, playwright.ErrTimeout)
	assert.NotErrorIs(t, err, page.ErrElementNotFound)

	_, err = f.page.Text(locator.ByID("go"))
	assert.ErrorIs(t, err, page.ErrDriver)
	assert.NotErrorIs(t, err, page.ErrElementNotFound)

	err = f.page.Click(locator.ByID("missing"))
	assert.ErrorIs(t, err, page.ErrElementNotFound)
	assert.NotErrorIs(t, err, page.ErrDriver)
}

func TestClickThatOpensAlert(t *testing.T) {
	f := setup(t)
	alert := &pwfake.Dialog{Kind: "alert", Text: "Saved"}
	save := f.web.Main.Add("id=save", &pwfake.Element{Opens: alert})

	require.NoError(t, f.page.Click(locator.ByID("save")))
	assert.Equal(t, []string{"click"}, save.Calls)
	assert.False(t, alert.Accepted)

	require.NoError(t, f.page.AcceptAlert())
	assert.True(t, alert.Accepted)
	assert.ErrorIs(t, f.page.AcceptAlert(), handle.ErrNoAlert)
}

func TestWriteClearsFirst(t *testing.T) {
	f := setup(t)
	input := f.web.Main.Add("id=user", &pwfake.Element{Value: "stale"})

	require.NoError(t, f.page.Write(locator.ByID("user"), "ada"))
	assert.Equal(t, "ada", input.Value)
	assert.Equal(t, []string{"clear", "type:ada"}, input.Calls)

	require.NoError(t, f.page.Write(locator.ByID("user"), "grace"))
	assert.Equal(t, "grace", input.Value)
}

func TestSelectModes(t *testing.T) {
	f := setup(t)
	dropdown := f.web.Main.Add("id=country", &pwfake.Element{})
	loc := locator.ByID("country")

	require.NoError(t, f.page.SelectByValue(loc, "uy"))
	require.NoError(t, f.page.SelectByIndex(loc, 2))
	require.NoError(t, f.page.SelectByText(loc, "Uruguay"))
	assert.Equal(t, []string{
		"select-value:[uy]",
		"select-index:[2]",
		"select-label:[Uruguay]",
	}, dropdown.Calls)
}

func TestQueries(t *testing.T) {
	f := setup(t)
	f.web.Main.Add("id=title", &pwfake.Element{Text: "Welcome"})
	f.web.Main.Add("id=terms", &pwfake.Element{Hidden: true, Disabled: true, EvalResult: true})
	f.web.Main.Add("id=news", &pwfake.Element{EvalResult: false})

	text, err := f.page.Text(locator.ByID("title"))
	require.NoError(t, err)
	assert.Equal(t, "Welcome", text)

	displayed, err := f.page.IsDisplayed(locator.ByID("title"))
	require.NoError(t, err)
	assert.True(t, displayed)
	displayed, err = f.page.IsDisplayed(locator.ByID("terms"))
	require.NoError(t, err)
	assert.False(t, displayed)

	enabled, err := f.page.IsEnabled(locator.ByID("terms"))
	require.NoError(t, err)
	assert.False(t, enabled)

	selected, err := f.page.IsSelected(locator.ByID("terms"))
	require.NoError(t, err)
	assert.True(t, selected)
	selected, err = f.page.IsSelected(locator.ByID("news"))
	require.NoError(t, err)
	assert.False(t, selected)

	_, err = f.page.Text(locator.ByID("nope"))
	assert.ErrorIs(t, err, page.ErrElementNotFound)
}

func TestWaitVisible(t *testing.T) {
	f := setup(t)
	f.web.Main.Add("id=shown", &pwfake.Element{})
	f.web.Main.Add("id=hidden", &pwfake.Element{Hidden: true})

	require.NoError(t, f.page.WaitVisible(locator.ByID("shown")))
	assert.ErrorIs(t, f.page.WaitVisible(locator.ByID("hidden")), page.ErrElementNotFound)
}

func TestTableCell(t *testing.T) {
	f := setup(t)
	f.web.Main.Add(`xpath=//div[@id="prices"]/table/tbody/tr[2]/td[3]`, &pwfake.Element{Text: "42.00"})

	text, err := f.page.TableCell(locator.ByXPath(`//div[@id="prices"]`), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "42.00", text)

	_, err = f.page.TableCell(locator.ByID("prices"), 2, 3)
	assert.ErrorIs(t, err, page.ErrUnsupportedKind)
}

func TestReveal(t *testing.T) {
	f := setup(t)
	file := f.web.Main.Add("id=fileField", &pwfake.Element{Hidden: true})

	require.NoError(t, f.page.Reveal(locator.ByID("fileField")))
	require.Len(t, file.Calls, 1)
	assert.Contains(t, file.Calls[0], `el.style.visibility = "visible"`)
}

func TestActionsRunInCurrentFrame(t *testing.T) {
	f := setup(t)
	frame := f.web.Main.Attach(pwfake.NewFrame("editor"))
	field := frame.Add("id=body", &pwfake.Element{})

	assert.ErrorIs(t, f.page.Click(locator.ByID("body")), page.ErrElementNotFound)

	require.NoError(t, f.page.SwitchToFrame("editor"))
	require.NoError(t, f.page.Click(locator.ByID("body")))
	assert.Equal(t, []string{"click"}, field.Calls)

	require.NoError(t, f.page.SwitchToDefaultContent())
	require.NoError(t, f.page.SwitchToFrameIndex(0))
	require.NoError(t, f.page.SwitchToParentFrame())
	assert.ErrorIs(t, f.page.SwitchToFrameIndex(4), handle.ErrNoSuchFrame)
}

func TestWindowsAndAlerts(t *testing.T) {
	f := setup(t)
	first := f.page.WindowHandle()
	require.Equal(t, []string{first}, f.page.WindowHandles())

	title, err := f.page.Title()
	require.NoError(t, err)
	assert.Equal(t, "Login", title)

	require.NoError(t, f.page.Navigate("https://example.com/home"))
	assert.Equal(t, "https://example.com/home", f.web.URL())

	err = f.page.SwitchToWindowWithTitle("Elsewhere")
	assert.ErrorIs(t, err, handle.ErrNoSuchWindow)
	assert.Equal(t, first, f.page.WindowHandle())
	require.NoError(t, f.page.SwitchToWindow(first))

	d := &pwfake.Dialog{Kind: "confirm"}
	f.web.OpenDialog(d)
	require.NoError(t, f.page.DismissAlert())
	assert.True(t, d.Dismissed)
	assert.ErrorIs(t, f.page.AcceptAlert(), handle.ErrNoAlert)

	f.web.Main.EvalResult = map[string]any{"width": 1600.0, "height": 900.0}
	require.NoError(t, f.page.MaximizeWindow())
	assert.Equal(t, [2]int{1600, 900}, f.web.ViewportSet)
}

func TestClosedSession(t *testing.T) {
	f := setup(t)
	f.web.Main.Add("id=go", &pwfake.Element{})
	require.NoError(t, f.page.Session().Close())

	err := f.page.Click(locator.ByID("go"))
	assert.ErrorIs(t, err, handle.ErrSessionClosed)
	assert.NotErrorIs(t, err, page.ErrDriver)
}
