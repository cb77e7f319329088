// Package steps binds Gherkin phrases to page.Base operations.
//
// Element phrases name the selector kind before the selector, for example
//
//	When I click the css element "form button[type=submit]"
//	Then the id element "welcome" should contain the text "Hello"
//
// The kind is one of xpath, css, id or class-name.
package steps

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/sssxyd/go-page-handle/locator"
	"github.com/sssxyd/go-page-handle/page"
)

const (
	kind   = `(xpath|css|id|class-name)`
	quoted = `"([^"]*)"`
	elem   = `the ` + kind + ` element ` + quoted
)

type glue struct {
	page *page.Base
}

// Register adds every phrase to sc, bound to p.
func Register(sc *godog.ScenarioContext, p *page.Base) {
	g := &glue{page: p}

	sc.Step(`^I navigate to `+quoted+`$`, p.Navigate)
	sc.Step(`^I maximize the window$`, p.MaximizeWindow)

	sc.Step(`^I click `+elem+`$`, g.element(p.Click))
	sc.Step(`^I double click `+elem+`$`, g.element(p.DoubleClick))
	sc.Step(`^I right click `+elem+`$`, g.element(p.RightClick))
	sc.Step(`^I hover over `+elem+`$`, g.element(p.Hover))
	sc.Step(`^I reveal `+elem+`$`, g.element(p.Reveal))
	sc.Step(`^I wait for `+elem+` to be visible$`, g.element(p.WaitVisible))
	sc.Step(`^I type `+quoted+` into `+elem+`$`, g.write)
	sc.Step(`^I select (value|index|text) `+quoted+` from the `+kind+` dropdown `+quoted+`$`, g.selectOption)

	sc.Step(`^I accept the alert$`, func() error { return p.AcceptAlert() })
	sc.Step(`^I answer the prompt with `+quoted+`$`, func(text string) error { return p.AcceptAlert(text) })
	sc.Step(`^I dismiss the alert$`, p.DismissAlert)

	sc.Step(`^I switch to frame (\d+)$`, p.SwitchToFrameIndex)
	sc.Step(`^I switch to frame `+quoted+`$`, p.SwitchToFrame)
	sc.Step(`^I switch to the parent frame$`, p.SwitchToParentFrame)
	sc.Step(`^I switch to the main content$`, p.SwitchToDefaultContent)
	sc.Step(`^I switch to the window titled `+quoted+`$`, p.SwitchToWindowWithTitle)

	sc.Step(`^I execute the script `+quoted+`$`, g.executeScript)

	sc.Step(`^`+elem+` should be displayed$`, g.displayed)
	sc.Step(`^`+elem+` should contain the text `+quoted+`$`, g.containsText)
	sc.Step(`^the page title should be `+quoted+`$`, g.title)
}

func (g *glue) element(fn func(locator.Locator) error) func(kind, selector string) error {
	return func(kind, selector string) error {
		loc, err := locator.New(selector, kind)
		if err != nil {
			return err
		}
		return fn(loc)
	}
}

func (g *glue) write(text, kind, selector string) error {
	return g.element(func(loc locator.Locator) error {
		return g.page.Write(loc, text)
	})(kind, selector)
}

func (g *glue) selectOption(mode, option, kind, selector string) error {
	return g.element(func(loc locator.Locator) error {
		switch mode {
		case "value":
			return g.page.SelectByValue(loc, option)
		case "index":
			index, err := strconv.Atoi(option)
			if err != nil {
				return fmt.Errorf("option index %q: %w", option, err)
			}
			return g.page.SelectByIndex(loc, index)
		default:
			return g.page.SelectByText(loc, option)
		}
	})(kind, selector)
}

func (g *glue) executeScript(script string) error {
	_, err := g.page.ExecuteScript(script)
	return err
}

func (g *glue) displayed(kind, selector string) error {
	return g.element(func(loc locator.Locator) error {
		visible, err := g.page.IsDisplayed(loc)
		if err != nil {
			return err
		}
		if !visible {
			return fmt.Errorf("%s is not displayed", loc)
		}
		return nil
	})(kind, selector)
}

func (g *glue) containsText(kind, selector, want string) error {
	return g.element(func(loc locator.Locator) error {
		text, err := g.page.Text(loc)
		if err != nil {
			return err
		}
		if !strings.Contains(text, want) {
			return fmt.Errorf("%s: text %q does not contain %q", loc, text, want)
		}
		return nil
	})(kind, selector)
}

func (g *glue) title(want string) error {
	got, err := g.page.Title()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("page title is %q, want %q", got, want)
	}
	return nil
}
