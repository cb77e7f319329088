package handle

import (
	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// forwardConsole copies the page's console output into the session log.
func forwardConsole(page playwright.Page, log logrus.FieldLogger) {
	page.OnConsole(func(message playwright.ConsoleMessage) {
		log.WithField("console", message.Type()).Debug(message.Text())
	})
}
