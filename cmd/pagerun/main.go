// Command pagerun runs Gherkin features against a browser driven by
// playwright.
package main

func main() {
	Execute()
}
