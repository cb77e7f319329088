// Package locator describes how a page element is identified: a selector
// string paired with the strategy used to interpret it.
package locator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedKind = errors.New("unsupported selector kind")
	ErrInvalidSelector = errors.New("invalid selector")
)

// Kind is a selector strategy.
type Kind string

const (
	XPath     Kind = "xpath"
	CSS       Kind = "css"
	ID        Kind = "id"
	ClassName Kind = "class-name"
)

// classEscaper escapes a class name for a double-quoted CSS attribute value.
var classEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

var kindAliases = map[string]Kind{
	"xpath":        XPath,
	"css":          CSS,
	"cssselector":  CSS,
	"css-selector": CSS,
	"id":           ID,
	"class":        ClassName,
	"classname":    ClassName,
	"class-name":   ClassName,
}

// ParseKind accepts the canonical kind names and their common spellings,
// ignoring case.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// Locator identifies an element. It is a plain value and is resolved again
// every time it is used.
type Locator struct {
	Value string
	Kind  Kind
}

// New builds a Locator from a selector and a kind name.
func New(value, kind string) (Locator, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Locator{}, err
	}
	return Locator{Value: value, Kind: k}, nil
}

func ByXPath(value string) Locator { return Locator{Value: value, Kind: XPath} }
func ByCSS(value string) Locator { return Locator{Value: value, Kind: CSS} }
func ByID(value string) Locator { return Locator{Value: value, Kind: ID} }
func ByClassName(value string) Locator { return Locator{Value: value, Kind: ClassName} }

// Selector returns the playwright selector for the locator, prefixed with
// the engine that must evaluate it.
func (l Locator) Selector() (string, error) {
	if strings.TrimSpace(l.Value) == "" {
		return "", fmt.Errorf("%w: empty %s selector", ErrInvalidSelector, l.Kind)
	}
	switch l.Kind {
	case XPath:
		return "xpath=" + l.Value, nil
	case CSS:
		return "css=" + l.Value, nil
	case ID:
		return "id=" + l.Value, nil
	case ClassName:
		if strings.ContainsAny(l.Value, " \t\n") {
			return "", fmt.Errorf("%w: compound class name %q", ErrInvalidSelector, l.Value)
		}
		return `css=[class~="` + classEscaper.Replace(l.Value) + `"]`, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, string(l.Kind))
	}
}

func (l Locator) String() string {
	return string(l.Kind) + "=" + l.Value
}
