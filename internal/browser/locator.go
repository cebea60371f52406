package browser

import (
	"fmt"
	"strings"
)

// Strategy names how a Locator's value is interpreted
type Strategy string

const (
	StrategyID        Strategy = "id"
	StrategyClassName Strategy = "class name"
	StrategyLinkText  Strategy = "link text"
	StrategyName      Strategy = "name"
	StrategyTestID    Strategy = "test id"
	StrategyCSS       Strategy = "css"
	StrategyXPath     Strategy = "xpath"
)

// Locator identifies a UI element by strategy and value
type Locator struct {
	Strategy Strategy `json:"strategy"`
	Value    string   `json:"value"`
}

// ID locates by element id
func ID(id string) Locator { return Locator{Strategy: StrategyID, Value: id} }

// ClassName locates by a single class name
func ClassName(name string) Locator { return Locator{Strategy: StrategyClassName, Value: name} }

// LinkText locates an anchor by its exact visible text
func LinkText(text string) Locator { return Locator{Strategy: StrategyLinkText, Value: text} }

// Name locates by the name attribute
func Name(name string) Locator { return Locator{Strategy: StrategyName, Value: name} }

// TestID locates by the data-testid attribute
func TestID(id string) Locator { return Locator{Strategy: StrategyTestID, Value: id} }

// CSS locates by CSS selector
func CSS(selector string) Locator { return Locator{Strategy: StrategyCSS, Value: selector} }

// XPath locates by XPath expression
func XPath(expr string) Locator { return Locator{Strategy: StrategyXPath, Value: expr} }

// String renders the locator as "strategy=value"
func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Strategy, l.Value)
}

// IsZero reports whether the locator is unset
func (l Locator) IsZero() bool {
	return l.Strategy == "" && l.Value == ""
}

// Selector converts the locator into a Playwright selector
func (l Locator) Selector() string {
	switch l.Strategy {
	case StrategyID:
		return fmt.Sprintf("[id=%s]", cssString(l.Value))
	case StrategyClassName:
		return "." + cssIdent(l.Value)
	case StrategyLinkText:
		return fmt.Sprintf("a:text-is(%s)", cssString(l.Value))
	case StrategyName:
		return fmt.Sprintf("[name=%s]", cssString(l.Value))
	case StrategyTestID:
		return fmt.Sprintf("[data-testid=%s]", cssString(l.Value))
	case StrategyXPath:
		return "xpath=" + l.Value
	default:
		return l.Value
	}
}

// ParseLocator is the inverse of Locator.String
func ParseLocator(s string) (Locator, error) {
	idx := strings.Index(s, "=")
	if idx <= 0 {
		return Locator{}, fmt.Errorf("invalid locator %q: want strategy=value", s)
	}
	strategy := Strategy(s[:idx])
	switch strategy {
	case StrategyID, StrategyClassName, StrategyLinkText, StrategyName,
		StrategyTestID, StrategyCSS, StrategyXPath:
	default:
		return Locator{}, fmt.Errorf("invalid locator %q: unknown strategy %q", s, strategy)
	}
	return Locator{Strategy: strategy, Value: s[idx+1:]}, nil
}

// TextXPath locates a tag whose normalized text equals text
func TextXPath(tag, text string) Locator {
	return XPath(fmt.Sprintf("//%s[normalize-space(.)=%s]", tag, XPathLiteral(text)))
}

// ContainsTextXPath locates a tag whose own text contains text
func ContainsTextXPath(tag, text string) Locator {
	return XPath(fmt.Sprintf("//%s[contains(text(), %s)]", tag, XPathLiteral(text)))
}

// XPathLiteral quotes s for use inside an XPath expression. Strings holding
// both quote kinds are built with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// cssIdent escapes s as a CSS identifier. A digit cannot start an
// identifier, nor follow a leading hyphen, so it is written as a code point
// escape ("1col" becomes `\31 col`).
func cssIdent(s string) string {
	var b strings.Builder
	for i, c := range s {
		leadingDigit := c >= '0' && c <= '9' && (i == 0 || (i == 1 && s[0] == '-'))
		switch {
		case leadingDigit:
			fmt.Fprintf(&b, "\\%x ", c)
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		case c >= 0x80:
			b.WriteRune(c)
		default:
			b.WriteRune('\\')
			b.WriteRune(c)
		}
	}
	return b.String()
}
