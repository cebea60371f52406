package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocator_Selector(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want string
	}{
		{"id", ID("username"), `[id="username"]`},
		{"class name", ClassName("error-message"), `.error-message`},
		{"class name with dot", ClassName("a.b"), `.a\.b`},
		{"class name with leading digit", ClassName("1col"), `.\31 col`},
		{"class name with hyphen then digit", ClassName("-2x"), `.-\32 x`},
		{"class name with inner digit", ClassName("col-1"), `.col-1`},
		{"link text", LinkText("Logout"), `a:text-is("Logout")`},
		{"name", Name("q"), `[name="q"]`},
		{"test id", TestID("submit"), `[data-testid="submit"]`},
		{"css", CSS("form > button"), `form > button`},
		{"xpath", XPath("//div[@id='x']"), `xpath=//div[@id='x']`},
		{"quoted value", ID(`a"b`), `[id="a\"b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.Selector())
		})
	}
}

func TestParseLocator(t *testing.T) {
	for _, loc := range []Locator{
		ID("username"),
		ClassName("error-message"),
		LinkText("Log = out"),
		XPath("//a[@href='/x?a=b']"),
	} {
		parsed, err := ParseLocator(loc.String())
		require.NoError(t, err)
		assert.Equal(t, loc, parsed)
	}

	_, err := ParseLocator("username")
	assert.Error(t, err)

	_, err = ParseLocator("tag=div")
	assert.Error(t, err)
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, `'Backpack'`, XPathLiteral("Backpack"))
	assert.Equal(t, `"Tom's"`, XPathLiteral("Tom's"))
	assert.Equal(t, `concat('say "hi" to ', "'", 'Tom', "'")`, XPathLiteral(`say "hi" to 'Tom'`))
}

func TestTextXPath(t *testing.T) {
	assert.Equal(t, XPath(`//a[normalize-space(.)='Logout']`), TextXPath("a", "Logout"))
	assert.Equal(t, XPath(`//div[contains(text(), 'Backpack')]`), ContainsTextXPath("div", "Backpack"))
}

func TestLocator_IsZero(t *testing.T) {
	assert.True(t, Locator{}.IsZero())
	assert.False(t, ID("x").IsZero())
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"chrome", Chrome, true},
		{"Chrome", Chrome, true},
		{" FIREFOX ", Firefox, true},
		{"edge", Edge, true},
		{"EdGe", Edge, true},
		{"safari", Chrome, false},
		{"", Chrome, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseKind(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestOptionsFor(t *testing.T) {
	chrome := OptionsFor(Chrome, false, "chrome")
	assert.Equal(t, []string{"--start-maximized", "--disable-notifications"}, chrome.Args)
	assert.Equal(t, "chrome", chrome.Channel)

	firefox := OptionsFor(Firefox, false, "chrome")
	assert.Empty(t, firefox.Args)
	assert.Empty(t, firefox.Channel)

	edge := OptionsFor(Edge, false, "")
	assert.Equal(t, "msedge", edge.Channel)
	assert.Equal(t, []string{"--start-maximized"}, edge.Args)

	fallback := OptionsFor(Chrome, true, "chrome")
	assert.True(t, fallback.Fallback)
	assert.Equal(t, []string{"--start-maximized"}, fallback.Args)
	assert.Empty(t, fallback.Channel)
}
