package pages

import (
	"context"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/wait"
)

// Home page locators
var (
	HomeLogoutLink = browser.LinkText("Logout")
	HomeHeading    = browser.CSS("h2")
)

// HomePage is the page shown after signing in
type HomePage struct {
	base
}

// NewHomePage creates a home page object on driver
func NewHomePage(driver browser.Driver, w *wait.Helper) *HomePage {
	return &HomePage{base: newBase(driver, w)}
}

// ClickLogout signs out
func (p *HomePage) ClickLogout(ctx context.Context) error {
	return p.click(ctx, HomeLogoutLink)
}

// Heading returns the page heading text
func (p *HomePage) Heading(ctx context.Context) (string, error) {
	return p.text(ctx, HomeHeading)
}
