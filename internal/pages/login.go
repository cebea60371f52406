package pages

import (
	"context"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/wait"
)

// Login page locators
var (
	LoginUsernameField = browser.ID("username")
	LoginPasswordField = browser.ID("password")
	LoginButton        = browser.ID("login")
	LoginErrorMessage  = browser.ClassName("error-message")
)

// LoginPage is the sign-in form
type LoginPage struct {
	base
}

// NewLoginPage creates a login page object on driver
func NewLoginPage(driver browser.Driver, w *wait.Helper) *LoginPage {
	return &LoginPage{base: newBase(driver, w)}
}

// Login fills both fields and submits the form
func (p *LoginPage) Login(ctx context.Context, username, password string) error {
	if err := p.typeInto(ctx, LoginUsernameField, username); err != nil {
		return err
	}
	if err := p.typeInto(ctx, LoginPasswordField, password); err != nil {
		return err
	}
	return p.click(ctx, LoginButton)
}

// IsErrorMessageDisplayed reports whether the login error is shown
func (p *LoginPage) IsErrorMessageDisplayed(ctx context.Context) Presence {
	return CheckPresence(ctx, p.driver, LoginErrorMessage)
}

// ErrorMessage returns the login error text
func (p *LoginPage) ErrorMessage(ctx context.Context) (string, error) {
	return p.text(ctx, LoginErrorMessage)
}
