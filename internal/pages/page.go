// Package pages holds the page objects. Each page object keeps the locators
// for one screen and the interactions on it; the session is injected, never
// looked up globally.
package pages

import (
	"context"
	"fmt"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/wait"
)

// base holds what every page object shares
type base struct {
	driver browser.Driver
	wait   *wait.Helper
}

func newBase(driver browser.Driver, w *wait.Helper) base {
	if w == nil {
		w = wait.New(driver)
	}
	return base{driver: driver, wait: w}
}

func (b base) find(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	el, err := b.driver.FindElement(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", loc, err)
	}
	return el, nil
}

// typeInto clears the field at loc and types text
func (b base) typeInto(ctx context.Context, loc browser.Locator, text string) error {
	el, err := b.find(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.Clear(); err != nil {
		return fmt.Errorf("clearing %s: %w", loc, err)
	}
	if err := el.SendKeys(text); err != nil {
		return fmt.Errorf("typing into %s: %w", loc, err)
	}
	return nil
}

// click waits for loc to be clickable and clicks it
func (b base) click(ctx context.Context, loc browser.Locator) error {
	el, err := b.find(ctx, loc)
	if err != nil {
		return err
	}
	if err := b.wait.WaitForClickable(ctx, el); err != nil {
		return err
	}
	if err := el.Click(); err != nil {
		return fmt.Errorf("clicking %s: %w", loc, err)
	}
	return nil
}

func (b base) text(ctx context.Context, loc browser.Locator) (string, error) {
	el, err := b.find(ctx, loc)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", loc, err)
	}
	return text, nil
}

// PageTitle returns the document title
func (b base) PageTitle() (string, error) {
	return b.driver.Title()
}

// CurrentURL returns the URL the session is on
func (b base) CurrentURL() string {
	return b.driver.CurrentURL()
}
