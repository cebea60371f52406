// Package browser defines the capability set the suite needs from a browser
// session, a Playwright implementation of it, and the Manager that owns the
// session lifecycle.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/testforge/pomsuite/internal/domain"
)

// Driver is a live browser session. Implementations are either direct
// (Playwright) or decorators around another Driver (self-healing); callers
// never need to know which.
type Driver interface {
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error

	// FindElement returns the first element matching loc, polling for up to
	// the implicit wait. A miss returns an ELEMENT_NOT_FOUND error.
	FindElement(ctx context.Context, loc Locator) (Element, error)

	// FindElements returns all elements matching loc, polling for up to the
	// implicit wait for at least one. A miss returns an empty slice.
	FindElements(ctx context.Context, loc Locator) ([]Element, error)

	Title() (string, error)
	CurrentURL() string

	// MaximizeWindow sizes the window to the configured maximum
	MaximizeWindow() error

	// SetImplicitWait changes the lookup polling window for every later
	// FindElement call. Explicit waits (package wait) are independent of it.
	SetImplicitWait(d time.Duration)
	ImplicitWait() time.Duration

	// Screenshot captures the current viewport as PNG
	Screenshot() ([]byte, error)

	// Quit closes every window and releases the session
	Quit() error
}

// Element is a located UI element
type Element interface {
	Locator() Locator
	Click() error
	SendKeys(text string) error
	Clear() error
	Text() (string, error)
	Attribute(name string) (string, error)
	TagName() (string, error)
	IsDisplayed() (bool, error)
	IsEnabled() (bool, error)
}

// Unwrapper is implemented by decorating drivers
type Unwrapper interface {
	Unwrap() Driver
}

// Unwrap returns the innermost driver beneath any decorators
func Unwrap(d Driver) Driver {
	for {
		u, ok := d.(Unwrapper)
		if !ok {
			return d
		}
		inner := u.Unwrap()
		if inner == nil {
			return d
		}
		d = inner
	}
}

// IsNotFound reports whether err is an element lookup miss
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrElementNotFoundSentinel)
}

// IsTimeout reports whether err is a wait timeout
func IsTimeout(err error) bool {
	return errors.Is(err, domain.ErrWaitTimeoutSentinel)
}

type exactLookupKey struct{}

// ExactLookup marks lookups made with the returned context as answering
// "is this exact locator on the page". Decorators must not substitute
// alternate locators for them.
func ExactLookup(ctx context.Context) context.Context {
	return context.WithValue(ctx, exactLookupKey{}, true)
}

// IsExactLookup reports whether ctx was marked by ExactLookup
func IsExactLookup(ctx context.Context) bool {
	exact, _ := ctx.Value(exactLookupKey{}).(bool)
	return exact
}
