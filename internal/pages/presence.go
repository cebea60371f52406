package pages

import (
	"context"
	"errors"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/wait"
)

// PresenceState is the outcome of a presence query
type PresenceState string

const (
	// PresenceDisplayed - the element exists and is visible
	PresenceDisplayed PresenceState = "displayed"
	// PresenceHidden - the element exists but is not visible
	PresenceHidden PresenceState = "hidden"
	// PresenceAbsent - no element matched within the implicit wait
	PresenceAbsent PresenceState = "absent"
	// PresenceTimedOut - the query ran out of time before it could answer
	PresenceTimedOut PresenceState = "timed out"
	// PresenceError - the query failed for another reason
	PresenceError PresenceState = "error"
)

// Presence is the result of asking whether an element is shown. Expected
// absence and real failures are separate states, so a caller can treat the
// first as "false" and still report the second.
type Presence struct {
	State PresenceState
	Err   error
}

// Displayed reports whether the element was found and visible
func (p Presence) Displayed() bool {
	return p.State == PresenceDisplayed
}

// Failed reports whether the query itself went wrong
func (p Presence) Failed() bool {
	return p.State == PresenceTimedOut || p.State == PresenceError
}

func (p Presence) String() string {
	if p.Err != nil {
		return string(p.State) + ": " + p.Err.Error()
	}
	return string(p.State)
}

// CheckPresence looks loc up once and classifies the outcome. The lookup is
// exact: a healing driver does not substitute a learned alternate, so an
// element that is really gone reports absent.
func CheckPresence(ctx context.Context, driver browser.Driver, loc browser.Locator) Presence {
	el, err := driver.FindElement(browser.ExactLookup(ctx), loc)
	if err != nil {
		return classify(err)
	}

	shown, err := el.IsDisplayed()
	if err != nil {
		return classify(err)
	}
	if !shown {
		return Presence{State: PresenceHidden}
	}
	return Presence{State: PresenceDisplayed}
}

func classify(err error) Presence {
	switch {
	case wait.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return Presence{State: PresenceTimedOut, Err: err}
	case browser.IsNotFound(err):
		return Presence{State: PresenceAbsent}
	default:
		return Presence{State: PresenceError, Err: err}
	}
}
