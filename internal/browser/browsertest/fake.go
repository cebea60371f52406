// Package browsertest provides an in-memory browser.Driver for unit tests.
// Pages are keyed by URL path and hold a flat list of elements; element
// click handlers can navigate or mutate the page to model an application.
package browsertest

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/domain"
)

// ErrNotInteractable is returned when clicking or typing into a hidden or
// disabled element
var ErrNotInteractable = errors.New("element not interactable")

// ErrQuit is returned by every call on a driver that has been quit
var ErrQuit = errors.New("session has been quit")

// Page is one screen of a fake application
type Page struct {
	Title    string
	Elements []*Element
}

// Add appends elements and returns the page
func (p *Page) Add(elements ...*Element) *Page {
	p.Elements = append(p.Elements, elements...)
	return p
}

// Element is a fake UI element. It matches a locator by the attributes set
// on it.
type Element struct {
	Tag     string
	ID      string
	Name    string
	TestID  string
	Classes []string
	Text    string

	// XPaths and Selectors are extra xpath/css expressions that match
	XPaths    []string
	Selectors []string

	Value    string
	Hidden   bool
	Disabled bool

	// OnClick runs after a successful click
	OnClick func(d *Driver)

	mu     sync.Mutex
	clicks int
}

// Clicks returns how many times the element was clicked
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Matches reports whether loc selects the element
func (e *Element) Matches(loc browser.Locator) bool {
	switch loc.Strategy {
	case browser.StrategyID:
		return e.ID != "" && e.ID == loc.Value
	case browser.StrategyName:
		return e.Name != "" && e.Name == loc.Value
	case browser.StrategyTestID:
		return e.TestID != "" && e.TestID == loc.Value
	case browser.StrategyClassName:
		for _, c := range e.Classes {
			if c == loc.Value {
				return true
			}
		}
		return false
	case browser.StrategyLinkText:
		return e.Tag == "a" && strings.TrimSpace(e.Text) == loc.Value
	case browser.StrategyXPath:
		if e.Tag != "" && e.Text != "" {
			if browser.TextXPath(e.Tag, strings.TrimSpace(e.Text)).Value == loc.Value {
				return true
			}
		}
		for _, x := range e.XPaths {
			if x == loc.Value {
				return true
			}
		}
		return false
	case browser.StrategyCSS:
		if e.ID != "" && loc.Value == "#"+e.ID {
			return true
		}
		if e.Tag != "" && loc.Value == e.Tag {
			return true
		}
		for _, c := range e.Classes {
			if loc.Value == "."+c {
				return true
			}
		}
		for _, s := range e.Selectors {
			if s == loc.Value {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Driver is an in-memory browser.Driver
type Driver struct {
	mu           sync.Mutex
	pages        map[string]*Page
	current      *url.URL
	implicitWait time.Duration
	quit         bool

	// ScreenshotData is returned by Screenshot, or ScreenshotErr if set
	ScreenshotData []byte
	ScreenshotErr  error

	// MaximizeErr is returned by MaximizeWindow
	MaximizeErr error

	// QuitErr is returned by Quit
	QuitErr error

	// LookupErr, when set, is returned by every FindElement call instead of
	// a result
	LookupErr error

	history   []string
	lookups   []browser.Locator
	maximized int
	quits     int
}

// NewDriver creates a fake driver with the given pages keyed by path
func NewDriver(pages map[string]*Page) *Driver {
	if pages == nil {
		pages = make(map[string]*Page)
	}
	return &Driver{pages: pages, ScreenshotData: []byte("\x89PNG fake")}
}

// SetPage registers or replaces the page served at path
func (d *Driver) SetPage(path string, page *Page) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[path] = page
}

// Go moves the session to target, resolved against the current URL. Click
// handlers use it to model navigation.
func (d *Driver) Go(target string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.goLocked(target)
}

func (d *Driver) goLocked(target string) {
	u, err := url.Parse(target)
	if err != nil {
		return
	}
	if d.current != nil {
		u = d.current.ResolveReference(u)
	}
	d.current = u
	d.history = append(d.history, u.String())
}

func (d *Driver) page() *Page {
	if d.current == nil {
		return nil
	}
	return d.pages[d.current.Path]
}

// History returns every URL the session visited
func (d *Driver) History() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.history...)
}

// Lookups returns every locator passed to FindElement or FindElements
func (d *Driver) Lookups() []browser.Locator {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]browser.Locator(nil), d.lookups...)
}

// Maximized returns how many times MaximizeWindow was called
func (d *Driver) Maximized() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maximized
}

// Quits returns how many times Quit was called
func (d *Driver) Quits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quits
}

func (d *Driver) Navigate(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit {
		return ErrQuit
	}
	d.goLocked(target)
	return nil
}

func (d *Driver) FindElement(ctx context.Context, loc browser.Locator) (browser.Element, error) {
	elements, err := d.find(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, domain.ErrElementNotFound(loc.String())
	}
	return elements[0], nil
}

func (d *Driver) FindElements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	elements, err := d.find(ctx, loc)
	if err != nil {
		if browser.IsNotFound(err) {
			return []browser.Element{}, nil
		}
		return nil, err
	}
	return elements, nil
}

func (d *Driver) find(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit {
		return nil, ErrQuit
	}
	d.lookups = append(d.lookups, loc)
	if d.LookupErr != nil {
		return nil, d.LookupErr
	}

	var out []browser.Element
	if p := d.page(); p != nil {
		for _, e := range p.Elements {
			if e.Matches(loc) {
				out = append(out, &handle{el: e, loc: loc, driver: d})
			}
		}
	}
	return out, nil
}

func (d *Driver) Title() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit {
		return "", ErrQuit
	}
	if p := d.page(); p != nil {
		return p.Title, nil
	}
	return "", nil
}

func (d *Driver) CurrentURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return "about:blank"
	}
	return d.current.String()
}

func (d *Driver) MaximizeWindow() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maximized++
	return d.MaximizeErr
}

func (d *Driver) SetImplicitWait(timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.implicitWait = timeout
}

func (d *Driver) ImplicitWait() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.implicitWait
}

func (d *Driver) Screenshot() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit {
		return nil, ErrQuit
	}
	if d.ScreenshotErr != nil {
		return nil, d.ScreenshotErr
	}
	return d.ScreenshotData, nil
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quits++
	d.quit = true
	return d.QuitErr
}

// IsQuit reports whether Quit was called
func (d *Driver) IsQuit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quit
}

// handle is the browser.Element returned for a matched fake element
type handle struct {
	el     *Element
	loc    browser.Locator
	driver *Driver
}

func (h *handle) Locator() browser.Locator { return h.loc }

func (h *handle) Click() error {
	h.el.mu.Lock()
	if h.el.Hidden || h.el.Disabled {
		h.el.mu.Unlock()
		return ErrNotInteractable
	}
	h.el.clicks++
	onClick := h.el.OnClick
	h.el.mu.Unlock()

	if onClick != nil {
		onClick(h.driver)
	}
	return nil
}

func (h *handle) SendKeys(text string) error {
	h.el.mu.Lock()
	defer h.el.mu.Unlock()
	if h.el.Hidden || h.el.Disabled {
		return ErrNotInteractable
	}
	h.el.Value += text
	return nil
}

func (h *handle) Clear() error {
	h.el.mu.Lock()
	defer h.el.mu.Unlock()
	h.el.Value = ""
	return nil
}

func (h *handle) Text() (string, error) {
	h.el.mu.Lock()
	defer h.el.mu.Unlock()
	if h.el.Hidden {
		return "", nil
	}
	return h.el.Text, nil
}

func (h *handle) Attribute(name string) (string, error) {
	h.el.mu.Lock()
	defer h.el.mu.Unlock()
	switch name {
	case "id":
		return h.el.ID, nil
	case "name":
		return h.el.Name, nil
	case "data-testid":
		return h.el.TestID, nil
	case "class":
		return strings.Join(h.el.Classes, " "), nil
	case "value":
		return h.el.Value, nil
	default:
		return "", nil
	}
}

func (h *handle) TagName() (string, error) {
	h.el.mu.Lock()
	defer h.el.mu.Unlock()
	return h.el.Tag, nil
}

func (h *handle) IsDisplayed() (bool, error) {
	h.el.mu.Lock()
	defer h.el.mu.Unlock()
	return !h.el.Hidden, nil
}

func (h *handle) IsEnabled() (bool, error) {
	h.el.mu.Lock()
	defer h.el.mu.Unlock()
	return !h.el.Disabled, nil
}

// SetHidden toggles visibility from a test goroutine
func (e *Element) SetHidden(hidden bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Hidden = hidden
}

// SetDisabled toggles enabled state from a test goroutine
func (e *Element) SetDisabled(disabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Disabled = disabled
}

// CurrentValue returns the typed value
func (e *Element) CurrentValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Value
}
