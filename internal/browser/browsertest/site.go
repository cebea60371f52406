package browsertest

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/testforge/pomsuite/internal/browser"
)

// Product is an item in the fake shop
type Product struct {
	ID    int
	Name  string
	Price string
}

// DefaultProducts is the catalogue served by NewSite
var DefaultProducts = []Product{
	{ID: 1, Name: "Sauce Labs Backpack", Price: "$29.99"},
	{ID: 2, Name: "Sauce Labs Bike Light", Price: "$9.99"},
	{ID: 3, Name: "Sauce Labs Bolt T-Shirt", Price: "$15.99"},
}

// Site models the demo application on a fake driver: a login form that
// leads to /secure, a logout link back to /login, and a small shop.
type Site struct {
	*Driver

	BaseURL  string
	Username string
	Password string
	Products []Product

	// LoginButtonID is the id of the submit button, "login" by default
	LoginButtonID string

	mu   sync.Mutex
	cart []int
}

// SiteOption adjusts a Site before its pages are built
type SiteOption func(*Site)

// WithLoginButtonID renames the login submit button, modelling a release
// that broke the original locator
func WithLoginButtonID(id string) SiteOption {
	return func(s *Site) { s.LoginButtonID = id }
}

// NewSite builds a site accepting one set of credentials
func NewSite(username, password string, opts ...SiteOption) *Site {
	s := &Site{
		Driver:        NewDriver(nil),
		BaseURL:       "http://fixture.test",
		Username:      username,
		Password:      password,
		Products:      DefaultProducts,
		LoginButtonID: "login",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.SetPage("/login", s.loginPage(false))
	s.SetPage("/secure", s.securePage())
	s.SetPage("/products", s.productsPage(""))
	for _, p := range s.Products {
		s.SetPage(fmt.Sprintf("/products/%d", p.ID), s.productPage(p))
	}
	s.SetPage("/cart", s.cartPage())
	return s
}

// LoginURL is the page scenarios start from
func (s *Site) LoginURL() string {
	return s.BaseURL + "/login"
}

// CartSize returns the number of items added to the cart
func (s *Site) CartSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cart)
}

func (s *Site) loginPage(failed bool) *Page {
	username := &Element{Tag: "input", ID: "username", Name: "username"}
	password := &Element{Tag: "input", ID: "password", Name: "password"}
	submit := &Element{Tag: "button", ID: s.LoginButtonID, Classes: []string{"radius"}, Text: "Login"}

	submit.OnClick = func(d *Driver) {
		if username.CurrentValue() == s.Username && password.CurrentValue() == s.Password &&
			s.Username != "" && s.Password != "" {
			d.Go("/secure")
			return
		}
		d.SetPage("/login", s.loginPage(true))
		d.Go("/login")
	}

	page := &Page{Title: "The Internet"}
	page.Add(
		&Element{Tag: "h2", Text: "Login Page"},
		username, password, submit,
	)
	if failed {
		page.Add(&Element{
			Tag:     "div",
			ID:      "flash",
			Classes: []string{"flash", "error", "error-message"},
			Text:    "Your username or password is invalid!",
		})
	}
	return page
}

func (s *Site) securePage() *Page {
	logout := &Element{Tag: "a", Classes: []string{"button", "secondary"}, Text: "Logout"}
	logout.OnClick = func(d *Driver) {
		d.SetPage("/login", s.loginPage(false))
		d.Go("/login")
	}

	return (&Page{Title: "The Internet"}).Add(
		&Element{Tag: "h2", Text: "Secure Area"},
		&Element{Tag: "div", ID: "flash", Classes: []string{"flash", "success"}, Text: "You logged into a secure area!"},
		logout,
	)
}

func (s *Site) productsPage(query string) *Page {
	search := &Element{Tag: "input", ID: "search-box", Name: "q"}
	button := &Element{Tag: "button", ID: "search-button", Text: "Search"}
	button.OnClick = func(d *Driver) {
		d.SetPage("/products", s.productsPage(search.CurrentValue()))
		d.Go("/products")
	}

	page := (&Page{Title: "Products"}).Add(search, button, s.cartIcon(), s.cartCount())
	for _, p := range s.Products {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			continue
		}
		target := fmt.Sprintf("/products/%d", p.ID)
		item := &Element{
			Tag:     "div",
			Classes: []string{"product"},
			Text:    p.Name,
			XPaths:  []string{browser.ContainsTextXPath("div", p.Name).Value},
		}
		item.OnClick = func(d *Driver) { d.Go(target) }
		page.Add(item)
	}
	return page
}

func (s *Site) productPage(p Product) *Page {
	add := &Element{Tag: "button", ID: "add-to-cart", Text: "Add to cart"}
	add.OnClick = func(d *Driver) {
		s.mu.Lock()
		s.cart = append(s.cart, p.ID)
		s.mu.Unlock()
		d.SetPage(fmt.Sprintf("/products/%d", p.ID), s.productPage(p))
	}

	return (&Page{Title: p.Name}).Add(
		&Element{Tag: "h1", Classes: []string{"product-title"}, Text: p.Name},
		&Element{Tag: "span", Classes: []string{"price"}, Text: p.Price},
		add, s.cartIcon(), s.cartCount(),
	)
}

func (s *Site) cartPage() *Page {
	return (&Page{Title: "Cart"}).Add(&Element{Tag: "h1", Text: "Cart"}, s.cartCount())
}

func (s *Site) cartIcon() *Element {
	icon := &Element{Tag: "a", ID: "cart-icon", Text: "Cart"}
	icon.OnClick = func(d *Driver) {
		d.SetPage("/cart", s.cartPage())
		d.Go("/cart")
	}
	return icon
}

func (s *Site) cartCount() *Element {
	return &Element{Tag: "span", Classes: []string{"cart-count"}, Text: strconv.Itoa(s.CartSize())}
}
