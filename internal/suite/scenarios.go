package suite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/testforge/pomsuite/internal/domain"
	"github.com/testforge/pomsuite/internal/pages"
	"github.com/testforge/pomsuite/internal/wait"
)

// Scenario groups
const (
	GroupLogin      = "login"
	GroupDataDriven = "data-driven"
	GroupHome       = "home"
	GroupProduct    = "product"
)

// Scenario is one UI check. Run returns nil on success, an ASSERTION_FAILED
// error when the application misbehaved, or ErrSkipped via Skip.
type Scenario struct {
	Name        string
	Group       string
	Description string
	Run         func(ctx context.Context, env *Env) error
}

// ErrSkipped marks a scenario that could not run against this target
var ErrSkipped = errors.New("scenario skipped")

// Skip returns an error that makes the runner record the scenario as skipped
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

// Credentials is one row of the data-driven login sweep
type Credentials struct {
	Username string
	Password string
}

// InvalidLogins are rejected by the application; each must show the login
// error
var InvalidLogins = []Credentials{
	{"invalidUser1", "password123"},
	{"invalidUser2", "test@123"},
	{"", "password"},
	{"username", ""},
}

// Catalog returns every scenario in run order
func Catalog() []Scenario {
	scenarios := []Scenario{
		{
			Name:        "ValidLogin",
			Group:       GroupLogin,
			Description: "Verify login with valid credentials",
			Run: func(ctx context.Context, env *Env) error {
				if err := env.Login.Login(ctx, env.Username, env.Password); err != nil {
					return err
				}
				return expectURLContains(ctx, env, "secure", "Login failed - user not redirected to secure page")
			},
		},
		{
			Name:        "InvalidUsername",
			Group:       GroupLogin,
			Description: "Verify login with invalid username",
			Run: func(ctx context.Context, env *Env) error {
				return loginRejected(ctx, env, "invalidUser", env.Password, "invalid username")
			},
		},
		{
			Name:        "InvalidPassword",
			Group:       GroupLogin,
			Description: "Verify login with invalid password",
			Run: func(ctx context.Context, env *Env) error {
				return loginRejected(ctx, env, env.Username, "wrongPassword", "invalid password")
			},
		},
		{
			Name:        "EmptyCredentials",
			Group:       GroupLogin,
			Description: "Verify login with empty credentials",
			Run: func(ctx context.Context, env *Env) error {
				return loginRejected(ctx, env, "", "", "empty credentials")
			},
		},
	}

	for i, c := range InvalidLogins {
		scenarios = append(scenarios, Scenario{
			Name:        fmt.Sprintf("LoginWithInvalidData/%d", i+1),
			Group:       GroupDataDriven,
			Description: fmt.Sprintf("Data-driven login test: %q / %q", c.Username, c.Password),
			Run: func(ctx context.Context, env *Env) error {
				return loginRejected(ctx, env, c.Username, c.Password,
					fmt.Sprintf("credentials: %s / %s", c.Username, c.Password))
			},
		})
	}

	scenarios = append(scenarios,
		Scenario{
			Name:        "HomePageDisplay",
			Group:       GroupHome,
			Description: "Verify home page displays correctly",
			Run: func(ctx context.Context, env *Env) error {
				if err := login(ctx, env); err != nil {
					return err
				}
				if _, err := env.Home.PageTitle(); err != nil {
					return fmt.Errorf("reading page title: %w", err)
				}
				return expectURLContains(ctx, env, "secure", "Home page URL does not contain 'secure'")
			},
		},
		Scenario{
			Name:        "LogoutFunctionality",
			Group:       GroupHome,
			Description: "Verify logout functionality",
			Run: func(ctx context.Context, env *Env) error {
				if err := login(ctx, env); err != nil {
					return err
				}
				if err := env.Home.ClickLogout(ctx); err != nil {
					return err
				}
				err := env.Wait.WaitForURLNotContains(ctx, "secure")
				if wait.IsTimeout(err) {
					return domain.ErrAssertion("Logout failed - user still on secure page (%s)", env.Driver.CurrentURL())
				}
				return err
			},
		},
		Scenario{
			Name:        "PageTitle",
			Group:       GroupHome,
			Description: "Verify page title after login",
			Run: func(ctx context.Context, env *Env) error {
				if err := login(ctx, env); err != nil {
					return err
				}
				title, err := env.Home.PageTitle()
				if err != nil {
					return fmt.Errorf("reading page title: %w", err)
				}
				if strings.TrimSpace(title) == "" {
					return domain.ErrAssertion("Page title is empty")
				}
				env.Logger.Sugar().Infof("Current page title: %s", title)
				return nil
			},
		},
		Scenario{
			Name:        "SearchProduct",
			Group:       GroupProduct,
			Description: "Verify product search opens the matching product",
			Run: func(ctx context.Context, env *Env) error {
				if err := openProducts(ctx, env); err != nil {
					return err
				}
				return selectProduct(ctx, env, "Bike Light", "Sauce Labs Bike Light")
			},
		},
		Scenario{
			Name:        "AddProductToCart",
			Group:       GroupProduct,
			Description: "Verify a product can be added to the cart",
			Run: func(ctx context.Context, env *Env) error {
				if err := openProducts(ctx, env); err != nil {
					return err
				}
				if err := selectProduct(ctx, env, "Backpack", "Sauce Labs Backpack"); err != nil {
					return err
				}
				if err := env.Products.AddToCart(ctx); err != nil {
					return err
				}

				var count string
				err := env.Wait.Until(ctx, "cart count to be 1", func(ctx context.Context) (bool, error) {
					c, err := env.Products.CartCount(ctx)
					count = c
					return c == "1", err
				})
				if wait.IsTimeout(err) {
					return domain.ErrAssertion("Cart count is %q, want \"1\"", count)
				}
				if err != nil {
					return err
				}

				if err := env.Products.GoToCart(ctx); err != nil {
					return err
				}
				return expectURLContains(ctx, env, "/cart", "Cart icon did not open the cart")
			},
		},
	)

	return scenarios
}

// Lookup finds a scenario by name
func Lookup(name string) (Scenario, bool) {
	for _, sc := range Catalog() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

// Groups returns the scenario group names, sorted
func Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, sc := range Catalog() {
		if !seen[sc.Group] {
			seen[sc.Group] = true
			groups = append(groups, sc.Group)
		}
	}
	sort.Strings(groups)
	return groups
}

// Select returns the scenarios whose name or group matches one of the
// filters, in catalogue order. No filters selects everything. A filter that
// matches nothing is an error.
func Select(filters ...string) ([]Scenario, error) {
	all := Catalog()
	if len(filters) == 0 {
		return all, nil
	}

	matched := make(map[string]bool, len(filters))
	var out []Scenario
	for _, sc := range all {
		hit := false
		for _, f := range filters {
			if f == sc.Name || f == sc.Group || strings.HasPrefix(sc.Name, f+"/") {
				matched[f] = true
				hit = true
			}
		}
		if hit {
			out = append(out, sc)
		}
	}

	for _, f := range filters {
		if !matched[f] {
			return nil, fmt.Errorf("unknown scenario or group %q", f)
		}
	}
	return out, nil
}

func login(ctx context.Context, env *Env) error {
	if err := env.Login.Login(ctx, env.Username, env.Password); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	return nil
}

func loginRejected(ctx context.Context, env *Env, username, password, what string) error {
	if err := env.Login.Login(ctx, username, password); err != nil {
		return err
	}
	return expectDisplayed(env.Login.IsErrorMessageDisplayed(ctx), "Error message not displayed for "+what)
}

func openProducts(ctx context.Context, env *Env) error {
	if env.ProductsURL == "" {
		return Skip("no products-url configured for this target")
	}
	return env.Driver.Navigate(ctx, env.ProductsURL)
}

func selectProduct(ctx context.Context, env *Env, query, name string) error {
	if err := env.Products.SearchProduct(ctx, query); err != nil {
		return err
	}
	if err := env.Products.SelectProduct(ctx, name); err != nil {
		return err
	}
	if err := expectDisplayed(env.Products.IsProductDisplayed(ctx), "Product details not displayed for "+name); err != nil {
		return err
	}
	title, err := env.Products.ProductTitle(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(title, name) {
		return domain.ErrAssertion("Product title is %q, want %q", title, name)
	}
	return nil
}

// expectDisplayed turns a presence result into an assertion. A failed
// query is returned as is so it is not reported as a wrong page.
func expectDisplayed(p pages.Presence, message string) error {
	if p.Failed() {
		return fmt.Errorf("%s: %w", message, p.Err)
	}
	if !p.Displayed() {
		return domain.ErrAssertion("%s (%s)", message, p)
	}
	return nil
}

func expectURLContains(ctx context.Context, env *Env, fragment, message string) error {
	err := env.Wait.WaitForURLContains(ctx, fragment)
	if wait.IsTimeout(err) {
		return domain.ErrAssertion("%s (%s)", message, env.Driver.CurrentURL())
	}
	return err
}
