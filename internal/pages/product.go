package pages

import (
	"context"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/wait"
)

// Product page locators
var (
	ProductSearchBox    = browser.ID("search-box")
	ProductSearchButton = browser.ID("search-button")
	ProductTitleText    = browser.ClassName("product-title")
	ProductAddToCart    = browser.ID("add-to-cart")
	ProductPriceText    = browser.ClassName("price")
	ProductCartIcon     = browser.ID("cart-icon")
	ProductCartCount    = browser.ClassName("cart-count")
)

// ProductItem locates a search result by its name
func ProductItem(name string) browser.Locator {
	return browser.ContainsTextXPath("div", name)
}

// ProductPage covers the shop: search results, product details and cart
type ProductPage struct {
	base
}

// NewProductPage creates a product page object on driver
func NewProductPage(driver browser.Driver, w *wait.Helper) *ProductPage {
	return &ProductPage{base: newBase(driver, w)}
}

// SearchProduct searches the catalogue
func (p *ProductPage) SearchProduct(ctx context.Context, name string) error {
	if err := p.typeInto(ctx, ProductSearchBox, name); err != nil {
		return err
	}
	return p.click(ctx, ProductSearchButton)
}

// SelectProduct opens the search result whose text contains name
func (p *ProductPage) SelectProduct(ctx context.Context, name string) error {
	return p.click(ctx, ProductItem(name))
}

func (p *ProductPage) ProductTitle(ctx context.Context) (string, error) {
	return p.text(ctx, ProductTitleText)
}

func (p *ProductPage) ProductPrice(ctx context.Context) (string, error) {
	return p.text(ctx, ProductPriceText)
}

func (p *ProductPage) AddToCart(ctx context.Context) error {
	return p.click(ctx, ProductAddToCart)
}

// CartCount returns the cart badge text
func (p *ProductPage) CartCount(ctx context.Context) (string, error) {
	return p.text(ctx, ProductCartCount)
}

func (p *ProductPage) GoToCart(ctx context.Context) error {
	return p.click(ctx, ProductCartIcon)
}

// IsProductDisplayed reports whether a product title is shown
func (p *ProductPage) IsProductDisplayed(ctx context.Context) Presence {
	return CheckPresence(ctx, p.driver, ProductTitleText)
}
