// Package fixture is a small web application the scenarios can run against:
// a login form guarding a secure area, and a shop with search, product
// pages and a session cart. Element ids and classes match the page objects.
package fixture

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/config"
	"github.com/testforge/pomsuite/internal/domain"
	"github.com/testforge/pomsuite/internal/observability"
	"github.com/testforge/pomsuite/pkg/httputil"
)

// SessionCookie carries the session id
const SessionCookie = "pomsuite_session"

// Login failure reasons, passed to /login as ?error=
const (
	reasonUsername = "username"
	reasonPassword = "password"
	reasonAuth     = "auth"
)

var flashMessages = map[string]string{
	reasonUsername: "Your username is invalid!",
	reasonPassword: "Your password is invalid!",
	reasonAuth:     "You must login to view the secure area!",
}

// Product is an item in the shop
type Product struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// DefaultProducts is the catalogue served unless WithProducts is given
var DefaultProducts = []Product{
	{ID: 1, Name: "Sauce Labs Backpack", Price: "$29.99"},
	{ID: 2, Name: "Sauce Labs Bike Light", Price: "$9.99"},
	{ID: 3, Name: "Sauce Labs Bolt T-Shirt", Price: "$15.99"},
}

type session struct {
	user string
	cart []int
}

// App is the demo application
type App struct {
	username string
	password string
	products []Product
	cors     bool
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	sessions map[string]*session
}

// Option configures an App
type Option func(*App)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records request metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithProducts replaces the catalogue
func WithProducts(products []Product) Option {
	return func(a *App) { a.products = products }
}

// WithCORS allows cross-origin requests
func WithCORS(enabled bool) Option {
	return func(a *App) { a.cors = enabled }
}

// New creates the application accepting the configured credentials
func New(cfg config.FixtureConfig, opts ...Option) *App {
	a := &App{
		username: cfg.Username,
		password: cfg.Password,
		products: DefaultProducts,
		logger:   zap.NewNop(),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the routed application
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(recoverer(a.logger))
	r.Use(requestLogger(a.logger))
	if a.metrics != nil {
		r.Use(a.metrics.HTTPMiddleware)
	}
	r.Use(chimw.Timeout(30 * time.Second))

	if a.cors {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", a.health)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	r.Get("/login", a.loginPage)
	r.Post("/authenticate", a.authenticate)
	r.Get("/secure", a.securePage)
	r.Get("/logout", a.logout)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", a.productsPage)
		r.Get("/{id}", a.productPage)
	})
	r.Post("/cart", a.addToCart)
	r.Get("/cart", a.cartPage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", a.apiProducts)
		r.Get("/products/{id}", a.apiProduct)
		r.Get("/cart", a.apiCart)
	})

	return r
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (a *App) loginPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, http.StatusOK, loginTemplate, pongo2.Context{
		"title": "The Internet",
		"flash": flashMessages[r.URL.Query().Get("error")],
	})
}

func (a *App) authenticate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	switch {
	case username == "" || username != a.username:
		a.logger.Info("Login rejected", zap.String("reason", reasonUsername))
		http.Redirect(w, r, "/login?error="+reasonUsername, http.StatusSeeOther)
		return
	case password == "" || password != a.password:
		a.logger.Info("Login rejected", zap.String("reason", reasonPassword))
		http.Redirect(w, r, "/login?error="+reasonPassword, http.StatusSeeOther)
		return
	}

	s := a.session(w, r)
	a.mu.Lock()
	s.user = username
	a.mu.Unlock()

	http.Redirect(w, r, "/secure", http.StatusSeeOther)
}

func (a *App) securePage(w http.ResponseWriter, r *http.Request) {
	user := a.user(r)
	if user == "" {
		http.Redirect(w, r, "/login?error="+reasonAuth, http.StatusFound)
		return
	}
	a.render(w, http.StatusOK, secureTemplate, pongo2.Context{
		"title":    "The Internet",
		"username": user,
	})
}

func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	if s := a.lookup(r); s != nil {
		a.mu.Lock()
		s.user = ""
		a.mu.Unlock()
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (a *App) productsPage(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	a.render(w, http.StatusOK, productsTemplate, pongo2.Context{
		"title":      "Products",
		"shop":       true,
		"cart_count": a.cartCount(r),
		"query":      query,
		"products":   a.search(query),
	})
}

func (a *App) productPage(w http.ResponseWriter, r *http.Request) {
	p, ok := a.product(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	a.render(w, http.StatusOK, productTemplate, pongo2.Context{
		"title":      p.Name,
		"shop":       true,
		"cart_count": a.cartCount(r),
		"product":    p,
	})
}

func (a *App) addToCart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	id := r.PostFormValue("product_id")
	p, ok := a.product(id)
	if !ok {
		http.Error(w, "unknown product", http.StatusBadRequest)
		return
	}

	s := a.session(w, r)
	a.mu.Lock()
	s.cart = append(s.cart, p.ID)
	a.mu.Unlock()

	a.logger.Debug("Added to cart", zap.Int("product_id", p.ID))
	http.Redirect(w, r, "/products/"+id, http.StatusSeeOther)
}

func (a *App) cartPage(w http.ResponseWriter, r *http.Request) {
	items := a.cartItems(r)
	a.render(w, http.StatusOK, cartTemplate, pongo2.Context{
		"title":      "Cart",
		"shop":       true,
		"cart_count": len(items),
		"items":      items,
	})
}

func (a *App) apiProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	products := a.search(query)
	if products == nil {
		products = []Product{}
	}
	httputil.JSONWithMeta(w, http.StatusOK, products, &httputil.Meta{Total: len(products), Query: query})
}

func (a *App) apiProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := a.product(id)
	if !ok {
		httputil.ErrorFromDomain(w, domain.ErrElementNotFound("product "+id))
		return
	}
	httputil.JSON(w, http.StatusOK, p)
}

func (a *App) apiCart(w http.ResponseWriter, r *http.Request) {
	items := a.cartItems(r)
	if items == nil {
		items = []Product{}
	}
	httputil.JSONWithMeta(w, http.StatusOK, items, &httputil.Meta{Total: len(items)})
}

func (a *App) cartItems(r *http.Request) []Product {
	s := a.lookup(r)
	if s == nil {
		return nil
	}
	a.mu.Lock()
	ids := append([]int(nil), s.cart...)
	a.mu.Unlock()

	var items []Product
	for _, id := range ids {
		if p, ok := a.product(strconv.Itoa(id)); ok {
			items = append(items, p)
		}
	}
	return items
}

func (a *App) render(w http.ResponseWriter, status int, tmpl *pongo2.Template, ctx pongo2.Context) {
	out, err := tmpl.ExecuteBytes(ctx)
	if err != nil {
		a.logger.Error("Failed to render page", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func (a *App) search(query string) []Product {
	if query == "" {
		return a.products
	}
	q := strings.ToLower(query)
	var out []Product
	for _, p := range a.products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}

func (a *App) product(id string) (Product, bool) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return Product{}, false
	}
	for _, p := range a.products {
		if p.ID == n {
			return p, true
		}
	}
	return Product{}, false
}

// lookup returns the request's session, or nil
func (a *App) lookup(r *http.Request) *session {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions[c.Value]
}

// session returns the request's session, starting one if needed
func (a *App) session(w http.ResponseWriter, r *http.Request) *session {
	if s := a.lookup(r); s != nil {
		return s
	}

	id := uuid.NewString()
	s := &session{}
	a.mu.Lock()
	a.sessions[id] = s
	a.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

func (a *App) user(r *http.Request) string {
	s := a.lookup(r)
	if s == nil {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return s.user
}

func (a *App) cartCount(r *http.Request) int {
	s := a.lookup(r)
	if s == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(s.cart)
}
