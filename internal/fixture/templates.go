package fixture

import "github.com/flosch/pongo2/v6"

const pageHeader = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{ title }}</title>
</head>
<body>
{% if shop %}<div class="header">
  <a id="cart-icon" href="/cart">Cart</a>
  <span class="cart-count">{{ cart_count }}</span>
</div>{% endif %}
<div id="content">
`

const pageFooter = `
</div>
</body>
</html>
`

const loginBody = `<h2>Login Page</h2>
{% if flash %}<div id="flash" class="flash error error-message">{{ flash }}</div>{% endif %}
<form id="login-form" action="/authenticate" method="post">
  <label for="username">Username</label>
  <input type="text" id="username" name="username">
  <label for="password">Password</label>
  <input type="password" id="password" name="password">
  <button id="login" class="radius" type="submit">Login</button>
</form>`

const secureBody = `<h2>Secure Area</h2>
<div id="flash" class="flash success">You logged into a secure area!</div>
<p>Welcome, {{ username }}.</p>
<a class="button secondary" href="/logout">Logout</a>`

const productsBody = `<h2>Products</h2>
<form action="/products" method="get">
  <input type="text" id="search-box" name="q" value="{{ query }}">
  <button id="search-button" type="submit">Search</button>
</form>
{% for p in products %}<div class="product" data-testid="product-{{ p.ID }}" onclick="window.location.href='/products/{{ p.ID }}'">{{ p.Name }}</div>
{% empty %}<p class="no-results">No products match.</p>
{% endfor %}`

const productBody = `<h1 class="product-title">{{ product.Name }}</h1>
<span class="price">{{ product.Price }}</span>
<form action="/cart" method="post">
  <input type="hidden" name="product_id" value="{{ product.ID }}">
  <button id="add-to-cart" type="submit">Add to cart</button>
</form>`

const cartBody = `<h1>Cart</h1>
<ul class="cart-items">
{% for p in items %}  <li class="cart-item">{{ p.Name }} <span class="price">{{ p.Price }}</span></li>
{% empty %}  <li class="empty">Your cart is empty.</li>
{% endfor %}</ul>`

func page(body string) *pongo2.Template {
	return pongo2.Must(pongo2.FromString(pageHeader + body + pageFooter))
}

var (
	loginTemplate    = page(loginBody)
	secureTemplate   = page(secureBody)
	productsTemplate = page(productsBody)
	productTemplate  = page(productBody)
	cartTemplate     = page(cartBody)
)
