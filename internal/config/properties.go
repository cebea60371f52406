package config

import (
	"sort"

	"github.com/magiconair/properties"
	"go.uber.org/zap"
)

// Property keys read from the suite properties file
const (
	KeyBrowser  = "browser"
	KeyURL      = "url"
	KeyUsername = "username"
	KeyPassword = "password"

	// KeyProductsURL is optional; product scenarios are skipped without it
	KeyProductsURL = "products-url"
)

// Properties is a read-only view of a key=value properties file.
// A file that cannot be read leaves the view empty; every getter then
// reports the key as absent.
type Properties struct {
	path  string
	props *properties.Properties
}

// LoadProperties reads the properties file at path. Read failures are logged,
// not returned.
func LoadProperties(path string, logger *zap.Logger) *Properties {
	if logger == nil {
		logger = zap.NewNop()
	}

	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		logger.Warn("config file not found",
			zap.String("path", path),
			zap.Error(err))
		p = properties.NewProperties()
	}

	return &Properties{path: path, props: p}
}

// Path returns the file the properties were loaded from
func (p *Properties) Path() string {
	return p.path
}

// Lookup returns the value for key and whether it was present
func (p *Properties) Lookup(key string) (string, bool) {
	return p.props.Get(key)
}

// Get returns the value for key, or "" when absent
func (p *Properties) Get(key string) string {
	v, _ := p.props.Get(key)
	return v
}

// Keys returns all keys in sorted order
func (p *Properties) Keys() []string {
	keys := p.props.Keys()
	sort.Strings(keys)
	return keys
}

// Len returns the number of loaded keys
func (p *Properties) Len() int {
	return p.props.Len()
}

// Browser returns the configured browser name (chrome, firefox, edge)
func (p *Properties) Browser() string {
	return p.Get(KeyBrowser)
}

// URL returns the application URL
func (p *Properties) URL() string {
	return p.Get(KeyURL)
}

// Username returns the login username
func (p *Properties) Username() string {
	return p.Get(KeyUsername)
}

// Password returns the login password
func (p *Properties) Password() string {
	return p.Get(KeyPassword)
}

// ProductsURL returns the shop listing URL, or "" when the target has none
func (p *Properties) ProductsURL() string {
	return p.Get(KeyProductsURL)
}
