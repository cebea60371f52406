package browser

import "strings"

// Kind is a supported browser
type Kind string

const (
	Chrome  Kind = "chrome"
	Firefox Kind = "firefox"
	Edge    Kind = "edge"
)

// DefaultKind is used when a browser name is not recognised
const DefaultKind = Chrome

// ParseKind resolves a browser name case-insensitively. ok is false when the
// name is not one of chrome, firefox or edge, in which case DefaultKind is
// returned.
func ParseKind(name string) (kind Kind, ok bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case Chrome:
		return Chrome, true
	case Firefox:
		return Firefox, true
	case Edge:
		return Edge, true
	default:
		return DefaultKind, false
	}
}

// LaunchOptions are the per-branch startup settings handed to a Launcher
type LaunchOptions struct {
	Kind Kind

	// Fallback is set when the requested name was not recognised
	Fallback bool

	// Args are extra browser command-line switches
	Args []string

	// Channel selects a branded Chromium build (chrome, msedge)
	Channel string
}

// OptionsFor returns the startup options for a resolved browser
func OptionsFor(kind Kind, fallback bool, chromeChannel string) LaunchOptions {
	opts := LaunchOptions{Kind: kind, Fallback: fallback}

	switch {
	case fallback:
		opts.Args = []string{"--start-maximized"}
	case kind == Chrome:
		opts.Args = []string{"--start-maximized", "--disable-notifications"}
		opts.Channel = chromeChannel
	case kind == Edge:
		opts.Args = []string{"--start-maximized"}
		opts.Channel = "msedge"
	}

	return opts
}
