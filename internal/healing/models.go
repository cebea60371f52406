// Package healing provides a self-healing browser.Driver decorator. When a
// locator stops matching, it substitutes an alternate locator learned from
// an earlier successful lookup of the same element.
package healing

import (
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/testforge/pomsuite/internal/browser"
)

// Key identifies a logical element: the locator the page object uses, on the
// page it was used on
type Key struct {
	Page    string          `json:"page" db:"page"`
	Locator browser.Locator `json:"locator"`
}

// String renders the key as page|strategy=value
func (k Key) String() string {
	return k.Page + "|" + k.Locator.String()
}

// KeyFor builds the key for loc on the page at rawURL. Only the URL path is
// kept so query strings and hosts do not split history.
func KeyFor(rawURL string, loc browser.Locator) Key {
	page := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		page = u.Path
	}
	return Key{Page: page, Locator: loc}
}

// Candidate is an alternate locator for a key
type Candidate struct {
	Locator   browser.Locator `json:"locator"`
	Score     float64         `json:"score"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SortCandidates orders candidates best first. Ties keep the most recently
// learned first.
func SortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].UpdatedAt.After(cs[j].UpdatedAt)
	})
}

// Event records one substitution
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Key       Key             `json:"key"`
	Healed    browser.Locator `json:"healed"`
	Score     float64         `json:"score"`
	PageURL   string          `json:"page_url"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent creates an event for a heal of key to healed
func NewEvent(key Key, healed Candidate, pageURL string) Event {
	return Event{
		ID:        uuid.New(),
		Key:       key,
		Healed:    healed.Locator,
		Score:     healed.Score,
		PageURL:   pageURL,
		CreatedAt: time.Now().UTC(),
	}
}
