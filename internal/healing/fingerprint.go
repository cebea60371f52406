package healing

import (
	"strings"
	"time"

	"github.com/testforge/pomsuite/internal/browser"
)

// Scores for learned alternates. Attributes written for tests are the most
// stable; visible text and styling classes change most often.
const (
	ScoreTestID    = 0.95
	ScoreID        = 0.9
	ScoreName      = 0.8
	ScoreLinkText  = 0.7
	ScoreTextXPath = 0.6
	ScoreClass     = 0.5
)

// maxTextLength keeps text based locators to short labels
const maxTextLength = 80

// Fingerprint derives alternate locators for el. The locator el was found
// with is never included.
func Fingerprint(el browser.Element) []Candidate {
	now := time.Now().UTC()
	original := el.Locator()

	var out []Candidate
	add := func(loc browser.Locator, score float64) {
		if loc.Value == "" || loc == original {
			return
		}
		for _, c := range out {
			if c.Locator == loc {
				return
			}
		}
		out = append(out, Candidate{Locator: loc, Score: score, UpdatedAt: now})
	}

	if v, err := el.Attribute("data-testid"); err == nil {
		add(browser.TestID(v), ScoreTestID)
	}
	if v, err := el.Attribute("id"); err == nil {
		add(browser.ID(v), ScoreID)
	}
	if v, err := el.Attribute("name"); err == nil {
		add(browser.Name(v), ScoreName)
	}

	tag, _ := el.TagName()
	text, _ := el.Text()
	text = strings.TrimSpace(text)
	if text != "" && len(text) <= maxTextLength && !strings.Contains(text, "\n") {
		if tag == "a" {
			add(browser.LinkText(text), ScoreLinkText)
		}
		if tag != "" {
			add(browser.TextXPath(tag, text), ScoreTextXPath)
		}
	}

	if v, err := el.Attribute("class"); err == nil {
		if fields := strings.Fields(v); len(fields) > 0 {
			add(browser.ClassName(fields[0]), ScoreClass)
		}
	}

	return out
}

// Filter drops candidates scoring below min
func Filter(cs []Candidate, min float64) []Candidate {
	out := cs[:0:0]
	for _, c := range cs {
		if c.Score >= min {
			out = append(out, c)
		}
	}
	return out
}
