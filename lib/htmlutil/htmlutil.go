// Package htmlutil extracts anti-forgery tokens embedded as hidden inputs
// in server-rendered markup.
package htmlutil

import (
	"bytes"
	"fmt"
	"regexp"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// A TokenStrategy finds the value of a hidden <input> named `field` inside
// loosely structured markup. It reports false when no such input exists.
// Strategies are pure functions so the portal client can swap one for
// another without touching the orchestration around it.
type TokenStrategy func(markup []byte, field string) (string, bool)

var (
	patternCache   = map[string]*regexp.Regexp{}
	patternCacheMu sync.Mutex
)

// the portal renders the token input with its attributes in name, type,
// value order; both quoting styles occur in the wild
func hiddenInputPattern(field string) *regexp.Regexp {
	patternCacheMu.Lock()
	defer patternCacheMu.Unlock()

	cached, ok := patternCache[field]
	if ok {
		return cached
	}
	re := regexp.MustCompile(fmt.Sprintf(
		`(?i)<input[^>]*name=["']%s["'][^>]*type=["']hidden["'][^>]*value=["']([^"']+)["']`,
		regexp.QuoteMeta(field),
	))
	patternCache[field] = re
	return re
}

// HiddenInputPattern scans the markup with a single case-insensitive
// pattern; the first match wins.
func HiddenInputPattern(markup []byte, field string) (string, bool) {
	groups := hiddenInputPattern(field).FindSubmatch(markup)
	if len(groups) < 2 {
		return "", false
	}
	return string(groups[1]), true
}

// HiddenInputDocument parses the markup and selects the input structurally.
// Unlike HiddenInputPattern it does not care about attribute order.
func HiddenInputDocument(markup []byte, field string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(markup))
	if err != nil {
		return "", false
	}
	value := doc.Find(fmt.Sprintf("input[name='%s'][type='hidden']", field)).
		AttrOr("value", "")
	if value == "" {
		return "", false
	}
	return value, true
}

// Snippet bounds markup for diagnostic logging.
func Snippet(markup []byte, max int) string {
	if len(markup) <= max {
		return string(markup)
	}
	return string(markup[:max]) + "..."
}
