// Package sanitize strips markup from user-supplied text before it is
// stored. Item names, locations and movement notes are plain text; any HTML
// in them is removed so it can never reach a page unescaped.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict bluemonday policy. Initialized once via
// sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes every HTML element from input, trims surrounding whitespace
// and collapses internal runs of whitespace to one space. Entities produced
// by the sanitizer are decoded again so "Nuts & Bolts" round-trips; the
// result is escaped at render time like any other text.
func Text(input string) string {
	if input == "" {
		return ""
	}
	clean := html.UnescapeString(getPolicy().Sanitize(input))
	return strings.Join(strings.Fields(clean), " ")
}
