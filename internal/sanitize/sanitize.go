// Package sanitize is the single sanitize-on-write boundary for user text.
// Every free-text field passes through Text before it reaches a store.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes all HTML elements from s, escapes what is left and trims
// surrounding whitespace.
func Text(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// Default sanitizes s and falls back to def when nothing remains.
func Default(s, def string) string {
	if out := Text(s); out != "" {
		return out
	}
	return def
}
