// Input sanitization for user-authored chat text.
package sanitize

import (
	"html"
	"regexp"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mkoyasu/chatto/pkg/utils"
)

// schemePattern matches the URI schemes that must not survive in any
// casing, wherever they appear.
var schemePattern = regexp.MustCompile(`(?i)(javascript|data|vbscript):`)

// policy allows a small set of formatting tags with no attributes.
// Script and style elements are dropped with their contents; other
// disallowed tags are stripped but keep their inner text.
var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "u", "em", "strong", "code", "pre", "br", "p")
	return p
}

// stripSchemes removes forbidden schemes until none remain. A single
// pass is not enough: removing one occurrence can splice the
// surrounding text into a new one (javajavascript:script:).
func stripSchemes(s string) string {
	for {
		out := schemePattern.ReplaceAllString(s, "")
		if out == s {
			return out
		}
		s = out
	}
}

// Sanitize converts arbitrary user text into markup-safe text. Three
// stages run in order: dangerous URI schemes are stripped, a tag
// allow-list pass removes everything but basic formatting, and the
// result is HTML-escaped so no tag is interpreted downstream. Any
// internal failure falls back to escaping the original input; the
// function never panics and never returns unescaped input.
func Sanitize(text string) (out string) {
	if text == "" {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			utils.GetLogger().Error("sanitization failed, falling back to plain escape", "panic", r)
			out = html.EscapeString(text)
		}
	}()

	cleaned := stripSchemes(text)
	cleaned = policy.Sanitize(cleaned)
	// bluemonday entity-encodes stray markup characters; decode before
	// the final escape so they are not double-escaped. Decoding can also
	// materialize a scheme hidden behind character references
	// (java&#115;cript:), so the scheme strip runs once more.
	cleaned = html.UnescapeString(cleaned)
	cleaned = stripSchemes(cleaned)
	return html.EscapeString(cleaned)
}
