// Package extract recovers structured payloads from free-form model output.
package extract

import (
	"regexp"
	"strings"
)

var (
	htmlFence = regexp.MustCompile("(?is)```html\\s*(.*?)\\s*```")
	anyFence  = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	doctype   = regexp.MustCompile(`(?i)<!doctype`)
	htmlTag   = regexp.MustCompile(`(?i)<html`)
)

// HTML returns the best-guess HTML document embedded in raw. Rules are tried in order
// and only the first match is used:
//
//  1. first fenced block tagged html (any case)
//  2. first fenced block of any kind
//  3. text from the first <!doctype
//  4. text from the first <html
//  5. the whole input
//
// The result is always trimmed. An unterminated fence does not match.
func HTML(raw string) string {
	if m := htmlFence.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := anyFence.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := doctype.FindStringIndex(raw); loc != nil {
		return strings.TrimSpace(raw[loc[0]:])
	}
	if loc := htmlTag.FindStringIndex(raw); loc != nil {
		return strings.TrimSpace(raw[loc[0]:])
	}
	return strings.TrimSpace(raw)
}
