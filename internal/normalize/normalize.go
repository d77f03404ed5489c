// Package normalize cleans raw field text taken from intake documents.
// None of the functions fail: an empty result is the only signal that a
// value was absent.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Placeholder is the prompt text Word shows in an unfilled content control
const Placeholder = "Click or tap here to enter text."

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)
	usDateRe     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

	entityReplacer = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&amp;", "&",
	)
)

// Text decodes the five XML entities, strips markup, collapses whitespace and
// trims. Decoding and stripping repeat until neither changes the value, so the
// result never holds a tag or entity. The Word placeholder prompt, in any
// casing, cleans to "".
func Text(s string) string {
	if s == "" {
		return ""
	}

	for {
		next := tagRe.ReplaceAllString(entityReplacer.Replace(s), "")
		if next == s {
			break
		}
		s = next
	}
	s = norm.NFC.String(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if strings.EqualFold(s, Placeholder) {
		return ""
	}
	return s
}

// Optional is Text returning nil for an empty result
func Optional(s string) *string {
	cleaned := Text(s)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// Date cleans s and, when it is a valid M/d/yyyy calendar date, returns it as
// an RFC 3339 UTC midnight timestamp. Anything else is returned as the cleaned
// text so free-form descriptions like "late spring" survive.
func Date(s string) *string {
	cleaned := Text(s)
	if cleaned == "" {
		return nil
	}

	if usDateRe.MatchString(cleaned) {
		if t, err := time.Parse("1/2/2006", cleaned); err == nil {
			iso := t.UTC().Format(time.RFC3339)
			return &iso
		}
	}
	return &cleaned
}

// List cleans s and splits it on commas, dropping empty entries. Order and
// duplicates are kept.
func List(s string) []string {
	cleaned := Text(s)
	if cleaned == "" {
		return []string{}
	}

	pieces := strings.Split(cleaned, ",")
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
