package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var reMultiSpace = regexp.MustCompile(`\s+`)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func collapseSpaces(s string) string {
	return reMultiSpace.ReplaceAllString(s, " ")
}

func lower(s string) string {
	return strings.ToLower(s)
}

// SanitizeRef trims a directory reference.
func SanitizeRef(input string) string {
	return trim(input)
}

// SanitizeText trims free text such as cancel reasons and approval notes.
func SanitizeText(input string) string {
	return Pipeline{trim, collapseSpaces}.Apply(input)
}

// SanitizeSearch prepares a worklist search term for case-insensitive
// prefix matching.
func SanitizeSearch(input string) string {
	return Pipeline{trim, collapseSpaces, lower}.Apply(input)
}

// SanitizeCode strips whitespace and dashes that users type into OTP codes.
func SanitizeCode(input string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, input)
}
