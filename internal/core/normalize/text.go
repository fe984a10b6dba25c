// Package normalize holds the shared text utilities the blotter parsers call
// inline: whitespace and OCR cleanup, keyword classification, location and
// time/date canonicalization.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`[\t\v]+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reWhitespace = regexp.MustCompile(`\s+`)
	reWSRun      = regexp.MustCompile(`\s{2,}`)
)

// Normalize collapses noisy whitespace in acquired text.
// Conservative: keeps line breaks; collapses >2 newlines into a single blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	// trim trailing spaces on lines
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CollapseWhitespace replaces every whitespace run (newlines included) with one space.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

func isBorderRune(r rune) bool {
	return r == '|' || r == '!' || r == '{' || r == '}'
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// CleanOCRArtifacts blanks table-border characters (| ! { }) that stand alone,
// i.e. have no word character on either side, then squeezes whitespace runs of
// two or more into a single space.
func CleanOCRArtifacts(s string) string {
	runes := []rune(s)
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = r
		if !isBorderRune(r) {
			continue
		}
		if i > 0 && isWordRune(runes[i-1]) {
			continue
		}
		if i+1 < len(runes) && isWordRune(runes[i+1]) {
			continue
		}
		out[i] = ' '
	}
	return strings.TrimSpace(reWSRun.ReplaceAllString(string(out), " "))
}

// TitleCase upper-cases the first letter of each word and lower-cases the rest.
func TitleCase(s string) string {
	// cases.Caser keeps state; build one per call.
	return cases.Title(language.English).String(s)
}
