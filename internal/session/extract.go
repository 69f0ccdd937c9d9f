package session

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// nameMarkers are checked in this order; the first one followed by a word wins
var nameMarkers = []string{"my name is", "i am", "i'm", "call me"}

// letterPattern finds candidate letters; isolation is checked by isolated
// because RE2 word boundaries only know ASCII
var letterPattern = regexp.MustCompile(`[A-Z]`)

// ExtractName finds a self-introduction ("my name is alice") and returns the
// capitalised name, or "" when there is none.
func ExtractName(input string) string {
	lower := strings.ToLower(input)
	for _, marker := range nameMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		// Capitalisation lowercases everything after the first rune, so the
		// lowered text yields the same name and keeps byte offsets aligned.
		fields := strings.Fields(lower[idx+len(marker):])
		if len(fields) == 0 {
			continue
		}
		return capitalize(strings.Trim(fields[0], ".,!?"))
	}
	return ""
}

// ExtractLetter returns the first single-letter token of the user input,
// falling back to the assistant response, or "" when neither has one.
func ExtractLetter(userInput, assistantResponse string) string {
	if l := firstLetterToken(userInput); l != "" {
		return l
	}
	return firstLetterToken(assistantResponse)
}

func firstLetterToken(text string) string {
	upper := strings.ToUpper(text)
	for _, loc := range letterPattern.FindAllStringIndex(upper, -1) {
		if isolated(upper, loc[0], loc[1]) {
			return upper[loc[0]:loc[1]]
		}
	}
	return ""
}

// isolated reports whether text[start:end] has no word rune on either side
func isolated(text string, start, end int) bool {
	if r, size := utf8.DecodeLastRuneInString(text[:start]); size > 0 && isWordRune(r) {
		return false
	}
	if r, size := utf8.DecodeRuneInString(text[end:]); size > 0 && isWordRune(r) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToTitle(r)) + strings.ToLower(s[size:])
}
