package indexer

import (
	"strings"
	"unicode"
)

// keywordText prepares extracted content for the keyword side index.
// Control and format runes left behind by PDF and office extraction are
// dropped and whitespace runs collapse to a single space.
func keywordText(content string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r), r == unicode.ReplacementChar:
			return -1
		}
		return r
	}, content)
	return strings.Join(strings.Fields(cleaned), " ")
}
