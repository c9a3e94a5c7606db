package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// KeywordMatcher tests text against a set of lowercase keywords. A text
// matches when any keyword is found (OR semantics).
type KeywordMatcher struct {
	keywords  []string
	wholeWord bool
}

// NewKeywordMatcher creates a matcher. Keywords are expected lowercased
// (see ParseKeywords).
func NewKeywordMatcher(keywords []string, wholeWord bool) *KeywordMatcher {
	km := &KeywordMatcher{
		keywords:  make([]string, 0, len(keywords)),
		wholeWord: wholeWord,
	}
	for _, k := range keywords {
		if k != "" {
			km.keywords = append(km.keywords, strings.ToLower(k))
		}
	}
	return km
}

// Empty reports whether there is nothing to match.
func (km *KeywordMatcher) Empty() bool {
	return len(km.keywords) == 0
}

// Match reports whether text contains any keyword. Case is ignored.
// Keywords with inner whitespace are always matched as plain substrings.
func (km *KeywordMatcher) Match(text string) bool {
	if len(km.keywords) == 0 || text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, k := range km.keywords {
		if km.wholeWord && !strings.ContainsFunc(k, unicode.IsSpace) {
			if containsWord(lower, k) {
				return true
			}
			continue
		}
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// isWordBoundary reports whether r separates words
func isWordBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// containsWord finds word in text with word boundaries on both sides
func containsWord(text, word string) bool {
	wordLen := len(word)
	if wordLen == 0 {
		return true
	}

	pos := 0
	for pos < len(text) {
		index := strings.Index(text[pos:], word)
		if index == -1 {
			return false
		}
		absolutePos := pos + index

		if boundedAt(text, absolutePos, absolutePos+wordLen) {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[absolutePos:])
		pos = absolutePos + size
	}
	return false
}

// boundedAt reports whether text[start:end] has word boundaries on both sides.
func boundedAt(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if !isWordBoundary(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordBoundary(r) {
			return false
		}
	}
	return true
}
