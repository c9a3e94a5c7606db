package search

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

var controlCharRegex = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)

// excerptRadius is how many bytes of context are kept on each side of a hit
// before widening to the next space.
const excerptRadius = 100

// CleanContent replaces control characters and collapses runs of whitespace
// so extracted text reads as a single line.
func CleanContent(content string) string {
	content = controlCharRegex.ReplaceAllString(content, " ")
	return strings.Join(strings.Fields(content), " ")
}

// Spans returns the byte ranges of keyword hits in text, ordered by start,
// with overlapping hits merged. Nil when lowercasing changes the byte length
// of text, since offsets would not line up.
func (km *KeywordMatcher) Spans(text string) [][2]int {
	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		return nil
	}
	return km.hits(lower)
}

func (km *KeywordMatcher) hits(lower string) [][2]int {
	var spans [][2]int
	for _, k := range km.keywords {
		whole := km.wholeWord && !strings.ContainsFunc(k, unicode.IsSpace)
		for pos := 0; pos < len(lower); {
			i := strings.Index(lower[pos:], k)
			if i < 0 {
				break
			}
			start, end := pos+i, pos+i+len(k)
			if !whole || boundedAt(lower, start, end) {
				spans = append(spans, [2]int{start, end})
				pos = end
				continue
			}
			_, size := utf8.DecodeRuneInString(lower[start:])
			pos = start + size
		}
	}
	if len(spans) < 2 {
		return spans
	}

	slices.SortFunc(spans, func(a, b [2]int) int { return a[0] - b[0] })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s[0] <= last[1] {
			last[1] = max(last[1], s[1])
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// Excerpts returns up to limit distinct snippets of content around keyword
// hits, in document order.
func (km *KeywordMatcher) Excerpts(content string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	cleaned := CleanContent(content)
	lower := strings.ToLower(cleaned)
	src := cleaned
	if len(lower) != len(cleaned) {
		src = lower
	}

	seen := make(map[string]bool)
	var out []string
	for _, h := range km.hits(lower) {
		if len(out) >= limit {
			break
		}
		start := max(0, h[0]-excerptRadius)
		end := min(len(src), h[1]+excerptRadius)
		// widen so words are not cut
		for start > 0 && src[start-1] != ' ' {
			start--
		}
		for end < len(src) && src[end] != ' ' {
			end++
		}

		excerpt := strings.TrimSpace(src[start:end])
		if excerpt == "" || seen[excerpt] {
			continue
		}
		seen[excerpt] = true
		out = append(out, excerpt)
	}
	return out
}
