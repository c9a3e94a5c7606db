package search

import (
	"strings"
	"testing"
)

var benchMatched bool

// benchText builds ~1MB of filler, optionally with the needle near the start.
func benchText(needle string) string {
	const targetSize = 1 << 20
	var sb strings.Builder
	sb.Grow(targetSize + 128)
	sb.WriteString("This is a benchmark file containing " + needle + " early. ")
	fill := "lorem ipsum dolor sit amet consectetur adipiscing elit "
	for sb.Len() < targetSize {
		sb.WriteString(fill)
	}
	return sb.String()
}

func BenchmarkKeywordMatcherWholeWord_Hit(b *testing.B) {
	text := benchText("vehicles")
	km := NewKeywordMatcher([]string{"motor", "vehicles"}, true)
	if !km.Match(text) {
		b.Fatal("sanity check failed for hit case")
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchMatched = km.Match(text)
	}
}

func BenchmarkKeywordMatcherWholeWord_Miss(b *testing.B) {
	// "motorway" contains the keyword but never as a whole word
	text := benchText("motorway")
	km := NewKeywordMatcher([]string{"motor"}, true)
	if km.Match(text) {
		b.Fatal("sanity check failed for miss case")
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchMatched = km.Match(text)
	}
}

func BenchmarkKeywordMatcherSubstring_Miss(b *testing.B) {
	text := benchText("nothing")
	km := NewKeywordMatcher([]string{"motor", "vehicles"}, false)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchMatched = km.Match(text)
	}
}
