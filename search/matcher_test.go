package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordMatcher(t *testing.T) {
	tests := []struct {
		name      string
		keywords  []string
		wholeWord bool
		text      string
		want      bool
	}{
		{"substring", []string{"log"}, false, "login.txt", true},
		{"case insensitive", []string{"invoice"}, false, "INVOICE_2023.pdf", true},
		{"any keyword matches", []string{"zzz", "report"}, false, "q3-report.docx", true},
		{"no keyword matches", []string{"zzz", "yyy"}, false, "q3-report.docx", false},
		{"whole word rejects prefix", []string{"log"}, true, "login.txt", false},
		{"whole word before dot", []string{"log"}, true, "log.txt", true},
		{"whole word after dot", []string{"log"}, true, "access.log", true},
		{"underscore joins words", []string{"invoice"}, true, "invoice_2023.txt", false},
		{"later occurrence counts", []string{"log"}, true, "login log", true},
		{"keyword with space is substring", []string{"annual rep"}, true, "the annual report", true},
		{"unicode boundary", []string{"café"}, true, "le café-bar", true},
		{"unicode letter is not a boundary", []string{"caf"}, true, "café", false},
		{"empty text", []string{"a"}, false, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km := NewKeywordMatcher(tt.keywords, tt.wholeWord)
			assert.Equal(t, tt.want, km.Match(tt.text))
		})
	}
}

func TestKeywordMatcherEmpty(t *testing.T) {
	km := NewKeywordMatcher([]string{"", ""}, false)
	assert.True(t, km.Empty())
	assert.False(t, km.Match("anything"))
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"invoice", "contract"}, ParseKeywords(" Invoice, ,CONTRACT ,"))
	assert.Nil(t, ParseKeywords(" , "))
}
