package extract

import (
	"regexp"
	"strings"
)

var (
	rtfHexEscape    = regexp.MustCompile(`\\'[0-9a-fA-F]{2}`)
	rtfControlWord  = regexp.MustCompile(`\\[a-zA-Z]+-?\d* ?`)
	rtfControlSymbl = regexp.MustCompile(`\\[^a-zA-Z]`)
	rtfIgnoredGroup = regexp.MustCompile(`\{\\\*[^{}]*\}|\{\\(?:fonttbl|colortbl|stylesheet|info)[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// RTFExtractor extracts text from .rtf files (Rich Text Format)
type RTFExtractor struct{}

// ExtractText implements the FormatExtractor interface for RTF files
func (e *RTFExtractor) ExtractText(data []byte) (string, error) {
	text := decodeText(data)

	// Drop destination groups that hold metadata rather than body text
	text = rtfIgnoredGroup.ReplaceAllString(text, " ")
	text = rtfHexEscape.ReplaceAllStringFunc(text, func(s string) string {
		return decodeText([]byte{hexByte(s[2])<<4 | hexByte(s[3])})
	})
	text = rtfControlWord.ReplaceAllString(text, " ")
	text = rtfControlSymbl.ReplaceAllString(text, " ")

	// Remove braces
	text = strings.NewReplacer("{", "", "}", "").Replace(text)

	return collapseSpace(text), nil
}

func hexByte(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
