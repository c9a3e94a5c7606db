package extract

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	tagRegex        = regexp.MustCompile(`<[^>]*>`)
	styleRegex      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptRegex     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// binarySniffLen is how many leading bytes are checked for NULs.
const binarySniffLen = 8000

// PlainTextExtractor decodes text files in UTF-8, UTF-16 (BOM or sniffed)
// or Windows-1252.
type PlainTextExtractor struct {
	// RejectBinary makes files that look binary return ErrUnsupported
	RejectBinary bool
}

// ExtractText implements the FormatExtractor interface for text files
func (e *PlainTextExtractor) ExtractText(data []byte) (string, error) {
	if e.RejectBinary && looksBinary(data) {
		return "", ErrUnsupported
	}
	return decodeText(data), nil
}

// HTMLExtractor extracts text from .html files
type HTMLExtractor struct{}

// ExtractText implements the FormatExtractor interface for HTML files
func (e *HTMLExtractor) ExtractText(data []byte) (string, error) {
	return stripMarkup(decodeText(data)), nil
}

// XMLExtractor extracts text from .xml files
type XMLExtractor struct{}

// ExtractText implements the FormatExtractor interface for XML files
func (e *XMLExtractor) ExtractText(data []byte) (string, error) {
	text := tagRegex.ReplaceAllString(decodeText(data), " ")
	return collapseSpace(html.UnescapeString(text)), nil
}

// stripMarkup removes style/script blocks and tags and decodes entities.
func stripMarkup(s string) string {
	s = styleRegex.ReplaceAllString(s, " ")
	s = scriptRegex.ReplaceAllString(s, " ")
	s = tagRegex.ReplaceAllString(s, " ")
	return collapseSpace(html.UnescapeString(s))
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// decodeText converts raw bytes of unknown encoding to a UTF-8 string.
func decodeText(data []byte) string {
	if hasBOM(data) {
		if out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data); err == nil {
			return string(out)
		}
	}
	// NULs are valid UTF-8, so sniff UTF-16 first
	if looksUTF16LE(data) {
		if s, ok := decodeUTF16LE(data); ok {
			return s
		}
	}
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), " ")
	}
	return string(out)
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}

// looksUTF16LE reports whether most odd bytes in the sample are zero, which
// is how ASCII-range text looks in UTF-16LE.
func looksUTF16LE(data []byte) bool {
	n := min(len(data), 1024)
	if n < 4 {
		return false
	}
	zeros := 0
	for i := 1; i < n; i += 2 {
		if data[i] == 0 {
			zeros++
		}
	}
	return zeros*10 >= (n/2)*6
}

// decodeUTF16LE decodes UTF-16LE without a BOM and reports whether the
// result contains any letters.
func decodeUTF16LE(data []byte) (string, bool) {
	if len(data)%2 == 1 {
		data = data[:len(data)-1]
	}
	out, _, err := transform.Bytes(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder(), data)
	if err != nil || len(out) == 0 {
		return "", false
	}
	return string(out), true
}

// looksBinary reports NUL bytes in the leading sample, excluding UTF-16 text.
func looksBinary(data []byte) bool {
	sample := data[:min(len(data), binarySniffLen)]
	if !bytes.Contains(sample, []byte{0}) {
		return false
	}
	return !hasBOM(sample) && !looksUTF16LE(sample)
}

// printableRuns keeps ASCII text bytes and replaces everything else with
// spaces. Used to salvage text from binary streams.
func printableRuns(data []byte) string {
	buf := make([]byte, len(data))
	for i, b := range data {
		if b == '\t' || b == '\n' || b == '\r' || (b >= 0x20 && b <= 0x7e) {
			buf[i] = b
		} else {
			buf[i] = ' '
		}
	}
	return collapseSpace(string(buf))
}
