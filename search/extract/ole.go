package extract

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/richardlehane/mscfb"
)

// maxOLEBytes is the total budget read from one compound file.
const maxOLEBytes = 8 * 1024 * 1024

// OLEExtractor salvages text from legacy compound-file documents (.doc,
// .xls, .ppt) by reading the streams that usually carry body text.
type OLEExtractor struct {
	Streams []string
}

// ExtractText implements the FormatExtractor interface for OLE documents
func (e *OLEExtractor) ExtractText(data []byte) (string, error) {
	cf, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("not a compound file: %w", err)
	}

	var b strings.Builder
	var total int64
	for ent, err := cf.Next(); err == nil; ent, err = cf.Next() {
		if total >= maxOLEBytes {
			break
		}
		if !slices.Contains(e.Streams, ent.Name) {
			continue
		}
		chunk, _ := io.ReadAll(io.LimitReader(ent, maxOLEBytes-total))
		total += int64(len(chunk))
		if len(chunk) == 0 {
			continue
		}
		b.WriteString(salvageText(chunk))
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}

// salvageText reads a binary stream as UTF-16LE when it looks like it,
// otherwise keeps printable ASCII runs. Both are best effort.
func salvageText(data []byte) string {
	if looksUTF16LE(data) {
		if s, ok := decodeUTF16LE(data); ok {
			return collapseSpace(strings.Map(func(r rune) rune {
				if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
					return ' '
				}
				return r
			}, s))
		}
	}
	return printableRuns(data)
}

// MSGExtractor extracts subject, sender and body properties from Outlook
// .msg files.
type MSGExtractor struct{}

// Property stream names end in the type: 001F is UTF-16LE, 001E is 8-bit.
// 0037 subject, 1000 body, 0C1A sender name, 0E04 display-to.
var msgTextProps = []string{"0037", "1000", "0C1A", "0E04", "0E03", "1035"}

// ExtractText implements the FormatExtractor interface for MSG files
func (e *MSGExtractor) ExtractText(data []byte) (string, error) {
	cf, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("not a compound file: %w", err)
	}

	var b strings.Builder
	var total int64
	for ent, err := cf.Next(); err == nil; ent, err = cf.Next() {
		if total >= maxOLEBytes {
			break
		}
		name := ent.Name
		if !strings.HasPrefix(name, "__substg1.0_") || len(name) < len("__substg1.0_")+8 {
			continue
		}
		prop := name[len("__substg1.0_"):]
		id, typ := prop[:4], prop[4:8]
		if !slices.Contains(msgTextProps, id) {
			continue
		}
		chunk, _ := io.ReadAll(io.LimitReader(ent, maxOLEBytes-total))
		total += int64(len(chunk))
		switch typ {
		case "001F":
			if s, ok := decodeUTF16LE(chunk); ok {
				b.WriteString(s)
			}
		case "001E":
			b.WriteString(decodeText(chunk))
		default:
			continue
		}
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text properties in message")
	}
	return strings.TrimSpace(b.String()), nil
}
