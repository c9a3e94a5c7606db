package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Default caps for PDF text extraction.
const (
	DefaultPageCap    = 200        // maximum number of pages to process
	DefaultPerPageCap = 128 * 1024 // 128 KiB per-page text cap
)

// PDFExtractor extracts text from .pdf files. The layout-aware reader is
// tried first; when it yields nothing the raw content streams are scanned
// for string literals.
type PDFExtractor struct {
	PageCap    int
	PerPageCap int
}

func (e *PDFExtractor) caps() (int, int) {
	pageCap, perPageCap := e.PageCap, e.PerPageCap
	if pageCap <= 0 {
		pageCap = DefaultPageCap
	}
	if perPageCap <= 0 {
		perPageCap = DefaultPerPageCap
	}
	return pageCap, perPageCap
}

// ExtractPath implements PathExtractor.
func (e *PDFExtractor) ExtractPath(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return "", err
	}

	text, err := e.readPages(ctx, f, st.Size())
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err == nil && text != "" {
		return text, nil
	}

	pageCap, perPageCap := e.caps()
	fallback, ferr := extractContentStreams(path, pageCap, perPageCap)
	if ferr != nil {
		return "", errors.Join(err, ferr)
	}
	return fallback, nil
}

// ExtractText implements the FormatExtractor interface for PDF bytes.
func (e *PDFExtractor) ExtractText(data []byte) (string, error) {
	text, err := e.readPages(context.Background(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New("no text layer in PDF")
	}
	return text, nil
}

// readPages extracts page text with panic protection per page; malformed
// PDFs routinely make the reader panic.
func (e *PDFExtractor) readPages(ctx context.Context, r io.ReaderAt, size int64) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf reader panicked: %v", p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := 0
	func() {
		defer func() { _ = recover() }()
		pages = reader.NumPage()
	}()
	if pages <= 0 {
		return "", nil
	}

	pageCap, perPageCap := e.caps()
	var b strings.Builder
	for i := 1; i <= pages && i <= pageCap; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		func() {
			defer func() { _ = recover() }()
			page := reader.Page(i)
			if page.V.IsNull() {
				return
			}
			var pb strings.Builder
			for _, item := range page.Content().Text {
				pb.WriteString(item.S)
				if pb.Len() >= perPageCap {
					break
				}
			}
			b.WriteString(pb.String())
			b.WriteString("\n")
		}()
	}
	return strings.TrimSpace(b.String()), nil
}

// asciiNormalize collapses all non-printable or non-ASCII runes to space and
// then normalizes whitespace to single spaces.
func asciiNormalize(s string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > 127 || !unicode.IsPrint(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(ascii), " ")
}

// parseStringLiterals collects text within balanced parentheses of a PDF
// content stream, honoring backslash escapes, up to maxOut bytes.
func parseStringLiterals(s string, maxOut int) string {
	var out strings.Builder
	depth := 0
	escape := false
	in := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !in {
			if c == '(' {
				in = true
				depth = 1
			}
			continue
		}
		if escape {
			out.WriteByte(c)
			escape = false
		} else {
			switch c {
			case '\\':
				escape = true
			case '(':
				depth++
				out.WriteByte(c)
			case ')':
				depth--
				if depth == 0 {
					in = false
					out.WriteByte(' ')
				} else {
					out.WriteByte(c)
				}
			default:
				out.WriteByte(c)
			}
		}
		if out.Len() >= maxOut {
			break
		}
	}
	return out.String()
}

// extractContentStreams dumps page content streams with pdfcpu into a
// temporary directory and scans them for string literals.
func extractContentStreams(path string, pageCap, perPageCap int) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdfcpu panicked: %v", p)
		}
	}()

	tmpDir, err := os.MkdirTemp("", "disk-search-pdf-*")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.ExtractContentFile(path, tmpDir, nil, nil); err != nil {
		return "", fmt.Errorf("pdfcpu ExtractContentFile: %w", err)
	}

	ents, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("read dir: %w", err)
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i].Name() < ents[j].Name() })

	var b strings.Builder
	pagesProcessed := 0
	for _, de := range ents {
		if de.IsDir() || pagesProcessed >= pageCap {
			continue
		}
		data, _ := os.ReadFile(filepath.Join(tmpDir, de.Name()))
		if len(data) == 0 {
			continue
		}
		txt := asciiNormalize(parseStringLiterals(string(data), perPageCap))
		if len(txt) > perPageCap {
			txt = txt[:perPageCap]
		}
		if txt == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(txt)
		pagesProcessed++
	}
	return b.String(), nil
}
