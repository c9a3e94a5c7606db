// Package extract turns document files into plain text for content matching.
//
// Each supported format has a FormatExtractor working on raw bytes; the
// Registry reads files, picks the extractor by extension, and guards every
// call against panics from third-party parsers.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// ErrUnsupported is returned for extensions without an extractor.
var ErrUnsupported = errors.New("unsupported file format")

// maxReadBytes caps how much of one file is loaded for extraction.
const maxReadBytes = 64 * 1024 * 1024

// Extractor produces searchable text for a file. ext is the lowercased
// extension including the dot.
type Extractor interface {
	Extract(ctx context.Context, path, ext string) (string, error)
}

// FormatExtractor converts the raw bytes of one format into plain text
type FormatExtractor interface {
	ExtractText(data []byte) (string, error)
}

// PathExtractor is implemented by formats whose parser needs the file itself.
type PathExtractor interface {
	ExtractPath(ctx context.Context, path string) (string, error)
}

// Registry holds extractors for different file types
type Registry struct {
	extractors map[string]FormatExtractor
	fallback   FormatExtractor
}

// NewRegistry creates a new registry with built-in extractors
func NewRegistry() *Registry {
	r := &Registry{
		extractors: make(map[string]FormatExtractor),
		fallback:   &PlainTextExtractor{RejectBinary: true},
	}
	r.registerBuiltIns()
	return r
}

// Register adds or replaces the extractor for ext (with or without dot).
func (r *Registry) Register(ext string, fx FormatExtractor) {
	r.extractors[normalizeExt(ext)] = fx
}

// Get returns the extractor for a given file extension
func (r *Registry) Get(ext string) (FormatExtractor, bool) {
	fx, ok := r.extractors[normalizeExt(ext)]
	return fx, ok
}

// Extensions lists registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// registerBuiltIns registers the built-in extractors for supported formats
func (r *Registry) registerBuiltIns() {
	text := &PlainTextExtractor{}
	for _, ext := range []string{"txt", "csv", "tsv", "log", "json", "yaml", "yml", "ini", "cfg", "conf", "rst", "tex", "sql"} {
		r.Register(ext, text)
	}
	r.Register("html", &HTMLExtractor{})
	r.Register("htm", &HTMLExtractor{})
	r.Register("xml", &XMLExtractor{})
	r.Register("md", &MarkdownExtractor{})
	r.Register("markdown", &MarkdownExtractor{})

	// Office Open XML and OpenDocument
	r.Register("docx", DOCXExtractor)
	r.Register("pptx", PPTXExtractor)
	r.Register("odt", ODTExtractor)
	r.Register("odp", ODTExtractor)
	r.Register("ods", ODTExtractor)
	r.Register("xlsx", &ExcelExtractor{})
	r.Register("xlsm", &ExcelExtractor{})

	// Legacy compound-file formats
	r.Register("doc", &OLEExtractor{Streams: []string{"WordDocument", "1Table", "0Table"}})
	r.Register("xls", &OLEExtractor{Streams: []string{"Workbook", "Book"}})
	r.Register("ppt", &OLEExtractor{Streams: []string{"PowerPoint Document"}})
	r.Register("msg", &MSGExtractor{})

	// Email
	r.Register("eml", &EMLExtractor{})
	r.Register("mbox", &MBOXExtractor{})

	r.Register("rtf", &RTFExtractor{})
	r.Register("pdf", &PDFExtractor{})
}

// Extract implements Extractor. Unknown extensions are read as text unless
// the bytes look binary.
func (r *Registry) Extract(ctx context.Context, path, ext string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fx, ok := r.Get(ext)
	if !ok {
		fx = r.fallback
	}

	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("extractor for %s panicked: %v", ext, p)
		}
	}()

	if px, ok := fx.(PathExtractor); ok {
		return px.ExtractPath(ctx, path)
	}

	data, err := readFile(path)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fx.ExtractText(data)
}

// readFile loads up to maxReadBytes of path and drops it from the page cache
// afterwards so a full-disk scan doesn't evict the user's working set.
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	adviseSequential(f)
	defer adviseDontNeed(f)

	return io.ReadAll(io.LimitReader(f, maxReadBytes))
}

// normalizeExt lowercases and strips a leading dot.
func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
