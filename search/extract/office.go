package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxPartBytes caps a single XML part inside an office container.
const maxPartBytes = 32 * 1024 * 1024

// ZipXMLExtractor reads the text nodes of selected XML parts in a zip-based
// document (Office Open XML, OpenDocument).
type ZipXMLExtractor struct {
	Parts func(name string) bool
}

var (
	// DOCXExtractor reads the body, headers and footers of .docx files
	DOCXExtractor = &ZipXMLExtractor{Parts: func(name string) bool {
		return name == "word/document.xml" ||
			(strings.HasPrefix(name, "word/header") || strings.HasPrefix(name, "word/footer")) && strings.HasSuffix(name, ".xml")
	}}

	// PPTXExtractor reads slides and speaker notes of .pptx files
	PPTXExtractor = &ZipXMLExtractor{Parts: func(name string) bool {
		return (strings.HasPrefix(name, "ppt/slides/slide") || strings.HasPrefix(name, "ppt/notesSlides/")) &&
			strings.HasSuffix(name, ".xml")
	}}

	// ODTExtractor reads content.xml of OpenDocument text, sheets and slides
	ODTExtractor = &ZipXMLExtractor{Parts: func(name string) bool {
		return name == "content.xml"
	}}
)

// ExtractText implements the FormatExtractor interface for zip+XML documents
func (e *ZipXMLExtractor) ExtractText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a zip container: %w", err)
	}

	var b strings.Builder
	found := false
	for _, f := range zr.File {
		if !e.Parts(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		found = true
		if err := xmlText(&b, io.LimitReader(rc, maxPartBytes)); err != nil && b.Len() == 0 {
			rc.Close()
			return "", fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}
		rc.Close()
		b.WriteByte('\n')
	}
	if !found {
		return "", errors.New("no text parts in document")
	}
	return strings.TrimSpace(b.String()), nil
}

// breakElements end a run of text (paragraphs, cells, tabs, line breaks).
var breakElements = map[string]bool{
	"p": true, "h": true, "br": true, "tab": true, "tc": true,
	"table-cell": true, "line-break": true, "s": true,
}

// xmlText writes the character data of an XML document to b, inserting a
// space wherever a paragraph or cell ends so words from adjacent runs in
// the same paragraph stay joined.
func xmlText(b *strings.Builder, r io.Reader) error {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if breakElements[t.Name.Local] {
				b.WriteByte(' ')
			}
		case xml.StartElement:
			if t.Name.Local == "tab" || t.Name.Local == "br" {
				b.WriteByte(' ')
			}
		}
	}
}

// ExcelExtractor extracts cell text from .xlsx workbooks
type ExcelExtractor struct{}

// ExtractText implements the FormatExtractor interface for Excel files
func (e *ExcelExtractor) ExtractText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.Rows(sheet)
		if err != nil {
			continue
		}
		b.WriteString(sheet)
		b.WriteByte('\n')
		for rows.Next() {
			row, err := rows.Columns()
			if err != nil {
				break
			}
			// Avoid massive memory usage on extremely wide sheets
			if len(row) > 1000 {
				row = row[:1000]
			}
			b.WriteString(strings.Join(row, " "))
			b.WriteByte('\n')
		}
		_ = rows.Close()
	}
	return strings.TrimSpace(b.String()), nil
}
