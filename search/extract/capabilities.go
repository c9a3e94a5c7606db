package extract

import (
	"archive/zip"
	"bytes"
	"slices"
)

// Capabilities records which extensions have a working extractor. It is
// built once at startup and never modified.
type Capabilities map[string]bool

// Supports reports whether ext (with or without dot) can be extracted.
func (c Capabilities) Supports(ext string) bool {
	return c[normalizeExt(ext)]
}

// Extensions returns every extension in the table, sorted.
func (c Capabilities) Extensions() []string {
	out := make([]string, 0, len(c))
	for ext := range c {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// probes are tiny valid documents used to check that a format's parser
// works in this build.
var probes = map[string]func() []byte{
	"docx": func() []byte { return zipProbe("word/document.xml", "<w:t>probe</w:t>") },
	"pptx": func() []byte { return zipProbe("ppt/slides/slide1.xml", "<a:t>probe</a:t>") },
	"odt":  func() []byte { return zipProbe("content.xml", "<text:p>probe</text:p>") },
	"eml":  func() []byte { return []byte("Subject: probe\r\nContent-Type: text/plain\r\n\r\nprobe\r\n") },
	"rtf":  func() []byte { return []byte(`{\rtf1\ansi probe}`) },
	"md":   func() []byte { return []byte("# probe") },
	"html": func() []byte { return []byte("<p>probe</p>") },
}

// DetectCapabilities builds the capability table for reg. Formats with a
// probe must extract it successfully; the rest are trusted as registered.
func DetectCapabilities(reg *Registry) Capabilities {
	caps := make(Capabilities)
	for _, ext := range reg.Extensions() {
		fx, _ := reg.Get(ext)
		probe, ok := probes[ext]
		if !ok {
			caps[ext] = true
			continue
		}
		caps[ext] = probeOK(fx, probe())
	}
	return caps
}

// zipProbe builds an in-memory zip holding one XML part.
func zipProbe(name, body string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		return nil
	}
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><root>` + body + `</root>`))
	if err := zw.Close(); err != nil {
		return nil
	}
	return buf.Bytes()
}

func probeOK(fx FormatExtractor, data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	text, err := fx.ExtractText(data)
	return err == nil && text != ""
}
