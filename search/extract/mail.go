package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"
)

// EMLExtractor extracts text from .eml files (MIME messages)
type EMLExtractor struct{}

// ExtractText implements the FormatExtractor interface for EML files.
// Subject and sender are included so header-only matches are found.
func (e *EMLExtractor) ExtractText(data []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse EML: %w", err)
	}

	// Prefer plain text, fallback to HTML if plain text is empty
	body := env.Text
	if strings.TrimSpace(body) == "" && env.HTML != "" {
		body = stripMarkup(env.HTML)
	}

	var b strings.Builder
	for _, h := range []string{"Subject", "From", "To"} {
		if v := env.GetHeader(h); v != "" {
			b.WriteString(v)
			b.WriteByte('\n')
		}
	}
	for _, att := range env.Attachments {
		if att.FileName != "" {
			b.WriteString(att.FileName)
			b.WriteByte('\n')
		}
	}
	b.WriteString(body)
	return collapseSpace(b.String()), nil
}

// MBOXExtractor extracts text from .mbox files (collections of MIME messages)
type MBOXExtractor struct{}

// maxMboxMessages bounds how many messages of one mailbox are parsed.
const maxMboxMessages = 5000

// ExtractText implements the FormatExtractor interface for MBOX files
func (e *MBOXExtractor) ExtractText(data []byte) (string, error) {
	reader := mbox.NewReader(bytes.NewReader(data))
	eml := &EMLExtractor{}

	var b strings.Builder
	for i := 0; i < maxMboxMessages; i++ {
		msg, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if b.Len() == 0 {
				return "", fmt.Errorf("failed to read mbox: %w", err)
			}
			break
		}
		content, err := io.ReadAll(msg)
		if err != nil {
			continue
		}
		text, err := eml.ExtractText(content)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n---\n")
	}

	if b.Len() == 0 {
		return decodeText(data), nil
	}
	return b.String(), nil
}
