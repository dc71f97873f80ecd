package extractor

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docuchat/internal/domain"
	"docuchat/internal/log"
)

// PDF extracts plain text from PDF documents, page by page.
type PDF struct{}

func NewPDF() *PDF { return &PDF{} }

// Extract parses data as a PDF and returns its normalized text. A failure on
// any page fails the whole document; no partial text is returned.
func (p *PDF) Extract(ctx context.Context, name string, data []byte) (doc *domain.Document, err error) {
	if len(data) == 0 {
		return nil, domain.ErrNoDocument
	}
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %s: %v", domain.ErrExtraction, name, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, name, err)
	}

	pages := reader.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s: page %d: %w", domain.ErrExtraction, name, i, err)
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: page %d: %w", domain.ErrExtraction, name, i, err)
		}
		b.WriteString(text)
		b.WriteByte(' ')
	}

	text := Normalize(b.String())
	log.Debug("extracted document", "name", name, "pages", pages, "bytes", len(data))
	if text == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoText, name)
	}
	return &domain.Document{
		ID:    hashBytes(data),
		Name:  name,
		Text:  text,
		Pages: pages,
	}, nil
}

// Normalize collapses every run of whitespace to a single space and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func hashBytes(data []byte) string {
	h := sha1.Sum(data)
	return hex.EncodeToString(h[:8])
}
