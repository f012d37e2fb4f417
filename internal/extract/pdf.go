// Package extract converts uploaded document bytes into plain text.
//
// Extraction is a pure in-memory transformation: uploaded bytes are never
// written to durable storage.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtraction indicates the input bytes are not a parseable document
// (corrupt, encrypted, or zero pages). Callers wrap it with the original
// filename so users can tell which upload failed.
var ErrExtraction = errors.New("document could not be read as a PDF")

// Text extracts plain text from PDF bytes. Page texts are joined with
// newlines; pages without extractable text are skipped. A parseable PDF
// whose pages carry no text returns an empty string, which callers report
// as a "no content" outcome rather than an error.
func Text(data []byte) (text string, err error) {
	// The pdf parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExtraction, r)
		}
	}()

	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrExtraction)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	if reader.NumPage() == 0 {
		return "", fmt.Errorf("%w: document has no pages", ErrExtraction)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page (scanned image, broken font map)
			// doesn't invalidate the rest of the document.
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		pages = append(pages, content)
	}

	return strings.Join(pages, "\n"), nil
}
