// Package inspect extracts optional details from accepted documents.
package inspect

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	pdf "github.com/ledongthuc/pdf"

	"github.com/dharsanguruparan/dropzone/internal/model"
)

const pdfType = "application/pdf"

// PageCount returns the number of pages of a PDF candidate. Other media types
// return 0 without being read.
func PageCount(f model.File) (int, error) {
	if f.Type() != pdfType {
		return 0, nil
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	data, err := io.ReadAll(rc)
	err = errors.Join(err, rc.Close())
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}

	return countPages(data)
}

func countPages(data []byte) (n int, err error) {
	// The parser panics on some truncated inputs.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("parse pdf: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("new pdf reader: %w", err)
	}

	return doc.NumPage(), nil
}
