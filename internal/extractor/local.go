package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// LocalPDF is an offline stand-in for the remote service used by dry
// runs: it dumps the document's plain text per page without any field
// understanding, so the pipeline exercises its single-row fallback.
type LocalPDF struct{}

func (LocalPDF) Extract(ctx context.Context, data []byte) (any, error) {
	_ = ctx
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}

	return map[string]any{
		"raw_text":   strings.Join(pages, "\n"),
		"page_count": len(pages),
	}, nil
}
