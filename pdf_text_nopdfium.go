//go:build nopdfium

package mdmagic

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPDFPages returns the plain text of every page, one entry per page,
// rebuilt row by row.
func readPDFPages(data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	pages := make([]string, r.NumPage())
	for i := range pages {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var b strings.Builder
		for _, row := range rows {
			if line := joinRow(row.Content); line != "" {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
		pages[i] = b.String()
	}
	return pages, nil
}

// joinRow concatenates a row's words. ledongthuc/pdf marks word gaps with
// empty strings.
func joinRow(words pdf.TextHorizontal) string {
	var b strings.Builder
	gap := false
	for _, w := range words {
		if w.S == "" {
			gap = true
			continue
		}
		if gap && b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
			b.WriteByte(' ')
		}
		b.WriteString(w.S)
		gap = false
	}
	return strings.TrimSpace(b.String())
}
