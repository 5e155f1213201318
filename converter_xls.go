package mdmagic

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/extrame/xls"
)

// XlsConverter handles legacy XLS files. Pictures are not extracted.
type XlsConverter struct{}

// NewXlsConverter creates a new XlsConverter.
func NewXlsConverter() *XlsConverter {
	return &XlsConverter{}
}

func (c *XlsConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".xls" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "application/vnd.ms-excel")
}

func (c *XlsConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, sess *Session) (*DocumentConverterResult, error) {
	// extrame/xls only opens paths.
	path := info.LocalPath
	if path == "" {
		tmp, err := os.CreateTemp("", "mdmagic-*.xls")
		if err != nil {
			return nil, fmt.Errorf("create temp file: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := io.Copy(tmp, reader); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("write temp file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return nil, fmt.Errorf("write temp file: %w", err)
		}
		path = tmp.Name()
	}

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open XLS: %w", err)
	}

	var md strings.Builder
	for i := 0; i < wb.NumSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if i > 0 {
			md.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&md, "# %s\n\n", name)

		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for col := 0; col < row.LastCol(); col++ {
				cells = append(cells, row.Col(col))
			}
			rows = append(rows, cells)
		}
		rows = trimEmptyRows(rows)
		if len(rows) == 0 {
			md.WriteString("*This sheet is empty*\n")
			continue
		}
		md.WriteString(renderMarkdownTable(rows))
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
	}, nil
}
