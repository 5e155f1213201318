// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package mdmagic

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XlsxConverter handles XLSX files.
type XlsxConverter struct{}

// NewXlsxConverter creates a new XlsxConverter.
func NewXlsxConverter() *XlsxConverter {
	return &XlsxConverter{}
}

func (c *XlsxConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".xlsx" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (c *XlsxConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, sess *Session) (*DocumentConverterResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open XLSX: %w", err)
	}
	defer f.Close()

	var md strings.Builder
	for i, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			md.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&md, "# %s\n\n", sheet)

		rows, err := f.GetRows(sheet)
		if err != nil {
			sess.Logger().Warn("xlsx sheet unreadable", "sheet", sheet, "error", err)
		}
		rows = trimEmptyRows(rows)
		pictures := c.pictures(ctx, f, sheet, sess)

		if len(rows) == 0 && len(pictures) == 0 {
			md.WriteString("*This sheet is empty*\n")
			continue
		}
		if len(rows) > 0 {
			md.WriteString(renderMarkdownTable(rows))
		}
		for _, p := range pictures {
			md.WriteString("\n" + p + "\n")
		}
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
	}, nil
}

// pictures resolves every embedded picture of a sheet in cell order.
func (c *XlsxConverter) pictures(ctx context.Context, f *excelize.File, sheet string, sess *Session) []string {
	cells, err := f.GetPictureCells(sheet)
	if err != nil {
		sess.Logger().Warn("xlsx pictures unreadable", "sheet", sheet, "error", err)
		return nil
	}
	var out []string
	for _, cell := range cells {
		pics, err := f.GetPictures(sheet, cell)
		if err != nil {
			sess.Logger().Warn("xlsx picture unreadable", "sheet", sheet, "cell", cell, "error", err)
			continue
		}
		for _, pic := range pics {
			var alt string
			if pic.Format != nil {
				alt = pic.Format.AltText
			}
			out = append(out, sess.Image(ctx, ImageRef{
				Data:     pic.File,
				Format:   strings.TrimPrefix(strings.ToLower(pic.Extension), "."),
				Position: sheet + "!" + cell,
				Alt:      alt,
			}))
		}
	}
	return out
}
