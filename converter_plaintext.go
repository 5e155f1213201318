package mdmagic

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// PlainTextConverter handles .txt files. Structure is inferred from the text.
type PlainTextConverter struct{}

// NewPlainTextConverter creates a new PlainTextConverter.
func NewPlainTextConverter() *PlainTextConverter {
	return &PlainTextConverter{}
}

func (c *PlainTextConverter) Accepts(info StreamInfo) bool {
	switch info.Extension {
	case ".txt", ".text":
		return true
	case "":
		return strings.HasPrefix(strings.ToLower(info.MIMEType), "text/plain")
	}
	return false
}

func (c *PlainTextConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, sess *Session) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return &DocumentConverterResult{
		Markdown: sess.Text(decodeText(data, info.Charset)),
	}, nil
}
