package mdmagic

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nicholasgasior/mdmagic-go/internal/rtf"
)

// RtfConverter handles Rich Text Format documents.
type RtfConverter struct{}

// NewRtfConverter creates a new RtfConverter.
func NewRtfConverter() *RtfConverter {
	return &RtfConverter{}
}

func (c *RtfConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".rtf" {
		return true
	}
	switch strings.ToLower(info.MIMEType) {
	case "application/rtf", "text/rtf":
		return true
	}
	return false
}

func (c *RtfConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, sess *Session) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(data)), `{\rtf`) {
		return nil, fmt.Errorf("rtf: missing {\\rtf header")
	}
	text := rtf.ToText(string(data), codepageEncoding)
	return &DocumentConverterResult{
		Markdown: sess.Text(text),
	}, nil
}
