package mdmagic

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// ImageConverter turns a standalone image file into a Markdown document
// describing it.
type ImageConverter struct{}

// NewImageConverter creates a new ImageConverter.
func NewImageConverter() *ImageConverter {
	return &ImageConverter{}
}

func (c *ImageConverter) Accepts(info StreamInfo) bool {
	if imageExtensions[info.Extension] {
		return true
	}
	switch strings.ToLower(info.MIMEType) {
	case "image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff", "image/webp":
		return true
	}
	return false
}

func (c *ImageConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, sess *Session) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	name := info.Filename
	if name == "" {
		name = "image" + info.Extension
	}
	title := strings.TrimSuffix(name, filepath.Ext(name))
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")

	p := sess.ImageDetail(ctx, ImageRef{
		Data:     data,
		Format:   format,
		Position: "from " + name,
	})
	caps := sess.Capabilities()

	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", title)
	md.WriteString(p.String() + "\n\n")

	if p.AIDescription != "" {
		md.WriteString("## AI Description\n\n")
		fmt.Fprintf(&md, "**Visual Content:** %s\n\n", p.AIDescription)
	}
	switch {
	case p.OCRText != "":
		md.WriteString("## Extracted Text (OCR)\n\n")
		md.WriteString("```\n" + p.OCRText + "\n```\n\n")
	case caps.OCR:
		md.WriteString("## Extracted Text (OCR)\n\n*No text detected in image*\n\n")
	}

	md.WriteString("## Technical Information\n\n")
	fmt.Fprintf(&md, "- **File:** %s\n", name)
	if cfg, kind, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		fmt.Fprintf(&md, "- **Format:** %s\n", strings.ToUpper(kind))
		fmt.Fprintf(&md, "- **Size:** %d x %d pixels\n", cfg.Width, cfg.Height)
	} else {
		fmt.Fprintf(&md, "- **Format:** %s\n", strings.ToUpper(format))
	}
	fmt.Fprintf(&md, "- **File Size:** %s\n", humanBytes(len(data)))
	fmt.Fprintf(&md, "- **OCR Engine:** %s\n", capabilityLabel(caps.OCR, caps.OCREngine))
	fmt.Fprintf(&md, "- **AI Vision:** %s\n", capabilityLabel(caps.Caption, caps.CaptionModel))

	return &DocumentConverterResult{
		Markdown: md.String(),
		Title:    title,
		Kind:     KindImage,
	}, nil
}

func capabilityLabel(ok bool, name string) string {
	if !ok {
		return "Not available"
	}
	return name
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
