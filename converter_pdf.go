package mdmagic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PdfConverter handles PDF files. Page text comes from PDFium (or
// ledongthuc/pdf in nopdfium builds); embedded images come from pdfcpu.
type PdfConverter struct{}

// NewPdfConverter creates a new PdfConverter.
func NewPdfConverter() *PdfConverter {
	return &PdfConverter{}
}

func (c *PdfConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".pdf" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "application/pdf")
}

// pdfImage is one embedded image in page order.
type pdfImage struct {
	page   int
	data   []byte
	format string
}

func (c *PdfConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, sess *Session) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}

	pages, err := readPDFPages(data)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	images, err := extractPDFImages(data)
	if err != nil {
		sess.Logger().Warn("pdf image extraction failed", "error", err)
	}
	byPage := make(map[int][]pdfImage)
	for _, img := range images {
		byPage[img.page] = append(byPage[img.page], img)
	}

	title := strings.TrimSuffix(info.Filename, filepath.Ext(info.Filename))
	cleaned := sess.Pages(pages)

	var md strings.Builder
	md.WriteString("# " + title + "\n\n")
	for i, text := range cleaned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageNr := i + 1
		if i > 0 {
			md.WriteString("\n---\n\n")
		}
		for _, img := range byPage[pageNr] {
			md.WriteString(sess.Image(ctx, ImageRef{
				Data:     img.data,
				Format:   img.format,
				Position: fmt.Sprintf("pg%d", pageNr),
			}))
			md.WriteString("\n\n")
		}
		md.WriteString(text)
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
		Title:    title,
	}, nil
}

// extractPDFImages returns the embedded images of every page, ordered by
// page and then by object number so occurrence numbering is stable.
func extractPDFImages(data []byte) ([]pdfImage, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	perPage, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, conf)
	if err != nil {
		return nil, err
	}

	type objImage struct {
		obj int
		img pdfImage
	}
	var all []objImage
	for _, m := range perPage {
		for objNr, img := range m {
			if img.Reader == nil {
				continue
			}
			b, err := io.ReadAll(img)
			if err != nil || len(b) == 0 {
				continue
			}
			all = append(all, objImage{obj: objNr, img: pdfImage{
				page:   img.PageNr,
				data:   b,
				format: pdfImageFormat(img.FileType),
			}})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].img.page != all[j].img.page {
			return all[i].img.page < all[j].img.page
		}
		return all[i].obj < all[j].obj
	})

	out := make([]pdfImage, len(all))
	for i, o := range all {
		out[i] = o.img
	}
	return out, nil
}

func pdfImageFormat(fileType string) string {
	switch ft := strings.ToLower(strings.TrimPrefix(fileType, ".")); ft {
	case "jpeg", "jpg":
		return "jpg"
	case "tif", "tiff":
		return "tiff"
	case "":
		return "png"
	default:
		return ft
	}
}
