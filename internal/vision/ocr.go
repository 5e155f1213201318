package vision

import (
	"context"
	"errors"
	"image"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
)

// PageSegMode is a tesseract page segmentation mode.
type PageSegMode int

const (
	// PSMAuto is fully automatic page segmentation.
	PSMAuto PageSegMode = 3
	// PSMBlock assumes a single uniform block of text.
	PSMBlock PageSegMode = 6
	// PSMLine treats the image as a single text line.
	PSMLine PageSegMode = 7
)

// ocrModes are tried in order until one yields usable text.
var ocrModes = []PageSegMode{PSMAuto, PSMBlock, PSMLine}

const (
	minOCRRunes = 4
	maxOCRRunes = 150
)

// OCR extracts text from an image.
type OCR interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, mode PageSegMode) (string, error)
}

// Preprocess prepares an image for OCR: grayscale, higher contrast, sharpened.
func Preprocess(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 50)
	return imaging.Sharpen(gray, 1.0)
}

func (e *Engine) recognize(ctx context.Context, img image.Image) Signal {
	prepared := Preprocess(img)

	var errs []error
	for _, mode := range ocrModes {
		if err := ctx.Err(); err != nil {
			return Signal{Outcome: Failed, Err: err}
		}
		text, err := e.ocr.Recognize(ctx, prepared, mode)
		if err != nil {
			e.logger.Debug("ocr mode failed", "psm", int(mode), "error", err)
			errs = append(errs, err)
			continue
		}
		if text = CleanOCR(text); text != "" {
			return Signal{Outcome: OK, Text: text}
		}
	}
	if len(errs) == len(ocrModes) {
		return Signal{Outcome: Failed, Err: errors.Join(errs...)}
	}
	return Signal{Outcome: Empty}
}

// CleanOCR collapses whitespace in recognized text, discards results of three
// characters or fewer and truncates long results to 150 characters.
func CleanOCR(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	n := utf8.RuneCountInString(text)
	if n < minOCRRunes {
		return ""
	}
	if n > maxOCRRunes {
		runes := []rune(text)
		text = string(runes[:maxOCRRunes-3]) + "..."
	}
	return text
}
