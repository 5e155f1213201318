package vision

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"slices"
	"testing"
	"time"
)

func TestTesseractArgs(t *testing.T) {
	tests := []struct {
		lang string
		mode PageSegMode
		want []string
	}{
		{"", PSMAuto, []string{"stdin", "stdout", "--psm", "3"}},
		{"eng", PSMLine, []string{"stdin", "stdout", "--psm", "7", "-l", "eng"}},
	}
	for _, tt := range tests {
		got := (&Tesseract{Language: tt.lang}).Args(tt.mode)
		if !slices.Equal(got, tt.want) {
			t.Errorf("Args(%d) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestDetectTesseractMissingBinary(t *testing.T) {
	if DetectTesseract(context.Background(), "/nonexistent/tesseract-binary") {
		t.Error("DetectTesseract() = true for missing binary")
	}
}

func TestTesseractRecognize(t *testing.T) {
	ctx := context.Background()
	if !DetectTesseract(ctx, "tesseract") {
		t.Skip("tesseract not installed")
	}

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	tess := &Tesseract{Timeout: 30 * time.Second}
	if _, err := tess.Recognize(ctx, img, PSMBlock); err != nil {
		t.Errorf("Recognize() error: %v", err)
	}
}
