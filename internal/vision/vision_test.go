package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
)

type fakeOCR struct {
	mu      sync.Mutex
	results map[PageSegMode]string
	err     error
	modes   []PageSegMode
}

func (f *fakeOCR) Name() string { return "fake-ocr" }

func (f *fakeOCR) Recognize(_ context.Context, _ image.Image, mode PageSegMode) (string, error) {
	f.mu.Lock()
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.results[mode], nil
}

type fakeCaptioner struct {
	text string
	err  error
}

func (f *fakeCaptioner) Name() string { return "fake-caption" }

func (f *fakeCaptioner) Caption(context.Context, image.Image) (string, error) {
	return f.text, f.err
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCompose(t *testing.T) {
	tests := []struct {
		name     string
		position string
		ai, ocr  string
		want     string
	}{
		{"both", "pg1", "a red square", "STOP", "Image 1, pg1, a red square, Text: STOP"},
		{"ocr only", "pg1", "", "STOP", "Image 1, pg1, Text content: STOP"},
		{"ai only", "pg1", "a red square", "", "Image 1, pg1, a red square"},
		{"neither", "pg1", "", "", "Image 1, pg1, Visual content"},
		{"no position", "", "", "", "Image 1, Visual content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(1, tt.position, tt.ai, tt.ocr)
			if got != tt.want {
				t.Errorf("Compose() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorAlt(t *testing.T) {
	if got, want := ErrorAlt(3, "pos3"), "Image (3), pos3, Processing error"; got != want {
		t.Errorf("ErrorAlt() = %q, want %q", got, want)
	}
	if got, want := ErrorAlt(3, ""), "Image (3), Processing error"; got != want {
		t.Errorf("ErrorAlt() = %q, want %q", got, want)
	}
}

func TestDescribeWithoutBackends(t *testing.T) {
	e := New()
	d := e.Describe(context.Background(), Request{Data: []byte("anything"), Number: 1, Position: "pg1"})
	if d.AltText != "Image 1, pg1, Visual content" {
		t.Errorf("AltText = %q, want %q", d.AltText, "Image 1, pg1, Visual content")
	}
	if d.OCR.Outcome != Unavailable || d.Caption.Outcome != Unavailable {
		t.Errorf("signals = %s/%s, want unavailable", d.OCR.Outcome, d.Caption.Outcome)
	}
	if caps := e.Capabilities(); caps.OCR || caps.Caption {
		t.Errorf("Capabilities() = %+v, want none", caps)
	}
}

func TestDescribeAuthorAltShortCircuits(t *testing.T) {
	ocr := &fakeOCR{results: map[PageSegMode]string{PSMAuto: "should not run"}}
	e := New(WithOCR(ocr), WithCaptioner(&fakeCaptioner{text: "ignored"}))

	d := e.Describe(context.Background(), Request{Data: testPNG(t), Number: 2, Position: "pos2", ExistingAlt: "  Company logo "})
	if d.AltText != "Company logo" {
		t.Errorf("AltText = %q, want author alt verbatim", d.AltText)
	}
	if len(ocr.modes) != 0 {
		t.Errorf("OCR ran %d times, want 0", len(ocr.modes))
	}
	if d.OCR.Outcome != Skipped {
		t.Errorf("OCR outcome = %s, want skipped", d.OCR.Outcome)
	}
}

func TestDescribeCombinesBackends(t *testing.T) {
	ocr := &fakeOCR{results: map[PageSegMode]string{PSMAuto: "  Quarterly\n  results  "}}
	e := New(WithOCR(ocr), WithCaptioner(&fakeCaptioner{text: "A picture of a bar chart"}))

	d := e.Describe(context.Background(), Request{Data: testPNG(t), Number: 4, Position: "pg2"})
	want := "Image 4, pg2, a bar chart, Text: Quarterly results"
	if d.AltText != want {
		t.Errorf("AltText = %q, want %q", d.AltText, want)
	}
	if d.AIDescription != "a bar chart" || d.OCRText != "Quarterly results" {
		t.Errorf("Description = %+v", d)
	}
}

func TestDescribeOCRModeFallback(t *testing.T) {
	ocr := &fakeOCR{results: map[PageSegMode]string{PSMAuto: "ab", PSMBlock: "", PSMLine: "EXIT ONLY"}}
	e := New(WithOCR(ocr))

	d := e.Describe(context.Background(), Request{Data: testPNG(t), Number: 1, Position: "pg1"})
	if d.AltText != "Image 1, pg1, Text content: EXIT ONLY" {
		t.Errorf("AltText = %q", d.AltText)
	}
	wantModes := []PageSegMode{PSMAuto, PSMBlock, PSMLine}
	if len(ocr.modes) != len(wantModes) {
		t.Fatalf("modes = %v, want %v", ocr.modes, wantModes)
	}
	for i := range wantModes {
		if ocr.modes[i] != wantModes[i] {
			t.Errorf("mode[%d] = %d, want %d", i, ocr.modes[i], wantModes[i])
		}
	}
}

func TestDescribeBackendFailuresDegrade(t *testing.T) {
	e := New(
		WithOCR(&fakeOCR{err: errors.New("tesseract crashed")}),
		WithCaptioner(&fakeCaptioner{err: errors.New("model unavailable")}),
	)

	d := e.Describe(context.Background(), Request{Data: testPNG(t), Number: 1, Position: "pg1"})
	if d.AltText != "Image 1, pg1, Visual content" {
		t.Errorf("AltText = %q", d.AltText)
	}
	if d.OCR.Outcome != Failed || d.Caption.Outcome != Failed {
		t.Errorf("signals = %s/%s, want failed/failed", d.OCR.Outcome, d.Caption.Outcome)
	}
}

func TestDescribeEmptyIsNotFailure(t *testing.T) {
	e := New(WithOCR(&fakeOCR{results: map[PageSegMode]string{}}), WithCaptioner(&fakeCaptioner{text: "   "}))

	d := e.Describe(context.Background(), Request{Data: testPNG(t), Number: 1})
	if d.OCR.Outcome != Empty || d.Caption.Outcome != Empty {
		t.Errorf("signals = %s/%s, want empty/empty", d.OCR.Outcome, d.Caption.Outcome)
	}
}

func TestDescribeUndecodable(t *testing.T) {
	e := New(WithCaptioner(&fakeCaptioner{text: "never"}))
	d := e.Describe(context.Background(), Request{Data: []byte("not an image"), Number: 1, Position: "pg1"})
	if d.Caption.Outcome != Failed {
		t.Errorf("caption outcome = %s, want failed", d.Caption.Outcome)
	}
	if d.AltText != "Image 1, pg1, Visual content" {
		t.Errorf("AltText = %q", d.AltText)
	}
}

func TestCleanOCR(t *testing.T) {
	long := strings.Repeat("word ", 60)
	got := CleanOCR(long)
	if n := len([]rune(got)); n != 150 {
		t.Errorf("len(CleanOCR(long)) = %d, want 150", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("CleanOCR(long) = %q, want ... suffix", got)
	}
	if got := CleanOCR(" a  b "); got != "" {
		t.Errorf("CleanOCR(short) = %q, want empty", got)
	}
	if got := CleanOCR("line one\n\tline two"); got != "line one line two" {
		t.Errorf("CleanOCR() = %q", got)
	}
}

func TestCleanCaption(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a picture of a cat", "a cat"},
		{"An image of two dogs", "two dogs"},
		{"  sunset over water ", "sunset over water"},
	}
	for _, tt := range tests {
		if got := CleanCaption(tt.in); got != tt.want {
			t.Errorf("CleanCaption(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreprocessKeepsBounds(t *testing.T) {
	img, _, err := image.Decode(bytes.NewReader(testPNG(t)))
	if err != nil {
		t.Fatal(err)
	}
	out := Preprocess(img)
	if out.Bounds().Dx() != 8 || out.Bounds().Dy() != 8 {
		t.Errorf("Preprocess bounds = %v", out.Bounds())
	}
}
