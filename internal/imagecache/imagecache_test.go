package imagecache

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/nicholasgasior/mdmagic-go/internal/vision"
)

// stubDescriber returns a fixed AI description and counts calls.
type stubDescriber struct {
	ai    string
	ocr   string
	calls int
}

func (s *stubDescriber) Describe(_ context.Context, req vision.Request) vision.Description {
	s.calls++
	if req.ExistingAlt != "" {
		return vision.Description{AltText: req.ExistingAlt, AIDescription: req.ExistingAlt}
	}
	return vision.Description{
		AltText:       vision.Compose(req.Number, req.Position, s.ai, s.ocr),
		AIDescription: s.ai,
		OCRText:       s.ocr,
	}
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, c)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestResolveDeduplicates(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "report_images")
	d := &stubDescriber{ai: "a red dot", ocr: "LABEL TEXT"}
	c := New(d)
	c.Reset(dir, "report_images")

	data := pngBytes(t, color.RGBA{R: 255, A: 255})

	first, err := c.Resolve(ctx, Record{Data: data, Position: "pg1", Occurrence: 1})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	second, err := c.Resolve(ctx, Record{Data: data, Position: "pg3", Occurrence: 2})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if got := listFiles(t, dir); len(got) != 1 || got[0] != "image_1.png" {
		t.Errorf("files = %v, want [image_1.png]", got)
	}
	if d.calls != 1 {
		t.Errorf("describer calls = %d, want 1", d.calls)
	}
	if first.Path != "report_images/image_1.png" || second.Path != first.Path {
		t.Errorf("paths = %q, %q", first.Path, second.Path)
	}
	if first.Alt != "Image 1, pg1, a red dot, Text: LABEL TEXT" {
		t.Errorf("first alt = %q", first.Alt)
	}
	if second.Alt != "Image 2, pg3, a red dot" {
		t.Errorf("second alt = %q", second.Alt)
	}
	if !second.Hit || first.Hit {
		t.Errorf("hit flags = %v, %v", first.Hit, second.Hit)
	}
	if got := second.String(); got != "![Image 2, pg3, a red dot](report_images/image_1.png)" {
		t.Errorf("String() = %q", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestResolveDistinctImagesNumberedSequentially(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := New(&stubDescriber{})
	c.Reset(dir, "doc_images")

	for i, col := range []color.Color{color.White, color.Black, color.RGBA{G: 255, A: 255}} {
		p, err := c.Resolve(ctx, Record{Data: pngBytes(t, col), Occurrence: i + 1, Position: "pos"})
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.ToSlash(filepath.Join("doc_images", "image_"+string(rune('1'+i))+".png"))
		if p.Path != want {
			t.Errorf("image %d path = %q, want %q", i+1, p.Path, want)
		}
	}
	if n := len(listFiles(t, dir)); n != 3 {
		t.Errorf("files = %d, want 3", n)
	}
}

func TestResetIsolatesDocuments(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	data := pngBytes(t, color.RGBA{B: 255, A: 255})
	c := New(&stubDescriber{ai: "blue"})

	c.Reset(filepath.Join(root, "a_images"), "a_images")
	if _, err := c.Resolve(ctx, Record{Data: data, Occurrence: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Resolve(ctx, Record{Data: pngBytes(t, color.White), Occurrence: 2}); err != nil {
		t.Fatal(err)
	}

	c.Reset(filepath.Join(root, "b_images"), "b_images")
	p, err := c.Resolve(ctx, Record{Data: data, Occurrence: 1})
	if err != nil {
		t.Fatal(err)
	}
	if p.Hit {
		t.Error("image from previous document reported as cache hit")
	}
	if p.Path != "b_images/image_1.png" {
		t.Errorf("path after reset = %q, want b_images/image_1.png", p.Path)
	}
	if _, ok := c.Lookup(data); !ok {
		t.Error("Lookup() after resolve = false")
	}
}

func TestResolveCorruptBytes(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"not an image", []byte("definitely not an image"), ""},
		{"png signature with garbage", []byte("\x89PNG\r\n\x1a\n" + "garbage garbage garbage"), "png"},
		{"gif signature with garbage", []byte("GIF89a" + "garbage garbage garbage"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			d := &stubDescriber{}
			c := New(d)
			c.Reset(dir, "x_images")

			p, err := c.Resolve(context.Background(), Record{Data: tt.data, Format: tt.format, Position: "pos4", Occurrence: 4})
			var de *DescribeError
			if !errors.As(err, &de) {
				t.Fatalf("Resolve() error = %v, want *DescribeError", err)
			}
			if p.Alt != "Image (4), pos4, Processing error" {
				t.Errorf("alt = %q", p.Alt)
			}
			if !p.Failed {
				t.Error("placeholder not marked failed")
			}
			if files := listFiles(t, dir); len(files) != 0 {
				t.Errorf("files written for corrupt image: %v", files)
			}
			if d.calls != 0 {
				t.Errorf("describer called %d times for corrupt image", d.calls)
			}
			if c.Len() != 0 {
				t.Errorf("Len() = %d, want 0", c.Len())
			}
		})
	}
}

func TestResolveOpaqueFormat(t *testing.T) {
	dir := t.TempDir()
	c := New(&stubDescriber{})
	c.Reset(dir, "x_images")

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="4" height="4"></svg>`)
	p, err := c.Resolve(context.Background(), Record{Data: svg, Format: "svg", Occurrence: 1, Position: "pos1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Path != "x_images/image_1.svg" {
		t.Errorf("path = %q", p.Path)
	}
	if files := listFiles(t, dir); len(files) != 1 {
		t.Errorf("files = %v, want one", files)
	}
}

func TestResolveEmptyBytes(t *testing.T) {
	c := New(&stubDescriber{})
	c.Reset(t.TempDir(), "x_images")
	_, err := c.Resolve(context.Background(), Record{Occurrence: 1})
	if !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Resolve(empty) error = %v, want ErrEmptyImage", err)
	}
}

func TestResolveUnwritableDirectory(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "not_a_dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(&stubDescriber{ai: "thing"})
	c.Reset(filepath.Join(blocker, "images"), "images")

	p, err := c.Resolve(context.Background(), Record{Data: pngBytes(t, color.White), Occurrence: 1, Position: "pg1"})
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("Resolve() error = %v, want *PersistError", err)
	}
	if p.Alt != "Image 1, pg1, thing" || !p.Failed {
		t.Errorf("placeholder = %+v", p)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after failed persist", c.Len())
	}
}

func TestResolveAuthorAltOnRepeat(t *testing.T) {
	ctx := context.Background()
	c := New(&stubDescriber{ai: "chart"})
	c.Reset(t.TempDir(), "d_images")
	data := pngBytes(t, color.Black)

	if _, err := c.Resolve(ctx, Record{Data: data, Occurrence: 1}); err != nil {
		t.Fatal(err)
	}
	p, err := c.Resolve(ctx, Record{Data: data, Occurrence: 2, ExistingAlt: "Revenue chart"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Alt != "Revenue chart" {
		t.Errorf("alt = %q, want author alt", p.Alt)
	}
}

func TestValidateFormat(t *testing.T) {
	data := pngBytes(t, color.White)
	tests := []struct {
		hint string
		want string
	}{
		{"", "png"},
		{".PNG", "png"},
		{"jpeg", "jpg"},
	}
	for _, tt := range tests {
		got, err := validate(data, tt.hint)
		if err != nil {
			t.Fatalf("validate(%q) error: %v", tt.hint, err)
		}
		if got != tt.want {
			t.Errorf("validate(%q) = %q, want %q", tt.hint, got, tt.want)
		}
	}
}

func TestDiscardRemovesPersistedImages(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "doc_images")
	c := New(&stubDescriber{})
	c.Reset(dir, "doc_images")

	for i, col := range []color.Color{color.White, color.Black} {
		if _, err := c.Resolve(ctx, Record{Data: pngBytes(t, col), Occurrence: i + 1}); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(listFiles(t, dir)); got != 2 {
		t.Fatalf("files before Discard = %d, want 2", got)
	}

	if err := c.Discard(); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("image directory still present: %v", listFiles(t, dir))
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Discard", c.Len())
	}

	p, err := c.Resolve(ctx, Record{Data: pngBytes(t, color.White), Occurrence: 1})
	if err != nil {
		t.Fatal(err)
	}
	if p.Hit || p.Path != "doc_images/image_1.png" {
		t.Errorf("placeholder after Discard = %+v", p)
	}
}
