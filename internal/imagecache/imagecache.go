// Package imagecache persists each unique image of a document exactly once
// and hands back a Markdown placeholder for every occurrence.
//
// A Cache is scoped to one document: Reset clears it and points it at that
// document's image folder. Identity is the SHA-256 of the raw bytes.
package imagecache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/nicholasgasior/mdmagic-go/internal/vision"
)

// Describer produces alt text for an image occurrence.
type Describer interface {
	Describe(ctx context.Context, req vision.Request) vision.Description
}

// Entry is what the cache remembers about one unique image.
type Entry struct {
	Hash          string
	SavedFilename string
	AltText       string
	AIDescription string
	OCRText       string
}

// Record is one image occurrence handed to Resolve.
type Record struct {
	Data            []byte
	Format          string
	Position        string
	Occurrence      int
	ExistingAlt     string
	ExistingCaption string
}

// Placeholder is the Markdown image reference for one occurrence.
type Placeholder struct {
	Alt           string
	Path          string
	AIDescription string
	OCRText       string
	Hit           bool
	Failed        bool
}

// String renders the placeholder as ![alt](path).
func (p Placeholder) String() string {
	alt := strings.NewReplacer("[", "(", "]", ")", "\n", " ").Replace(p.Alt)
	return fmt.Sprintf("![%s](%s)", alt, p.Path)
}

// PersistError reports an image that was described but could not be written.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("could not persist image %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// DescribeError reports an image whose bytes could not be recognized.
type DescribeError struct {
	Occurrence int
	Err        error
}

func (e *DescribeError) Error() string {
	return fmt.Sprintf("could not describe image %d: %v", e.Occurrence, e.Err)
}

func (e *DescribeError) Unwrap() error { return e.Err }

// ErrEmptyImage is wrapped by DescribeError for zero-length image data.
var ErrEmptyImage = errors.New("empty image data")

// Cache deduplicates images within one document.
type Cache struct {
	describer Describer
	logger    *slog.Logger

	dir     string
	folder  string
	entries map[string]*Entry
	unique  int
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates an empty cache. Reset must be called before Resolve.
func New(d Describer, opts ...Option) *Cache {
	c := &Cache{describer: d, entries: make(map[string]*Entry)}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Reset forgets all images and numbering and targets dir for new files.
// folder is the link prefix written into placeholders.
func (c *Cache) Reset(dir, folder string) {
	c.dir = dir
	c.folder = folder
	c.entries = make(map[string]*Entry)
	c.unique = 0
}

// Discard removes every file persisted since the last Reset, and the image
// directory too when that leaves it empty, then resets numbering. It is used
// when the document that produced the images fails to convert.
func (c *Cache) Discard() error {
	var errs []error
	for _, e := range c.entries {
		if err := os.Remove(filepath.Join(c.dir, e.SavedFilename)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, &PersistError{Path: e.SavedFilename, Err: err})
		}
	}
	if c.dir != "" && len(c.entries) > 0 {
		if left, err := os.ReadDir(c.dir); err == nil && len(left) == 0 {
			os.Remove(c.dir)
		}
	}
	c.Reset(c.dir, c.folder)
	return errors.Join(errs...)
}

// Len returns the number of unique images persisted since the last Reset.
func (c *Cache) Len() int { return c.unique }

// Lookup returns the entry for data, if it has been persisted.
func (c *Cache) Lookup(data []byte) (*Entry, bool) {
	e, ok := c.entries[Hash(data)]
	return e, ok
}

// Hash returns the content key for image bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Resolve returns the placeholder for one image occurrence, describing and
// persisting the image the first time its bytes are seen. On failure the
// returned placeholder is still usable and the error is a *PersistError or
// *DescribeError.
func (c *Cache) Resolve(ctx context.Context, rec Record) (Placeholder, error) {
	hash := Hash(rec.Data)
	if e, ok := c.entries[hash]; ok {
		return c.reuse(e, rec), nil
	}

	format, err := validate(rec.Data, rec.Format)
	if err != nil {
		return c.failed(rec), &DescribeError{Occurrence: rec.Occurrence, Err: err}
	}

	filename := fmt.Sprintf("image_%d.%s", c.unique+1, format)
	d := c.describer.Describe(ctx, vision.Request{
		Data:            rec.Data,
		Number:          rec.Occurrence,
		Position:        rec.Position,
		ExistingAlt:     rec.ExistingAlt,
		ExistingCaption: rec.ExistingCaption,
	})

	p := Placeholder{
		Alt:           d.AltText,
		Path:          c.link(filename),
		AIDescription: d.AIDescription,
		OCRText:       d.OCRText,
	}
	if err := c.persist(filename, rec.Data); err != nil {
		p.Failed = true
		return p, err
	}

	c.unique++
	c.entries[hash] = &Entry{
		Hash:          hash,
		SavedFilename: filename,
		AltText:       d.AltText,
		AIDescription: d.AIDescription,
		OCRText:       d.OCRText,
	}
	c.logger.Debug("image saved", "file", filename, "position", rec.Position, "ocr", d.OCR.Outcome, "caption", d.Caption.Outcome)
	return p, nil
}

// reuse builds the placeholder for a repeated image. Author-supplied text for
// this occurrence wins; otherwise the cached AI description is reused and OCR
// text is dropped.
func (c *Cache) reuse(e *Entry, rec Record) Placeholder {
	alt := strings.TrimSpace(rec.ExistingAlt)
	if alt == "" {
		alt = strings.TrimSpace(rec.ExistingCaption)
	}
	if alt == "" {
		alt = vision.Compose(rec.Occurrence, rec.Position, e.AIDescription, "")
	}
	return Placeholder{
		Alt:           alt,
		Path:          c.link(e.SavedFilename),
		AIDescription: e.AIDescription,
		Hit:           true,
	}
}

// failed is the placeholder for bytes that could not be processed. It points
// at the filename the image would have received.
func (c *Cache) failed(rec Record) Placeholder {
	format := strings.ToLower(strings.TrimPrefix(rec.Format, "."))
	if format == "" {
		format = "png"
	}
	return Placeholder{
		Alt:    vision.ErrorAlt(rec.Occurrence, rec.Position),
		Path:   c.link(fmt.Sprintf("image_%d.%s", c.unique+1, format)),
		Failed: true,
	}
}

func (c *Cache) link(filename string) string {
	if c.folder == "" {
		return filename
	}
	return path.Join(filepath.ToSlash(c.folder), filename)
}

// persist writes data atomically so an interrupted write leaves no file behind.
func (c *Cache) persist(filename string, data []byte) error {
	if c.dir == "" {
		return &PersistError{Path: filename, Err: errors.New("no image directory")}
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return &PersistError{Path: c.dir, Err: err}
	}

	dst := filepath.Join(c.dir, filename)
	tmp, err := os.CreateTemp(c.dir, ".image-*")
	if err != nil {
		return &PersistError{Path: dst, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PersistError{Path: dst, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &PersistError{Path: dst, Err: err}
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return &PersistError{Path: dst, Err: err}
	}
	return nil
}

// opaqueFormats are vector or metafile formats with no Go decoder. They are
// saved as-is without a decode check.
var opaqueFormats = map[string]bool{
	"emf": true,
	"wmf": true,
	"svg": true,
}

// validate checks that data decodes as an image and returns the file
// extension to save it under. An explicit format hint wins over detection.
func validate(data []byte, hint string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	mt := mimetype.Detect(data)
	format := strings.ToLower(strings.TrimPrefix(hint, "."))
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		if !opaqueFormats[format] && !opaqueFormats[strings.TrimPrefix(mt.Extension(), ".")] {
			return "", fmt.Errorf("undecodable image data (%s): %w", mt.String(), err)
		}
	}

	if format == "" {
		format = strings.TrimPrefix(mt.Extension(), ".")
	}
	switch format {
	case "", "bin":
		format = "png"
	case "jpeg":
		format = "jpg"
	}
	return format, nil
}
