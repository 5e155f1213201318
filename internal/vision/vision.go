// Package vision turns image bytes into accessible alt text by combining an
// OCR backend and an AI caption backend. Either backend may be absent; the
// engine degrades to a generic description rather than failing.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/sync/errgroup"
)

// Capabilities describes which backends the engine can use. It is built once
// at startup and never changes for the life of an Engine.
type Capabilities struct {
	OCR          bool   `json:"ocr" yaml:"ocr"`
	OCREngine    string `json:"ocr_engine,omitempty" yaml:"ocr_engine,omitempty"`
	Caption      bool   `json:"caption" yaml:"caption"`
	CaptionModel string `json:"caption_model,omitempty" yaml:"caption_model,omitempty"`
}

// Outcome classifies the result of one OCR or caption attempt.
type Outcome int

const (
	Unavailable Outcome = iota
	Skipped
	OK
	Empty
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Unavailable:
		return "unavailable"
	case Skipped:
		return "skipped"
	case OK:
		return "ok"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Signal is the typed result of one backend call. Text is only meaningful
// when Outcome is OK.
type Signal struct {
	Outcome Outcome
	Text    string
	Err     error
}

// Request is one image occurrence to describe.
type Request struct {
	Data            []byte
	Image           image.Image
	Number          int
	Position        string
	ExistingAlt     string
	ExistingCaption string
}

// Description is the engine's verdict for one image occurrence.
type Description struct {
	AltText       string
	AIDescription string
	OCRText       string
	OCR           Signal
	Caption       Signal
}

// Engine describes images using whichever backends are configured.
type Engine struct {
	ocr       OCR
	captioner Captioner
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithOCR sets the OCR backend. A nil backend disables OCR.
func WithOCR(o OCR) Option {
	return func(e *Engine) { e.ocr = o }
}

// WithCaptioner sets the AI caption backend. A nil backend disables captions.
func WithCaptioner(c Captioner) Option {
	return func(e *Engine) { e.captioner = c }
}

// WithLogger sets the logger used for soft failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. With no options both backends are disabled.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Capabilities reports the backends this engine was built with.
func (e *Engine) Capabilities() Capabilities {
	var c Capabilities
	if e.ocr != nil {
		c.OCR = true
		c.OCREngine = e.ocr.Name()
	}
	if e.captioner != nil {
		c.Caption = true
		c.CaptionModel = e.captioner.Name()
	}
	return c
}

// Describe produces alt text for one image occurrence. It never returns an
// error: backend failures are recorded in the returned signals.
func (e *Engine) Describe(ctx context.Context, req Request) Description {
	if alt := authorText(req); alt != "" {
		return Description{
			AltText:       alt,
			AIDescription: alt,
			OCR:           Signal{Outcome: Skipped},
			Caption:       Signal{Outcome: Skipped},
		}
	}

	d := Description{
		OCR:     Signal{Outcome: Unavailable},
		Caption: Signal{Outcome: Unavailable},
	}
	if e.ocr == nil && e.captioner == nil {
		d.AltText = Compose(req.Number, req.Position, "", "")
		return d
	}

	img := req.Image
	if img == nil {
		decoded, _, err := image.Decode(bytes.NewReader(req.Data))
		if err != nil {
			e.logger.Warn("decode image for description", "image", req.Number, "position", req.Position, "error", err)
			if e.ocr != nil {
				d.OCR = Signal{Outcome: Failed, Err: err}
			}
			if e.captioner != nil {
				d.Caption = Signal{Outcome: Failed, Err: err}
			}
			d.AltText = Compose(req.Number, req.Position, "", "")
			return d
		}
		img = decoded
	}

	var g errgroup.Group
	if e.ocr != nil {
		g.Go(func() error {
			d.OCR = e.recognize(ctx, img)
			return nil
		})
	}
	if e.captioner != nil {
		g.Go(func() error {
			d.Caption = e.caption(ctx, img)
			return nil
		})
	}
	_ = g.Wait()

	if d.OCR.Outcome == OK {
		d.OCRText = d.OCR.Text
	}
	if d.Caption.Outcome == OK {
		d.AIDescription = d.Caption.Text
	}
	for name, s := range map[string]Signal{"ocr": d.OCR, "caption": d.Caption} {
		if s.Outcome == Failed {
			e.logger.Warn("image backend failed", "backend", name, "image", req.Number, "position", req.Position, "error", s.Err)
		}
	}

	d.AltText = Compose(req.Number, req.Position, d.AIDescription, d.OCRText)
	return d
}

func (e *Engine) caption(ctx context.Context, img image.Image) Signal {
	text, err := e.captioner.Caption(ctx, img)
	if err != nil {
		return Signal{Outcome: Failed, Err: err}
	}
	text = CleanCaption(text)
	if text == "" {
		return Signal{Outcome: Empty}
	}
	return Signal{Outcome: OK, Text: text}
}

func authorText(req Request) string {
	if alt := strings.TrimSpace(req.ExistingAlt); alt != "" {
		return alt
	}
	return strings.TrimSpace(req.ExistingCaption)
}

// Compose builds the alt text sentence from the occurrence number, position
// label and whichever descriptions are non-empty.
func Compose(number int, position, ai, ocr string) string {
	prefix := fmt.Sprintf("Image %d", number)
	if position != "" {
		prefix += ", " + position
	}
	switch {
	case ai != "" && ocr != "":
		return fmt.Sprintf("%s, %s, Text: %s", prefix, ai, ocr)
	case ocr != "":
		return fmt.Sprintf("%s, Text content: %s", prefix, ocr)
	case ai != "":
		return fmt.Sprintf("%s, %s", prefix, ai)
	}
	return prefix + ", Visual content"
}

// ErrorAlt is the alt text used when an image could not be processed at all.
func ErrorAlt(number int, position string) string {
	if position == "" {
		return fmt.Sprintf("Image (%d), Processing error", number)
	}
	return fmt.Sprintf("Image (%d), %s, Processing error", number, position)
}

var fillerPrefixes = []string{"a picture of ", "an image of "}

// CleanCaption trims a generated caption and drops filler openings such as
// "a picture of".
func CleanCaption(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range fillerPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}
