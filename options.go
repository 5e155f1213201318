package mdmagic

import (
	"log/slog"

	"github.com/nicholasgasior/mdmagic-go/internal/vision"
)

// Option configures an Engine.
type Option func(*Engine)

// WithVision sets the image description engine. Without it images get
// position-only alt text.
func WithVision(v *vision.Engine) Option {
	return func(e *Engine) {
		e.vision = v
	}
}

// WithLogger sets the logger used for the engine and every session.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithFrontMatter toggles the YAML front matter block written by ConvertFile
// (default: true).
func WithFrontMatter(enabled bool) Option {
	return func(e *Engine) {
		e.frontMatter = enabled
	}
}

// WithImageFolderSuffix sets the suffix appended to the output base name to
// form the image folder (default: "_images").
func WithImageFolderSuffix(suffix string) Option {
	return func(e *Engine) {
		e.imageSuffix = suffix
	}
}
