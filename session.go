package mdmagic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nicholasgasior/mdmagic-go/internal/boilerplate"
	"github.com/nicholasgasior/mdmagic-go/internal/imagecache"
	"github.com/nicholasgasior/mdmagic-go/internal/textstruct"
	"github.com/nicholasgasior/mdmagic-go/internal/vision"
)

// Session is the per-document conversion state: its own image cache, its
// image occurrence counter and a logger tagged with the document.
// Sessions are never shared between documents.
type Session struct {
	ID string

	cache       *imagecache.Cache
	vision      *vision.Engine
	logger      *slog.Logger
	occurrences int
	imageErrs   []*ImageError
}

// ImageRef is one image occurrence found by an adapter. Position defaults to
// "pos{N}" where N is the occurrence number.
type ImageRef struct {
	Data     []byte
	Format   string
	Position string
	Alt      string
	Caption  string
}

func newSession(v *vision.Engine, logger *slog.Logger, info StreamInfo, dest Destination) *Session {
	id := uuid.NewString()
	logger = logger.With("session", id, "document", info.Filename)
	cache := imagecache.New(v, imagecache.WithLogger(logger))
	cache.Reset(dest.ImageDir, dest.ImageLink)
	return &Session{
		ID:     id,
		cache:  cache,
		vision: v,
		logger: logger,
	}
}

// Logger returns the document-scoped logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Capabilities reports which image backends are active.
func (s *Session) Capabilities() vision.Capabilities { return s.vision.Capabilities() }

// Images returns the number of unique images saved so far.
func (s *Session) Images() int { return s.cache.Len() }

// Image resolves one occurrence and returns its Markdown placeholder.
func (s *Session) Image(ctx context.Context, ref ImageRef) string {
	return s.ImageDetail(ctx, ref).String()
}

// ImageDetail resolves one occurrence. Failures are logged and the fallback
// placeholder is returned; they never abort the document.
func (s *Session) ImageDetail(ctx context.Context, ref ImageRef) imagecache.Placeholder {
	s.occurrences++
	pos := ref.Position
	if pos == "" {
		pos = fmt.Sprintf("pos%d", s.occurrences)
	}
	p, err := s.cache.Resolve(ctx, imagecache.Record{
		Data:            ref.Data,
		Format:          ref.Format,
		Position:        pos,
		Occurrence:      s.occurrences,
		ExistingAlt:     ref.Alt,
		ExistingCaption: ref.Caption,
	})
	if err != nil {
		s.logger.Warn("image fallback", "position", pos, "error", err)
		s.imageErrs = append(s.imageErrs, &ImageError{Occurrence: s.occurrences, Position: pos, Err: err})
	}
	return p
}

// ImageErrors returns the soft failures recorded so far, in document order.
func (s *Session) ImageErrors() []*ImageError { return s.imageErrs }

// discard removes the images this session saved. Called when its converter
// fails so a later attempt starts from a clean folder.
func (s *Session) discard() {
	if s.cache.Len() == 0 {
		return
	}
	if err := s.cache.Discard(); err != nil {
		s.logger.Warn("could not remove images of failed attempt", "error", err)
	}
}

// Text infers Markdown structure for one unit of plain text.
func (s *Session) Text(text string) string {
	return textstruct.Classify(text)
}

// Pages strips recurring headers, footers and copyright lines from a
// paginated document, then infers structure page by page.
func (s *Session) Pages(pages []string) []string {
	trimmed := make([]string, len(pages))
	for i, page := range pages {
		trimmed[i] = strings.Trim(strings.ReplaceAll(page, "\r\n", "\n"), "\n")
	}
	pages = trimmed
	sets := boilerplate.Detect(pages)
	if len(sets.Headers)+len(sets.Footers) > 0 {
		s.logger.Debug("boilerplate detected", "headers", len(sets.Headers), "footers", len(sets.Footers))
	}
	out := make([]string, len(pages))
	for i, page := range pages {
		cleaned := boilerplate.Strip(page, sets)
		if strings.TrimSpace(cleaned) == "" {
			continue
		}
		out[i] = textstruct.Classify(cleaned)
	}
	return out
}
