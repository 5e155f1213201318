// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package mdmagic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/nicholasgasior/mdmagic-go/internal/vision"
)

const (
	// PrioritySpecific is for format-specific converters (PDF, DOCX, etc.).
	PrioritySpecific = 0.0
	// PriorityGeneric is for fallback converters (PlainText, HTML).
	PriorityGeneric = 10.0

	defaultImageSuffix = "_images"
)

type registeredConverter struct {
	converter DocumentConverter
	priority  float64
	name      string
}

// Engine is the document-to-markdown conversion engine. An Engine may be
// reused for many documents; every conversion gets its own Session.
type Engine struct {
	converters  []registeredConverter
	vision      *vision.Engine
	logger      *slog.Logger
	frontMatter bool
	imageSuffix string
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		frontMatter: true,
		imageSuffix: defaultImageSuffix,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.vision == nil {
		e.vision = vision.New(vision.WithLogger(e.logger))
	}
	e.enableBuiltins()
	return e
}

// Capabilities reports which image backends the engine uses.
func (e *Engine) Capabilities() vision.Capabilities {
	return e.vision.Capabilities()
}

// RegisterConverter adds a custom converter with the given priority.
// Lower priority values are tried first.
func (e *Engine) RegisterConverter(name string, c DocumentConverter, priority float64) {
	e.converters = append(e.converters, registeredConverter{
		converter: c,
		priority:  priority,
		name:      name,
	})
	sort.SliceStable(e.converters, func(i, j int) bool {
		return e.converters[i].priority < e.converters[j].priority
	})
}

// ConvertFile converts a local file and writes the Markdown to output. An
// empty output means the input path with a .md extension. Images are saved
// in a folder named after the output file plus the image folder suffix.
func (e *Engine) ConvertFile(ctx context.Context, input, output string) (*DocumentConverterResult, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".md"
	}
	outDir := filepath.Dir(output)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	folder := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output)) + e.imageSuffix
	dest := Destination{
		ImageDir:  filepath.Join(outDir, folder),
		ImageLink: folder,
	}

	ext := strings.ToLower(filepath.Ext(input))
	info := StreamInfo{
		Extension: ext,
		Filename:  filepath.Base(input),
		LocalPath: input,
	}
	info.MIMEType = detectMIMEType(f, ext)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}

	result, err := e.ConvertReader(ctx, f, info, dest)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	if e.frontMatter {
		fm, err := renderFrontMatter(result.Title, info.Filename, result.Kind)
		if err != nil {
			return nil, err
		}
		b.WriteString(fm)
	}
	b.WriteString(result.Markdown)
	b.WriteString("\n")
	if err := writeFileAtomic(output, []byte(b.String())); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	result.OutputPath = output
	if result.Images > 0 {
		result.ImageDir = dest.ImageDir
	}
	e.logger.Info("converted", "input", input, "output", output, "images", result.Images)
	return result, nil
}

// ConvertReader converts a stream to markdown using the provided StreamInfo.
// Images are saved under dest.
func (e *Engine) ConvertReader(ctx context.Context, r io.ReadSeeker, info StreamInfo, dest Destination) (*DocumentConverterResult, error) {
	var failedAttempts []FailedConversionAttempt

	for _, rc := range e.converters {
		if !rc.converter.Accepts(info) {
			continue
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek: %w", err)
		}

		sess := newSession(e.vision, e.logger, info, dest)
		sess.logger.Debug("converting", "converter", rc.name)
		result, err := rc.converter.Convert(ctx, r, info, sess)
		if err != nil {
			sess.discard()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failedAttempts = append(failedAttempts, FailedConversionAttempt{
				Converter: rc.name,
				Err:       err,
			})
			continue
		}

		result.Markdown = normalizeOutput(result.Markdown)
		result.Images = sess.Images()
		result.ImageErrors = sess.ImageErrors()
		if result.Title == "" {
			result.Title = strings.TrimSuffix(info.Filename, filepath.Ext(info.Filename))
		}
		return result, nil
	}

	if len(failedAttempts) > 0 {
		return nil, &ConversionError{Filename: info.Filename, Attempts: failedAttempts}
	}

	return nil, &UnsupportedFormatError{
		Filename:  info.Filename,
		Extension: info.Extension,
		MIMEType:  info.MIMEType,
	}
}

// enableBuiltins registers all built-in converters.
func (e *Engine) enableBuiltins() {
	e.RegisterConverter("docx", NewDocxConverter(), PrioritySpecific)
	e.RegisterConverter("odt", NewOdtConverter(), PrioritySpecific)
	e.RegisterConverter("rtf", NewRtfConverter(), PrioritySpecific)
	e.RegisterConverter("xlsx", NewXlsxConverter(), PrioritySpecific)
	e.RegisterConverter("xls", NewXlsConverter(), PrioritySpecific)
	e.RegisterConverter("pdf", NewPdfConverter(), PrioritySpecific)
	e.RegisterConverter("image", NewImageConverter(), PrioritySpecific)

	e.RegisterConverter("html", NewHTMLConverter(), PriorityGeneric)
	e.RegisterConverter("plaintext", NewPlainTextConverter(), PriorityGeneric)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// detectMIMEType detects the MIME type from content and extension.
func detectMIMEType(r io.ReadSeeker, ext string) string {
	mtype, err := mimetype.DetectReader(r)
	if err == nil && mtype.String() != "application/octet-stream" {
		// Office zips are often sniffed as plain application/zip.
		if mtype.Is("application/zip") {
			if m := mimeFromExtension(ext); m != "application/octet-stream" {
				return m
			}
		}
		return mtype.String()
	}
	return mimeFromExtension(ext)
}

// mimeFromExtension returns a MIME type for the extensions we convert.
func mimeFromExtension(ext string) string {
	extMap := map[string]string{
		".pdf":  "application/pdf",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".odt":  "application/vnd.oasis.opendocument.text",
		".rtf":  "application/rtf",
		".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		".xls":  "application/vnd.ms-excel",
		".html": "text/html",
		".htm":  "text/html",
		".txt":  "text/plain",
		".text": "text/plain",
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".bmp":  "image/bmp",
		".tif":  "image/tiff",
		".tiff": "image/tiff",
		".webp": "image/webp",
	}
	if m, ok := extMap[ext]; ok {
		return m
	}
	return "application/octet-stream"
}
