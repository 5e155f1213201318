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
	"io"
)

// StreamInfo holds metadata about the input being converted.
type StreamInfo struct {
	MIMEType  string
	Extension string
	Charset   string
	Filename  string
	LocalPath string
}

// DocumentKind distinguishes standalone image documents in front matter.
type DocumentKind string

const (
	KindDocument DocumentKind = ""
	KindImage    DocumentKind = "image"
)

// DocumentConverterResult holds the output of a conversion.
type DocumentConverterResult struct {
	Markdown   string
	Title      string
	Kind       DocumentKind
	Images     int
	ImageDir   string
	OutputPath string

	// ImageErrors lists image occurrences that fell back to an error
	// placeholder. The document itself converted.
	ImageErrors []*ImageError
}

// DocumentConverter is the interface all format converters implement.
type DocumentConverter interface {
	// Accepts returns true if this converter can handle the given input.
	Accepts(info StreamInfo) bool

	// Convert performs the conversion. Images found in the document are
	// resolved through sess, which is private to this one document.
	Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, sess *Session) (*DocumentConverterResult, error)
}

// Destination tells a conversion where to save extracted images. Link is the
// folder path written into Markdown image references.
type Destination struct {
	ImageDir  string
	ImageLink string
}
