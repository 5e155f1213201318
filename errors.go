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
	"errors"
	"fmt"
	"strings"

	"github.com/nicholasgasior/mdmagic-go/internal/imagecache"
)

// Document-level failures abort one conversion. Image-level failures never
// do: they are reported as ImageError values on the result while the
// placeholder for that occurrence carries "Processing error" or the path the
// image would have had.

// UnsupportedFormatError means no registered converter accepts the input.
type UnsupportedFormatError struct {
	Filename  string
	Extension string
	MIMEType  string
}

func (e *UnsupportedFormatError) Error() string {
	var detail []string
	if e.Extension != "" {
		detail = append(detail, "extension "+e.Extension)
	}
	if e.MIMEType != "" {
		detail = append(detail, "type "+e.MIMEType)
	}
	msg := "no converter for " + orUnnamed(e.Filename)
	if len(detail) > 0 {
		msg += " (" + strings.Join(detail, ", ") + ")"
	}
	return msg
}

// FailedConversionAttempt is one converter that accepted the input and then
// failed on it.
type FailedConversionAttempt struct {
	Converter string
	Err       error
}

// ConversionError means every converter that accepted the input failed.
// Images saved by those attempts have already been removed.
type ConversionError struct {
	Filename string
	Attempts []FailedConversionAttempt
}

func (e *ConversionError) Error() string {
	name := orUnnamed(e.Filename)
	switch len(e.Attempts) {
	case 0:
		return "could not convert " + name
	case 1:
		return fmt.Sprintf("could not convert %s: %s: %v", name, e.Attempts[0].Converter, e.Attempts[0].Err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "could not convert %s with any of %d converters:", name, len(e.Attempts))
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n  %s: %v", a.Converter, a.Err)
	}
	return b.String()
}

// Unwrap exposes every attempt's cause to errors.Is and errors.As.
func (e *ConversionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// ImageError is a soft failure on one image occurrence.
type ImageError struct {
	Occurrence int
	Position   string
	Err        error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %d at %s: %v", e.Occurrence, e.Position, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// IsUnsupportedFormat reports whether err is an UnsupportedFormatError.
func IsUnsupportedFormat(err error) bool {
	var target *UnsupportedFormatError
	return errors.As(err, &target)
}

// IsConversionError reports whether err is a ConversionError.
func IsConversionError(err error) bool {
	var target *ConversionError
	return errors.As(err, &target)
}

// IsPersistFailure reports whether an image was described but its file could
// not be written: the image folder is missing, unwritable or the write failed.
func IsPersistFailure(err error) bool {
	var target *imagecache.PersistError
	return errors.As(err, &target)
}

// IsDescribeFailure reports whether image bytes were empty or undecodable.
func IsDescribeFailure(err error) bool {
	var target *imagecache.DescribeError
	return errors.As(err, &target)
}

func orUnnamed(name string) string {
	if name == "" {
		return "input"
	}
	return name
}
