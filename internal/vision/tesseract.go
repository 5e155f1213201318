package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Tesseract runs the tesseract CLI, feeding the image as PNG on stdin.
type Tesseract struct {
	Path     string
	Language string
	Timeout  time.Duration
}

// DetectTesseract reports whether the tesseract binary at path runs.
func DetectTesseract(ctx context.Context, path string) bool {
	if path == "" {
		path = "tesseract"
	}
	if _, err := exec.LookPath(path); err != nil {
		return false
	}
	cmd := exec.CommandContext(ctx, path, "--version")
	return cmd.Run() == nil
}

func (t *Tesseract) Name() string { return "tesseract" }

// Args returns the command line arguments for one recognition pass.
func (t *Tesseract) Args(mode PageSegMode) []string {
	args := []string{"stdin", "stdout", "--psm", strconv.Itoa(int(mode))}
	if t.Language != "" {
		args = append(args, "-l", t.Language)
	}
	return args
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image, mode PageSegMode) (string, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	path := t.Path
	if path == "" {
		path = "tesseract"
	}
	cmd := exec.CommandContext(ctx, path, t.Args(mode)...)
	cmd.Stdin = &in
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract psm %d: %w: %s", mode, err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}
