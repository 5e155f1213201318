package mdmagic

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

const converterName = "MarkdownMagic"

type frontMatter struct {
	Title     string `yaml:"title"`
	Source    string `yaml:"source"`
	Converter string `yaml:"converter"`
	Type      string `yaml:"type,omitempty"`
}

// renderFrontMatter returns the YAML block that opens a converted file.
func renderFrontMatter(title, source string, kind DocumentKind) (string, error) {
	fm := frontMatter{
		Title:     title,
		Source:    source,
		Converter: converterName,
		Type:      string(kind),
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	return "---\n" + buf.String() + "---\n\n", nil
}
