package rtf

import (
	"testing"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

func codepages(cp int) encoding.Encoding {
	switch cp {
	case 1251:
		return charmap.Windows1251
	case 1252:
		return charmap.Windows1252
	}
	return nil
}

func TestToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "paragraphs",
			in:   `{\rtf1\ansi\deff0 {\fonttbl {\f0 Times New Roman;}}\f0\fs24 Hello World\par Second line\par}`,
			want: "Hello World\nSecond line\n",
		},
		{
			name: "hex escapes in code page",
			in:   `{\rtf1\ansi\ansicpg1252 caf\'e9\par}`,
			want: "café\n",
		},
		{
			name: "cyrillic code page",
			in:   `{\rtf1\ansi\ansicpg1251 \'cf\'f0\'e8\'e2\'e5\'f2\par}`,
			want: "Привет\n",
		},
		{
			name: "unicode with fallback skipped",
			in:   `{\rtf1\uc1 A\u8212?B\par}`,
			want: "A\u2014B\n",
		},
		{
			name: "negative unicode",
			in:   `{\rtf1 \u-3913?\par}`,
			want: "\uf0b7\n",
		},
		{
			name: "ignorable destination skipped",
			in:   `{\rtf1 {\*\generator Riched20;}{\info{\author X}}Body\tab text\par}`,
			want: "Body\ttext\n",
		},
		{
			name: "escaped braces",
			in:   `{\rtf1 a \{b\} c\\d\par}`,
			want: "a {b} c\\d\n",
		},
		{
			name: "picture ignored",
			in:   `{\rtf1 before{\pict\pngblip 89504e47}after\par}`,
			want: "beforeafter\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToText(tt.in, codepages)
			if got != tt.want {
				t.Errorf("ToText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
