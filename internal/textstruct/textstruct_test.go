package textstruct

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "setext h1",
			input: "Title\n=====\nBody text",
			want:  "# Title\n\nBody text\n\n",
		},
		{
			name:  "setext h2",
			input: "Section\n-------\nbody text here",
			want:  "## Section\n\nbody text here\n\n",
		},
		{
			name:  "ordered list passes through",
			input: "  1. first\n  2. second",
			want:  "1. first\n2. second\n\n",
		},
		{
			name:  "bullet glyph normalized",
			input: "• apples\n- pears\n* plums",
			want:  "- apples\n- pears\n* plums\n\n",
		},
		{
			name:  "title case heading",
			input: "Getting Started\nthis is how you begin.",
			want:  "## Getting Started\nthis is how you begin.\n\n",
		},
		{
			name:  "uppercase heading",
			input: "OVERVIEW\nthe system converts documents.",
			want:  "## OVERVIEW\nthe system converts documents.\n\n",
		},
		{
			name:  "heading needs following text",
			input: "Getting Started\n\nbody",
			want:  "Getting Started\n\nbody\n\n",
		},
		{
			name:  "heading not followed by uppercase",
			input: "INTRO\nMORE CAPS",
			want:  "INTRO\nMORE CAPS\n\n",
		},
		{
			name:  "sentence is not a heading",
			input: "The End.\nnext line",
			want:  "The End.\nnext line\n\n",
		},
		{
			name:  "indented code fenced",
			input: "text before\n    x := 1\n    y := 2\nafter",
			want:  "text before\n```\n    x := 1\n    y := 2\n```\nafter\n\n",
		},
		{
			name:  "punctuation code fenced",
			input: "int x = f(a);\nplain words",
			want:  "```\nint x = f(a);\n```\nplain words\n\n",
		},
		{
			name:  "open fence closed at end",
			input: "intro words\n\tcall();",
			want:  "intro words\n```\n\tcall();\n```\n\n",
		},
		{
			name:  "blank inside code kept in fence",
			input: "    a = 1\n\n    b = 2\ndone",
			want:  "```\n    a = 1\n\n    b = 2\n```\ndone\n\n",
		},
		{
			name:  "list items close a code run",
			input: "    x = 1;\n    1. step one\n    • item\nafter",
			want:  "```\n    x = 1;\n```\n1. step one\n- item\nafter\n\n",
		},
		{
			name:  "url wrapped",
			input: "see\nhttps://example.com/x",
			want:  "see\n<https://example.com/x>\n\n",
		},
		{
			name:  "email wrapped",
			input: "contact\nops@example.org",
			want:  "contact\n<ops@example.org>\n\n",
		},
		{
			name:  "rule normalized",
			input: "above\n\n***\n\nbelow",
			want:  "above\n\n---\n\nbelow\n\n",
		},
		{
			name:  "rule separated from text",
			input: "above\n___",
			want:  "above\n\n---\n\n",
		},
		{
			name:  "blank runs collapsed",
			input: "one\n\n\n\n\ntwo",
			want:  "one\n\ntwo\n\n",
		},
		{
			name:  "paragraph trimmed",
			input: "   spaced out   ",
			want:  "spaced out\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			if got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifyHeadingDeterminism(t *testing.T) {
	got := Classify("Title\n=====\nBody text")
	if !strings.HasPrefix(got, "# Title\n\nBody text") {
		t.Errorf("Classify() = %q, want prefix %q", got, "# Title\n\nBody text")
	}
}

func TestClassifyIdempotent(t *testing.T) {
	inputs := []string{
		"Title\n=====\nBody text",
		"Getting Started\nthis is how you begin.\n\n    code = 1;\n    more = 2;\nafter code",
		"• one\n• two\n\nhttps://example.com\nops@example.org\n***\ntail",
		"Intro\n--------\nint x = f(a);\n\nThe End.",
	}
	for _, in := range inputs {
		once := Classify(in)
		twice := Classify(once)
		if strings.TrimSpace(once) != strings.TrimSpace(twice) {
			t.Errorf("Classify not idempotent for %q:\nfirst:  %q\nsecond: %q", in, once, twice)
		}
	}
}

func TestClassifyLinesKinds(t *testing.T) {
	lines := ClassifyLines("Head\n====\n  1. item\n    code = 1;\nplain")
	want := []Kind{Heading, Blank, ListItem, Code, Paragraph}
	if len(lines) != len(want) {
		t.Fatalf("ClassifyLines() returned %d lines, want %d", len(lines), len(want))
	}
	for i, k := range want {
		if lines[i].Kind != k {
			t.Errorf("line %d kind = %s, want %s", i, lines[i].Kind, k)
		}
	}
	if lines[0].Level != 1 {
		t.Errorf("setext level = %d, want 1", lines[0].Level)
	}
	if !lines[2].Ordered || lines[2].Indent != 2 {
		t.Errorf("list item = %+v, want ordered with indent 2", lines[2])
	}
}

func TestCaseHelpers(t *testing.T) {
	tests := []struct {
		in           string
		upper, title bool
	}{
		{"HELLO WORLD", true, false},
		{"Hello World", false, true},
		{"Hello world", false, false},
		{"# Title", false, true},
		{"123", false, false},
		{"A1 B2", true, true},
	}
	for _, tt := range tests {
		if got := isUpper(tt.in); got != tt.upper {
			t.Errorf("isUpper(%q) = %v, want %v", tt.in, got, tt.upper)
		}
		if got := isTitle(tt.in); got != tt.title {
			t.Errorf("isTitle(%q) = %v, want %v", tt.in, got, tt.title)
		}
	}
}
