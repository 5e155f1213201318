// Package textstruct infers Markdown structure from unstructured text lines.
//
// Classification is line-at-a-time with one line of lookahead. Rules are tried
// in a fixed order and the first match wins, whether or not the previous line
// was code. Consecutive code lines share one fence; any other line closes it.
package textstruct

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the structural role assigned to one input line.
type Kind int

const (
	Blank Kind = iota
	Heading
	ListItem
	Code
	Paragraph
	Rule
	URL
	Email
	Fence
)

func (k Kind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Heading:
		return "heading"
	case ListItem:
		return "list-item"
	case Code:
		return "code"
	case Paragraph:
		return "paragraph"
	case Rule:
		return "rule"
	case URL:
		return "url"
	case Email:
		return "email"
	case Fence:
		return "fence"
	}
	return "unknown"
}

// Line is one classified line. Text holds the emitted Markdown for that line,
// not including any fence opening or closing it triggers.
type Line struct {
	Kind    Kind
	Text    string
	Level   int
	Ordered bool
	Indent  int
}

// maxHeadingRunes bounds the length of a line promoted by the capitalization heuristic.
const maxHeadingRunes = 80

var (
	reOrdered   = regexp.MustCompile(`^\d+\.\s+`)
	reBullet    = regexp.MustCompile(`^[-*+•]\s+`)
	reURL       = regexp.MustCompile(`^https?://`)
	reEmail     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	reRule      = regexp.MustCompile(`^[-*_]{3,}$`)
	reATX       = regexp.MustCompile(`^#{1,6}(\s|$)`)
	reBrackets  = regexp.MustCompile(`[{}()\[\]<>]`)
	reManyBreak = regexp.MustCompile(`\n{3,}`)
)

// Classify converts a block of plain text into Markdown. The result always
// ends with exactly two newlines.
func Classify(text string) string {
	return Render(ClassifyLines(text))
}

// Render joins classified lines, inserting code fences around runs of Code
// lines, collapsing blank runs and appending the trailing blank line.
func Render(lines []Line) string {
	out := make([]string, 0, len(lines)+4)
	inCode := false
	pendingBlank := 0

	for _, l := range lines {
		if l.Kind == Blank {
			pendingBlank++
			continue
		}
		if inCode && l.Kind != Code {
			out = append(out, "```")
			inCode = false
		}
		for ; pendingBlank > 0; pendingBlank-- {
			out = append(out, "")
		}
		switch l.Kind {
		case Code:
			if !inCode {
				out = append(out, "```")
				inCode = true
			}
		case Rule:
			if n := len(out); n > 0 && out[n-1] != "" {
				out = append(out, "")
			}
		}
		out = append(out, l.Text)
	}
	if inCode {
		out = append(out, "```")
	}
	for ; pendingBlank > 0; pendingBlank-- {
		out = append(out, "")
	}

	joined := reManyBreak.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
	return strings.TrimRight(joined, "\n") + "\n\n"
}

// ClassifyLines assigns a Kind to every line of text. A setext underline is
// consumed by the heading above it and reported as Blank.
func ClassifyLines(text string) []Line {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]Line, 0, len(raw))

	inFence := false
	for i := 0; i < len(raw); i++ {
		line := raw[i]
		stripped := strings.TrimSpace(line)

		if inFence {
			lines = append(lines, Line{Kind: Fence, Text: line})
			if strings.HasPrefix(stripped, "```") {
				inFence = false
			}
			continue
		}

		if stripped == "" {
			lines = append(lines, Line{Kind: Blank})
			continue
		}

		if strings.HasPrefix(stripped, "```") {
			inFence = true
			lines = append(lines, Line{Kind: Fence, Text: stripped})
			continue
		}

		next := ""
		if i+1 < len(raw) {
			next = strings.TrimSpace(raw[i+1])
		}

		if level := setextLevel(next); level > 0 {
			lines = append(lines, Line{Kind: Heading, Level: level, Text: strings.Repeat("#", level) + " " + stripped})
			raw[i+1] = ""
			continue
		}

		if reATX.MatchString(stripped) {
			lines = append(lines, Line{Kind: Heading, Level: atxLevel(stripped), Text: stripped})
			continue
		}

		if reOrdered.MatchString(stripped) {
			lines = append(lines, Line{Kind: ListItem, Ordered: true, Indent: indentOf(line), Text: stripped})
			continue
		}

		if reBullet.MatchString(stripped) {
			item := stripped
			if strings.HasPrefix(item, "•") {
				item = "- " + strings.TrimSpace(strings.TrimPrefix(item, "•"))
			}
			lines = append(lines, Line{Kind: ListItem, Indent: indentOf(line), Text: item})
			continue
		}

		if looksLikeHeading(stripped, next) {
			lines = append(lines, Line{Kind: Heading, Level: 2, Text: "## " + stripped})
			continue
		}

		if isCode(line) {
			lines = append(lines, Line{Kind: Code, Text: line})
			continue
		}

		switch {
		case reURL.MatchString(stripped):
			lines = append(lines, Line{Kind: URL, Text: "<" + stripped + ">"})
		case reEmail.MatchString(stripped):
			lines = append(lines, Line{Kind: Email, Text: "<" + stripped + ">"})
		case reRule.MatchString(stripped):
			lines = append(lines, Line{Kind: Rule, Text: "---"})
		default:
			lines = append(lines, Line{Kind: Paragraph, Text: stripped})
		}
	}
	return lines
}

// setextLevel reports 1 for an "===" underline, 2 for "---", 0 otherwise.
func setextLevel(next string) int {
	if utf8.RuneCountInString(next) < 3 {
		return 0
	}
	switch {
	case strings.Trim(next, "=") == "":
		return 1
	case strings.Trim(next, "-") == "":
		return 2
	}
	return 0
}

func looksLikeHeading(stripped, next string) bool {
	if utf8.RuneCountInString(stripped) >= maxHeadingRunes {
		return false
	}
	if !isUpper(stripped) && !isTitle(stripped) {
		return false
	}
	if strings.HasSuffix(stripped, ".") {
		return false
	}
	return next != "" && !isUpper(next)
}

// isCode treats indented lines and lines dense with code punctuation as code.
func isCode(line string) bool {
	if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
		return true
	}
	return reBrackets.MatchString(line) &&
		strings.Contains(line, "=") &&
		(strings.Contains(line, ";") || strings.Contains(line, "{"))
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func atxLevel(s string) int {
	n := 0
	for n < len(s) && s[n] == '#' {
		n++
	}
	return n
}

// isUpper reports whether s has at least one cased rune and no lowercase or
// titlecase runes.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

// isTitle reports whether every word in s starts with an uppercase rune
// followed only by lowercase ones, counting any uncased rune as a word break.
func isTitle(s string) bool {
	cased := false
	prevCased := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r), unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased = true
			cased = true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased = true
		default:
			prevCased = false
		}
	}
	return cased
}
