package mdmagic

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// htmlPolicy is safe for concurrent use once built.
var htmlPolicy = bluemonday.UGCPolicy()

// imageTokens stands in for image placeholders while a document passes
// through HTML, so the sanitizer and the Markdown converter never rewrite
// the alt text or the link.
type imageTokens struct {
	values []string
}

func (t *imageTokens) add(placeholder string) string {
	t.values = append(t.values, placeholder)
	return t.token(len(t.values) - 1)
}

func (t *imageTokens) token(i int) string {
	return fmt.Sprintf("MDMAGICIMAGE%dX", i)
}

func (t *imageTokens) expand(md string) string {
	if t == nil {
		return md
	}
	// Replace from the end so MDMAGICIMAGE1X never matches inside MDMAGICIMAGE11X.
	for i := len(t.values) - 1; i >= 0; i-- {
		md = strings.ReplaceAll(md, t.token(i), t.values[i])
	}
	return md
}

// htmlToMarkdown sanitizes htmlStr and converts it to Markdown, then puts
// the image placeholders back.
func htmlToMarkdown(htmlStr string, tokens *imageTokens) (string, error) {
	md, err := convertHTMLToMarkdown(htmlPolicy.Sanitize(htmlStr))
	if err != nil {
		return "", fmt.Errorf("convert HTML to markdown: %w", err)
	}
	return tokens.expand(md), nil
}

// convertHTMLToMarkdown converts HTML to markdown using html-to-markdown.
func convertHTMLToMarkdown(htmlStr string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle("atx"),
			),
			table.NewTablePlugin(),
		),
	)
	return conv.ConvertString(htmlStr)
}

// htmlBuilder assembles the intermediate HTML for the DOCX and ODT
// adapters. Consecutive list items share one list element.
type htmlBuilder struct {
	b    strings.Builder
	list string
}

func (h *htmlBuilder) closeList() {
	if h.list != "" {
		h.b.WriteString("</" + h.list + ">\n")
		h.list = ""
	}
}

func (h *htmlBuilder) heading(level int, inner string) {
	h.closeList()
	level = min(max(level, 1), 6)
	fmt.Fprintf(&h.b, "<h%d>%s</h%d>\n", level, inner, level)
}

func (h *htmlBuilder) paragraph(inner string) {
	h.closeList()
	if strings.TrimSpace(inner) == "" {
		return
	}
	h.b.WriteString("<p>" + inner + "</p>\n")
}

func (h *htmlBuilder) listItem(ordered bool, inner string) {
	tag := "ul"
	if ordered {
		tag = "ol"
	}
	if h.list != tag {
		h.closeList()
		h.b.WriteString("<" + tag + ">\n")
		h.list = tag
	}
	h.b.WriteString("<li>" + inner + "</li>\n")
}

// table writes rows with the first row as the header.
func (h *htmlBuilder) table(rows [][]string) {
	h.closeList()
	if len(rows) == 0 {
		return
	}
	h.b.WriteString("<table>\n")
	for i, row := range rows {
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		h.b.WriteString("<tr>")
		for _, cell := range row {
			h.b.WriteString("<" + tag + ">" + cell + "</" + tag + ">")
		}
		h.b.WriteString("</tr>\n")
	}
	h.b.WriteString("</table>\n")
}

func (h *htmlBuilder) String() string {
	h.closeList()
	return "<html><body>\n" + h.b.String() + "</body></html>"
}

// wrapInline applies run formatting to already escaped text.
func wrapInline(text string, bold, italic, strike bool, href string) string {
	if text == "" {
		return ""
	}
	if bold {
		text = "<strong>" + text + "</strong>"
	}
	if italic {
		text = "<em>" + text + "</em>"
	}
	if strike {
		text = "<del>" + text + "</del>"
	}
	if href != "" {
		text = `<a href="` + html.EscapeString(href) + `">` + text + "</a>"
	}
	return text
}
