package mdmagic

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/nicholasgasior/mdmagic-go/internal/ooxml"
)

// OdtConverter handles OpenDocument text files.
type OdtConverter struct{}

// NewOdtConverter creates a new OdtConverter.
func NewOdtConverter() *OdtConverter {
	return &OdtConverter{}
}

func (c *OdtConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".odt" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(info.MIMEType), "application/vnd.oasis.opendocument.text")
}

func (c *OdtConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, sess *Session) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read ODT: %w", err)
	}
	pkg, err := ooxml.Open(data)
	if err != nil {
		return nil, fmt.Errorf("open ODT ZIP: %w", err)
	}
	content, err := pkg.Read("content.xml")
	if err != nil {
		return nil, fmt.Errorf("read content.xml: %w", err)
	}

	w := &odtWalker{
		ctx:          ctx,
		sess:         sess,
		pkg:          pkg,
		orderedLists: make(map[string]bool),
		tokens:       &imageTokens{},
	}
	if err := w.walk(content); err != nil {
		return nil, err
	}

	md, err := htmlToMarkdown(w.out.String(), w.tokens)
	if err != nil {
		return nil, err
	}
	return &DocumentConverterResult{
		Markdown: md,
		Title:    coreTitle(pkg, "meta.xml"),
	}, nil
}

// odtBlock is a paragraph or heading being collected.
type odtBlock struct {
	heading int
	text    strings.Builder
}

type odtWalker struct {
	ctx    context.Context
	sess   *Session
	pkg    *ooxml.Package
	tokens *imageTokens

	out htmlBuilder

	// list style name -> numbered at level 1
	orderedLists map[string]bool
	listStyle    string

	blocks    []*odtBlock
	lists     []bool
	listDepth int
	href      string

	tableDepth int
	rows       [][]string
	row        []string
	cell       []string
}

func (w *odtWalker) walk(content []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(content))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse content.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := w.start(dec, t); err != nil {
				return err
			}
		case xml.CharData:
			if b := w.current(); b != nil {
				b.text.WriteString(html.EscapeString(string(t)))
			}
		case xml.EndElement:
			w.end(t)
		}
	}
}

func (w *odtWalker) current() *odtBlock {
	if len(w.blocks) == 0 {
		return nil
	}
	return w.blocks[len(w.blocks)-1]
}

func (w *odtWalker) start(dec *xml.Decoder, t xml.StartElement) error {
	switch t.Name.Local {
	case "list-style":
		w.listStyle = xmlAttr(t, "name")
	case "list-level-style-number":
		if xmlAttr(t, "level") == "1" && w.listStyle != "" {
			w.orderedLists[w.listStyle] = true
		}
	case "list":
		ordered := w.orderedLists[xmlAttr(t, "style-name")]
		if len(w.lists) > 0 && xmlAttr(t, "style-name") == "" {
			ordered = w.lists[len(w.lists)-1]
		}
		w.lists = append(w.lists, ordered)
	case "h":
		level, _ := strconv.Atoi(xmlAttr(t, "outline-level"))
		w.blocks = append(w.blocks, &odtBlock{heading: max(level, 1)})
	case "p":
		w.blocks = append(w.blocks, &odtBlock{})
	case "s":
		if b := w.current(); b != nil {
			n, err := strconv.Atoi(xmlAttr(t, "c"))
			if err != nil || n < 1 {
				n = 1
			}
			b.text.WriteString(strings.Repeat(" ", n))
		}
	case "tab":
		if b := w.current(); b != nil {
			b.text.WriteString("\t")
		}
	case "line-break":
		if b := w.current(); b != nil {
			b.text.WriteString("<br/>")
		}
	case "a":
		if b := w.current(); b != nil {
			w.href = xmlAttr(t, "href")
			b.text.WriteString(`<a href="` + html.EscapeString(w.href) + `">`)
		}
	case "note":
		return dec.Skip()
	case "table":
		w.tableDepth++
		if w.tableDepth == 1 {
			w.rows = nil
		}
	case "table-row":
		if w.tableDepth == 1 {
			w.row = nil
		}
	case "table-cell":
		if w.tableDepth == 1 {
			w.cell = nil
		}
	case "frame":
		return w.frame(dec)
	}
	return nil
}

func (w *odtWalker) end(t xml.EndElement) {
	switch t.Name.Local {
	case "list-style":
		w.listStyle = ""
	case "list":
		if len(w.lists) > 0 {
			w.lists = w.lists[:len(w.lists)-1]
		}
	case "a":
		if b := w.current(); b != nil && w.href != "" {
			b.text.WriteString("</a>")
		}
		w.href = ""
	case "h", "p":
		w.endBlock()
	case "table-cell":
		if w.tableDepth == 1 {
			w.row = append(w.row, strings.Join(w.cell, "<br/>"))
		}
	case "table-row":
		if w.tableDepth == 1 {
			w.rows = append(w.rows, w.row)
		}
	case "table":
		if w.tableDepth == 1 {
			w.out.table(w.rows)
		}
		w.tableDepth--
	}
}

func (w *odtWalker) endBlock() {
	b := w.current()
	if b == nil {
		return
	}
	w.blocks = w.blocks[:len(w.blocks)-1]
	inner := strings.TrimSpace(b.text.String())
	if parent := w.current(); parent != nil {
		// Frames anchored in a paragraph contain their own paragraphs.
		if inner != "" {
			parent.text.WriteString(" " + inner)
		}
		return
	}
	switch {
	case w.tableDepth > 0:
		if inner != "" {
			w.cell = append(w.cell, inner)
		}
	case b.heading > 0:
		if inner != "" {
			w.out.heading(b.heading, inner)
		}
	case len(w.lists) > 0:
		if inner != "" {
			w.out.listItem(w.lists[len(w.lists)-1], inner)
		}
	default:
		w.out.paragraph(inner)
	}
}

// frame consumes a draw:frame and writes the placeholder of its image.
// svg:title is the author's alt text and svg:desc the caption.
func (w *odtWalker) frame(dec *xml.Decoder) error {
	var href, title, desc string
	var field *string
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse content.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "image":
				if href == "" {
					href = xmlAttr(t, "href")
				}
			case "title":
				field = &title
			case "desc":
				field = &desc
			}
		case xml.CharData:
			if field != nil {
				*field += string(t)
			}
		case xml.EndElement:
			depth--
			field = nil
		}
	}

	if href == "" || strings.Contains(href, "://") {
		return nil
	}
	target := strings.TrimPrefix(href, "./")
	data, err := w.pkg.Read(target)
	if err != nil {
		w.sess.Logger().Warn("odt image missing", "target", target, "error", err)
		return nil
	}
	placeholder := w.sess.Image(w.ctx, ImageRef{
		Data:    data,
		Format:  strings.TrimPrefix(strings.ToLower(path.Ext(target)), "."),
		Alt:     strings.TrimSpace(title),
		Caption: strings.TrimSpace(desc),
	})
	token := w.tokens.add(placeholder)
	if b := w.current(); b != nil {
		b.text.WriteString(token)
	} else {
		w.out.paragraph(token)
	}
	return nil
}
