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

const docxMainPart = "word/document.xml"

// DocxConverter handles DOCX files.
type DocxConverter struct{}

// NewDocxConverter creates a new DocxConverter.
func NewDocxConverter() *DocxConverter {
	return &DocxConverter{}
}

func (c *DocxConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".docx" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
}

func (c *DocxConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, sess *Session) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read DOCX: %w", err)
	}
	pkg, err := ooxml.Open(data)
	if err != nil {
		return nil, fmt.Errorf("open DOCX ZIP: %w", err)
	}
	body, err := pkg.Read(docxMainPart)
	if err != nil {
		return nil, fmt.Errorf("read document.xml: %w", err)
	}
	rels, err := pkg.Relationships(docxMainPart)
	if err != nil {
		return nil, err
	}

	w := &docxWalker{
		ctx:      ctx,
		sess:     sess,
		pkg:      pkg,
		rels:     rels,
		headings: docxHeadingStyles(pkg),
		lists:    docxListFormats(pkg),
		tokens:   &imageTokens{},
	}
	if err := w.walk(body); err != nil {
		return nil, err
	}

	md, err := htmlToMarkdown(w.out.String(), w.tokens)
	if err != nil {
		return nil, err
	}
	return &DocumentConverterResult{
		Markdown: md,
		Title:    coreTitle(pkg, "docProps/core.xml"),
	}, nil
}

type docxWalker struct {
	ctx      context.Context
	sess     *Session
	pkg      *ooxml.Package
	rels     map[string]ooxml.Relationship
	headings map[string]int
	lists    map[string]map[int]string
	tokens   *imageTokens

	out  htmlBuilder
	para strings.Builder

	style string
	numID string
	ilvl  int

	inRun                bool
	bold, italic, strike bool
	href                 string

	tableDepth int
	rows       [][]string
	row        []string
	cell       []string
}

func (w *docxWalker) walk(body []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := w.start(dec, t); err != nil {
				return err
			}
		case xml.EndElement:
			w.end(t)
		}
	}
}

func (w *docxWalker) start(dec *xml.Decoder, t xml.StartElement) error {
	switch t.Name.Local {
	case "p":
		w.para.Reset()
		w.style, w.numID, w.ilvl = "", "", 0
	case "pStyle":
		w.style = xmlAttr(t, "val")
	case "numId":
		w.numID = xmlAttr(t, "val")
	case "ilvl":
		w.ilvl, _ = strconv.Atoi(xmlAttr(t, "val"))
	case "r":
		w.inRun = true
		w.bold, w.italic, w.strike = false, false, false
	case "b", "i", "strike":
		if !w.inRun {
			break
		}
		on := xmlAttr(t, "val") != "0" && xmlAttr(t, "val") != "false"
		switch t.Name.Local {
		case "b":
			w.bold = on
		case "i":
			w.italic = on
		default:
			w.strike = on
		}
	case "t":
		var text string
		if err := dec.DecodeElement(&text, &t); err != nil {
			return fmt.Errorf("parse document.xml: %w", err)
		}
		w.para.WriteString(wrapInline(html.EscapeString(text), w.bold, w.italic, w.strike, w.href))
	case "tab":
		if w.inRun {
			w.para.WriteString("\t")
		}
	case "br", "cr":
		if w.inRun {
			w.para.WriteString("<br/>")
		}
	case "hyperlink":
		if rel, ok := w.rels[xmlAttr(t, "id")]; ok && rel.External() {
			w.href = rel.Target
		} else if anchor := xmlAttr(t, "anchor"); anchor != "" {
			w.href = "#" + anchor
		}
	case "tbl":
		w.tableDepth++
		if w.tableDepth == 1 {
			w.rows = nil
		}
	case "tr":
		if w.tableDepth == 1 {
			w.row = nil
		}
	case "tc":
		if w.tableDepth == 1 {
			w.cell = nil
		}
	case "drawing", "pict":
		return w.image(dec)
	}
	return nil
}

func (w *docxWalker) end(t xml.EndElement) {
	switch t.Name.Local {
	case "r":
		w.inRun = false
	case "hyperlink":
		w.href = ""
	case "p":
		w.endParagraph()
	case "tc":
		if w.tableDepth == 1 {
			w.row = append(w.row, strings.Join(w.cell, "<br/>"))
		}
	case "tr":
		if w.tableDepth == 1 {
			w.rows = append(w.rows, w.row)
		}
	case "tbl":
		if w.tableDepth == 1 {
			w.out.table(w.rows)
		}
		w.tableDepth--
	}
}

func (w *docxWalker) endParagraph() {
	inner := strings.TrimSpace(w.para.String())
	w.para.Reset()
	if w.tableDepth > 0 {
		if inner != "" {
			w.cell = append(w.cell, inner)
		}
		return
	}
	if level := w.headings[w.style]; level > 0 && inner != "" {
		w.out.heading(level, inner)
		return
	}
	if w.numID != "" && w.numID != "0" && inner != "" {
		ordered := false
		if levels, ok := w.lists[w.numID]; ok {
			f := levels[w.ilvl]
			ordered = f != "" && f != "bullet" && f != "none"
		}
		w.out.listItem(ordered, inner)
		return
	}
	w.out.paragraph(inner)
}

// image consumes a drawing or VML pict element and writes the placeholder
// of the picture it references.
func (w *docxWalker) image(dec *xml.Decoder) error {
	var relID, alt, caption string
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "docPr":
				alt, caption = xmlAttr(t, "descr"), xmlAttr(t, "title")
			case "blip":
				relID = xmlAttr(t, "embed")
			case "imagedata":
				relID = xmlAttr(t, "id")
				if caption == "" {
					caption = xmlAttr(t, "title")
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	rel, ok := w.rels[relID]
	if !ok || rel.External() {
		return nil
	}
	target := ooxml.ResolveTarget(docxMainPart, rel.Target)
	data, err := w.pkg.Read(target)
	if err != nil {
		w.sess.Logger().Warn("docx image missing", "target", target, "error", err)
		return nil
	}
	placeholder := w.sess.Image(w.ctx, ImageRef{
		Data:    data,
		Format:  strings.TrimPrefix(strings.ToLower(path.Ext(target)), "."),
		Alt:     alt,
		Caption: caption,
	})
	w.para.WriteString(w.tokens.add(placeholder))
	return nil
}

// docxHeadingStyles maps style ids to heading levels using the style names
// in styles.xml ("heading 1".."heading 6", "Title").
func docxHeadingStyles(pkg *ooxml.Package) map[string]int {
	levels := make(map[string]int)
	for i := 1; i <= 6; i++ {
		levels["Heading"+strconv.Itoa(i)] = i
	}
	levels["Title"] = 1

	data, err := pkg.Read("word/styles.xml")
	if err != nil {
		return levels
	}
	var styles struct {
		Styles []struct {
			ID   string `xml:"styleId,attr"`
			Name struct {
				Val string `xml:"val,attr"`
			} `xml:"name"`
		} `xml:"style"`
	}
	if err := xml.Unmarshal(data, &styles); err != nil {
		return levels
	}
	for _, s := range styles.Styles {
		name := strings.ToLower(strings.TrimSpace(s.Name.Val))
		if name == "title" {
			levels[s.ID] = 1
			continue
		}
		if n, ok := strings.CutPrefix(name, "heading "); ok {
			if lvl, err := strconv.Atoi(n); err == nil && lvl >= 1 && lvl <= 6 {
				levels[s.ID] = lvl
			}
		}
	}
	return levels
}

// docxListFormats maps numId to the numFmt of each list level.
func docxListFormats(pkg *ooxml.Package) map[string]map[int]string {
	out := make(map[string]map[int]string)
	data, err := pkg.Read("word/numbering.xml")
	if err != nil {
		return out
	}
	var numbering struct {
		Abstract []struct {
			ID     string `xml:"abstractNumId,attr"`
			Levels []struct {
				Ilvl   int `xml:"ilvl,attr"`
				NumFmt struct {
					Val string `xml:"val,attr"`
				} `xml:"numFmt"`
			} `xml:"lvl"`
		} `xml:"abstractNum"`
		Nums []struct {
			ID       string `xml:"numId,attr"`
			Abstract struct {
				Val string `xml:"val,attr"`
			} `xml:"abstractNumId"`
		} `xml:"num"`
	}
	if err := xml.Unmarshal(data, &numbering); err != nil {
		return out
	}
	abstract := make(map[string]map[int]string)
	for _, a := range numbering.Abstract {
		levels := make(map[int]string)
		for _, l := range a.Levels {
			levels[l.Ilvl] = l.NumFmt.Val
		}
		abstract[a.ID] = levels
	}
	for _, n := range numbering.Nums {
		if levels, ok := abstract[n.Abstract.Val]; ok {
			out[n.ID] = levels
		}
	}
	return out
}

// coreTitle reads dc:title from a package metadata part.
func coreTitle(pkg *ooxml.Package, part string) string {
	data, err := pkg.Read(part)
	if err != nil {
		return ""
	}
	var meta struct {
		Title string `xml:"title"`
		Meta  struct {
			Title string `xml:"title"`
		} `xml:"meta"`
	}
	if err := xml.Unmarshal(data, &meta); err != nil {
		return ""
	}
	if t := strings.TrimSpace(meta.Title); t != "" {
		return t
	}
	return strings.TrimSpace(meta.Meta.Title)
}

func xmlAttr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
