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
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLConverter handles HTML files. Embedded (data: URI) and local images
// are saved through the session; remote images keep their URL.
type HTMLConverter struct{}

// NewHTMLConverter creates a new HTMLConverter.
func NewHTMLConverter() *HTMLConverter {
	return &HTMLConverter{}
}

func (c *HTMLConverter) Accepts(info StreamInfo) bool {
	switch info.Extension {
	case ".html", ".htm":
		return true
	}
	mt := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mt, "text/html") || strings.HasPrefix(mt, "application/xhtml")
}

func (c *HTMLConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, sess *Session) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(decodeText(data, info.Charset)))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	title := extractHTMLTitle(doc)

	var baseDir string
	if info.LocalPath != "" {
		baseDir = filepath.Dir(info.LocalPath)
	}
	tokens := &imageTokens{}
	var imgs []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			imgs = append(imgs, n)
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)

	for _, img := range imgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src := attr(img, "src")
		imgData, format, ok := loadHTMLImage(src, baseDir)
		if !ok {
			continue
		}
		placeholder := sess.Image(ctx, ImageRef{
			Data:    imgData,
			Format:  format,
			Alt:     attr(img, "alt"),
			Caption: attr(img, "title"),
		})
		img.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: tokens.add(placeholder)}, img)
		img.Parent.RemoveChild(img)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render HTML: %w", err)
	}
	md, err := htmlToMarkdown(buf.String(), tokens)
	if err != nil {
		return nil, err
	}

	return &DocumentConverterResult{
		Markdown: md,
		Title:    title,
	}, nil
}

// loadHTMLImage returns the bytes behind an <img> src when it is a data URI
// or a file relative to baseDir. Remote and unreadable sources report false.
func loadHTMLImage(src, baseDir string) ([]byte, string, bool) {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "data:") {
		return decodeDataURI(src)
	}
	if src == "" || baseDir == "" {
		return nil, "", false
	}
	u, err := url.Parse(src)
	if err != nil || u.Scheme != "" || u.Host != "" || path.IsAbs(u.Path) {
		return nil, "", false
	}
	p := filepath.Join(baseDir, filepath.FromSlash(u.Path))
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", false
	}
	return data, strings.TrimPrefix(strings.ToLower(filepath.Ext(p)), "."), true
}

// decodeDataURI decodes "data:[<mediatype>][;base64],<data>".
func decodeDataURI(uri string) ([]byte, string, bool) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", false
	}
	isBase64 := strings.HasSuffix(meta, ";base64")
	mediaType, _, _ := mime.ParseMediaType(strings.TrimSuffix(meta, ";base64"))

	var data []byte
	var err error
	if isBase64 {
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
	} else {
		var s string
		s, err = url.PathUnescape(payload)
		data = []byte(s)
	}
	if err != nil {
		return nil, "", false
	}
	format := ""
	if sub, found := strings.CutPrefix(mediaType, "image/"); found {
		format = strings.TrimSuffix(sub, "+xml")
	}
	return data, format, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// extractHTMLTitle returns the text of the first <title> element.
func extractHTMLTitle(doc *html.Node) string {
	var title string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return true
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if find(ch) {
				return true
			}
		}
		return false
	}
	find(doc)
	return strings.TrimSpace(title)
}
