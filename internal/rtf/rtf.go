// Package rtf extracts plain text from RTF documents.
package rtf

import (
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// destinations whose contents are never document text.
var skipDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "object": true, "header": true, "footer": true,
	"headerl": true, "headerr": true, "footerl": true, "footerr": true,
	"listtable": true, "listoverridetable": true, "rsidtbl": true,
	"generator": true, "themedata": true, "colorschememapping": true,
	"latentstyles": true, "datastore": true, "xmlnstbl": true,
	"fldinst": true, "filetbl": true, "revtbl": true,
}

type group struct {
	skip   bool
	ucSkip int
}

// ToText converts RTF source to plain text. Paragraph marks become newlines,
// \'hh escapes are decoded in the document's ANSI code page and \uN escapes
// as UTF-16 code units. Unknown destinations marked with \* are skipped.
func ToText(src string, codepage func(int) encoding.Encoding) string {
	var out strings.Builder
	var pendingBytes []byte
	var surrogate rune

	dec := encoding.Encoding(charmap.Windows1252)
	stack := []group{{ucSkip: 1}}
	cur := func() *group { return &stack[len(stack)-1] }
	skipChars := 0

	flushBytes := func() {
		if len(pendingBytes) == 0 {
			return
		}
		if b, err := dec.NewDecoder().Bytes(pendingBytes); err == nil {
			out.Write(b)
		}
		pendingBytes = pendingBytes[:0]
	}
	emit := func(s string) {
		if cur().skip {
			return
		}
		flushBytes()
		out.WriteString(s)
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch c {
		case '{':
			flushBytes()
			stack = append(stack, *cur())
			i++
			continue
		case '}':
			flushBytes()
			skipChars = 0
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			i++
			continue
		case '\r', '\n':
			i++
			continue
		case '\\':
		default:
			if skipChars > 0 {
				skipChars--
			} else {
				emit(string(c))
			}
			i++
			continue
		}

		// Control sequence.
		if i+1 >= len(src) {
			break
		}
		next := src[i+1]
		switch {
		case next == '\\' || next == '{' || next == '}':
			if skipChars > 0 {
				skipChars--
			} else {
				emit(string(next))
			}
			i += 2
			continue
		case next == '\'':
			if i+4 <= len(src) {
				if v, err := strconv.ParseUint(src[i+2:i+4], 16, 8); err == nil {
					if skipChars > 0 {
						skipChars--
					} else if !cur().skip {
						pendingBytes = append(pendingBytes, byte(v))
					}
				}
			}
			i += 4
			continue
		case next == '*':
			cur().skip = true
			i += 2
			continue
		case next == '~':
			emit(" ")
			i += 2
			continue
		case next == '_':
			emit("-")
			i += 2
			continue
		case next == '\n' || next == '\r':
			emit("\n")
			i += 2
			continue
		case !isLetter(next):
			i += 2
			continue
		}

		// Control word: letters, optional signed number, optional space.
		j := i + 1
		for j < len(src) && isLetter(src[j]) {
			j++
		}
		word := src[i+1 : j]
		k := j
		if k < len(src) && (src[k] == '-' || isDigit(src[k])) {
			k++
			for k < len(src) && isDigit(src[k]) {
				k++
			}
		}
		param, hasParam := 0, false
		if k > j {
			if n, err := strconv.Atoi(src[j:k]); err == nil {
				param, hasParam = n, true
			}
		}
		if k < len(src) && src[k] == ' ' {
			k++
		}
		i = k

		if skipDestinations[word] {
			cur().skip = true
			continue
		}
		switch word {
		case "ansicpg":
			if hasParam && codepage != nil {
				if enc := codepage(param); enc != nil {
					flushBytes()
					dec = enc
				}
			}
		case "uc":
			if hasParam {
				cur().ucSkip = param
			}
		case "u":
			if !hasParam {
				continue
			}
			if param < 0 {
				param += 65536
			}
			r := rune(param)
			switch {
			case utf16.IsSurrogate(r) && surrogate == 0:
				surrogate = r
			case surrogate != 0:
				emit(string(utf16.DecodeRune(surrogate, r)))
				surrogate = 0
			default:
				emit(string(r))
			}
			skipChars = cur().ucSkip
		case "par", "line", "sect", "page", "row":
			emit("\n")
		case "tab", "cell":
			emit("\t")
		case "emdash":
			emit("\u2014")
		case "endash":
			emit("–")
		case "bullet":
			emit("•")
		case "lquote":
			emit("‘")
		case "rquote":
			emit("’")
		case "ldblquote":
			emit("“")
		case "rdblquote":
			emit("”")
		}
	}
	flushBytes()
	return out.String()
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
