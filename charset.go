package mdmagic

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

var encodings = map[string]encoding.Encoding{
	"utf8":        unicode.UTF8,
	"utf8bom":     unicode.UTF8BOM,
	"ascii":       unicode.UTF8,
	"usascii":     unicode.UTF8,
	"utf16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"iso88591":    charmap.ISO8859_1,
	"latin1":      charmap.ISO8859_1,
	"iso88592":    charmap.ISO8859_2,
	"iso88595":    charmap.ISO8859_5,
	"iso88597":    charmap.ISO8859_7,
	"iso88599":    charmap.ISO8859_9,
	"iso885915":   charmap.ISO8859_15,
	"koi8r":       charmap.KOI8R,
	"cp437":       charmap.CodePage437,
	"cp850":       charmap.CodePage850,
	"cp874":       charmap.Windows874,
	"windows1250": charmap.Windows1250,
	"windows1251": charmap.Windows1251,
	"windows1252": charmap.Windows1252,
	"windows1253": charmap.Windows1253,
	"windows1254": charmap.Windows1254,
	"windows1255": charmap.Windows1255,
	"windows1256": charmap.Windows1256,
	"windows1257": charmap.Windows1257,
	"windows1258": charmap.Windows1258,
	"shiftjis":    japanese.ShiftJIS,
	"sjis":        japanese.ShiftJIS,
	"cp932":       japanese.ShiftJIS,
	"eucjp":       japanese.EUCJP,
	"iso2022jp":   japanese.ISO2022JP,
	"euckr":       korean.EUCKR,
	"cp949":       korean.EUCKR,
	"gb2312":      simplifiedchinese.GBK,
	"gbk":         simplifiedchinese.GBK,
	"cp936":       simplifiedchinese.GBK,
	"gb18030":     simplifiedchinese.GB18030,
	"big5":        traditionalchinese.Big5,
	"cp950":       traditionalchinese.Big5,
}

// lookupEncoding maps a charset name ("UTF-8", "windows-1251", "cp1252") to
// its decoder, or nil if unknown.
func lookupEncoding(charset string) encoding.Encoding {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(charset))
	if strings.HasPrefix(key, "cp125") {
		key = "windows" + strings.TrimPrefix(key, "cp")
	}
	return encodings[key]
}

// codepageEncoding resolves a Windows code page number as used by RTF.
func codepageEncoding(cp int) encoding.Encoding {
	switch cp {
	case 65001:
		return unicode.UTF8
	}
	return lookupEncoding("cp" + strconv.Itoa(cp))
}

// decodeText returns data as UTF-8. A known charset hint wins; otherwise
// valid UTF-8 is kept and anything else goes through chardet, picking the
// candidate that decodes with the fewest replacement or control runes.
func decodeText(data []byte, hint string) string {
	if hint != "" {
		if enc := lookupEncoding(hint); enc != nil {
			if b, err := enc.NewDecoder().Bytes(data); err == nil {
				return strings.TrimPrefix(string(b), "\ufeff")
			}
		}
	}
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff")
	}

	results, err := chardet.NewTextDetector().DetectAll(data)
	if err != nil || len(results) == 0 {
		return strings.ToValidUTF8(string(data), "\ufffd")
	}
	best, bestScore := "", 0
	for _, r := range results {
		enc := lookupEncoding(r.Charset)
		if enc == nil {
			continue
		}
		b, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		text := string(b)
		if score := decodeScore(text, r.Confidence); best == "" || score > bestScore {
			best, bestScore = text, score
		}
	}
	if best == "" {
		return strings.ToValidUTF8(string(data), "\ufffd")
	}
	return best
}

func decodeScore(text string, confidence int) int {
	score := confidence
	for _, r := range text {
		switch {
		case r == '\ufffd':
			score -= 10
		case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
			score -= 5
		}
	}
	return score
}
