// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package press

import (
	"strings"
	"unicode"

	xunicode "golang.org/x/text/encoding/unicode"
)

// pdfDocEncoding maps PDFDocEncoding bytes to runes (ISO 32000-1 Annex D.2).
// Bytes without a character map to unicode.ReplacementChar.
var pdfDocEncoding [256]rune

// pdfDocReverse maps runes back to their PDFDocEncoding byte.
var pdfDocReverse = map[rune]byte{}

func init() {
	for i := range pdfDocEncoding {
		pdfDocEncoding[i] = rune(i)
	}
	for i := 0x00; i < 0x20; i++ {
		pdfDocEncoding[i] = unicode.ReplacementChar
	}
	pdfDocEncoding['\t'] = '\t'
	pdfDocEncoding['\n'] = '\n'
	pdfDocEncoding['\r'] = '\r'

	for i, r := range []rune{0x02d8, 0x02c7, 0x02c6, 0x02d9, 0x02dd, 0x02db, 0x02da, 0x02dc} {
		pdfDocEncoding[0x18+i] = r
	}
	pdfDocEncoding[0x7f] = unicode.ReplacementChar
	for i, r := range []rune{
		0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044,
		0x2039, 0x203a, 0x2212, 0x2030, 0x201e, 0x201c, 0x201d, 0x2018,
		0x2019, 0x201a, 0x2122, 0xfb01, 0xfb02, 0x0141, 0x0152, 0x0160,
		0x0178, 0x017d, 0x0131, 0x0142, 0x0153, 0x0161, 0x017e, unicode.ReplacementChar,
		0x20ac,
	} {
		pdfDocEncoding[0x80+i] = r
	}
	pdfDocEncoding[0xad] = unicode.ReplacementChar

	for b, r := range pdfDocEncoding {
		if r != unicode.ReplacementChar {
			pdfDocReverse[r] = byte(b)
		}
	}
}

// isUTF16 reports whether s is a UTF-16BE text string with its byte order mark.
func isUTF16(s string) bool {
	return len(s) >= 2 && len(s)%2 == 0 && s[0] == 0xfe && s[1] == 0xff
}

// isPDFDocEncoded reports whether every byte of s is a PDFDocEncoding character.
func isPDFDocEncoded(s string) bool {
	if isUTF16(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if pdfDocEncoding[s[i]] == unicode.ReplacementChar {
			return false
		}
	}
	return true
}

func pdfDocDecode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteRune(pdfDocEncoding[s[i]])
	}
	return b.String()
}

// utf16Decode decodes big-endian UTF-16 without a byte order mark.
func utf16Decode(s string) string {
	out, err := xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM).NewDecoder().String(s)
	if err != nil {
		return ""
	}
	return out
}

// decodeTextString turns the bytes of a PDF text string into UTF-8.
func decodeTextString(raw []byte) string {
	s := string(raw)
	switch {
	case isUTF16(s):
		return utf16Decode(s[2:])
	case strings.HasPrefix(s, "\xef\xbb\xbf"):
		return s[3:]
	}
	return pdfDocDecode(s)
}

// encodeTextString returns the bytes of a PDF text string for s:
// PDFDocEncoding when it covers every rune, UTF-16BE with BOM otherwise.
func encodeTextString(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := pdfDocReverse[r]
		if !ok {
			enc, err := xunicode.UTF16(xunicode.BigEndian, xunicode.UseBOM).NewEncoder().Bytes([]byte(s))
			if err != nil {
				return out
			}
			return enc
		}
		out = append(out, b)
	}
	return out
}

// unescapeLiteral resolves the escape sequences of a PDF literal string body
// (the text between the outer parentheses).
func unescapeLiteral(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			out = append(out, c)
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			if e >= '0' && e <= '7' {
				v := 0
				n := 0
				for n < 3 && i < len(s) && s[i] >= '0' && s[i] <= '7' {
					v = v*8 + int(s[i]-'0')
					i++
					n++
				}
				i--
				out = append(out, byte(v))
				continue
			}
			out = append(out, e)
		}
	}
	return out
}
