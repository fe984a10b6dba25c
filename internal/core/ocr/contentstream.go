package ocr

import (
	"strconv"
	"strings"
)

// pdfToken is one operand or operator from a page content stream.
type pdfToken struct {
	kind  tokenKind
	text  string     // decoded string, operator or raw number
	items []pdfToken // array elements
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokArray
	tokName
	tokOperator
	tokOther
)

// Kerning below this (in thousandths of an em) inside TJ is read as a word gap.
const tjSpaceThreshold = -200

// textFromContentStream recovers the visible text of one page. Text-showing
// operators contribute their strings; line moves (T*, ', " and Td/TD with a
// vertical offset) become newlines, horizontal moves become spaces.
func textFromContentStream(data []byte) string {
	var (
		sb       strings.Builder
		operands []pdfToken
		lastTmY  string
	)
	sep := func(ch byte) {
		if sb.Len() == 0 {
			return
		}
		s := sb.String()
		last := s[len(s)-1]
		if last == '\n' || (ch == ' ' && last == ' ') {
			return
		}
		if ch == '\n' && last == ' ' {
			trimmed := strings.TrimRight(s, " ")
			sb.Reset()
			sb.WriteString(trimmed)
		}
		sb.WriteByte(ch)
	}

	lx := &pdfLexer{data: data}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}
		switch tok.text {
		case "Tj":
			if s, ok := lastString(operands); ok {
				sb.WriteString(s)
			}
		case "'", "\"":
			sep('\n')
			if s, ok := lastString(operands); ok {
				sb.WriteString(s)
			}
		case "TJ":
			if len(operands) > 0 && operands[len(operands)-1].kind == tokArray {
				for _, it := range operands[len(operands)-1].items {
					switch it.kind {
					case tokString:
						sb.WriteString(it.text)
					case tokNumber:
						if v, err := strconv.ParseFloat(it.text, 64); err == nil && v < tjSpaceThreshold {
							sep(' ')
						}
					}
				}
			}
		case "Td", "TD":
			if len(operands) >= 2 && !isZero(operands[len(operands)-1].text) {
				sep('\n')
			} else {
				sep(' ')
			}
		case "T*":
			sep('\n')
		case "Tm":
			if len(operands) >= 6 {
				y := operands[len(operands)-1].text
				if lastTmY != "" && y != lastTmY {
					sep('\n')
				} else {
					sep(' ')
				}
				lastTmY = y
			}
		case "ET":
			sep(' ')
		}
		operands = operands[:0]
	}
	return strings.TrimSpace(sb.String())
}

func lastString(operands []pdfToken) (string, bool) {
	if len(operands) == 0 || operands[len(operands)-1].kind != tokString {
		return "", false
	}
	return operands[len(operands)-1].text, true
}

func isZero(num string) bool {
	v, err := strconv.ParseFloat(num, 64)
	return err == nil && v == 0
}

type pdfLexer struct {
	data []byte
	pos  int
}

func isPDFWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (lx *pdfLexer) skipSpaceAndComments() {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isPDFWhitespace(c) {
			lx.pos++
			continue
		}
		if c == '%' {
			for lx.pos < len(lx.data) && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
			continue
		}
		return
	}
}

func (lx *pdfLexer) next() (pdfToken, bool) {
	lx.skipSpaceAndComments()
	if lx.pos >= len(lx.data) {
		return pdfToken{}, false
	}
	c := lx.data[lx.pos]
	switch {
	case c == '(':
		lx.pos++
		return pdfToken{kind: tokString, text: lx.literalString()}, true
	case c == '<' && lx.pos+1 < len(lx.data) && lx.data[lx.pos+1] == '<':
		lx.pos += 2
		lx.skipDict()
		return pdfToken{kind: tokOther}, true
	case c == '<':
		lx.pos++
		return pdfToken{kind: tokString, text: lx.hexString()}, true
	case c == '[':
		lx.pos++
		var items []pdfToken
		for {
			lx.skipSpaceAndComments()
			if lx.pos >= len(lx.data) {
				break
			}
			if lx.data[lx.pos] == ']' {
				lx.pos++
				break
			}
			it, ok := lx.next()
			if !ok {
				break
			}
			items = append(items, it)
		}
		return pdfToken{kind: tokArray, items: items}, true
	case c == '/':
		lx.pos++
		return pdfToken{kind: tokName, text: lx.regular()}, true
	case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
		lx.pos++
		return pdfToken{kind: tokOther}, true
	}
	word := lx.regular()
	if word == "" {
		lx.pos++
		return pdfToken{kind: tokOther}, true
	}
	if _, err := strconv.ParseFloat(word, 64); err == nil {
		return pdfToken{kind: tokNumber, text: word}, true
	}
	if word == "BI" {
		lx.skipInlineImage()
		return pdfToken{kind: tokOther}, true
	}
	return pdfToken{kind: tokOperator, text: word}, true
}

func (lx *pdfLexer) regular() string {
	start := lx.pos
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isPDFWhitespace(c) || isPDFDelimiter(c) {
			break
		}
		lx.pos++
	}
	return string(lx.data[start:lx.pos])
}

func (lx *pdfLexer) skipDict() {
	depth := 1
	for lx.pos < len(lx.data) && depth > 0 {
		if lx.pos+1 < len(lx.data) {
			pair := string(lx.data[lx.pos : lx.pos+2])
			if pair == "<<" {
				depth++
				lx.pos += 2
				continue
			}
			if pair == ">>" {
				depth--
				lx.pos += 2
				continue
			}
		}
		lx.pos++
	}
}

// skipInlineImage jumps past binary image data up to the EI operator.
func (lx *pdfLexer) skipInlineImage() {
	for lx.pos+2 < len(lx.data) {
		if lx.data[lx.pos] == 'E' && lx.data[lx.pos+1] == 'I' &&
			isPDFWhitespace(lx.data[lx.pos-1]) &&
			(lx.pos+2 == len(lx.data) || isPDFWhitespace(lx.data[lx.pos+2])) {
			lx.pos += 2
			return
		}
		lx.pos++
	}
	lx.pos = len(lx.data)
}

func (lx *pdfLexer) literalString() string {
	var b []byte
	depth := 1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		switch c {
		case '(':
			depth++
			b = append(b, c)
		case ')':
			depth--
			if depth == 0 {
				return latin1(b)
			}
			b = append(b, c)
		case '\\':
			if lx.pos >= len(lx.data) {
				return latin1(b)
			}
			e := lx.data[lx.pos]
			lx.pos++
			switch e {
			case 'n':
				b = append(b, '\n')
			case 'r':
				b = append(b, '\r')
			case 't':
				b = append(b, '\t')
			case 'b':
				b = append(b, '\b')
			case 'f':
				b = append(b, '\f')
			case '\r':
				if lx.pos < len(lx.data) && lx.data[lx.pos] == '\n' {
					lx.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(e - '0')
				for i := 0; i < 2 && lx.pos < len(lx.data); i++ {
					d := lx.data[lx.pos]
					if d < '0' || d > '7' {
						break
					}
					v = v*8 + int(d-'0')
					lx.pos++
				}
				b = append(b, byte(v))
			default:
				b = append(b, e)
			}
		default:
			b = append(b, c)
		}
	}
	return latin1(b)
}

func (lx *pdfLexer) hexString() string {
	var digits []byte
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		if c == '>' {
			break
		}
		if isPDFWhitespace(c) {
			continue
		}
		digits = append(digits, c)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return latin1(out)
}

// latin1 maps single-byte string content to runes; simple fonts in blotter
// exports use WinAnsi/Standard encodings that agree with Latin-1 on printable text.
// Two-byte glyph ids (Type0 fonts such as Identity-H) are not decoded and
// yield "", so a page drawn only with them reads as blank and goes to OCR.
func latin1(b []byte) string {
	if isTwoByteGlyphs(b) {
		return ""
	}
	r := make([]rune, 0, len(b))
	for _, c := range b {
		if c < 0x20 && c != '\n' && c != '\t' {
			continue
		}
		r = append(r, rune(c))
	}
	return string(r)
}

// isTwoByteGlyphs spots CID-keyed strings: single-byte text never carries NUL,
// while two-byte glyph ids below 256 put one in every high byte.
func isTwoByteGlyphs(b []byte) bool {
	if len(b) < 2 || len(b)%2 != 0 {
		return false
	}
	nul := 0
	for i := 0; i < len(b); i += 2 {
		if b[i] == 0 {
			nul++
		}
	}
	return nul*2 >= len(b)/2
}
