package pdf

import "strings"

// contentText recovers display text from a decoded page content stream by
// scanning for the text-showing operators Tj, ', " and TJ. String operands
// are decoded per PDF syntax (literal strings with escapes and nesting, hex
// strings). Shows within a text block join with spaces; ET ends a line.
// Glyph-encoded fonts may not round-trip to readable text; that is inherent
// to operator-level scanning.
func contentText(stream []byte) string {
	var out strings.Builder
	var line []string

	flushLine := func() {
		if len(line) == 0 {
			return
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(strings.Join(line, " "))
		line = line[:0]
	}

	i := 0
	for i < len(stream) {
		c := stream[i]
		switch {
		case c == '%':
			i = skipComment(stream, i)
		case c == '(':
			var text string
			text, i = parseLiteral(stream, i)
			if op, next := peekOperator(stream, i); op == "Tj" || op == "'" || op == "\"" {
				line = append(line, text)
				i = next
			}
		case c == '<' && i+1 < len(stream) && stream[i+1] == '<':
			i += 2
		case c == '<':
			var text string
			text, i = parseHex(stream, i)
			if op, next := peekOperator(stream, i); op == "Tj" || op == "'" || op == "\"" {
				line = append(line, text)
				i = next
			}
		case c == '[':
			var text string
			var ok bool
			text, i, ok = parseArray(stream, i)
			if op, next := peekOperator(stream, i); ok && op == "TJ" {
				line = append(line, text)
				i = next
			}
		case c == 'E' && i+1 < len(stream) && stream[i+1] == 'T':
			flushLine()
			i += 2
		default:
			i++
		}
	}
	flushLine()
	return out.String()
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return isSpace(c)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

// peekOperator reads the next token after optional whitespace. It returns
// the token and the index just past it, or "" when the next byte is a
// delimiter rather than an operator.
func peekOperator(stream []byte, i int) (string, int) {
	for i < len(stream) && isSpace(stream[i]) {
		i++
	}
	if i >= len(stream) {
		return "", i
	}
	if stream[i] == '\'' || stream[i] == '"' {
		return string(stream[i]), i + 1
	}
	start := i
	for i < len(stream) && !isDelim(stream[i]) {
		i++
	}
	return string(stream[start:i]), i
}

// parseLiteral decodes a PDF literal string starting at '('. It returns the
// decoded text and the index just past the closing ')'.
func parseLiteral(stream []byte, i int) (string, int) {
	var buf strings.Builder
	depth := 1
	i++
	for i < len(stream) && depth > 0 {
		c := stream[i]
		switch c {
		case '\\':
			i++
			if i >= len(stream) {
				break
			}
			switch esc := stream[i]; esc {
			case 'n':
				buf.WriteByte('\n')
				i++
			case 'r':
				buf.WriteByte('\r')
				i++
			case 't':
				buf.WriteByte('\t')
				i++
			case 'b':
				buf.WriteByte('\b')
				i++
			case 'f':
				buf.WriteByte('\f')
				i++
			case '(', ')', '\\':
				buf.WriteByte(esc)
				i++
			case '\n':
				i++ // line continuation
			case '\r':
				i++
				if i < len(stream) && stream[i] == '\n' {
					i++
				}
			default:
				if esc >= '0' && esc <= '7' {
					val := 0
					for n := 0; n < 3 && i < len(stream) && stream[i] >= '0' && stream[i] <= '7'; n++ {
						val = val*8 + int(stream[i]-'0')
						i++
					}
					buf.WriteByte(byte(val))
				} else {
					buf.WriteByte(esc)
					i++
				}
			}
		case '(':
			depth++
			buf.WriteByte(c)
			i++
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(c)
			}
			i++
		default:
			buf.WriteByte(c)
			i++
		}
	}
	return buf.String(), i
}

// parseHex decodes a PDF hex string starting at '<'. It returns the decoded
// text and the index just past the closing '>'.
func parseHex(stream []byte, i int) (string, int) {
	var digits []byte
	i++
	for i < len(stream) && stream[i] != '>' {
		c := stream[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			digits = append(digits, c)
		}
		i++
	}
	if i < len(stream) {
		i++ // consume '>'
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	var buf strings.Builder
	for j := 0; j+1 < len(digits); j += 2 {
		buf.WriteByte(hexVal(digits[j])<<4 | hexVal(digits[j+1]))
	}
	return buf.String(), i
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// parseArray collects the strings inside a TJ operand array starting at '['.
// Numeric kerning adjustments are skipped. ok is false when the array never
// closes, which means this bracket was not a TJ operand.
func parseArray(stream []byte, i int) (text string, next int, ok bool) {
	var parts []string
	i++
	for i < len(stream) {
		c := stream[i]
		switch {
		case c == ']':
			return strings.Join(parts, ""), i + 1, true
		case c == '(':
			var s string
			s, i = parseLiteral(stream, i)
			parts = append(parts, s)
		case c == '<':
			var s string
			s, i = parseHex(stream, i)
			parts = append(parts, s)
		default:
			i++
		}
	}
	return "", i, false
}
