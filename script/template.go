package script

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ardnew/letbind/lang"
)

// parseTemplate parses a backtick literal at the cursor. A non-nil tag makes
// it a tagged template.
func (p *parser) parseTemplate(tag Expr, at Position) (*TemplateLit, error) {
	if !p.expect('`') {
		return nil, p.errorf("expected template literal")
	}

	var (
		segs  []lang.Segment
		exprs []lang.Node
		raw   strings.Builder
	)

	flush := func() {
		text := strings.ReplaceAll(raw.String(), "\r\n", "\n")
		seg := lang.Segment{Raw: text}

		if c, ok := cook(text); ok {
			seg.Cooked = &c
		}

		segs = append(segs, seg)
		raw.Reset()
	}

	for {
		switch {
		case p.eof():
			return nil, p.errorf("unterminated template literal")

		case p.peek() == '`':
			p.advance()
			flush()

			lit, err := lang.NewTemplate(segs, exprs)
			if err != nil {
				return nil, p.errorf(err.Error())
			}

			return &TemplateLit{At: at, Tag: tag, Lit: lit}, nil

		case p.peek() == '\\':
			raw.WriteRune(p.peek())
			p.advance()

			if !p.eof() {
				raw.WriteRune(p.peek())
				p.advance()
			}

		case p.peekN(2) == "${":
			p.advanceN(2)
			flush()

			e, err := p.parseValue()
			if err != nil {
				return nil, err
			}

			p.skipBlank()

			if !p.expect('}') {
				return nil, p.errorf("expected } after template substitution")
			}

			exprs = append(exprs, e)

		default:
			raw.WriteRune(p.peek())
			p.advance()
		}
	}
}

// cook processes the escape sequences of raw template or string text. It
// reports false when raw holds an invalid escape.
func cook(raw string) (string, bool) {
	if !strings.ContainsRune(raw, '\\') {
		return raw, true
	}

	var sb strings.Builder

	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' {
			sb.WriteByte(raw[i])

			continue
		}

		i++
		if i >= len(raw) {
			return "", false
		}

		switch c := raw[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '\n':
		case '0':
			if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '9' {
				return "", false
			}

			sb.WriteByte(0)
		case '1', '2', '3', '4', '5', '6', '7', '8', '9':
			return "", false
		case 'x':
			r, n, ok := hexRune(raw[i+1:], 2)
			if !ok {
				return "", false
			}

			sb.WriteRune(r)

			i += n
		case 'u':
			r, n, ok := unicodeEscape(raw[i+1:])
			if !ok {
				return "", false
			}

			sb.WriteRune(r)

			i += n
		default:
			r, size := utf8.DecodeRuneInString(raw[i:])
			sb.WriteRune(r)

			i += size - 1
		}
	}

	return sb.String(), true
}

func hexRune(s string, n int) (rune, int, bool) {
	if len(s) < n {
		return 0, 0, false
	}

	v, err := strconv.ParseUint(s[:n], 16, 32)
	if err != nil {
		return 0, 0, false
	}

	return rune(v), n, true
}

func unicodeEscape(s string) (rune, int, bool) {
	if !strings.HasPrefix(s, "{") {
		return hexRune(s, 4)
	}

	end := strings.IndexByte(s, '}')
	if end < 2 {
		return 0, 0, false
	}

	v, err := strconv.ParseUint(s[1:end], 16, 32)
	if err != nil || v > utf8.MaxRune {
		return 0, 0, false
	}

	return rune(v), end + 1, true
}
