package script

import (
	"bytes"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

// scanner holds the cursor over script source.
type scanner struct {
	input []byte
	pos   int
	line  int
	col   int
}

type mark struct{ pos, line, col int }

func (s *scanner) mark() mark { return mark{s.pos, s.line, s.col} }

func (s *scanner) reset(m mark) { s.pos, s.line, s.col = m.pos, m.line, m.col }

func (s *scanner) position() Position {
	return Position{Offset: s.pos, Line: s.line, Column: s.col}
}

func (s *scanner) eof() bool { return s.pos >= len(s.input) }

func (s *scanner) peek() rune {
	if s.eof() {
		return 0
	}

	r, _ := utf8.DecodeRune(s.input[s.pos:])

	return r
}

func (s *scanner) peekN(n int) string {
	if s.pos+n > len(s.input) {
		return string(s.input[s.pos:])
	}

	return string(s.input[s.pos : s.pos+n])
}

func (s *scanner) advance() {
	if s.eof() {
		return
	}

	r, size := utf8.DecodeRune(s.input[s.pos:])

	s.pos += size
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
}

func (s *scanner) advanceN(n int) {
	for range n {
		s.advance()
	}
}

func (s *scanner) expect(ch rune) bool {
	if s.peek() == ch {
		s.advance()

		return true
	}

	return false
}

// keyword reports whether the input at the cursor is the word kw followed by
// a non-identifier character.
func (s *scanner) keyword(kw string) bool {
	if !bytes.HasPrefix(s.input[s.pos:], []byte(kw)) {
		return false
	}

	r, _ := utf8.DecodeRune(s.input[s.pos+len(kw):])

	return s.pos+len(kw) == len(s.input) || !isIdentifierContinue(r)
}

func (s *scanner) errorf(msg string, attrs ...slog.Attr) error {
	se := &SyntaxError{Msg: msg, Pos: s.position(), Incomplete: s.eof()}

	return ErrParse.Wrap(se).With(append(attrs, se.Pos.Attr())...)
}

// invalidf reports a construct that more input cannot repair.
func (s *scanner) invalidf(msg string, attrs ...slog.Attr) error {
	se := &SyntaxError{Msg: msg, Pos: s.position()}

	return ErrParse.Wrap(se).With(append(attrs, se.Pos.Attr())...)
}

// skipInline skips spaces, tabs and block comments, stopping at newlines.
func (s *scanner) skipInline() {
	for !s.eof() {
		switch {
		case s.peek() == ' ' || s.peek() == '\t' || s.peek() == '\r':
			s.advance()
		case s.peekN(2) == "/*":
			s.skipBlockComment()
		default:
			return
		}
	}
}

// skipBlank skips all whitespace including newlines, and every comment.
func (s *scanner) skipBlank() {
	for !s.eof() {
		switch {
		case unicode.IsSpace(s.peek()):
			s.advance()
		case s.atLineComment():
			s.skipLineComment()
		case s.peekN(2) == "/*":
			s.skipBlockComment()
		default:
			return
		}
	}
}

func (s *scanner) atLineComment() bool {
	return s.peek() == '#' || s.peekN(2) == "//"
}

func (s *scanner) skipLineComment() {
	for !s.eof() && s.peek() != '\n' {
		s.advance()
	}
}

func (s *scanner) skipBlockComment() {
	s.advanceN(2)

	for !s.eof() {
		if s.peekN(2) == "*/" {
			s.advanceN(2)

			return
		}

		s.advance()
	}
}

func (s *scanner) skipString(quote rune) error {
	s.advance()

	for !s.eof() {
		ch := s.peek()
		if ch == '\\' {
			s.advanceN(2)

			continue
		}

		s.advance()

		if ch == quote {
			return nil
		}
	}

	return s.errorf("unterminated string")
}

// skipBalanced skips a bracketed group starting at the cursor, including
// nested groups and string literals.
func (s *scanner) skipBalanced() error {
	depth := 0

	for !s.eof() {
		switch ch := s.peek(); ch {
		case '"', '\'', '`':
			if err := s.skipString(ch); err != nil {
				return err
			}

			continue

		case '(', '[', '{':
			depth++

		case ')', ']', '}':
			depth--
			if depth == 0 {
				s.advance()

				return nil
			}
		}

		s.advance()
	}

	return s.errorf("unbalanced brackets")
}

// captureExpression captures raw expression text for the expression engine.
//
// It tracks balanced brackets and skips string literals, and stops at EOF or
// at depth zero on an unbalanced closing bracket, ',', ';', a comment, a
// backtick (the start of a tagged template), or a newline that does not
// follow an operator.
func (s *scanner) captureExpression() (string, error) {
	start := s.pos
	depth := 0

scan:
	for !s.eof() {
		ch := s.peek()

		switch {
		case ch == '"' || ch == '\'':
			if err := s.skipString(ch); err != nil {
				return "", err
			}

			continue

		case ch == '`':
			if depth == 0 {
				break scan
			}

			if err := s.skipString(ch); err != nil {
				return "", err
			}

			continue

		case s.peekN(2) == "/*":
			s.skipBlockComment()

			continue

		case depth == 0 && s.atLineComment():
			break scan

		case ch == '(' || ch == '[' || ch == '{':
			depth++

		case ch == ')' || ch == ']' || ch == '}':
			if depth == 0 {
				break scan
			}

			depth--

		case depth == 0 && (ch == ',' || ch == ';'):
			break scan

		case depth == 0 && ch == '\n':
			if terminates(string(s.input[start:s.pos])) {
				break scan
			}
		}

		s.advance()
	}

	if depth > 0 {
		return "", s.errorf("unbalanced brackets")
	}

	return stripComments(string(s.input[start:s.pos])), nil
}

// terminates reports whether a newline after text ends the expression.
func terminates(text string) bool {
	text = strings.TrimSpace(stripComments(text))
	if text == "" {
		return false
	}

	r, _ := utf8.DecodeLastRuneInString(text)

	return !strings.ContainsRune("+-*/%&|^<>=!?:.,([{", r)
}

// parseIdentifier parses an identifier token.
func (s *scanner) parseIdentifier() (string, error) {
	start := s.pos

	if !isIdentifierStart(s.peek()) {
		return "", s.errorf("expected identifier")
	}

	for !s.eof() && isIdentifierContinue(s.peek()) {
		s.advance()
	}

	name := string(s.input[start:s.pos])
	if reserved[name] {
		return "", s.errorf("reserved word", slog.String("name", name))
	}

	return name, nil
}

// parseStringLiteral parses a single- or double-quoted string.
func (s *scanner) parseStringLiteral() (string, error) {
	quote := s.peek()
	start := s.pos

	if err := s.skipString(quote); err != nil {
		return "", err
	}

	v, ok := cook(string(s.input[start+1 : s.pos-1]))
	if !ok {
		return "", s.errorf("invalid escape sequence")
	}

	return v, nil
}

//nolint:gochecknoglobals
var reserved = map[string]bool{
	"let": true, "const": true, "var": true, "function": true, "return": true,
	"if": true, "else": true, "for": true, "of": true, "break": true,
	"continue": true, "true": true, "false": true, "nil": true, "null": true,
	"undefined": true,
}

func isIdentifierStart(r rune) bool {
	return unicode.In(r,
		unicode.L,
		unicode.Nl,
		unicode.Other_ID_Start,
	) || r == '_' || r == '$'
}

func isIdentifierContinue(r rune) bool {
	return unicode.In(r,
		unicode.L,
		unicode.Nl,
		unicode.Other_ID_Start,
		unicode.Mn,
		unicode.Mc,
		unicode.Nd,
		unicode.Pc,
		unicode.Other_ID_Continue,
	) || r == '$'
}

// stripComments removes comments outside string literals and trims
// whitespace.
func stripComments(s string) string {
	var (
		sb    strings.Builder
		quote byte
	)

	for i := 0; i < len(s); i++ {
		ch := s[i]

		switch {
		case quote != 0:
			sb.WriteByte(ch)

			if ch == '\\' && i+1 < len(s) {
				i++
				sb.WriteByte(s[i])
			} else if ch == quote {
				quote = 0
			}

		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch

			sb.WriteByte(ch)

		case ch == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}

			i--

		case ch == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += end + 3
			}

			sb.WriteByte(' ')

		default:
			sb.WriteByte(ch)
		}
	}

	return strings.TrimSpace(sb.String())
}
