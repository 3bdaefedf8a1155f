package repl

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/letbind/lang"
)

// exprLangBuiltins lists the parameters of the expression engine's builtin
// functions, which carry no parameter metadata of their own.
var exprLangBuiltins = map[string][]string{
	"len":           {"v"},
	"all":           {"array", "predicate"},
	"any":           {"array", "predicate"},
	"one":           {"array", "predicate"},
	"none":          {"array", "predicate"},
	"map":           {"array", "mapper"},
	"filter":        {"array", "predicate"},
	"find":          {"array", "predicate"},
	"findIndex":     {"array", "predicate"},
	"findLast":      {"array", "predicate"},
	"findLastIndex": {"array", "predicate"},
	"groupBy":       {"array", "mapper"},
	"sortBy":        {"array", "mapper"},
	"count":         {"array", "predicate"},
	"sum":           {"array"},
	"mean":          {"array"},
	"median":        {"array"},
	"min":           {"...values"},
	"max":           {"...values"},
	"join":          {"array", "separator"},
	"split":         {"string", "separator"},
	"replace":       {"string", "old", "new"},
	"trim":          {"string"},
	"trimPrefix":    {"string", "prefix"},
	"trimSuffix":    {"string", "suffix"},
	"upper":         {"string"},
	"lower":         {"string"},
	"hasPrefix":     {"string", "prefix"},
	"hasSuffix":     {"string", "suffix"},
	"int":           {"v"},
	"float":         {"v"},
	"string":        {"v"},
	"type":          {"v"},
	"toJSON":        {"v"},
	"fromJSON":      {"string"},
}

var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// functionCall describes the call whose argument list contains the cursor.
type functionCall struct {
	name     string // callee path, such as "path.cat"
	argIndex int    // 0-based index of the argument under the cursor
	inCall   bool
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// detectFunctionCall finds the innermost unclosed call before cursor and the
// index of the argument being typed.
func detectFunctionCall(input string, cursor int) functionCall {
	cursor = min(cursor, len(input))

	open := -1

	for i, depth := cursor, 0; i > 0 && open < 0; {
		r, size := utf8.DecodeLastRuneInString(input[:i])
		i -= size

		switch r {
		case ')', ']':
			depth++
		case '(', '[':
			if depth == 0 && r == '(' {
				open = i
			} else if depth > 0 {
				depth--
			}
		}
	}

	if open < 0 {
		return functionCall{}
	}

	start := open
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if !isIdentRune(r) {
			break
		}

		start -= size
	}

	name := strings.Trim(input[start:open], ".")
	if name == "" {
		return functionCall{}
	}

	argIndex, depth := 0, 0

	for _, r := range input[open+1 : cursor] {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				argIndex++
			}
		}
	}

	return functionCall{name: name, argIndex: argIndex, inCall: true}
}

// signature returns the parameter labels of the function at name: a callable
// in scope first, then an expression builtin.
func (m model) signature(name string) ([]string, bool) {
	if name == "" {
		return nil, false
	}

	if v, ok := m.resolvePath(name); ok {
		c, ok := v.(*lang.Callable)
		if !ok || c.Params == nil {
			return nil, false
		}

		return c.Params, true
	}

	params, ok := exprLangBuiltins[name]

	return params, ok
}

// renderSignatureHint renders name(params) with the parameter at argIndex
// highlighted. A rest parameter stays highlighted for every later argument.
func renderSignatureHint(name string, params []string, argIndex int) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(name))
	b.WriteString(signatureStyle.Render("("))

	for i, param := range params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		rest := strings.HasPrefix(param, "...")

		if argIndex == i || (rest && argIndex > i) {
			b.WriteString(currentParamStyle.Render(param))
		} else {
			b.WriteString(signatureStyle.Render(param))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
