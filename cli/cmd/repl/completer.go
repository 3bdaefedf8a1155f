package repl

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/expr-lang/expr/builtin"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/letbind/lang"
	"github.com/ardnew/letbind/script"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{"help", "list", "dump", "edit", "clear", "quit"}

// keywords are the statement keywords offered at the top level.
var keywords = []string{
	"break", "const", "continue", "else", "for", "function",
	"if", "let", "of", "return", "var",
}

// isWordBoundary reports whether r delimits a completion word: whitespace,
// the member-access dot, and operator or punctuation characters.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%', '^', '~',
		'<', '>', '=', '!',
		'&', '|', ',', '?', ':', ';',
		'`', '$', '"', '\'', '#':
		return true
	}

	return false
}

// wordBounds returns the word at cursor and its byte boundaries within
// input. The word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the member-access chain leading up to the word at
// wordStart. For "x + server.http.ho" with the word "ho", the parent path is
// "server.http". Top-level words have no parent.
func parentPath(input string, wordStart int) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	prefix = strings.TrimRight(prefix, ".")
	pos := len(prefix)

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return strings.TrimSpace(prefix[pos:])
}

// resolvePath resolves a dotted member path in the global scope. Unbound or
// uninitialized roots, and members of non-objects, do not resolve.
func (m model) resolvePath(path string) (lang.Value, bool) {
	segs := strings.Split(path, ".")

	v, err := m.in.Global().Resolve(segs[0])
	if err != nil {
		return nil, false
	}

	for _, seg := range segs[1:] {
		obj, ok := v.(*lang.Object)
		if !ok {
			return nil, false
		}

		if v, ok = obj.Lookup(seg); !ok {
			return nil, false
		}
	}

	return v, true
}

// childCandidates returns the completions under parent: every visible name,
// expression builtin and keyword at the top level, or the keys of the object
// parent resolves to.
func (m model) childCandidates(parent string) []string {
	if parent == "" {
		names := m.in.Global().Visible()
		names = append(names, script.ExprBuiltins()...)

		return append(names, keywords...)
	}

	v, ok := m.resolvePath(parent)
	if !ok {
		return nil
	}

	if obj, ok := v.(*lang.Object); ok {
		return obj.Keys()
	}

	return nil
}

// isFunction reports whether name, under the current parent path, is
// callable.
func (m model) isFunction(name string) bool {
	if m.parent == "" {
		if _, ok := builtin.Index[name]; ok {
			return true
		}
	} else {
		name = m.parent + "." + name
	}

	v, ok := m.resolvePath(name)
	if !ok {
		return false
	}

	_, ok = v.(*lang.Callable)

	return ok
}

// computeMatches ranks the candidates for the word at the cursor, best
// first. An empty word yields no matches at the top level and every member
// after a dot.
func (m *model) computeMatches() (matches fuzzy.Matches, wordStart, wordEnd int) {
	input := m.input.Value()

	word, wordStart, wordEnd := wordBounds(input, m.input.Position())

	var candidates []string

	m.parent = ""

	if m.mode == modeCtrl {
		if word == "" {
			return nil, wordStart, wordEnd
		}

		candidates = ctrlCommands

		if fields := strings.Fields(input[:wordStart]); len(fields) == 1 && fields[0] == "dump" {
			candidates = script.Outputs()
		}
	} else {
		m.parent = parentPath(input, wordStart)
		candidates = m.childCandidates(m.parent)

		if word == "" {
			if m.parent == "" || len(candidates) == 0 {
				return nil, wordStart, wordEnd
			}

			matches = make(fuzzy.Matches, len(candidates))
			for i, c := range candidates {
				matches[i] = fuzzy.Match{Str: c, Index: i}
			}

			return matches, wordStart, wordEnd
		}
	}

	if len(candidates) == 0 {
		return nil, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), wordStart, wordEnd
}

// renderCandidateBar renders the completion bar on one line, ellipsized to
// width. The selected candidate is highlighted while tab-cycling.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
	isFunc func(string) bool,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx, isFunc != nil && isFunc(match.Str))

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+ellipsisWidth > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders one candidate with its matched characters
// highlighted. Callables get a "()" suffix that is not part of the
// completion.
func renderCandidate(match fuzzy.Match, selected, fn bool) string {
	base := suggestionStyle
	highlight := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)

	if selected {
		base = selectedStyle
		highlight = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4")).
			Bold(true)
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	if fn {
		b.WriteString(base.Render("()"))
	}

	return b.String()
}
