package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/letbind/lang"
	"github.com/ardnew/letbind/log"
	"github.com/ardnew/letbind/script"
)

// editMsg carries a program parsed from the external editor.
type editMsg struct{ prog *script.Program }

// editCancelledMsg is sent when the user saved an empty buffer.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a syntax
// error.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the editor could not be run.
type editErrorMsg struct{ err error }

const (
	evalPrompt = "➜ "
	contPrompt = "… "
	ctrlPrompt = " :"
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help            Print this cruft
  list            List global bindings
  dump [format]   Print global bindings as native, json or yaml
  edit            Write a script in external $EDITOR and run it
  clear           Clear screen
  quit            Exit REPL

Usage:
  Type a statement to run it; bindings persist between inputs
  Unfinished input (an open bracket, brace or template) continues on the
    next line; press Ctrl+C to discard it
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Space to accept the current candidate
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Use Alt+Up/Alt+Down to switch to command mode and navigate command history
    (restores original mode when reaching end of history)
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

// altNav remembers the input state from before Alt+Up/Down navigation began.
type altNav struct {
	active bool
	mode   inputMode
	text   string
	cursor int
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc    func() context.Context
	input      textinput.Model
	in         *script.Interpreter
	logger     log.Logger
	history    *History
	historyIdx int
	pending    []string      // lines of an unfinished statement
	matches    fuzzy.Matches // current fuzzy match results
	parent     string        // member path leading to the current word
	wordStart  int           // byte offset of current word start
	wordEnd    int           // byte offset of current word end
	suggIdx    int           // selected candidate index
	tabActive  bool          // whether user is tab-cycling
	preTab     string        // input text before tab-cycling began
	preTabPos  int           // cursor position before tab-cycling began
	altNav     altNav
	width      int // terminal width for ellipsization
	quitting   bool
	mode       inputMode
	evalText   string
	evalCursor int
	ctrlText   string
	ctrlCursor int
}

// Run starts an interactive session that executes each input in the global
// scope of in. History is persisted under cacheDir.
func Run(
	ctx context.Context,
	in *script.Interpreter,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if in == nil {
		return ErrNoInterpreter
	}

	logger.TraceContext(ctx, "repl start",
		slog.String("cache_dir", cacheDir),
		slog.Int("global_count", len(in.Global().Names())),
	)

	history := NewHistory(filepath.Join(cacheDir, baseHistory))
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history",
			slog.String("path", history.Path()),
			slog.Any("error", err),
		)
	}

	logger.TraceContext(ctx, "repl history loaded",
		slog.Int("entry_count", history.Len()),
	)

	p := tea.NewProgram(newModel(ctx, in, history, logger), tea.WithContext(ctx))
	_, err = p.Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	in *script.Interpreter,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		in:         in,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		suggIdx:    -1,
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil

	case editMsg:
		m.logger.TraceContext(m.ctxFunc(), "repl edit complete",
			slog.Int("statement_count", len(msg.prog.Body)),
		)

		v, err := m.in.Run(m.ctxFunc(), msg.prog)

		return m, m.report(v, err)

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	input := m.input.Value()
	call := detectFunctionCall(input, m.input.Position())
	params, hasSig := m.signature(call.name)

	switch {
	case m.historyIdx < m.history.Len():
		hint := fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())
		b.WriteString(hintStyle.Render(hint))

	case strings.TrimSpace(input) == "":
		b.WriteString(hintStyle.Render(m.emptyHint()))

	case call.inCall && m.mode == modeEval && hasSig:
		b.WriteString(renderSignatureHint(call.name, params, call.argIndex))

	case len(m.matches) > 0:
		b.WriteString(renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width, m.isFunction))
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) emptyHint() string {
	switch {
	case m.mode == modeCtrl:
		return "Type: help, list, dump, edit, clear, quit (press Esc to return)"
	case len(m.pending) > 0:
		return fmt.Sprintf("Continue statement (%d lines so far) or press Ctrl+C to discard", len(m.pending))
	default:
		return "Type a statement or press Esc for commands"
	}
}

func (m model) prompt() string {
	switch {
	case m.mode == modeCtrl:
		return ctrlPromptStyle.Render(ctrlPrompt)
	case len(m.pending) > 0:
		return promptStyle.Render(contPrompt)
	default:
		return promptStyle.Render(evalPrompt)
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	line := m.input.Value()
	if strings.TrimSpace(line) == "" && len(m.pending) == 0 {
		return m, nil
	}

	m.evalText, m.evalCursor = "", 0
	m.ctrlText, m.ctrlCursor = "", 0
	m.input.SetValue("")

	if m.mode == modeCtrl {
		input := strings.TrimSpace(line)

		_, _ = m.history.WriteWithMode(input, modeCtrl)
		m.historyIdx = m.history.Len()

		return m.executeCommand(input)
	}

	_, _ = m.history.WriteWithMode(line, modeEval)
	m.historyIdx = m.history.Len()

	echo := tea.Println(m.prompt() + inputStyle.Render(line))
	src := strings.Join(append(m.pending, line), "\n")

	m.logger.TraceContext(m.ctxFunc(), "repl eval",
		slog.String("input", src),
		slog.Int("pending_lines", len(m.pending)),
	)

	v, err := m.in.Exec(m.ctxFunc(), src)
	if script.Incomplete(err) {
		m.pending = append(m.pending, line)
		m.input.Prompt = m.prompt()

		return m, echo
	}

	m.pending = nil
	m.input.Prompt = m.prompt()

	return m, tea.Sequence(echo, m.report(v, err))
}

// report renders the completion value or error of one run.
func (m model) report(v lang.Value, err error) tea.Cmd {
	if err != nil {
		m.logger.TraceContext(m.ctxFunc(), "repl eval result",
			slog.String("result_kind", "error"),
			slog.Any("error", err),
		)

		return tea.Println(errorStyle.Render("error: " + err.Error()))
	}

	kind := "undefined"
	if v != nil {
		kind = v.Kind().String()
	}

	m.logger.TraceContext(m.ctxFunc(), "repl eval result",
		slog.String("result_kind", kind),
	)

	if lang.IsMissing(v) {
		return nil
	}

	return tea.Println(resultStyle.Render(lang.Inspect(v)))
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	echo := tea.Println(ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input))

	cmd, args := parts[0], parts[1:]

	m.logger.TraceContext(m.ctxFunc(), "repl command",
		slog.String("command", cmd),
		slog.Any("args", args),
	)

	switch cmd {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echo, tea.Println(helpMessage()))

	case "l", "list":
		return m, tea.Sequence(echo, tea.Println(m.listBindings()))

	case "d", "dump":
		format := script.OutputNative
		if len(args) > 0 {
			format = args[0]
		}

		var b strings.Builder

		err := script.WriteBindings(m.ctxFunc(), &b, m.in.Global(), format, 2)
		if err != nil {
			return m, tea.Sequence(echo, tea.Println(errorStyle.Render("error: "+err.Error())))
		}

		return m, tea.Sequence(echo, tea.Println(strings.TrimSuffix(b.String(), "\n")))

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		return m, tea.Sequence(echo, m.edit())

	default:
		return m, tea.Println(
			errorStyle.Render("Unknown command: " + cmd + " (try 'help')"),
		)
	}
}

func (m model) edit() tea.Cmd {
	cmd := &editCommand{
		content: strings.Join(m.pending, "\n"),
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case cmd.prog == nil:
			return editCancelledMsg{}
		default:
			return editMsg{prog: cmd.prog}
		}
	})
}

// listBindings renders one line per global binding with a value preview.
func (m model) listBindings() string {
	var b strings.Builder

	for bind := range m.in.Global().Bindings() {
		preview := "<uninitialized>"
		if bind.State == lang.Initialized {
			preview = previewValue(bind.Value)
		}

		fmt.Fprintf(&b, "  %s %s %s\n",
			hintStyle.Render(bind.Kind.String()), bind.Name, hintStyle.Render(preview))
	}

	if b.Len() == 0 {
		return hintStyle.Render("  (no bindings)")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

const previewWidth = 40

// previewValue returns a short single-line rendering of v.
func previewValue(v lang.Value) string {
	s := lang.Inspect(v)

	switch v := v.(type) {
	case *lang.Callable:
		return "(" + strings.Join(v.Params, ", ") + ") => ..."

	case *lang.Object:
		if len(s) > previewWidth {
			return fmt.Sprintf("{ %d keys }", v.Len())
		}

	case *lang.List:
		if len(s) > previewWidth {
			return fmt.Sprintf("[ %d items ]", v.Len())
		}
	}

	if len(s) > previewWidth {
		return s[:previewWidth-3] + "..."
	}

	return s
}

// toggleMode switches between eval and control modes.
func (m model) toggleMode() (model, tea.Cmd) {
	if m.mode == modeEval {
		return m.switchToMode(modeCtrl), nil
	}

	return m.switchToMode(modeEval), nil
}

// switchToMode switches to mode, saving the input of the mode being left and
// restoring the input last entered in mode.
func (m model) switchToMode(mode inputMode) model {
	if m.mode == modeEval {
		m.evalText, m.evalCursor = m.input.Value(), m.input.Position()
	} else {
		m.ctrlText, m.ctrlCursor = m.input.Value(), m.input.Position()
	}

	m.mode = mode
	m.input.Prompt = m.prompt()

	if mode == modeEval {
		m.input.SetValue(m.evalText)
		m.input.SetCursor(m.evalCursor)
	} else {
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	refreshMatches(&m, false)

	return m
}
