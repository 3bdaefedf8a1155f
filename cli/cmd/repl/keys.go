package repl

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
)

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
		slog.Int("type", int(msg.Type)),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" && len(m.pending) == 0 {
			m.quitting = true

			return m, tea.Quit
		}

		// Discard the line, and any unfinished statement with it.
		m.pending = nil
		m.input.Prompt = m.prompt()
		m.input.SetValue("")
		m.tabActive = false
		m.altNav = altNav{}
		m.historyIdx = m.history.Len()
		refreshMatches(&m, false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		m.altNav = altNav{}

		if !m.tabActive || len(m.matches) == 0 {
			return m.executeInput()
		}

		// Lock in the current tab candidate without executing.
		m.tabActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		if msg.Alt {
			return m.historyStepCtrl(-1), nil
		}

		return m.historyStep(-1), nil

	case tea.KeyDown:
		if msg.Alt {
			return m.historyStepCtrl(1), nil
		}

		return m.historyStep(1), nil

	case tea.KeyShiftUp:
		return m.historyStepInMode(-1), nil

	case tea.KeyShiftDown:
		return m.historyStepInMode(1), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTab)
			m.input.SetCursor(m.preTabPos)
			refreshMatches(&m, false)

			return m, nil
		}

		m.altNav = altNav{}

		return m.toggleMode()

	case tea.KeyRunes:
		// Space breaks out of tab-cycling, keeping the candidate.
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	// Any other key (backspace, delete, arrows) edits without completing.
	var cmd tea.Cmd

	m.tabActive = false
	m.altNav = altNav{}
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

// cycle moves the tab selection by step, wrapping at either end. A single
// candidate is completed and confirmed immediately.
func (m model) cycle(step int) model {
	n := len(m.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	switch {
	case m.tabActive:
		m.suggIdx = (m.suggIdx + step + n) % n
	case step > 0:
		m.tabActive = true
		m.preTab, m.preTabPos = m.input.Value(), m.input.Position()
		m.suggIdx = 0
	default:
		m.tabActive = true
		m.preTab, m.preTabPos = m.input.Value(), m.input.Position()
		m.suggIdx = n - 1
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the current word in the input with replacement
// and moves the cursor to its end.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	cursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refreshMatches recomputes fuzzy matches for the current input. With
// autoConfirm set, a word that already equals the sole remaining candidate is
// confirmed, so that deletions and cursor movement never complete
// unexpectedly.
func refreshMatches(m *model, autoConfirm bool) {
	m.matches, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	candidate := m.matches[0].Str

	if m.input.Value()[m.wordStart:m.wordEnd] == candidate {
		replaceCurrentWord(m, candidate)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

// recall loads history entry i into the input. With follow set, the input
// mode switches to the mode the entry was entered in.
func (m model) recall(i int, follow bool) model {
	entry, err := m.history.GetEntry(i)
	if err != nil {
		return m
	}

	m.historyIdx = i

	if follow && m.mode != entry.Mode {
		m = m.switchToMode(entry.Mode)
	}

	m.input.SetValue(entry.Line)
	m.input.SetCursor(len(entry.Line))
	refreshMatches(&m, false)

	return m
}

// seek returns the index of the nearest history entry past m.historyIdx in
// direction step for which keep reports true, or -1.
func (m model) seek(step int, keep func(HistoryEntry) bool) int {
	for i := m.historyIdx + step; i >= 0 && i < m.history.Len(); i += step {
		entry, err := m.history.GetEntry(i)
		if err == nil && (keep == nil || keep(entry)) {
			return i
		}
	}

	return -1
}

// leaveHistory returns to a blank line past the newest entry.
func (m model) leaveHistory() model {
	m.historyIdx = m.history.Len()
	m.input.SetValue("")
	refreshMatches(&m, false)

	return m
}

func (m model) historyStep(step int) model {
	if i := m.seek(step, nil); i >= 0 {
		return m.recall(i, true)
	}

	if step > 0 {
		return m.leaveHistory()
	}

	return m
}

func (m model) historyStepInMode(step int) model {
	mode := m.mode

	if i := m.seek(step, func(e HistoryEntry) bool { return e.Mode == mode }); i >= 0 {
		return m.recall(i, false)
	}

	if step > 0 && m.historyIdx < m.history.Len() {
		return m.leaveHistory()
	}

	return m
}

// historyStepCtrl walks command history only, entering command mode on the
// first step and restoring the original input when it runs off either end.
func (m model) historyStepCtrl(step int) model {
	if !m.altNav.active {
		m.altNav = altNav{
			active: true,
			mode:   m.mode,
			text:   m.input.Value(),
			cursor: m.input.Position(),
		}

		if m.mode != modeCtrl {
			m = m.switchToMode(modeCtrl)
		}
	}

	if i := m.seek(step, func(e HistoryEntry) bool { return e.Mode == modeCtrl }); i >= 0 {
		return m.recall(i, false)
	}

	orig := m.altNav
	m.altNav = altNav{}

	if orig.mode != m.mode {
		m = m.switchToMode(orig.mode)
	}

	m.input.SetValue(orig.text)
	m.input.SetCursor(orig.cursor)
	m.historyIdx = m.history.Len()
	refreshMatches(&m, false)

	return m
}
