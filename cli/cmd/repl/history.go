package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"
)

const baseHistory = "history.utf8"

// maxHistory bounds the number of entries kept on disk.
const maxHistory = 1000

// HistoryEntry represents a single history entry with its mode.
type HistoryEntry struct {
	Line string
	Mode inputMode
}

func (e HistoryEntry) encode() string {
	if e.Mode == modeCtrl {
		return "C:" + e.Line + "\n"
	}

	return "E:" + e.Line + "\n"
}

func decodeHistoryEntry(line string) HistoryEntry {
	if s, ok := strings.CutPrefix(line, "C:"); ok {
		return HistoryEntry{Line: s, Mode: modeCtrl}
	}

	s, _ := strings.CutPrefix(line, "E:")

	return HistoryEntry{Line: s, Mode: modeEval}
}

// History is the REPL input history, persisted one entry per line.
type History struct {
	path    string
	entries []HistoryEntry
	mu      sync.RWMutex
}

// NewHistory returns an empty history persisted at path.
func NewHistory(path string) *History {
	return &History{path: path}
}

// Path returns the history file path.
func (h *History) Path() string { return h.path }

// Load replaces the entries with those read from the history file. A missing
// file is an empty history.
func (h *History) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.Open(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}
	defer file.Close()

	h.entries = nil

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}

		h.entries = append(h.entries, decodeHistoryEntry(scanner.Text()))
	}

	return scanner.Err()
}

// WriteWithMode appends entry to the history. An older identical entry is
// moved to the end rather than repeated.
func (h *History) WriteWithMode(line string, mode inputMode) (int, error) {
	if strings.TrimSpace(line) == "" {
		return 0, nil
	}

	entry := HistoryEntry{Line: line, Mode: mode}

	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 && h.entries[n-1] == entry {
		return 0, nil
	}

	i := slices.Index(h.entries, entry)
	if i >= 0 {
		h.entries = slices.Delete(h.entries, i, i+1)
	}

	h.entries = append(h.entries, entry)

	if i >= 0 || len(h.entries) > maxHistory {
		if len(h.entries) > maxHistory {
			h.entries = slices.Clone(h.entries[len(h.entries)-maxHistory:])
		}

		return h.rewrite()
	}

	file, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return file.WriteString(entry.encode())
}

// GetEntry returns entry i, oldest first.
func (h *History) GetEntry(i int) (HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, ErrOutOfBounds
	}

	return h.entries[i], nil
}

// Len returns the number of history entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Entries returns a copy of all history entries.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Clone(h.entries)
}

// rewrite replaces the history file with the current entries. The caller
// holds h.mu.
func (h *History) rewrite() (int, error) {
	var b strings.Builder

	for _, e := range h.entries {
		b.WriteString(e.encode())
	}

	err := os.WriteFile(h.path, []byte(b.String()), 0o600)
	if err != nil {
		return 0, err
	}

	return b.Len(), nil
}
