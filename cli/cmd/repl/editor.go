package repl

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/ardnew/letbind/log"
	"github.com/ardnew/letbind/script"
)

const defaultEditor = "vi"

// editCommand implements [tea.ExecCommand]: it opens the user's editor on a
// scratch script and parses the result, offering to re-edit on syntax
// errors.
type editCommand struct {
	content string
	ctxFunc func() context.Context
	prog    *script.Program
	logger  log.Logger
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func (c *editCommand) SetStdin(r io.Reader)  { c.stdin = r }
func (c *editCommand) SetStdout(w io.Writer) { c.stdout = w }
func (c *editCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run loops until the buffer parses, is saved empty, or the user declines to
// re-edit, in which case it returns [ErrEditDeclined].
func (c *editCommand) Run() error {
	ctx := c.ctxFunc()

	f, err := os.CreateTemp("", "letbind-repl-*.js")
	if err != nil {
		return err
	}

	path := f.Name()
	defer os.Remove(path)

	if err := f.Close(); err != nil {
		return err
	}

	content := []byte(c.content)

	for {
		if err := os.WriteFile(path, content, 0o600); err != nil {
			return err
		}

		if err := runEditor(ctx, c.stdin, c.stdout, c.stderr, path); err != nil {
			return err
		}

		content, err = os.ReadFile(path)
		if err != nil {
			return err
		}

		if len(bytes.TrimSpace(content)) == 0 {
			return nil
		}

		prog, err := script.ParseString(ctx, string(content),
			script.WithLogger(c.logger))

		c.logger.TraceContext(ctx, "editor parse attempt",
			slog.Int("content_length", len(content)),
			slog.Bool("success", err == nil),
		)

		if err == nil {
			c.prog = prog

			return nil
		}

		fmt.Fprintf(c.stderr, "\nsyntax error: %s\n", err)
		fmt.Fprintf(c.stdout, "Re-edit? [Y/n] ")

		scanner := bufio.NewScanner(c.stdin)
		if !scanner.Scan() {
			return ErrEditDeclined
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "n", "no":
			return ErrEditDeclined
		}
	}
}

// runEditor runs $EDITOR, or vi, on path.
func runEditor(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	fields := strings.Fields(editor)

	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], path)...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}
