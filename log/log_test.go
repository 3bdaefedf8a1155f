package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLogger_ZeroValueDiscards(t *testing.T) {
	t.Parallel()

	var l Logger

	l.Info("ignored")
	l.With(slog.String("k", "v")).Error("ignored")

	if l.Enabled(t.Context(), LevelError) {
		t.Error("expected zero Logger disabled")
	}

	if l.Level() != DefaultLevel || l.Format() != DefaultFormat {
		t.Errorf("expected defaults, got %v %v", l.Level(), l.Format())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fn     func(Logger, string, ...slog.Attr)
		floor  Level
		logged bool
	}{
		{"trace_at_trace", Logger.Trace, LevelTrace, true},
		{"trace_at_debug", Logger.Trace, LevelDebug, false},
		{"debug_at_info", Logger.Debug, LevelInfo, false},
		{"info_at_info", Logger.Info, LevelInfo, true},
		{"warn_at_error", Logger.Warn, LevelError, false},
		{"error_at_debug", Logger.Error, LevelDebug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			tt.fn(Make(&buf, WithLevel(tt.floor)), "message")

			if got := buf.Len() > 0; got != tt.logged {
				t.Errorf("logged = %v, want %v", got, tt.logged)
			}
		})
	}
}

func TestLogger_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	Make(&buf, WithFormat(FormatJSON), WithLevel(LevelTrace)).
		Trace("bound", slog.String("name", "x"), slog.Int("depth", 2))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if got["level"] != "TRACE" || got["msg"] != "bound" ||
		got["name"] != "x" || got["depth"] != float64(2) {
		t.Errorf("unexpected record %v", got)
	}
}

func TestLogger_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	Make(&buf, WithTimeLayout("none")).Warn("resolve", slog.String("name", "y"))

	if want := "level=WARN msg=resolve name=y\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLogger_Caller(t *testing.T) {
	t.Parallel()

	var on, off bytes.Buffer

	Make(&on, WithCaller(true)).Info("x")
	Make(&off).Info("x")

	if !strings.Contains(on.String(), "log_test.go") {
		t.Errorf("expected caller file in %q", on.String())
	}

	if strings.Contains(off.String(), "source=") {
		t.Errorf("expected no caller in %q", off.String())
	}
}

func TestLogger_WrapAndWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	base := Make(&buf, WithTimeLayout("none"))
	scoped := base.With(slog.String("scope", "block"))
	scoped.Info("a")

	loud := scoped.Wrap(WithLevel(LevelError))
	loud.Info("dropped")

	if loud.Level() != LevelError || base.Level() != DefaultLevel {
		t.Errorf("Wrap() changed the wrong logger: %v %v", loud.Level(), base.Level())
	}

	if want := "level=INFO msg=a scope=block\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLogger_PrettyText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := Make(&buf, WithPretty(true), WithTimeLayout("none"), WithLevel(LevelTrace))
	l = l.With(slog.String("file", "main.js"))
	l.Logger = l.WithGroup("bind")
	l.Trace("match", slog.String("name", "a b"), slog.Any("err", errors.New("boom")),
		slog.Bool("ok", false))

	want := `level=TRACE msg=match file=main.js bind.name="a b" bind.err="boom" bind.ok=false` + "\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLogger_PrettyJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	Make(&buf, WithPretty(true), WithFormat(FormatJSON), WithTimeLayout("none")).
		Error("failed", slog.Int("code", 1))

	want := "{\n  \"level\": \"ERROR\",\n  \"msg\": \"failed\",\n  \"code\": 1\n}\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLogger_Concurrent(t *testing.T) {
	t.Parallel()

	for _, pretty := range []bool{false, true} {
		var (
			buf bytes.Buffer
			mu  sync.Mutex
			wg  sync.WaitGroup
		)

		l := Make(writerFunc(func(p []byte) (int, error) {
			mu.Lock()
			defer mu.Unlock()

			return buf.Write(p)
		}), WithPretty(pretty))

		for i := range 100 {
			wg.Go(func() { l.Info("concurrent", slog.Int("id", i)) })
		}

		wg.Wait()

		if n := strings.Count(buf.String(), "msg=concurrent"); n != 100 {
			t.Errorf("pretty=%v: expected 100 records, got %d", pretty, n)
		}
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
