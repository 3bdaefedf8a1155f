package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles used by the pretty handlers. Styles are bound to
// a renderer for the handler's writer, so color is dropped automatically when
// the writer is not a terminal.
type palette struct {
	key, str, num, dur, tim, null lipgloss.Style
	yes, no                       lipgloss.Style
	level                         map[slog.Level]lipgloss.Style
}

func makePalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	fg := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c))
	}

	return palette{
		key:  fg("8"),
		str:  fg("6"),
		num:  fg("3"),
		dur:  fg("5"),
		tim:  fg("4"),
		null: fg("8"),
		yes:  fg("2"),
		no:   fg("1"),
		level: map[slog.Level]lipgloss.Style{
			slog.Level(LevelTrace): fg("4").Faint(true),
			slog.LevelDebug:        fg("4"),
			slog.LevelInfo:         fg("2"),
			slog.LevelWarn:         fg("3").Bold(true),
			slog.LevelError:        fg("1").Bold(true),
		},
	}
}

func (p palette) levelStyle(l slog.Level) lipgloss.Style {
	switch {
	case l >= slog.LevelError:
		return p.level[slog.LevelError]
	case l >= slog.LevelWarn:
		return p.level[slog.LevelWarn]
	case l >= slog.LevelInfo:
		return p.level[slog.LevelInfo]
	case l >= slog.LevelDebug:
		return p.level[slog.LevelDebug]
	default:
		return p.level[slog.Level(LevelTrace)]
	}
}

// prettyTextHandler writes one colorized key=value line per record.
type prettyTextHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	style  palette
	prefix string // dotted group path applied to record attributes
	preset []byte // pre-rendered attributes from WithAttrs
}

func newPrettyTextHandler(w io.Writer, opts *slog.HandlerOptions) *prettyTextHandler {
	return &prettyTextHandler{
		opts:  *opts,
		mu:    &sync.Mutex{},
		w:     w,
		style: makePalette(w),
	}
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	floor := slog.LevelInfo
	if h.opts.Level != nil {
		floor = h.opts.Level.Level()
	}

	return level >= floor
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	if !r.Time.IsZero() {
		h.writeAttr(buf, "", slog.Time(slog.TimeKey, r.Time))
	}

	if buf.Len() > 0 {
		buf.WriteByte(' ')
	}

	buf.WriteString(h.style.key.Render(slog.LevelKey))
	buf.WriteByte('=')
	buf.WriteString(h.renderValue(slog.AnyValue(r.Level)))

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			h.writeAttr(buf, "", slog.String(slog.SourceKey,
				fmt.Sprintf("%s:%d", src.File, src.Line)))
		}
	}

	h.writeAttr(buf, "", slog.String(slog.MessageKey, r.Message))

	if len(h.preset) > 0 {
		buf.WriteByte(' ')
		buf.Write(h.preset)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf, h.prefix, a)

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	buf := bytes.NewBuffer(append([]byte(nil), h.preset...))
	for _, a := range attrs {
		h.writeAttr(buf, h.prefix, a)
	}

	c := *h
	c.preset = bytes.TrimLeft(buf.Bytes(), " ")

	return &c
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.prefix = h.prefix + name + "."

	return &c
}

func (h *prettyTextHandler) writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()

	if rep := h.opts.ReplaceAttr; rep != nil && a.Value.Kind() != slog.KindGroup {
		var groups []string
		if prefix != "" {
			groups = strings.Split(strings.TrimSuffix(prefix, "."), ".")
		}

		a = rep(groups, a)
		a.Value = a.Value.Resolve()
	}

	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub += a.Key + "."
		}

		for _, g := range a.Value.Group() {
			h.writeAttr(buf, sub, g)
		}

		return
	}

	if buf.Len() > 0 {
		buf.WriteByte(' ')
	}

	buf.WriteString(h.style.key.Render(prefix + a.Key))
	buf.WriteByte('=')
	buf.WriteString(h.renderValue(a.Value))
}

func (h *prettyTextHandler) renderValue(v slog.Value) string {
	p := h.style

	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			s = strconv.Quote(s)
		}

		return p.str.Render(s)

	case slog.KindInt64:
		return p.num.Render(strconv.FormatInt(v.Int64(), 10))

	case slog.KindUint64:
		return p.num.Render(strconv.FormatUint(v.Uint64(), 10))

	case slog.KindFloat64:
		return p.num.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64))

	case slog.KindBool:
		if v.Bool() {
			return p.yes.Render("true")
		}

		return p.no.Render("false")

	case slog.KindDuration:
		return p.dur.Render(v.Duration().String())

	case slog.KindTime:
		return p.tim.Render(v.Time().Format(time.RFC3339))

	case slog.KindAny:
		switch x := v.Any().(type) {
		case slog.Level:
			return p.levelStyle(x).Render(strings.ToUpper(Level(x).String()))
		case nil:
			return p.null.Render("<nil>")
		case error:
			return p.no.Render(strconv.Quote(x.Error()))
		}
	}

	return p.str.Render(v.String())
}

// prettyJSONHandler writes each record as an indented JSON object.
type prettyJSONHandler struct {
	slog.Handler

	mu  *sync.Mutex
	buf *bytes.Buffer
	w   io.Writer
}

func newPrettyJSONHandler(w io.Writer, opts *slog.HandlerOptions) *prettyJSONHandler {
	buf := new(bytes.Buffer)

	return &prettyJSONHandler{
		Handler: slog.NewJSONHandler(buf, opts),
		mu:      &sync.Mutex{},
		buf:     buf,
		w:       w,
	}
}

func (h *prettyJSONHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	defer h.buf.Reset()

	if err := h.Handler.Handle(ctx, r); err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(h.buf.Bytes()), "", "  "); err != nil {
		return err
	}

	out.WriteByte('\n')

	_, err := h.w.Write(out.Bytes())

	return err
}

func (h *prettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.Handler = h.Handler.WithAttrs(attrs)

	return &c
}

func (h *prettyJSONHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.Handler = h.Handler.WithGroup(name)

	return &c
}
