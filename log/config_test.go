package log

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{" TRACE ", LevelTrace},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"WARN", LevelWarn},
		{"error", LevelError},
		{"debug+2", LevelDebug + 2},
		{"bogus", DefaultLevel},
		{"", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Format{
		"json": FormatJSON, "JSON": FormatJSON, "text": FormatText,
		"yaml": DefaultFormat,
	} {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelsAndFormats(t *testing.T) {
	t.Parallel()

	if got, want := slices.Collect(Levels()), []string{"trace", "debug", "info", "warn", "error"}; !slices.Equal(got, want) {
		t.Errorf("Levels() = %v, want %v", got, want)
	}

	if got, want := slices.Collect(Formats()), []string{"text", "json"}; !slices.Equal(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
}

func TestMakeConfig_Defaults(t *testing.T) {
	t.Parallel()

	c := makeConfig(nil)

	if c.output == nil {
		t.Error("expected nil output replaced with a discarding writer")
	}

	if c.level != DefaultLevel || c.format != DefaultFormat ||
		c.caller != DefaultCaller || c.pretty != DefaultPretty {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestOptions_ReturnModifiedCopies(t *testing.T) {
	t.Parallel()

	base := makeConfig(nil)
	next := apply(base, WithLevel(LevelError), WithFormat(FormatJSON),
		WithCaller(true), WithPretty(true), nil)

	if base.level != DefaultLevel || base.caller {
		t.Error("expected original configuration unchanged")
	}

	if next.level != LevelError || next.format != FormatJSON ||
		!next.caller || !next.pretty {
		t.Errorf("expected all options applied, got %+v", next)
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, 10, 15, 14, 30, 45, 123456789, time.UTC)

	tests := []struct {
		name   string
		layout string
		want   string
	}{
		{"rfc3339", "RFC3339", "2023-10-15T14:30:45Z"},
		{"rfc3339_nano", "rfc-3339-nano", "2023-10-15T14:30:45.123456789Z"},
		{"kitchen", "Kitchen", "2:30PM"},
		{"date_time", "date_time", "2023-10-15 14:30:45"},
		{"custom", "2006/01/02", "2023/10/15"},
		{"none", "none", ""},
		{"empty", "", ""},
		{"whitespace", " \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := WithTimeLayout(tt.layout)(config{})

			if got := c.formatTime(now); got != tt.want {
				t.Errorf("formatTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandler_OmitsTimestamp(t *testing.T) {
	t.Parallel()

	var buf strings.Builder

	Make(&buf, WithTimeLayout("none")).Info("x")

	if strings.Contains(buf.String(), "time=") {
		t.Errorf("expected no timestamp, got %q", buf.String())
	}
}

func BenchmarkFormatTime(b *testing.B) {
	c := WithTimeLayout("RFC3339Nano")(config{})
	now := time.Now()

	for b.Loop() {
		_ = c.formatTime(now)
	}
}
