package cli

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/letbind/log"
)

// logFormat configures the default logger as a side effect of parsing, so
// that errors reported while kong is still parsing use the selected format.
type logFormat string

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *logFormat) UnmarshalText(text []byte) error {
	*f = logFormat(text)
	log.Config(log.WithFormat(log.ParseFormat(string(*f))))

	return nil
}

// logLevel configures the default logger as a side effect of parsing.
type logLevel string

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *logLevel) UnmarshalText(text []byte) error {
	*l = logLevel(text)
	log.Config(log.WithLevel(log.ParseLevel(string(*l))))

	return nil
}

type logConfig struct {
	Level      logLevel  `default:"${logLevelDefault}"  enum:"${logLevelEnum}"  help:"Set log level."                    placeholder:"${enum}"`
	Format     logFormat `default:"${logFormatDefault}" enum:"${logFormatEnum}" help:"Set log format."                   placeholder:"${enum}"`
	TimeLayout string    `default:"RFC3339"                                     help:"Set timestamp format."`
	Caller     bool      `default:"false"                                       help:"Include caller information."       negatable:""`
	Pretty     bool      `default:"false"                                       help:"Enable colorized pretty printing." negatable:""`
}

func (*logConfig) vars() kong.Vars {
	return kong.Vars{
		"logLevelEnum":     strings.Join(slices.Collect(log.Levels()), ","),
		"logLevelDefault":  log.DefaultLevel.String(),
		"logFormatEnum":    strings.Join(slices.Collect(log.Formats()), ","),
		"logFormatDefault": log.DefaultFormat.String(),
	}
}

func (*logConfig) group() kong.Group {
	var group kong.Group

	group.Key = "log"
	group.Title = "Logging options"

	return group
}

// start applies every parsed logging flag to the default logger.
func (f *logConfig) start(ctx context.Context) {
	log.Config(
		log.WithLevel(log.ParseLevel(string(f.Level))),
		log.WithFormat(log.ParseFormat(string(f.Format))),
		log.WithTimeLayout(f.TimeLayout),
		log.WithCaller(f.Caller),
		log.WithPretty(f.Pretty),
	)

	log.DebugContext(ctx, "logger initialized",
		slog.String("level", string(f.Level)),
		slog.String("format", string(f.Format)),
		slog.String("time", f.TimeLayout),
		slog.Bool("caller", f.Caller),
		slog.Bool("pretty", f.Pretty),
	)
}

// scan applies logging flags found in args before kong parses them, so the
// logger is configured regardless of where the flags appear. Boolean flags
// never pass through UnmarshalText, which is why they are handled here.
func (f *logConfig) scan(args []string) {
	for i := 0; i < len(args); i++ {
		name, value, assigned := strings.Cut(args[i], "=")

		negate := false

		if rest, ok := strings.CutPrefix(name, "--no-log-"); ok {
			name, negate = rest, true
		} else if rest, ok := strings.CutPrefix(name, "--log-"); ok {
			name = rest
		} else {
			continue
		}

		// next consumes the following argument as a value when it is not
		// itself a flag.
		next := func() string {
			if !assigned && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++

				return args[i]
			}

			return value
		}

		switch name {
		case "level":
			_ = f.Level.UnmarshalText([]byte(next()))

		case "format":
			_ = f.Format.UnmarshalText([]byte(next()))

		case "pretty", "caller":
			enable := true

			if assigned {
				v, err := strconv.ParseBool(value)
				if err != nil {
					continue
				}

				enable = v
			}

			enable = enable != negate

			if name == "pretty" {
				f.Pretty = enable
				log.Config(log.WithPretty(enable))
			} else {
				f.Caller = enable
				log.Config(log.WithCaller(enable))
			}
		}
	}
}
