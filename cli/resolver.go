package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/letbind/lang"
	"github.com/ardnew/letbind/log"
	"github.com/ardnew/letbind/script"
)

// resolveYAML returns a [kong.ConfigurationLoader] for YAML configuration
// files.
//
// Nested mappings name flags by joining keys with hyphens, so both of these
// set --log-level:
//
//	log-level: debug
//
//	log:
//	  level: debug
//
// Keys may use underscores in place of hyphens. Settings under a command
// name apply only to that command's flags:
//
//	run:
//	  format: json
//
// A file that is not valid YAML is ignored with a warning, and command-line
// flags override every file setting.
func resolveYAML(ctx context.Context) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		var tree map[string]any

		err := yaml.NewDecoder(r).DecodeContext(ctx, &tree)
		if err != nil && !errors.Is(err, io.EOF) {
			log.WarnContext(ctx, "ignoring invalid configuration",
				slog.String("format", "yaml"),
				slog.Any("error", err),
			)

			return config{}, nil
		}

		cfg := config{}
		cfg.flatten("", tree)

		return cfg, nil
	}
}

// resolveScript returns a [kong.ConfigurationLoader] for configuration
// written as a script. The script runs in a fresh interpreter and must bind
// an object named name, whose members are read like a YAML mapping:
//
//	const config = {
//	  log: { level: "debug", pretty: true },
//	  run: { format: "json" },
//	}
func resolveScript(ctx context.Context, name string) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		in := script.New(script.WithStdout(io.Discard))

		prog, err := script.ParseReader(ctx, r)
		if err == nil {
			_, err = in.Run(ctx, prog)
		}

		var v lang.Value
		if err == nil {
			v, err = in.Global().Resolve(name)
		}

		if err != nil {
			log.WarnContext(ctx, "ignoring invalid configuration",
				slog.String("format", "script"),
				slog.Any("error", err),
			)

			return config{}, nil
		}

		tree, ok := script.Export(v).(map[string]any)
		if !ok {
			log.WarnContext(ctx, "ignoring configuration that is not an object",
				slog.String("name", name),
				slog.String("kind", v.Kind().String()),
			)

			return config{}, nil
		}

		cfg := config{}
		cfg.flatten("", tree)

		return cfg, nil
	}
}

// config implements [kong.Resolver] over flattened configuration keys.
type config map[string]any

// Validate implements [kong.Resolver].
func (c config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (c config) Resolve(
	_ *kong.Context,
	parent *kong.Path,
	flag *kong.Flag,
) (any, error) {
	names := []string{flag.Name}

	if parent != nil && parent.Command != nil {
		names = append([]string{parent.Command.Name + "-" + flag.Name}, names...)
	}

	for _, name := range names {
		if value, ok := c[name]; ok {
			return value, nil
		}

		if value, ok := c[strings.ReplaceAll(name, "-", "_")]; ok {
			return value, nil
		}
	}

	// Not found - return nil to let Kong use defaults
	return nil, nil //nolint:nilnil
}

// flatten stores the leaves of tree under hyphen-joined keys.
func (c config) flatten(prefix string, tree map[string]any) {
	for key, val := range tree {
		if prefix != "" {
			key = prefix + "-" + key
		}

		if sub, ok := val.(map[string]any); ok {
			c.flatten(key, sub)

			continue
		}

		c[key] = flagValue(val)
	}
}

// flagValue converts a decoded configuration value to a form kong decodes:
// numbers become strings and sequences become []any.
func flagValue(val any) any {
	switch v := val.(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = flagValue(x)
		}

		return out
	}

	return val
}
