package cmd

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/letbind/log"
	"github.com/ardnew/letbind/profile"
)

// defaultConfigIndent is the number of spaces to use for indentation
// when generating the default configuration file.
const defaultConfigIndent = 2

// Init generates a default configuration file with current flag values.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: configuration path undefined")
	}

	// Check if file exists and force not set
	_, err = os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	data, err := yaml.MarshalContext(ctx, i.settings(ktx),
		yaml.Indent(defaultConfigIndent))
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	err = os.WriteFile(confPath, data, 0o600)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	log.DebugContext(
		ctx,
		"initialized configuration file",
		slog.String("path", confPath),
		slog.Int("bytes", len(data)),
	)

	return nil
}

// settings collects the application flags with a value, in declaration
// order. Help, version and profiling flags are omitted.
func (i *Init) settings(ktx *kong.Context) yaml.MapSlice {
	var entries yaml.MapSlice

	prefixIgnore := []string{"help", "version", profile.Tag}

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(prefixIgnore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		if val, ok := settingValue(ktx.FlagValue(flag)); ok {
			entries = append(entries, yaml.MapItem{Key: flag.Name, Value: val})
		}
	}

	return entries
}

// settingValue reports the YAML form of a flag value, and false for empty
// values.
func settingValue(val any) (any, bool) {
	if val == nil {
		return nil, false
	}

	rv := reflect.ValueOf(val)

	switch rv.Kind() {
	case reflect.String:
		// Named string types such as log levels are written as plain strings.
		return rv.String(), rv.Len() > 0

	case reflect.Slice, reflect.Map:
		return val, rv.Len() > 0

	case reflect.Pointer, reflect.Interface:
		return val, !rv.IsNil()

	default:
		return val, true
	}
}
