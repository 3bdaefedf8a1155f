package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/ardnew/letbind/log"
	"github.com/ardnew/letbind/script"
)

// Fmt parses a script and prints it in the chosen representation.
type Fmt struct {
	Source Source `cmd:"" default:"withargs" help:"Format as canonical source (default)."`
	JSON   JSON   `cmd:""                    help:"Format the syntax tree as JSON."`
	YAML   YAML   `cmd:""                    help:"Format the syntax tree as YAML."`
}

// Source formats input as canonical script source.
type Source struct {
	Indent int `default:"2" help:"Indent width for nested blocks; 0 writes one line." short:"i"`

	Path string `arg:"" default:"-" help:"Source input file or '-' for stdin." name:"source"`
}

// Run executes the fmt source command.
func (f *Source) Run(ctx context.Context) error {
	return format(ctx, f.Path, "source", func(p *script.Program, w io.Writer) error {
		return p.Format(ctx, w, f.Indent)
	})
}

// JSON formats the syntax tree of input as JSON.
type JSON struct {
	Indent int `default:"2" help:"Indent width for JSON output; 0 writes one line." short:"i"`

	Path string `arg:"" default:"-" help:"Source input file or '-' for stdin." name:"source"`
}

// Run executes the fmt json command.
func (j *JSON) Run(ctx context.Context) error {
	return format(ctx, j.Path, "json", func(p *script.Program, w io.Writer) error {
		return p.FormatJSON(ctx, w, j.Indent)
	})
}

// YAML formats the syntax tree of input as YAML.
type YAML struct {
	Indent int `default:"2" help:"Indent width for YAML output; 0 writes flow style." short:"i"`

	Path string `arg:"" default:"-" help:"Source input file or '-' for stdin." name:"source"`
}

// Run executes the fmt yaml command.
func (y *YAML) Run(ctx context.Context) error {
	return format(ctx, y.Path, "yaml", func(p *script.Program, w io.Writer) error {
		return p.FormatYAML(ctx, w, y.Indent)
	})
}

// format parses the script at path and writes it to the command's stdout
// with write.
func format(
	ctx context.Context,
	path, name string,
	write func(*script.Program, io.Writer) error,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	srcs := buildSourceFiles([]string{path})
	if srcs == nil {
		return ErrFormat.
			With(slog.String("source", path), slog.String("format", name)).
			Wrap(script.ErrReadInput)
	}

	for src, r := range srcs.All(ctx) {
		prog, err := script.ParseReader(ctx, r, script.WithLogger(log.Default()))
		if err != nil {
			return ErrFormat.
				With(slog.String("source", src), slog.String("format", name)).
				Wrap(err)
		}

		if err := write(prog, stdout(ctx)); err != nil {
			return ErrWriteOutput.With(slog.String("format", name)).Wrap(err)
		}
	}

	return nil
}
