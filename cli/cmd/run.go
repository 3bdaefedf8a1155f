package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/letbind/lang"
	"github.com/ardnew/letbind/log"
	"github.com/ardnew/letbind/script"
)

// Run executes scripts in one global scope and prints the bindings they
// leave behind.
type Run struct {
	Format     string `default:"native" enum:"native,json,yaml" help:"Output format (${enum})."                                   short:"o"`
	Indent     int    `default:"2"                               help:"Indent width for JSON and YAML output."                      short:"i"`
	Expr       string `                                          help:"Evaluate an expression after the sources and print its value." short:"e"`
	ObjectRest bool   `default:"true"                            help:"Allow rest elements in object patterns."                     negatable:""`

	Sources []string `arg:"" help:"Source input file(s) or '-' for stdin." name:"source" optional:""`
}

// Run executes the run command.
func (r *Run) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	in := newInterpreter(ctx, script.WithObjectRest(r.ObjectRest))

	if err := preload(ctx, in); err != nil {
		return err
	}

	sources := r.Sources
	if len(sources) == 0 && r.Expr == "" {
		sources = []string{stdinSource}
	}

	if err := runSources(ctx, in, buildSourceFiles(sources)); err != nil {
		return err
	}

	w := stdout(ctx)

	if r.Expr == "" {
		err = script.WriteBindings(ctx, w, in.Global(), r.Format, r.Indent)
		if err != nil {
			return ErrWriteOutput.With(slog.String("format", r.Format)).Wrap(err)
		}

		return nil
	}

	v, err := in.Exec(ctx, r.Expr)
	if err != nil {
		return ErrEvalExpr.With(slog.String("expr", r.Expr)).Wrap(err)
	}

	if v == nil {
		v = lang.Missing
	}

	log.DebugContext(ctx, "evaluated expression",
		slog.String("expr", r.Expr),
		slog.String("kind", v.Kind().String()),
	)

	err = script.WriteValue(ctx, w, v, r.Format, r.Indent)
	if err != nil {
		return ErrWriteOutput.With(slog.String("format", r.Format)).Wrap(err)
	}

	return nil
}
