package cmd

import (
	"context"

	"github.com/ardnew/letbind/cli/cmd/repl"
	"github.com/ardnew/letbind/log"
	"github.com/ardnew/letbind/script"
)

// Repl starts an interactive session over one global scope.
type Repl struct {
	ObjectRest bool `default:"true" help:"Allow rest elements in object patterns." negatable:""`
}

// Run executes the repl command. The global source files run first, so their
// bindings are in scope at the first prompt.
func (r *Repl) Run(ctx context.Context) error {
	in := newInterpreter(ctx, script.WithObjectRest(r.ObjectRest))

	if err := preload(ctx, in); err != nil {
		return err
	}

	var cacheDir string
	if ktx := kongContextFrom(ctx); ktx != nil {
		cacheDir = ktx.Model.Vars()[CacheIdentifier]
	}

	return repl.Run(ctx, in, cacheDir, log.Default())
}
