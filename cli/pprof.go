//go:build pprof

package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/letbind/log"
	"github.com/ardnew/letbind/pkg"
	"github.com/ardnew/letbind/profile"
)

type pprofConfig struct {
	Mode string `default:""            enum:",${pprofModeEnum}" help:"Enable profiling"         placeholder:"${enum}" short:"p"`
	Dir  string `default:"${pprofDir}"                          help:"Profile output directory"                                 type:"path"`
}

func (pprofConfig) vars() kong.Vars {
	return kong.Vars{
		"pprofModeEnum": strings.Join(profile.Modes(), ","),
		"pprofDir":      filepath.Join(pkg.CacheDir(), profile.Tag),
	}
}

func (pprofConfig) group() kong.Group {
	var group kong.Group

	group.Key = "pprof"
	group.Title = "Profiling (pprof)"

	return group
}

// start begins profiling when a mode is selected. The returned function
// flushes the profile.
func (f pprofConfig) start(ctx context.Context) (stop func()) {
	prof := profile.New(
		profile.WithMode(f.Mode),
		profile.WithPath(f.Dir),
		profile.WithQuiet(true),
	)

	if !prof.Enabled() {
		return func() {}
	}

	attrs := []slog.Attr{slog.String("mode", f.Mode), slog.String("dir", f.Dir)}

	log.DebugContext(ctx, "pprof start", attrs...)

	session := prof.Start()

	return func() {
		session.Stop()
		log.DebugContext(ctx, "pprof stop", attrs...)
	}
}
