// Package profile provides optional runtime profiling of the letbind
// interpreter using [github.com/pkg/profile].
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof .
//	letbind --pprof-mode cpu run script.js
//	go tool pprof -http=: $XDG_CACHE_HOME/letbind/pprof/cpu.pprof
//
// Without the tag, [Modes] is empty and [Profiler.Start] returns a no-op
// stopper. With the tag, the package also registers the [net/http/pprof]
// handlers for programs that serve HTTP.
package profile

// Tag is the build tag required to enable profiling.
const Tag = `pprof`
