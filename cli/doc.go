// Package cli contains the command line interface for letbind.
//
// # Usage
//
//	letbind [flags] [run] [source ...]
//	letbind fmt [source|json|yaml] [source]
//	letbind repl
//	letbind init [--force]
//
// Without a command, the scripts named on the command line (or stdin) run in
// one global scope and the resulting bindings are printed.
//
// # Configuration
//
// Flag defaults are read from the configuration directory, in increasing
// order of precedence:
//
//   - config.json, decoded by [kong.JSON]
//   - config.js, a script that binds an object named config
//   - config.yaml, written by the init command
//
// Nested keys join with hyphens to name a flag, so "log: {level: debug}"
// sets --log-level. Command-line flags override every file.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize text output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o letbind .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default: the pprof
//     directory under the cache directory)
package cli
