// Package cmd implements the letbind subcommands: run, fmt, repl and init.
//
// Every script command executes the global --source files first, in one
// interpreter, so that later input sees their bindings.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file written by init.
	ConfigIdentifier = "config"
)
