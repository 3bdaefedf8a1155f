package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// debugBin matches the executable names written by the dlv debugger.
var debugBin = regexp.MustCompile(`^__debug_bin\d*$`)

// Prefix returns the base name of the running executable, used to name the
// configuration and cache directories and the environment variables that
// relocate them. Debugger builds map to [Name], and leading dots are removed.
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(
	func() string {
		exe, err := os.Executable()
		if err != nil {
			exe = os.Args[0]
		}

		id := filepath.Base(exe)
		id = strings.TrimSuffix(id, filepath.Ext(id))
		id = strings.TrimLeft(id, ".")

		if id == "" || debugBin.MatchString(id) {
			return Name
		}

		return id
	},
)

// EnvPrefix returns the prefix of environment variables read by the
// executable, such as LETBIND_CONFIG_DIR.
func EnvPrefix() string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(Prefix()))
}

// ConfigDir returns the configuration directory path. The environment
// variable <EnvPrefix>_CONFIG_DIR overrides the user configuration directory.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(
	func() string { return userDir("CONFIG_DIR", os.UserConfigDir, ".config") },
)

// CacheDir returns the cache directory path used for transient files such as
// REPL history and profiles. The environment variable <EnvPrefix>_CACHE_DIR
// overrides the user cache directory.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(
	func() string { return userDir("CACHE_DIR", os.UserCacheDir, ".cache") },
)

// userDir resolves a per-user directory for the executable. It falls back to
// hidden under the home directory, then to the working directory.
func userDir(env string, base func() (string, error), hidden string) string {
	if dir := os.Getenv(EnvPrefix() + "_" + env); dir != "" {
		return dir
	}

	dir, err := base()
	if err == nil {
		return filepath.Join(dir, Prefix())
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, hidden, Prefix())
	}

	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, hidden, Prefix())
	}

	return filepath.Join(".", hidden, Prefix())
}
