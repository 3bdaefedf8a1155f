package script

// This file defines the builtin bindings visible to every program. They live
// in an immutable scope above the global scope, so programs may shadow them
// but never reassign them.
//
// Host facts are gathered once per process; the env builtin reads the
// process environment captured when the interpreter is created.

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/ardnew/mung"
	"github.com/expr-lang/expr/builtin"

	"github.com/ardnew/letbind/lang"
)

//nolint:gochecknoglobals
var (
	hostOnce sync.Once
	host     map[string]lang.Value
)

func hostFacts() map[string]lang.Value {
	hostOnce.Do(func() {
		host = map[string]lang.Value{
			"target":   getTarget().object(),
			"platform": getPlatform().object(),
			"hostname": lang.String(getHostname()),
			"user":     userObject(getUser()),
			"shell":    lang.String(getShell()),
		}
	})

	return host
}

// builtins returns the scope of builtin bindings for cfg.
func builtins(cfg config) *lang.Scope {
	scope := lang.NewScope(nil, lang.Global)

	processEnv := buildProcessEnvMap(cfg.processEnv)

	values := map[string]lang.Value{
		"env":         envFunc(processEnv),
		"cwd":         native("cwd", getCwd),
		"keys":        keysFunc,
		"null":        lang.Null,
		"undefined":   lang.Missing,
		"print":       printFunc(cfg.stdout),
		"raw":         lang.RawTag,
		"reconstruct": lang.Reconstruct,
		"file": namespace(
			"exists", native("exists", fileExists),
			"isDir", native("isDir", fileIsDir),
			"isRegular", native("isRegular", fileIsRegular),
			"isSymlink", native("isSymlink", fileIsSymlink),
		),
		"path": namespace(
			"abs", native("abs", pathAbs),
			"cat", native("cat", pathCat),
			"rel", native("rel", pathRel),
		),
		"mung": namespace(
			"prefix", native("prefix", mungPrefix),
			"prefixif", native("prefixif", mungPrefixIf),
		),
	}

	for k, v := range hostFacts() {
		values[k] = v
	}

	for _, name := range BuiltinNames() {
		_ = scope.Declare(name, lang.ImmutableBlock)
		_ = scope.Initialize(name, values[name])
	}

	return scope
}

// BuiltinNames returns the names of the builtin bindings in sorted order.
func BuiltinNames() []string {
	names := []string{
		"cwd", "env", "file", "hostname", "keys", "mung", "null", "path",
		"platform", "print", "raw", "reconstruct", "shell", "target",
		"undefined", "user",
	}

	slices.Sort(names)

	return names
}

func native(name string, fn any) *lang.Callable {
	c := wrapFunc(reflect.ValueOf(fn))
	c.Name = name

	return c
}

func namespace(kv ...any) *lang.Object {
	return lang.ObjectOf(kv...).Freeze()
}

// ---------------------------------------------------------------------------
// System information helpers
// ---------------------------------------------------------------------------

// target contains string identifiers for a target operating system and
// instruction set architecture.
//
// Leaving the conventions unspecified allows this type to be used
// in a variety of contexts.
type target struct {
	OS   string
	Arch string
}

func (t target) object() *lang.Object {
	return lang.ObjectOf("os", lang.String(t.OS), "arch", lang.String(t.Arch)).Freeze()
}

// getTarget returns the host target using GNU GCC/LLVM naming conventions.
func getTarget() target {
	t := getPlatform()

	switch t.Arch {
	case "386":
		t.Arch = "i386"
	case "amd64":
		t.Arch = "x86_64"
	case "arm":
		arm, ok := os.LookupEnv("GOARM")
		if ok {
			arm, _, _ = strings.Cut(arm, ",")
			switch strings.TrimSpace(arm) {
			case "5", "6", "7":
				t.Arch = "armv" + arm
			}
		}
	case "arm64":
		if t.OS != "darwin" {
			t.Arch = "aarch64"
		}
	case "mipsle":
		t.Arch = "mipsel"
	}

	return t
}

// getPlatform returns the host target using Go conventions.
func getPlatform() target {
	var (
		o, a string
		ok   bool
	)

	if o, ok = os.LookupEnv("GOHOSTOS"); !ok {
		if o, ok = os.LookupEnv("GOOS"); !ok {
			o = runtime.GOOS
		}
	}

	if a, ok = os.LookupEnv("GOHOSTARCH"); !ok {
		if a, ok = os.LookupEnv("GOARCH"); !ok {
			a = runtime.GOARCH
		}
	}

	return target{OS: o, Arch: a}
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}

	return hostname
}

func getUser() *user.User {
	u, err := user.Current()
	if err != nil {
		return nil
	}

	return u
}

func userObject(u *user.User) lang.Value {
	if u == nil {
		return lang.Null
	}

	return lang.ObjectOf(
		"username", lang.String(u.Username),
		"name", lang.String(u.Name),
		"uid", lang.String(u.Uid),
		"gid", lang.String(u.Gid),
		"home", lang.String(u.HomeDir),
	).Freeze()
}

func getShell() string {
	shell, ok := os.LookupEnv("SHELL")
	if ok {
		return shell
	}

	u := getUser()
	if u == nil || u.Username == "" {
		return ""
	}

	f, err := os.Open("/etc/passwd")
	if err != nil {
		return ""
	}

	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		e := strings.Split(s.Text(), ":")
		if len(e) > 6 && e[0] == u.Username {
			return e[6]
		}
	}

	return ""
}

func getCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return cwd
}

// ---------------------------------------------------------------------------
// Filesystem and path functions
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}

func fileIsRegular(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular()
}

func fileIsSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeSymlink != 0
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func pathCat(elem ...string) string {
	return filepath.Join(elem...)
}

func pathRel(from, to string) string {
	p, err := filepath.Rel(pathAbs(from), pathAbs(to))
	if err != nil {
		return pathCat(from, to)
	}

	return p
}

// ---------------------------------------------------------------------------
// PATH-like string manipulation (mung)
// ---------------------------------------------------------------------------

func mungPrefix(key string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(key),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}

func mungPrefixIf(
	key string,
	predicate func(string) bool,
	prefix ...string,
) string {
	return mung.Make(
		mung.WithSubjectItems(key),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
		mung.WithFilter(predicate),
	).String()
}

// ---------------------------------------------------------------------------
// Process environment and output
// ---------------------------------------------------------------------------

// buildProcessEnvMap converts a "KEY=VALUE" string slice to a map.
// If envList is nil, os.Environ() is used.
func buildProcessEnvMap(envList []string) map[string]string {
	if envList == nil {
		envList = os.Environ()
	}

	result := make(map[string]string, len(envList))

	for _, entry := range envList {
		key, value, ok := strings.Cut(entry, "=")
		if ok {
			result[key] = value
		}
	}

	return result
}

// envFunc returns the env builtin. Called with a name it returns that
// variable, or Missing when unset; called without arguments it returns every
// variable as an object.
func envFunc(processEnv map[string]string) *lang.Callable {
	return labelled(lang.NewCallable("env", func(_ context.Context, _ *lang.Callable, args []lang.Value) (lang.Value, error) {
		if len(args) == 0 {
			o := lang.NewObject()
			for _, k := range slices.Sorted(maps.Keys(processEnv)) {
				_ = o.Set(k, lang.String(processEnv[k]))
			}

			return o.Freeze(), nil
		}

		v, ok := processEnv[lang.Stringify(args[0])]
		if !ok {
			return lang.Missing, nil
		}

		return lang.String(v), nil
	}), "[name]")
}

// printFunc returns the print builtin, which writes its arguments separated
// by spaces and followed by a newline.
func printFunc(w io.Writer) *lang.Callable {
	return labelled(lang.NewCallable("print", func(_ context.Context, _ *lang.Callable, args []lang.Value) (lang.Value, error) {
		part := make([]string, len(args))
		for i, a := range args {
			part[i] = lang.Stringify(a)
		}

		_, err := fmt.Fprintln(w, strings.Join(part, " "))
		if err != nil {
			return nil, ErrRuntime.Wrap(err)
		}

		return lang.Missing, nil
	}), "...values")
}

// keysFunc is the keys builtin, returning the own keys of its argument.
//
//nolint:gochecknoglobals
var keysFunc = labelled(lang.NewCallable("keys", func(_ context.Context, _ *lang.Callable, args []lang.Value) (lang.Value, error) {
	l := lang.NewList()

	if len(args) > 0 {
		for _, k := range lang.Keys(args[0]) {
			_ = l.Append(lang.String(k))
		}
	}

	return l, nil
}), "value")

// labelled sets the display labels of c's parameters.
func labelled(c *lang.Callable, params ...string) *lang.Callable {
	c.Params = params

	return c
}

// ExprBuiltins returns the names of the functions the expression engine
// provides, such as len and filter, less those a builtin binding replaces.
func ExprBuiltins() []string {
	names := slices.Sorted(maps.Keys(builtin.Index))
	bound := BuiltinNames()

	return slices.DeleteFunc(names, func(name string) bool {
		_, found := slices.BinarySearch(bound, name)

		return found
	})
}
