package cmd

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ardnew/letbind/log"
	"github.com/ardnew/letbind/script"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// stdout returns the writer kong was configured with, or os.Stdout when ctx
// carries no kong.Context.
func stdout(ctx context.Context) io.Writer {
	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Stdout != nil {
		return ktx.Stdout
	}

	return os.Stdout
}

// stdin returns the reader that the source "-" reads from.
func stdin(ctx context.Context) io.Reader {
	if r, ok := ctx.Value(stdinKey{}).(io.Reader); ok {
		return r
	}

	return os.Stdin
}

// WithStdin returns a new context.Context whose source "-" reads from r
// instead of os.Stdin.
func WithStdin(ctx context.Context, r io.Reader) context.Context {
	return context.WithValue(ctx, stdinKey{}, r)
}

type (
	sourceFilesKey struct{}
	stdinKey       struct{}
	sourceFiles    struct {
		paths    []string
		hasStdin bool
	}

	// SourceFiles is an ordered, deduplicated set of script sources.
	SourceFiles interface {
		IsZero() bool
		All(ctx context.Context) iter.Seq2[string, io.Reader]
	}
)

// IsZero reports whether there are no source files.
func (s *sourceFiles) IsZero() bool { return s == nil || len(s.paths) == 0 && !s.hasStdin }

// All returns an iterator over the name and content of each source, opening
// each file only while it is being read. Stdin, if included, is last and
// named "-". Files that can no longer be opened are skipped with a warning.
func (s *sourceFiles) All(ctx context.Context) iter.Seq2[string, io.Reader] {
	return func(yield func(string, io.Reader) bool) {
		if s == nil {
			return
		}

		for _, path := range s.paths {
			file, err := os.Open(path)
			if err != nil {
				log.WarnContext(ctx, "skipping source",
					slog.String("path", path),
					slog.Any("error", err),
				)

				continue
			}

			ok := yield(path, file)

			_ = file.Close()

			if !ok {
				return
			}
		}

		if s.hasStdin {
			yield(stdinSource, stdin(ctx))
		}
	}
}

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// WithSourceFiles returns a new context.Context containing the global source
// files, which every script command runs before its own input.
//
// Sources are deduplicated by resolving symlinks and comparing device/inode
// pairs. All occurrences of "-" are replaced with a single stdin source
// placed last.
func WithSourceFiles(ctx context.Context, sources []string) context.Context {
	return context.WithValue(ctx, sourceFilesKey{}, buildSourceFiles(sources))
}

// buildSourceFiles constructs a SourceFiles from the given source paths, or
// nil if none of them can be read.
func buildSourceFiles(sources []string) SourceFiles {
	if len(sources) == 0 {
		return nil
	}

	var srcs sourceFiles

	srcs.paths = make([]string, 0, len(sources))
	seen := make(map[fileKey]struct{})

	var stdinKey fileKey

	stdinInfo, err := os.Stdin.Stat()
	if err == nil {
		stdinKey, _ = makeFileKey(stdinInfo)
	}

	for _, src := range sources {
		if src == stdinSource {
			seen[stdinKey] = struct{}{}

			continue
		}

		path, ok := uniquePath(src, seen)
		if !ok {
			continue
		}

		srcs.paths = append(srcs.paths, path)
	}

	// Stdin may have been included via "-" or as a named file.
	// Both of which will be represented by stdinKey in seen.
	_, srcs.hasStdin = seen[stdinKey]

	if srcs.IsZero() {
		return nil
	}

	return &srcs
}

// uniquePath resolves path and reports whether it names a file not yet in
// seen. Paths that cannot be resolved are reported as duplicates.
func uniquePath(path string, seen map[fileKey]struct{}) (string, bool) {
	// Resolve to absolute path to handle relative path duplicates.
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	// Resolve symlinks to their target.
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", false
	}

	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return "", false
	}

	key, ok := makeFileKey(info)
	if !ok {
		return "", false
	}

	if _, exists := seen[key]; exists {
		return "", false
	}

	seen[key] = struct{}{}

	return resolved, true
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: stat.Dev, ino: stat.Ino}, true
}

// sourceFilesFrom retrieves the sources stored in ctx by WithSourceFiles.
func sourceFilesFrom(ctx context.Context) SourceFiles {
	r, _ := ctx.Value(sourceFilesKey{}).(SourceFiles)

	return r
}

// newInterpreter returns an interpreter that prints to the command's stdout
// and logs through the default logger.
func newInterpreter(ctx context.Context, opts ...script.Option) *script.Interpreter {
	return script.New(append([]script.Option{
		script.WithLogger(log.Default()),
		script.WithStdout(stdout(ctx)),
	}, opts...)...)
}

// runSources parses and runs each source in srcs with in, stopping at the
// first failure.
func runSources(ctx context.Context, in *script.Interpreter, srcs SourceFiles) error {
	if srcs == nil {
		return nil
	}

	for name, r := range srcs.All(ctx) {
		prog, err := script.ParseReader(ctx, r, script.WithLogger(log.Default()))
		if err != nil {
			return ErrRunSource.With(slog.String("source", name)).Wrap(err)
		}

		_, err = in.Run(ctx, prog)
		if err != nil {
			return ErrRunSource.With(slog.String("source", name)).Wrap(err)
		}

		log.DebugContext(ctx, "ran source",
			slog.String("source", name),
			slog.Int("statements", len(prog.Body)),
		)
	}

	return nil
}

// preload runs the global source files from ctx with in.
func preload(ctx context.Context, in *script.Interpreter) error {
	return runSources(ctx, in, sourceFilesFrom(ctx))
}
