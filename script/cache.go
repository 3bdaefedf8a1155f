package script

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// sources caches parsed programs keyed by the hash of their source text.
//
//nolint:gochecknoglobals
var sources sync.Map

// state tracks the parse of one source.
type state struct {
	once sync.Once
	prog *Program
	err  error
}

// ParseReader parses a script read from r. Programs are cached by source
// content, so parsing the same text again returns the same *Program. The
// cache is bypassed with WithCache(false).
func ParseReader(ctx context.Context, r io.Reader, opts ...Option) (*Program, error) {
	// Wrap reader with async read-ahead for concurrent I/O.
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("source", "reader"))
	}

	cfg := makeConfig(opts...)

	cfg.logger.TraceContext(ctx, "read input",
		slog.Int("source_bytes", len(data)),
		slog.Bool("read_ahead", true),
	)

	if !cfg.cache {
		return ParseString(ctx, string(data), opts...)
	}

	key := strconv.FormatUint(xxh3.Hash(data), 36)

	v, hit := sources.LoadOrStore(key, new(state))

	st, ok := v.(*state)
	if !ok {
		return nil, ErrParse.With(slog.String("issue", "invalid cache entry"))
	}

	cfg.logger.TraceContext(ctx, "cache lookup",
		slog.String("source_hash", key),
		slog.Bool("cache_hit", hit),
	)

	st.once.Do(func() {
		st.prog, st.err = ParseString(ctx, string(data), opts...)
	})

	return st.prog, st.err
}

// ClearCache removes all cached programs and compiled expressions.
// This is primarily useful for testing or when memory needs to be reclaimed.
func ClearCache() {
	sources.Clear()
	programs.Clear()
}
