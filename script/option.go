package script

import (
	"io"
	"os"

	"github.com/ardnew/letbind/log"
)

// config holds parse and evaluation settings.
type config struct {
	logger     log.Logger
	processEnv []string
	stdout     io.Writer
	objectRest bool
	cache      bool
}

// Option configures parsing or evaluation behavior.
type Option func(*config)

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithProcessEnv sets the environment variables visible to the env builtin.
// The format is []string{"KEY=VALUE", ...}. If nil, os.Environ() is used.
func WithProcessEnv(env []string) Option {
	return func(c *config) {
		c.processEnv = env
	}
}

// WithStdout sets the writer that the print builtin writes to.
func WithStdout(w io.Writer) Option {
	return func(c *config) {
		c.stdout = w
	}
}

// WithObjectRest enables or disables rest elements in object patterns.
// They are enabled by default.
func WithObjectRest(enable bool) Option {
	return func(c *config) {
		c.objectRest = enable
	}
}

// WithCache enables or disables caching parsed programs by source content
// in [ParseReader]. Caching is enabled by default.
func WithCache(enable bool) Option {
	return func(c *config) {
		c.cache = enable
	}
}

func makeConfig(opts ...Option) config {
	c := config{
		stdout:     os.Stdout,
		objectRest: true,
		cache:      true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}

	return c
}
