package profile

import "slices"

// Stopper ends a profiling session and flushes its output.
type Stopper interface{ Stop() }

// Profiler describes a profiling session.
type Profiler struct {
	// Mode is one of [Modes]. An empty or unsupported mode disables
	// profiling.
	Mode string
	// Path is the output directory. Empty selects the working directory.
	Path string
	// Quiet suppresses the profiler's own start and stop messages.
	Quiet bool
}

// Option modifies a [Profiler].
type Option func(Profiler) Profiler

// New returns a [Profiler] configured by opts.
func New(opts ...Option) Profiler {
	var p Profiler

	for _, opt := range opts {
		if opt != nil {
			p = opt(p)
		}
	}

	return p
}

// WithMode sets the profiling mode.
func WithMode(mode string) Option {
	return func(p Profiler) Profiler {
		p.Mode = mode

		return p
	}
}

// WithPath sets the output directory.
func WithPath(path string) Option {
	return func(p Profiler) Profiler {
		p.Path = path

		return p
	}
}

// WithQuiet controls the profiler's own log output.
func WithQuiet(quiet bool) Option {
	return func(p Profiler) Profiler {
		p.Quiet = quiet

		return p
	}
}

// Enabled reports whether Start would begin a profiling session.
func (p Profiler) Enabled() bool {
	return slices.Contains(Modes(), p.Mode)
}

// Start begins profiling and returns a [Stopper] that must be called to
// flush the profile. Stop is always safe to call, including when profiling
// is disabled.
func (p Profiler) Start() Stopper {
	if !p.Enabled() {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
