package lang

import "context"

// Loop drives a loop whose header may declare bindings.
//
// When PerIteration is set, each iteration runs in a fresh copy of the header
// scope made with [Scope.CopyForIteration]: one copy after Init, then a new
// copy before every Update, seeded with the values the previous iteration
// left behind.
type Loop struct {
	Init   func(ctx context.Context, header *Scope) error
	Test   func(ctx context.Context, scope *Scope) (bool, error)
	Body   func(ctx context.Context, scope *Scope) (done bool, err error)
	Update func(ctx context.Context, scope *Scope) error

	PerIteration bool
}

// Run executes the loop with a header scope chained to parent.
func (l Loop) Run(ctx context.Context, parent *Scope) error {
	scope := NewScope(parent, Block)

	if l.Init != nil {
		err := l.Init(ctx, scope)
		if err != nil {
			return err
		}
	}

	scope = l.copy(scope)

	for {
		if l.Test != nil {
			ok, err := l.Test(ctx, scope)
			if err != nil || !ok {
				return err
			}
		}

		if l.Body != nil {
			done, err := l.Body(ctx, scope)
			if err != nil || done {
				return err
			}
		}

		scope = l.copy(scope)

		if l.Update != nil {
			err := l.Update(ctx, scope)
			if err != nil {
				return err
			}
		}
	}
}

func (l Loop) copy(s *Scope) *Scope {
	if !l.PerIteration {
		return s
	}

	return s.CopyForIteration()
}
