package parallel

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Group runs a set of functions concurrently and stops at the first
// error: the underlying golang.org/x/sync/errgroup.Group cancels the
// shared context and Wait returns that first error once every goroutine
// has returned.
type Group struct {
	ctx    context.Context
	cancel func()
	eg     *errgroup.Group
}

func GoGroup(ctx context.Context, opts ...RunOption) *Group {
	rOpts := &runOptions{}
	for _, opt := range opts {
		opt(rOpts)
	}
	g := &Group{}
	if rOpts.timeout > 0 {
		g.ctx, g.cancel = context.WithTimeout(ctx, rOpts.timeout)
	} else {
		g.ctx, g.cancel = context.WithCancel(ctx)
	}
	g.eg, g.ctx = errgroup.WithContext(g.ctx)
	return g
}

// Wait blocks until all function calls from the Go method have returned, then
// returns the first non-nil error (if any) from them.
func (g *Group) Wait() error {
	err := g.eg.Wait()
	if g.cancel != nil {
		g.cancel()
	}
	return err
}

// Go calls the given function in a new goroutine.
//
// The first call to return a non-nil error cancels the group; its error will be
// returned by Wait.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		return fn(g.ctx)
	})
}

// RunOption .
type RunOption func(opts *runOptions)

type runOptions struct {
	timeout time.Duration
}

// WithTimeout .
func WithTimeout(timeout time.Duration) RunOption {
	return func(opts *runOptions) {
		opts.timeout = timeout
	}
}
