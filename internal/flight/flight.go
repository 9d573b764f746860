// Package flight coalesces concurrent calls to the same operation into a
// single execution whose result every caller shares.
package flight

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

type State int

const (
	Idle State = iota
	Inflight
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Inflight:
		return "inflight"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Group runs at most one execution at a time. Each execution gets its own
// generation key so a caller arriving after settlement always starts a new
// one instead of joining a finished call.
type Group[T any] struct {
	mu      sync.Mutex
	state   State
	gen     uint64
	waiters int
	calls   singleflight.Group
}

// Do runs fn unless an execution is already in flight, in which case the
// caller waits for that execution's result. fn gets a context detached from
// the caller's cancellation; a caller whose ctx ends returns ctx.Err()
// without affecting the others.
func (g *Group[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, bool, error) {
	return g.DoUnless(ctx, nil, fn)
}

// DoUnless is Do with a guard checked under the group lock when no execution
// is in flight. If satisfied returns ok, its value is returned and nothing
// starts. A guard observes every effect of the previous execution's fn.
func (g *Group[T]) DoUnless(ctx context.Context, satisfied func() (T, bool), fn func(context.Context) (T, error)) (T, bool, error) {
	g.mu.Lock()
	if g.state == Idle && satisfied != nil {
		if v, ok := satisfied(); ok {
			g.mu.Unlock()
			return v, false, nil
		}
	}
	leader := g.state == Idle
	if leader {
		g.gen++
		g.state = Inflight
		g.waiters = 0
	}
	g.waiters++
	gen := g.gen
	key := strconv.FormatUint(gen, 10)
	detached := context.WithoutCancel(ctx)
	ch := g.calls.DoChan(key, func() (any, error) {
		v, err := fn(detached)
		g.mu.Lock()
		g.state = Idle
		g.waiters = 0
		g.mu.Unlock()
		return v, err
	})
	g.mu.Unlock()

	var zero T
	select {
	case <-ctx.Done():
		g.leave(gen)
		return zero, leader, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, leader, res.Err
		}
		if res.Val == nil {
			return zero, leader, nil
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, leader, fmt.Errorf("flight: unexpected result type %T", res.Val)
		}
		return v, leader, nil
	}
}

// leave uncounts a caller that stopped waiting on execution gen before it
// settled.
func (g *Group[T]) leave(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen == gen && g.state == Inflight && g.waiters > 0 {
		g.waiters--
	}
}

func (g *Group[T]) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Waiters reports how many callers share the current execution.
func (g *Group[T]) Waiters() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiters
}
