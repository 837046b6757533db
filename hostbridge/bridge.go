// Package hostbridge implements Monty's host-callable boundary (spec.md
// §4.F): registering Go functions so script code can call them like
// ordinary functions, synchronously or via a suspended Future, with
// argument/result marshalling across the Value/Go boundary.
package hostbridge

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/zond/monty/interp"
	"github.com/zond/monty/value"
)

// Sync is a host callable that returns its result immediately, without
// suspending the calling task.
type Sync func(args []value.Value) (value.Value, error)

// Async is a host callable run off the calling task's goroutine; the
// script sees it as a function returning a Future that resolves once fn
// completes (spec.md §4.F "Asynchronous ones return a Future").
type Async func(args []value.Value) (value.Value, error)

// Bridge owns the registered host callables for one engine.
type Bridge struct {
	in     *interp.Interp
	heap   *value.Heap
	sem    *semaphore.Weighted
	notify func()
}

// New returns a Bridge installing callables into in.Globals, bounding
// concurrent in-flight Async calls to maxConcurrent (spec.md §4.F+
// "bounded by a semaphore.Weighted... a host constructor option, not a
// script-visible limit"). notify is called after every Future/Task
// settles, so the scheduler's blocked awaiters re-check promptly;
// wire it to (*scheduler.Scheduler).NotifySettle.
func New(in *interp.Interp, maxConcurrent int64, notify func()) *Bridge {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Bridge{
		in:     in,
		heap:   in.Heap,
		sem:    semaphore.NewWeighted(maxConcurrent),
		notify: notify,
	}
}

// Register installs fn as a synchronous top-level callable named name.
func (b *Bridge) Register(name string, fn Sync) error {
	builtin := func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		return fn(args)
	}
	v, err := b.heap.BuiltinFunction(name, builtin)
	if err != nil {
		return errors.WithStack(err)
	}
	b.in.Globals[name] = v
	return nil
}

// RegisterAsync installs fn as an asynchronous top-level callable named
// name: calling it from script land returns a Future immediately,
// without blocking the calling task's goroutine or holding the
// execution token while fn runs (spec.md §5 "no instruction may run in
// parallel" — fn itself is plain Go code, not script execution, so it
// is safe to run concurrently with whichever task holds the token).
func (b *Bridge) RegisterAsync(name string, fn Async) error {
	builtin := func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		futVal, err := b.heap.Future(nil)
		if err != nil {
			return value.Value{}, err
		}
		go func() {
			if err := b.sem.Acquire(context.Background(), 1); err != nil {
				b.heap.ResolveFuture(futVal, value.Value{}, errors.WithStack(err))
				b.signalSettle()
				return
			}
			defer b.sem.Release(1)
			result, ferr := fn(args)
			b.heap.ResolveFuture(futVal, result, ferr)
			b.signalSettle()
		}()
		return futVal, nil
	}
	v, err := b.heap.BuiltinFunction(name, builtin)
	if err != nil {
		return errors.WithStack(err)
	}
	b.in.Globals[name] = v
	return nil
}

func (b *Bridge) signalSettle() {
	if b.notify != nil {
		b.notify()
	}
}
