// Package scheduler implements Monty's cooperative multitasking (spec.md
// §4.E): one goroutine per concurrently-running task, coordinated by a
// single execution token so exactly one of them ever executes
// interpreter bytecode at a time (spec.md §5 "no instruction may run in
// parallel"). Awaiting a bare coroutine needs no goroutine at all — it
// is an ordinary synchronous nested call; awaiting a Future or another
// Task blocks the awaiting goroutine and releases the token until the
// awaited value settles.
package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/zond/monty/interp"
	"github.com/zond/monty/limits"
	"github.com/zond/monty/value"
)

// Scheduler owns the single execution token and the reactor draining
// timed waits for one Engine.Run call.
type Scheduler struct {
	in      *interp.Interp
	tracker *limits.Tracker
	token   chan struct{}
	reactor *reactor
	wg      sync.WaitGroup

	settleMu   sync.Mutex
	settleCond *sync.Cond

	mu      sync.Mutex
	current any
	signal  error
}

// New builds a Scheduler for in, wiring its AwaitHook/SignalHook. The
// caller must call Close once the top-level run has finished, to stop
// the reactor goroutine.
func New(in *interp.Interp) *Scheduler {
	sch := &Scheduler{
		in:      in,
		tracker: in.Tracker,
		token:   make(chan struct{}, 1),
		reactor: newReactor(),
	}
	sch.settleCond = sync.NewCond(&sch.settleMu)
	sch.token <- struct{}{}
	in.AwaitHook = sch.await
	in.SignalHook = sch.consumeSignal
	if in.Modules == nil {
		in.Modules = map[string]value.Value{}
	}
	mod, err := in.Heap.Module("asyncio", map[string]value.Value{
		"gather":      sch.builtinFunction("gather", sch.gatherBuiltin),
		"create_task": sch.builtinFunction("create_task", sch.createTaskBuiltin),
		"sleep":       sch.builtinFunction("sleep", sch.sleepBuiltin),
	})
	if err == nil {
		in.Modules["asyncio"] = mod
	}
	return sch
}

func (sch *Scheduler) builtinFunction(name string, fn func([]value.Value, map[string]value.Value) (value.Value, error)) value.Value {
	v, _ := sch.in.Heap.BuiltinFunction(name, fn)
	return v
}

// Close stops the reactor and waits for every spawned task goroutine to
// finish (they all exit promptly once the top-level call returns, since
// nothing awaits them past that point in the supported embedding usage).
func (sch *Scheduler) Close() {
	sch.wg.Wait()
	sch.reactor.close()
}

// Interrupt delivers a pending signal to the currently running task: it
// raises an exception of the named class with message as its single
// argument, at the task's next tick or suspension boundary (spec.md
// §4.E "a pending host signal... is delivered to whichever task is
// running"; §8 scenario 7's host-handler-raised `ValueError('potato')`
// case). The raised exception arrives as a *interp.RaisedException so it
// round-trips through the engine's RuntimeError envelope exactly like
// any script-raised exception, rather than surfacing as an opaque Go
// error.
func (sch *Scheduler) Interrupt(class, message string) {
	msg, err := sch.in.Heap.Str(message)
	if err != nil {
		sch.setSignal(err)
		return
	}
	sch.raiseSignal(class, msg)
}

// InterruptKeyboard delivers the default SIGINT→KeyboardInterrupt signal
// (spec.md §8 scenario 7's default case), a bare exception with no
// arguments, matching `raise KeyboardInterrupt` with no message.
func (sch *Scheduler) InterruptKeyboard() {
	sch.raiseSignal("KeyboardInterrupt")
}

func (sch *Scheduler) raiseSignal(class string, args ...value.Value) {
	exc, err := sch.in.NewException(class, args...)
	if err != nil {
		sch.setSignal(err)
		return
	}
	sch.setSignal(&interp.RaisedException{Value: exc})
}

func (sch *Scheduler) setSignal(err error) {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	sch.signal = err
}

func (sch *Scheduler) consumeSignal() error {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if sch.signal == nil {
		return nil
	}
	err := sch.signal
	sch.signal = nil
	return err
}

// Run executes fn(args, kwargs) as the engine's top-level task on the
// calling goroutine directly — no hop is needed since no other task can
// possibly be runnable yet.
func (sch *Scheduler) Run(fn value.Value, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	top := &taskHandle{}
	sch.acquireToken(top)
	defer sch.tracker.DropTask(top)
	defer sch.yieldToken()
	return sch.in.RunTask(top, fn, args, kwargs)
}

func (sch *Scheduler) setCurrent(key any) {
	sch.mu.Lock()
	sch.current = key
	sch.mu.Unlock()
}

func (sch *Scheduler) currentTask() any {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.current
}

func (sch *Scheduler) yieldToken() { sch.token <- struct{}{} }

func (sch *Scheduler) acquireToken(taskKey any) {
	<-sch.token
	sch.setCurrent(taskKey)
	sch.tracker.SetActiveTask(taskKey)
}

// notifySettle wakes every goroutine parked in blockOn/Gather so it can
// re-check whatever it is polling.
func (sch *Scheduler) notifySettle() {
	sch.settleCond.L.Lock()
	sch.settleCond.Broadcast()
	sch.settleCond.L.Unlock()
}

// NotifySettle is notifySettle exported for callers outside this
// package — the host bridge calls it after resolving a Future so a task
// awaiting that Future re-checks promptly instead of waiting for the
// next unrelated broadcast.
func (sch *Scheduler) NotifySettle() { sch.notifySettle() }

// await implements Interp.AwaitHook (spec.md §4.E): awaiting a bare
// coroutine is an inlined synchronous child call; awaiting a Future or
// Task blocks this goroutine, releasing the token, until it settles.
func (sch *Scheduler) await(f *interp.Frame, v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindCoroutine:
		fn, args, kwargs := v.CoroutineCallee()
		return sch.in.RunTask(f.TaskKey(), fn, args, kwargs)
	case value.KindFuture:
		return sch.blockOn(f.TaskKey(), v.FuturePoll)
	case value.KindTask:
		return sch.blockOn(f.TaskKey(), v.TaskPoll)
	default:
		return value.Value{}, sch.in.Raisef("TypeError", "object %s can't be used in 'await' expression", v.Kind().String())
	}
}

func (sch *Scheduler) blockOn(mine any, poll func() (bool, value.Value, error)) (value.Value, error) {
	if ready, result, err := poll(); ready {
		return result, err
	}
	sch.yieldToken()
	sch.settleCond.L.Lock()
	for {
		if ready, result, err := poll(); ready {
			sch.settleCond.L.Unlock()
			sch.acquireToken(mine)
			return result, err
		}
		sch.settleCond.Wait()
	}
}

// CreateTask spawns co onto its own goroutine, scheduled cooperatively
// alongside every other task via the shared execution token, and
// returns a Task value immediately without running any of its body yet
// (spec.md §4.E "create_task schedules without running").
func (sch *Scheduler) CreateTask(co value.Value) (value.Value, error) {
	if co.Kind() != value.KindCoroutine {
		return value.Value{}, sch.in.Raisef("TypeError", "a coroutine was expected, got %s", co.Kind().String())
	}
	fn, args, kwargs := co.CoroutineCallee()
	handle := &taskHandle{}
	taskVal, err := sch.in.Heap.Task(handle)
	if err != nil {
		return value.Value{}, err
	}
	sch.wg.Add(1)
	go func() {
		defer sch.wg.Done()
		sch.acquireToken(handle)
		result, rerr := sch.in.RunTask(handle, fn, args, kwargs)
		sch.tracker.DropTask(handle)
		sch.yieldToken()
		sch.in.Heap.ResolveTask(taskVal, result, rerr)
		sch.notifySettle()
	}()
	return taskVal, nil
}

func (sch *Scheduler) createTaskBuiltin(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, sch.in.Raisef("TypeError", "create_task() takes 1 positional argument but %d were given", len(args))
	}
	return sch.CreateTask(args[0])
}

func (sch *Scheduler) sleepBuiltin(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, sch.in.Raisef("TypeError", "sleep() takes 1 positional argument but %d were given", len(args))
	}
	secs, err := numericSeconds(args[0])
	if err != nil {
		return value.Value{}, sch.in.Raisef("TypeError", "sleep() argument must be a number")
	}
	mine := sch.currentTask()
	wake := sch.reactor.parkUntil(time.Now().Add(time.Duration(secs * float64(time.Second))))
	sch.yieldToken()
	<-wake
	sch.acquireToken(mine)
	futVal, ferr := sch.in.Heap.Future(nil)
	if ferr != nil {
		return value.Value{}, ferr
	}
	sch.in.Heap.ResolveFuture(futVal, value.None, nil)
	return futVal, nil
}

func numericSeconds(v value.Value) (float64, error) {
	switch v.Kind() {
	case value.KindFloat:
		return v.AsFloat(), nil
	case value.KindInt:
		return v.AsBigInt().Float64(), nil
	default:
		return 0, errors.New("not a number")
	}
}
