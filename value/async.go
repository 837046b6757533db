package value

// coroutineObj is a not-yet-driven async call: the callee and its bound
// arguments (spec.md §4.E "await on a coroutine"). It carries no
// execution state itself — awaiting it hands fn/args/kwargs to the
// scheduler, which drives it to completion. The scheduler never attaches
// a handle, so each await on the same coroutine object runs the call
// again from the start.
type coroutineObj struct {
	base
	fn     Value
	args   []Value
	kwargs map[string]Value
	handle any
}

func (*coroutineObj) Kind() Kind { return KindCoroutine }

// Coroutine allocates a suspended call to fn with args/kwargs already
// bound-or-pending (the scheduler performs binding on first drive).
func (h *Heap) Coroutine(fn Value, args []Value, kwargs map[string]Value) (Value, error) {
	o := &coroutineObj{
		fn:     fn,
		args:   append([]Value{}, args...),
		kwargs: copyValueMap(kwargs),
	}
	h.Retain(fn)
	for _, a := range o.args {
		h.Retain(a)
	}
	for _, v := range o.kwargs {
		h.Retain(v)
	}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindCoroutine, o), nil
}

// CoroutineCallee returns the callee and bound arguments of a coroutine.
// It does not consult handle.
func (v Value) CoroutineCallee() (fn Value, args []Value, kwargs map[string]Value) {
	o := v.obj.(*coroutineObj)
	return o.fn, o.args, o.kwargs
}

// CoroutineHandle returns the scheduler-owned handle previously attached
// via SetCoroutineHandle, or nil if this coroutine has never been driven.
func (v Value) CoroutineHandle() any { return v.obj.(*coroutineObj).handle }

// SetCoroutineHandle attaches an opaque run-state handle to a coroutine.
// Nothing in value reads it back except CoroutineHandle.
func (h *Heap) SetCoroutineHandle(v Value, handle any) { v.obj.(*coroutineObj).handle = handle }

// futureObj is a host-bridge external call in flight (spec.md §4.F
// "Asynchronous ones return a Future"). handle is the host bridge's own
// bookkeeping, opaque to value; done/result/err are filled in once by
// ResolveFuture when the host settles it.
type futureObj struct {
	base
	handle any
	done   bool
	result Value
	err    error
}

func (*futureObj) Kind() Kind { return KindFuture }

// Future allocates a pending Future wrapping a host bridge handle.
func (h *Heap) Future(handle any) (Value, error) {
	o := &futureObj{handle: handle}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindFuture, o), nil
}

// FutureHandle returns the host-bridge-owned handle attached at creation.
func (v Value) FutureHandle() any { return v.obj.(*futureObj).handle }

// FuturePoll reports whether the future has settled and, if so, its
// result or error.
func (v Value) FuturePoll() (done bool, result Value, err error) {
	o := v.obj.(*futureObj)
	return o.done, o.result, o.err
}

// ResolveFuture settles a pending future exactly once with either a
// result or an error (never both).
func (h *Heap) ResolveFuture(v Value, result Value, ferr error) {
	o := v.obj.(*futureObj)
	if o.done {
		return
	}
	if ferr == nil {
		h.Retain(result)
	}
	o.result = result
	o.err = ferr
	o.done = true
}

// taskObj is a scheduler-level Task wrapped as a script-visible value
// (the result of `asyncio.create_task`-style scheduling, and the
// element type `gather` awaits). handle is the scheduler's own *Task,
// opaque to value to avoid an import cycle.
type taskObj struct {
	base
	handle any
	done   bool
	result Value
	err    error
}

func (*taskObj) Kind() Kind { return KindTask }

// Task allocates a script-visible handle onto a scheduler-owned task.
func (h *Heap) Task(handle any) (Value, error) {
	o := &taskObj{handle: handle}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindTask, o), nil
}

// TaskHandle returns the scheduler-owned *Task this value wraps.
func (v Value) TaskHandle() any { return v.obj.(*taskObj).handle }

// TaskPoll reports whether the task has finished and, if so, its result
// or error.
func (v Value) TaskPoll() (done bool, result Value, err error) {
	o := v.obj.(*taskObj)
	return o.done, o.result, o.err
}

// ResolveTask settles a task exactly once, mirroring ResolveFuture.
func (h *Heap) ResolveTask(v Value, result Value, terr error) {
	o := v.obj.(*taskObj)
	if o.done {
		return
	}
	if terr == nil {
		h.Retain(result)
	}
	o.result = result
	o.err = terr
	o.done = true
}
