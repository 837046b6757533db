package interp

import "github.com/zond/monty/value"

// execCall implements OpCall: the stack holds the callee followed by
// ins.A positional argument values (callee deepest).
func (in *Interp) execCall(f *Frame, ins value.Instr, kwargs map[string]value.Value) (value.Value, bool, error) {
	args := f.popN(ins.A)
	callee := f.pop()
	res, err := in.Call(callee, args, kwargs, f)
	if err != nil {
		return value.Value{}, false, err
	}
	f.push(res)
	return value.Value{}, false, nil
}

// execCallKw implements OpCallKw: ins.A positional args, then ins.B
// (name, value) keyword pairs, then the callee, all on the stack.
func (in *Interp) execCallKw(f *Frame, ins value.Instr) (value.Value, bool, error) {
	kwPairs := f.popN(ins.B * 2)
	kwargs := make(map[string]value.Value, ins.B)
	for i := 0; i < len(kwPairs); i += 2 {
		kwargs[kwPairs[i].AsStr()] = kwPairs[i+1]
	}
	args := f.popN(ins.A)
	callee := f.pop()
	res, err := in.Call(callee, args, kwargs, f)
	if err != nil {
		return value.Value{}, false, err
	}
	f.push(res)
	return value.Value{}, false, nil
}

// Call invokes callee (Function, BuiltinFunction, or BoundMethod) with
// args/kwargs, as a child of caller (nil for a top-level call). Builtin
// and bound-builtin calls run synchronously in Go; user Function calls
// recurse into a fresh pooled Frame (spec.md §4.D).
func (in *Interp) Call(callee value.Value, args []value.Value, kwargs map[string]value.Value, caller *Frame) (value.Value, error) {
	switch callee.Kind() {
	case value.KindBuiltinFunction:
		v, err := callee.BuiltinFunc()(args, kwargs)
		if err != nil {
			return value.Value{}, err
		}
		return v, nil
	case value.KindBoundMethod:
		recv, fn := callee.BoundMethodParts()
		return in.Call(fn, append([]value.Value{recv}, args...), kwargs, caller)
	case value.KindFunction:
		if callee.FunctionCode().IsAsync {
			// Calling an `async def` function never runs its body
			// directly: it returns a not-yet-driven Coroutine, exactly
			// like CPython's async functions return a coroutine object
			// on call (spec.md §4.E "await on a coroutine... inlined as
			// a child call" presumes the call itself didn't already run
			// it). Argument binding happens once the scheduler drives
			// the coroutine via RunTask, not here.
			return in.Heap.Coroutine(callee, args, kwargs)
		}
		locals, err := in.bindArgs(callee, args, kwargs)
		if err != nil {
			return value.Value{}, err
		}
		var taskKey any
		if caller != nil {
			taskKey = caller.taskKey
		}
		child := AcquireFrame(callee.FunctionCode(), caller, taskKey)
		copy(child.locals, locals)
		for i, c := range callee.FunctionClosure() {
			child.cells[i] = c
		}
		defer ReleaseFrame(child)
		return in.RunFrame(child)
	case value.KindType:
		if callee.TypeIsException() {
			return in.constructException(callee, args, kwargs)
		}
		return in.constructDataclass(callee, args, kwargs)
	default:
		return value.Value{}, in.Raisef("TypeError", "'%s' object is not callable", callee.Kind().String())
	}
}

// RunTask runs callee(args, kwargs) as the root call of a task tagged
// taskKey, so the tracker's per-task recursion counter (spec.md §4.E)
// is addressed by taskKey rather than inherited from some caller frame.
// Used by the scheduler to start the engine's top-level call and every
// task spawned by create_task/gather. Builtin/bound-method/type callees
// carry no recursion state of their own and fall back to Call.
func (in *Interp) RunTask(taskKey any, callee value.Value, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if callee.Kind() != value.KindFunction {
		return in.Call(callee, args, kwargs, nil)
	}
	locals, err := in.bindArgs(callee, args, kwargs)
	if err != nil {
		return value.Value{}, err
	}
	f := AcquireFrame(callee.FunctionCode(), nil, taskKey)
	copy(f.locals, locals)
	for i, c := range callee.FunctionClosure() {
		f.cells[i] = c
	}
	defer ReleaseFrame(f)
	return in.RunFrame(f)
}

// execMakeFunction implements OpMakeFunction: ins.A indexes the nested
// Code object in f.code.CodeConsts; ins.B packs the default-value count
// in its low byte and the closure-cell count in the rest. The operand
// stack holds, bottom to top, the default values then the closure cell
// values (so popping closure first, then defaults, matches push order).
func (in *Interp) execMakeFunction(f *Frame, ins value.Instr) (value.Value, bool, error) {
	code := f.code.CodeConsts[ins.A]
	nDefaults := ins.B & 0xff
	nClosure := ins.B >> 8
	closureVals := f.popN(nClosure)
	defaults := f.popN(nDefaults)
	closure := make([]*value.Cell, len(closureVals))
	for i, cv := range closureVals {
		closure[i] = in.Heap.Cell(cv)
	}
	fn, err := in.Heap.Function(code.Name, code, defaults, nil, closure)
	if err != nil {
		return value.Value{}, false, in.raiseFault(err)
	}
	f.push(fn)
	return value.Value{}, false, nil
}
