package interp

import "github.com/zond/monty/value"

// RunFrame executes f from its current pc until it returns or an
// exception escapes uncaught (spec.md §4.D "Dispatch"). Every call bumps
// the tracker's recursion depth via EnterFrame/LeaveFrame, which is
// shared with value's structural eq/hash guards by design. Suspension on
// await is handled entirely inside AwaitHook (spec.md §4.E): the hook
// blocks the calling goroutine rather than unwinding this Go call stack,
// so RunFrame itself never observes a "paused" state — that lets a
// deeply nested call chain suspend and resume without needing an
// explicit continuation or frame-chain replay.
func (in *Interp) RunFrame(f *Frame) (value.Value, error) {
	if err := in.Tracker.EnterFrame(); err != nil {
		return value.Value{}, in.raiseFault(err)
	}
	defer in.Tracker.LeaveFrame()

	var instrSinceTick int64
	for {
		if f.pc >= len(f.code.Instrs) {
			return value.None, nil
		}
		ins := f.code.Instrs[f.pc]
		instrSinceTick++
		if instrSinceTick >= 256 {
			if err := in.tick(f, instrSinceTick); err != nil {
				if handled, herr := in.handleException(f, err); handled {
					if herr == nil {
						instrSinceTick = 0
						continue
					}
					return value.Value{}, herr
				}
				return value.Value{}, err
			}
			instrSinceTick = 0
		}
		f.pc++

		res, done, err := in.step(f, ins)
		if err != nil {
			if handled, herr := in.handleException(f, err); handled {
				err = herr
				if err == nil {
					continue
				}
			}
			return value.Value{}, err
		}
		if done {
			return res, nil
		}
	}
}

// tick runs the tracker's instruction-count/wall-clock check and, if
// set, the scheduler's pending-signal check, at the same cadence (spec.md
// §4.E "a pending host signal... is checked at each instruction boundary").
func (in *Interp) tick(f *Frame, instrCount int64) error {
	if err := in.Tracker.Tick(instrCount, nil); err != nil {
		return in.raiseFault(err)
	}
	if in.SignalHook != nil {
		if err := in.SignalHook(); err != nil {
			return err
		}
	}
	return nil
}

// step executes one instruction. done reports a frame-level return; err
// reports either a Go plumbing error or a *RaisedException to be matched
// against f's handler stack.
func (in *Interp) step(f *Frame, ins value.Instr) (result value.Value, done bool, err error) {
	switch ins.Op {
	case value.OpLoadConst:
		f.push(f.code.Consts[ins.A])
	case value.OpLoadLocal:
		f.push(f.locals[ins.A])
	case value.OpStoreLocal:
		old := f.locals[ins.A]
		v := f.pop()
		in.Heap.Retain(v)
		f.locals[ins.A] = v
		in.Heap.Release(old)
	case value.OpLoadCell:
		f.push(f.cells[ins.A].Get())
	case value.OpStoreCell:
		v := f.pop()
		in.Heap.CellSet(f.cells[ins.A], v)
	case value.OpLoadGlobal:
		name := f.code.Consts[ins.A].AsStr()
		v, ok := in.Globals[name]
		if !ok {
			return value.Value{}, false, in.Raisef("NameError", "name '%s' is not defined", name)
		}
		f.push(v)
	case value.OpStoreGlobal:
		name := f.code.Consts[ins.A].AsStr()
		in.Globals[name] = f.pop()
	case value.OpLoadAttr:
		name := f.code.Consts[ins.A].AsStr()
		obj := f.pop()
		v, gerr := in.Heap.GetAttr(obj, name)
		if gerr != nil {
			return value.Value{}, false, in.wrapGoError(gerr)
		}
		f.push(v)
	case value.OpStoreAttr:
		name := f.code.Consts[ins.A].AsStr()
		obj := f.pop()
		v := f.pop()
		if serr := in.Heap.SetAttr(obj, name, v); serr != nil {
			return value.Value{}, false, in.wrapGoError(serr)
		}
	case value.OpBuildTuple:
		items := f.popN(ins.A)
		v, herr := in.Heap.Tuple(items)
		if herr != nil {
			return value.Value{}, false, in.raiseFault(herr)
		}
		f.push(v)
	case value.OpBuildList:
		items := f.popN(ins.A)
		v, herr := in.Heap.List(items)
		if herr != nil {
			return value.Value{}, false, in.raiseFault(herr)
		}
		f.push(v)
	case value.OpBuildSet:
		items := f.popN(ins.A)
		s, herr := in.Heap.Set(false)
		if herr != nil {
			return value.Value{}, false, in.raiseFault(herr)
		}
		for _, it := range items {
			if _, aerr := in.Heap.SetAdd(s, it); aerr != nil {
				return value.Value{}, false, in.raiseFault(aerr)
			}
		}
		f.push(s)
	case value.OpBuildDict:
		items := f.popN(ins.A * 2)
		d, herr := in.Heap.Dict()
		if herr != nil {
			return value.Value{}, false, in.raiseFault(herr)
		}
		for i := 0; i < len(items); i += 2 {
			if serr := in.Heap.DictSet(d, items[i], items[i+1]); serr != nil {
				return value.Value{}, false, in.raiseFault(serr)
			}
		}
		f.push(d)
	case value.OpLoadSubscr:
		idx := f.pop()
		obj := f.pop()
		v, serr := in.getItem(obj, idx)
		if serr != nil {
			return value.Value{}, false, serr
		}
		f.push(v)
	case value.OpStoreSubscr:
		idx := f.pop()
		obj := f.pop()
		v := f.pop()
		if serr := in.setItem(obj, idx, v); serr != nil {
			return value.Value{}, false, serr
		}
	case value.OpUnaryOp:
		a := f.pop()
		v, oerr := in.unaryOp(UnaryOp(ins.A), a)
		if oerr != nil {
			return value.Value{}, false, oerr
		}
		f.push(v)
	case value.OpBinaryOp:
		b := f.pop()
		a := f.pop()
		v, oerr := in.binaryOp(BinOp(ins.A), a, b)
		if oerr != nil {
			return value.Value{}, false, oerr
		}
		f.push(v)
	case value.OpCompareOp:
		b := f.pop()
		a := f.pop()
		v, oerr := in.compareOp(CompareOp(ins.A), a, b)
		if oerr != nil {
			return value.Value{}, false, oerr
		}
		f.push(v)
	case value.OpPop:
		f.pop()
	case value.OpDup:
		f.push(f.top())
	case value.OpJump:
		f.pc = ins.A
	case value.OpJumpIfFalse:
		if !f.pop().Truthy() {
			f.pc = ins.A
		}
	case value.OpJumpIfTrue:
		if f.pop().Truthy() {
			f.pc = ins.A
		}
	case value.OpReturn:
		return f.pop(), true, nil
	case value.OpSetupTry:
		f.handlers = append(f.handlers, activeHandler{
			h:           f.code.Handlers[ins.A],
			stackHeight: len(f.stack),
		})
	case value.OpPopTry:
		if len(f.handlers) > 0 {
			f.handlers = f.handlers[:len(f.handlers)-1]
		}
	case value.OpRaise:
		exc := f.pop()
		return value.Value{}, false, &RaisedException{Value: exc}
	case value.OpReraise:
		return value.Value{}, false, &RaisedException{Value: f.pop()}
	case value.OpCall:
		return in.execCall(f, ins, nil)
	case value.OpCallKw:
		return in.execCallKw(f, ins)
	case value.OpMakeFunction:
		return in.execMakeFunction(f, ins)
	case value.OpGetIter:
		obj := f.pop()
		it, ierr := in.Heap.Iter(obj)
		if ierr != nil {
			if te, ok := ierr.(*value.TypeIterError); ok {
				return value.Value{}, false, in.Raisef("TypeError", "%s", te.Error())
			}
			return value.Value{}, false, in.raiseFault(ierr)
		}
		f.push(it)
	case value.OpForIter:
		it := f.top()
		if next, ok := it.IterNext(); ok {
			f.push(next)
		} else {
			f.pop()
			f.pc = ins.A
		}
	case value.OpAwait:
		awaited := f.pop()
		if in.AwaitHook == nil {
			return value.Value{}, false, in.Raisef("NotImplementedError", "await requires a scheduler")
		}
		res, aerr := in.AwaitHook(f, awaited)
		if aerr != nil {
			return value.Value{}, false, aerr
		}
		f.push(res)
	case value.OpYield:
		return value.Value{}, false, in.Raisef("NotImplementedError", "generators are not supported")
	case value.OpImportName:
		name := f.code.Consts[ins.A].AsStr()
		mod, merr := in.importModule(name)
		if merr != nil {
			return value.Value{}, false, merr
		}
		f.push(mod)
	case value.OpListAppend:
		x := f.pop()
		lst := f.top()
		if aerr := in.Heap.ListAppend(lst, x); aerr != nil {
			return value.Value{}, false, in.raiseFault(aerr)
		}
	case value.OpListExtend:
		iterable := f.pop()
		lst := f.top()
		it, ierr := in.Heap.Iter(iterable)
		if ierr != nil {
			if te, ok := ierr.(*value.TypeIterError); ok {
				return value.Value{}, false, in.Raisef("TypeError", "argument after * must be an iterable, not %s", te.Kind.String())
			}
			return value.Value{}, false, in.raiseFault(ierr)
		}
		for {
			next, ok := it.IterNext()
			if !ok {
				break
			}
			if aerr := in.Heap.ListAppend(lst, next); aerr != nil {
				return value.Value{}, false, in.raiseFault(aerr)
			}
		}
	case value.OpDictSetItem:
		v := f.pop()
		k := f.pop()
		d := f.top()
		if serr := in.Heap.DictSet(d, k, v); serr != nil {
			return value.Value{}, false, in.raiseFault(serr)
		}
	case value.OpDictMerge:
		mapping := f.pop()
		d := f.top()
		if mapping.Kind() != value.KindDict {
			return value.Value{}, false, in.Raisef("TypeError", "argument after ** must be a mapping, not %s", mapping.Kind().String())
		}
		for _, item := range mapping.DictItems() {
			if item.Key.Kind() != value.KindStr {
				return value.Value{}, false, in.Raisef("TypeError", "keywords must be strings")
			}
			if serr := in.Heap.DictSet(d, item.Key, item.Val); serr != nil {
				return value.Value{}, false, in.raiseFault(serr)
			}
		}
	case value.OpCallSpread:
		kwDict := f.pop()
		argsList := f.pop()
		callee := f.pop()
		args := append([]value.Value{}, argsList.AsList()...)
		var kwargs map[string]value.Value
		items := kwDict.DictItems()
		if len(items) > 0 {
			kwargs = make(map[string]value.Value, len(items))
			for _, item := range items {
				kwargs[item.Key.AsStr()] = item.Val
			}
		}
		res, cerr := in.Call(callee, args, kwargs, f)
		if cerr != nil {
			return value.Value{}, false, cerr
		}
		f.push(res)
	}
	return value.Value{}, false, nil
}

func (in *Interp) wrapGoError(err error) error {
	switch e := err.(type) {
	case *value.AttributeError:
		return in.Raisef("AttributeError", "%s", e.Error())
	case *value.FrozenAttributeError:
		return in.Raisef("AttributeError", "%s", e.Error())
	default:
		return err
	}
}

func (in *Interp) getItem(obj, idx value.Value) (value.Value, error) {
	switch obj.Kind() {
	case value.KindList, value.KindTuple:
		var items []value.Value
		if obj.Kind() == value.KindList {
			items = obj.AsList()
		} else {
			items = obj.AsTuple()
		}
		i, _ := idx.AsBigInt().FitsInt()
		if idx.AsBigInt().Sign() < 0 {
			i += len(items)
		}
		if i < 0 || i >= len(items) {
			return value.Value{}, in.Raisef("IndexError", "%s index out of range", obj.Kind().String())
		}
		return items[i], nil
	case value.KindDict:
		v, found, err := in.Heap.DictGet(obj, idx)
		if err != nil {
			return value.Value{}, in.raiseFault(err)
		}
		if !found {
			repr, _ := value.Repr(idx, in.Tracker)
			return value.Value{}, in.Raisef("KeyError", "%s", repr)
		}
		return v, nil
	case value.KindStr:
		runes := []rune(obj.AsStr())
		i, _ := idx.AsBigInt().FitsInt()
		if idx.AsBigInt().Sign() < 0 {
			i += len(runes)
		}
		if i < 0 || i >= len(runes) {
			return value.Value{}, in.Raisef("IndexError", "string index out of range")
		}
		return in.Heap.Str(string(runes[i]))
	default:
		return value.Value{}, in.Raisef("TypeError", "'%s' object is not subscriptable", obj.Kind().String())
	}
}

func (in *Interp) setItem(obj, idx, v value.Value) error {
	switch obj.Kind() {
	case value.KindList:
		items := obj.AsList()
		i, _ := idx.AsBigInt().FitsInt()
		if idx.AsBigInt().Sign() < 0 {
			i += len(items)
		}
		if i < 0 || i >= len(items) {
			return in.Raisef("IndexError", "list assignment index out of range")
		}
		in.Heap.ListSet(obj, i, v)
		return nil
	case value.KindDict:
		return in.raiseFault(in.Heap.DictSet(obj, idx, v))
	default:
		return in.Raisef("TypeError", "'%s' object does not support item assignment", obj.Kind().String())
	}
}

// handleException searches f's handler stack for a matching except
// clause (spec.md §4.D "try/except/finally semantics"). Resource faults
// arrive as ordinary RaisedExceptions of class MemoryError/RecursionError
// and are matched like any other class: by an except clause that names
// that class exactly, or by a bare except.
func (in *Interp) handleException(f *Frame, cause error) (handled bool, err error) {
	raised, ok := cause.(*RaisedException)
	if !ok {
		return false, cause
	}
	for len(f.handlers) > 0 {
		top := f.handlers[len(f.handlers)-1]
		f.handlers = f.handlers[:len(f.handlers)-1]
		className := raised.Value.ExceptionClassName()
		if top.h.ClassName == "" || top.h.ClassName == className {
			f.stack = f.stack[:top.stackHeight]
			f.push(raised.Value)
			f.pc = top.h.TargetPC
			return true, nil
		}
		if top.h.FinallyPC >= 0 {
			// Jump into the finally block with the pending exception on
			// the stack; the compiler emits a trailing OpReraise there
			// so the exception resumes propagating once finally runs,
			// unless the finally block itself returns or raises first.
			f.stack = f.stack[:top.stackHeight]
			f.push(raised.Value)
			f.pc = top.h.FinallyPC
			return true, nil
		}
	}
	return false, cause
}
