// Package interp implements Monty's bytecode interpreter (spec.md §4.D):
// frame stack, operand stack, instruction dispatch, exception unwinding,
// call/return, and full argument binding.
package interp

import (
	"sync"

	"github.com/zond/monty/value"
)

// activeHandler is one live try-block on a Frame's handler stack, pushed
// by OpSetupTry and popped on normal exit or when its except/finally
// fires (spec.md §4.D "Frame ... a handler stack for exception unwinding").
type activeHandler struct {
	h           value.ExceptHandler
	stackHeight int // operand stack depth to restore before jumping to the handler
}

// Frame is one call's execution state. Frames are pooled (grounded on
// the teacher's js.go machine-channel pool) since scripts that recurse
// or call heavily would otherwise thrash the allocator on every call.
type Frame struct {
	code     *value.Code
	pc       int
	stack    []value.Value
	locals   []value.Value
	cells    []*value.Cell
	parent   *Frame
	handlers []activeHandler
	taskKey  any
}

var framePool = sync.Pool{New: func() any { return &Frame{} }}

// AcquireFrame returns a pooled Frame initialized to run code as a call
// from parent (nil for a top-level module frame), tagged with taskKey so
// the tracker's per-task recursion counter is addressed correctly.
func AcquireFrame(code *value.Code, parent *Frame, taskKey any) *Frame {
	f := framePool.Get().(*Frame)
	f.code = code
	f.pc = 0
	f.stack = f.stack[:0]
	nSlots := frameSlots(code)
	if cap(f.locals) < nSlots {
		f.locals = make([]value.Value, nSlots)
	} else {
		f.locals = f.locals[:nSlots]
		for i := range f.locals {
			f.locals[i] = value.Value{}
		}
	}
	f.cells = f.cells[:0]
	for range code.CellVars {
		f.cells = append(f.cells, nil)
	}
	f.handlers = f.handlers[:0]
	f.parent = parent
	f.taskKey = taskKey
	return f
}

// ReleaseFrame returns f to the pool. Callers must have already released
// any Values still referenced by f.locals/f.stack via the owning Heap.
func ReleaseFrame(f *Frame) {
	f.code = nil
	f.parent = nil
	framePool.Put(f)
}

// TaskKey returns the scheduler task key this frame (and its call chain)
// belongs to, set when the frame was acquired (spec.md §4.E "per-task
// recursion depth").
func (f *Frame) TaskKey() any { return f.taskKey }

func (f *Frame) push(v value.Value)      { f.stack = append(f.stack, v) }
func (f *Frame) pop() value.Value        { n := len(f.stack) - 1; v := f.stack[n]; f.stack = f.stack[:n]; return v }
func (f *Frame) top() value.Value        { return f.stack[len(f.stack)-1] }
func (f *Frame) popN(n int) []value.Value {
	start := len(f.stack) - n
	out := append([]value.Value{}, f.stack[start:]...)
	f.stack = f.stack[:start]
	return out
}
