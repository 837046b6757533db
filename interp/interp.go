package interp

import (
	"fmt"

	pluralize "github.com/gertd/go-pluralize"

	"github.com/zond/monty/limits"
	"github.com/zond/monty/value"
)

// builtinClassNames are the exception classes the core always provides,
// independent of whatever stdlib shim the host layers on top (spec.md §7).
var builtinClassNames = []string{
	"Exception", "MemoryError", "RecursionError", "OverflowError",
	"ZeroDivisionError", "TypeError", "ValueError", "AttributeError",
	"KeyError", "IndexError", "KeyboardInterrupt", "StopIteration",
	"StopAsyncIteration", "NameError", "NotImplementedError", "ImportError",
	"AssertionError",
}

// Interp is one engine's interpreter state: its heap, tracker, the
// always-available exception classes, and the top-level (module) global
// namespace. One Interp is used for exactly one Run call.
type Interp struct {
	Heap      *value.Heap
	Tracker   *limits.Tracker
	Classes   map[string]value.Value
	Globals   map[string]value.Value
	pluralize *pluralize.Client

	// Modules holds the allowlisted importable modules (spec.md §6
	// "import limited to an allowlist including a minimal asyncio"),
	// keyed by the name a script-level `import` names. Populated by the
	// embedding layer (root monty package), not by interp itself.
	Modules map[string]value.Value

	// AwaitHook drives OpAwait (spec.md §4.E). It is set once by the
	// scheduler before a Run begins and blocks the calling goroutine
	// until the awaited coroutine/Future/Task settles, returning its
	// result or a *RaisedException. f.taskKey identifies which task is
	// awaiting, for the scheduler's own per-task bookkeeping.
	AwaitHook func(f *Frame, awaited value.Value) (value.Value, error)

	// SignalHook is polled at the same cadence as the tracker's wall
	// clock/GC tick (spec.md §4.E "checked at each instruction
	// boundary"). A non-nil return is raised as if by the next
	// instruction in the currently running task.
	SignalHook func() error
}

// New constructs an Interp sharing h's heap and tracker, with the core
// exception classes pre-registered.
func New(h *value.Heap) (*Interp, error) {
	in := &Interp{
		Heap:      h,
		Tracker:   h.Tracker(),
		Classes:   map[string]value.Value{},
		Globals:   map[string]value.Value{},
		pluralize: pluralize.NewClient(),
	}
	for _, name := range builtinClassNames {
		typ, err := h.ExceptionType(name)
		if err != nil {
			return nil, err
		}
		in.Classes[name] = typ
	}
	return in, nil
}

// RaisedException is the Go-level control-flow carrier for a raised
// language-level exception unwinding through Go call frames (spec.md
// §4.D "Exception model"). It is never itself a script-visible value;
// Value is.
type RaisedException struct {
	Value value.Value
}

func (r *RaisedException) Error() string {
	return r.Value.ExceptionClassName()
}

// NewException builds an exception instance of the named class with the
// given positional args.
func (in *Interp) NewException(class string, args ...value.Value) (value.Value, error) {
	typ, ok := in.Classes[class]
	if !ok {
		return value.Value{}, fmt.Errorf("interp: unknown exception class %q", class)
	}
	tuple, err := in.Heap.Tuple(args)
	if err != nil {
		return value.Value{}, err
	}
	return in.Heap.Exception(typ, tuple)
}

// Raisef constructs and wraps a *RaisedException for class with a single
// formatted string argument, the common case for canonical messages.
func (in *Interp) Raisef(class, format string, a ...any) error {
	msg, err := in.Heap.Str(fmt.Sprintf(format, a...))
	if err != nil {
		return err
	}
	exc, err := in.NewException(class, msg)
	if err != nil {
		return err
	}
	return &RaisedException{Value: exc}
}

// raiseFault converts a limits.Fault into the matching language-level
// exception (spec.md §4.C: MemoryError / RecursionError).
func (in *Interp) raiseFault(err error) error {
	if f, ok := err.(*limits.Fault); ok {
		return in.Raisef(f.Class, "%s", f.Message)
	}
	return err
}

// pluralizeWord pluralizes word when n != 1, following the canonical
// argument-count error phrasing (spec.md §4.D test vectors).
func (in *Interp) pluralizeWord(word string, n int) string {
	return in.pluralize.PluralizeNoun(word, n)
}
