package monty

import (
	"fmt"
	"testing"
	"time"

	"github.com/zond/monty/value"
)

func asFloat(t *testing.T, x any) float64 {
	t.Helper()
	switch v := x.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		t.Fatalf("expected numeric result, got %T (%v)", x, x)
		return 0
	}
}

// spec.md §8 scenario 1.
func TestRunArithmetic(t *testing.T) {
	result, err := New("t.monty", "1 + 1").Run(nil, ResourceLimits{}.WithMaxDurationSecs(5.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := asFloat(t, result); got != 2 {
		t.Fatalf("expected 2, got %v", result)
	}
}

// spec.md §8 scenario 2.
func TestRunWithInputs(t *testing.T) {
	result, err := New("t.monty", "x * 2").Run(map[string]any{"x": 21}, ResourceLimits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := asFloat(t, result); got != 42 {
		t.Fatalf("expected 42, got %v", result)
	}
}

// spec.md §8 scenario 3.
func TestRunRecursionLimit(t *testing.T) {
	src := `
def r(n):
    if n <= 0:
        return 0
    return 1 + r(n - 1)
r(10)
`
	_, err := New("t.monty", src).Run(nil, ResourceLimits{}.WithMaxRecursionDepth(5))
	if err == nil {
		t.Fatalf("expected a RuntimeError envelope")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if re.ClassName != "RecursionError" {
		t.Fatalf("expected RecursionError, got %s: %s", re.ClassName, re.Message)
	}
}

// spec.md §4.C/§7: an unbounded busy loop must fault with a wall-clock
// exhaustion once max_duration_secs elapses, not run forever.
func TestRunWallClockTimeoutFaults(t *testing.T) {
	src := `
while True:
    pass
`
	_, err := New("t.monty", src).Run(nil, ResourceLimits{}.WithMaxDurationSecs(0.05))
	if err == nil {
		t.Fatalf("expected the busy loop to fault on wall-clock exhaustion")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if re.ClassName != "MemoryError" {
		t.Fatalf("expected MemoryError (DESIGN.md's wall-clock-exhaustion choice), got %s: %s", re.ClassName, re.Message)
	}
}

// spec.md §8 scenario 7, default case: a host signal with no handler
// override surfaces as KeyboardInterrupt through the RuntimeError
// envelope.
func TestRunAsyncInterruptKeyboardYieldsKeyboardInterrupt(t *testing.T) {
	src := `
while True:
    pass
`
	h, err := New("t.monty", src).RunAsync(nil, ResourceLimits{}.WithMaxDurationSecs(5.0))
	if err != nil {
		t.Fatalf("unexpected error preparing run: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	h.InterruptKeyboard()
	_, runErr := h.Wait()
	re, ok := runErr.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T: %v", runErr, runErr)
	}
	if re.ClassName != "KeyboardInterrupt" {
		t.Fatalf("expected KeyboardInterrupt, got %s: %s", re.ClassName, re.Message)
	}
}

// spec.md §8 scenario 7, host-handler-raised case: the host can deliver
// an arbitrary exception class/message instead of the default
// KeyboardInterrupt, and it round-trips through the same envelope.
func TestRunAsyncInterruptCustomExceptionRoundTrips(t *testing.T) {
	src := `
while True:
    pass
`
	h, err := New("t.monty", src).RunAsync(nil, ResourceLimits{}.WithMaxDurationSecs(5.0))
	if err != nil {
		t.Fatalf("unexpected error preparing run: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	h.Interrupt("ValueError", "potato")
	_, runErr := h.Wait()
	re, ok := runErr.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T: %v", runErr, runErr)
	}
	if re.ClassName != "ValueError" || re.Message != "potato" {
		t.Fatalf("expected ValueError('potato'), got %s: %s", re.ClassName, re.Message)
	}
}

// spec.md §8 scenario 4: a huge pow must fail on predicted cost before
// allocating, not after.
func TestRunMemoryLimitPredictsBeforeAllocating(t *testing.T) {
	_, err := New("t.monty", "2 ** 10000000").Run(nil, ResourceLimits{}.WithMaxMemory(1_000_000))
	if err == nil {
		t.Fatalf("expected a MemoryError envelope")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if re.ClassName != "MemoryError" {
		t.Fatalf("expected MemoryError, got %s: %s", re.ClassName, re.Message)
	}
}

// spec.md §8 scenario 5: gather preserves argument order, not completion
// order.
func TestGatherPreservesArgumentOrder(t *testing.T) {
	src := `
import asyncio

async def slow():
    await asyncio.sleep(0.02)
    return 'slow'

async def fast():
    return 'fast'

await asyncio.gather(slow(), fast())
`
	result, err := New("t.monty", src).Run(nil, ResourceLimits{}.WithMaxDurationSecs(5.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := result.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected a two-element list, got %#v", result)
	}
	if list[0] != "slow" || list[1] != "fast" {
		t.Fatalf("expected ['slow', 'fast'] in argument order, got %#v", list)
	}
}

// spec.md §8 scenario 6: two gathered tasks each recursing 40 levels
// under a 50-level per-task cap both succeed, proving recursion depth is
// tracked per task and not globally.
func TestPerTaskRecursionDepth(t *testing.T) {
	src := `
import asyncio

async def recurse_then_call(n):
    if n <= 0:
        return 'done'
    return await recurse_then_call(n - 1)

async def main():
    return await asyncio.gather(recurse_then_call(40), recurse_then_call(40))

await asyncio.gather(main())
`
	result, err := New("t.monty", src).Run(nil, ResourceLimits{}.WithMaxRecursionDepth(50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outer, ok := result.([]any)
	if !ok || len(outer) != 1 {
		t.Fatalf("expected a one-element outer list, got %#v", result)
	}
	inner, ok := outer[0].([]any)
	if !ok || len(inner) != 2 || inner[0] != "done" || inner[1] != "done" {
		t.Fatalf("expected ['done', 'done'], got %#v", outer[0])
	}
}

func TestRunUncaughtValueErrorEnvelope(t *testing.T) {
	_, err := New("t.monty", "raise ValueError('boom')").Run(nil, ResourceLimits{})
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if re.ClassName != "ValueError" || re.Message != "boom" {
		t.Fatalf("unexpected envelope: %+v", re)
	}
	if re.Exception.Kind() != value.KindException {
		t.Fatalf("expected Exception() to return the original exception value")
	}
	if re.RunID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("expected a freshly generated RunID")
	}
}

func TestRunUncaughtErrorsGetDistinctRunIDs(t *testing.T) {
	eng := New("t.monty", "raise ValueError('boom')")
	_, err1 := eng.Run(nil, ResourceLimits{})
	_, err2 := eng.Run(nil, ResourceLimits{})
	re1, ok1 := err1.(*RuntimeError)
	re2, ok2 := err2.(*RuntimeError)
	if !ok1 || !ok2 {
		t.Fatalf("expected *RuntimeError on both calls, got %T and %T", err1, err2)
	}
	if re1.RunID == re2.RunID {
		t.Fatalf("expected distinct RunIDs across separate Run calls, got %s twice", re1.RunID)
	}
}

func TestRunCaughtExceptionDoesNotEscape(t *testing.T) {
	src := `
try:
    raise ValueError('x')
except ValueError as e:
    result = str(e)
result
`
	result, err := New("t.monty", src).Run(nil, ResourceLimits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "x" {
		t.Fatalf("expected 'x', got %v", result)
	}
}

func TestRunHostCallableSync(t *testing.T) {
	eng := New("t.monty", "double(21)")
	eng.RegisterCallable("double", func(args []value.Value) (value.Value, error) {
		return value.Int(2 * args[0].Int64()), nil
	})
	result, err := eng.Run(nil, ResourceLimits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := asFloat(t, result); got != 42 {
		t.Fatalf("expected 42, got %v", result)
	}
}

func TestRunHostCallableAsync(t *testing.T) {
	eng := New("t.monty", `
import asyncio

async def main():
    return await slow_double(21)

await asyncio.gather(main())
`)
	eng.RegisterAsyncCallable("slow_double", func(args []value.Value) (value.Value, error) {
		return value.Int(2 * args[0].Int64()), nil
	})
	result, err := eng.Run(nil, ResourceLimits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Awaiting gather() yields a list of results, one per argument.
	list, ok := result.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("expected a one-element list, got %#v", result)
	}
	if got := asFloat(t, list[0]); got != 42 {
		t.Fatalf("expected 42, got %v", list[0])
	}
}

func TestSpreadCallUnpacksPositionalAndKeywordArgs(t *testing.T) {
	src := `
def f(a, b, c, d=0):
    return a + b + c + d

xs = (1, 2)
kw = {'d': 10}
f(*xs, 3, **kw)
`
	result, err := New("t.monty", src).Run(nil, ResourceLimits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := asFloat(t, result); got != 16 {
		t.Fatalf("expected 16, got %v", result)
	}
}

func TestDeclareDataclassConstructsAndReadsFields(t *testing.T) {
	eng := New("t.monty", `
p = Point(1, 2)
p.x + p.y
`)
	eng.DeclareDataclass("Point", []string{"x", "y"}, false)
	result, err := eng.Run(nil, ResourceLimits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := asFloat(t, result); got != 3 {
		t.Fatalf("expected 3, got %v", result)
	}
}

func TestDeclareDataclassFrozenRejectsSetAttr(t *testing.T) {
	eng := New("t.monty", `
p = Point(1, 2)
p.x = 9
`)
	eng.DeclareDataclass("Point", []string{"x", "y"}, true)
	_, err := eng.Run(nil, ResourceLimits{})
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if re.ClassName != "AttributeError" {
		t.Fatalf("expected AttributeError, got %s: %s", re.ClassName, re.Message)
	}
}

func TestResourceLimitsRepr(t *testing.T) {
	rl := ResourceLimits{}.WithMaxMemory(42)
	if got := rl.Repr(); got != "ResourceLimits(max_memory=42)" {
		t.Fatalf("unexpected repr: %q", got)
	}
}

func TestWithStackIdempotent(t *testing.T) {
	err := fmt.Errorf("boom")
	wrapped := WithStack(err)
	if WithStack(wrapped) != wrapped {
		t.Fatalf("WithStack should not double-wrap an error that already carries a stack trace")
	}
}
