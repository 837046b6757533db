package hostbridge

import (
	"testing"

	"github.com/zond/monty/interp"
	"github.com/zond/monty/limits"
	"github.com/zond/monty/value"
)

func newTestBridge(t *testing.T) (*Bridge, *interp.Interp) {
	t.Helper()
	tr := limits.New(limits.Config{})
	tr.Start()
	h := value.NewHeap(tr)
	in, err := interp.New(h)
	if err != nil {
		t.Fatalf("interp.New: %v", err)
	}
	return New(in, 4, nil), in
}

func TestValueFromGoRoundTripsThroughGoFromValue(t *testing.T) {
	b, _ := newTestBridge(t)
	src := map[string]any{
		"name": "ada",
		"age":  36.0,
		"tags": []any{"x", "y"},
		"nil":  nil,
	}
	v, err := b.ValueFromGo(src)
	if err != nil {
		t.Fatalf("ValueFromGo: %v", err)
	}
	if v.Kind() != value.KindDict {
		t.Fatalf("expected a dict, got %s", v.Kind().String())
	}

	var dst map[string]any
	if err := b.GoFromValue(&dst, v); err != nil {
		t.Fatalf("GoFromValue: %v", err)
	}
	if dst["name"] != "ada" {
		t.Fatalf("expected name=ada, got %#v", dst["name"])
	}
	if dst["age"] != 36.0 {
		t.Fatalf("expected age=36, got %#v", dst["age"])
	}
	if dst["nil"] != nil {
		t.Fatalf("expected nil, got %#v", dst["nil"])
	}
	tags, ok := dst["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "x" || tags[1] != "y" {
		t.Fatalf("expected tags=[x y], got %#v", dst["tags"])
	}
}

func TestValueFromGoPreservesIntegersAsInt64(t *testing.T) {
	b, _ := newTestBridge(t)
	v, err := b.ValueFromGo(42)
	if err != nil {
		t.Fatalf("ValueFromGo: %v", err)
	}
	if v.Kind() != value.KindInt {
		t.Fatalf("expected an int, got %s", v.Kind().String())
	}
	if v.Int64() != 42 {
		t.Fatalf("expected 42, got %d", v.Int64())
	}
}

func TestGoFromValueRejectsNonStringDictKeys(t *testing.T) {
	b, _ := newTestBridge(t)
	d, err := b.heap.Dict()
	if err != nil {
		t.Fatalf("Dict: %v", err)
	}
	if err := b.heap.DictSet(d, value.Int(1), value.Int(2)); err != nil {
		t.Fatalf("DictSet: %v", err)
	}
	var dst any
	if err := b.GoFromValue(&dst, d); err == nil {
		t.Fatalf("expected an error for a non-str dict key crossing the host boundary")
	}
}

func TestRegisterSyncCallableIsCallableFromGlobals(t *testing.T) {
	b, in := newTestBridge(t)
	if err := b.Register("double", func(args []value.Value) (value.Value, error) {
		return value.Int(2 * args[0].Int64()), nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	fn, ok := in.Globals["double"]
	if !ok {
		t.Fatalf("expected double to be installed in Globals")
	}
	result, err := in.Call(fn, []value.Value{value.Int(21)}, nil, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Int64() != 42 {
		t.Fatalf("expected 42, got %d", result.Int64())
	}
}

func TestRegisterAsyncCallableReturnsAFuture(t *testing.T) {
	done := make(chan struct{})
	b, in := newTestBridge(t)
	b.notify = func() { close(done) }
	if err := b.RegisterAsync("slow_double", func(args []value.Value) (value.Value, error) {
		return value.Int(2 * args[0].Int64()), nil
	}); err != nil {
		t.Fatalf("RegisterAsync: %v", err)
	}
	fn := in.Globals["slow_double"]
	result, err := in.Call(fn, []value.Value{value.Int(21)}, nil, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Kind() != value.KindFuture {
		t.Fatalf("expected a Future, got %s", result.Kind().String())
	}
	<-done
	ready, val, ferr := result.FuturePoll()
	if !ready {
		t.Fatalf("expected the future to be settled after notify fired")
	}
	if ferr != nil {
		t.Fatalf("unexpected future error: %v", ferr)
	}
	if val.Int64() != 42 {
		t.Fatalf("expected 42, got %d", val.Int64())
	}
}
