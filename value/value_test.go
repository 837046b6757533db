package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zond/monty/bigint"
	"github.com/zond/monty/limits"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	tr := limits.New(limits.Config{})
	tr.Start()
	return NewHeap(tr)
}

func TestHashConsistentAcrossIntRepresentation(t *testing.T) {
	small := Int(42)
	big := BigInt(bigint.FromBig(bigint.FromInt64(42).Big()))
	h1, err := Hash(small, nil)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Hash(big, nil)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("hash mismatch: %d vs %d", h1, h2)
	}
	eq, err := Eq(small, big, nil)
	if err != nil || !eq {
		t.Fatalf("expected equal, got %v err %v", eq, err)
	}
}

func TestHashIntFloatEquivalence(t *testing.T) {
	i := Int(7)
	f := Float(7.0)
	eq, err := Eq(i, f, nil)
	if err != nil || !eq {
		t.Fatalf("7 == 7.0 expected, got %v, err %v", eq, err)
	}
	hi, _ := Hash(i, nil)
	hf, _ := Hash(f, nil)
	if hi != hf {
		t.Fatalf("hash(7) != hash(7.0): %d vs %d", hi, hf)
	}
}

func TestInternedVsHeapStringEquality(t *testing.T) {
	h := newTestHeap(t)
	a, err := h.Str("short")
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Str("short")
	if err != nil {
		t.Fatal(err)
	}
	eq, err := Eq(a, b, nil)
	if err != nil || !eq {
		t.Fatalf("interned strings must compare equal by content")
	}
	ha, _ := Hash(a, nil)
	hb, _ := Hash(b, nil)
	if ha != hb {
		t.Fatalf("interned strings must hash equal")
	}
}

func TestTupleEqualityAndHashByContent(t *testing.T) {
	h := newTestHeap(t)
	t1, err := h.Tuple([]Value{Int(1), Int(2), Int(3)})
	if err != nil {
		t.Fatal(err)
	}
	t2, err := h.Tuple([]Value{Int(1), Int(2), Int(3)})
	if err != nil {
		t.Fatal(err)
	}
	eq, err := Eq(t1, t2, nil)
	if err != nil || !eq {
		t.Fatalf("equal-content tuples must be Eq")
	}
	h1, _ := Hash(t1, nil)
	h2, _ := Hash(t2, nil)
	if h1 != h2 {
		t.Fatalf("equal-content tuples must hash equal")
	}
	h.Release(t1)
	h.Release(t2)
}

func TestUnhashableMutableContainers(t *testing.T) {
	h := newTestHeap(t)
	l, err := h.List([]Value{Int(1)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Hash(l, nil); err == nil {
		t.Fatalf("expected ErrUnhashable for list")
	}
	s, err := h.Set(false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Hash(s, nil); err == nil {
		t.Fatalf("expected ErrUnhashable for set")
	}
}

func TestIterativeDropDeepNesting(t *testing.T) {
	h := newTestHeap(t)
	cur, err := h.List(nil)
	if err != nil {
		t.Fatal(err)
	}
	const depth = 10000
	for i := 0; i < depth; i++ {
		next, err := h.List([]Value{cur})
		if err != nil {
			t.Fatalf("alloc at depth %d: %v", i, err)
		}
		h.Release(cur) // next now owns the only strong ref
		cur = next
	}
	// Must not native-stack-overflow; iterative teardown handles it.
	h.Release(cur)
}

func TestListAppendAndRelease(t *testing.T) {
	h := newTestHeap(t)
	l, err := h.List(nil)
	if err != nil {
		t.Fatal(err)
	}
	s, err := h.Str("x")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.ListAppend(l, s); err != nil {
		t.Fatal(err)
	}
	h.Release(s) // list still owns a ref
	if got := l.AsList()[0].AsStr(); got != "x" {
		t.Fatalf("got %q", got)
	}
	h.Release(l)
}

func TestDictSetGetDel(t *testing.T) {
	h := newTestHeap(t)
	d, err := h.Dict()
	if err != nil {
		t.Fatal(err)
	}
	k, _ := h.Str("k")
	v, _ := h.Str("v")
	if err := h.DictSet(d, k, v); err != nil {
		t.Fatal(err)
	}
	got, found, err := h.DictGet(d, k)
	if err != nil || !found {
		t.Fatalf("expected found, got %v %v", found, err)
	}
	if got.AsStr() != "v" {
		t.Fatalf("got %q", got.AsStr())
	}
	ok, err := h.DictDel(d, k)
	if err != nil || !ok {
		t.Fatalf("expected delete ok")
	}
	_, found, _ = h.DictGet(d, k)
	if found {
		t.Fatalf("expected not found after delete")
	}
}

func TestRangeHashAndEqByBoundaryCases(t *testing.T) {
	h := newTestHeap(t)
	empty1, _ := h.Range(0, 0, 1)
	empty2, _ := h.Range(5, 5, 1)
	eq, err := Eq(empty1, empty2, nil)
	if err != nil || !eq {
		t.Fatalf("empty ranges with different start must be equal")
	}
	single1, _ := h.Range(3, 4, 1)
	single2, _ := h.Range(3, 9, 9)
	eq, err = Eq(single1, single2, nil)
	if err != nil || !eq {
		t.Fatalf("single-element ranges with same start must be equal regardless of step")
	}
}

func TestFrozenSetOrderInsensitiveHash(t *testing.T) {
	h := newTestHeap(t)
	a, _ := h.Set(true)
	h.SetAdd(a, Int(1))
	h.SetAdd(a, Int(2))
	b, _ := h.Set(true)
	h.SetAdd(b, Int(2))
	h.SetAdd(b, Int(1))
	eq, err := Eq(a, b, nil)
	if err != nil || !eq {
		t.Fatalf("frozensets must be order-insensitive for Eq")
	}
	ha, _ := Hash(a, nil)
	hb, _ := Hash(b, nil)
	if ha != hb {
		t.Fatalf("frozensets must be order-insensitive for Hash")
	}
}

func TestReprRoundTripLiterals(t *testing.T) {
	h := newTestHeap(t)
	tup, _ := h.Tuple([]Value{Int(1), Bool(true), None})
	got, err := Repr(tup, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "(1, True, None)"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("repr mismatch (-want +got):\n%s", diff)
	}
}

func TestReprSingleElementTupleTrailingComma(t *testing.T) {
	h := newTestHeap(t)
	tup, _ := h.Tuple([]Value{Int(1)})
	got, err := Repr(tup, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "(1,)" {
		t.Fatalf("got %q", got)
	}
}

func TestAttributeErrorMessage(t *testing.T) {
	h := newTestHeap(t)
	typ, err := h.Type("Point", []string{"x", "y"}, false)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := h.Dataclass(typ, map[string]Value{"x": Int(1), "y": Int(2)})
	if err != nil {
		t.Fatal(err)
	}
	_, err = h.GetAttr(inst, "z")
	if err == nil {
		t.Fatalf("expected AttributeError")
	}
	want := "'Point' object has no attribute 'z'"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}

func TestFrozenDataclassSetAttrRejected(t *testing.T) {
	h := newTestHeap(t)
	typ, err := h.Type("Frozen", []string{"x"}, true)
	if err != nil {
		t.Fatal(err)
	}
	inst, err := h.Dataclass(typ, map[string]Value{"x": Int(1)})
	if err != nil {
		t.Fatal(err)
	}
	err = h.SetAttr(inst, "x", Int(2))
	if err == nil {
		t.Fatalf("expected FrozenAttributeError")
	}
	if _, ok := err.(*FrozenAttributeError); !ok {
		t.Fatalf("got %T", err)
	}
}

func TestFrozenDataclassHashable(t *testing.T) {
	h := newTestHeap(t)
	typ, _ := h.Type("P", []string{"x", "y"}, true)
	a, _ := h.Dataclass(typ, map[string]Value{"x": Int(1), "y": Int(2)})
	b, _ := h.Dataclass(typ, map[string]Value{"x": Int(1), "y": Int(2)})
	eq, err := Eq(a, b, nil)
	if err != nil || !eq {
		t.Fatalf("equal field dataclasses of same frozen type must be Eq")
	}
	ha, err := Hash(a, nil)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := Hash(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Fatalf("equal frozen dataclasses must hash equal")
	}
}
