package value

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zond/monty/limits"
)

// Heap owns allocation/charge bookkeeping for one engine. Every
// constructor that allocates a heap object goes through Heap so that no
// object becomes observable before its allocation is charged to the
// active Tracker (spec.md §3 invariant 5, §4.A). The intern cache is
// per-Heap (spec.md §5: "the heap and limit tracker are per-engine") so
// that interning in one engine never shares refcounted storage, or
// allocation credit, with another.
type Heap struct {
	tr     *limits.Tracker
	intern *lru.Cache[string, *strObj]
}

// NewHeap returns a Heap charging against tr.
func NewHeap(tr *limits.Tracker) *Heap {
	h := &Heap{tr: tr}
	h.intern, _ = lru.NewWithEvict(internCap, func(_ string, o *strObj) {
		h.releaseObj(o)
	})
	return h
}

// Tracker exposes the underlying limits.Tracker, e.g. so the
// interpreter can call EnterFrame/LeaveFrame around call frames.
func (h *Heap) Tracker() *limits.Tracker { return h.tr }

// approxSize estimates the retained byte footprint of a container's own
// storage (not its children, which are charged independently when they
// are themselves allocated) — a coarse but monotonic accounting unit,
// consistent with spec.md §4.C's "peak live byte count" requirement
// rather than an exact memory-profiler figure.
func approxSize(obj heapObject) int {
	const wordSize = 8
	switch o := obj.(type) {
	case *strObj:
		return len(o.s) + wordSize
	case *bytesObj:
		return len(o.b) + wordSize
	case *tupleObj:
		return len(o.items)*wordSize + wordSize
	case *listObj:
		return cap(o.items)*wordSize + wordSize
	case *dictObj:
		return len(o.entries)*wordSize*3 + wordSize
	case *setObj:
		return len(o.entries)*wordSize*2 + wordSize
	case *rangeObj, *sliceObj:
		return wordSize * 4
	case *Cell:
		return wordSize * 2
	case *functionObj:
		return wordSize * (4 + len(o.defaults) + len(o.closure))
	case *boundMethodObj:
		return wordSize * 3
	case *typeObj:
		return wordSize * (4 + len(o.fields))
	case *exceptionObj:
		return wordSize * 6
	case *dataclassObj:
		return wordSize * (2 + len(o.fields))
	case *coroutineObj:
		return wordSize * (3 + len(o.args) + len(o.kwargs))
	case *futureObj, *taskObj:
		return wordSize * 4
	case *iteratorObj:
		return wordSize * (2 + len(o.items))
	case *moduleObj:
		return wordSize * (2 + len(o.attrs))
	default:
		return wordSize
	}
}

// charge allocates obj: it charges its footprint to the tracker and sets
// its initial refcount to 1 (spec.md §3 invariant 1). Returns a fault if
// the tracker refuses the allocation — in which case obj must be
// discarded, never returned to script land.
func (h *Heap) charge(obj heapObject) error {
	*obj.rc() = 1
	if h.tr == nil {
		return nil
	}
	return h.tr.ChargeAlloc(approxSize(obj))
}

// Retain increments v's refcount if v is heap-backed. Returns v for
// chaining (e.g. `x = h.Retain(y)`).
func (h *Heap) Retain(v Value) Value {
	if v.obj != nil {
		*v.obj.rc()++
	}
	return v
}

// Release decrements v's refcount; at zero it frees v's own storage and
// walks an explicit worklist over its children so no native stack frame
// is consumed per nesting level, however deep (spec.md §4.A "Iterative
// drop", §8 "dropping a 10 000-deep list/tuple/dict succeeds").
func (h *Heap) Release(v Value) {
	if v.obj == nil {
		return
	}
	h.releaseObj(v.obj)
}

func (h *Heap) releaseObj(obj heapObject) {
	work := []heapObject{obj}
	for len(work) > 0 {
		n := len(work) - 1
		cur := work[n]
		work = work[:n]

		rc := cur.rc()
		*rc--
		if *rc > 0 {
			continue
		}
		if h.tr != nil {
			h.tr.ChargeFree(approxSize(cur))
		}
		work = append(work, childrenOf(cur)...)
	}
}

// RefCount returns v's current refcount (1 for a freshly-allocated,
// unshared object; 0 for inline/unboxed values).
func RefCount(v Value) int32 {
	if v.obj == nil {
		return 0
	}
	return *v.obj.rc()
}
