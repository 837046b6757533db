// Package value implements Monty's value model and heap (spec.md §3,
// §4.A): tagged values, reference-counted heap objects, iterative
// teardown, and the structural eq/hash/repr protocols shared by every
// container.
package value

import "github.com/zond/monty/bigint"

// heapObject is implemented by every reference-counted container type.
// Its direct children are listed by childrenOf, so Heap.Release can drive
// an iterative (non-recursive) teardown worklist (spec.md §4.A).
type heapObject interface {
	Kind() Kind
	rc() *int32
}

// childrenOf returns obj's direct heap-object children for iterative
// drop (spec.md §4.A "Iterative drop"), or nil if obj holds none.
// Implemented as a type switch rather than a Children() method on every
// type so leaf objects like Str/Bytes need no boilerplate.
func childrenOf(obj heapObject) []heapObject {
	appendVal := func(out []heapObject, vs ...Value) []heapObject {
		for _, v := range vs {
			if v.obj != nil {
				out = append(out, v.obj)
			}
		}
		return out
	}
	switch o := obj.(type) {
	case *tupleObj:
		return appendVal(nil, o.items...)
	case *listObj:
		return appendVal(nil, o.items...)
	case *dictObj:
		var out []heapObject
		for _, e := range o.entries {
			if e.deleted {
				continue
			}
			out = appendVal(out, e.key, e.val)
		}
		return out
	case *setObj:
		var out []heapObject
		for _, e := range o.entries {
			if !e.deleted {
				out = appendVal(out, e.val)
			}
		}
		return out
	case *Cell:
		return appendVal(nil, o.v)
	case *functionObj:
		out := appendVal(nil, o.defaults...)
		for _, c := range o.closure {
			out = append(out, c)
		}
		return out
	case *boundMethodObj:
		return appendVal(nil, o.recv, o.fn)
	case *exceptionObj:
		out := appendVal(nil, o.args)
		if o.hasCause {
			out = appendVal(out, o.cause)
		}
		return out
	case *dataclassObj:
		out := []heapObject{o.typ}
		for _, v := range o.fields {
			out = appendVal(out, v)
		}
		return out
	case *coroutineObj:
		out := appendVal(nil, o.fn)
		out = appendVal(out, o.args...)
		for _, v := range o.kwargs {
			out = appendVal(out, v)
		}
		return out
	case *futureObj:
		if o.done && o.err == nil {
			return appendVal(nil, o.result)
		}
		return nil
	case *taskObj:
		if o.done && o.err == nil {
			return appendVal(nil, o.result)
		}
		return nil
	case *iteratorObj:
		return appendVal(nil, o.items...)
	case *moduleObj:
		var out []heapObject
		for _, v := range o.attrs {
			out = appendVal(out, v)
		}
		return out
	default:
		return nil
	}
}

// Value is Monty's universal value slot (spec.md §3). Small immutables
// (None, Bool, Ellipsis, unboxed Int, Float) are stored inline; every
// other variant is a reference to a heap object whose refcount is
// managed by Heap.Retain/Release.
type Value struct {
	kind Kind
	b    bool
	i64  int64
	bi   *bigint.Int // non-nil only for boxed (big) ints
	f64  float64
	obj  heapObject
}

// Kind reports v's variant.
func (v Value) Kind() Kind { return v.kind }

var (
	None      = Value{kind: KindNone}
	True      = Value{kind: KindBool, b: true}
	False     = Value{kind: KindBool, b: false}
	Ellipsis  = Value{kind: KindEllipsis}
)

// Bool returns the canonical Bool value.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Int returns an unboxed int64 Value.
func Int(i int64) Value { return Value{kind: KindInt, i64: i} }

// BigInt returns an Int Value backed by bi, demoting to unboxed form
// when bi fits in int64 (spec.md §3 invariant: the two forms are
// semantically indistinguishable).
func BigInt(bi bigint.Int) Value {
	if bi.IsSmall() {
		return Int(bi.Int64())
	}
	cp := bi
	return Value{kind: KindInt, bi: &cp}
}

// AsBigInt returns v's numeric value as a bigint.Int regardless of
// representation. v must be KindInt.
func (v Value) AsBigInt() bigint.Int {
	if v.bi != nil {
		return *v.bi
	}
	return bigint.FromInt64(v.i64)
}

// IsSmallInt reports whether v is an unboxed int64.
func (v Value) IsSmallInt() bool { return v.kind == KindInt && v.bi == nil }

// Int64 returns the unboxed int64 value. Valid only when IsSmallInt.
func (v Value) Int64() int64 { return v.i64 }

// Float returns a Float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f64: f} }

// AsFloat returns v's float64 payload. v must be KindFloat.
func (v Value) AsFloat() float64 { return v.f64 }

// AsBool returns v's bool payload. v must be KindBool.
func (v Value) AsBool() bool { return v.b }

// IsNone reports whether v is the None singleton.
func (v Value) IsNone() bool { return v.kind == KindNone }

// Truthy implements Python-style truthiness for control flow.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNone:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.AsBigInt().Sign() != 0
	case KindFloat:
		return v.f64 != 0
	case KindStr:
		return len([]rune(v.obj.(*strObj).s)) != 0
	case KindBytes:
		return len(v.obj.(*bytesObj).b) != 0
	case KindTuple:
		return len(v.obj.(*tupleObj).items) != 0
	case KindList:
		return len(v.obj.(*listObj).items) != 0
	case KindDict:
		return v.obj.(*dictObj).liveCount() != 0
	case KindSet, KindFrozenSet:
		return v.obj.(*setObj).liveCount() != 0
	case KindRange:
		return v.obj.(*rangeObj).length() != 0
	default:
		return true
	}
}

// object exposes the underlying heapObject for heap-internal operations
// (retain/release/identity). Only value-package-internal files use this.
func (v Value) object() heapObject { return v.obj }

func fromObject(k Kind, o heapObject) Value { return Value{kind: k, obj: o} }
