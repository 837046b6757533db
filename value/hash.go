package value

import (
	"math"
	"reflect"

	"github.com/zond/monty/bigint"
	"github.com/zond/monty/limits"
)

func uintptrOf(o heapObject) uintptr { return reflect.ValueOf(o).Pointer() }

// ErrUnhashable is returned by Hash for mutable containers (spec.md §3
// invariant 3).
type ErrUnhashable struct{ Kind Kind }

func (e *ErrUnhashable) Error() string { return "unhashable type: '" + e.Kind.String() + "'" }

// Hash implements Monty's hash protocol. It upholds spec.md §3 invariant
// 2 (x == y => hash(x) == hash(y)) across every representation pair the
// spec calls out: i64 vs BigInt, interned vs heap Str, equal-content
// tuples, and int vs float. tr may be nil (see Eq).
func Hash(v Value, tr *limits.Tracker) (uint64, error) {
	switch v.kind {
	case KindNone:
		return hashConst(0x1a2b3c), nil
	case KindEllipsis:
		return hashConst(0x4d5e6f), nil
	case KindBool:
		if v.b {
			return hashSmallInt(1), nil
		}
		return hashSmallInt(0), nil
	case KindInt:
		return v.AsBigInt().Hash(), nil
	case KindFloat:
		return hashFloat(v.f64), nil
	case KindStr:
		return hashBytes([]byte(v.obj.(*strObj).s)), nil
	case KindBytes:
		return hashBytes(v.obj.(*bytesObj).b), nil
	case KindRange:
		r := v.obj.(*rangeObj)
		n := r.length()
		if n == 0 {
			return hashSeqHeader(0) ^ hashConst(0x72616e67), nil
		}
		if n == 1 {
			return hashSmallInt(r.start) ^ hashConst(0x72616e67), nil
		}
		h := hashSeqHeader(int64(n))
		h = mix(h, hashSmallInt(r.start))
		h = mix(h, hashSmallInt(r.step))
		return h ^ hashConst(0x72616e67), nil
	case KindTuple:
		return hashSeq(v.obj.(*tupleObj).items, tr)
	case KindFrozenSet:
		return hashSetUnordered(v.obj.(*setObj), tr)
	case KindType:
		return hashIdentity(v.obj), nil
	case KindFunction, KindBuiltinFunction, KindBoundMethod:
		return hashIdentity(v.obj), nil
	case KindDataclass:
		d := v.obj.(*dataclassObj)
		if !d.typ.frozen {
			return 0, &ErrUnhashable{Kind: v.kind}
		}
		return hashDataclass(d, tr)
	default:
		return 0, &ErrUnhashable{Kind: v.kind}
	}
}

func hashConst(x uint64) uint64 { return x * 0x9E3779B97F4A7C15 }

func hashSmallInt(v int64) uint64 { return bigint.FromInt64(v).Hash() }

// hashFloat upholds hash(-0.0) == hash(0.0) (spec.md §3) and hash(f) ==
// hash(int-equal-value) when f has no fractional part.
func hashFloat(f float64) uint64 {
	if f == 0 {
		return hashSmallInt(0)
	}
	if math.IsNaN(f) {
		return hashConst(0)
	}
	if math.Trunc(f) == f && math.Abs(f) < 1e18 {
		return hashSmallInt(int64(f))
	}
	bits := math.Float64bits(f)
	return bits ^ (bits >> 33)
}

func hashBytes(b []byte) uint64 {
	// FNV-1a.
	var h uint64 = 1469598103934665603
	for _, c := range b {
		h ^= uint64(c)
		h *= 1099511628211
	}
	return h
}

func hashIdentity(o heapObject) uint64 {
	// Identity hash: stable for the object's lifetime, derived from its
	// address. Non-goal: deterministic address-based repr; this is
	// purely an internal hash bucket, never shown to script land.
	return hashConst(uint64(uintptrOf(o)))
}

func hashSeqHeader(n int64) uint64 { return hashConst(uint64(n) + 1) }

func mix(h, x uint64) uint64 {
	h ^= x + 0x9E3779B97F4A7C15 + (h << 6) + (h >> 2)
	return h
}

func hashSeq(items []Value, tr *limits.Tracker) (uint64, error) {
	var h uint64
	err := withDepthE(tr, func() error {
		h = hashSeqHeader(int64(len(items)))
		for _, it := range items {
			ih, err := Hash(it, tr)
			if err != nil {
				return err
			}
			h = mix(h, ih)
		}
		return nil
	})
	return h, err
}

func hashSetUnordered(s *setObj, tr *limits.Tracker) (uint64, error) {
	var h uint64
	err := withDepthE(tr, func() error {
		h = hashSeqHeader(int64(s.liveCount())) ^ hashConst(0x736574)
		for _, e := range s.entries {
			if e.deleted {
				continue
			}
			ih, err := Hash(e.val, tr)
			if err != nil {
				return err
			}
			h ^= ih // order-insensitive combination
		}
		return nil
	})
	return h, err
}

func hashDataclass(d *dataclassObj, tr *limits.Tracker) (uint64, error) {
	var h uint64
	err := withDepthE(tr, func() error {
		h = hashSeqHeader(int64(len(d.typ.fields)))
		for _, name := range d.typ.fields {
			ih, err := Hash(d.fields[name], tr)
			if err != nil {
				return err
			}
			h = mix(h, ih)
		}
		return nil
	})
	return h, err
}

func withDepthE(tr *limits.Tracker, f func() error) error {
	_, err := withDepth(tr, func() (bool, error) { return true, f() })
	return err
}
