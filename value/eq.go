package value

import "github.com/zond/monty/limits"

// Eq implements Monty's equality protocol (spec.md §3, §4.A). Recursion
// into container elements shares the active task's recursion-depth
// counter via tr (spec.md §4.A "Bounded recursion for eq and hash") so a
// pathologically deep structure raises the same RecursionError a call
// stack overflow would, never a native stack overflow. tr may be nil in
// contexts with no recursion budget (e.g. unit tests); depth is then
// unbounded.
func Eq(a, b Value, tr *limits.Tracker) (bool, error) {
	if a.kind != b.kind {
		// int/float cross-kind comparison: Python compares 1 == 1.0.
		if isNumeric(a.kind) && isNumeric(b.kind) {
			return numericEq(a, b), nil
		}
		return false, nil
	}
	switch a.kind {
	case KindNone, KindEllipsis:
		return true, nil
	case KindBool:
		return a.b == b.b, nil
	case KindInt:
		return a.AsBigInt().Cmp(b.AsBigInt()) == 0, nil
	case KindFloat:
		return a.f64 == b.f64, nil
	case KindStr:
		return a.obj.(*strObj).s == b.obj.(*strObj).s, nil
	case KindBytes:
		return bytesEqual(a.obj.(*bytesObj).b, b.obj.(*bytesObj).b), nil
	case KindRange:
		ra, rb := a.obj.(*rangeObj), b.obj.(*rangeObj)
		return rangeEq(ra, rb), nil
	case KindTuple:
		return eqSeq(a.obj.(*tupleObj).items, b.obj.(*tupleObj).items, tr)
	case KindList:
		return eqSeq(a.obj.(*listObj).items, b.obj.(*listObj).items, tr)
	case KindDict:
		return eqDict(a.obj.(*dictObj), b.obj.(*dictObj), tr)
	case KindSet, KindFrozenSet:
		return eqSet(a.obj.(*setObj), b.obj.(*setObj), tr)
	case KindType, KindFunction, KindBuiltinFunction, KindBoundMethod,
		KindCoroutine, KindFuture, KindTask, KindModule, KindIterator:
		return a.obj == b.obj, nil // identity-compared
	case KindDataclass:
		return eqDataclass(a.obj.(*dataclassObj), b.obj.(*dataclassObj), tr)
	case KindException:
		return a.obj == b.obj, nil
	case KindSlice:
		sa, sb := a.obj.(*sliceObj), b.obj.(*sliceObj)
		okStart, err := Eq(sa.start, sb.start, tr)
		if err != nil || !okStart {
			return false, err
		}
		okStop, err := Eq(sa.stop, sb.stop, tr)
		if err != nil || !okStop {
			return false, err
		}
		return Eq(sa.step, sb.step, tr)
	default:
		return false, nil
	}
}

func isNumeric(k Kind) bool { return k == KindInt || k == KindFloat }

func numericEq(a, b Value) bool {
	if a.kind == KindFloat || b.kind == KindFloat {
		af := a.f64
		if a.kind == KindInt {
			af = a.AsBigInt().Float64()
		}
		bf := b.f64
		if b.kind == KindInt {
			bf = b.AsBigInt().Float64()
		}
		return af == bf
	}
	return a.AsBigInt().Cmp(b.AsBigInt()) == 0
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func rangeEq(a, b *rangeObj) bool {
	la, lb := a.length(), b.length()
	if la != lb {
		return false
	}
	if la == 0 {
		return true
	}
	if la == 1 {
		return a.start == b.start
	}
	return a.start == b.start && a.step == b.step
}

func withDepth(tr *limits.Tracker, f func() (bool, error)) (bool, error) {
	if tr != nil {
		if err := tr.EnterFrame(); err != nil {
			return false, err
		}
		defer tr.LeaveFrame()
	}
	return f()
}

func eqSeq(a, b []Value, tr *limits.Tracker) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	return withDepth(tr, func() (bool, error) {
		for i := range a {
			eq, err := Eq(a[i], b[i], tr)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	})
}

func eqDict(a, b *dictObj, tr *limits.Tracker) (bool, error) {
	if a.liveCount() != b.liveCount() {
		return false, nil
	}
	return withDepth(tr, func() (bool, error) {
		for _, e := range a.entries {
			if e.deleted {
				continue
			}
			idx, err := b.find(tr, e.key, e.hash)
			if err != nil {
				return false, err
			}
			if idx < 0 {
				return false, nil
			}
			eq, err := Eq(e.val, b.entries[idx].val, tr)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	})
}

func eqSet(a, b *setObj, tr *limits.Tracker) (bool, error) {
	if a.liveCount() != b.liveCount() {
		return false, nil
	}
	return withDepth(tr, func() (bool, error) {
		for _, e := range a.entries {
			if e.deleted {
				continue
			}
			idx, err := b.find(tr, e.val, e.hash)
			if err != nil {
				return false, err
			}
			if idx < 0 {
				return false, nil
			}
		}
		return true, nil
	})
}

func eqDataclass(a, b *dataclassObj, tr *limits.Tracker) (bool, error) {
	if a.typ != b.typ {
		return false, nil
	}
	return withDepth(tr, func() (bool, error) {
		for _, name := range a.typ.fields {
			eq, err := Eq(a.fields[name], b.fields[name], tr)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	})
}
