package value

type strObj struct {
	base
	s string
}

func (*strObj) Kind() Kind { return KindStr }

type bytesObj struct {
	base
	b []byte
}

func (*bytesObj) Kind() Kind { return KindBytes }

// internCap bounds the short-string intern cache. Interning is a pure
// performance optimization (spec.md §4.A "String/Bytes identity vs
// equality"); content, not identity, governs equality and hashing, so a
// bounded LRU is safe — eviction never changes observable behavior.
const internCap = 4096
const internMaxLen = 64

// Str constructs a Str Value, interning short strings via a bounded LRU
// cache (adapted from the teacher's bounded-cache ambient style; see
// DESIGN.md). Allocation is charged to h only on a cache miss — an
// interned hit reuses an already-charged object and retains it.
func (h *Heap) Str(s string) (Value, error) {
	if len(s) <= internMaxLen {
		if o, ok := h.intern.Get(s); ok {
			return h.Retain(fromObject(KindStr, o)), nil
		}
	}
	o := &strObj{s: s}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	if len(s) <= internMaxLen {
		h.intern.Add(s, o)
		*o.rc()++ // one ref held by the intern table itself
	}
	return fromObject(KindStr, o), nil
}

// Bytes constructs a Bytes Value from b. b is copied so later mutation
// by the caller cannot violate immutability.
func (h *Heap) Bytes(b []byte) (Value, error) {
	cp := make([]byte, len(b))
	copy(cp, b)
	o := &bytesObj{b: cp}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindBytes, o), nil
}

// AsStr returns v's Go string. v must be KindStr.
func (v Value) AsStr() string { return v.obj.(*strObj).s }

// AsBytes returns v's byte slice. v must be KindBytes. The slice must
// not be mutated (Bytes values are immutable per spec.md §3).
func (v Value) AsBytes() []byte { return v.obj.(*bytesObj).b }

// Len returns the code-point length of a Str or the byte length of
// Bytes (spec.md §3 "len counts code points, not bytes").
func (v Value) Len() int {
	switch v.kind {
	case KindStr:
		return len([]rune(v.obj.(*strObj).s))
	case KindBytes:
		return len(v.obj.(*bytesObj).b)
	case KindTuple:
		return len(v.obj.(*tupleObj).items)
	case KindList:
		return len(v.obj.(*listObj).items)
	case KindDict:
		return v.obj.(*dictObj).liveCount()
	case KindSet, KindFrozenSet:
		return v.obj.(*setObj).liveCount()
	case KindRange:
		return v.obj.(*rangeObj).length()
	default:
		return -1
	}
}
