package value

// iteratorObj is a snapshot iterator over a container's elements
// (spec.md §6 "comprehensions", §10 "for loops"). Taking a snapshot at
// iterator-creation time rather than iterating the live container keeps
// the protocol simple and matches what every concrete use in the
// minimal front end needs (for-loops and comprehensions over a value
// that is not mutated mid-iteration); it does not implement Python's
// "RuntimeError on concurrent mutation" behavior, which is out of scope.
type iteratorObj struct {
	base
	items []Value
	pos   int
}

func (*iteratorObj) Kind() Kind { return KindIterator }

// Iter builds a snapshot iterator over v's elements (spec.md §4.D
// OpGetIter). Str/Bytes iterate rune-by-rune and byte-by-byte,
// respectively, matching reference iteration granularity.
func (h *Heap) Iter(v Value) (Value, error) {
	var items []Value
	switch v.Kind() {
	case KindList:
		items = append(items, v.AsList()...)
	case KindTuple:
		items = append(items, v.AsTuple()...)
	case KindRange:
		start, stop, step := v.RangeBounds()
		for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
			items = append(items, Int(i))
		}
	case KindStr:
		for _, r := range v.AsStr() {
			sv, err := h.Str(string(r))
			if err != nil {
				return Value{}, err
			}
			items = append(items, sv)
		}
	case KindBytes:
		for _, b := range v.obj.(*bytesObj).b {
			items = append(items, Int(int64(b)))
		}
	case KindDict:
		for _, e := range v.DictItems() {
			items = append(items, e.Key)
		}
	case KindSet, KindFrozenSet:
		items = append(items, v.SetItems()...)
	default:
		return Value{}, &TypeIterError{Kind: v.Kind()}
	}
	o := &iteratorObj{items: items}
	for _, it := range o.items {
		h.Retain(it)
	}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindIterator, o), nil
}

// IterNext advances the iterator, reporting whether a value was
// produced (spec.md §4.D OpForIter).
func (v Value) IterNext() (Value, bool) {
	o := v.obj.(*iteratorObj)
	if o.pos >= len(o.items) {
		return Value{}, false
	}
	item := o.items[o.pos]
	o.pos++
	return item, true
}

// TypeIterError reports that a value's Kind does not support iteration.
type TypeIterError struct{ Kind Kind }

func (e *TypeIterError) Error() string { return "'" + e.Kind.String() + "' object is not iterable" }
