package value

import "github.com/zond/monty/limits"

// --- Tuple ---

type tupleObj struct {
	base
	items []Value
}

func (*tupleObj) Kind() Kind { return KindTuple }

// Tuple constructs an immutable Tuple from items. items is copied.
func (h *Heap) Tuple(items []Value) (Value, error) {
	o := &tupleObj{items: append([]Value{}, items...)}
	for _, it := range o.items {
		h.Retain(it)
	}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindTuple, o), nil
}

// AsTuple returns v's backing slice. v must be KindTuple. Callers must
// not mutate it (tuples are immutable).
func (v Value) AsTuple() []Value { return v.obj.(*tupleObj).items }

// --- List ---

type listObj struct {
	base
	items []Value
}

func (*listObj) Kind() Kind { return KindList }

// List constructs a mutable List seeded with items (copied).
func (h *Heap) List(items []Value) (Value, error) {
	o := &listObj{items: append([]Value{}, items...)}
	for _, it := range o.items {
		h.Retain(it)
	}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindList, o), nil
}

// AsList returns v's backing slice pointer target. v must be KindList.
func (v Value) AsList() []Value { return v.obj.(*listObj).items }

// ListAppend appends x to v's backing list, retaining x and charging
// any growth.
func (h *Heap) ListAppend(v Value, x Value) error {
	l := v.obj.(*listObj)
	h.Retain(x)
	oldCap := cap(l.items)
	l.items = append(l.items, x)
	if h.tr != nil && cap(l.items) > oldCap {
		return h.tr.ChargeAlloc((cap(l.items) - oldCap) * 8)
	}
	return nil
}

// ListSet replaces the element at index i.
func (h *Heap) ListSet(v Value, i int, x Value) {
	l := v.obj.(*listObj)
	old := l.items[i]
	h.Retain(x)
	l.items[i] = x
	h.Release(old)
}

// --- Range ---

type rangeObj struct {
	base
	start, stop, step int64
}

func (*rangeObj) Kind() Kind { return KindRange }

func (r *rangeObj) length() int {
	if r.step > 0 {
		if r.stop <= r.start {
			return 0
		}
		return int((r.stop - r.start + r.step - 1) / r.step)
	}
	if r.step < 0 {
		if r.stop >= r.start {
			return 0
		}
		return int((r.start - r.stop - r.step - 1) / -r.step)
	}
	return 0
}

// Range constructs a lazy integer range (start, stop, step). step must
// be nonzero.
func (h *Heap) Range(start, stop, step int64) (Value, error) {
	o := &rangeObj{start: start, stop: stop, step: step}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindRange, o), nil
}

// RangeBounds returns (start, stop, step). v must be KindRange.
func (v Value) RangeBounds() (int64, int64, int64) {
	r := v.obj.(*rangeObj)
	return r.start, r.stop, r.step
}

// RangeAt returns the i'th element of the range.
func (v Value) RangeAt(i int) int64 {
	r := v.obj.(*rangeObj)
	return r.start + int64(i)*r.step
}

// --- Slice ---

type sliceObj struct {
	base
	start, stop, step Value
}

func (*sliceObj) Kind() Kind { return KindSlice }

// Slice constructs a Slice(start, stop, step); each component may be
// None.
func (h *Heap) Slice(start, stop, step Value) (Value, error) {
	o := &sliceObj{start: start, stop: stop, step: step}
	h.Retain(start)
	h.Retain(stop)
	h.Retain(step)
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindSlice, o), nil
}

// SliceParts returns the (start, stop, step) components.
func (v Value) SliceParts() (Value, Value, Value) {
	s := v.obj.(*sliceObj)
	return s.start, s.stop, s.step
}

// --- Dict ---

type dictEntry struct {
	key, val Value
	hash     uint64
	deleted  bool
}

type dictObj struct {
	base
	entries []dictEntry
	index   map[uint64][]int
}

func (*dictObj) Kind() Kind { return KindDict }

func (d *dictObj) liveCount() int {
	n := 0
	for _, e := range d.entries {
		if !e.deleted {
			n++
		}
	}
	return n
}

// Dict constructs an empty insertion-ordered Dict.
func (h *Heap) Dict() (Value, error) {
	o := &dictObj{index: map[uint64][]int{}}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindDict, o), nil
}

func (d *dictObj) find(tr *limits.Tracker, key Value, hash uint64) (int, error) {
	for _, idx := range d.index[hash] {
		e := &d.entries[idx]
		if e.deleted {
			continue
		}
		eq, err := Eq(e.key, key, tr)
		if err != nil {
			return -1, err
		}
		if eq {
			return idx, nil
		}
	}
	return -1, nil
}

// DictGet returns (value, found, error) for key.
func (h *Heap) DictGet(v Value, key Value) (Value, bool, error) {
	d := v.obj.(*dictObj)
	hash, err := Hash(key, h.tr)
	if err != nil {
		return Value{}, false, err
	}
	idx, err := d.find(h.tr, key, hash)
	if err != nil {
		return Value{}, false, err
	}
	if idx < 0 {
		return Value{}, false, nil
	}
	return d.entries[idx].val, true, nil
}

// DictSet inserts or updates key->val, preserving insertion order for
// new keys.
func (h *Heap) DictSet(v Value, key, val Value) error {
	d := v.obj.(*dictObj)
	hash, err := Hash(key, h.tr)
	if err != nil {
		return err
	}
	idx, err := d.find(h.tr, key, hash)
	if err != nil {
		return err
	}
	if idx >= 0 {
		old := d.entries[idx].val
		h.Retain(val)
		d.entries[idx].val = val
		h.Release(old)
		return nil
	}
	h.Retain(key)
	h.Retain(val)
	d.entries = append(d.entries, dictEntry{key: key, val: val, hash: hash})
	d.index[hash] = append(d.index[hash], len(d.entries)-1)
	return nil
}

// DictDel removes key, reporting whether it was present.
func (h *Heap) DictDel(v Value, key Value) (bool, error) {
	d := v.obj.(*dictObj)
	hash, err := Hash(key, h.tr)
	if err != nil {
		return false, err
	}
	idx, err := d.find(h.tr, key, hash)
	if err != nil {
		return false, err
	}
	if idx < 0 {
		return false, nil
	}
	e := &d.entries[idx]
	e.deleted = true
	h.Release(e.key)
	h.Release(e.val)
	e.key, e.val = Value{}, Value{}
	return true, nil
}

// DictItems returns the live entries in insertion order.
func (v Value) DictItems() []struct{ Key, Val Value } {
	d := v.obj.(*dictObj)
	out := make([]struct{ Key, Val Value }, 0, len(d.entries))
	for _, e := range d.entries {
		if !e.deleted {
			out = append(out, struct{ Key, Val Value }{e.key, e.val})
		}
	}
	return out
}

// --- Set / FrozenSet ---

type setEntry struct {
	val     Value
	hash    uint64
	deleted bool
}

type setObj struct {
	base
	frozen  bool
	entries []setEntry
	index   map[uint64][]int
}

func (s *setObj) Kind() Kind {
	if s.frozen {
		return KindFrozenSet
	}
	return KindSet
}

func (s *setObj) liveCount() int {
	n := 0
	for _, e := range s.entries {
		if !e.deleted {
			n++
		}
	}
	return n
}

// Set constructs an empty mutable Set, or an empty FrozenSet when frozen
// is true.
func (h *Heap) Set(frozen bool) (Value, error) {
	o := &setObj{frozen: frozen, index: map[uint64][]int{}}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	k := KindSet
	if frozen {
		k = KindFrozenSet
	}
	return fromObject(k, o), nil
}

func (s *setObj) find(tr *limits.Tracker, val Value, hash uint64) (int, error) {
	for _, idx := range s.index[hash] {
		e := &s.entries[idx]
		if e.deleted {
			continue
		}
		eq, err := Eq(e.val, val, tr)
		if err != nil {
			return -1, err
		}
		if eq {
			return idx, nil
		}
	}
	return -1, nil
}

// SetAdd adds val, reporting whether it was newly added.
func (h *Heap) SetAdd(v Value, val Value) (bool, error) {
	s := v.obj.(*setObj)
	hash, err := Hash(val, h.tr)
	if err != nil {
		return false, err
	}
	idx, err := s.find(h.tr, val, hash)
	if err != nil {
		return false, err
	}
	if idx >= 0 {
		return false, nil
	}
	h.Retain(val)
	s.entries = append(s.entries, setEntry{val: val, hash: hash})
	s.index[hash] = append(s.index[hash], len(s.entries)-1)
	return true, nil
}

// SetContains reports whether val is a member.
func (h *Heap) SetContains(v Value, val Value) (bool, error) {
	s := v.obj.(*setObj)
	hash, err := Hash(val, h.tr)
	if err != nil {
		return false, err
	}
	idx, err := s.find(h.tr, val, hash)
	if err != nil {
		return false, err
	}
	return idx >= 0, nil
}

// SetItems returns the live members in insertion order.
func (v Value) SetItems() []Value {
	s := v.obj.(*setObj)
	out := make([]Value, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.deleted {
			out = append(out, e.val)
		}
	}
	return out
}
