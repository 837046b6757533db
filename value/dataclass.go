package value

// dataclassObj is an instance of a user-declared dataclass type (spec.md
// §4.D dataclass factory protocol). fields holds every declared field by
// name; typ.fields gives their declaration order for Repr/Eq/Hash.
type dataclassObj struct {
	base
	typ    *typeObj
	fields map[string]Value
}

func (*dataclassObj) Kind() Kind { return KindDataclass }

// Dataclass constructs an instance of typ (a Value of KindType) with the
// given field values. fields must contain exactly typ's declared fields;
// callers (the dataclass factory in the interpreter) are responsible for
// applying declared defaults before calling this.
func (h *Heap) Dataclass(typ Value, fields map[string]Value) (Value, error) {
	o := &dataclassObj{typ: typ.obj.(*typeObj), fields: copyValueMap(fields)}
	h.Retain(typ)
	for _, v := range o.fields {
		h.Retain(v)
	}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindDataclass, o), nil
}

// DataclassType returns the instance's class as a Value.
func (v Value) DataclassType() Value {
	d := v.obj.(*dataclassObj)
	return fromObject(KindType, d.typ)
}

// DataclassGet returns the named field's value.
func (v Value) DataclassGet(name string) (Value, bool) {
	val, ok := v.obj.(*dataclassObj).fields[name]
	return val, ok
}

// DataclassSet replaces the named field's value. Callers must reject
// this for frozen types before calling (spec.md §4.D "frozen dataclass
// field assignment raises the canonical read-only message").
func (h *Heap) DataclassSet(v Value, name string, val Value) {
	d := v.obj.(*dataclassObj)
	h.Retain(val)
	if old, ok := d.fields[name]; ok {
		h.Release(old)
	}
	d.fields[name] = val
}
