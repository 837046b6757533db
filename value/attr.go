package value

import "fmt"

// AttributeError mirrors the reference language's AttributeError,
// carrying the exact canonical message text the interpreter surfaces
// to script land (spec.md §7 "canonical error messages").
type AttributeError struct {
	TypeName string
	Attr     string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("'%s' object has no attribute '%s'", e.TypeName, e.Attr)
}

// FrozenAttributeError is raised when assigning a field on a frozen
// dataclass instance (spec.md §4.D).
type FrozenAttributeError struct {
	TypeName string
}

func (e *FrozenAttributeError) Error() string {
	return fmt.Sprintf("cannot assign to field of frozen instance of '%s'", e.TypeName)
}

// GetAttr implements the instance-slots-then-type-descriptors lookup
// order: a dataclass's own fields first, then a method on its type.
// Heap is required because a matched method is materialized as a freshly
// heap-charged BoundMethod.
func (h *Heap) GetAttr(v Value, name string) (Value, error) {
	switch v.kind {
	case KindDataclass:
		d := v.obj.(*dataclassObj)
		if fv, ok := d.fields[name]; ok {
			return fv, nil
		}
		if m, ok := (Value{kind: KindType, obj: d.typ}).TypeMethod(name); ok {
			return h.BoundMethod(v, m)
		}
		return Value{}, &AttributeError{TypeName: d.typ.name, Attr: name}
	case KindType:
		t := v.obj.(*typeObj)
		if m, ok := v.TypeMethod(name); ok {
			return m, nil
		}
		return Value{}, &AttributeError{TypeName: "type[" + t.name + "]", Attr: name}
	case KindException:
		e := v.obj.(*exceptionObj)
		switch name {
		case "args":
			return e.args, nil
		}
		return Value{}, &AttributeError{TypeName: e.class.name, Attr: name}
	case KindModule:
		m := v.obj.(*moduleObj)
		if a, ok := m.attrs[name]; ok {
			return a, nil
		}
		return Value{}, &AttributeError{TypeName: "module '" + m.name + "'", Attr: name}
	default:
		return Value{}, &AttributeError{TypeName: v.Kind().String(), Attr: name}
	}
}

// SetAttr assigns name on v. Heap is required because assignment
// retains/releases the stored Value.
func (h *Heap) SetAttr(v Value, name string, val Value) error {
	if v.kind != KindDataclass {
		return &AttributeError{TypeName: v.Kind().String(), Attr: name}
	}
	d := v.obj.(*dataclassObj)
	if d.typ.frozen {
		return &FrozenAttributeError{TypeName: d.typ.name}
	}
	h.DataclassSet(v, name, val)
	return nil
}
