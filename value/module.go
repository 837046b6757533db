package value

// moduleObj is a script-visible namespace for an allowlisted import
// (spec.md §6 "import limited to an allowlist including a minimal
// asyncio"). It is never constructed by script code, only registered by
// the embedding host, so it carries no Kind-visible constructor story
// beyond GetAttr lookup.
type moduleObj struct {
	base
	name  string
	attrs map[string]Value
}

func (*moduleObj) Kind() Kind { return KindModule }

// Module allocates a namespace value exposing attrs by name.
func (h *Heap) Module(name string, attrs map[string]Value) (Value, error) {
	o := &moduleObj{name: name, attrs: copyValueMap(attrs)}
	for _, v := range o.attrs {
		h.Retain(v)
	}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindModule, o), nil
}
