package value

// Cell boxes a single Value so nested function closures can share a
// mutable binding (spec.md §4.D "closures capture cells, not values").
type Cell struct {
	base
	v Value
}

func (*Cell) Kind() Kind { return KindNone } // cells are never directly observable as a Value

// Cell constructs a new closure cell holding v.
func (h *Heap) Cell(v Value) *Cell {
	h.Retain(v)
	return &Cell{v: v}
}

// Get returns the cell's current contents.
func (c *Cell) Get() Value { return c.v }

// CellSet replaces the cell's contents, retaining the new value and
// releasing the old one.
func (h *Heap) CellSet(c *Cell, v Value) {
	h.Retain(v)
	old := c.v
	c.v = v
	h.Release(old)
}

// functionObj is a user-defined function's closure: compiled code plus
// bound default argument values and captured cells (spec.md §4.D).
type functionObj struct {
	base
	name       string
	qualName   string
	code       *Code
	defaults   []Value
	kwDefaults map[string]Value
	closure    []*Cell
}

func (*functionObj) Kind() Kind { return KindFunction }

// Function constructs a Function Value wrapping code, with the given
// positional defaults, keyword-only defaults, and captured closure
// cells (in declaration order, matching code.FreeVars).
func (h *Heap) Function(name string, code *Code, defaults []Value, kwDefaults map[string]Value, closure []*Cell) (Value, error) {
	o := &functionObj{
		name:       name,
		qualName:   name,
		code:       code,
		defaults:   append([]Value{}, defaults...),
		kwDefaults: copyValueMap(kwDefaults),
		closure:    closure,
	}
	for _, d := range o.defaults {
		h.Retain(d)
	}
	for _, d := range o.kwDefaults {
		h.Retain(d)
	}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindFunction, o), nil
}

func copyValueMap(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FunctionCode returns v's compiled code. v must be KindFunction.
func (v Value) FunctionCode() *Code { return v.obj.(*functionObj).code }

// FunctionName returns v's declared name.
func (v Value) FunctionName() string { return v.obj.(*functionObj).name }

// FunctionDefaults returns v's positional default values.
func (v Value) FunctionDefaults() []Value { return v.obj.(*functionObj).defaults }

// FunctionKwDefaults returns v's keyword-only default values.
func (v Value) FunctionKwDefaults() map[string]Value { return v.obj.(*functionObj).kwDefaults }

// FunctionClosure returns v's captured cells, indexed the same way as
// v.FunctionCode().FreeVars.
func (v Value) FunctionClosure() []*Cell { return v.obj.(*functionObj).closure }

// Builtin is the signature a host- or runtime-provided builtin function
// implements (spec.md §4.F host bridge callables share this shape).
type Builtin func(args []Value, kwargs map[string]Value) (Value, error)

type builtinFunctionObj struct {
	base
	name string
	fn   Builtin
}

func (*builtinFunctionObj) Kind() Kind { return KindBuiltinFunction }

// BuiltinFunction wraps a Go function as a callable builtin Value.
func (h *Heap) BuiltinFunction(name string, fn Builtin) (Value, error) {
	o := &builtinFunctionObj{name: name, fn: fn}
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindBuiltinFunction, o), nil
}

// BuiltinFunc returns v's underlying Go function. v must be KindBuiltinFunction.
func (v Value) BuiltinFunc() Builtin { return v.obj.(*builtinFunctionObj).fn }

// BuiltinName returns v's registered name.
func (v Value) BuiltinName() string { return v.obj.(*builtinFunctionObj).name }

type boundMethodObj struct {
	base
	recv Value
	fn   Value
}

func (*boundMethodObj) Kind() Kind { return KindBoundMethod }

// BoundMethod binds fn (a Function or BuiltinFunction) to recv, to be
// called with recv prepended to its argument list.
func (h *Heap) BoundMethod(recv, fn Value) (Value, error) {
	o := &boundMethodObj{recv: recv, fn: fn}
	h.Retain(recv)
	h.Retain(fn)
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindBoundMethod, o), nil
}

// BoundMethodParts returns the (receiver, underlying function) pair.
func (v Value) BoundMethodParts() (Value, Value) {
	b := v.obj.(*boundMethodObj)
	return b.recv, b.fn
}
