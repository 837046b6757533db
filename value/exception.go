package value

// FrameInfo is a single captured call-site location, recorded when an
// exception is raised so a host can render a traceback (spec.md §1
// Non-goals excludes traceback *display*, not capture).
type FrameInfo struct {
	FuncName string
	Line     int
}

// exceptionObj is a raised or constructed exception instance (spec.md
// §4.D). args holds the constructor arguments as a Tuple Value, mirroring
// the reference language's Exception.args.
type exceptionObj struct {
	base
	class    *typeObj
	args     Value
	cause    Value
	hasCause bool
	frames   []FrameInfo
}

func (*exceptionObj) Kind() Kind { return KindException }

// Exception constructs an exception instance of the given class with
// args (a Tuple Value).
func (h *Heap) Exception(class Value, args Value) (Value, error) {
	o := &exceptionObj{class: class.obj.(*typeObj), args: args}
	h.Retain(args)
	if err := h.charge(o); err != nil {
		return Value{}, err
	}
	return fromObject(KindException, o), nil
}

// ExceptionClassName returns the raising class's name, e.g. "ValueError".
func (v Value) ExceptionClassName() string { return v.obj.(*exceptionObj).class.name }

// ExceptionArgs returns the exception's constructor arguments.
func (v Value) ExceptionArgs() Value { return v.obj.(*exceptionObj).args }

// ExceptionCause returns the exception's explicit `raise ... from cause`
// cause, if any.
func (v Value) ExceptionCause() (Value, bool) {
	e := v.obj.(*exceptionObj)
	return e.cause, e.hasCause
}

// SetExceptionCause records an explicit cause (from `raise X from Y`).
func (h *Heap) SetExceptionCause(v Value, cause Value) {
	e := v.obj.(*exceptionObj)
	if e.hasCause {
		h.Release(e.cause)
	}
	h.Retain(cause)
	e.cause = cause
	e.hasCause = true
}

// ExceptionFrames returns the captured call-site chain, innermost first.
func (v Value) ExceptionFrames() []FrameInfo { return v.obj.(*exceptionObj).frames }

// AppendExceptionFrame appends a call-site to the exception's chain. The
// interpreter does not call it while unwinding, so the chain of a
// script-raised exception stays empty.
func (v Value) AppendExceptionFrame(f FrameInfo) {
	e := v.obj.(*exceptionObj)
	e.frames = append(e.frames, f)
}
