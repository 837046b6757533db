package monty

import (
	"fmt"
	"strings"

	"github.com/zond/monty/bigint"
	"github.com/zond/monty/hostbridge"
	"github.com/zond/monty/interp"
	"github.com/zond/monty/limits"
	"github.com/zond/monty/value"
)

// registerBuiltins installs the small set of free functions every
// compiled program can call without an import (spec.md §3's literal/
// arithmetic surface needs str()/len()/print() etc. the way any hosted
// language ships a prelude; compiler/codegen.go's f-string lowering in
// particular assumes a global str() exists).
func registerBuiltins(in *interp.Interp, bridge *hostbridge.Bridge) error {
	h := in.Heap
	reg := func(name string, fn value.Builtin) error {
		v, err := h.BuiltinFunction(name, fn)
		if err != nil {
			return err
		}
		in.Globals[name] = v
		return nil
	}

	if err := reg("str", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		if len(args) == 0 {
			return h.Str("")
		}
		return h.Str(builtinStr(args[0], in.Tracker))
	}); err != nil {
		return err
	}

	if err := reg("repr", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, in.Raisef("TypeError", "repr() takes exactly one argument (%d given)", len(args))
		}
		s, err := value.Repr(args[0], in.Tracker)
		if err != nil {
			return value.Value{}, err
		}
		return h.Str(s)
	}); err != nil {
		return err
	}

	if err := reg("len", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, in.Raisef("TypeError", "len() takes exactly one argument (%d given)", len(args))
		}
		switch args[0].Kind() {
		case value.KindStr, value.KindBytes, value.KindTuple, value.KindList, value.KindDict, value.KindSet, value.KindFrozenSet:
			return value.BigInt(bigint.FromInt64(int64(args[0].Len()))), nil
		}
		return value.Value{}, in.Raisef("TypeError", "object of type '%s' has no len()", args[0].Kind().String())
	}); err != nil {
		return err
	}

	if err := reg("print", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = builtinStr(a, in.Tracker)
		}
		fmt.Println(strings.Join(parts, " "))
		return value.None, nil
	}); err != nil {
		return err
	}

	if err := reg("bool", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		return value.Bool(args[0].Truthy()), nil
	}); err != nil {
		return err
	}

	if err := reg("float", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Float(0), nil
		}
		return builtinFloat(args[0], in)
	}); err != nil {
		return err
	}

	if err := reg("int", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.BigInt(bigint.FromInt64(0)), nil
		}
		return builtinInt(args[0], in)
	}); err != nil {
		return err
	}

	return nil
}

// builtinStr implements str(x): strings pass through unquoted,
// exceptions render via exceptionStr, and every other kind falls back to
// its repr (spec.md §4.A repr/str distinction).
func builtinStr(v value.Value, tr *limits.Tracker) string {
	if v.Kind() == value.KindStr {
		return v.AsStr()
	}
	if v.Kind() == value.KindException {
		return exceptionStr(v, tr)
	}
	s, err := value.Repr(v, tr)
	if err != nil {
		return ""
	}
	return s
}

// exceptionStr implements str(exc): the reference language's str() of
// an exception is its single argument's str() form when there is
// exactly one, the args tuple's repr when there are several, and "" when
// there are none — distinct from repr(exc), which always shows
// "ClassName(args...)".
func exceptionStr(v value.Value, tr *limits.Tracker) string {
	args := v.ExceptionArgs().AsTuple()
	switch len(args) {
	case 0:
		return ""
	case 1:
		return builtinStr(args[0], tr)
	default:
		s, err := value.Repr(v.ExceptionArgs(), tr)
		if err != nil {
			return ""
		}
		return s
	}
}

func builtinFloat(v value.Value, in *interp.Interp) (value.Value, error) {
	switch v.Kind() {
	case value.KindFloat:
		return v, nil
	case value.KindInt:
		return value.Float(v.AsBigInt().Float64()), nil
	case value.KindBool:
		if v.AsBool() {
			return value.Float(1), nil
		}
		return value.Float(0), nil
	case value.KindStr:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v.AsStr()), "%g", &f); err != nil {
			return value.Value{}, in.Raisef("ValueError", "could not convert string to float: '%s'", v.AsStr())
		}
		return value.Float(f), nil
	}
	return value.Value{}, in.Raisef("TypeError", "float() argument must be a string or a number, not '%s'", v.Kind().String())
}

func builtinInt(v value.Value, in *interp.Interp) (value.Value, error) {
	switch v.Kind() {
	case value.KindInt:
		return v, nil
	case value.KindFloat:
		return value.BigInt(bigint.FromInt64(int64(v.AsFloat()))), nil
	case value.KindBool:
		if v.AsBool() {
			return value.BigInt(bigint.FromInt64(1)), nil
		}
		return value.BigInt(bigint.FromInt64(0)), nil
	case value.KindStr:
		s := strings.TrimSpace(v.AsStr())
		var i int64
		if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
			return value.Value{}, in.Raisef("ValueError", "invalid literal for int() with base 10: '%s'", v.AsStr())
		}
		return value.BigInt(bigint.FromInt64(i)), nil
	}
	return value.Value{}, in.Raisef("TypeError", "int() argument must be a string or a number, not '%s'", v.Kind().String())
}
