package interp

import (
	"strings"

	"github.com/zond/monty/value"
)

// paramSlots returns the fixed local-slot layout described in
// value.Code's doc comment.
func paramSlots(code *value.Code) (varArgSlot, varKwSlot int) {
	varArgSlot, varKwSlot = -1, -1
	n := len(code.Params) + len(code.KwOnly)
	if code.VarArgName != "" {
		varArgSlot = n
		n++
	}
	if code.VarKwName != "" {
		varKwSlot = n
	}
	return
}

// frameSlots returns the total local-slot count of code's frame: the
// parameter slots laid out by paramSlots plus NumLocals ordinary locals.
func frameSlots(code *value.Code) int {
	n := len(code.Params) + len(code.KwOnly) + code.NumLocals
	if code.VarArgName != "" {
		n++
	}
	if code.VarKwName != "" {
		n++
	}
	return n
}

// bindArgs implements spec.md §4.D's full argument-binding protocol:
// positional, keyword, default, *args, **kwargs, keyword-only-after-*,
// with the canonical TypeError phrasing the reference language produces.
func (in *Interp) bindArgs(fn value.Value, args []value.Value, kwargs map[string]value.Value) ([]value.Value, error) {
	code := fn.FunctionCode()
	defaults := fn.FunctionDefaults()
	kwDefaults := fn.FunctionKwDefaults()

	locals := make([]value.Value, frameSlots(code))
	varArgSlot, varKwSlot := paramSlots(code)

	nPos := len(code.Params)
	firstDefault := nPos - len(defaults)
	filled := make([]bool, nPos)

	extra := args
	if len(args) > nPos {
		if varArgSlot < 0 {
			return nil, in.tooManyPositional(fn, len(args))
		}
		extra = args[:nPos]
	}
	for i, a := range extra {
		locals[i] = a
		filled[i] = true
	}
	if varArgSlot >= 0 {
		rest := []value.Value{}
		if len(args) > nPos {
			rest = args[nPos:]
		}
		tup, err := in.Heap.Tuple(rest)
		if err != nil {
			return nil, err
		}
		locals[varArgSlot] = tup
	}

	var kwDict value.Value
	if varKwSlot >= 0 {
		d, err := in.Heap.Dict()
		if err != nil {
			return nil, err
		}
		kwDict = d
	}

	for name, v := range kwargs {
		idx := indexOf(code.Params, name)
		if idx < 0 {
			idx = -1 // not a positional/keyword-eligible param
		}
		if idx >= 0 {
			if filled[idx] {
				return nil, in.Raisef("TypeError", "%s() got multiple values for argument '%s'", fn.FunctionName(), name)
			}
			locals[idx] = v
			filled[idx] = true
			continue
		}
		if koIdx := indexOf(code.KwOnly, name); koIdx >= 0 {
			locals[nPos+koIdx] = v
			continue
		}
		if varKwSlot >= 0 {
			k, err := in.Heap.Str(name)
			if err != nil {
				return nil, err
			}
			if err := in.Heap.DictSet(kwDict, k, v); err != nil {
				return nil, err
			}
			continue
		}
		return nil, in.Raisef("TypeError", "%s() got an unexpected keyword argument '%s'", fn.FunctionName(), name)
	}
	if varKwSlot >= 0 {
		locals[varKwSlot] = kwDict
	}

	for i := 0; i < nPos; i++ {
		if filled[i] {
			continue
		}
		if i >= firstDefault && i-firstDefault < len(defaults) {
			locals[i] = defaults[i-firstDefault]
			continue
		}
		return nil, in.missingPositional(fn, filled, code)
	}
	for i, name := range code.KwOnly {
		if !locals[nPos+i].IsNone() {
			continue
		}
		if d, ok := kwDefaults[name]; ok {
			locals[nPos+i] = d
		}
	}
	return locals, nil
}

func indexOf(ss []string, s string) int {
	for i, x := range ss {
		if x == s {
			return i
		}
	}
	return -1
}

// missingPositional builds the canonical "missing N required positional
// arguments: 'a', 'b' and 'c'" TypeError (spec.md §4.D test vectors).
func (in *Interp) missingPositional(fn value.Value, filled []bool, code *value.Code) error {
	var names []string
	for i, f := range filled {
		if !f {
			names = append(names, code.Params[i])
		}
	}
	word := in.pluralizeWord("argument", len(names))
	return in.Raisef("TypeError", "%s() missing %d required positional %s: %s",
		fn.FunctionName(), len(names), word, joinQuoted(names))
}

func (in *Interp) tooManyPositional(fn value.Value, got int) error {
	code := fn.FunctionCode()
	word := in.pluralizeWord("argument", len(code.Params))
	return in.Raisef("TypeError", "%s() takes %d positional %s but %d were given",
		fn.FunctionName(), len(code.Params), word, got)
}

// joinQuoted renders ['a','b','c'] as "'a', 'b' and 'c'", the reference
// language's conjunction style for missing-argument lists.
func joinQuoted(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return quoted[0]
	default:
		return strings.Join(quoted[:len(quoted)-1], ", ") + " and " + quoted[len(quoted)-1]
	}
}
