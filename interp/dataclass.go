package interp

import "github.com/zond/monty/value"

// constructDataclass implements the dataclass factory protocol's
// instantiation path: calling a Type value (spec.md §4.D "Dataclass
// factory protocol"). Positional args bind to TypeFields() in
// declaration order; kwargs may fill any remaining field by name.
func (in *Interp) constructDataclass(typ value.Value, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	fieldNames := typ.TypeFields()
	if len(args) > len(fieldNames) {
		return value.Value{}, in.Raisef("TypeError", "%s() takes %d positional %s but %d were given",
			typ.TypeName(), len(fieldNames), in.pluralizeWord("argument", len(fieldNames)), len(args))
	}
	fields := make(map[string]value.Value, len(fieldNames))
	for i, a := range args {
		fields[fieldNames[i]] = a
	}
	for name, v := range kwargs {
		if !containsName(fieldNames, name) {
			return value.Value{}, in.Raisef("TypeError", "%s() got an unexpected keyword argument '%s'", typ.TypeName(), name)
		}
		if _, already := fields[name]; already {
			return value.Value{}, in.Raisef("TypeError", "%s() got multiple values for argument '%s'", typ.TypeName(), name)
		}
		fields[name] = v
	}
	var missing []string
	for _, name := range fieldNames {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return value.Value{}, in.Raisef("TypeError", "%s() missing %d required positional %s: %s",
			typ.TypeName(), len(missing), in.pluralizeWord("argument", len(missing)), joinQuoted(missing))
	}
	return in.Heap.Dataclass(typ, fields)
}

// constructException implements calling an exception class from script
// land, e.g. `ValueError("bad value")` (spec.md §7's canonical classes).
// kwargs are rejected since the reference exception constructors only
// take positional args.
func (in *Interp) constructException(typ value.Value, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(kwargs) > 0 {
		return value.Value{}, in.Raisef("TypeError", "%s() takes no keyword arguments", typ.TypeName())
	}
	tuple, err := in.Heap.Tuple(args)
	if err != nil {
		return value.Value{}, err
	}
	return in.Heap.Exception(typ, tuple)
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
