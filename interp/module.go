package interp

import "github.com/zond/monty/value"

// importModule implements OpImportName against the allowlist installed
// in Modules (spec.md §6 "import limited to an allowlist").
func (in *Interp) importModule(name string) (value.Value, error) {
	mod, ok := in.Modules[name]
	if !ok {
		return value.Value{}, in.Raisef("ImportError", "no module named '%s'", name)
	}
	return mod, nil
}
