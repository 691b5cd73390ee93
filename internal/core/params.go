package core

import "reflect"

// ParamDefinition describes one task input. Flags are always boolean and
// optional; a variadic parameter must be the last positional one.
type ParamDefinition struct {
	Name        string
	Type        ArgumentType
	Default     any
	Description string
	Optional    bool
	Flag        bool
	Variadic    bool
}

// HasDefault reports whether the definition carries a usable default.
func (p ParamDefinition) HasDefault() bool { return p.Default != nil }

// defaultIsSequence reports whether the default value is a slice, the
// only shape a variadic default may take.
func (p ParamDefinition) defaultIsSequence() bool {
	if p.Default == nil {
		return true
	}
	return reflect.TypeOf(p.Default).Kind() == reflect.Slice
}
