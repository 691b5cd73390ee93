package core

import (
	"context"
	"fmt"
)

// Arguments maps parameter names to already-typed values. Its shape is
// checked against the task's schema at resolution time.
type Arguments map[string]any

// Action is a task's behavior. It receives the composed runtime
// environment and a run-super delegate bound to the definition this one
// overrode, if any.
type Action func(ctx context.Context, env *Environment, args Arguments, super RunSuper) (any, error)

// Definition is one link in a task's override chain: a parameter schema,
// a description and an action. It is built through Builder and never
// mutated after the declaration phase ends.
type Definition struct {
	name        string
	description string
	subtask     bool
	action      Action
	params      map[string]ParamDefinition
	paramOrder  []string
	positional  []ParamDefinition
}

func newDefinition(name string, subtask bool) *Definition {
	return &Definition{
		name:    name,
		subtask: subtask,
		params:  map[string]ParamDefinition{},
	}
}

func (d *Definition) Name() string        { return d.name }
func (d *Definition) Description() string { return d.description }
func (d *Definition) IsSubtask() bool     { return d.subtask }

// Params returns the named and flag parameters in declaration order.
func (d *Definition) Params() []ParamDefinition {
	out := make([]ParamDefinition, 0, len(d.paramOrder))
	for _, n := range d.paramOrder {
		out = append(out, d.params[n])
	}
	return out
}

// Positionals returns the positional parameters in declaration order.
func (d *Definition) Positionals() []ParamDefinition {
	out := make([]ParamDefinition, len(d.positional))
	copy(out, d.positional)
	return out
}

func (d *Definition) lookup(name string) (ParamDefinition, bool) {
	if p, ok := d.params[name]; ok {
		return p, true
	}
	for _, p := range d.positional {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDefinition{}, false
}

// Builder accumulates a task definition fluently. Constraint violations
// fail immediately at declaration time with a *TaskDefinitionError panic;
// declaration happens during the plugin-load phase, before any task runs.
type Builder struct {
	def *Definition
}

// SetDescription overwrites the task description.
func (b *Builder) SetDescription(desc string) *Builder {
	b.def.description = desc
	return b
}

// SetAction overwrites the task action. Calling it twice replaces the
// action; chaining happens only through registry-level re-declaration.
func (b *Builder) SetAction(action Action) *Builder {
	b.def.action = action
	return b
}

// AddParam declares a required named parameter.
func (b *Builder) AddParam(name string, t CLIArgumentType, desc string) *Builder {
	return b.addNamed(ParamDefinition{Name: name, Type: t, Description: desc})
}

// AddOptionalParam declares an optional named parameter with a default.
func (b *Builder) AddOptionalParam(name string, t CLIArgumentType, defaultValue any, desc string) *Builder {
	return b.addNamed(ParamDefinition{Name: name, Type: t, Default: defaultValue, Description: desc, Optional: true})
}

// AddFlag declares a boolean flag, implicitly optional and false by default.
func (b *Builder) AddFlag(name, desc string) *Builder {
	return b.addNamed(ParamDefinition{Name: name, Type: BoolType, Default: false, Description: desc, Optional: true, Flag: true})
}

// AddPositionalParam declares a required positional parameter.
func (b *Builder) AddPositionalParam(name string, t CLIArgumentType, desc string) *Builder {
	return b.addPositional(ParamDefinition{Name: name, Type: t, Description: desc})
}

// AddOptionalPositionalParam declares an optional positional parameter.
func (b *Builder) AddOptionalPositionalParam(name string, t CLIArgumentType, defaultValue any, desc string) *Builder {
	return b.addPositional(ParamDefinition{Name: name, Type: t, Default: defaultValue, Description: desc, Optional: true})
}

// AddVariadicPositionalParam declares a required trailing positional
// parameter consuming all remaining positional values.
func (b *Builder) AddVariadicPositionalParam(name string, t CLIArgumentType, desc string) *Builder {
	return b.addPositional(ParamDefinition{Name: name, Type: t, Description: desc, Variadic: true})
}

// AddOptionalVariadicPositionalParam declares an optional trailing
// variadic positional parameter. The default, if any, must be a sequence.
func (b *Builder) AddOptionalVariadicPositionalParam(name string, t CLIArgumentType, defaultValue any, desc string) *Builder {
	return b.addPositional(ParamDefinition{Name: name, Type: t, Default: defaultValue, Description: desc, Optional: true, Variadic: true})
}

func (b *Builder) addNamed(p ParamDefinition) *Builder {
	b.checkCommon(p)
	b.def.params[p.Name] = p
	b.def.paramOrder = append(b.def.paramOrder, p.Name)
	return b
}

func (b *Builder) addPositional(p ParamDefinition) *Builder {
	b.checkCommon(p)
	if n := len(b.def.positional); n > 0 {
		last := b.def.positional[n-1]
		if last.Variadic {
			b.fail("positional parameter %q declared after variadic parameter %q", p.Name, last.Name)
		}
		if last.Optional && !p.Optional {
			b.fail("required positional parameter %q declared after optional parameter %q", p.Name, last.Name)
		}
	}
	if p.Variadic && !p.defaultIsSequence() {
		b.fail("default of variadic parameter %q is not a sequence", p.Name)
	}
	b.def.positional = append(b.def.positional, p)
	return b
}

func (b *Builder) checkCommon(p ParamDefinition) {
	if p.Name == "" {
		b.fail("parameter with empty name")
	}
	if p.Type == nil {
		b.fail("parameter %q has no type", p.Name)
	}
	if _, exists := b.def.lookup(p.Name); exists {
		b.fail("duplicate parameter %q", p.Name)
	}
	if p.HasDefault() && !p.Variadic {
		if err := p.Type.Validate(p.Name, p.Default); err != nil {
			b.fail("default of parameter %q does not satisfy type %s", p.Name, p.Type.Name())
		}
	}
}

func (b *Builder) fail(format string, args ...any) {
	panic(&TaskDefinitionError{Task: b.def.name, Reason: fmt.Sprintf(format, args...)})
}
