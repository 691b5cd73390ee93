package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// RunSuper is the delegate through which an overriding task reaches the
// implementation it replaced. It is an immutable snapshot bound at
// override time, not a live registry reference.
type RunSuper struct {
	task    string
	defined bool
	invoke  func(ctx context.Context, args Arguments) (any, error)
}

// Defined reports whether a previous implementation exists.
func (s RunSuper) Defined() bool { return s.defined }

// Call runs the previous implementation. With nil args the current
// invocation's resolved arguments are re-resolved against the
// predecessor's schema; arguments the predecessor does not declare are
// dropped rather than rejected.
func (s RunSuper) Call(ctx context.Context, args Arguments) (any, error) {
	if !s.defined {
		return nil, &RunSuperNotDefinedError{Task: s.task}
	}
	return s.invoke(ctx, args)
}

// Runner resolves arguments against task schemas and dispatches actions.
// One runner exists per composed environment.
type Runner struct {
	reg *Registry
	env *Environment
}

// Run resolves args against the schema of the current definition of name
// and invokes its action. The action's outcome propagates unchanged; the
// runner adds no retry or recovery.
func (r *Runner) Run(ctx context.Context, name string, args Arguments) (any, error) {
	chain := r.reg.Chain(name)
	if len(chain) == 0 {
		return nil, &UnrecognizedTaskError{Task: name}
	}
	if args == nil {
		args = Arguments{}
	}
	return r.invokeAt(ctx, name, chain, len(chain)-1, args)
}

// RunCLI resolves raw command-line tokens (--flag, --param value and
// positionals) against the schema and then runs the task.
func (r *Runner) RunCLI(ctx context.Context, name string, argv []string) (any, error) {
	chain := r.reg.Chain(name)
	if len(chain) == 0 {
		return nil, &UnrecognizedTaskError{Task: name}
	}
	args, err := r.cliArguments(chain[len(chain)-1], argv)
	if err != nil {
		return nil, err
	}
	return r.invokeAt(ctx, name, chain, len(chain)-1, args)
}

func (r *Runner) invokeAt(ctx context.Context, name string, chain []*Definition, idx int, args Arguments) (any, error) {
	def := chain[idx]
	resolved, err := r.resolve(def, args)
	if err != nil {
		return nil, err
	}
	if def.action == nil {
		return nil, fmt.Errorf("task %q: no action set", name)
	}

	super := RunSuper{task: name, defined: idx > 0}
	if idx > 0 {
		prev := chain[idx-1]
		super.invoke = func(ctx context.Context, superArgs Arguments) (any, error) {
			if superArgs == nil {
				superArgs = inheritedArgs(prev, resolved)
			}
			return r.invokeAt(ctx, name, chain, idx-1, superArgs)
		}
	}

	log.Debug().Str("task", name).Int("chain_depth", idx).Msg("running task")
	return def.action(ctx, r.env, resolved, super)
}

// inheritedArgs filters the current invocation's resolved arguments down
// to the names the predecessor declares. Parameters an override added to
// the schema never leak into the predecessor's resolution; parameters
// only the predecessor declares take their defaults there.
func inheritedArgs(prev *Definition, resolved Arguments) Arguments {
	out := Arguments{}
	for k, v := range resolved {
		if _, ok := prev.lookup(k); ok {
			out[k] = v
		}
	}
	return out
}

// resolve applies the schema to the provided arguments: defaults for
// absent optionals, parse for CLI-originated strings, validate for every
// value, and arity checks. A nil value counts as absent. The first
// failure aborts resolution.
func (r *Runner) resolve(def *Definition, provided Arguments) (Arguments, error) {
	resolved := Arguments{}

	for _, p := range def.Params() {
		v, ok := provided[p.Name]
		if !ok || v == nil {
			if !p.Optional {
				return nil, &MissingRequiredArgumentError{Task: def.name, Param: p.Name}
			}
			resolved[p.Name] = p.Default
			continue
		}
		typed, err := coerce(p, v)
		if err != nil {
			return nil, err
		}
		resolved[p.Name] = typed
	}

	for _, p := range def.Positionals() {
		v, ok := provided[p.Name]
		if !ok || v == nil {
			if !p.Optional {
				return nil, &MissingRequiredArgumentError{Task: def.name, Param: p.Name}
			}
			resolved[p.Name] = p.Default
			continue
		}
		if p.Variadic {
			seq, err := coerceVariadic(p, v)
			if err != nil {
				return nil, err
			}
			resolved[p.Name] = seq
			continue
		}
		typed, err := coerce(p, v)
		if err != nil {
			return nil, err
		}
		resolved[p.Name] = typed
	}

	for name, v := range provided {
		if v == nil {
			continue
		}
		if _, ok := def.lookup(name); !ok {
			return nil, &InvalidArgumentError{Param: name, Expected: fmt.Sprintf("a declared parameter of task %q", def.name), Value: v}
		}
	}
	return resolved, nil
}

// coerce parses a raw string through the parameter's CLI type when
// possible, then validates.
func coerce(p ParamDefinition, v any) (any, error) {
	if raw, isString := v.(string); isString {
		if cli, ok := p.Type.(CLIArgumentType); ok {
			parsed, err := cli.Parse(p.Name, raw)
			if err != nil {
				return nil, err
			}
			v = parsed
		}
	}
	if err := p.Type.Validate(p.Name, v); err != nil {
		return nil, err
	}
	return v, nil
}

// coerceVariadic normalizes a variadic value into a flat sequence,
// expanding composite parse results element-wise.
func coerceVariadic(p ParamDefinition, v any) (any, error) {
	elems, ok := asSequence(v)
	if !ok {
		elems = []any{v}
	}
	flat := make([]any, 0, len(elems))
	for _, e := range elems {
		if raw, isString := e.(string); isString {
			if cli, ok := p.Type.(CLIArgumentType); ok {
				parsed, err := cli.Parse(p.Name, raw)
				if err != nil {
					return nil, err
				}
				e = parsed
			}
		}
		if expanded, ok := asSequence(e); ok {
			flat = append(flat, expanded...)
			continue
		}
		flat = append(flat, e)
	}

	// Sequence-typed composites (files) validate the whole slice and
	// yield []string; element-typed variadics (int, string, ...) validate
	// each value and yield []any, empty or not.
	if _, isSeq := p.Type.(SequenceArgumentType); isSeq {
		strs, ok := ToStringSlice(flat)
		if !ok {
			return nil, &InvalidArgumentError{Param: p.Name, Expected: "a sequence of file paths", Value: v}
		}
		if err := p.Type.Validate(p.Name, strs); err != nil {
			return nil, err
		}
		return strs, nil
	}
	for _, e := range flat {
		if err := p.Type.Validate(p.Name, e); err != nil {
			return nil, err
		}
	}
	return flat, nil
}

func asSequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	}
	return nil, false
}

// cliArguments maps raw CLI tokens onto parameter names. Values stay raw
// strings here; resolve parses and validates them.
func (r *Runner) cliArguments(def *Definition, argv []string) (Arguments, error) {
	args := Arguments{}
	var positional []string

	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		if tok == "--" {
			positional = append(positional, argv[i+1:]...)
			break
		}
		if !strings.HasPrefix(tok, "--") {
			positional = append(positional, tok)
			continue
		}
		name := strings.TrimPrefix(tok, "--")
		p, ok := def.params[name]
		if !ok {
			return nil, &InvalidArgumentError{Param: name, Expected: fmt.Sprintf("a declared parameter of task %q", def.name), Value: tok}
		}
		if p.Flag {
			args[name] = true
			continue
		}
		if i+1 >= len(argv) {
			return nil, &MissingRequiredArgumentError{Task: def.name, Param: name}
		}
		i++
		args[name] = argv[i]
	}

	defs := def.Positionals()
	for i, p := range defs {
		if p.Variadic {
			rest := positional[min(i, len(positional)):]
			if len(rest) > 0 {
				args[p.Name] = rest
			}
			positional = positional[:min(i, len(positional))]
			break
		}
		if i < len(positional) {
			args[p.Name] = positional[i]
		}
	}
	consumed := len(defs)
	if consumed > 0 && defs[len(defs)-1].Variadic {
		consumed-- // the variadic tail took everything past this point
	}
	if len(positional) > consumed {
		return nil, &InvalidArgumentError{Param: "positional", Expected: fmt.Sprintf("at most %d positional arguments for task %q", consumed, def.name), Value: positional[consumed:]}
	}
	return args, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
