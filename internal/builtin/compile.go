// Package builtin declares the tasks that ship with the tool. The compile
// pipeline is four independently overridable subtasks sequenced by the
// top-level compile task; overriding one stage is the supported way for
// plugins to change pipeline behavior.
package builtin

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/hychen/redspot/internal/compiler"
	"github.com/hychen/redspot/internal/core"
	"github.com/hychen/redspot/pkg/api"
)

// Register declares every built-in task on the registry.
func Register(reg *core.Registry, comp compiler.Compiler) {
	registerCompile(reg, comp)
	registerAccounts(reg)
}

func registerCompile(reg *core.Registry, comp compiler.Compiler) {
	reg.Task("compile").
		SetDescription("Compile contract sources and materialize artifacts").
		AddOptionalVariadicPositionalParam("sources", core.InputFilesType, nil, "source manifests or glob patterns; defaults to the configured contracts directory").
		SetAction(func(ctx context.Context, env *core.Environment, args core.Arguments, _ core.RunSuper) (any, error) {
			if _, err := env.Run(ctx, "compile:pre-check", nil); err != nil {
				return nil, err
			}
			gathered, err := env.Run(ctx, "compile:gather-input", core.Arguments{"sources": args["sources"]})
			if err != nil {
				return nil, err
			}
			units, err := env.Run(ctx, "compile:invoke-compiler", core.Arguments{"sources": gathered})
			if err != nil {
				return nil, err
			}
			return env.Run(ctx, "compile:materialize-output", core.Arguments{"units": units})
		})

	reg.Subtask("compile:pre-check").
		SetDescription("Verify the external compiler toolchain").
		SetAction(func(ctx context.Context, env *core.Environment, _ core.Arguments, _ core.RunSuper) (any, error) {
			return nil, comp.Check(ctx)
		})

	reg.Subtask("compile:gather-input").
		SetDescription("Discover and deduplicate contract source manifests").
		AddOptionalVariadicPositionalParam("sources", core.InputFilesType, nil, "explicit source manifests").
		SetAction(func(ctx context.Context, env *core.Environment, args core.Arguments, _ core.RunSuper) (any, error) {
			sources, _ := core.ToStringSlice(args["sources"])
			if len(sources) == 0 {
				pattern := filepath.Join(env.Config.Paths.Contracts, "*", "Cargo.toml")
				matches, err := filepath.Glob(pattern)
				if err != nil {
					return nil, fmt.Errorf("discover sources: %w", err)
				}
				sources = matches
			}
			seen := map[string]bool{}
			var out []string
			for _, s := range sources {
				if !seen[s] {
					seen[s] = true
					out = append(out, s)
				}
			}
			sort.Strings(out)
			log.Debug().Int("count", len(out)).Msg("gathered contract sources")
			return out, nil
		})

	reg.Subtask("compile:invoke-compiler").
		SetDescription("Invoke the external compiler over the gathered sources").
		AddOptionalVariadicPositionalParam("sources", core.InputFilesType, nil, "gathered source manifests").
		SetAction(func(ctx context.Context, env *core.Environment, args core.Arguments, _ core.RunSuper) (any, error) {
			sources, _ := core.ToStringSlice(args["sources"])
			if len(sources) == 0 {
				log.Warn().Msg("nothing to compile")
				return []api.CompiledUnit{}, nil
			}
			return comp.Compile(ctx, api.CompilerInput{
				Sources: sources,
				Options: env.Config.Compiler.Options,
			})
		})

	reg.Subtask("compile:materialize-output").
		SetDescription("Persist compiled artifact records").
		AddOptionalParam("units", core.JSONType, []api.CompiledUnit{}, "compiled units to materialize").
		SetAction(func(ctx context.Context, env *core.Environment, args core.Arguments, _ core.RunSuper) (any, error) {
			units, err := toUnits(args["units"])
			if err != nil {
				return nil, err
			}
			return env.Artifacts.Materialize(units)
		})
}

// toUnits accepts both typed slices from the Go pipeline and decoded JSON
// shapes coming from overrides or plugins.
func toUnits(v any) ([]api.CompiledUnit, error) {
	switch u := v.(type) {
	case nil:
		return nil, nil
	case []api.CompiledUnit:
		return u, nil
	case []any:
		out := make([]api.CompiledUnit, 0, len(u))
		for _, e := range u {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("materialize: unexpected unit shape %T", e)
			}
			name, _ := m["name"].(string)
			path, _ := m["artifact_path"].(string)
			if path == "" {
				path, _ = m["artifact"].(string)
			}
			out = append(out, api.CompiledUnit{Name: name, ArtifactPath: path})
		}
		return out, nil
	}
	return nil, fmt.Errorf("materialize: unexpected units value %T", v)
}
