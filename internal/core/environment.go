package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hychen/redspot/internal/artifacts"
	"github.com/hychen/redspot/internal/chain"
)

// RuntimeArguments are the process-level switches the CLI resolved before
// any task ran.
type RuntimeArguments struct {
	Network    string
	ConfigPath string
	LogLevel   string
}

// EnvironmentExtender mutates the environment once, during composition,
// before any task executes. Extenders may add or replace extras, never
// remove them.
type EnvironmentExtender func(env *Environment) error

// Environment is the shared runtime context every task receives. It is
// composed exactly once per process run and not mutated after the
// extender phase; interior collaborators evolve through their own
// lifecycles.
type Environment struct {
	Config      *Config
	RuntimeArgs RuntimeArguments
	Network     *chain.Client
	Artifacts   *artifacts.Store
	Tasks       TasksView

	// Extras holds fields added by environment extenders. Unlike the
	// fields above it is collaborator-style interior state: it stays
	// writable after composition so actions can share values across
	// nested runs, the same way the artifact store accumulates records.
	Extras map[string]any

	runner *Runner
}

// Run dispatches a task (or subtask) through the runner with typed
// arguments. Nested calls re-enter the same resolution path.
func (e *Environment) Run(ctx context.Context, name string, args Arguments) (any, error) {
	return e.runner.Run(ctx, name, args)
}

// RunCLI dispatches a task with raw command-line tokens.
func (e *Environment) RunCLI(ctx context.Context, name string, argv []string) (any, error) {
	return e.runner.RunCLI(ctx, name, argv)
}

// Composer collects the task registry and the registered extenders, then
// assembles the environment. Compose may be called once.
type Composer struct {
	reg       *Registry
	extenders []EnvironmentExtender
	composed  bool
}

func NewComposer(reg *Registry) *Composer {
	return &Composer{reg: reg}
}

// Registry exposes the registry for task-declaration code.
func (c *Composer) Registry() *Registry { return c.reg }

// Extend registers an extender. Registration order is application order.
func (c *Composer) Extend(fn EnvironmentExtender) {
	c.extenders = append(c.extenders, fn)
}

// Compose builds the runtime environment and applies the extenders in
// registration order, exactly once per process run.
func (c *Composer) Compose(cfg *Config, rtArgs RuntimeArguments, network *chain.Client, store *artifacts.Store) (*Environment, error) {
	if c.composed {
		return nil, fmt.Errorf("environment already composed")
	}
	c.composed = true

	env := &Environment{
		Config:      cfg,
		RuntimeArgs: rtArgs,
		Network:     network,
		Artifacts:   store,
		Tasks:       c.reg.View(),
		Extras:      map[string]any{},
	}
	env.runner = &Runner{reg: c.reg, env: env}

	for i, fn := range c.extenders {
		if err := fn(env); err != nil {
			return nil, fmt.Errorf("environment extender %d: %w", i, err)
		}
	}
	log.Debug().Int("extenders", len(c.extenders)).Msg("runtime environment composed")
	return env, nil
}
