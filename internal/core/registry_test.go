package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func composeTestEnv(t *testing.T, reg *Registry) *Environment {
	t.Helper()
	env, err := NewComposer(reg).Compose(defaultConfig(), RuntimeArguments{Network: "development"}, nil, nil)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	return env
}

func TestBaseDefinitionHasNoSuper(t *testing.T) {
	reg := NewRegistry()
	var sawDefined bool
	reg.Task("solo").SetAction(func(ctx context.Context, env *Environment, args Arguments, super RunSuper) (any, error) {
		sawDefined = super.Defined()
		_, err := super.Call(ctx, nil)
		return nil, err
	})
	env := composeTestEnv(t, reg)

	_, err := env.Run(context.Background(), "solo", nil)
	if sawDefined {
		t.Error("base definition should have super.Defined() == false")
	}
	var nse *RunSuperNotDefinedError
	if !errors.As(err, &nse) {
		t.Fatalf("expected RunSuperNotDefinedError, got %v", err)
	}
}

// Each override's run-super reaches exactly the immediate predecessor,
// never further back.
func TestOverrideChainInvokesImmediatePredecessor(t *testing.T) {
	reg := NewRegistry()
	var order []string

	for i := 1; i <= 3; i++ {
		i := i
		reg.Task("chained").SetAction(func(ctx context.Context, env *Environment, args Arguments, super RunSuper) (any, error) {
			if super.Defined() {
				if _, err := super.Call(ctx, nil); err != nil {
					return nil, err
				}
			}
			order = append(order, fmt.Sprintf("impl-%d", i))
			return nil, nil
		})
	}
	env := composeTestEnv(t, reg)

	if _, err := env.Run(context.Background(), "chained", nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := []string{"impl-1", "impl-2", "impl-3"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

// The scenario from the engine contract: an override that defers to its
// predecessor first emits the base line, then its own.
func TestGreetOverrideScenario(t *testing.T) {
	reg := NewRegistry()
	var lines []string

	reg.Task("greet").
		AddOptionalParam("name", StringType, "world", "who to greet").
		SetAction(func(ctx context.Context, env *Environment, args Arguments, super RunSuper) (any, error) {
			lines = append(lines, fmt.Sprintf("hello, %s", args["name"]))
			return nil, nil
		})

	reg.Task("greet").
		AddOptionalParam("name", StringType, "world", "who to greet").
		SetAction(func(ctx context.Context, env *Environment, args Arguments, super RunSuper) (any, error) {
			if _, err := super.Call(ctx, nil); err != nil {
				return nil, err
			}
			lines = append(lines, fmt.Sprintf("HELLO, %s!!", args["name"]))
			return nil, nil
		})

	env := composeTestEnv(t, reg)
	if _, err := env.Run(context.Background(), "greet", Arguments{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(lines) != 2 || lines[0] != "hello, world" || lines[1] != "HELLO, world!!" {
		t.Fatalf("unexpected output: %v", lines)
	}
}

// An override may extend the schema with its own parameters; a bare
// run-super call still reaches the predecessor, whose resolution never
// sees the added names.
func TestOverrideExtendsSchemaAndDefers(t *testing.T) {
	reg := NewRegistry()
	var lines []string

	reg.Task("greet").
		AddOptionalParam("name", StringType, "world", "who to greet").
		SetAction(func(ctx context.Context, env *Environment, args Arguments, super RunSuper) (any, error) {
			lines = append(lines, fmt.Sprintf("hello, %s", args["name"]))
			return nil, nil
		})

	reg.Task("greet").
		AddOptionalParam("name", StringType, "world", "who to greet").
		AddFlag("shout", "repeat the greeting loudly").
		SetAction(func(ctx context.Context, env *Environment, args Arguments, super RunSuper) (any, error) {
			if _, err := super.Call(ctx, nil); err != nil {
				return nil, err
			}
			if args["shout"] == true {
				lines = append(lines, fmt.Sprintf("HELLO, %s!!", args["name"]))
			}
			return nil, nil
		})

	env := composeTestEnv(t, reg)
	if _, err := env.Run(context.Background(), "greet", Arguments{"name": "crew", "shout": true}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(lines) != 2 || lines[0] != "hello, crew" || lines[1] != "HELLO, crew!!" {
		t.Fatalf("unexpected output: %v", lines)
	}
}

// The override's schema fully replaces the old one; run-super re-resolves
// against the predecessor's schema.
func TestOverrideReplacesSchema(t *testing.T) {
	reg := NewRegistry()

	reg.Task("job").
		AddOptionalParam("retries", IntType, 3, "").
		SetAction(func(ctx context.Context, env *Environment, args Arguments, super RunSuper) (any, error) {
			return args["retries"], nil
		})

	reg.Task("job").
		AddOptionalParam("verbose", BoolType, false, "").
		SetAction(func(ctx context.Context, env *Environment, args Arguments, super RunSuper) (any, error) {
			if _, ok := args["retries"]; ok {
				t.Error("old schema leaked into override resolution")
			}
			return super.Call(ctx, Arguments{})
		})

	env := composeTestEnv(t, reg)
	res, err := env.Run(context.Background(), "job", Arguments{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res != 3 {
		t.Errorf("expected predecessor default 3, got %v", res)
	}
}

func TestSubtaskVisibilityFlag(t *testing.T) {
	reg := NewRegistry()
	reg.Task("visible").SetAction(nil)
	reg.Subtask("hidden").SetAction(nil)

	vis, _ := reg.Get("visible")
	hid, _ := reg.Get("hidden")
	if vis.IsSubtask() {
		t.Error("task should not be a subtask")
	}
	if !hid.IsSubtask() {
		t.Error("subtask flag not set")
	}
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	reg.Task("b").SetAction(nil)
	reg.Task("a").SetAction(nil)
	reg.Task("a").SetAction(nil) // override, not a new name

	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected names: %v", names)
	}
	if len(reg.Chain("a")) != 2 {
		t.Errorf("expected chain depth 2 for a")
	}
}
