package core

import (
	"errors"
	"testing"
)

func TestExtendersRunInRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	c := NewComposer(reg)

	c.Extend(func(env *Environment) error {
		env.Extras["greeting"] = "hello"
		return nil
	})
	c.Extend(func(env *Environment) error {
		// later extenders observe earlier extenders' additions
		g, _ := env.Extras["greeting"].(string)
		env.Extras["greeting"] = g + ", chain"
		return nil
	})

	env, err := c.Compose(defaultConfig(), RuntimeArguments{}, nil, nil)
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	if env.Extras["greeting"] != "hello, chain" {
		t.Errorf("unexpected extras: %v", env.Extras)
	}
}

func TestExtenderFailureAbortsComposition(t *testing.T) {
	reg := NewRegistry()
	c := NewComposer(reg)
	boom := errors.New("bad plugin")
	c.Extend(func(env *Environment) error { return boom })

	if _, err := c.Compose(defaultConfig(), RuntimeArguments{}, nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected extender error, got %v", err)
	}
}

func TestComposeIsOneShot(t *testing.T) {
	reg := NewRegistry()
	c := NewComposer(reg)
	if _, err := c.Compose(defaultConfig(), RuntimeArguments{}, nil, nil); err != nil {
		t.Fatalf("first compose failed: %v", err)
	}
	if _, err := c.Compose(defaultConfig(), RuntimeArguments{}, nil, nil); err == nil {
		t.Fatal("second compose should fail")
	}
}

func TestEnvironmentExposesRegistryView(t *testing.T) {
	reg := NewRegistry()
	reg.Task("a").SetDescription("first").SetAction(nil)
	reg.Subtask("b").SetAction(nil)
	env := composeTestEnv(t, reg)

	defs := env.Tasks.Definitions()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if _, ok := env.Tasks.Get("a"); !ok {
		t.Error("task a not visible through the view")
	}
}
