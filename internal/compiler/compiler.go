package compiler

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/hychen/redspot/internal/core"
	"github.com/hychen/redspot/pkg/api"
)

// Compiler is the contract compiler collaborator: an opaque executable
// that turns source manifests into artifact records.
type Compiler interface {
	Check(ctx context.Context) error
	Compile(ctx context.Context, in api.CompilerInput) ([]api.CompiledUnit, error)
}

// Exec invokes an external compiler command per source manifest and
// expects a JSON description of the produced units on stdout.
type Exec struct {
	command    string
	minVersion string
	options    map[string]string

	// run is swapped in tests; it executes the command and returns stdout.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewExec(command, minVersion string, options map[string]string) *Exec {
	return &Exec{
		command:    command,
		minVersion: minVersion,
		options:    options,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

// Check verifies the compiler is on PATH and meets the configured minimum
// version. An unmet precondition is an EnvironmentError.
func (e *Exec) Check(ctx context.Context) error {
	out, err := e.run(ctx, e.command, "--version")
	if err != nil {
		return &core.EnvironmentError{
			Requirement: fmt.Sprintf("compiler %q available", e.command),
			Detail:      err.Error(),
		}
	}
	if e.minVersion == "" {
		return nil
	}
	got := versionRe.FindString(string(out))
	if got == "" {
		return &core.EnvironmentError{
			Requirement: fmt.Sprintf("compiler %q reports a version", e.command),
			Detail:      strings.TrimSpace(string(out)),
		}
	}
	if versionLess(got, e.minVersion) {
		return &core.EnvironmentError{
			Requirement: fmt.Sprintf("compiler %q >= %s", e.command, e.minVersion),
			Detail:      "found " + got,
		}
	}
	log.Debug().Str("compiler", e.command).Str("version", got).Msg("compiler check passed")
	return nil
}

// Compile runs one build per source manifest and collects the declared
// units. The compiler's stdout is JSON: either a single unit object or an
// array of them, each carrying name and artifact fields.
func (e *Exec) Compile(ctx context.Context, in api.CompilerInput) ([]api.CompiledUnit, error) {
	var units []api.CompiledUnit
	for _, src := range in.Sources {
		args := []string{"build", "--manifest-path", src, "--output-json"}
		for k, v := range in.Options {
			args = append(args, "--"+k)
			if v != "" {
				args = append(args, v)
			}
		}
		out, err := e.run(ctx, e.command, args...)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", src, err)
		}
		parsed, err := parseOutput(src, out)
		if err != nil {
			return nil, err
		}
		units = append(units, parsed...)
	}
	return units, nil
}

func parseOutput(src string, out []byte) ([]api.CompiledUnit, error) {
	doc := gjson.ParseBytes(out)
	if !doc.Exists() || !gjson.ValidBytes(out) {
		return nil, fmt.Errorf("compile %s: compiler emitted invalid JSON", src)
	}
	var units []api.CompiledUnit
	add := func(v gjson.Result) error {
		name := v.Get("name").String()
		artifact := v.Get("artifact").String()
		if name == "" || artifact == "" {
			return fmt.Errorf("compile %s: compiler output missing name or artifact", src)
		}
		units = append(units, api.CompiledUnit{Name: name, ArtifactPath: artifact})
		return nil
	}
	if doc.IsArray() {
		for _, v := range doc.Array() {
			if err := add(v); err != nil {
				return nil, err
			}
		}
		return units, nil
	}
	if err := add(doc); err != nil {
		return nil, err
	}
	return units, nil
}

// versionLess compares two dotted semver strings, ignoring any suffix.
func versionLess(a, b string) bool {
	pa, pb := versionParts(a), versionParts(b)
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	return false
}

func versionParts(v string) [3]int {
	var out [3]int
	m := versionRe.FindStringSubmatch(v)
	if m == nil {
		return out
	}
	for i := 0; i < 3; i++ {
		out[i], _ = strconv.Atoi(m[i+1])
	}
	return out
}
