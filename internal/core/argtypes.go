package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/gjson"
)

// ArgumentType validates task argument values. Types used for CLI-originated
// values additionally implement CLIArgumentType so raw string tokens can be
// turned into typed values before validation.
type ArgumentType interface {
	Name() string
	Validate(argName string, value any) error
}

// CLIArgumentType parses a raw CLI token into a typed value. Parse output
// always satisfies Validate.
type CLIArgumentType interface {
	ArgumentType
	Parse(argName, raw string) (any, error)
}

// SequenceArgumentType marks composite types whose values are whole
// string slices rather than single elements. Variadic parameters of a
// sequence type resolve to []string; all others resolve to []any.
type SequenceArgumentType interface {
	ArgumentType
	SequenceValues()
}

// Built-in argument types.
var (
	StringType     CLIArgumentType = stringType{}
	BoolType       CLIArgumentType = boolType{}
	IntType        CLIArgumentType = intType{}
	FloatType      CLIArgumentType = floatType{}
	JSONType       CLIArgumentType = jsonType{}
	InputFileType  CLIArgumentType = inputFileType{}
	InputFilesType CLIArgumentType = inputFilesType{}
)

// TypeByName resolves a built-in type from its name. Used by the plugin
// surface, where schemas are declared with string type names.
func TypeByName(name string) (CLIArgumentType, bool) {
	switch name {
	case "string":
		return StringType, true
	case "bool", "boolean":
		return BoolType, true
	case "int":
		return IntType, true
	case "float":
		return FloatType, true
	case "json":
		return JSONType, true
	case "file":
		return InputFileType, true
	case "files":
		return InputFilesType, true
	}
	return nil, false
}

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) Validate(argName string, value any) error {
	if _, ok := value.(string); !ok {
		return &InvalidArgumentError{Param: argName, Expected: "string", Value: value}
	}
	return nil
}

func (stringType) Parse(argName, raw string) (any, error) { return raw, nil }

type boolType struct{}

func (boolType) Name() string { return "bool" }

func (boolType) Validate(argName string, value any) error {
	if _, ok := value.(bool); !ok {
		return &InvalidArgumentError{Param: argName, Expected: "bool", Value: value}
	}
	return nil
}

func (boolType) Parse(argName, raw string) (any, error) {
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return nil, &InvalidArgumentError{Param: argName, Expected: "bool", Value: raw}
}

type intType struct{}

func (intType) Name() string { return "int" }

func (intType) Validate(argName string, value any) error {
	switch value.(type) {
	case int, int32, int64:
		return nil
	}
	return &InvalidArgumentError{Param: argName, Expected: "int", Value: value}
}

func (intType) Parse(argName, raw string) (any, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &InvalidArgumentError{Param: argName, Expected: "int", Value: raw}
	}
	return n, nil
}

type floatType struct{}

func (floatType) Name() string { return "float" }

func (floatType) Validate(argName string, value any) error {
	switch value.(type) {
	case float32, float64, int, int32, int64:
		return nil
	}
	return &InvalidArgumentError{Param: argName, Expected: "float", Value: value}
}

func (floatType) Parse(argName, raw string) (any, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &InvalidArgumentError{Param: argName, Expected: "float", Value: raw}
	}
	return f, nil
}

// jsonType accepts any value representable as a JSON document. CLI input
// must be syntactically valid JSON.
type jsonType struct{}

func (jsonType) Name() string { return "json" }

func (jsonType) Validate(argName string, value any) error {
	if _, err := json.Marshal(value); err != nil {
		return &InvalidArgumentError{Param: argName, Expected: "a JSON-representable value", Value: fmt.Sprintf("%T", value)}
	}
	return nil
}

func (jsonType) Parse(argName, raw string) (any, error) {
	if !gjson.Valid(raw) {
		return nil, &InvalidArgumentError{Param: argName, Expected: "a valid JSON document", Value: raw}
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, &InvalidArgumentError{Param: argName, Expected: "a valid JSON document", Value: raw}
	}
	return v, nil
}

// inputFileType is a path to an existing regular file.
type inputFileType struct{}

func (inputFileType) Name() string { return "file" }

func (inputFileType) Validate(argName string, value any) error {
	p, ok := value.(string)
	if !ok {
		return &InvalidArgumentError{Param: argName, Expected: "a file path", Value: value}
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return &InvalidArgumentError{Param: argName, Expected: "an existing file", Value: p}
	}
	return nil
}

func (t inputFileType) Parse(argName, raw string) (any, error) {
	if err := t.Validate(argName, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// inputFilesType is a composite type: one raw glob token expands to
// zero-or-more existing file paths. Its values are string slices, which
// is what variadic positional parameters consume.
type inputFilesType struct{}

func (inputFilesType) Name() string { return "files" }

func (inputFilesType) SequenceValues() {}

func (inputFilesType) Validate(argName string, value any) error {
	paths, ok := ToStringSlice(value)
	if !ok {
		return &InvalidArgumentError{Param: argName, Expected: "a list of file paths", Value: value}
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			return &InvalidArgumentError{Param: argName, Expected: "existing files", Value: p}
		}
	}
	return nil
}

func (inputFilesType) Parse(argName, raw string) (any, error) {
	matches, err := filepath.Glob(raw)
	if err != nil {
		return nil, &InvalidArgumentError{Param: argName, Expected: "a valid glob pattern", Value: raw}
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			files = append(files, m)
		}
	}
	return files, nil
}

// ToStringSlice normalizes []string and []any-of-strings values, which
// appear when arguments cross the plugin or JSON boundary.
func ToStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
