package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStringType(t *testing.T) {
	v, err := StringType.Parse("name", "hello")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if v != "hello" {
		t.Errorf("expected 'hello', got %v", v)
	}
	if err := StringType.Validate("name", 42); err == nil {
		t.Error("expected validation failure for non-string")
	}
}

func TestBoolType(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "false": false} {
		v, err := BoolType.Parse("flag", raw)
		if err != nil {
			t.Fatalf("parse %q failed: %v", raw, err)
		}
		if v != want {
			t.Errorf("parse %q: expected %v, got %v", raw, want, v)
		}
	}
	if _, err := BoolType.Parse("flag", "yes"); err == nil {
		t.Error("expected parse failure for 'yes'")
	}
}

func TestIntType(t *testing.T) {
	v, err := IntType.Parse("count", "42")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %v", v)
	}
	if _, err := IntType.Parse("count", "4.2"); err == nil {
		t.Error("expected parse failure for float string")
	}
	if err := IntType.Validate("count", int64(7)); err != nil {
		t.Errorf("int64 should validate: %v", err)
	}
}

func TestFloatType(t *testing.T) {
	v, err := FloatType.Parse("ratio", "2.5")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if v != 2.5 {
		t.Errorf("expected 2.5, got %v", v)
	}
	if _, err := FloatType.Parse("ratio", "abc"); err == nil {
		t.Error("expected parse failure")
	}
}

func TestJSONType(t *testing.T) {
	v, err := JSONType.Parse("payload", `{"a":[1,2]}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", v)
	}
	if len(m) != 1 {
		t.Errorf("unexpected map: %v", m)
	}
	if _, err := JSONType.Parse("payload", "{broken"); err == nil {
		t.Error("expected parse failure for malformed JSON")
	}
}

// Parse output must always satisfy Validate.
func TestParseOutputValidates(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.toml")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		typ CLIArgumentType
		raw string
	}{
		{StringType, "abc"},
		{BoolType, "true"},
		{IntType, "-3"},
		{FloatType, "0.25"},
		{JSONType, `[1,"two"]`},
		{InputFileType, file},
		{InputFilesType, filepath.Join(dir, "*.toml")},
	}
	for _, c := range cases {
		v, err := c.typ.Parse("arg", c.raw)
		if err != nil {
			t.Fatalf("%s: parse %q failed: %v", c.typ.Name(), c.raw, err)
		}
		if err := c.typ.Validate("arg", v); err != nil {
			t.Errorf("%s: parse output %v failed validate: %v", c.typ.Name(), v, err)
		}
	}
}

func TestInputFilesGlobExpansion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.toml", "b.toml", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	v, err := InputFilesType.Parse("sources", filepath.Join(dir, "*.toml"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	files, ok := v.([]string)
	if !ok {
		t.Fatalf("expected []string, got %T", v)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 matches, got %d: %v", len(files), files)
	}
}

func TestInputFilesEmptyMatchAllowed(t *testing.T) {
	v, err := InputFilesType.Parse("sources", filepath.Join(t.TempDir(), "*.toml"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if files := v.([]string); len(files) != 0 {
		t.Errorf("expected zero matches, got %v", files)
	}
}

func TestInputFileMissing(t *testing.T) {
	if _, err := InputFileType.Parse("src", filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected parse failure for missing file")
	}
}

func TestTypeByName(t *testing.T) {
	for _, name := range []string{"string", "bool", "int", "float", "json", "file", "files"} {
		if _, ok := TypeByName(name); !ok {
			t.Errorf("type %q not resolvable", name)
		}
	}
	if _, ok := TypeByName("complex"); ok {
		t.Error("unexpected type resolution")
	}
}
