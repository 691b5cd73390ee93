package artifacts

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/crypto/blake2b"

	"github.com/hychen/redspot/pkg/api"
)

const cacheSize = 32

// DuplicateArtifactNameError reports two compiled units sharing one
// output name within a single invocation. It is a fatal configuration
// error; nothing is written when it occurs.
type DuplicateArtifactNameError struct {
	Name       string
	FirstPath  string
	SecondPath string
}

func (e *DuplicateArtifactNameError) Error() string {
	return fmt.Sprintf("duplicate artifact name %q: %s and %s", e.Name, e.FirstPath, e.SecondPath)
}

func (e *DuplicateArtifactNameError) Kind() string { return "DUPLICATE_ARTIFACT_NAME" }

// Store persists compiler output as JSON records in one directory: per
// contract a full record (<name>.contract.json) and one with the wasm
// payload stripped (<name>.json).
type Store struct {
	dir   string
	cache *lru.Cache[string, []byte]
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, cache: cache}, nil
}

func (s *Store) Dir() string { return s.dir }

// Materialize writes the records for one compiler invocation and returns
// the written paths. Duplicate unit names abort before any write.
func (s *Store) Materialize(units []api.CompiledUnit) ([]string, error) {
	seen := map[string]string{}
	for _, u := range units {
		if first, dup := seen[u.Name]; dup {
			return nil, &DuplicateArtifactNameError{Name: u.Name, FirstPath: first, SecondPath: u.ArtifactPath}
		}
		seen[u.Name] = u.ArtifactPath
	}

	var written []string
	for _, u := range units {
		paths, err := s.materializeUnit(u)
		if err != nil {
			return written, err
		}
		written = append(written, paths...)
	}
	return written, nil
}

func (s *Store) materializeUnit(u api.CompiledUnit) ([]string, error) {
	data, err := os.ReadFile(u.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("read artifact of %s: %w", u.Name, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("artifact of %s is not valid JSON: %s", u.Name, u.ArtifactPath)
	}

	if wasm := gjson.GetBytes(data, "source.wasm"); wasm.Exists() {
		if !gjson.GetBytes(data, "source.hash").Exists() {
			data, err = sjson.SetBytes(data, "source.hash", codeHash([]byte(wasm.String())))
			if err != nil {
				return nil, fmt.Errorf("set code hash of %s: %w", u.Name, err)
			}
		}
	}

	full := filepath.Join(s.dir, u.Name+".contract.json")
	if err := os.WriteFile(full, data, 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", full, err)
	}

	stripped, err := sjson.DeleteBytes(data, "source.wasm")
	if err != nil {
		return nil, fmt.Errorf("strip wasm of %s: %w", u.Name, err)
	}
	meta := filepath.Join(s.dir, u.Name+".json")
	if err := os.WriteFile(meta, stripped, 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", meta, err)
	}

	s.cache.Add(u.Name, data)
	log.Info().Str("contract", u.Name).Str("path", full).Msg("artifact written")
	return []string{full, meta}, nil
}

// Read returns the full record for a contract name, falling back to the
// stripped record when only that exists.
func (s *Store) Read(name string) ([]byte, error) {
	if data, ok := s.cache.Get(name); ok {
		return data, nil
	}
	for _, p := range []string{
		filepath.Join(s.dir, name+".contract.json"),
		filepath.Join(s.dir, name+".json"),
	} {
		data, err := os.ReadFile(p)
		if err == nil {
			s.cache.Add(name, data)
			return data, nil
		}
	}
	return nil, fmt.Errorf("artifact not found: %s", name)
}

// ReadField extracts one field from a contract's record by gjson path.
func (s *Store) ReadField(name, path string) (gjson.Result, error) {
	data, err := s.Read(name)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(data, path), nil
}

// List returns the logical contract names present in the store.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if n, ok := strings.CutSuffix(e.Name(), ".contract.json"); ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func codeHash(wasm []byte) string {
	sum := blake2b.Sum256(wasm)
	return "0x" + hex.EncodeToString(sum[:])
}
