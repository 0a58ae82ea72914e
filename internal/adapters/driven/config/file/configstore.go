package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigFileName is the name of the configuration file inside the home directory.
const ConfigFileName = "config.toml"

// DefaultDirName is used under the user's home when no directory is given.
const DefaultDirName = ".sercha-rag"

// ConfigStore reads config.toml into a flat table. Nested tables become
// dot keys on load and are rebuilt on save.
type ConfigStore struct {
	*config.Table
	path string
}

// NewConfigStore opens the store in dir, creating the directory if needed.
// An empty dir means ~/.sercha-rag.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
		dir = filepath.Join(home, DefaultDirName)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &ConfigStore{Table: config.NewTable(), path: filepath.Join(dir, ConfigFileName)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load rereads the file. A missing file is an empty config.
func (s *ConfigStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.Replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}
	flat := make(map[string]any)
	flatten(flat, "", doc)
	s.Replace(flat)
	return nil
}

// Save writes the table back as nested TOML, readable only by the owner.
func (s *ConfigStore) Save() error {
	raw, err := toml.Marshal(nest(s.Snapshot()))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.path
}

// flatten turns {"a": {"b": 1}} into {"a.b": 1}.
func flatten(dst map[string]any, prefix string, doc map[string]any) {
	for key, value := range doc {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			flatten(dst, key, table)
			continue
		}
		dst[key] = value
	}
}

// nest rebuilds tables from dot keys. When a scalar and a table claim the
// same path the table wins.
func nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		table := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := table[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				table[part] = child
			}
			table = child
		}
		leaf := parts[len(parts)-1]
		if _, isTable := table[leaf].(map[string]any); !isTable {
			table[leaf] = flat[key]
		}
	}
	return root
}
