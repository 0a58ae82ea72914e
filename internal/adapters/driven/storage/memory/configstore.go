package memory

import (
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is an in-memory config store for tests. It takes flat dot
// keys, the same shape the TOML store exposes after loading.
type ConfigStore struct {
	*config.Table
}

// NewConfigStore seeds the store with values; later maps win.
func NewConfigStore(values ...map[string]any) *ConfigStore {
	return &ConfigStore{Table: config.NewTable(values...)}
}

func (s *ConfigStore) Save() error { return nil }

func (s *ConfigStore) Load() error { return nil }

func (s *ConfigStore) Path() string { return ":memory:" }
