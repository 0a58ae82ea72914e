package driven

import "time"

// ConfigStore provides infrastructure configuration as flat dot keys,
// e.g. "sources.docs.base_url". Typed getters return the zero value when a
// key is absent or has the wrong type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool

	// GetDuration parses strings like "30s"; bare integers are seconds.
	GetDuration(key string) time.Duration

	GetStringSlice(key string) []string

	// Keys returns the immediate child names under a table key.
	Keys(prefix string) []string

	// Set stores a value in memory; Save persists it.
	Set(key string, value any) error
	Save() error

	// Load rereads the backing storage.
	Load() error

	Path() string
}
