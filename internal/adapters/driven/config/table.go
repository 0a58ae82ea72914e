// Package config holds the flat key table behind the config stores.
// The file and memory stores only differ in where the table comes from.
package config

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrEmptyKey is returned by Set for an empty key.
var ErrEmptyKey = errors.New("config: empty key")

// Table is a concurrency-safe map of dot keys ("sources.docs.base_url") to
// decoded values. Its typed getters return the zero value on absence or
// on a type that cannot be coerced.
type Table struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewTable copies the given flat maps into a new table; later maps win.
func NewTable(seed ...map[string]any) *Table {
	t := &Table{data: make(map[string]any)}
	for _, m := range seed {
		for k, v := range m {
			t.data[k] = v
		}
	}
	return t
}

// Replace swaps the whole table for flat.
func (t *Table) Replace(flat map[string]any) {
	if flat == nil {
		flat = make(map[string]any)
	}
	t.mu.Lock()
	t.data = flat
	t.mu.Unlock()
}

// Snapshot returns a copy of the table.
func (t *Table) Snapshot() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]any, len(t.data))
	for k, v := range t.data {
		out[k] = v
	}
	return out
}

func (t *Table) Get(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.data[key]
	return v, ok
}

func (t *Table) Set(key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	t.mu.Lock()
	t.data[key] = value
	t.mu.Unlock()
	return nil
}

func (t *Table) GetString(key string) string {
	v, _ := t.Get(key)
	s, _ := v.(string)
	return s
}

func (t *Table) GetInt(key string) int {
	v, _ := t.Get(key)
	n, _ := number(v)
	return int(n)
}

func (t *Table) GetFloat(key string) float64 {
	v, _ := t.Get(key)
	n, _ := number(v)
	return n
}

func (t *Table) GetBool(key string) bool {
	v, _ := t.Get(key)
	b, _ := v.(bool)
	return b
}

// GetDuration reads "1h30m" strings and time.Duration values.
// A bare integer counts seconds.
func (t *Table) GetDuration(key string) time.Duration {
	v, _ := t.Get(key)
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0
		}
		return parsed
	}
	if n, ok := number(v); ok {
		return time.Duration(n) * time.Second
	}
	return 0
}

// GetStringSlice keeps only the string items of a decoded array.
func (t *Table) GetStringSlice(key string) []string {
	v, _ := t.Get(key)
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Keys returns the sorted child names directly under prefix:
// Keys("sources") on sources.docs.base_url and sources.trainings.loader
// is [docs trainings].
func (t *Table) Keys(prefix string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range t.data {
		rest, ok := strings.CutPrefix(key, prefix+".")
		if !ok || rest == "" {
			continue
		}
		child, _, _ := strings.Cut(rest, ".")
		seen[child] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// number widens the numeric kinds that TOML, YAML and Go literals decode to.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
