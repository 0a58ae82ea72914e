package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Parameters is a read-only view over a nested parameters document.
// Keys use dot notation, e.g. "tools.docs.topK".
type Parameters struct {
	root map[string]any
}

// NewParameters wraps a decoded parameters document.
func NewParameters(root map[string]any) *Parameters {
	if root == nil {
		root = map[string]any{}
	}
	return &Parameters{root: root}
}

// Value returns the raw value at key, or nil if the path does not resolve.
func (p *Parameters) Value(key string) any {
	if p == nil || key == "" {
		return nil
	}
	parts := strings.Split(key, ".")
	current := p.root
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return nil
		}
		if i == len(parts)-1 {
			return v
		}
		next, ok := asMap(v)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// Has reports whether the key resolves to a value.
func (p *Parameters) Has(key string) bool {
	return p.Value(key) != nil
}

// String returns the value at key or def when absent.
func (p *Parameters) String(key, def string) string {
	v := p.Value(key)
	if v == nil {
		return def
	}
	return fmt.Sprint(v)
}

// Int returns the value at key or def when absent or not numeric.
func (p *Parameters) Int(key string, def int) int {
	switch t := p.Value(key).(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return def
}

// Float returns the value at key or def when absent or not numeric.
func (p *Parameters) Float(key string, def float64) float64 {
	switch t := p.Value(key).(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns the value at key or def when absent.
func (p *Parameters) Bool(key string, def bool) bool {
	switch t := p.Value(key).(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
	}
	return def
}

// List returns the list of maps at key, or nil.
func (p *Parameters) List(key string) []map[string]any {
	raw, ok := p.Value(key).([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := asMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}

// Keys returns the sorted child keys under a map-valued key.
func (p *Parameters) Keys(key string) []string {
	m, ok := asMap(p.Value(key))
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToolSettings reads the settings for one tool under "tools.<name>".
// Missing topK or similarityThreshold is a configuration error.
func (p *Parameters) ToolSettings(name, typ string) (ToolSettings, error) {
	root := "tools." + name
	if !p.Has(root + ".topK") {
		return ToolSettings{}, fmt.Errorf("%s.topK is required: %w", root, ErrConfig)
	}
	if !p.Has(root + ".similarityThreshold") {
		return ToolSettings{}, fmt.Errorf("%s.similarityThreshold is required: %w", root, ErrConfig)
	}
	ts := ToolSettings{
		Name:                name,
		Type:                p.String(root+".type", typ),
		Enabled:             p.Bool(root+".enabled", true),
		Description:         p.String(root+".description", ""),
		SimilarityThreshold: p.Float(root+".similarityThreshold", 0),
		TopK:                p.Int(root+".topK", 0),
		MinScore:            p.Float(root+".minScore", 0),
		MinRerankedScore:    p.Float(root+".minRerankedScore", 0),
		NoResultsMessage:    p.String(root+".noResultsMessage", DefaultNoResultsMessage),
	}
	ts.TopReranked = p.Int(root+".topReranked", ts.TopK)
	if ts.TopK <= 0 {
		return ToolSettings{}, fmt.Errorf("%s.topK must be positive: %w", root, ErrConfig)
	}
	return ts, nil
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Metadata:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}
