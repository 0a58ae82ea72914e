package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Metadata keys written by ingestion and read by retrieval.
const (
	MetaType        = "type"
	MetaSource      = "source"
	MetaSourceHash  = "sourceHash"
	MetaSize        = "size"
	MetaUpdated     = "updated"
	MetaURL         = "url"
	MetaDocURL      = "docUrl"
	MetaRerankScore = "rerankScore"
)

// UpdatedLayout is the timestamp layout used for the updated metadata key.
const UpdatedLayout = "2006-01-02T15:04:05"

// Metadata holds scalar key-value pairs attached to a document.
type Metadata map[string]any

// String returns the value for key rendered as a string.
// Returns empty string if the key doesn't exist.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Float returns the value for key as a float64.
func (m Metadata) Float(key string) (float64, bool) {
	switch t := m[key].(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// Keys returns the metadata keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy without nil keys or values.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		if k == "" || v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// Document is a passage held by, or retrieved from, the vector store.
type Document struct {
	// ID is assigned at creation and never changes.
	ID string

	// Text is the passage content that gets embedded.
	Text string

	// Metadata describes provenance (type, source, hash, url).
	Metadata Metadata

	// Score is the similarity assigned by the vector store at query time.
	// Nil for documents that did not come from a similarity search.
	Score *float64
}

// Type returns the knowledge domain the document belongs to.
func (d *Document) Type() string { return d.Metadata.String(MetaType) }

// Source returns the opaque source identifier the document was loaded from.
func (d *Document) Source() string { return d.Metadata.String(MetaSource) }

// SourceHash returns the content fingerprint recorded at ingestion.
func (d *Document) SourceHash() string { return d.Metadata.String(MetaSourceHash) }

// URLOrSource returns the url metadata, falling back to the source.
func (d *Document) URLOrSource() string {
	if u := d.Metadata.String(MetaURL); u != "" {
		return u
	}
	return d.Source()
}

// RerankScore returns the reranker score when one was attached.
func (d *Document) RerankScore() (float64, bool) {
	if d.Metadata == nil {
		return 0, false
	}
	return d.Metadata.Float(MetaRerankScore)
}

// SetRerankScore attaches a reranker score to the document metadata.
func (d *Document) SetRerankScore(score float64) {
	if d.Metadata == nil {
		d.Metadata = Metadata{}
	}
	d.Metadata[MetaRerankScore] = score
}

// Chunk is a retrieval-sized excerpt of one source document.
type Chunk struct {
	// Text is the chunk body, prefixed with its heading line.
	Text string

	// Anchor locates the chunk within its source (e.g. "#_section").
	// Empty when the chunk has no deep-linkable subsection.
	Anchor string
}

// SourceRecord is the persisted bookkeeping for one stored chunk.
// All records sharing a (Type, Source) pair carry the same SourceHash.
type SourceRecord struct {
	ID         string
	Type       string
	Source     string
	SourceHash string
	URL        string
}

// Filter is an equality/AND predicate over the type and source metadata.
// Empty fields do not constrain.
type Filter struct {
	Type   string
	Source string
}

// Matches reports whether the metadata satisfies the filter.
func (f Filter) Matches(m Metadata) bool {
	if f.Type != "" && m.String(MetaType) != f.Type {
		return false
	}
	if f.Source != "" && m.String(MetaSource) != f.Source {
		return false
	}
	return true
}

// String renders the filter as an expression for logs.
func (f Filter) String() string {
	var parts []string
	if f.Type != "" {
		parts = append(parts, fmt.Sprintf("type == '%s'", f.Type))
	}
	if f.Source != "" {
		parts = append(parts, fmt.Sprintf("source == '%s'", f.Source))
	}
	if len(parts) == 0 {
		return "true"
	}
	return strings.Join(parts, " && ")
}

// RerankResult pairs a document with its reranker relevance score.
// Scores are in an open range and are never persisted.
type RerankResult struct {
	Document *Document
	Score    float64
}
