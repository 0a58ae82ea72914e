package domain

import "time"

const unknownDescription = "Unknown"

// StoreBackend selects the vector store implementation.
type StoreBackend string

// Available store backends.
const (
	// StoreSQLite keeps chunks and embeddings in a local SQLite file.
	StoreSQLite StoreBackend = "sqlite"

	// StorePgvector uses PostgreSQL with the pgvector extension.
	StorePgvector StoreBackend = "pgvector"

	// StoreMemory keeps everything in process. Used by tests and dry runs.
	StoreMemory StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreSQLite, StorePgvector, StoreMemory:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreSQLite:
		return "SQLite (local file)"
	case StorePgvector:
		return "PostgreSQL + pgvector"
	case StoreMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// EmbeddingProvider identifies where embeddings are computed.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingOllama calls a local or remote Ollama instance.
	EmbeddingOllama EmbeddingProvider = "ollama"

	// EmbeddingHugot runs a sentence-transformer model in process.
	EmbeddingHugot EmbeddingProvider = "hugot"

	// EmbeddingOpenAI calls an OpenAI-compatible /embeddings endpoint.
	EmbeddingOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingOllama, EmbeddingHugot, EmbeddingOpenAI:
		return true
	default:
		return false
	}
}

// LoaderKind identifies a source loader implementation.
type LoaderKind string

// Available loaders.
const (
	LoaderWeb     LoaderKind = "web"
	LoaderGitFS   LoaderKind = "gitfs"
	LoaderGitHub  LoaderKind = "github"
	LoaderCatalog LoaderKind = "catalog"
)

// IsValid returns true if the loader is recognised.
func (k LoaderKind) IsValid() bool {
	switch k {
	case LoaderWeb, LoaderGitFS, LoaderGitHub, LoaderCatalog:
		return true
	default:
		return false
	}
}

// ChunkerKind identifies a chunker implementation.
type ChunkerKind string

// Available chunkers.
const (
	ChunkerHTML     ChunkerKind = "html"
	ChunkerAsciiDoc ChunkerKind = "asciidoc"
	ChunkerWhole    ChunkerKind = "whole"
)

// IsValid returns true if the chunker is recognised.
func (k ChunkerKind) IsValid() bool {
	switch k {
	case ChunkerHTML, ChunkerAsciiDoc, ChunkerWhole:
		return true
	default:
		return false
	}
}

// StoreSettings configures the vector store.
type StoreSettings struct {
	Backend    StoreBackend
	DSN        string
	Dimensions int
	DataDir    string
}

// EmbeddingSettings configures the embedding service.
type EmbeddingSettings struct {
	Provider EmbeddingProvider
	BaseURL  string
	Model    string
	ModelDir string
	APIKey   string

	// CacheRedisAddr enables the Redis embedding cache when set.
	CacheRedisAddr string
	CacheTTL       time.Duration
}

// RerankerSettings configures the HTTP reranking service.
type RerankerSettings struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

// SourceSettings configures ingestion for one knowledge domain.
type SourceSettings struct {
	Type    string
	Loader  LoaderKind
	Chunker ChunkerKind

	// Limit caps the number of sources per run. Zero means all.
	Limit int

	// Web crawl and REST catalog.
	BaseURL           string
	InitialPage       string
	DocPath           string
	SamplePath        string
	RequestsPerSecond float64

	// Git-backed file trees.
	LocalPath  string
	GitURL     string
	Owner      string
	Repo       string
	Ref        string
	Path       string
	Token      string
	Extensions []string
	Markers    []string
	Whitelist  []string
	Blacklist  []string

	// Chunker bounds.
	MaxChunkSize           int
	MinChunkSize           int
	MinDocPreambleSize     int
	MinSectionPreambleSize int
}

// CheckSettings configures the bulk check runner.
type CheckSettings struct {
	Parallelism int
	Timeout     time.Duration
}

// Settings is the complete infrastructure configuration.
type Settings struct {
	Store     StoreSettings
	Embedding EmbeddingSettings
	Reranker  RerankerSettings

	// Sources is ordered by type name.
	Sources []SourceSettings

	Checks            CheckSettings
	SchedulerInterval time.Duration
	MetricsAddr       string
}

// Source returns the settings for the given type.
func (s *Settings) Source(typ string) (SourceSettings, bool) {
	for _, src := range s.Sources {
		if src.Type == typ {
			return src, true
		}
	}
	return SourceSettings{}, false
}

// DefaultSettings returns settings for a local, single-user setup.
func DefaultSettings() Settings {
	return Settings{
		Store: StoreSettings{
			Backend:    StoreSQLite,
			Dimensions: 768,
		},
		Embedding: EmbeddingSettings{
			Provider: EmbeddingOllama,
			BaseURL:  "http://localhost:11434",
			Model:    "nomic-embed-text",
			CacheTTL: 24 * time.Hour,
		},
		Reranker: RerankerSettings{
			Enabled: true,
			URL:     "http://localhost:8000/rerank",
			Timeout: 10 * time.Second,
		},
		Checks: CheckSettings{
			Parallelism: 4,
			Timeout:     2 * time.Minute,
		},
	}
}
