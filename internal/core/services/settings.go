package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyStoreBackend     = "store.backend"
	keyStoreDSN         = "store.dsn"
	keyStoreDims        = "store.dimensions"
	keyStoreDataDir     = "store.data_dir"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedModel       = "embedding.model"
	keyEmbedModelDir    = "embedding.model_dir"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedCacheAddr   = "embedding.cache.redis_addr"
	keyEmbedCacheTTL    = "embedding.cache.ttl"
	keyRerankerEnabled  = "reranker.enabled"
	keyRerankerURL      = "reranker.url"
	keyRerankerTimeout  = "reranker.timeout"
	keyChecksParallel   = "checks.parallelism"
	keyChecksTimeout    = "checks.timeout"
	keySchedulerEvery   = "scheduler.interval"
	keyMetricsAddr      = "metrics.addr"
	keySourcesPrefix    = "sources"
	envDSN              = "SERCHA_RAG_DSN"
	envGitHubToken      = "GITHUB_TOKEN"
	envRerankerURL      = "SERCHA_RAG_RERANKER_URL"
	envEmbeddingBaseURL = "SERCHA_RAG_EMBEDDING_URL"
	envOpenAIKey        = "OPENAI_API_KEY"
)

// sourceDefaults holds per-domain defaults for the built-in knowledge domains.
var sourceDefaults = map[string]domain.SourceSettings{
	"docs": {
		Loader:                 domain.LoaderWeb,
		Chunker:                domain.ChunkerHTML,
		MaxChunkSize:           20000,
		MinDocPreambleSize:     400,
		MinSectionPreambleSize: 300,
		RequestsPerSecond:      5,
	},
	"trainings": {
		Loader:       domain.LoaderGitFS,
		Chunker:      domain.ChunkerAsciiDoc,
		MaxChunkSize: 10000,
		MinChunkSize: 300,
		Extensions:   []string{".adoc"},
		Markers:      []string{"_EN", "-EN"},
	},
	"uisamples": {
		Loader:            domain.LoaderCatalog,
		Chunker:           domain.ChunkerWhole,
		MaxChunkSize:      10000,
		RequestsPerSecond: 5,
	},
}

// SettingsService resolves settings from the config store and environment.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore, getenv: os.Getenv}
}

// Get builds settings from defaults, the config file and the environment.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.DefaultSettings()

	// 1. STORE
	settings.Store.Backend = domain.StoreBackend(s.getString(keyStoreBackend, string(settings.Store.Backend)))
	settings.Store.DSN = s.env(envDSN, s.configStore.GetString(keyStoreDSN))
	settings.Store.Dimensions = s.getInt(keyStoreDims, settings.Store.Dimensions)
	settings.Store.DataDir = s.configStore.GetString(keyStoreDataDir)

	// 2. EMBEDDING
	settings.Embedding.Provider = domain.EmbeddingProvider(
		s.getString(keyEmbedProvider, string(settings.Embedding.Provider)))
	if settings.Embedding.Provider != domain.EmbeddingOllama {
		// The built-in URL and model belong to Ollama; other providers use their own defaults.
		settings.Embedding.BaseURL, settings.Embedding.Model = "", ""
	}
	settings.Embedding.BaseURL = s.env(envEmbeddingBaseURL, s.getString(keyEmbedBaseURL, settings.Embedding.BaseURL))
	settings.Embedding.Model = s.getString(keyEmbedModel, settings.Embedding.Model)
	settings.Embedding.ModelDir = s.configStore.GetString(keyEmbedModelDir)
	settings.Embedding.APIKey = s.env(envOpenAIKey, s.configStore.GetString(keyEmbedAPIKey))
	settings.Embedding.CacheRedisAddr = s.configStore.GetString(keyEmbedCacheAddr)
	if d := s.configStore.GetDuration(keyEmbedCacheTTL); d > 0 {
		settings.Embedding.CacheTTL = d
	}

	// 3. RERANKER
	if _, ok := s.configStore.Get(keyRerankerEnabled); ok {
		settings.Reranker.Enabled = s.configStore.GetBool(keyRerankerEnabled)
	}
	settings.Reranker.URL = s.env(envRerankerURL, s.getString(keyRerankerURL, settings.Reranker.URL))
	if d := s.configStore.GetDuration(keyRerankerTimeout); d > 0 {
		settings.Reranker.Timeout = d
	}

	// 4. CHECKS, SCHEDULER, METRICS
	settings.Checks.Parallelism = s.getInt(keyChecksParallel, settings.Checks.Parallelism)
	if d := s.configStore.GetDuration(keyChecksTimeout); d > 0 {
		settings.Checks.Timeout = d
	}
	settings.SchedulerInterval = s.configStore.GetDuration(keySchedulerEvery)
	settings.MetricsAddr = s.configStore.GetString(keyMetricsAddr)

	// 5. SOURCES
	for _, typ := range s.configStore.Keys(keySourcesPrefix) {
		settings.Sources = append(settings.Sources, s.source(typ))
	}
	sort.Slice(settings.Sources, func(i, j int) bool {
		return settings.Sources[i].Type < settings.Sources[j].Type
	})

	if err := ValidateSettings(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *SettingsService) source(typ string) domain.SourceSettings {
	src := sourceDefaults[typ]
	src.Type = typ
	key := func(name string) string { return keySourcesPrefix + "." + typ + "." + name }

	src.Loader = domain.LoaderKind(s.getString(key("loader"), string(src.Loader)))
	src.Chunker = domain.ChunkerKind(s.getString(key("chunker"), string(src.Chunker)))
	src.Limit = s.getInt(key("limit"), src.Limit)

	src.BaseURL = strings.TrimSuffix(s.configStore.GetString(key("base_url")), "/")
	src.InitialPage = s.configStore.GetString(key("initial_page"))
	src.DocPath = s.configStore.GetString(key("doc_path"))
	src.SamplePath = s.configStore.GetString(key("sample_path"))
	if f := s.configStore.GetFloat(key("requests_per_second")); f > 0 {
		src.RequestsPerSecond = f
	}

	src.LocalPath = s.configStore.GetString(key("local_path"))
	src.GitURL = s.configStore.GetString(key("git_url"))
	src.Owner = s.configStore.GetString(key("owner"))
	src.Repo = s.configStore.GetString(key("repo"))
	src.Ref = s.configStore.GetString(key("ref"))
	src.Path = s.configStore.GetString(key("path"))
	src.Token = s.env(envGitHubToken, s.configStore.GetString(key("token")))
	src.Extensions = s.getStrings(key("extensions"), src.Extensions)
	src.Markers = s.getStrings(key("markers"), src.Markers)
	src.Whitelist = s.getStrings(key("whitelist"), src.Whitelist)
	src.Blacklist = s.getStrings(key("blacklist"), src.Blacklist)

	src.MaxChunkSize = s.getInt(key("max_chunk_size"), src.MaxChunkSize)
	src.MinChunkSize = s.getInt(key("min_chunk_size"), src.MinChunkSize)
	src.MinDocPreambleSize = s.getInt(key("min_doc_preamble_size"), src.MinDocPreambleSize)
	src.MinSectionPreambleSize = s.getInt(key("min_section_preamble_size"), src.MinSectionPreambleSize)
	return src
}

// ValidateSettings checks settings for values that would fail at runtime.
//
//nolint:gocognit // one check per field
func ValidateSettings(s *domain.Settings) error {
	if !s.Store.Backend.IsValid() {
		return fmt.Errorf("%w: unknown store backend %q", domain.ErrConfig, s.Store.Backend)
	}
	if s.Store.Backend == domain.StorePgvector && s.Store.DSN == "" {
		return fmt.Errorf("%w: %s requires %s or %s", domain.ErrConfig, s.Store.Backend, keyStoreDSN, envDSN)
	}
	if s.Store.Dimensions <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrConfig, keyStoreDims)
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfig, s.Embedding.Provider)
	}
	if s.Embedding.Provider == domain.EmbeddingOpenAI && s.Embedding.APIKey == "" {
		return fmt.Errorf("%w: %s requires %s or %s", domain.ErrConfig, s.Embedding.Provider, keyEmbedAPIKey, envOpenAIKey)
	}
	if s.Reranker.Enabled && s.Reranker.URL == "" {
		return fmt.Errorf("%w: %s is required when the reranker is enabled", domain.ErrConfig, keyRerankerURL)
	}
	if s.Checks.Parallelism <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrConfig, keyChecksParallel)
	}

	for _, src := range s.Sources {
		if err := validateSource(src); err != nil {
			return err
		}
	}
	return nil
}

func validateSource(src domain.SourceSettings) error {
	if !src.Loader.IsValid() {
		return fmt.Errorf("%w: source %s: unknown loader %q", domain.ErrConfig, src.Type, src.Loader)
	}
	if !src.Chunker.IsValid() {
		return fmt.Errorf("%w: source %s: unknown chunker %q", domain.ErrConfig, src.Type, src.Chunker)
	}
	if src.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: source %s: max_chunk_size must be positive", domain.ErrConfig, src.Type)
	}

	switch src.Loader {
	case domain.LoaderWeb, domain.LoaderCatalog:
		if src.BaseURL == "" {
			return fmt.Errorf("%w: source %s: base_url is required", domain.ErrConfig, src.Type)
		}
		if src.Loader == domain.LoaderCatalog && src.DocPath == "" {
			return fmt.Errorf("%w: source %s: doc_path is required", domain.ErrConfig, src.Type)
		}
	case domain.LoaderGitFS:
		if src.LocalPath == "" {
			return fmt.Errorf("%w: source %s: local_path is required", domain.ErrConfig, src.Type)
		}
	case domain.LoaderGitHub:
		if src.Owner == "" || src.Repo == "" {
			return fmt.Errorf("%w: source %s: owner and repo are required", domain.ErrConfig, src.Type)
		}
	}
	return nil
}

func (s *SettingsService) env(name, fallback string) string {
	if v := s.getenv(name); v != "" {
		return v
	}
	return fallback
}

func (s *SettingsService) getString(key, def string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return def
}

func (s *SettingsService) getInt(key string, def int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return def
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getStrings(key string, def []string) []string {
	if v := s.configStore.GetStringSlice(key); v != nil {
		return v
	}
	return def
}
