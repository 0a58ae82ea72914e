package driving

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// SettingsService resolves infrastructure settings from configuration.
type SettingsService interface {
	// Get returns validated settings. Invalid configuration wraps domain.ErrConfig.
	Get() (*domain.Settings, error)
}
