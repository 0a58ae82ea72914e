// Package loaders builds the source loader configured for each knowledge domain.
//
// Supported loaders:
//   - web: crawls a.nav-link pages of a documentation site
//   - gitfs: walks a local git checkout, cloning or pulling it first
//   - github: reads a repository tree through the GitHub API
//   - catalog: reads a JSON id list and per-id documents from a REST API
package loaders

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/loaders/catalog"
	"github.com/custodia-labs/sercha-rag/internal/loaders/gitfs"
	"github.com/custodia-labs/sercha-rag/internal/loaders/github"
	"github.com/custodia-labs/sercha-rag/internal/loaders/web"
)

// Build creates the loader named by cfg.Loader.
func Build(ctx context.Context, cfg domain.SourceSettings) (driven.SourceLoader, error) {
	var (
		loader driven.SourceLoader
		err    error
	)
	switch cfg.Loader {
	case domain.LoaderWeb:
		loader, err = nonNil(web.New(cfg))
	case domain.LoaderGitFS:
		loader, err = nonNil(gitfs.New(cfg))
	case domain.LoaderGitHub:
		loader, err = nonNil(github.New(ctx, cfg, nil))
	case domain.LoaderCatalog:
		loader, err = nonNil(catalog.New(cfg))
	default:
		return nil, fmt.Errorf("%w: unknown loader %q for %s", domain.ErrConfig, cfg.Loader, cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return loader, nil
}

// nonNil keeps a failed constructor's typed nil out of the interface.
func nonNil[T driven.SourceLoader](l T, err error) (driven.SourceLoader, error) {
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Watcher is implemented by loaders that can report changed sources.
type Watcher interface {
	Watch(ctx context.Context, log *zap.Logger) (<-chan string, error)
	Close() error
}

var _ Watcher = (*gitfs.Loader)(nil)
