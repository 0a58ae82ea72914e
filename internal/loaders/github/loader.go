// Package github loads documents straight from a GitHub repository tree,
// without a local checkout. It selects files the same way as the gitfs
// loader and reads each one through the contents API.
package github

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/loaders/gitfs"
)

var _ driven.SourceLoader = (*Loader)(nil)

// Loader lists and reads files of one repository.
type Loader struct {
	typ      string
	owner    string
	repo     string
	prefix   string
	selector gitfs.Selector
	client   *Client

	mu  sync.Mutex
	ref string
}

// New creates a GitHub tree loader. A nil client builds one from cfg.Token.
func New(ctx context.Context, cfg domain.SourceSettings, client *Client) (*Loader, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("%w: sources.%s needs owner and repo", domain.ErrConfig, cfg.Type)
	}
	if client == nil {
		client = NewClient(ctx, cfg.Token, cfg.RequestsPerSecond)
	}

	prefix := strings.Trim(cfg.Path, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Loader{
		typ:    cfg.Type,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		prefix: prefix,
		selector: gitfs.Selector{
			Extensions: cfg.Extensions,
			Markers:    cfg.Markers,
			Whitelist:  cfg.Whitelist,
			Blacklist:  cfg.Blacklist,
		},
		client: client,
		ref:    cfg.Ref,
	}, nil
}

func (l *Loader) Type() string { return l.typ }

// Prepare resolves the default branch when no ref is configured.
func (l *Loader) Prepare(ctx context.Context, log *zap.Logger) error {
	_, err := l.resolveRef(ctx, log)
	return err
}

// List returns the selected paths under the configured directory, relative to it.
func (l *Loader) List(ctx context.Context, log *zap.Logger) ([]string, error) {
	ref, err := l.resolveRef(ctx, log)
	if err != nil {
		return nil, err
	}
	log.Info("loading repository tree",
		zap.String("repo", l.owner+"/"+l.repo), zap.String("ref", ref))

	paths, err := l.client.TreePaths(ctx, l.owner, l.repo, ref)
	if err != nil {
		return nil, err
	}

	var sources []string
	for _, p := range paths {
		if !strings.HasPrefix(p, l.prefix) {
			continue
		}
		rel := strings.TrimPrefix(p, l.prefix)
		if l.selector.Accepts(rel) {
			sources = append(sources, rel)
		}
	}
	return sources, nil
}

// Load reads one file. The metadata url is the file's page on GitHub.
func (l *Loader) Load(ctx context.Context, log *zap.Logger, id string) (*domain.Document, error) {
	ref, err := l.resolveRef(ctx, log)
	if err != nil {
		return nil, err
	}
	path := l.prefix + id
	log.Debug("loading file", zap.String("path", path))

	text, err := l.client.FileContent(ctx, l.owner, l.repo, path, ref)
	if err != nil {
		return nil, err
	}

	return &domain.Document{
		Text: text,
		Metadata: domain.Metadata{
			domain.MetaURL: fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", l.owner, l.repo, ref, path),
		},
	}, nil
}

func (l *Loader) resolveRef(ctx context.Context, log *zap.Logger) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ref != "" {
		return l.ref, nil
	}

	branch, err := l.client.DefaultBranch(ctx, l.owner, l.repo)
	if err != nil {
		return "", fmt.Errorf("resolve default branch: %w", err)
	}
	log.Debug("using default branch", zap.String("ref", branch))
	l.ref = branch
	return branch, nil
}
