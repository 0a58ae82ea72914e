// Package gitfs loads documents from a local checkout of a git repository.
//
// A source id is the slash-separated path of a file relative to the
// checkout root. Files are selected by extension, by a language marker in
// the path, and by whitelisted and blacklisted path components.
package gitfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultPullInterval is the minimum time between two git pulls.
const DefaultPullInterval = time.Minute

var _ driven.SourceLoader = (*Loader)(nil)

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Loader walks a local git checkout.
type Loader struct {
	typ       string
	root      string
	gitURL    string
	selector  Selector
	run       CommandRunner
	pullEvery time.Duration
	debounce  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	lastPull time.Time
	watchers []*fsnotify.Watcher
	closed   bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithCommandRunner replaces the git command runner.
func WithCommandRunner(run CommandRunner) Option {
	return func(l *Loader) {
		l.run = run
	}
}

// WithPullInterval sets the minimum time between pulls. Zero pulls on every Prepare.
func WithPullInterval(d time.Duration) Option {
	return func(l *Loader) {
		l.pullEvery = d
	}
}

// WithDebounce sets how long Watch waits for the tree to settle.
func WithDebounce(d time.Duration) Option {
	return func(l *Loader) {
		l.debounce = d
	}
}

// New creates a git tree loader from source settings.
func New(cfg domain.SourceSettings, opts ...Option) (*Loader, error) {
	if cfg.LocalPath == "" {
		return nil, fmt.Errorf("%w: sources.%s.local_path is required", domain.ErrConfig, cfg.Type)
	}
	l := &Loader{
		typ:    cfg.Type,
		root:   filepath.Clean(cfg.LocalPath),
		gitURL: cfg.GitURL,
		selector: Selector{
			Extensions: cfg.Extensions,
			Markers:    cfg.Markers,
			Whitelist:  cfg.Whitelist,
			Blacklist:  cfg.Blacklist,
		},
		run:       execCommand,
		pullEvery: DefaultPullInterval,
		debounce:  DefaultDebounce,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Loader) Type() string { return l.typ }

// Root returns the checkout directory.
func (l *Loader) Root() string { return l.root }

// Prepare clones the repository when the checkout is missing, or pulls it.
// Without a git url the tree is used as is.
func (l *Loader) Prepare(ctx context.Context, log *zap.Logger) error {
	if l.gitURL == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.lastPull.IsZero() && l.now().Sub(l.lastPull) < l.pullEvery {
		return nil
	}

	if _, err := os.Stat(filepath.Join(l.root, ".git")); err != nil {
		log.Info("cloning repository", zap.String("url", l.gitURL), zap.String("path", l.root))
		if out, err := l.run(ctx, "git", "clone", l.gitURL, l.root); err != nil {
			return fmt.Errorf("git clone: %w: %s", err, strings.TrimSpace(string(out)))
		}
	} else {
		log.Info("pulling repository", zap.String("path", l.root))
		if out, err := l.run(ctx, "git", "-C", l.root, "pull", "--ff-only"); err != nil {
			return fmt.Errorf("git pull: %w: %s", err, strings.TrimSpace(string(out)))
		}
	}
	l.lastPull = l.now()
	return nil
}

// List walks the checkout and returns the selected files in lexical order.
func (l *Loader) List(_ context.Context, log *zap.Logger) ([]string, error) {
	log.Info("loading list of files", zap.String("path", l.root))

	var sources []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.root && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if l.selector.Accepts(rel) {
			sources = append(sources, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.root, err)
	}
	return sources, nil
}

// Load reads one file. A missing file is domain.ErrNotFound.
func (l *Loader) Load(_ context.Context, log *zap.Logger, id string) (*domain.Document, error) {
	path, err := l.resolve(id)
	if err != nil {
		return nil, err
	}
	log.Debug("loading file", zap.String("path", path))

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}

	return &domain.Document{Text: string(data), Metadata: domain.Metadata{}}, nil
}

// resolve maps an id to a path inside the checkout.
func (l *Loader) resolve(id string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(id))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("load %s: path escapes checkout: %w", id, domain.ErrInvalidInput)
	}
	return filepath.Join(l.root, clean), nil
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
