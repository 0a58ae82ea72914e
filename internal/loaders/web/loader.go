// Package web crawls a documentation site from its navigation page.
//
// The navigation page lists every document as an a.nav-link. Each document
// page is reduced to its article.doc elements, with pagination and feedback
// widgets removed, and handed to the HTML chunker.
package web

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/loaders/fetch"
)

var _ driven.SourceLoader = (*Loader)(nil)

// Loader lists nav links and loads document pages.
type Loader struct {
	typ         string
	baseURL     string
	initialPage string
	client      *fetch.Client
}

// New creates a web loader from source settings.
func New(cfg domain.SourceSettings, opts ...fetch.Option) (*Loader, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: sources.%s.base_url is required", domain.ErrConfig, cfg.Type)
	}
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Loader{
		typ:         cfg.Type,
		baseURL:     base,
		initialPage: cfg.InitialPage,
		client:      fetch.New(cfg.RequestsPerSecond, opts...),
	}, nil
}

// Type returns the knowledge domain.
func (l *Loader) Type() string {
	return l.typ
}

// Prepare is a no-op; pages are always fetched live.
func (l *Loader) Prepare(_ context.Context, _ *zap.Logger) error {
	return nil
}

// List returns the href of every a.nav-link on the initial page, in page order.
func (l *Loader) List(ctx context.Context, log *zap.Logger) ([]string, error) {
	url := l.baseURL + l.initialPage
	log.Debug("loading navigation", zap.String("url", url))

	body, err := l.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("load navigation: %w", err)
	}
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse navigation %s: %w", url, err)
	}

	seen := make(map[string]bool)
	var sources []string
	for _, a := range findAll(root, isNavLink) {
		href := strings.TrimSpace(attr(a, "href"))
		if href == "" || strings.HasPrefix(href, "#") || seen[href] {
			continue
		}
		seen[href] = true
		sources = append(sources, href)
	}
	return sources, nil
}

// Load fetches a page and keeps only its article.doc content.
// The returned document carries the page url.
func (l *Loader) Load(ctx context.Context, log *zap.Logger, id string) (*domain.Document, error) {
	url := l.baseURL + id
	log.Debug("loading doc page", zap.String("url", url))

	body, err := l.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	content, err := extractArticle(body)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", url, err)
	}

	return &domain.Document{
		Text:     content,
		Metadata: domain.Metadata{domain.MetaURL: url},
	}, nil
}

// extractArticle renders every article.doc with its noise removed.
func extractArticle(page []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", err
	}

	articles := findAll(root, isArticle)
	if len(articles) == 0 {
		return "", fmt.Errorf("%w: no article.doc element", domain.ErrInvalidInput)
	}

	var buf bytes.Buffer
	for i, article := range articles {
		for _, n := range findAll(article, isNoise) {
			n.Parent.RemoveChild(n)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := html.Render(&buf, article); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func isNavLink(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.A && hasClass(n, "nav-link")
}

func isArticle(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Article && hasClass(n, "doc")
}

func isNoise(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	return (n.DataAtom == atom.Nav && hasClass(n, "pagination")) ||
		(n.DataAtom == atom.Div && hasClass(n, "feedback-form"))
}

// findAll collects matching descendants in document order, without
// descending into a match.
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			out = append(out, c)
			continue
		}
		out = append(out, findAll(c, match)...)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
