// Package hugot provides an in-process embedding service running a
// sentence-transformer ONNX model with the pure Go hugot backend.
package hugot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	hg "github.com/knights-analytics/hugot"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel     = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultOnnxFile  = "onnx/model.onnx"
	DefaultBatchSize = 16
	pipelineName     = "sercha-rag-embedder"
)

// Config holds configuration for the hugot embedding service.
type Config struct {
	// Model is the Hugging Face model name (default: all-MiniLM-L6-v2).
	Model string

	// ModelDir holds downloaded models (default: ~/.sercha-rag/models).
	ModelDir string

	// BatchSize caps the texts run through the pipeline at once.
	BatchSize int
}

type runFunc func(texts []string) ([][]float32, error)

// EmbeddingService generates embeddings in process.
type EmbeddingService struct {
	mu         sync.Mutex
	run        runFunc
	destroy    func() error
	model      string
	dimensions int
	batchSize  int
}

// NewEmbeddingService downloads the model when missing, starts a Go session
// and probes the output dimensions.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.ModelDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		cfg.ModelDir = filepath.Join(home, ".sercha-rag", "models")
	}

	modelPath, err := prepareModel(cfg.Model, cfg.ModelDir)
	if err != nil {
		return nil, err
	}

	session, err := hg.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("create hugot session: %w", err)
	}
	pipeline, err := hg.NewPipeline(session, hg.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      pipelineName,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create feature extraction pipeline: %w", err), session.Destroy())
	}

	run := func(texts []string) ([][]float32, error) {
		out, err := pipeline.RunPipeline(texts)
		if err != nil {
			return nil, err
		}
		return out.Embeddings, nil
	}
	return newService(cfg, run, session.Destroy)
}

func newService(cfg Config, run runFunc, destroy func() error) (*EmbeddingService, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	s := &EmbeddingService{
		run:       run,
		destroy:   destroy,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
	}

	probe, err := s.Embed(context.Background(), "dimension probe")
	if err != nil {
		return nil, errors.Join(fmt.Errorf("probe model %s: %w", cfg.Model, err), s.Close())
	}
	s.dimensions = len(probe)
	return s, nil
}

// prepareModel returns the local model directory, downloading it on first use.
func prepareModel(model, dir string) (string, error) {
	path := filepath.Join(dir, strings.ReplaceAll(model, "/", "_"))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}
	opts := hg.NewDownloadOptions()
	opts.OnnxFilePath = DefaultOnnxFile
	downloaded, err := hg.DownloadModel(model, dir, opts)
	if err != nil {
		return "", fmt.Errorf("%w: download model %s: %w", domain.ErrEmbeddingUnavailable, model, err)
	}
	return downloaded, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch runs the pipeline over texts in chunks of BatchSize.
// The context is checked between chunks; a running chunk is not interrupted.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+s.batchSize, len(texts))
		batch, err := s.run(texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("run pipeline: %w", err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("pipeline returned %d embeddings for %d texts", len(batch), end-start)
		}
		out = append(out, batch...)
	}
	return out, nil
}

// Dimensions returns the probed embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the Hugging Face model name.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping always succeeds once the model is loaded.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close destroys the hugot session.
func (s *EmbeddingService) Close() error {
	if s.destroy == nil {
		return nil
	}
	err := s.destroy()
	s.destroy = nil
	return err
}
