package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/rules"
)

// Ensure CheckRunner implements the interface.
var _ driving.CheckRunner = (*CheckRunner)(nil)

// Ensure RetrievalAnswerer implements the interface.
var _ driven.Answerer = (*RetrievalAnswerer)(nil)

// CheckRunner executes evaluation checks on a bounded worker pool.
type CheckRunner struct {
	answerer    driven.Answerer
	evaluator   driven.Evaluator
	metrics     driven.Metrics
	parallelism int
	timeout     time.Duration
	now         func() time.Time
}

// CheckRunnerOption configures a CheckRunner.
type CheckRunnerOption func(*CheckRunner)

// WithParallelism sets the number of concurrent workers.
func WithParallelism(n int) CheckRunnerOption {
	return func(r *CheckRunner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithCheckTimeout bounds each check.
func WithCheckTimeout(d time.Duration) CheckRunnerOption {
	return func(r *CheckRunner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCheckMetrics records finished checks.
func WithCheckMetrics(m driven.Metrics) CheckRunnerOption {
	return func(r *CheckRunner) {
		r.metrics = m
	}
}

// NewCheckRunner creates a check runner.
func NewCheckRunner(answerer driven.Answerer, evaluator driven.Evaluator, opts ...CheckRunnerOption) *CheckRunner {
	r := &CheckRunner{
		answerer:    answerer,
		evaluator:   evaluator,
		parallelism: 4,
		timeout:     2 * time.Minute,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes all checks. Results keep the input order.
func (r *CheckRunner) Run(ctx context.Context, log *zap.Logger, checks []domain.CheckDef) (*domain.CheckRunSummary, error) {
	log = logger.OrNop(log)
	summary := &domain.CheckRunSummary{
		Results:   make([]domain.CheckResult, len(checks)),
		StartedAt: r.now(),
	}
	log.Info(fmt.Sprintf("running %d checks", len(checks)), zap.Int("parallelism", r.parallelism))

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for idx, check := range checks {
		g.Go(func() error {
			summary.Results[idx] = r.runIsolated(ctx, log, check)
			return nil
		})
	}
	_ = g.Wait()

	var script, semantic float64
	for i := range summary.Results {
		res := &summary.Results[i]
		script += res.ScriptScore
		semantic += res.SemanticScore
		if res.Failed {
			summary.Failed++
		}
		if r.metrics != nil {
			r.metrics.CheckCompleted(res)
		}
	}
	if n := len(summary.Results); n > 0 {
		summary.ScriptScore = script / float64(n)
		summary.SemanticScore = semantic / float64(n)
	}
	summary.EndedAt = r.now()

	log.Info("checks finished",
		zap.Int("total", len(checks)),
		zap.Int("failed", summary.Failed),
		zap.Float64("scriptScore", summary.ScriptScore),
		zap.Float64("semanticScore", summary.SemanticScore))
	return summary, ctx.Err()
}

// runIsolated runs one check. Panics and errors are recorded on the result.
func (r *CheckRunner) runIsolated(ctx context.Context, base *zap.Logger, check domain.CheckDef) (result domain.CheckResult) {
	start := r.now()
	log, trace := logger.WithTrace(base.With(zap.String("check", check.ID)))

	result = domain.CheckResult{
		CheckID:   check.ID,
		Category:  check.Category,
		Question:  check.Question,
		Reference: check.ReferenceAnswer,
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("check panicked", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			result.Failed = true
			result.Error = fmt.Sprintf("panic: %v", p)
			result.ScriptScore = 0
			result.SemanticScore = 0
		}
		result.Log = trace.Lines()
		result.Duration = r.now().Sub(start)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.runOne(ctx, log, check, &result); err != nil {
		log.Warn("check failed", zap.Error(err))
		result.Failed = true
		result.Error = err.Error()
		result.ScriptScore = 0
		result.SemanticScore = 0
	}
	return result
}

func (r *CheckRunner) runOne(ctx context.Context, log *zap.Logger, check domain.CheckDef, result *domain.CheckResult) error {
	// 1. ANSWER
	answer, err := r.answerer.Answer(ctx, log, check.Question)
	if err != nil {
		return fmt.Errorf("answer question: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("answer question: %w", err)
	}
	result.Answer = answer

	// 2. SCRIPT SCORE
	script, failures, err := rules.ScoreCheck(check, answer)
	if err != nil {
		return fmt.Errorf("score expectations: %w", err)
	}
	for _, f := range failures {
		log.Info("expectation failed: " + f)
	}
	result.ScriptScore = script

	// 3. SEMANTIC SCORE
	if check.ReferenceAnswer != "" && r.evaluator != nil {
		semantic, err := r.evaluator.EvaluateSemantic(ctx, log, check.ReferenceAnswer, answer)
		if err != nil {
			return fmt.Errorf("evaluate answer: %w", err)
		}
		result.SemanticScore = semantic
	}

	log.Info("check finished",
		zap.Float64("scriptScore", result.ScriptScore),
		zap.Float64("semanticScore", result.SemanticScore))
	return nil
}

// RetrievalAnswerer answers a question with the top retrieved passages.
type RetrievalAnswerer struct {
	retrieval driving.RetrievalService
	params    *domain.Parameters
	maxDocs   int

	mu sync.Mutex
}

// NewRetrievalAnswerer creates an answerer that joins the top maxDocs passages.
func NewRetrievalAnswerer(retrieval driving.RetrievalService, params *domain.Parameters, maxDocs int) *RetrievalAnswerer {
	if maxDocs <= 0 {
		maxDocs = 3
	}
	return &RetrievalAnswerer{retrieval: retrieval, params: params, maxDocs: maxDocs}
}

// SetParameters replaces the parameters used for subsequent answers.
func (a *RetrievalAnswerer) SetParameters(params *domain.Parameters) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.params = params
}

// Answer implements driven.Answerer.
func (a *RetrievalAnswerer) Answer(ctx context.Context, log *zap.Logger, question string) (string, error) {
	a.mu.Lock()
	params := a.params
	a.mu.Unlock()

	res, err := a.retrieval.Search(ctx, log, question, domain.SearchOptions{Params: params})
	if err != nil {
		return "", err
	}
	docs := res.Documents
	if len(docs) > a.maxDocs {
		docs = docs[:a.maxDocs]
	}
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Text
	}
	return strings.Join(texts, "\n\n"), nil
}
