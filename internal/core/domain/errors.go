package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Source loaders return it when a source identifier no longer resolves.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates missing or invalid configuration.
	// Configuration errors are fatal at startup, never per request.
	ErrConfig = errors.New("invalid configuration")

	// ErrUnknownType indicates a knowledge domain with no registered ingester or tool.
	ErrUnknownType = errors.New("unknown type")

	// ErrUnsupported indicates an unknown loader, chunker or backend name.
	ErrUnsupported = errors.New("unsupported")

	// ErrRerankUnavailable indicates the reranking service failed or timed out.
	// Callers fall back to similarity-score filtering.
	ErrRerankUnavailable = errors.New("reranker unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIngestInProgress indicates an ingestion run for the type is already running.
	ErrIngestInProgress = errors.New("ingestion in progress")

	// ErrRuleEvaluation indicates a filter rule could not be evaluated.
	// Rule errors fail open.
	ErrRuleEvaluation = errors.New("rule evaluation failed")
)
