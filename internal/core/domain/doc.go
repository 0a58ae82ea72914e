// Package domain defines the core business entities for sercha-rag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A stored or retrieved passage with metadata and score
//   - Chunk: A retrieval-sized excerpt produced by a chunker
//   - SourceRecord: Persisted bookkeeping of what was last ingested
//   - RerankResult: A transient second-pass relevance score
//   - Parameters: Dot-path reader over retrieval tuning parameters
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
