// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - VectorStore: Chunk persistence and similarity search (sqlite, pgvector, memory)
//   - SourceLoader: Lists and loads raw sources (web, git tree, REST catalog)
//   - Chunker: Splits a loaded source into retrieval-sized chunks
//   - EmbeddingService: Generates vector embeddings for the stores
//   - ConfigStore: Application configuration
//   - SchedulerStore: Scheduled task state for serve mode
//   - Answerer, Evaluator: Produce and score answers for checks
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Reranker: Second-pass scoring. Without it, retrieval filters by minScore.
//   - Replacer: Transactional replace. Without it, ingestion deletes then adds.
//   - Metrics: Operational counters. Without it, nothing is recorded.
//
// # Import Rules
//
//   - Can Import: domain package and go.uber.org/zap
//   - Cannot Import: Any adapter, loader, or chunker package
package driven
