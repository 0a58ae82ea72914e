// Package sqlite provides a local vector store on a single SQLite file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. One database holds two concerns:
//
//   - Store: chunk documents, their metadata and float32 embeddings
//   - SchedulerStore: serve-mode task state and run history
//
// # Search
//
// Candidates are narrowed by the indexed type and source columns, then ranked
// by cosine similarity in process. This suits corpora of tens of thousands of
// chunks; use the pgvector backend beyond that.
//
// # Schema
//
// Versioned migrations live in migrations/ as .up.sql and .down.sql pairs.
// Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-rag/data/vectors.db
package sqlite
