package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/vector"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "vectors.db"

// Ensure Store implements the interfaces.
var (
	_ driven.VectorStore = (*Store)(nil)
	_ driven.Replacer    = (*Store)(nil)
)

// Store is a SQLite-backed vector store. Embeddings are stored as float32
// blobs and ranked in process.
type Store struct {
	db       *sql.DB
	path     string
	embedder driven.EmbeddingService
}

// NewStore creates a store in dataDir, running pending migrations.
// If dataDir is empty, defaults to ~/.sercha-rag/data.
func NewStore(dataDir string, embedder driven.EmbeddingService) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-rag", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath, embedder: embedder}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SchedulerStore returns a SchedulerStore backed by this database.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{db: s.db}
}

// Add embeds and stores documents in one transaction.
func (s *Store) Add(ctx context.Context, docs []domain.Document) error {
	return s.Replace(ctx, nil, docs)
}

// Replace deletes the filtered documents and adds docs in one transaction.
// Embedding happens before the transaction opens.
func (s *Store) Replace(ctx context.Context, deletes []domain.Filter, docs []domain.Document) error {
	embeddings, err := s.embed(ctx, docs)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, f := range deletes {
		where, args := whereClause(f)
		if _, err := tx.ExecContext(ctx, "DELETE FROM vector_store"+where, args...); err != nil {
			return fmt.Errorf("delete %s: %w", f, err)
		}
	}

	if len(docs) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO vector_store (id, type, source, source_hash, url, content, metadata, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				type = excluded.type,
				source = excluded.source,
				source_hash = excluded.source_hash,
				url = excluded.url,
				content = excluded.content,
				metadata = excluded.metadata,
				embedding = excluded.embedding
		`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := range docs {
			d := &docs[i]
			meta, err := json.Marshal(d.Metadata.Clone())
			if err != nil {
				return fmt.Errorf("marshal metadata for %s: %w", d.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, d.ID, d.Type(), d.Source(), d.SourceHash(),
				d.Metadata.String(domain.MetaURL), d.Text, string(meta), vector.Encode(embeddings[i])); err != nil {
				return fmt.Errorf("insert %s: %w", d.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SimilaritySearch loads the filtered candidates and ranks them by cosine similarity.
func (s *Store) SimilaritySearch(ctx context.Context, req domain.SearchRequest) ([]domain.Document, error) {
	query, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	where, args := whereClause(req.Filter)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, metadata, embedding FROM vector_store"+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var (
		docs       []domain.Document
		candidates [][]float32
	)
	for rows.Next() {
		var (
			doc      domain.Document
			meta     string
			embedded []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &meta, &embedded); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
		candidates = append(candidates, vector.Decode(embedded))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}

	ranked := vector.Rank(query, candidates, req.SimilarityThreshold, req.TopK)
	out := make([]domain.Document, len(ranked))
	for i, r := range ranked {
		out[i] = docs[r.Index]
		score := r.Score
		out[i].Score = &score
	}
	return out, nil
}

// DeleteByFilter removes every document matching the filter.
func (s *Store) DeleteByFilter(ctx context.Context, filter domain.Filter) error {
	where, args := whereClause(filter)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM vector_store"+where, args...); err != nil {
		return fmt.Errorf("delete %s: %w", filter, err)
	}
	return nil
}

// LoadByFilter returns the bookkeeping columns of the matching documents.
func (s *Store) LoadByFilter(ctx context.Context, filter domain.Filter) ([]domain.SourceRecord, error) {
	where, args := whereClause(filter)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, source, source_hash, url FROM vector_store"+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.SourceRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.SourceRecord
		if err := rows.Scan(&r.ID, &r.Type, &r.Source, &r.SourceHash, &r.URL); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

func (s *Store) embed(ctx context.Context, docs []domain.Document) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return nil, fmt.Errorf("embed documents: got %d embeddings for %d texts", len(embeddings), len(docs))
	}
	return embeddings, nil
}

// whereClause renders the filter over the indexed type and source columns.
func whereClause(f domain.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, f.Source)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		// "001_vector_store.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(script); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}
