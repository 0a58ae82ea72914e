// Package pgvector provides a vector store on PostgreSQL with the pgvector extension.
//
// Similarity is computed by the database with the cosine distance operator,
// so only the top matches cross the wire. The schema is managed with
// golang-migrate; Open applies pending migrations before use.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // PostgreSQL driver
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/pgvector/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// MigrationsTable records the applied schema version.
const MigrationsTable = "sercha_rag_migrations"

// Ensure Store implements the interfaces.
var (
	_ driven.VectorStore = (*Store)(nil)
	_ driven.Replacer    = (*Store)(nil)
)

// Store is a pgvector-backed vector store.
type Store struct {
	db         *sql.DB
	dimensions int
	embedder   driven.EmbeddingService
}

// Open connects to dsn, applies migrations and returns a ready store.
func Open(ctx context.Context, dsn string, dimensions int, embedder driven.EmbeddingService) (*Store, error) {
	if err := Migrate(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db, dimensions, embedder), nil
}

// New wraps an open database. The schema must already exist.
func New(db *sql.DB, dimensions int, embedder driven.EmbeddingService) *Store {
	return &Store{db: db, dimensions: dimensions, embedder: embedder}
}

// Migrate applies pending schema migrations on a dedicated connection.
func Migrate(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		db.Close()
		return fmt.Errorf("create migration driver: %w", err)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		driver.Close()
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add embeds and stores documents in one transaction.
func (s *Store) Add(ctx context.Context, docs []domain.Document) error {
	return s.Replace(ctx, nil, docs)
}

// Replace deletes the filtered documents and adds docs in one transaction.
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
		q := newQuery()
		where := q.where(f)
		if _, err := tx.ExecContext(ctx, "DELETE FROM vector_store"+where, q.args...); err != nil {
			return fmt.Errorf("delete %s: %w", f, err)
		}
	}

	for i := range docs {
		d := &docs[i]
		meta, err := json.Marshal(d.Metadata.Clone())
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", d.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO vector_store (id, type, source, source_hash, url, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				type = EXCLUDED.type,
				source = EXCLUDED.source,
				source_hash = EXCLUDED.source_hash,
				url = EXCLUDED.url,
				content = EXCLUDED.content,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding`,
			d.ID, d.Type(), d.Source(), d.SourceHash(), d.Metadata.String(domain.MetaURL),
			d.Text, string(meta), pgv.NewVector(embeddings[i]))
		if err != nil {
			return fmt.Errorf("insert %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SimilaritySearch returns the nearest documents by cosine similarity.
func (s *Store) SimilaritySearch(ctx context.Context, req domain.SearchRequest) ([]domain.Document, error) {
	embedded, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	q := newQuery()
	vec := q.arg(pgv.NewVector(embedded))
	where := q.where(req.Filter)
	score := "1 - (embedding <=> " + vec + ")"
	if req.SimilarityThreshold > 0 {
		where = q.and(where, score+" >= "+q.arg(req.SimilarityThreshold))
	}
	limit := ""
	if req.TopK > 0 {
		limit = " LIMIT " + q.arg(req.TopK)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, metadata, "+score+" AS score FROM vector_store"+where+
			" ORDER BY embedding <=> "+vec+", seq"+limit, q.args...)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			doc   domain.Document
			meta  []byte
			score float64
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &meta, &score); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", doc.ID, err)
		}
		doc.Score = &score
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return docs, nil
}

// DeleteByFilter removes every document matching the filter.
func (s *Store) DeleteByFilter(ctx context.Context, filter domain.Filter) error {
	q := newQuery()
	where := q.where(filter)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM vector_store"+where, q.args...); err != nil {
		return fmt.Errorf("delete %s: %w", filter, err)
	}
	return nil
}

// LoadByFilter returns the bookkeeping columns of the matching documents.
func (s *Store) LoadByFilter(ctx context.Context, filter domain.Filter) ([]domain.SourceRecord, error) {
	q := newQuery()
	where := q.where(filter)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, source, source_hash, url FROM vector_store"+where+" ORDER BY seq", q.args...)
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
	for i, e := range embeddings {
		if s.dimensions > 0 && len(e) != s.dimensions {
			return nil, fmt.Errorf("%w: embedding for %s has %d dimensions, store expects %d",
				domain.ErrConfig, docs[i].ID, len(e), s.dimensions)
		}
	}
	return embeddings, nil
}

// query numbers positional parameters as they are added.
type query struct {
	args []any
}

func newQuery() *query { return &query{} }

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) where(f domain.Filter) string {
	var conds []string
	if f.Type != "" {
		conds = append(conds, "type = "+q.arg(f.Type))
	}
	if f.Source != "" {
		conds = append(conds, "source = "+q.arg(f.Source))
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (q *query) and(where, cond string) string {
	if where == "" {
		return " WHERE " + cond
	}
	return where + " AND " + cond
}
