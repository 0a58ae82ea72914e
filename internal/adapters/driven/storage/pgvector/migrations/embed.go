// Package migrations embeds the golang-migrate files for the pgvector store.
package migrations

import "embed"

// FS holds the versioned .up.sql and .down.sql files.
//
//go:embed *.sql
var FS embed.FS
