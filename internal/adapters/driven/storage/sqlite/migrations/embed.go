// Package migrations holds the numbered SQL files applied by sqlite.Store
// on open, in file name order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
