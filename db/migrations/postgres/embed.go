// Package postgres contains the PostgreSQL variant of the schema migrations.
package postgres

import "embed"

// Files exposes the compiled-in migration SQL files.
//
//go:embed *.sql
var Files embed.FS
