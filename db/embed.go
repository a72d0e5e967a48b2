// Package db carries the embedded SQL migration files.
package db

import "embed"

// Migrations holds every schema file under migrations/. They are applied
// in lexical order, so new files take a higher numeric prefix.
//
//go:embed migrations/*.sql
var Migrations embed.FS
