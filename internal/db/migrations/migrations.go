// Package migrations embeds the goose migrations of the SQL storage backends.
// Each dialect has its own directory inside FS.
package migrations

import "embed"

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
