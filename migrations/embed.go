// Package migrations embeds the title_basics schema for both storage drivers.
package migrations

import "embed"

// FS holds one golang-migrate source directory per driver.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
