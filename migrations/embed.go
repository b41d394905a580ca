// Package migrations embeds the SQL schema applied by core/database on startup.
package migrations

import "embed"

// FS holds the golang-migrate compatible *.up.sql / *.down.sql files.
//
//go:embed *.sql
var FS embed.FS
