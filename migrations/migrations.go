// Package migrations embeds the Postgres schema for the hub ledgers.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files.
//
//go:embed *.sql
var FS embed.FS
