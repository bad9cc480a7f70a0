// Package migrations embeds the ledger node's PostgreSQL schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
