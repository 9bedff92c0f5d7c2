// Package migrations embeds the SQL migration files applied by
// internal/storage.DB.RunMigrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
