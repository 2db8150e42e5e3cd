// Package catalog embeds the catalog schema migrations.
package catalog

import (
	"embed"

	"github.com/ghuser/prodvault/pkg/migrator"
)

//go:embed *.sql
var migrations embed.FS

// Run applies all pending catalog migrations against dbURL.
func Run(dbURL string) error {
	return migrator.RunMigrations(dbURL, migrations)
}
