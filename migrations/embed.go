// Package migrations embeds SQL schema migrations into the binary.
//
// Migration files follow the naming convention
// YYYYMMDD_HHMMSS_description.up.sql, applied in version order by
// database.Migrate at startup.
package migrations

import (
	"embed"

	"github.com/mbeckert/wavelink/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
}
