// Package migrations embeds the accessory store schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/poolbridge/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
