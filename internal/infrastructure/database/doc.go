// Package database provides SQLite connectivity for the poolbridge accessory store.
//
// The store holds accessory identities discovered from the pool controller
// so that accessory IDs survive restarts. It never holds live status.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded by the migrations package and named
// YYYYMMDD_HHMMSS_description.{up,down}.sql. Each one runs in its own
// transaction and is recorded in schema_migrations.
package database
