package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/poolbridge/internal/poolapi"
)

// setupTestDB creates an in-memory SQLite database with the accessories table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE accessories (
			accessory_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			unit INTEGER NOT NULL,
			name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			last_seen_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestSQLiteRepository_RegisterNewAndList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	light := newDevice(KindLighting, 1, "Pool Light", Config{
		Label:        "Pool",
		ColorEnabled: true,
		Colors:       []poolapi.LightingColor{{ColorNumber: 2, ColorName: "Blue"}},
	})
	heater := heaterDevice()

	for _, dev := range []Device{light, heater} {
		if err := repo.RegisterNew(ctx, dev); err != nil {
			t.Fatalf("RegisterNew(%s) error = %v", dev.ID, err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d accessories, want 2", len(list))
	}
	// ordered by kind, name
	if list[0].Kind != KindHeater || list[1].Kind != KindLighting {
		t.Errorf("List() order = %s, %s", list[0].Kind, list[1].Kind)
	}
	if got := list[1].Config.ColorName(2); got != "Blue" {
		t.Errorf("config not round-tripped: colour = %q", got)
	}
	if list[1].Device().ID != light.ID || list[1].Device().AccessoryID != light.AccessoryID {
		t.Errorf("Device() = %+v", list[1].Device())
	}
}

func TestSQLiteRepository_RegisterNewDuplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	dev := heaterDevice()
	if err := repo.RegisterNew(ctx, dev); err != nil {
		t.Fatalf("RegisterNew() error = %v", err)
	}
	if err := repo.RegisterNew(ctx, dev); !errors.Is(err, ErrAccessoryExists) {
		t.Errorf("second RegisterNew() error = %v, want ErrAccessoryExists", err)
	}
}

func TestSQLiteRepository_RegisterNewInvalidKind(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.RegisterNew(context.Background(), Device{AccessoryID: "x", Kind: "pump"})
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("RegisterNew() error = %v, want ErrInvalidKind", err)
	}
}

func TestSQLiteRepository_RestoreExisting(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	created := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return created }

	dev := newDevice(KindChannel, 3, "Filter Pump", Config{Function: poolapi.FunctionFilterPump})
	if err := repo.RegisterNew(ctx, dev); err != nil {
		t.Fatalf("RegisterNew() error = %v", err)
	}

	later := created.Add(48 * time.Hour)
	repo.now = func() time.Time { return later }

	moved := dev
	moved.Unit = 5
	if err := repo.RestoreExisting(ctx, moved); err != nil {
		t.Fatalf("RestoreExisting() error = %v", err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("List() returned %d accessories, want 1", len(all))
	}
	got := all[0]
	if got.Unit != 5 {
		t.Errorf("Unit = %d, want 5", got.Unit)
	}
	if !got.CreatedAt.Equal(created) || !got.LastSeenAt.Equal(later) {
		t.Errorf("timestamps = %v / %v", got.CreatedAt, got.LastSeenAt)
	}

	missing := dev
	missing.AccessoryID = "does-not-exist"
	if err := repo.RestoreExisting(ctx, missing); !errors.Is(err, ErrAccessoryNotFound) {
		t.Errorf("RestoreExisting(missing) error = %v, want ErrAccessoryNotFound", err)
	}
}
