package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Accessory is a device identity persisted across restarts.
//
// Only identity and static config are stored. Live status is never
// persisted; it is rebuilt from the first poll after startup.
type Accessory struct {
	AccessoryID string    `json:"accessory_id"`
	Kind        Kind      `json:"kind"`
	Unit        int       `json:"unit"`
	Name        string    `json:"name"`
	Config      Config    `json:"config"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Device rebuilds the runtime device for a stored accessory.
func (a Accessory) Device() Device {
	return Device{
		ID:          DeviceID(a.Kind, a.Unit),
		AccessoryID: a.AccessoryID,
		Kind:        a.Kind,
		Unit:        a.Unit,
		Name:        a.Name,
		Serial:      SerialNumber(a.Unit),
		Config:      a.Config.DeepCopy(),
	}
}

// SQLiteRepository stores accessory identities in SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with migrations applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// List returns every stored accessory.
func (r *SQLiteRepository) List(ctx context.Context) ([]Accessory, error) {
	query := `
		SELECT accessory_id, kind, unit, name, config, created_at, last_seen_at
		FROM accessories
		ORDER BY kind, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying accessories: %w", err)
	}
	defer rows.Close()

	var out []Accessory
	for rows.Next() {
		acc, err := scanAccessory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accessories: %w", err)
	}
	return out, nil
}

// RegisterNew inserts a new accessory.
func (r *SQLiteRepository) RegisterNew(ctx context.Context, dev Device) error {
	if !ValidKind(dev.Kind) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, dev.Kind)
	}

	configJSON, err := json.Marshal(dev.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := r.now().Format(time.RFC3339)
	query := `
		INSERT INTO accessories (accessory_id, kind, unit, name, config, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		dev.AccessoryID,
		string(dev.Kind),
		dev.Unit,
		dev.Name,
		string(configJSON),
		now,
		now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAccessoryExists
		}
		return fmt.Errorf("inserting accessory: %w", err)
	}
	return nil
}

// RestoreExisting updates the unit, name, config and last-seen time.
func (r *SQLiteRepository) RestoreExisting(ctx context.Context, dev Device) error {
	configJSON, err := json.Marshal(dev.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	query := `
		UPDATE accessories
		SET unit = ?, name = ?, config = ?, last_seen_at = ?
		WHERE accessory_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		dev.Unit,
		dev.Name,
		string(configJSON),
		r.now().Format(time.RFC3339),
		dev.AccessoryID,
	)
	if err != nil {
		return fmt.Errorf("updating accessory: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAccessoryNotFound
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccessory(s rowScanner) (*Accessory, error) {
	var (
		acc                   Accessory
		kind, configJSON      string
		createdAt, lastSeenAt string
	)

	if err := s.Scan(&acc.AccessoryID, &kind, &acc.Unit, &acc.Name, &configJSON, &createdAt, &lastSeenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning accessory: %w", err)
	}
	acc.Kind = Kind(kind)

	if err := json.Unmarshal([]byte(configJSON), &acc.Config); err != nil {
		return nil, fmt.Errorf("unmarshalling config for %s: %w", acc.AccessoryID, err)
	}

	var err error
	if acc.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if acc.LastSeenAt, err = time.Parse(time.RFC3339, lastSeenAt); err != nil {
		return nil, fmt.Errorf("parsing last_seen_at: %w", err)
	}
	return &acc, nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
