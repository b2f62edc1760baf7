package database

import (
	"context"
	"database/sql"
	"errors"
)

// Scan cursor state is a tiny key/value table so a batch scan survives
// process restarts. Values are opaque to this layer.

// GetScanState returns the value for key, or "" when unset.
func (d *Database) GetScanState(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := d.db.QueryRowContext(ctx,
		`SELECT value FROM scan_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetScanState durably stores value under key.
func (d *Database) SetScanState(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO scan_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// DeleteScanState removes key. Deleting an absent key is not an error.
func (d *Database) DeleteScanState(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx,
		`DELETE FROM scan_state WHERE key = ?`, key)
	return err
}
