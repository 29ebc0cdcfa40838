package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrKeyNotFound = errors.New("storage key not found")

// LocalStorage is the client's key/value slot store, the counterpart of the
// browser's localStorage.
type LocalStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// LocalStorageRepo is a sqlx implementation of LocalStorage.
type LocalStorageRepo struct {
	db *sqlx.DB
}

// NewLocalStorageRepo constructs a LocalStorageRepo.
func NewLocalStorageRepo(db *sqlx.DB) *LocalStorageRepo {
	return &LocalStorageRepo{db: db}
}

// Get returns the value stored under key.
func (r *LocalStorageRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, r.db.Rebind(`SELECT storage_value FROM local_storage WHERE storage_key=?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	return value, err
}

// Set upserts the value under key.
func (r *LocalStorageRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO local_storage (storage_key, storage_value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT (storage_key) DO UPDATE SET storage_value = EXCLUDED.storage_value, updated_at = CURRENT_TIMESTAMP`), key, value)
	return err
}

// Remove deletes key. Removing a missing key is not an error.
func (r *LocalStorageRepo) Remove(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM local_storage WHERE storage_key=?`), key)
	return err
}
