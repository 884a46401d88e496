// Package db implements storage.Storage on top of the SQLite database.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/storage"
)

type dbImpl struct {
	db *sql.DB
}

func New(d *sql.DB) storage.Storage {
	return &dbImpl{
		db: d,
	}
}

// HandleError takes a database error and returns a higher level error that hides the implementation details
// and can be more easily handled by the calling functions without doing type assertions, checking error codes and
// comparing to sentinel errors.
func (d *dbImpl) HandleError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return storage.ErrNotExist
	default:
		log.Error().Err(err).Msg("database error")
		return errors.Join(storage.ErrInternal, err)
	}
}

func (d *dbImpl) WithTx(ctx context.Context, f func(tx *sql.Tx) error) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return d.HandleError(err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = d.HandleError(tx.Commit())
		}
	}()

	err = f(tx)
	return
}

func (d *dbImpl) Get(ctx context.Context, key string) (value string, err error) {
	if key == "" {
		return "", storage.ErrInvalidKey
	}
	row := d.db.QueryRowContext(ctx, "SELECT value FROM local_storage WHERE key = ?", key)
	err = d.HandleError(row.Scan(&value))
	return
}

func (d *dbImpl) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	_, err := d.db.ExecContext(ctx, `INSERT INTO local_storage(key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	return d.HandleError(err)
}

// Delete removes key, reporting storage.ErrNotExist if there was nothing to remove.
func (d *dbImpl) Delete(ctx context.Context, key string) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM local_storage WHERE key = ?", key)
		if err != nil {
			return d.HandleError(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return d.HandleError(err)
		}
		if n == 0 {
			return storage.ErrNotExist
		}
		return nil
	})
}
