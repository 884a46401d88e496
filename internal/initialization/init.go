// The init package contains functions that setup required dependencies such as the SQLite database
// backing the local storage.
package initialization

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate"
	"github.com/golang-migrate/migrate/database/sqlite3"
	_ "github.com/golang-migrate/migrate/source/file"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/config"
	"github.com/sidereusnuntius/wikifront/internal/db"
	"github.com/sidereusnuntius/wikifront/internal/storage"
	"github.com/sidereusnuntius/wikifront/internal/storage/filestore"
)

// SetupDB creates the local storage tables, if they do not yet exist, by applying all remaining migrations.
func SetupDB(d *sql.DB, folder, dbname string) error {
	log.Info().Msg("starting migrations")
	driver, err := sqlite3.WithInstance(d, &sqlite3.Config{})
	if err != nil {
		log.Error().Err(err).Msg("failed to create sqlite3 migration driver")
		return err
	}

	mig, err := migrate.NewWithDatabaseInstance(
		"file://"+folder,
		dbname,
		driver,
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create Migrate object")
		return err
	}

	err = mig.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error().Err(err).Msg("failed to run migrations")
		return err
	}
	return nil
}

func OpenDB(connString string) (*sql.DB, error) {
	d, err := sql.Open("sqlite3", connString)
	if err != nil {
		log.Error().Err(err).Str("connection string", connString).Msg("failed to open database")
	}
	return d, err
}

// OpenStorage builds the local storage selected by the configuration. The returned close function releases
// the resources held by the storage and must be called on shutdown.
func OpenStorage(cfg *config.Configuration) (storage.Storage, func() error, error) {
	switch cfg.StorageBackend {
	case config.MemoryBackend:
		return storage.NewMemory(), func() error { return nil }, nil
	case config.FileBackend:
		s, err := filestore.New(cfg.FsRoot)
		return s, func() error { return nil }, err
	case config.SqliteBackend:
		d, err := OpenDB(cfg.DbUrl)
		if err != nil {
			return nil, nil, err
		}
		if err = SetupDB(d, cfg.MigrationsFolder, cfg.DbUrl); err != nil {
			d.Close()
			return nil, nil, err
		}
		return db.New(d), d.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.StorageBackend)
}
