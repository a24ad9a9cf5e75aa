package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// newMigrator builds a migrate instance over the embedded files for db's dialect.
// The returned release func must be called instead of m.Close, which would close
// the shared *sql.DB for SQLite.
func (db *DB) newMigrator(ctx context.Context) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrationsFS, "migrations/"+string(db.Dialect))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	var driver migratedb.Driver
	switch db.Dialect {
	case DialectPostgres:
		conn, err := db.DB.DB.Conn(ctx)
		if err != nil {
			src.Close()
			return nil, nil, fmt.Errorf("failed to acquire migration connection: %w", err)
		}
		driver, err = migratepg.WithConnection(ctx, conn, &migratepg.Config{})
		if err != nil {
			conn.Close()
			src.Close()
			return nil, nil, fmt.Errorf("failed to create postgres migration driver: %w", err)
		}
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(db.DB.DB, &migratesqlite.Config{})
		if err != nil {
			src.Close()
			return nil, nil, fmt.Errorf("failed to create sqlite migration driver: %w", err)
		}
	default:
		src.Close()
		return nil, nil, fmt.Errorf("unsupported dialect %q", db.Dialect)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(db.Dialect), driver)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	release := func() {
		src.Close()
		if db.Dialect == DialectPostgres {
			// Closes only the dedicated connection.
			driver.Close()
		}
	}
	return m, release, nil
}

// MigrateUp applies every pending migration
func (db *DB) MigrateUp() error {
	m, release, err := db.newMigrator(context.Background())
	if err != nil {
		return err
	}
	defer release()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run up migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back steps migrations, or all of them when steps <= 0
func (db *DB) MigrateDown(steps int) error {
	m, release, err := db.newMigrator(context.Background())
	if err != nil {
		return err
	}
	defer release()

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run down migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the applied schema version and its dirty flag.
func (db *DB) MigrationVersion() (uint, bool, error) {
	m, release, err := db.newMigrator(context.Background())
	if err != nil {
		return 0, false, err
	}
	defer release()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, nil
}
