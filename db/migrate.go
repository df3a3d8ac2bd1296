package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

func runSQLiteMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations/sqlite")
	if err != nil {
		return err
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}

	// m.Close would close db, which the pool still owns
	m, err := migrate.NewWithInstance("iofs", src, TypeSQLite, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func runPostgresMigrations(connString string) error {
	src, err := iofs.New(migrations, "migrations/postgres")
	if err != nil {
		return err
	}

	// the pgx/v5 migrate driver registers itself under pgx5://
	m, err := migrate.NewWithSourceInstance("iofs", src, "pgx5"+strings.TrimPrefix(connString, "postgres"))
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// ensureLikesColumn upgrades message tables created before likes existed.
// Existing rows get 0.
func ensureLikesColumn(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA table_info(messages)`)
	if err != nil {
		return fmt.Errorf("failed to read table info: %w", err)
	}

	hasLikes := false
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan table info: %w", err)
		}
		if name == "likes" {
			hasLikes = true
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating table info: %w", err)
	}
	rows.Close()

	if hasLikes {
		return nil
	}

	if _, err := db.ExecContext(ctx, `ALTER TABLE messages ADD COLUMN likes INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("failed to add likes column: %w", err)
	}
	return nil
}

// Migrate applies the schema and returns. Used by the migrate command.
func Migrate(ctx context.Context, config DatabaseConfig) error {
	pool, err := InitDB(ctx, config)
	if err != nil {
		return err
	}
	return pool.Close()
}
