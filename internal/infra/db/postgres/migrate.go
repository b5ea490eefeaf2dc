package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v4/stdlib"
)

//go:embed migrations
var migrationsFS embed.FS

// Schema names accepted by Migrate; each has its own directory under
// migrations/ and its own version table.
const (
	SchemaPayments      = "payments"
	SchemaSubscriptions = "subscriptions"
)

// Migrate applies every pending up migration of schema to the database at dsn.
func Migrate(dsn, schema string) error {
	if schema != SchemaPayments && schema != SchemaSubscriptions {
		return fmt.Errorf("unknown schema %q", schema)
	}
	src, err := iofs.New(migrationsFS, "migrations/"+schema)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{
		MigrationsTable: "schema_migrations_" + schema,
	})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
