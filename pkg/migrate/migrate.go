package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the SQL migrations compiled into the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("migrations sub fs: %v", err))
	}
	return sub
}

// GooseDialect maps a configured database driver onto its goose dialect.
func GooseDialect(driver string) (goose.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql", "pgx":
		return goose.DialectPostgres, nil
	case "sqlite", "sqlite3":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("unsupported migration driver %q", driver)
	}
}

// Migrator runs goose against one migration source. It holds no global goose
// state, so several can coexist in tests.
type Migrator struct {
	provider *goose.Provider
}

// NewMigrator builds a migrator over source, or over the embedded migrations
// when source is nil.
func NewMigrator(db *sql.DB, driver string, source fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	dialect, err := GooseDialect(driver)
	if err != nil {
		return nil, err
	}
	if source == nil {
		source = Migrations()
	}
	provider, err := goose.NewProvider(dialect, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

func (m *Migrator) Up(ctx context.Context) ([]*goose.MigrationResult, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return results, fmt.Errorf("goose up: %w", err)
	}
	return results, nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) (*goose.MigrationResult, error) {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return result, fmt.Errorf("goose down: %w", err)
	}
	return result, nil
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	status, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	return status, nil
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// MigrateTo moves the schema up or down until target is the current version.
func (m *Migrator) MigrateTo(ctx context.Context, target int64) ([]*goose.MigrationResult, error) {
	if target < 0 {
		return nil, fmt.Errorf("invalid target version %d", target)
	}
	current, err := m.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err := m.provider.UpTo(ctx, target)
		if err != nil {
			return results, fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return results, nil
	default:
		results, err := m.provider.DownTo(ctx, target)
		if err != nil {
			return results, fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return results, nil
	}
}

// Up applies every embedded migration that has not run yet.
func Up(ctx context.Context, db *sql.DB, driver string) ([]*goose.MigrationResult, error) {
	m, err := NewMigrator(db, driver, nil)
	if err != nil {
		return nil, err
	}
	return m.Up(ctx)
}

// Version reports the current schema version using the embedded migrations.
func Version(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	m, err := NewMigrator(db, driver, nil)
	if err != nil {
		return 0, err
	}
	return m.Version(ctx)
}
