package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk location used by create and validate.
const DefaultDir = "pkg/migrate/migrations"

// EmbeddedDir selects the migrations compiled into the binary.
const EmbeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrator applies one directory of goose migrations to one database.
// Each Migrator owns its goose provider, so nothing is shared through
// goose's package-level state.
type Migrator struct {
	provider *goose.Provider
}

// New builds a postgres Migrator. dir is either EmbeddedDir or a path on disk.
func New(db *sql.DB, dir string) (*Migrator, error) {
	return newMigrator(goose.DialectPostgres, db, dir)
}

func newMigrator(dialect goose.Dialect, db *sql.DB, dir string) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	fsys, err := source(dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider for %q: %w", dir, err)
	}
	return &Migrator{provider: provider}, nil
}

// source resolves dir to a filesystem rooted at the .sql files.
func source(dir string) (fs.FS, error) {
	switch dir {
	case "":
		return nil, errors.New("dir is required")
	case EmbeddedDir:
		return fs.Sub(embedded, EmbeddedDir)
	default:
		return os.DirFS(dir), nil
	}
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) ([]*goose.MigrationResult, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return results, fmt.Errorf("goose up: %w", err)
	}
	return results, nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) (*goose.MigrationResult, error) {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return result, fmt.Errorf("goose down: %w", err)
	}
	return result, nil
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	return statuses, nil
}

// To moves the schema up or down until version is the latest applied one.
// Version 0 rolls everything back.
func (m *Migrator) To(ctx context.Context, version string) ([]*goose.MigrationResult, error) {
	target, err := ParseVersion(version)
	if err != nil {
		return nil, err
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = m.provider.UpTo(ctx, target)
	default:
		results, err = m.provider.DownTo(ctx, target)
	}
	if err != nil {
		return results, fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return results, nil
}

// ParseVersion accepts 0 or a YYYYMMDDHHMMSS stamp.
func ParseVersion(v string) (int64, error) {
	if v == "" {
		return 0, errors.New("version is required")
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 || (n != 0 && len(v) != len(versionLayout)) {
		return 0, fmt.Errorf("invalid version %q (expected 0 or YYYYMMDDHHMMSS)", v)
	}
	return n, nil
}
