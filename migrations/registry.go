// Package migrations exposes the embedded issuesync schema per SQL dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	issuesync "github.com/goliatone/go-issuesync"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// DefaultSourceLabel names the migration source when registering with a
	// shared persistence client.
	DefaultSourceLabel = "go-issuesync"

	migrationsDir = "data/sql/migrations"
)

// dialectDirs maps each supported dialect to its directory below the
// migrations root.
var dialectDirs = []struct {
	dialect string
	dir     string
}{
	{dialect: DialectPostgres, dir: "."},
	{dialect: DialectSQLite, dir: "sqlite"},
}

type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

// RegisterFunc receives one call per selected dialect. Callers usually
// forward fsys to persistence.Client.RegisterSQLMigrations.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets restricts registration to the named dialects.
// Unknown names are kept and simply match nothing.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		if next := normalizeDialects(targets); len(next) > 0 {
			r.ValidationTargets = next
		}
	}
}

// DialectFor maps a database/sql driver name onto a migration dialect.
func DialectFor(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx", "pg":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("migrations: no dialect for driver %q", driver)
	}
}

// Filesystems resolves one filesystem per dialect from the embedded tree, or
// from source when given. Every dialect must carry at least one up migration
// and each up file needs a matching down file.
func Filesystems(source ...fs.FS) ([]FilesystemSpec, error) {
	root := issuesync.GetMigrationsFS()
	if len(source) > 0 && source[0] != nil {
		root = source[0]
	}
	base, basePath, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	out := make([]FilesystemSpec, 0, len(dialectDirs))
	for _, entry := range dialectDirs {
		fsys := base
		dir := basePath
		if entry.dir != "." {
			fsys, err = fs.Sub(base, entry.dir)
			if err != nil {
				return nil, fmt.Errorf("migrations: open %s directory: %w", entry.dialect, err)
			}
			dir = path.Join(basePath, entry.dir)
		}
		if err := checkPairs(entry.dialect, dir, fsys); err != nil {
			return nil, err
		}
		out = append(out, FilesystemSpec{Dialect: entry.dialect, Path: dir, FS: fsys})
	}
	return out, nil
}

// Register hands the embedded migrations of every selected dialect to fn.
func Register(ctx context.Context, fn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       DefaultSourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if fn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, entry := range reg.Filesystems {
		if !slices.Contains(reg.ValidationTargets, entry.Dialect) {
			continue
		}
		if err := fn(ctx, entry.Dialect, reg.SourceLabel, entry.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s from %s: %w", entry.Dialect, entry.Path, err)
		}
	}
	return reg, nil
}

func resolveRoot(root fs.FS) (fs.FS, string, error) {
	if info, err := fs.Stat(root, migrationsDir); err == nil && info.IsDir() {
		sub, subErr := fs.Sub(root, migrationsDir)
		if subErr != nil {
			return nil, "", fmt.Errorf("migrations: open %s: %w", migrationsDir, subErr)
		}
		return sub, migrationsDir, nil
	}
	if matches, _ := fs.Glob(root, "*.sql"); len(matches) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: %s not found", migrationsDir)
}

func checkPairs(dialect string, dir string, fsys fs.FS) error {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: list %s %s: %w", dialect, dir, err)
	}
	if len(ups) == 0 {
		return fmt.Errorf("migrations: %s directory %q has no *.up.sql files", dialect, dir)
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(fsys, down); err != nil {
			return fmt.Errorf("migrations: %s migration %s has no down file", dialect, up)
		}
	}
	return nil
}

func normalizeDialects(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" && !slices.Contains(out, value) {
			out = append(out, value)
		}
	}
	return out
}
