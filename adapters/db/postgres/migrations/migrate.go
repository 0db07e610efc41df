package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed sql/*.sql
var embedded embed.FS

// Files returns the migrations shipped with the binary
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`

// Migrator handles database schema migrations
type Migrator struct {
	db    *sql.DB
	files fs.FS
	out   io.Writer
}

// NewMigrator creates a migrator over the embedded migrations
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db, files: Files(), out: os.Stdout}
}

// WithFiles swaps the migration source, mainly for tests
func (m *Migrator) WithFiles(files fs.FS) *Migrator {
	m.files = files
	return m
}

// WithOutput redirects progress messages
func (m *Migrator) WithOutput(w io.Writer) *Migrator {
	m.out = w
	return m
}

// MigrationFile represents a migration file
type MigrationFile struct {
	Version  string
	Name     string
	Checksum string
	SQL      string
}

// MigrationStatus pairs a migration with whether it has been applied
type MigrationStatus struct {
	MigrationFile
	Applied bool
}

// Up executes all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := LoadMigrationFiles(m.files)
	if err != nil {
		return fmt.Errorf("failed to find migration files: %w", err)
	}

	for _, file := range files {
		if checksum, ok := applied[file.Version]; ok {
			if checksum != file.Checksum {
				return fmt.Errorf("migration %s was modified after being applied", file.Version)
			}
			continue
		}

		if err := m.applyMigration(ctx, file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Version, err)
		}
		fmt.Fprintf(m.out, "Applied migration: %s\n", file.Name)
	}

	return nil
}

// Down removes the record of the last applied migration. Schema objects
// are left in place; there are no down scripts.
func (m *Migrator) Down(ctx context.Context) error {
	var version string
	err := m.db.QueryRowContext(ctx, `
		SELECT version FROM schema_migrations
		ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("no migrations to rollback")
		}
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}
	fmt.Fprintf(m.out, "Removed migration record: %s\n", version)
	return nil
}

// Status reports every known migration and whether it has been applied
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to ensure migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := LoadMigrationFiles(m.files)
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}
	return MergeStatus(files, applied), nil
}

// MergeStatus marks which files appear in the applied set
func MergeStatus(files []MigrationFile, applied map[string]string) []MigrationStatus {
	out := make([]MigrationStatus, len(files))
	for i, file := range files {
		_, ok := applied[file.Version]
		out[i] = MigrationStatus{MigrationFile: file, Applied: ok}
	}
	return out
}

// PrintStatus writes a status table in the style of the migrate command
func PrintStatus(w io.Writer, statuses []MigrationStatus) {
	fmt.Fprintln(w, "Migration Status:")
	fmt.Fprintln(w, "=================")

	appliedCount := 0
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
			appliedCount++
		}
		fmt.Fprintf(w, "  %s: %s\n", s.Name, state)
	}
	fmt.Fprintf(w, "\nSummary: %d/%d migrations applied\n", appliedCount, len(statuses))
}

// getAppliedMigrations returns applied versions and their checksums
func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}

	return applied, rows.Err()
}

// calculateChecksum computes SHA256 checksum of migration content
func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// LoadMigrationFiles reads NNN_name.sql files from the root of files, sorted by version
func LoadMigrationFiles(files fs.FS) ([]MigrationFile, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}

	var out []MigrationFile
	seen := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}

		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue // skip invalid filenames
		}
		if prev, ok := seen[parts[0]]; ok {
			return nil, fmt.Errorf("duplicate migration version %s (%s, %s)", parts[0], prev, name)
		}
		seen[parts[0]] = name

		data, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file: %w", err)
		}
		out = append(out, MigrationFile{
			Version:  parts[0],
			Name:     name,
			Checksum: calculateChecksum(data),
			SQL:      string(data),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Version < out[j].Version
	})
	return out, nil
}

// applyMigration executes a single migration inside a transaction
func (m *Migrator) applyMigration(ctx context.Context, file MigrationFile) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, file.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)", file.Version, file.Checksum)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
