package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// MigrationFiles resolves arg to the migration files in dir to run, in
// order. "up" selects every up file ascending, "down" every down file
// descending, anything else the single file whose name ends with arg.
func MigrationFiles(dir, arg string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	switch arg {
	case "up":
		return filterSuffix(names, ".up.sql"), nil
	case "down":
		down := filterSuffix(names, ".down.sql")
		slices.Reverse(down)
		return down, nil
	}

	name, err := migrationFileName(names, arg)
	if err != nil {
		return nil, err
	}
	return []string{name}, nil
}

func filterSuffix(names []string, suffix string) []string {
	var out []string
	for _, n := range names {
		if strings.HasSuffix(n, suffix) {
			out = append(out, n)
		}
	}
	return out
}

func migrationFileName(names []string, migrationName string) (string, error) {
	regex, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(migrationName)))
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	for _, n := range names {
		if regex.MatchString(n) {
			return n, nil
		}
	}
	return "", fmt.Errorf("migration file %q not found", migrationName)
}

// ExecMigration runs one migration file from dir.
func ExecMigration(ctx context.Context, db *sql.DB, dir, name string) error {
	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", name, err)
	}
	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", name, err)
	}
	return nil
}

// MigrateUp applies every up migration in dir in name order.
func MigrateUp(ctx context.Context, db *sql.DB, dir string) error {
	files, err := MigrationFiles(dir, "up")
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := ExecMigration(ctx, db, dir, name); err != nil {
			return err
		}
	}
	return nil
}
