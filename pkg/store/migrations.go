package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migration is one versioned schema change, read from a file named
// NNN_name.sql with "-- +up" and "-- +down" sections.
type migration struct {
	Version string
	Name    string
	UpSQL   string
	DownSQL string
}

// migrate applies every pending migration from fsys in version order.
func migrate(ctx context.Context, db *sql.DB, fsys fs.FS, logger *zap.Logger) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	migrations, err := readMigrations(fsys)
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}

	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		logger.Info("applying migration", zap.String("version", m.Version), zap.String("name", m.Name))
		if err := execInTx(ctx, db, m.UpSQL, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				m.Version, formatTime(nowUTC()))
			return err
		}); err != nil {
			return fmt.Errorf("applying migration %s: %w", m.Version, err)
		}
	}

	return nil
}

// rollback reverts the most recently applied migration.
func rollback(ctx context.Context, db *sql.DB, fsys fs.FS) (string, error) {
	var version string
	err := db.QueryRowContext(ctx,
		"SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("no migrations to roll back")
	}
	if err != nil {
		return "", fmt.Errorf("reading last migration: %w", err)
	}

	migrations, err := readMigrations(fsys)
	if err != nil {
		return "", fmt.Errorf("reading migrations: %w", err)
	}

	for _, m := range migrations {
		if m.Version != version {
			continue
		}
		if strings.TrimSpace(m.DownSQL) == "" {
			return "", fmt.Errorf("migration %s has no down section", version)
		}
		err := execInTx(ctx, db, m.DownSQL, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", version)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("rolling back migration %s: %w", version, err)
		}
		return version, nil
	}

	return "", fmt.Errorf("migration %s not found", version)
}

func appliedVersions(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func readMigrations(fsys fs.FS) ([]migration, error) {
	var migrations []migration

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}

		version, name, ok := strings.Cut(strings.TrimSuffix(path.Base(p), ".sql"), "_")
		if !ok || version == "" || name == "" {
			return fmt.Errorf("invalid migration filename: %s", path.Base(p))
		}

		up, down := splitSections(string(content))
		migrations = append(migrations, migration{Version: version, Name: name, UpSQL: up, DownSQL: down})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// splitSections returns the text under the "-- +up" and "-- +down" markers.
func splitSections(content string) (up, down string) {
	var upLines, downLines []string
	var section *[]string

	for _, line := range strings.Split(content, "\n") {
		switch strings.TrimSpace(line) {
		case "-- +up":
			section = &upLines
			continue
		case "-- +down":
			section = &downLines
			continue
		}
		if section != nil {
			*section = append(*section, line)
		}
	}

	return strings.Join(upLines, "\n"), strings.Join(downLines, "\n")
}

// execInTx runs every statement of script and then record inside one transaction.
func execInTx(ctx context.Context, db *sql.DB, script string, record func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}

	if err := record(tx); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	return tx.Commit()
}

// splitStatements splits a script on semicolons that are outside quotes and
// "--" comments. Comment-only fragments are dropped.
func splitStatements(script string) []string {
	var statements []string
	var current strings.Builder
	var quote rune
	inComment := false
	hasSQL := false

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" && hasSQL {
			statements = append(statements, stmt)
		}
		current.Reset()
		hasSQL = false
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch {
		case inComment:
			if c == '\n' {
				inComment = false
			}
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			inComment = true
		case c == '\'' || c == '"':
			quote = c
			hasSQL = true
		case c == ';':
			flush()
			continue
		case c != ' ' && c != '\t' && c != '\n' && c != '\r':
			hasSQL = true
		}

		current.WriteRune(c)
	}
	flush()

	return statements
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
