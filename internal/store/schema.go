package store

import (
	"bufio"
	"context"
	"embed"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// Schema returns the embedded schema script for a SQL dialect ("mysql" or "sqlite3").
func Schema(dialect string) (io.ReadCloser, error) {
	name := "schema/mysql.sql"
	if dialect == "sqlite3" {
		name = "schema/sqlite.sql"
	}
	f, err := schemaFiles.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "no schema for dialect %q", dialect)
	}
	return f, nil
}

// Statements splits a SQL script into single statements. A statement ends with the line that
// contains its ';'.
func Statements(script io.Reader) ([]string, error) {
	var statements []string
	fileScanner := bufio.NewScanner(script)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	for fileScanner.Scan() {
		line := fileScanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			statements = append(statements, strings.TrimSpace(builder.String()))
			builder = strings.Builder{}
		}
	}
	if err := fileScanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read script")
	}
	if rest := strings.TrimSpace(builder.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements, nil
}

// Migrate executes all statements of the script on the database.
func Migrate(ctx context.Context, db *sqlx.DB, script io.Reader) error {
	statements, err := Statements(script)
	if err != nil {
		return err
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return errors.Wrapf(err, "execute %q", statement)
		}
	}
	return nil
}
