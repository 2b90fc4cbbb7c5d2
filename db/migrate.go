package db

import (
	"context"
	_ "embed"
	"strings"

	"github.com/pkg/errors"
)

//go:embed schema.sql
var schema string

// Statements returns the schema split into single statements, since the
// MySQL driver runs one statement per Exec by default.
func Statements(ddl string) []string {
	var statements []string
	for _, statement := range strings.Split(ddl, ";") {
		statement = strings.TrimSpace(statement)
		if statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}

// Migrate creates the tables that do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for _, statement := range Statements(schema) {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return errors.Wrapf(err, "failed running %q", firstLine(statement))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
