package migrations

import (
	"context"
	"fmt"
	"strings"
)

// ClickhouseDB is the subset of a ClickHouse connection used to migrate.
type ClickhouseDB interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// ApplyClickhouse runs every embedded ClickHouse file statement by statement.
// All DDL is IF NOT EXISTS, so there is no ledger.
func ApplyClickhouse(ctx context.Context, db ClickhouseDB) ([]string, error) {
	migs, err := Load(ClickHouse)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range migs {
		stmts, err := splitStatements(m.SQL)
		if err != nil {
			return applied, fmt.Errorf("parse migration %s: %w", m.Name, err)
		}
		// The native driver rejects multi-statement Exec
		for _, stmt := range stmts {
			if err := db.Exec(ctx, stmt); err != nil {
				return applied, fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
		applied = append(applied, m.Name)
	}
	return applied, nil
}

// splitStatements splits on semicolons outside single-quoted literals and
// drops "--" comments. An unterminated literal is an error.
func splitStatements(input string) ([]string, error) {
	var (
		stmts    []string
		cur      strings.Builder
		inString bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case inString:
			cur.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(input) && input[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
					continue
				}
				inString = false
			}
		case ch == '\'':
			inString = true
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(input) && input[i+1] == '-':
			for i < len(input) && input[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inString {
		return nil, fmt.Errorf("unterminated string literal")
	}
	flush()
	return stmts, nil
}
