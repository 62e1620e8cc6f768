// Package repository keeps the news table and its queries on top of the shared pool
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/newspulse/pkg/pool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// ErrEmptyTitle returned on attempt to store an item without title
var ErrEmptyTitle = errors.New("news title is required")

// Executor is the part of the pool used by the repository
type Executor interface {
	Initialize(ctx context.Context) error
	Execute(ctx context.Context, query string, args []any, mode pool.Mode) (pool.Result, error)
	Dialect() string
}

// Migrate creates the news table and indexes for the dialect of the pool, initializing the pool if needed
func Migrate(ctx context.Context, db Executor) error {
	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize pool: %w", err)
	}

	dialect := db.Dialect()
	schema, err := schemaFS.ReadFile("schema/" + dialect + ".sql")
	if err != nil {
		return fmt.Errorf("read schema for %q: %w", dialect, err)
	}

	for _, stmt := range splitStatements(string(schema)) {
		res, err := db.Execute(ctx, stmt, nil, pool.ModeExec)
		if err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
		if res.Err != nil {
			// mysql has no "create index if not exists", the index is part of the table there
			if isAlreadyExists(res.Err) {
				continue
			}
			return fmt.Errorf("execute schema statement: %w", res.Err)
		}
	}
	lgr.Printf("[DEBUG] news schema ready, %s dialect", dialect)
	return nil
}

func isAlreadyExists(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "already exists") || strings.Contains(errStr, "duplicate")
}

// splitStatements splits a schema file by semicolons, skipping comment-only lines
func splitStatements(schema string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(schema, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}

		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	// add any remaining statement
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}
