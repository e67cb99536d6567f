//go:build !nosqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

const sqliteAvailable = true

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS nodes (
			path TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			payload BLOB
		);
	`)
	return err
}

// writeSQLite replaces the file at path with one row per group and leaf.
func writeSQLite(ctx context.Context, path string, nodes []node) (err error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := createTables(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (path, kind, payload) VALUES (?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, n := range nodes {
		var payload any
		if n.kind != kindGroup {
			payload = n.payload
		}
		if _, err := stmt.ExecContext(ctx, n.path, n.kind, payload); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("write %s: %w", n.path, err)
		}
	}
	return tx.Commit()
}

func readSQLite(ctx context.Context, path string) (nodes []node, err error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	rows, err := db.QueryContext(ctx, `SELECT path, kind, payload FROM nodes ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var n node
		if err := rows.Scan(&n.path, &n.kind, &n.payload); err != nil {
			return nil, err
		}
		if n.payload == nil && n.kind != kindGroup {
			n.payload = []byte{}
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}
