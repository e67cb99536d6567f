//go:build nosqlite

package storage

import (
	"context"
	"fmt"
)

const sqliteAvailable = false

func writeSQLite(_ context.Context, _ string, _ []node) error {
	return fmt.Errorf("%w; rebuild without -tags nosqlite", ErrSQLiteUnavailable)
}

func readSQLite(_ context.Context, _ string) ([]node, error) {
	return nil, fmt.Errorf("%w; rebuild without -tags nosqlite", ErrSQLiteUnavailable)
}
