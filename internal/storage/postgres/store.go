// Package postgres implements the tabular Store contract on a single
// sheet_cells table, mirroring the spreadsheet model the collections came
// from: one row per (collection, row, col) cell, all values text.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jortegab/cash-denomination-ledger/internal/interfaces"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS sheet_cells (
		collection TEXT NOT NULL,
		row_index  INT  NOT NULL,
		col_index  INT  NOT NULL,
		value      TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (collection, row_index, col_index)
	)`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) ReadAll(ctx context.Context, collection string) (interfaces.Table, error) {
	const query = `SELECT row_index, col_index, value FROM sheet_cells
		WHERE collection = $1 ORDER BY row_index, col_index`

	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return interfaces.Table{}, err
	}
	defer rows.Close()

	var grid [][]string
	for rows.Next() {
		var rowIdx, colIdx int
		var value string
		if err := rows.Scan(&rowIdx, &colIdx, &value); err != nil {
			return interfaces.Table{}, err
		}
		for len(grid) < rowIdx {
			grid = append(grid, nil)
		}
		for len(grid[rowIdx-1]) < colIdx {
			grid[rowIdx-1] = append(grid[rowIdx-1], "")
		}
		grid[rowIdx-1][colIdx-1] = value
	}
	if err := rows.Err(); err != nil {
		return interfaces.Table{}, err
	}
	if len(grid) == 0 {
		return interfaces.Table{}, fmt.Errorf("%q: %w", collection, interfaces.ErrCollectionNotFound)
	}

	return interfaces.Table{Header: grid[0], Rows: grid[1:]}, nil
}

func (s *Store) UpdateCell(ctx context.Context, collection string, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("cell (%d,%d) out of range: indexes are 1-based", row, col)
	}
	const query = `INSERT INTO sheet_cells (collection, row_index, col_index, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, row_index, col_index) DO UPDATE SET value = EXCLUDED.value`

	_, err := s.db.ExecContext(ctx, query, collection, row, col, value)
	return err
}

func (s *Store) AppendRow(ctx context.Context, collection string, values []string) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	// Next row index is decided inside the transaction so two appends
	// cannot land on the same row.
	var next int
	err = dbTx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_index), 0) + 1 FROM sheet_cells WHERE collection = $1`,
		collection).Scan(&next)
	if err != nil {
		return err
	}

	const insert = `INSERT INTO sheet_cells (collection, row_index, col_index, value)
		VALUES ($1, $2, $3, $4)`
	for i, v := range values {
		if _, err = dbTx.ExecContext(ctx, insert, collection, next, i+1, v); err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT collection FROM sheet_cells ORDER BY collection`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

var _ interfaces.Store = (*Store)(nil)
