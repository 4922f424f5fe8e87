package interfaces

import (
	"context"
	"errors"
)

// ErrCollectionNotFound is returned by ReadAll when the named collection
// does not exist in the store.
var ErrCollectionNotFound = errors.New("collection not found")

// Table is the raw contents of one collection: a header row plus the data
// rows, all text-encoded.
type Table struct {
	Header []string
	Rows   [][]string
}

// Store is a named-collection tabular service. Row and column indexes are
// 1-based; the header occupies row 1 and the first data row is row 2.
type Store interface {
	ReadAll(ctx context.Context, collection string) (Table, error)
	UpdateCell(ctx context.Context, collection string, row, col int, value string) error
	AppendRow(ctx context.Context, collection string, values []string) error
	ListCollections(ctx context.Context) ([]string, error)
}
