// Package memory provides an in-memory implementation of the tabular Store
// contract. It backs tests and dependency-free local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jortegab/cash-denomination-ledger/internal/interfaces"
)

// Store keeps every collection as a slice of rows, header first, exactly like
// the tabular contract exposes them. Safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	collections map[string][][]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{collections: make(map[string][][]string)}
}

// Seed creates or replaces a collection with the given header and rows.
// Intended for bootstrap and tests; not part of the Store contract.
func (s *Store) Seed(name string, header []string, rows ...[]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([][]string, 0, len(rows)+1)
	all = append(all, cloneRow(header))
	for _, r := range rows {
		all = append(all, cloneRow(r))
	}
	s.collections[name] = all
}

func (s *Store) ReadAll(ctx context.Context, collection string) (interfaces.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, ok := s.collections[collection]
	if !ok {
		return interfaces.Table{}, fmt.Errorf("%q: %w", collection, interfaces.ErrCollectionNotFound)
	}

	t := interfaces.Table{Header: cloneRow(all[0])}
	for _, r := range all[1:] {
		t.Rows = append(t.Rows, cloneRow(r))
	}
	return t, nil
}

func (s *Store) UpdateCell(ctx context.Context, collection string, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%q: %w", collection, interfaces.ErrCollectionNotFound)
	}
	if row < 1 || col < 1 {
		return fmt.Errorf("cell (%d,%d) out of range: indexes are 1-based", row, col)
	}
	if row > len(all) {
		return fmt.Errorf("row %d out of range in %q (%d rows)", row, collection, len(all))
	}
	// Grow the row if the column does not exist yet.
	for len(all[row-1]) < col {
		all[row-1] = append(all[row-1], "")
	}
	all[row-1][col-1] = value
	return nil
}

func (s *Store) AppendRow(ctx context.Context, collection string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%q: %w", collection, interfaces.ErrCollectionNotFound)
	}
	s.collections[collection] = append(all, cloneRow(values))
	return nil
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func cloneRow(r []string) []string {
	out := make([]string, len(r))
	copy(out, r)
	return out
}

var _ interfaces.Store = (*Store)(nil)
