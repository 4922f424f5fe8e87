package reconcile

import (
	"errors"
	"fmt"
)

// ErrInvalidAmount means no nonzero amount was entered and none could be
// derived from the breakdown.
var ErrInvalidAmount = errors.New("no amount entered and no breakdown to derive it from")

// InsufficientStockError identifies the denomination row whose proposed
// delta would drive its unit count below zero. The whole reconciliation is
// rejected before any write.
type InsufficientStockError struct {
	Row   int
	Label string
	Have  int
	Need  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of %s (row %d): have %d, need %d",
		e.Label, e.Row, e.Have, e.Need)
}
