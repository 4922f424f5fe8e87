package models

import "github.com/shopspring/decimal"

// Kind is the direction of a movement.
type Kind string

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

// Valid reports whether k is a known movement kind.
func (k Kind) Valid() bool {
	return k == Expense || k == Income
}

// Sign returns -1 for expenses and +1 for income.
func (k Kind) Sign() int {
	if k == Expense {
		return -1
	}
	return 1
}

// Transaction is an in-flight operator intent. It is never persisted as-is;
// reconciliation resolves it into a LedgerEntry.
type Transaction struct {
	Account AccountID
	Kind    Kind

	// StatedAmount is the operator-entered amount. Zero means "derive the
	// amount from the breakdown".
	StatedAmount decimal.Decimal

	// Tendered is the cash physically handed over. Only meaningful for an
	// expense; used to compute change due.
	Tendered decimal.Decimal

	// Breakdown maps an inventory row position to a signed unit-count delta
	// proposed by the operator for that denomination.
	Breakdown map[int]int

	// UpdateStock is the operator's request to apply the breakdown to the
	// inventory. A true value with an empty breakdown registers history only.
	UpdateStock bool

	Note string
}
