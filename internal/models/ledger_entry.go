package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one immutable, append-only history record. Corrections are
// new entries; nothing in the core updates or deletes a posted entry.
type LedgerEntry struct {
	ID      string
	Account AccountID
	Date    time.Time // calendar-day granularity

	// SignedAmount carries the kind's sign: negative for expenses.
	SignedAmount decimal.Decimal

	// Tendered and ChangeDue are nil when not applicable, so readers can
	// tell "not applicable" from "zero".
	Tendered  *decimal.Decimal
	ChangeDue *decimal.Decimal

	// ResultingBalance is the affected account's total after the movement.
	ResultingBalance decimal.Decimal

	Note string
}
