package models

import "github.com/shopspring/decimal"

// LabelUnknown is the sentinel label marking a row that must be excluded
// from every computation and mutation.
const LabelUnknown = "???"

// DenominationRecord is one row of an account's inventory: a single note or
// coin face value and the quantity on hand.
//
// Row is the stable 0-based position of the record among the collection's
// data rows. Identity is by position, not by label or sort order.
type DenominationRecord struct {
	Row       int
	Label     string
	FaceValue decimal.Decimal
	UnitCount int
	// Skip marks sentinel or blank labels. Skipped rows contribute nothing
	// to totals and reject no deltas; they are simply invisible to the core.
	Skip bool
}

// Subtotal returns FaceValue * UnitCount for this row.
func (d DenominationRecord) Subtotal() decimal.Decimal {
	return d.FaceValue.Mul(decimal.NewFromInt(int64(d.UnitCount)))
}
