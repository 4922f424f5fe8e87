// Package valuation converts between localized monetary text and decimal
// amounts, and derives account totals from denomination inventories.
//
// The text format is fixed: thousands grouped with '.', decimal separator
// ',', trailing euro symbol. Parsing is deliberately permissive — malformed
// input yields zero instead of an error, so a placeholder label can never
// abort a total computation.
package valuation

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jortegab/cash-denomination-ledger/internal/interfaces"
	"github.com/jortegab/cash-denomination-ledger/internal/models"
)

// Inventory column positions, 1-indexed per the store contract.
const (
	ColLabel     = 1
	ColUnitCount = 2
	ColSubtotal  = 3
)

// ParseAmount parses a string like "1.000,50 €" into 1000.50. The currency
// symbol, grouping dots and surrounding whitespace are stripped; the comma
// becomes the decimal point. Anything left that is not a number yields zero.
func ParseAmount(text string) decimal.Decimal {
	clean := strings.ReplaceAll(text, "€", "")
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatAmount renders an amount as "1.000,50 €". Two fixed decimal digits;
// negative amounts carry a leading minus. ParseAmount(FormatAmount(x)) == x
// for every x representable at two decimals.
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteByte(intPart[i])
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	b.WriteString(" €")
	return b.String()
}

// InventoryFromTable maps a raw inventory table to denomination records.
// Labels equal to the unknown sentinel, or blank, are marked Skip. A unit
// count that is not a plain non-negative integer contributes zero.
func InventoryFromTable(t interfaces.Table) []models.DenominationRecord {
	records := make([]models.DenominationRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		rec := models.DenominationRecord{Row: i}
		if len(row) >= ColLabel {
			rec.Label = strings.TrimSpace(row[ColLabel-1])
		}
		if rec.Label == "" || rec.Label == models.LabelUnknown {
			rec.Skip = true
			records = append(records, rec)
			continue
		}
		rec.FaceValue = ParseAmount(rec.Label)
		if len(row) >= ColUnitCount {
			if n, err := strconv.Atoi(strings.TrimSpace(row[ColUnitCount-1])); err == nil && n >= 0 {
				rec.UnitCount = n
			}
		}
		records = append(records, rec)
	}
	return records
}

// AccountTotal sums FaceValue * UnitCount over all non-skipped rows.
func AccountTotal(inventory []models.DenominationRecord) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range inventory {
		if rec.Skip {
			continue
		}
		total = total.Add(rec.Subtotal())
	}
	return total
}
