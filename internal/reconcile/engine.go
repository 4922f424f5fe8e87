// Package reconcile resolves a raw transaction against an account's
// denomination inventory: it derives the final amount, validates every
// proposed unit delta, and applies the resulting stock mutations as a set.
package reconcile

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jortegab/cash-denomination-ledger/internal/interfaces"
	"github.com/jortegab/cash-denomination-ledger/internal/models"
	"github.com/jortegab/cash-denomination-ledger/internal/valuation"
)

// WarningCode distinguishes the non-fatal conditions a reconciliation can
// surface while still completing.
type WarningCode string

const (
	// WarnHistoryOnly: stock update was requested but no breakdown was
	// given, so only the history will record the movement.
	WarnHistoryOnly WarningCode = "history_only"
	// WarnInsufficientTendered: the cash handed over does not cover the
	// amount; change due is negative.
	WarnInsufficientTendered WarningCode = "insufficient_tendered"
)

type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// Result is a fully resolved, already-applied reconciliation.
type Result struct {
	FinalAmount  decimal.Decimal
	SignedAmount decimal.Decimal

	// ChangeDue is nil unless the movement is an expense with cash tendered.
	ChangeDue *decimal.Decimal

	PriorBalance     decimal.Decimal
	ResultingBalance decimal.Decimal

	// StockDelta is the monetary value of the units actually moved, signed
	// by the raw breakdown deltas. Informational only.
	StockDelta decimal.Decimal

	// StockUpdated reports whether any inventory cell was written.
	StockUpdated bool

	Warnings []Warning
}

// Engine validates and applies reconciliations against one Store.
type Engine struct {
	store interfaces.Store
	log   *zap.Logger
}

func New(store interfaces.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log}
}

type plannedUpdate struct {
	rec      models.DenominationRecord
	newCount int
}

// Reconcile reads the account's inventory from the named collection,
// resolves the transaction amount, validates the whole breakdown and, only
// if every row passes, writes the new counts back. An invalid transaction
// leaves the store untouched.
func (e *Engine) Reconcile(ctx context.Context, collection string, tx models.Transaction) (*Result, error) {
	table, err := e.store.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	inventory := valuation.InventoryFromTable(table)
	priorBalance := valuation.AccountTotal(inventory)

	byRow := make(map[int]models.DenominationRecord, len(inventory))
	for _, rec := range inventory {
		byRow[rec.Row] = rec
	}

	// The breakdown counts units moved, not signed money, so the derived
	// value always uses the absolute delta.
	breakdownValue := decimal.Zero
	for row, delta := range tx.Breakdown {
		rec, ok := byRow[row]
		if !ok || rec.Skip || delta == 0 {
			continue
		}
		abs := delta
		if abs < 0 {
			abs = -abs
		}
		breakdownValue = breakdownValue.Add(rec.FaceValue.Mul(decimal.NewFromInt(int64(abs))))
	}

	finalAmount := tx.StatedAmount
	if finalAmount.IsZero() {
		if breakdownValue.IsPositive() {
			finalAmount = breakdownValue
		} else {
			return nil, ErrInvalidAmount
		}
	}

	result := &Result{
		FinalAmount:  finalAmount,
		PriorBalance: priorBalance,
	}
	if tx.Kind == models.Expense {
		result.SignedAmount = finalAmount.Neg()
	} else {
		result.SignedAmount = finalAmount
	}
	result.ResultingBalance = priorBalance.Add(result.SignedAmount)

	if tx.UpdateStock && len(tx.Breakdown) == 0 {
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarnHistoryOnly,
			Message: "no denominations marked; the movement is recorded in the history but the stock is unchanged",
		})
	}

	// Validate every row before the first write: an invalid breakdown must
	// not be partially applied.
	var planned []plannedUpdate
	for _, rec := range inventory {
		delta, ok := tx.Breakdown[rec.Row]
		if !ok || rec.Skip || delta == 0 || !tx.UpdateStock {
			continue
		}
		// A positive delta adds units on income and removes them on an
		// expense.
		realDelta := delta
		if tx.Kind == models.Expense {
			realDelta = -delta
		}
		newCount := rec.UnitCount + realDelta
		if newCount < 0 {
			return nil, &InsufficientStockError{
				Row:   rec.Row,
				Label: rec.Label,
				Have:  rec.UnitCount,
				Need:  -realDelta,
			}
		}
		planned = append(planned, plannedUpdate{rec: rec, newCount: newCount})
		result.StockDelta = result.StockDelta.Add(rec.FaceValue.Mul(decimal.NewFromInt(int64(delta))))
	}

	for _, p := range planned {
		sheetRow := p.rec.Row + 2 // header occupies row 1
		if err := e.store.UpdateCell(ctx, collection, sheetRow, valuation.ColUnitCount, strconv.Itoa(p.newCount)); err != nil {
			return nil, err
		}
		subtotal := p.rec.FaceValue.Mul(decimal.NewFromInt(int64(p.newCount)))
		if err := e.store.UpdateCell(ctx, collection, sheetRow, valuation.ColSubtotal, valuation.FormatAmount(subtotal)); err != nil {
			return nil, err
		}
		result.StockUpdated = true
	}

	if tx.Kind == models.Expense && tx.Tendered.IsPositive() {
		change := tx.Tendered.Sub(finalAmount)
		result.ChangeDue = &change
		if change.IsNegative() {
			result.Warnings = append(result.Warnings, Warning{
				Code:    WarnInsufficientTendered,
				Message: "tendered " + valuation.FormatAmount(tx.Tendered) + " does not cover " + valuation.FormatAmount(finalAmount),
			})
		}
	}

	e.log.Debug("reconciled movement",
		zap.String("collection", collection),
		zap.String("kind", string(tx.Kind)),
		zap.String("final_amount", finalAmount.String()),
		zap.Bool("stock_updated", result.StockUpdated),
	)
	return result, nil
}
