// Package ledger appends resolved movements to the append-only history
// collection. Entries are written display-formatted; absent optional fields
// are recorded as an explicit "-" marker so readers can tell "not
// applicable" from "zero".
package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jortegab/cash-denomination-ledger/internal/interfaces"
	"github.com/jortegab/cash-denomination-ledger/internal/models"
	"github.com/jortegab/cash-denomination-ledger/internal/valuation"
)

// Placeholder marks a history column that does not apply to the entry.
const Placeholder = "-"

// dateLayout is the history date format: day/month/two-digit year.
const dateLayout = "02/01/06"

// HistoryTargetMissingError reports that neither an exact nor a fuzzy match
// resolved the history collection. Available lists the collections that do
// exist, for operator diagnosis.
type HistoryTargetMissingError struct {
	Want      string
	Available []string
}

func (e *HistoryTargetMissingError) Error() string {
	return "history collection " + e.Want + " not found (available: " +
		strings.Join(e.Available, ", ") + ")"
}

// ResolveTarget picks the history collection: the exact name when present,
// otherwise the first collection whose name contains every fragment of the
// wanted name (split on '/' and spaces, case-insensitive). The fallback
// tolerates collections renamed across deployments.
func ResolveTarget(names []string, want string) (string, bool) {
	for _, name := range names {
		if name == want {
			return name, true
		}
	}

	fragments := strings.FieldsFunc(strings.ToLower(want), func(r rune) bool {
		return r == '/' || r == ' '
	})
	if len(fragments) == 0 {
		return "", false
	}
	for _, name := range names {
		lower := strings.ToLower(name)
		all := true
		for _, frag := range fragments {
			if !strings.Contains(lower, frag) {
				all = false
				break
			}
		}
		if all {
			return name, true
		}
	}
	return "", false
}

// Poster appends ledger entries to the history collection.
type Poster struct {
	store   interfaces.Store
	history string
	log     *zap.Logger
}

func NewPoster(store interfaces.Store, historyCollection string, log *zap.Logger) *Poster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poster{store: store, history: historyCollection, log: log}
}

// HistoryCollection returns the configured history collection name, before
// any fuzzy resolution.
func (p *Poster) HistoryCollection() string { return p.history }

// Post appends one immutable row for the entry. The caller must treat a
// failure here as possibly following a successful stock mutation; there is
// no compensating rollback.
func (p *Poster) Post(ctx context.Context, entry models.LedgerEntry) error {
	names, err := p.store.ListCollections(ctx)
	if err != nil {
		return err
	}
	target, ok := ResolveTarget(names, p.history)
	if !ok {
		return &HistoryTargetMissingError{Want: p.history, Available: names}
	}

	row := []string{
		entry.Date.Format(dateLayout),
		valuation.FormatAmount(entry.SignedAmount),
		optional(entry.Tendered),
		optional(entry.ChangeDue),
		valuation.FormatAmount(entry.ResultingBalance),
		entry.Note,
	}
	if err := p.store.AppendRow(ctx, target, row); err != nil {
		return err
	}

	p.log.Info("posted ledger entry",
		zap.String("entry_id", entry.ID),
		zap.String("collection", target),
		zap.String("signed_amount", entry.SignedAmount.String()),
	)
	return nil
}

func optional(d *decimal.Decimal) string {
	if d == nil {
		return Placeholder
	}
	return valuation.FormatAmount(*d)
}
