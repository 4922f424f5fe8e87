package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementRecorded is published after a movement has been reconciled and
// posted to the history.
type MovementRecorded struct {
	EntryID          string          `json:"entry_id"`
	Account          string          `json:"account"`
	SignedAmount     decimal.Decimal `json:"signed_amount"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	Note             string          `json:"note"`
	OccurredAt       time.Time       `json:"occurred_at"`
}
