package models

// AccountID names one of the two tracked cash accounts.
type AccountID string

const (
	// AccountWallet is the day-to-day cash account.
	AccountWallet AccountID = "wallet"
	// AccountSavings is the savings jar.
	AccountSavings AccountID = "savings"
)

// Valid reports whether the id names a known account.
func (a AccountID) Valid() bool {
	return a == AccountWallet || a == AccountSavings
}
