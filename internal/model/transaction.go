package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is one row of a bank export. Amount is signed from the
// account holder's side: negative for money out, positive for money in.
type BankTransaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Reference   string // bank reference, or one derived from date and description
	Type        string // bank's own transaction type, when exported
}

// IsDebit reports whether money left the account.
func (t BankTransaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// Outflow is the positive amount spent, or zero for money in.
func (t BankTransaction) Outflow() decimal.Decimal {
	if !t.IsDebit() {
		return decimal.Zero
	}
	return t.Amount.Neg()
}
