// Package ledger provides pure validators over the double-entry data model.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/saldo-dev/saldo/internal/model"
)

// Tolerance is the maximum debit/credit difference still considered balanced
// (absorbs 2-decimal rounding).
var Tolerance = decimal.RequireFromString("0.01")

// ImbalanceError reports a transaction whose totals differ beyond Tolerance.
// Always fatal to the posting attempt, never auto-corrected.
type ImbalanceError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("transaction not balanced: debit %s != credit %s",
		e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2))
}

// DeriveTotals sums line amounts per side.
func DeriveTotals(lines []model.TransactionLine) (totalDebit, totalCredit decimal.Decimal) {
	totalDebit = decimal.Zero
	totalCredit = decimal.Zero
	for _, l := range lines {
		switch l.Side {
		case model.SideDebit:
			totalDebit = totalDebit.Add(l.Amount)
		case model.SideCredit:
			totalCredit = totalCredit.Add(l.Amount)
		}
	}
	return totalDebit, totalCredit
}

// Balanced reports whether the two totals agree within Tolerance.
func Balanced(totalDebit, totalCredit decimal.Decimal) bool {
	return totalDebit.Sub(totalCredit).Abs().LessThan(Tolerance)
}

// CheckTransaction enforces the structural invariants a transaction must hold
// before it may leave DRAFT: at least two lines, positive amounts, known
// sides, and balance.
func CheckTransaction(tx *model.Transaction) error {
	if len(tx.Lines) < 2 {
		return fmt.Errorf("transaction must have at least 2 lines, got %d", len(tx.Lines))
	}
	for i, l := range tx.Lines {
		if l.Side != model.SideDebit && l.Side != model.SideCredit {
			return fmt.Errorf("line %d: unknown side %q", i, l.Side)
		}
		if !l.Amount.IsPositive() {
			return fmt.Errorf("line %d: amount must be positive, got %s", i, l.Amount)
		}
		if l.AccountCode == "" {
			return fmt.Errorf("line %d: missing account code", i)
		}
	}
	totalDebit, totalCredit := DeriveTotals(tx.Lines)
	if !Balanced(totalDebit, totalCredit) {
		return &ImbalanceError{TotalDebit: totalDebit, TotalCredit: totalCredit}
	}
	return nil
}
