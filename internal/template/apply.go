package template

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldo-dev/saldo/internal/ledger"
	"github.com/saldo-dev/saldo/internal/model"
)

// ApplyInput holds the business-event parameters resolved against a template.
type ApplyInput struct {
	Amount        decimal.Decimal
	Date          time.Time
	Description   string
	PartnerID     string
	PartnerName   string
	CustomAmounts map[string]decimal.Decimal // keyed by template line ID
}

// Draft is the result of applying a template: a fully resolved but not yet
// stored set of lines. The caller must refuse to materialize it when Balanced
// is false.
type Draft struct {
	TemplateCode string
	Date         time.Time
	Description  string
	Lines        []model.TransactionLine
	TotalDebit   decimal.Decimal
	TotalCredit  decimal.Decimal
	Balanced     bool
}

// Apply resolves the template against an input amount. It is a pure
// calculator: it never fails, it only reports imbalance via Draft.Balanced.
func (t *Template) Apply(in ApplyInput) Draft {
	lines := make([]model.TransactionLine, 0, len(t.Lines))
	for _, tl := range t.Lines {
		amount := resolveAmount(tl, in)

		line := model.TransactionLine{
			AccountCode: tl.AccountCode,
			Side:        tl.Side,
			Amount:      amount,
			Description: in.Description,
		}
		if tl.PartnerSide != PartnerNone {
			line.PartnerID = in.PartnerID
			line.PartnerName = in.PartnerName
		}
		lines = append(lines, line)
	}

	totalDebit, totalCredit := ledger.DeriveTotals(lines)
	return Draft{
		TemplateCode: t.Code,
		Date:         in.Date,
		Description:  in.Description,
		Lines:        lines,
		TotalDebit:   totalDebit,
		TotalCredit:  totalCredit,
		Balanced:     ledger.Balanced(totalDebit, totalCredit),
	}
}

// resolveAmount computes one line amount, rounded to 2 decimals
// half-away-from-zero.
func resolveAmount(tl Line, in ApplyInput) decimal.Decimal {
	var amount decimal.Decimal
	switch tl.Source {
	case SourceCustom:
		custom, ok := in.CustomAmounts[tl.ID]
		if !ok {
			// Missing custom amount degrades to the full input amount.
			custom = in.Amount
		}
		amount = custom
	case SourcePercent:
		amount = in.Amount.Mul(tl.Percent.Decimal).Div(hundred)
	default: // SourceTotal
		amount = in.Amount
	}
	return amount.Round(2)
}
