package rules

import (
	"fmt"
	"strings"

	"github.com/saldo-dev/saldo/internal/ledger"
	"github.com/saldo-dev/saldo/internal/model"
)

// Engine evaluates entities against the built-in rule sets. It holds no state;
// for identical entity data and context, Validate returns identical hits.
type Engine struct{}

// Validate runs the rule set for the entity's kind and returns every finding.
func (Engine) Validate(entity Entity, ctx Context) Result {
	var r Result
	switch e := entity.(type) {
	case TransactionEntity:
		checkTransaction(&r, e)
	case DocumentEntity:
		checkDocument(&r, e, ctx.Thresholds)
	case PairingEntity:
		checkPairing(&r, e)
	case ClosingEntity:
		checkClosing(&r, e)
	}
	return r
}

// partnerAccount reports whether an account code is a receivable/payable
// (saldokonto) account that needs a partner on every line.
func partnerAccount(code string) bool {
	return strings.HasPrefix(code, "311") || strings.HasPrefix(code, "321")
}

func checkTransaction(r *Result, e TransactionEntity) {
	if len(e.Tx.Lines) < 2 {
		r.add(Hit{
			Code:          "TX_TOO_FEW_LINES",
			Severity:      SeverityBlock,
			Title:         "Neúplný doklad",
			Message:       fmt.Sprintf("transaction has %d line(s), at least 2 required", len(e.Tx.Lines)),
			FixSuggestion: "Add the missing counter-entry line.",
		})
	}

	totalDebit, totalCredit := ledger.DeriveTotals(e.Tx.Lines)
	if !ledger.Balanced(totalDebit, totalCredit) {
		r.add(Hit{
			Code:     "TX_UNBALANCED",
			Severity: SeverityBlock,
			Title:    "Nevyrovnaný doklad",
			Message: fmt.Sprintf("debit total %s does not equal credit total %s",
				totalDebit.StringFixed(2), totalCredit.StringFixed(2)),
			FixSuggestion: "Adjust line amounts so both sides match.",
		})
	}

	switch e.PeriodStatus {
	case model.PeriodOpen, model.PeriodClosing:
	default:
		r.add(Hit{
			Code:          "TX_PERIOD_NOT_OPEN",
			Severity:      SeverityBlock,
			Title:         "Obdobie je uzavreté",
			Message:       fmt.Sprintf("period %s is %s", e.Tx.Period, e.PeriodStatus),
			FixSuggestion: "Date the transaction into an open period or unlock the period.",
			GuideLink:     "guides/period-closing",
		})
	}

	for i, l := range e.Tx.Lines {
		if partnerAccount(l.AccountCode) && l.PartnerID == "" {
			r.add(Hit{
				Code:          "TX_MISSING_PARTNER",
				Severity:      SeverityWarn,
				Title:         "Chýba partner",
				Message:       fmt.Sprintf("line %d books account %s without a partner", i+1, l.AccountCode),
				FixSuggestion: "Select the customer or supplier the open item belongs to.",
			})
		}
	}

	r.add(Hit{
		Code:     "TX_SUMMARY",
		Severity: SeverityInfo,
		Title:    "Súhrn dokladu",
		Message: fmt.Sprintf("%d lines, debit %s / credit %s",
			len(e.Tx.Lines), totalDebit.StringFixed(2), totalCredit.StringFixed(2)),
	})
}

func checkDocument(r *Result, e DocumentEntity, th Thresholds) {
	if !e.HasAmount {
		r.add(Hit{
			Code:          "DOC_MISSING_AMOUNT",
			Severity:      SeverityBlock,
			Title:         "Chýba suma",
			Message:       "no amount could be extracted from the document",
			FixSuggestion: "Enter the amount manually.",
		})
	}
	if !e.HasDate {
		r.add(Hit{
			Code:          "DOC_MISSING_DATE",
			Severity:      SeverityBlock,
			Title:         "Chýba dátum",
			Message:       "no date could be extracted from the document",
			FixSuggestion: "Enter the document date manually.",
		})
	}

	switch {
	case e.Confidence < th.DocumentBlock:
		r.add(Hit{
			Code:          "DOC_LOW_CONFIDENCE",
			Severity:      SeverityBlock,
			Title:         "Nízka spoľahlivosť extrakcie",
			Message:       fmt.Sprintf("extraction confidence %.0f%% is below the %.0f%% minimum", e.Confidence*100, th.DocumentBlock*100),
			FixSuggestion: "Verify every extracted field against the original document.",
		})
	case e.Confidence < th.DocumentWarn:
		r.add(Hit{
			Code:          "DOC_LOW_CONFIDENCE",
			Severity:      SeverityWarn,
			Title:         "Nízka spoľahlivosť extrakcie",
			Message:       fmt.Sprintf("extraction confidence %.0f%% is below the %.0f%% threshold", e.Confidence*100, th.DocumentWarn*100),
			FixSuggestion: "Check the extracted fields before creating the entry.",
		})
	}

	if e.PartnerID == "" {
		r.add(Hit{
			Code:     "DOC_NO_PARTNER",
			Severity: SeverityInfo,
			Title:    "Partner nerozpoznaný",
			Message:  "no partner was matched for this document",
		})
	}
}

func checkPairing(r *Result, e PairingEntity) {
	partial := !e.Movement.Amount.Sub(e.Item.Remaining).Abs().LessThan(ledger.Tolerance)
	if partial && e.Note == "" {
		r.add(Hit{
			Code:     "PAIR_PARTIAL_NO_NOTE",
			Severity: SeverityWarn,
			Title:    "Čiastočná úhrada bez poznámky",
			Message: fmt.Sprintf("payment %s differs from open balance %s and no note explains the difference",
				e.Movement.Amount.StringFixed(2), e.Item.Remaining.StringFixed(2)),
			FixSuggestion: "Add a note describing the partial payment.",
		})
	}

	if e.Confidence < 60 {
		r.add(Hit{
			Code:          "PAIR_LOW_CONFIDENCE",
			Severity:      SeverityWarn,
			Title:         "Neistá zhoda",
			Message:       fmt.Sprintf("pairing confidence is only %d", e.Confidence),
			FixSuggestion: "Verify the counterparty and variable symbol before confirming.",
		})
	}

	r.add(Hit{
		Code:     "PAIR_SUMMARY",
		Severity: SeverityInfo,
		Title:    "Súhrn párovania",
		Message: fmt.Sprintf("%s %s vs %s, confidence %d",
			e.Movement.Direction, e.Movement.Amount.StringFixed(2), e.Item.DocNumber, e.Confidence),
	})
}

func checkClosing(r *Result, e ClosingEntity) {
	if e.Status == model.PeriodLocked {
		r.add(Hit{
			Code:          "CLOSE_ALREADY_LOCKED",
			Severity:      SeverityBlock,
			Title:         "Obdobie je už uzamknuté",
			Message:       fmt.Sprintf("period %s is already locked", e.Period),
			FixSuggestion: "Unlock the period first if it must be reopened.",
			GuideLink:     "guides/period-closing",
		})
	}

	if e.DraftCount > 0 {
		r.add(Hit{
			Code:          "CLOSE_DRAFTS_EXIST",
			Severity:      SeverityBlock,
			Title:         "Rozpracované doklady",
			Message:       fmt.Sprintf("%d draft transaction(s) remain in period %s", e.DraftCount, e.Period),
			FixSuggestion: "Post or delete every draft before closing.",
			GuideLink:     "guides/period-closing",
		})
	}

	if e.OpenItemCount > 0 {
		r.add(Hit{
			Code:          "CLOSE_OPEN_ITEMS",
			Severity:      SeverityWarn,
			Title:         "Otvorené položky",
			Message:       fmt.Sprintf("%d unmatched receivable/payable item(s) touch period %s", e.OpenItemCount, e.Period),
			FixSuggestion: "Pair outstanding payments or accept the open balances.",
		})
	}

	if e.UnprocessedDocs > 0 {
		r.add(Hit{
			Code:          "CLOSE_UNPROCESSED_DOCS",
			Severity:      SeverityWarn,
			Title:         "Nespracované doklady",
			Message:       fmt.Sprintf("%d inbound document(s) await processing", e.UnprocessedDocs),
			FixSuggestion: "Process or dismiss the pending documents.",
		})
	}

	r.add(Hit{
		Code:     "CLOSE_SUMMARY",
		Severity: SeverityInfo,
		Title:    "Pripravenosť na uzávierku",
		Message: fmt.Sprintf("drafts: %d, open items: %d, unprocessed documents: %d",
			e.DraftCount, e.OpenItemCount, e.UnprocessedDocs),
	})
}
