// Package recon proposes pairings between fetched bank movements and open
// receivable/payable items. It computes scores only; realizing an accepted
// pairing as a transaction is the posting service's job.
package recon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/saldo-dev/saldo/internal/ledger"
	"github.com/saldo-dev/saldo/internal/model"
)

// Confidence points per signal.
const (
	scoreVariableSymbol = 40
	scoreAmountExact    = 30
	scoreAmountClose    = 20
	scorePartnerName    = 20
	scoreDirection      = 10

	// minConfidence is the retention cutoff for a candidate pair.
	minConfidence = 30
)

// PairingMatch is one scored candidate pairing. Ephemeral output, never
// persisted by the core.
type PairingMatch struct {
	Movement     model.BankMovement
	Item         model.OpenItem
	Confidence   int
	MatchReasons []string
}

// FindPairingMatches scores every (movement, open item) pair and returns the
// candidates with confidence >= 30, best first. Ties keep encounter order so
// results are reproducible.
func FindPairingMatches(movements []model.BankMovement, items []model.OpenItem) []PairingMatch {
	var matches []PairingMatch
	for _, mv := range movements {
		for _, item := range items {
			if item.Paid {
				continue
			}
			confidence, reasons := score(mv, item)
			if confidence < minConfidence {
				continue
			}
			matches = append(matches, PairingMatch{
				Movement:     mv,
				Item:         item,
				Confidence:   confidence,
				MatchReasons: reasons,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

var onePercent = decimal.RequireFromString("0.01")

// score sums the independent pairing signals. Reasons come out in the fixed
// order VS, amount, partner, direction.
func score(mv model.BankMovement, item model.OpenItem) (int, []string) {
	confidence := 0
	var reasons []string

	if symbolsMatch(mv.VariableSymbol, item.DocNumber) {
		confidence += scoreVariableSymbol
		reasons = append(reasons, fmt.Sprintf("variable symbol %s matches %s", mv.VariableSymbol, item.DocNumber))
	}

	diff := mv.Amount.Sub(item.Remaining).Abs()
	switch {
	case diff.LessThan(ledger.Tolerance):
		confidence += scoreAmountExact
		reasons = append(reasons, fmt.Sprintf("amount %s matches exactly", mv.Amount.StringFixed(2)))
	case !item.Remaining.IsZero() && diff.Div(item.Remaining.Abs()).LessThanOrEqual(onePercent):
		confidence += scoreAmountClose
		reasons = append(reasons, fmt.Sprintf("amount %s within 1%% of %s", mv.Amount.StringFixed(2), item.Remaining.StringFixed(2)))
	}

	if namesMatch(mv.CounterpartyName, item.PartnerName) {
		confidence += scorePartnerName
		reasons = append(reasons, fmt.Sprintf("counterparty %q matches partner %q", mv.CounterpartyName, item.PartnerName))
	}

	if directionsMatch(mv.Direction, item.Kind) {
		confidence += scoreDirection
		reasons = append(reasons, fmt.Sprintf("direction %s matches %s item", mv.Direction, item.Kind))
	}

	return confidence, reasons
}

// normalizeSymbol strips non-digits and leading zeros so "VS 0002025010" and
// "2025010" compare equal.
func normalizeSymbol(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "0")
}

func symbolsMatch(variableSymbol, docNumber string) bool {
	vs := normalizeSymbol(variableSymbol)
	doc := normalizeSymbol(docNumber)
	if vs == "" || doc == "" {
		return false
	}
	return vs == doc || strings.Contains(vs, doc) || strings.Contains(doc, vs)
}

func namesMatch(counterparty, partner string) bool {
	a := strings.ToLower(strings.TrimSpace(counterparty))
	b := strings.ToLower(strings.TrimSpace(partner))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func directionsMatch(d model.Direction, k model.ItemKind) bool {
	return (d == model.DirectionCredit && k == model.ItemIncome) ||
		(d == model.DirectionDebit && k == model.ItemExpense)
}
