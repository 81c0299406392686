package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/saldo-dev/saldo/internal/model"
)

// OpenItems derives the saldokonto: per partner and receivable/payable
// account, the unmatched balance of posted turnover up to and including the
// given period. Items with a zero remaining balance do not exist.
func (s *Store) OpenItems(ctx context.Context, companyID string, through model.PeriodKey) ([]model.OpenItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.account_code, l.partner_id, l.partner_name, l.side, l.amount, t.number
		FROM transaction_lines l
		JOIN transactions t ON t.id = l.tx_id
		WHERE t.company_id = ?
		  AND t.status IN ('posted', 'locked')
		  AND (l.account_code LIKE '311%' OR l.account_code LIKE '321%')
		  AND t.period <= ?
		ORDER BY t.date, t.number, l.line_no`,
		companyID, string(through))
	if err != nil {
		return nil, fmt.Errorf("reading open-item turnover: %w", err)
	}
	defer rows.Close()

	type key struct {
		partnerID   string
		accountCode string
	}
	balances := make(map[key]*model.OpenItem)
	var order []key

	for rows.Next() {
		var account, partnerID, partnerName, side, amountStr, number string
		if err := rows.Scan(&account, &partnerID, &partnerName, &side, &amountStr, &number); err != nil {
			return nil, fmt.Errorf("scanning turnover row: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", amountStr, err)
		}

		k := key{partnerID: partnerID, accountCode: account}
		item, ok := balances[k]
		if !ok {
			kind := model.ItemIncome // receivable: an inbound payment clears it
			if strings.HasPrefix(account, "321") {
				kind = model.ItemExpense
			}
			item = &model.OpenItem{
				PartnerID:   partnerID,
				PartnerName: partnerName,
				AccountCode: account,
				Kind:        kind,
				Amount:      decimal.Zero,
				Remaining:   decimal.Zero,
			}
			balances[k] = item
			order = append(order, k)
		}

		// Receivables grow on debit, payables on credit; the opposite side is
		// a settlement.
		growth := model.Side(side) == model.SideDebit
		if item.Kind == model.ItemExpense {
			growth = !growth
		}
		if growth {
			item.Amount = item.Amount.Add(amount)
			item.Remaining = item.Remaining.Add(amount)
			if item.DocNumber == "" {
				item.DocNumber = number
			}
		} else {
			item.Remaining = item.Remaining.Sub(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var items []model.OpenItem
	for _, k := range order {
		item := balances[k]
		if item.Remaining.IsZero() {
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

// CountOpenItems counts unmatched receivable/payable balances through the
// given period.
func (s *Store) CountOpenItems(ctx context.Context, companyID string, through model.PeriodKey) (int, error) {
	items, err := s.OpenItems(ctx, companyID, through)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
