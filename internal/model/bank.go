package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the bank-side direction of a movement: CREDIT is money in,
// DEBIT is money out.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// ItemKind classifies an open item by cash-flow direction.
type ItemKind string

const (
	ItemIncome  ItemKind = "income"
	ItemExpense ItemKind = "expense"
)

// BankMovement is one externally fetched bank statement row. The core only
// consumes these; fetching and token exchange happen outside.
type BankMovement struct {
	Date             time.Time
	Amount           decimal.Decimal // always positive, see Direction
	Currency         string
	Direction        Direction
	Description      string
	CounterpartyName string
	VariableSymbol   string
}

// OpenItem is a per-partner receivable or payable balance not yet fully
// offset by payments. It is derived from ledger turnover, never stored.
type OpenItem struct {
	PartnerID   string
	PartnerName string
	AccountCode string // 311 receivable / 321 payable
	DocNumber   string
	Kind        ItemKind
	Amount      decimal.Decimal // original amount
	Remaining   decimal.Decimal // unmatched balance, nonzero while open
	Note        string
	Paid        bool
}
