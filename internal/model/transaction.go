package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus represents the lifecycle state of a transaction.
type TxStatus string

const (
	StatusDraft  TxStatus = "draft"
	StatusPosted TxStatus = "posted"
	StatusLocked TxStatus = "locked"
)

// TransactionLine is a single row of a double-entry transaction. Amounts are
// always positive; direction is encoded by Side.
type TransactionLine struct {
	AccountCode string
	Side        Side
	Amount      decimal.Decimal
	PartnerID   string
	PartnerName string
	Description string
}

// Transaction is a balanced set of ledger lines. It is mutable only while
// DRAFT, becomes POSTED by an explicit post action, and LOCKED only through
// period closing. POSTED and LOCKED transactions are never deleted.
type Transaction struct {
	ID          string
	Number      string // e.g. "ID-202501-0004", unique per company
	Date        time.Time
	Description string
	Lines       []TransactionLine
	TotalDebit  decimal.Decimal // derived, cached
	TotalCredit decimal.Decimal // derived, cached
	Status      TxStatus
	Period      PeriodKey // derived from Date
	DocumentID  string
	TemplateID  string
	Version     int64 // optimistic-concurrency token
}
