package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldo-dev/saldo/internal/model"
)

// Entity is the closed set of things the engine can validate. The unexported
// method keeps the set closed so Validate can switch exhaustively.
type Entity interface {
	entityKind() string
}

// TransactionEntity is a transaction about to be posted, together with the
// status of the period its date falls in.
type TransactionEntity struct {
	Tx           model.Transaction
	PeriodStatus model.PeriodStatus
}

func (TransactionEntity) entityKind() string { return "transaction" }

// DocumentEntity is extracted invoice data before entry creation.
type DocumentEntity struct {
	DocumentID string
	Confidence float64 // extraction confidence, 0..1
	Amount     decimal.Decimal
	HasAmount  bool
	Date       time.Time
	HasDate    bool
	PartnerID  string
}

func (DocumentEntity) entityKind() string { return "document" }

// PairingEntity is a proposed bank pairing before confirmation.
type PairingEntity struct {
	Movement   model.BankMovement
	Item       model.OpenItem
	Confidence int
	Note       string
}

func (PairingEntity) entityKind() string { return "bank_pairing" }

// ClosingEntity carries the closing-readiness aggregates for a period.
type ClosingEntity struct {
	Period          model.PeriodKey
	Status          model.PeriodStatus
	DraftCount      int
	OpenItemCount   int
	UnprocessedDocs int
}

func (ClosingEntity) entityKind() string { return "period_closing" }
