package recon

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldo-dev/saldo/internal/model"
)

// Bank statement CSV layout. Amounts are signed in the feed; the sign is
// folded into Direction on parse.
const (
	feedDateFormat = "2006-01-02"
	feedNumFields  = 6
	feedColDate    = 0
	feedColAmount  = 1
	feedColCcy     = 2
	feedColDesc    = 3
	feedColParty   = 4
	feedColSymbol  = 5
)

// FeedHeader is the expected header row of a bank statement CSV.
const FeedHeader = "date,amount,currency,description,counterparty,variable_symbol"

// ReadFeed parses a bank statement CSV into BankMovements.
func ReadFeed(r io.Reader) ([]model.BankMovement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = feedNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading bank feed CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var movements []model.BankMovement
	for i, rec := range records[1:] {
		mv, err := parseFeedRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		movements = append(movements, mv)
	}
	return movements, nil
}

func parseFeedRow(rec []string) (model.BankMovement, error) {
	date, err := time.Parse(feedDateFormat, rec[feedColDate])
	if err != nil {
		return model.BankMovement{}, fmt.Errorf("parsing date %q: %w", rec[feedColDate], err)
	}

	amount, err := decimal.NewFromString(rec[feedColAmount])
	if err != nil {
		return model.BankMovement{}, fmt.Errorf("parsing amount %q: %w", rec[feedColAmount], err)
	}

	direction := model.DirectionCredit
	if amount.IsNegative() {
		direction = model.DirectionDebit
		amount = amount.Neg()
	}

	return model.BankMovement{
		Date:             date,
		Amount:           amount,
		Currency:         strings.ToUpper(rec[feedColCcy]),
		Direction:        direction,
		Description:      rec[feedColDesc],
		CounterpartyName: rec[feedColParty],
		VariableSymbol:   rec[feedColSymbol],
	}, nil
}
