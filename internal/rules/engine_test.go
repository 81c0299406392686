package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saldo-dev/saldo/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(account string, side model.Side, amount string) model.TransactionLine {
	return model.TransactionLine{AccountCode: account, Side: side, Amount: dec(amount)}
}

var testCtx = Context{
	CompanyID:  "co-1",
	Period:     "2025-01",
	UserID:     "u-1",
	Thresholds: DefaultThresholds(),
}

func hitCodes(hits []Hit) []string {
	codes := make([]string, len(hits))
	for i, h := range hits {
		codes[i] = h.Code
	}
	return codes
}

func TestValidate_Transaction_Unbalanced(t *testing.T) {
	e := TransactionEntity{
		Tx: model.Transaction{
			Period: "2025-01",
			Lines: []model.TransactionLine{
				line("311", model.SideDebit, "100.00"),
				line("602", model.SideCredit, "90.00"),
			},
		},
		PeriodStatus: model.PeriodOpen,
	}

	r := Engine{}.Validate(e, testCtx)
	assert.False(t, r.OK())
	assert.Contains(t, hitCodes(r.Blocks), "TX_UNBALANCED")
}

func TestValidate_Transaction_PeriodNotOpen(t *testing.T) {
	e := TransactionEntity{
		Tx: model.Transaction{
			Period: "2025-01",
			Lines: []model.TransactionLine{
				{AccountCode: "311", Side: model.SideDebit, Amount: dec("100.00"), PartnerID: "p-1"},
				line("602", model.SideCredit, "100.00"),
			},
		},
		PeriodStatus: model.PeriodLocked,
	}

	r := Engine{}.Validate(e, testCtx)
	assert.False(t, r.OK())
	assert.Contains(t, hitCodes(r.Blocks), "TX_PERIOD_NOT_OPEN")
}

func TestValidate_Transaction_MissingPartnerWarns(t *testing.T) {
	e := TransactionEntity{
		Tx: model.Transaction{
			Period: "2025-01",
			Lines: []model.TransactionLine{
				line("311", model.SideDebit, "100.00"), // no partner
				line("602", model.SideCredit, "100.00"),
			},
		},
		PeriodStatus: model.PeriodOpen,
	}

	r := Engine{}.Validate(e, testCtx)
	assert.True(t, r.OK())
	assert.False(t, r.Clean())
	assert.Equal(t, []string{"TX_MISSING_PARTNER"}, r.WarnCodes())
}

func TestValidate_Transaction_CleanHasOnlyInfo(t *testing.T) {
	e := TransactionEntity{
		Tx: model.Transaction{
			Period: "2025-01",
			Lines: []model.TransactionLine{
				{AccountCode: "311", Side: model.SideDebit, Amount: dec("120.00"), PartnerID: "p-1"},
				line("602", model.SideCredit, "120.00"),
			},
		},
		PeriodStatus: model.PeriodOpen,
	}

	r := Engine{}.Validate(e, testCtx)
	assert.True(t, r.Clean())
	assert.NotEmpty(t, r.Infos)
}

func TestValidate_Document_ConfidenceThresholds(t *testing.T) {
	base := DocumentEntity{
		HasAmount: true,
		HasDate:   true,
		Amount:    dec("50.00"),
		Date:      time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		PartnerID: "p-1",
	}

	tests := []struct {
		name       string
		confidence float64
		wantBlock  bool
		wantWarn   bool
	}{
		{"high confidence passes", 0.95, false, false},
		{"mid confidence warns", 0.55, false, true},
		{"low confidence blocks", 0.20, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			e.Confidence = tt.confidence
			r := Engine{}.Validate(e, testCtx)
			assert.Equal(t, tt.wantBlock, len(r.Blocks) > 0)
			assert.Equal(t, tt.wantWarn, len(r.Warnings) > 0)
		})
	}
}

func TestValidate_Document_MissingFieldsBlock(t *testing.T) {
	e := DocumentEntity{Confidence: 0.99}
	r := Engine{}.Validate(e, testCtx)
	codes := hitCodes(r.Blocks)
	assert.Contains(t, codes, "DOC_MISSING_AMOUNT")
	assert.Contains(t, codes, "DOC_MISSING_DATE")
}

func TestValidate_Pairing_PartialWithoutNoteWarns(t *testing.T) {
	e := PairingEntity{
		Movement:   model.BankMovement{Amount: dec("50.00"), Direction: model.DirectionCredit},
		Item:       model.OpenItem{Remaining: dec("120.00"), Kind: model.ItemIncome},
		Confidence: 80,
	}

	r := Engine{}.Validate(e, testCtx)
	assert.Contains(t, r.WarnCodes(), "PAIR_PARTIAL_NO_NOTE")
}

func TestValidate_Pairing_PartialWithNotePasses(t *testing.T) {
	e := PairingEntity{
		Movement:   model.BankMovement{Amount: dec("50.00"), Direction: model.DirectionCredit},
		Item:       model.OpenItem{Remaining: dec("120.00"), Kind: model.ItemIncome},
		Confidence: 80,
		Note:       "first installment per agreement",
	}

	r := Engine{}.Validate(e, testCtx)
	assert.NotContains(t, r.WarnCodes(), "PAIR_PARTIAL_NO_NOTE")
}

func TestValidate_Closing_DraftsBlock(t *testing.T) {
	e := ClosingEntity{
		Period:     "2025-01",
		Status:     model.PeriodOpen,
		DraftCount: 2,
	}

	r := Engine{}.Validate(e, testCtx)
	assert.False(t, r.OK())
	assert.Contains(t, hitCodes(r.Blocks), "CLOSE_DRAFTS_EXIST")
}

func TestValidate_Closing_OpenItemsWarn(t *testing.T) {
	e := ClosingEntity{
		Period:        "2025-01",
		Status:        model.PeriodOpen,
		OpenItemCount: 3,
	}

	r := Engine{}.Validate(e, testCtx)
	assert.True(t, r.OK())
	assert.Contains(t, r.WarnCodes(), "CLOSE_OPEN_ITEMS")
}

func TestValidate_Closing_AlreadyLockedBlocks(t *testing.T) {
	e := ClosingEntity{Period: "2025-01", Status: model.PeriodLocked}

	r := Engine{}.Validate(e, testCtx)
	assert.Contains(t, hitCodes(r.Blocks), "CLOSE_ALREADY_LOCKED")
}

func TestValidate_Deterministic(t *testing.T) {
	e := ClosingEntity{
		Period:          "2025-02",
		Status:          model.PeriodOpen,
		DraftCount:      1,
		OpenItemCount:   2,
		UnprocessedDocs: 3,
	}

	first := Engine{}.Validate(e, testCtx)
	second := Engine{}.Validate(e, testCtx)
	require.Equal(t, first, second)
}
