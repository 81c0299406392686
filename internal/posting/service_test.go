package posting

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saldo-dev/saldo/internal/audit"
	"github.com/saldo-dev/saldo/internal/ledger"
	"github.com/saldo-dev/saldo/internal/model"
	"github.com/saldo-dev/saldo/internal/recon"
	"github.com/saldo-dev/saldo/internal/rules"
	"github.com/saldo-dev/saldo/internal/template"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

type mockStorage struct {
	periodStatus model.PeriodStatus
	nextSeq      int64
	transactions map[string]model.Transaction
	postCalls    int
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		periodStatus: model.PeriodOpen,
		transactions: make(map[string]model.Transaction),
	}
}

func (m *mockStorage) GetOrInitPeriod(_ context.Context, _ string, key model.PeriodKey) (model.Period, error) {
	return model.Period{Key: key, Status: m.periodStatus, Version: 1}, nil
}

func (m *mockStorage) NextNumber(_ context.Context, _, _ string, _ model.PeriodKey) (int64, error) {
	m.nextSeq++
	return m.nextSeq, nil
}

func (m *mockStorage) CreateTransaction(_ context.Context, _ string, tx *model.Transaction) error {
	tx.Version = 1
	m.transactions[tx.ID] = *tx
	return nil
}

func (m *mockStorage) GetTransaction(_ context.Context, _, id string) (model.Transaction, error) {
	tx, ok := m.transactions[id]
	if !ok {
		return model.Transaction{}, fmt.Errorf("transaction %s not found", id)
	}
	return tx, nil
}

func (m *mockStorage) PostTransaction(_ context.Context, _, id string, version int64) error {
	tx := m.transactions[id]
	if tx.Version != version {
		return errors.New("version conflict")
	}
	tx.Status = model.StatusPosted
	tx.Version++
	m.transactions[id] = tx
	m.postCalls++
	return nil
}

type mockRecorder struct {
	entries []audit.Entry
}

func (m *mockRecorder) Record(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func invoiceTemplate(t *testing.T) *template.Template {
	t.Helper()
	set, err := template.NewSet(template.Builtin(), chartStub{})
	require.NoError(t, err)
	tpl, ok := set.Get("invoice_issued")
	require.True(t, ok)
	return tpl
}

func pairingTemplate(t *testing.T) *template.Template {
	t.Helper()
	set, err := template.NewSet(template.Builtin(), chartStub{})
	require.NoError(t, err)
	tpl, ok := set.Get("payment_pairing")
	require.True(t, ok)
	return tpl
}

// chartStub accepts every account code; template validity is tested elsewhere.
type chartStub struct{}

func (chartStub) Exists(string) bool { return true }

func newTestService(st *mockStorage, rec *mockRecorder) *Service {
	return NewService(st, rec, rules.DefaultThresholds(), "ID", zerolog.Nop())
}

func TestCreateDraft_NumbersSequentiallyWithinPeriod(t *testing.T) {
	st := newMockStorage()
	svc := newTestService(st, &mockRecorder{})
	ctx := context.Background()
	tpl := invoiceTemplate(t)

	in := template.ApplyInput{
		Amount: dec("120.00"), Date: date(2025, 1, 15),
		Description: "Faktúra", PartnerID: "p-1", PartnerName: "Acme s.r.o.",
	}

	first, err := svc.CreateDraft(ctx, "co-1", tpl, in, "u-1")
	require.NoError(t, err)
	second, err := svc.CreateDraft(ctx, "co-1", tpl, in, "u-1")
	require.NoError(t, err)

	assert.Equal(t, "ID-202501-0001", first.Number)
	assert.Equal(t, "ID-202501-0002", second.Number)
	assert.Equal(t, model.StatusDraft, first.Status)
	assert.Equal(t, model.PeriodKey("2025-01"), first.Period)
	assert.Equal(t, "invoice_issued", first.TemplateID)
	assert.True(t, first.TotalDebit.Equal(first.TotalCredit))
}

func TestCreateDraft_RefusesLockedPeriod(t *testing.T) {
	st := newMockStorage()
	st.periodStatus = model.PeriodLocked
	svc := newTestService(st, &mockRecorder{})

	_, err := svc.CreateDraft(context.Background(), "co-1", invoiceTemplate(t), template.ApplyInput{
		Amount: dec("120.00"), Date: date(2025, 1, 15), PartnerID: "p-1",
	}, "u-1")

	var notOpen *model.PeriodNotOpenError
	require.True(t, errors.As(err, &notOpen))
	assert.Equal(t, model.PeriodLocked, notOpen.Status)
	assert.Empty(t, st.transactions)
}

func TestCreateDraft_RefusesUnbalancedCustomAmounts(t *testing.T) {
	st := newMockStorage()
	svc := newTestService(st, &mockRecorder{})

	tpl := &template.Template{
		Code: "manual",
		Lines: []template.Line{
			{ID: "a", Side: model.SideDebit, AccountCode: "221", Source: template.SourceCustom},
			{ID: "b", Side: model.SideCredit, AccountCode: "602", Source: template.SourceTotal},
		},
	}

	_, err := svc.CreateDraft(context.Background(), "co-1", tpl, template.ApplyInput{
		Amount: dec("100.00"), Date: date(2025, 1, 15),
		CustomAmounts: map[string]decimal.Decimal{"a": dec("90.00")},
	}, "u-1")

	var imbalance *ledger.ImbalanceError
	require.True(t, errors.As(err, &imbalance))
	assert.Empty(t, st.transactions)
}

func TestPost_CleanDraft(t *testing.T) {
	st := newMockStorage()
	rec := &mockRecorder{}
	svc := newTestService(st, rec)
	ctx := context.Background()

	draft, err := svc.CreateDraft(ctx, "co-1", invoiceTemplate(t), template.ApplyInput{
		Amount: dec("120.00"), Date: date(2025, 1, 15),
		PartnerID: "p-1", PartnerName: "Acme s.r.o.",
	}, "u-1")
	require.NoError(t, err)

	posted, err := svc.Post(ctx, "co-1", draft.ID, "u-1", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPosted, posted.Status)
	assert.Equal(t, draft.Version+1, posted.Version)
	assert.Empty(t, rec.entries, "clean posts must not write audit entries")
}

func TestPost_WarningRequiresOverride(t *testing.T) {
	st := newMockStorage()
	rec := &mockRecorder{}
	svc := newTestService(st, rec)
	ctx := context.Background()

	// No partner on a receivable line triggers the warning.
	draft, err := svc.CreateDraft(ctx, "co-1", invoiceTemplate(t), template.ApplyInput{
		Amount: dec("120.00"), Date: date(2025, 1, 15),
	}, "u-1")
	require.NoError(t, err)

	_, err = svc.Post(ctx, "co-1", draft.ID, "u-1", nil)
	var needsOverride *rules.OverrideRequiredError
	require.True(t, errors.As(err, &needsOverride))
	assert.Contains(t, needsOverride.Result.WarnCodes(), "TX_MISSING_PARTNER")

	assert.Equal(t, 0, st.postCalls, "refused post must not change status")
	assert.Empty(t, rec.entries)
	assert.Equal(t, model.StatusDraft, st.transactions[draft.ID].Status)
}

func TestPost_OverrideRecordsAuditExactlyOnce(t *testing.T) {
	st := newMockStorage()
	rec := &mockRecorder{}
	svc := newTestService(st, rec)
	ctx := context.Background()

	draft, err := svc.CreateDraft(ctx, "co-1", invoiceTemplate(t), template.ApplyInput{
		Amount: dec("120.00"), Date: date(2025, 1, 15),
	}, "u-1")
	require.NoError(t, err)

	posted, err := svc.Post(ctx, "co-1", draft.ID, "u-1",
		&rules.Override{UserID: "u-1", Note: "partner unknown, one-off sale"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPosted, posted.Status)

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, audit.TypeOverrideWarning, entry.Type)
	assert.Equal(t, []string{"TX_MISSING_PARTNER"}, entry.RuleCodes)
	assert.Equal(t, "u-1", entry.Actor)
	assert.Equal(t, "partner unknown, one-off sale", entry.Notes)
	assert.Equal(t, "transaction", entry.EntityType)
	assert.Equal(t, draft.ID, entry.EntityID)
	assert.Equal(t, draft.Number, entry.Ref)
}

func TestPost_BlockedInLockedPeriod(t *testing.T) {
	st := newMockStorage()
	rec := &mockRecorder{}
	svc := newTestService(st, rec)
	ctx := context.Background()

	draft, err := svc.CreateDraft(ctx, "co-1", invoiceTemplate(t), template.ApplyInput{
		Amount: dec("120.00"), Date: date(2025, 1, 15), PartnerID: "p-1",
	}, "u-1")
	require.NoError(t, err)

	// The period locks between draft creation and posting.
	st.periodStatus = model.PeriodLocked

	_, err = svc.Post(ctx, "co-1", draft.ID, "u-1", &rules.Override{UserID: "u-1"})
	var blocked *rules.BlockedError
	require.True(t, errors.As(err, &blocked))
	require.Len(t, blocked.Result.Blocks, 1)
	assert.Equal(t, "TX_PERIOD_NOT_OPEN", blocked.Result.Blocks[0].Code)

	// Overrides never bypass blocks, and nothing is audited.
	assert.Equal(t, 0, st.postCalls)
	assert.Empty(t, rec.entries)
}

func TestPost_RefusesNonDraft(t *testing.T) {
	st := newMockStorage()
	svc := newTestService(st, &mockRecorder{})
	ctx := context.Background()

	draft, err := svc.CreateDraft(ctx, "co-1", invoiceTemplate(t), template.ApplyInput{
		Amount: dec("120.00"), Date: date(2025, 1, 15), PartnerID: "p-1",
	}, "u-1")
	require.NoError(t, err)

	_, err = svc.Post(ctx, "co-1", draft.ID, "u-1", nil)
	require.NoError(t, err)

	_, err = svc.Post(ctx, "co-1", draft.ID, "u-1", nil)
	assert.ErrorContains(t, err, "only drafts")
}

func TestAcceptPairing_PostsSettlement(t *testing.T) {
	st := newMockStorage()
	rec := &mockRecorder{}
	svc := newTestService(st, rec)
	ctx := context.Background()

	match := recon.PairingMatch{
		Movement: model.BankMovement{
			Date:           date(2025, 1, 20),
			Amount:         dec("120.00"),
			Currency:       "EUR",
			Direction:      model.DirectionCredit,
			VariableSymbol: "202501001",
		},
		Item: model.OpenItem{
			PartnerID:   "p-1",
			PartnerName: "Acme s.r.o.",
			AccountCode: "311",
			DocNumber:   "ID-202501-0001",
			Kind:        model.ItemIncome,
			Amount:      dec("120.00"),
			Remaining:   dec("120.00"),
		},
		Confidence: 100,
	}

	tx, err := svc.AcceptPairing(ctx, "co-1", match, pairingTemplate(t), "u-1", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPosted, tx.Status)
	assert.Contains(t, tx.Description, "ID-202501-0001")
	assert.Equal(t, "payment_pairing", tx.TemplateID)
	assert.True(t, tx.TotalDebit.Equal(dec("120.00")))
}

func TestAcceptPairing_PartialWithoutNoteNeedsOverride(t *testing.T) {
	st := newMockStorage()
	svc := newTestService(st, &mockRecorder{})

	match := recon.PairingMatch{
		Movement: model.BankMovement{
			Date:      date(2025, 1, 20),
			Amount:    dec("50.00"),
			Direction: model.DirectionCredit,
		},
		Item: model.OpenItem{
			PartnerID: "p-1", AccountCode: "311", DocNumber: "ID-202501-0001",
			Kind: model.ItemIncome, Amount: dec("120.00"), Remaining: dec("120.00"),
		},
		Confidence: 80,
	}

	_, err := svc.AcceptPairing(context.Background(), "co-1", match, pairingTemplate(t), "u-1", nil)
	var needsOverride *rules.OverrideRequiredError
	require.True(t, errors.As(err, &needsOverride))
	assert.Contains(t, needsOverride.Result.WarnCodes(), "PAIR_PARTIAL_NO_NOTE")
	assert.Empty(t, st.transactions, "no draft is created while the pairing is refused")
}
