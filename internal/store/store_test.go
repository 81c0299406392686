package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saldo-dev/saldo/internal/audit"
	"github.com/saldo-dev/saldo/internal/model"
)

const testCompany = "co-1"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "saldo.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.SeedChart(context.Background(), testCompany))
	return s
}

// invoiceTx builds a posted-style receivable transaction for tests.
func invoiceTx(number string, day int, partnerID, partnerName, amount string) model.Transaction {
	d := date(2025, 1, day)
	return model.Transaction{
		ID:     uuid.NewString(),
		Number: number,
		Date:   d,
		Lines: []model.TransactionLine{
			{AccountCode: "311", Side: model.SideDebit, Amount: dec(amount), PartnerID: partnerID, PartnerName: partnerName},
			{AccountCode: "602", Side: model.SideCredit, Amount: dec(amount)},
		},
		TotalDebit:  dec(amount),
		TotalCredit: dec(amount),
		Status:      model.StatusDraft,
		Period:      model.PeriodOf(d),
	}
}

func createAndPost(t *testing.T, s *Store, tx model.Transaction) model.Transaction {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateTransaction(ctx, testCompany, &tx))
	require.NoError(t, s.PostTransaction(ctx, testCompany, tx.ID, tx.Version))
	posted, err := s.GetTransaction(ctx, testCompany, tx.ID)
	require.NoError(t, err)
	return posted
}

func TestAccounts_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.GetAccount(ctx, testCompany, "311")
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeAsset, a.Type)
	assert.Equal(t, model.SideDebit, a.NormalSide)
	assert.True(t, a.System)

	_, err = s.GetAccount(ctx, testCompany, "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAccount_RefusesSystem(t *testing.T) {
	s := openTestStore(t)
	err := s.DeleteAccount(context.Background(), testCompany, "311")
	assert.Error(t, err)
}

func TestDeleteAccount_RefusesReferenced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	custom := model.Account{Code: "501", Name: "Spotreba materiálu", Type: model.AccountTypeExpense, NormalSide: model.SideDebit}
	require.NoError(t, s.PutAccount(ctx, testCompany, custom))

	d := date(2025, 1, 10)
	tx := model.Transaction{
		ID: uuid.NewString(), Number: "ID-202501-0001", Date: d,
		Lines: []model.TransactionLine{
			{AccountCode: "501", Side: model.SideDebit, Amount: dec("10.00")},
			{AccountCode: "221", Side: model.SideCredit, Amount: dec("10.00")},
		},
		TotalDebit: dec("10.00"), TotalCredit: dec("10.00"),
		Status: model.StatusDraft, Period: model.PeriodOf(d),
	}
	createAndPost(t, s, tx)

	assert.Error(t, s.DeleteAccount(ctx, testCompany, "501"))
}

func TestTransaction_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx := invoiceTx("ID-202501-0001", 15, "p-1", "Acme s.r.o.", "120.00")
	require.NoError(t, s.CreateTransaction(ctx, testCompany, &tx))

	got, err := s.GetTransaction(ctx, testCompany, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.Number, got.Number)
	assert.Equal(t, model.StatusDraft, got.Status)
	assert.Equal(t, model.PeriodKey("2025-01"), got.Period)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.Lines[0].Amount.Equal(dec("120.00")))
	assert.Equal(t, "Acme s.r.o.", got.Lines[0].PartnerName)
}

func TestPostTransaction_StaleVersionConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx := invoiceTx("ID-202501-0001", 15, "p-1", "Acme s.r.o.", "50.00")
	require.NoError(t, s.CreateTransaction(ctx, testCompany, &tx))
	require.NoError(t, s.PostTransaction(ctx, testCompany, tx.ID, tx.Version))

	// Second post with the original version must conflict.
	err := s.PostTransaction(ctx, testCompany, tx.ID, tx.Version)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDeleteDraft_RefusesPosted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx := invoiceTx("ID-202501-0001", 15, "p-1", "Acme s.r.o.", "50.00")
	posted := createAndPost(t, s, tx)

	assert.Error(t, s.DeleteDraft(ctx, testCompany, posted.ID))
}

func TestNextNumber_Sequential(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextNumber(ctx, testCompany, "ID", "2025-01")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Separate period and prefix counters are independent.
	got, err := s.NextNumber(ctx, testCompany, "ID", "2025-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
	got, err = s.NextNumber(ctx, testCompany, "BV", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestNextNumber_ConcurrentAllocationsUnique(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const n = 20
	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.NextNumber(ctx, testCompany, "ID", "2025-03")
			assert.NoError(t, err)
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for v := range results {
		assert.False(t, seen[v], "duplicate number %d", v)
		seen[v] = true
	}
	// No gaps under normal operation: exactly 1..n allocated.
	for want := int64(1); want <= n; want++ {
		assert.True(t, seen[want], "missing number %d", want)
	}
}

func TestLockPeriod_FlipsPostedAndBlocksNewDrafts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	posted := createAndPost(t, s, invoiceTx("ID-202501-0001", 15, "p-1", "Acme s.r.o.", "120.00"))

	p, err := s.GetOrInitPeriod(ctx, testCompany, "2025-01")
	require.NoError(t, err)
	require.NoError(t, s.LockPeriod(ctx, testCompany, p, "admin", date(2025, 2, 1)))

	// Transaction is now locked.
	got, err := s.GetTransaction(ctx, testCompany, posted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLocked, got.Status)

	// Period row reflects the lock.
	p, err = s.GetOrInitPeriod(ctx, testCompany, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, model.PeriodLocked, p.Status)
	assert.Equal(t, "admin", p.LockedBy)
	assert.False(t, p.LockedAt.IsZero())

	// New transactions dated inside the locked period are refused.
	tx := invoiceTx("ID-202501-0002", 20, "p-2", "Beta a.s.", "10.00")
	err = s.CreateTransaction(ctx, testCompany, &tx)
	var notOpen *model.PeriodNotOpenError
	require.True(t, errors.As(err, &notOpen))
	assert.Equal(t, model.PeriodLocked, notOpen.Status)
}

func TestLockPeriod_StaleVersionConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p, err := s.GetOrInitPeriod(ctx, testCompany, "2025-01")
	require.NoError(t, err)

	require.NoError(t, s.LockPeriod(ctx, testCompany, p, "admin", date(2025, 2, 1)))

	// Locking again with the stale (version 0) snapshot conflicts.
	err = s.LockPeriod(ctx, testCompany, p, "admin", date(2025, 2, 1))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUnlockPeriod_RevertsTransactions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	posted := createAndPost(t, s, invoiceTx("ID-202501-0001", 15, "p-1", "Acme s.r.o.", "120.00"))

	p, err := s.GetOrInitPeriod(ctx, testCompany, "2025-01")
	require.NoError(t, err)
	require.NoError(t, s.LockPeriod(ctx, testCompany, p, "admin", date(2025, 2, 1)))

	p, err = s.GetOrInitPeriod(ctx, testCompany, "2025-01")
	require.NoError(t, err)
	require.NoError(t, s.UnlockPeriod(ctx, testCompany, p, "admin"))

	got, err := s.GetTransaction(ctx, testCompany, posted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPosted, got.Status)

	p, err = s.GetOrInitPeriod(ctx, testCompany, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, model.PeriodOpen, p.Status)
	assert.True(t, p.LockedAt.IsZero())

	// New drafts are accepted again.
	tx := invoiceTx("ID-202501-0002", 20, "p-2", "Beta a.s.", "10.00")
	assert.NoError(t, s.CreateTransaction(ctx, testCompany, &tx))
}

func TestOpenItems_DerivedFromTurnover(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Invoice 120 to Acme, invoice 80 to Beta, payment 120 from Acme.
	createAndPost(t, s, invoiceTx("ID-202501-0001", 10, "p-acme", "Acme s.r.o.", "120.00"))
	createAndPost(t, s, invoiceTx("ID-202501-0002", 12, "p-beta", "Beta a.s.", "80.00"))

	d := date(2025, 1, 20)
	payment := model.Transaction{
		ID: uuid.NewString(), Number: "ID-202501-0003", Date: d,
		Lines: []model.TransactionLine{
			{AccountCode: "221", Side: model.SideDebit, Amount: dec("120.00")},
			{AccountCode: "311", Side: model.SideCredit, Amount: dec("120.00"), PartnerID: "p-acme", PartnerName: "Acme s.r.o."},
		},
		TotalDebit: dec("120.00"), TotalCredit: dec("120.00"),
		Status: model.StatusDraft, Period: model.PeriodOf(d),
	}
	createAndPost(t, s, payment)

	items, err := s.OpenItems(ctx, testCompany, "2025-01")
	require.NoError(t, err)

	// Acme is settled; only Beta's receivable remains.
	require.Len(t, items, 1)
	assert.Equal(t, "p-beta", items[0].PartnerID)
	assert.Equal(t, "ID-202501-0002", items[0].DocNumber)
	assert.Equal(t, model.ItemIncome, items[0].Kind)
	assert.True(t, items[0].Remaining.Equal(dec("80.00")))
}

func TestOpenItems_IgnoresDrafts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx := invoiceTx("ID-202501-0001", 10, "p-acme", "Acme s.r.o.", "120.00")
	require.NoError(t, s.CreateTransaction(ctx, testCompany, &tx))

	items, err := s.OpenItems(ctx, testCompany, "2025-01")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDocuments_UnprocessedCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutDocument(ctx, testCompany, Document{
		ID: "doc-1", Confidence: 0.9, Amount: dec("10.00"), Date: date(2025, 1, 5),
	}))
	require.NoError(t, s.PutDocument(ctx, testCompany, Document{
		ID: "doc-2", Confidence: 0.8, Amount: dec("20.00"), Date: date(2025, 1, 6),
	}))

	n, err := s.CountUnprocessedDocuments(ctx, testCompany)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.MarkDocumentProcessed(ctx, testCompany, "doc-1"))
	n, err = s.CountUnprocessedDocuments(ctx, testCompany)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAudit_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := audit.NewEntry(testCompany, audit.TypeOverrideWarning, "u-1")
	e.RuleCodes = []string{"TX_MISSING_PARTNER", "CLOSE_OPEN_ITEMS"}
	e.EntityType = "transaction"
	e.Ref = "ID-202501-0001"
	e.Notes = "supplier confirmed by phone"
	require.NoError(t, s.Record(ctx, e))

	entries, err := s.ListAuditEntries(ctx, testCompany)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.TypeOverrideWarning, entries[0].Type)
	assert.Equal(t, []string{"TX_MISSING_PARTNER", "CLOSE_OPEN_ITEMS"}, entries[0].RuleCodes)
	assert.Equal(t, "ID-202501-0001", entries[0].Ref)
}

func TestRetry_SurfacesConflictAfterExhaustion(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		return fmt.Errorf("period 2025-01: %w", ErrConflict)
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, maxAttempts, attempts)
}

func TestRetry_StopsOnOtherErrors(t *testing.T) {
	attempts := 0
	sentinel := errors.New("boom")
	err := Retry(context.Background(), func() error {
		attempts++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts)
}
