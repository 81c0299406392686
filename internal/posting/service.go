// Package posting materializes template drafts into numbered transactions and
// drives them through the rules gate to POSTED.
package posting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saldo-dev/saldo/internal/audit"
	"github.com/saldo-dev/saldo/internal/ledger"
	"github.com/saldo-dev/saldo/internal/model"
	"github.com/saldo-dev/saldo/internal/recon"
	"github.com/saldo-dev/saldo/internal/rules"
	"github.com/saldo-dev/saldo/internal/store"
	"github.com/saldo-dev/saldo/internal/template"
)

// Storage is the slice of the store the posting service needs.
type Storage interface {
	GetOrInitPeriod(ctx context.Context, companyID string, key model.PeriodKey) (model.Period, error)
	NextNumber(ctx context.Context, companyID, prefix string, period model.PeriodKey) (int64, error)
	CreateTransaction(ctx context.Context, companyID string, tx *model.Transaction) error
	GetTransaction(ctx context.Context, companyID, id string) (model.Transaction, error)
	PostTransaction(ctx context.Context, companyID, id string, version int64) error
}

// Service creates and posts transactions.
type Service struct {
	store      Storage
	audit      audit.Recorder
	engine     rules.Engine
	thresholds rules.Thresholds
	prefix     string
	log        zerolog.Logger
}

// NewService creates a posting Service. prefix scopes the transaction-number
// counter, e.g. "ID".
func NewService(st Storage, recorder audit.Recorder, thresholds rules.Thresholds, prefix string, log zerolog.Logger) *Service {
	return &Service{
		store:      st,
		audit:      recorder,
		engine:     rules.Engine{},
		thresholds: thresholds,
		prefix:     prefix,
		log:        log,
	}
}

// CreateDraft applies a template and stores the result as a numbered DRAFT
// transaction. The draft must balance; the number comes from the store's
// atomic per-period counter.
func (s *Service) CreateDraft(ctx context.Context, companyID string, tpl *template.Template, in template.ApplyInput, userID string) (model.Transaction, error) {
	draft := tpl.Apply(in)
	if !draft.Balanced {
		return model.Transaction{}, &ledger.ImbalanceError{
			TotalDebit:  draft.TotalDebit,
			TotalCredit: draft.TotalCredit,
		}
	}

	periodKey := model.PeriodOf(in.Date)
	period, err := s.store.GetOrInitPeriod(ctx, companyID, periodKey)
	if err != nil {
		return model.Transaction{}, err
	}
	if !period.Open() {
		return model.Transaction{}, &model.PeriodNotOpenError{Period: periodKey, Status: period.Status}
	}

	seq, err := s.store.NextNumber(ctx, companyID, s.prefix, periodKey)
	if err != nil {
		return model.Transaction{}, err
	}

	tx := model.Transaction{
		ID:          uuid.NewString(),
		Number:      FormatNumber(s.prefix, periodKey, seq),
		Date:        in.Date,
		Description: in.Description,
		Lines:       draft.Lines,
		TotalDebit:  draft.TotalDebit,
		TotalCredit: draft.TotalCredit,
		Status:      model.StatusDraft,
		Period:      periodKey,
		TemplateID:  tpl.Code,
	}

	if err := s.store.CreateTransaction(ctx, companyID, &tx); err != nil {
		return model.Transaction{}, err
	}

	s.log.Info().
		Str("number", tx.Number).
		Str("template", tpl.Code).
		Str("user", userID).
		Msg("draft created")
	return tx, nil
}

// Post validates a DRAFT transaction and flips it to POSTED. Block hits
// refuse the action; warnings require an override, which is recorded in the
// audit log before the status changes.
func (s *Service) Post(ctx context.Context, companyID, txID, userID string, override *rules.Override) (model.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, companyID, txID)
	if err != nil {
		return model.Transaction{}, err
	}
	if tx.Status != model.StatusDraft {
		return model.Transaction{}, fmt.Errorf("transaction %s is %s, only drafts can be posted", tx.Number, tx.Status)
	}

	period, err := s.store.GetOrInitPeriod(ctx, companyID, tx.Period)
	if err != nil {
		return model.Transaction{}, err
	}

	result := s.engine.Validate(rules.TransactionEntity{
		Tx:           tx,
		PeriodStatus: period.Status,
	}, rules.Context{
		CompanyID:  companyID,
		Period:     string(tx.Period),
		UserID:     userID,
		Thresholds: s.thresholds,
	})

	if err := s.clearWarnings(ctx, companyID, result, override, "transaction", tx.ID, tx.Number); err != nil {
		return model.Transaction{}, err
	}

	if err := s.store.PostTransaction(ctx, companyID, tx.ID, tx.Version); err != nil {
		return model.Transaction{}, err
	}
	tx.Status = model.StatusPosted
	tx.Version++

	s.log.Info().Str("number", tx.Number).Str("user", userID).Msg("transaction posted")
	return tx, nil
}

// AcceptPairing realizes an accepted bank pairing through the payment-pairing
// template and posts the resulting transaction.
func (s *Service) AcceptPairing(ctx context.Context, companyID string, match recon.PairingMatch, tpl *template.Template, userID string, override *rules.Override) (model.Transaction, error) {
	result := s.engine.Validate(rules.PairingEntity{
		Movement:   match.Movement,
		Item:       match.Item,
		Confidence: match.Confidence,
		Note:       match.Item.Note,
	}, rules.Context{
		CompanyID:  companyID,
		Period:     string(model.PeriodOf(match.Movement.Date)),
		UserID:     userID,
		Thresholds: s.thresholds,
	})

	ref := fmt.Sprintf("%s/%s", match.Item.DocNumber, match.Movement.VariableSymbol)
	if err := s.clearWarnings(ctx, companyID, result, override, "bank_pairing", "", ref); err != nil {
		return model.Transaction{}, err
	}

	tx, err := s.CreateDraft(ctx, companyID, tpl, template.ApplyInput{
		Amount:      match.Movement.Amount,
		Date:        match.Movement.Date,
		Description: fmt.Sprintf("Úhrada %s", match.Item.DocNumber),
		PartnerID:   match.Item.PartnerID,
		PartnerName: match.Item.PartnerName,
	}, userID)
	if err != nil {
		return model.Transaction{}, err
	}

	return s.Post(ctx, companyID, tx.ID, userID, override)
}

// clearWarnings enforces the block/warn policy: blocks refuse, warnings need
// an override which is audited before the caller proceeds.
func (s *Service) clearWarnings(ctx context.Context, companyID string, result rules.Result, override *rules.Override, entityType, entityID, ref string) error {
	if !result.OK() {
		return &rules.BlockedError{Result: result}
	}
	if result.Clean() {
		return nil
	}
	if override == nil {
		return &rules.OverrideRequiredError{Result: result}
	}

	entry := audit.NewEntry(companyID, audit.TypeOverrideWarning, override.UserID)
	entry.RuleCodes = result.WarnCodes()
	entry.EntityType = entityType
	entry.EntityID = entityID
	entry.Ref = ref
	entry.Notes = override.Note
	if err := s.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("recording override: %w", err)
	}
	return nil
}

// Compile-time check that the sqlite store satisfies Storage.
var _ Storage = (*store.Store)(nil)
