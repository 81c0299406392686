// Package period governs the per-month closing state machine:
// OPEN → CLOSING → CLOSED → LOCKED, with an administrative unlock back to
// OPEN. Locking makes every posted transaction in the period immutable.
package period

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/saldo-dev/saldo/internal/audit"
	"github.com/saldo-dev/saldo/internal/model"
	"github.com/saldo-dev/saldo/internal/rules"
	"github.com/saldo-dev/saldo/internal/store"
)

// Storage is the slice of the store the state machine needs.
type Storage interface {
	GetOrInitPeriod(ctx context.Context, companyID string, key model.PeriodKey) (model.Period, error)
	SetPeriodStatus(ctx context.Context, companyID string, p model.Period, status model.PeriodStatus) error
	LockPeriod(ctx context.Context, companyID string, p model.Period, userID string, at time.Time) error
	UnlockPeriod(ctx context.Context, companyID string, p model.Period, userID string) error
	CountTransactions(ctx context.Context, companyID string, period model.PeriodKey, status model.TxStatus) (int, error)
	CountOpenItems(ctx context.Context, companyID string, through model.PeriodKey) (int, error)
	CountUnprocessedDocuments(ctx context.Context, companyID string) (int, error)
}

// Machine drives period closing and locking.
type Machine struct {
	store      Storage
	audit      audit.Recorder
	engine     rules.Engine
	thresholds rules.Thresholds
	now        func() time.Time
	log        zerolog.Logger
}

// NewMachine creates a period Machine.
func NewMachine(st Storage, recorder audit.Recorder, thresholds rules.Thresholds, log zerolog.Logger) *Machine {
	return &Machine{
		store:      st,
		audit:      recorder,
		engine:     rules.Engine{},
		thresholds: thresholds,
		now:        time.Now,
		log:        log,
	}
}

// RequestClose computes closing readiness for a period and validates it. When
// the result carries no blocks, the period transitions OPEN → CLOSING so the
// pending close is visible; the caller then confirms with Lock.
func (m *Machine) RequestClose(ctx context.Context, companyID string, key model.PeriodKey, userID string) (rules.Result, error) {
	entity, p, err := m.closingEntity(ctx, companyID, key)
	if err != nil {
		return rules.Result{}, err
	}

	result := m.engine.Validate(entity, rules.Context{
		CompanyID:  companyID,
		Period:     string(key),
		UserID:     userID,
		Thresholds: m.thresholds,
	})

	if result.OK() && p.Status == model.PeriodOpen {
		if err := m.store.SetPeriodStatus(ctx, companyID, p, model.PeriodClosing); err != nil {
			return rules.Result{}, err
		}
		m.log.Info().Str("period", string(key)).Msg("period marked closing")
	}
	return result, nil
}

// Lock finalizes a period: it re-validates, enforces the override policy for
// warnings, and then atomically writes the lock record and flips every POSTED
// transaction to LOCKED. Conflicting writers trigger a bounded retry of the
// whole read-validate-write sequence.
func (m *Machine) Lock(ctx context.Context, companyID string, key model.PeriodKey, userID string, override *rules.Override) error {
	overrideRecorded := false

	err := store.Retry(ctx, func() error {
		entity, p, err := m.closingEntity(ctx, companyID, key)
		if err != nil {
			return err
		}

		result := m.engine.Validate(entity, rules.Context{
			CompanyID:  companyID,
			Period:     string(key),
			UserID:     userID,
			Thresholds: m.thresholds,
		})
		if !result.OK() {
			return &rules.BlockedError{Result: result}
		}
		if !result.Clean() {
			if override == nil {
				return &rules.OverrideRequiredError{Result: result}
			}
			// Record the override once even if the lock write retries.
			if !overrideRecorded {
				entry := audit.NewEntry(companyID, audit.TypeOverrideWarning, override.UserID)
				entry.RuleCodes = result.WarnCodes()
				entry.EntityType = "period_closing"
				entry.Ref = string(key)
				entry.Notes = override.Note
				if err := m.audit.Record(ctx, entry); err != nil {
					return fmt.Errorf("recording override: %w", err)
				}
				overrideRecorded = true
			}
		}

		return m.store.LockPeriod(ctx, companyID, p, userID, m.now())
	})
	if err != nil {
		return err
	}

	entry := audit.NewEntry(companyID, audit.TypePeriodLock, userID)
	entry.EntityType = "period"
	entry.Ref = string(key)
	if err := m.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("recording period lock: %w", err)
	}

	m.log.Info().Str("period", string(key)).Str("user", userID).Msg("period locked")
	return nil
}

// Unlock reverts a LOCKED period to OPEN and its LOCKED transactions back to
// POSTED. Authorization is the caller's concern; the capability lives here.
func (m *Machine) Unlock(ctx context.Context, companyID string, key model.PeriodKey, userID string) error {
	err := store.Retry(ctx, func() error {
		p, err := m.store.GetOrInitPeriod(ctx, companyID, key)
		if err != nil {
			return err
		}
		return m.store.UnlockPeriod(ctx, companyID, p, userID)
	})
	if err != nil {
		return err
	}

	entry := audit.NewEntry(companyID, audit.TypePeriodUnlock, userID)
	entry.EntityType = "period"
	entry.Ref = string(key)
	if err := m.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("recording period unlock: %w", err)
	}

	m.log.Info().Str("period", string(key)).Str("user", userID).Msg("period unlocked")
	return nil
}

// closingEntity gathers the closing-readiness aggregates.
func (m *Machine) closingEntity(ctx context.Context, companyID string, key model.PeriodKey) (rules.ClosingEntity, model.Period, error) {
	p, err := m.store.GetOrInitPeriod(ctx, companyID, key)
	if err != nil {
		return rules.ClosingEntity{}, model.Period{}, err
	}

	drafts, err := m.store.CountTransactions(ctx, companyID, key, model.StatusDraft)
	if err != nil {
		return rules.ClosingEntity{}, model.Period{}, err
	}
	openItems, err := m.store.CountOpenItems(ctx, companyID, key)
	if err != nil {
		return rules.ClosingEntity{}, model.Period{}, err
	}
	docs, err := m.store.CountUnprocessedDocuments(ctx, companyID)
	if err != nil {
		return rules.ClosingEntity{}, model.Period{}, err
	}

	return rules.ClosingEntity{
		Period:          key,
		Status:          p.Status,
		DraftCount:      drafts,
		OpenItemCount:   openItems,
		UnprocessedDocs: docs,
	}, p, nil
}

// Compile-time check that the sqlite store satisfies Storage.
var _ Storage = (*store.Store)(nil)
