package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/saldo-dev/saldo/internal/model"
)

// GetOrInitPeriod returns the stored period, or a fresh OPEN period (version
// 0, not yet persisted) when none exists.
func (s *Store) GetOrInitPeriod(ctx context.Context, companyID string, key model.PeriodKey) (model.Period, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, status, closed_at, closed_by, locked_at, locked_by, version
		FROM periods WHERE company_id = ? AND key = ?`, companyID, string(key))

	var p model.Period
	var k, status, closedAt, lockedAt string
	err := row.Scan(&k, &status, &closedAt, &p.ClosedBy, &lockedAt, &p.LockedBy, &p.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Period{Key: key, Status: model.PeriodOpen}, nil
	}
	if err != nil {
		return model.Period{}, fmt.Errorf("reading period %s: %w", key, err)
	}

	p.Key = model.PeriodKey(k)
	p.Status = model.PeriodStatus(status)
	if p.ClosedAt, err = parseStamp(closedAt); err != nil {
		return model.Period{}, err
	}
	if p.LockedAt, err = parseStamp(lockedAt); err != nil {
		return model.Period{}, err
	}
	return p, nil
}

// writePeriod upserts the period row with an optimistic version check.
// Version 0 means the row must not exist yet.
func writePeriod(ctx context.Context, dbtx *sql.Tx, companyID string, p model.Period) error {
	if p.Version == 0 {
		_, err := dbtx.ExecContext(ctx, `
			INSERT INTO periods (company_id, key, status, closed_at, closed_by, locked_at, locked_by, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
			companyID, string(p.Key), string(p.Status),
			formatStamp(p.ClosedAt), p.ClosedBy, formatStamp(p.LockedAt), p.LockedBy)
		if err != nil {
			// A concurrent writer initialized the row first.
			return fmt.Errorf("period %s: %w", p.Key, ErrConflict)
		}
		return nil
	}

	res, err := dbtx.ExecContext(ctx, `
		UPDATE periods SET
			status = ?, closed_at = ?, closed_by = ?, locked_at = ?, locked_by = ?,
			version = version + 1
		WHERE company_id = ? AND key = ? AND version = ?`,
		string(p.Status), formatStamp(p.ClosedAt), p.ClosedBy,
		formatStamp(p.LockedAt), p.LockedBy,
		companyID, string(p.Key), p.Version)
	if err != nil {
		return fmt.Errorf("updating period %s: %w", p.Key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("period %s: %w", p.Key, ErrConflict)
	}
	return nil
}

// SetPeriodStatus transitions the period row alone (used for OPEN→CLOSING).
func (s *Store) SetPeriodStatus(ctx context.Context, companyID string, p model.Period, status model.PeriodStatus) error {
	p.Status = status
	return s.inTx(ctx, func(dbtx *sql.Tx) error {
		return writePeriod(ctx, dbtx, companyID, p)
	})
}

// LockPeriod writes the lock record and flips every POSTED transaction in the
// period to LOCKED as one unit. p must carry the version read by the caller;
// a stale version yields ErrConflict and nothing is applied.
func (s *Store) LockPeriod(ctx context.Context, companyID string, p model.Period, userID string, at time.Time) error {
	p.Status = model.PeriodLocked
	if p.ClosedAt.IsZero() {
		p.ClosedAt = at
		p.ClosedBy = userID
	}
	p.LockedAt = at
	p.LockedBy = userID

	err := s.inTx(ctx, func(dbtx *sql.Tx) error {
		if err := writePeriod(ctx, dbtx, companyID, p); err != nil {
			return err
		}
		_, err := dbtx.ExecContext(ctx, `
			UPDATE transactions SET status = 'locked', version = version + 1
			WHERE company_id = ? AND period = ? AND status = 'posted'`,
			companyID, string(p.Key))
		if err != nil {
			return fmt.Errorf("locking transactions in %s: %w", p.Key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("period", string(p.Key)).Str("user", userID).Msg("period locked")
	return nil
}

// UnlockPeriod reverts a LOCKED period to OPEN and every LOCKED transaction
// in it back to POSTED, as one unit.
func (s *Store) UnlockPeriod(ctx context.Context, companyID string, p model.Period, userID string) error {
	if p.Status != model.PeriodLocked {
		return fmt.Errorf("period %s is %s, not locked", p.Key, p.Status)
	}

	p.Status = model.PeriodOpen
	p.ClosedAt = time.Time{}
	p.ClosedBy = ""
	p.LockedAt = time.Time{}
	p.LockedBy = ""

	err := s.inTx(ctx, func(dbtx *sql.Tx) error {
		if err := writePeriod(ctx, dbtx, companyID, p); err != nil {
			return err
		}
		_, err := dbtx.ExecContext(ctx, `
			UPDATE transactions SET status = 'posted', version = version + 1
			WHERE company_id = ? AND period = ? AND status = 'locked'`,
			companyID, string(p.Key))
		if err != nil {
			return fmt.Errorf("unlocking transactions in %s: %w", p.Key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("period", string(p.Key)).Str("user", userID).Msg("period unlocked")
	return nil
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseStamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
