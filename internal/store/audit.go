package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/saldo-dev/saldo/internal/audit"
)

// Record appends one audit entry. Implements audit.Recorder.
func (s *Store) Record(ctx context.Context, e audit.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log
			(id, company_id, type, rule_codes, entity_type, entity_id, ref, actor, notes, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CompanyID, string(e.Type), strings.Join(e.RuleCodes, ";"),
		e.EntityType, e.EntityID, e.Ref, e.Actor, e.Notes,
		e.At.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}

	s.log.Debug().
		Str("type", string(e.Type)).
		Str("ref", e.Ref).
		Str("actor", e.Actor).
		Msg("audit entry recorded")
	return nil
}

// ListAuditEntries returns all audit entries for a company, oldest first.
func (s *Store) ListAuditEntries(ctx context.Context, companyID string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, type, rule_codes, entity_type, entity_id, ref, actor, notes, at
		FROM audit_log WHERE company_id = ? ORDER BY at, id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var typ, codes, at string
		if err := rows.Scan(&e.ID, &e.CompanyID, &typ, &codes, &e.EntityType,
			&e.EntityID, &e.Ref, &e.Actor, &e.Notes, &at); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Type = audit.EntryType(typ)
		if codes != "" {
			e.RuleCodes = strings.Split(codes, ";")
		}
		e.At, err = time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, fmt.Errorf("parsing audit timestamp %q: %w", at, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
