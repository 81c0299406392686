package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Document is a minimal record of an inbound document (received invoice,
// receipt) awaiting processing into a transaction.
type Document struct {
	ID         string
	Processed  bool
	Confidence float64
	PartnerID  string
	Amount     decimal.Decimal
	Date       time.Time
}

// PutDocument inserts or updates an inbound document record.
func (s *Store) PutDocument(ctx context.Context, companyID string, d Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, company_id, processed, confidence, partner_id, amount, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			processed = excluded.processed, confidence = excluded.confidence,
			partner_id = excluded.partner_id, amount = excluded.amount, date = excluded.date`,
		d.ID, companyID, d.Processed, d.Confidence, d.PartnerID,
		d.Amount.String(), d.Date.Format(dateFormat))
	if err != nil {
		return fmt.Errorf("writing document %s: %w", d.ID, err)
	}
	return nil
}

// MarkDocumentProcessed flags a document as turned into an entry.
func (s *Store) MarkDocumentProcessed(ctx context.Context, companyID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET processed = 1 WHERE company_id = ? AND id = ?`,
		companyID, id)
	if err != nil {
		return fmt.Errorf("marking document %s processed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUnprocessedDocuments counts inbound documents not yet processed.
func (s *Store) CountUnprocessedDocuments(ctx context.Context, companyID string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE company_id = ? AND processed = 0`, companyID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}
