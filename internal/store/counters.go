package store

import (
	"context"
	"fmt"

	"github.com/saldo-dev/saldo/internal/model"
)

// NextNumber atomically allocates the next sequence value for a
// company+prefix+period counter. Counting existing records would race under
// concurrent creators; the upsert below cannot hand out duplicates.
func (s *Store) NextNumber(ctx context.Context, companyID, prefix string, period model.PeriodKey) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO counters (company_id, prefix, period, value)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (company_id, prefix, period) DO UPDATE SET value = value + 1
		RETURNING value`,
		companyID, prefix, string(period))

	var value int64
	if err := row.Scan(&value); err != nil {
		return 0, fmt.Errorf("allocating number %s/%s: %w", prefix, period, err)
	}
	return value, nil
}
