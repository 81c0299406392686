package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saldo-dev/saldo/internal/model"
)

const dateFormat = "2006-01-02"

// CreateTransaction inserts a transaction with its lines. The period the date
// falls in must be OPEN or CLOSING; the caller is responsible for totals and
// numbering.
func (s *Store) CreateTransaction(ctx context.Context, companyID string, tx *model.Transaction) error {
	period, err := s.GetOrInitPeriod(ctx, companyID, tx.Period)
	if err != nil {
		return err
	}
	if !period.Open() {
		return &model.PeriodNotOpenError{Period: period.Key, Status: period.Status}
	}

	tx.Version = 1
	return s.inTx(ctx, func(dbtx *sql.Tx) error {
		_, err := dbtx.ExecContext(ctx, `
			INSERT INTO transactions
				(id, company_id, number, date, description, total_debit, total_credit,
				 status, period, document_id, template_id, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tx.ID, companyID, tx.Number, tx.Date.Format(dateFormat), tx.Description,
			tx.TotalDebit.String(), tx.TotalCredit.String(), string(tx.Status),
			string(tx.Period), tx.DocumentID, tx.TemplateID, tx.Version)
		if err != nil {
			return fmt.Errorf("inserting transaction %s: %w", tx.Number, err)
		}
		return insertLines(ctx, dbtx, tx.ID, tx.Lines)
	})
}

func insertLines(ctx context.Context, dbtx *sql.Tx, txID string, lines []model.TransactionLine) error {
	for i, l := range lines {
		_, err := dbtx.ExecContext(ctx, `
			INSERT INTO transaction_lines
				(tx_id, line_no, account_code, side, amount, partner_id, partner_name, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			txID, i, l.AccountCode, string(l.Side), l.Amount.String(),
			l.PartnerID, l.PartnerName, l.Description)
		if err != nil {
			return fmt.Errorf("inserting line %d: %w", i, err)
		}
	}
	return nil
}

// GetTransaction returns one transaction with its lines.
func (s *Store) GetTransaction(ctx context.Context, companyID, id string) (model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, date, description, total_debit, total_credit,
		       status, period, document_id, template_id, version
		FROM transactions WHERE company_id = ? AND id = ?`, companyID, id)

	tx, err := scanTransaction(row)
	if err != nil {
		return model.Transaction{}, err
	}

	lines, err := s.transactionLines(ctx, id)
	if err != nil {
		return model.Transaction{}, err
	}
	tx.Lines = lines
	return tx, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var tx model.Transaction
	var date, totalDebit, totalCredit, status, period string
	err := row.Scan(&tx.ID, &tx.Number, &date, &tx.Description, &totalDebit,
		&totalCredit, &status, &period, &tx.DocumentID, &tx.TemplateID, &tx.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Transaction{}, ErrNotFound
		}
		return model.Transaction{}, fmt.Errorf("scanning transaction: %w", err)
	}

	tx.Date, err = time.Parse(dateFormat, date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	tx.TotalDebit, err = decimal.NewFromString(totalDebit)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing total debit %q: %w", totalDebit, err)
	}
	tx.TotalCredit, err = decimal.NewFromString(totalCredit)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing total credit %q: %w", totalCredit, err)
	}
	tx.Status = model.TxStatus(status)
	tx.Period = model.PeriodKey(period)
	return tx, nil
}

func (s *Store) transactionLines(ctx context.Context, txID string) ([]model.TransactionLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_code, side, amount, partner_id, partner_name, description
		FROM transaction_lines WHERE tx_id = ? ORDER BY line_no`, txID)
	if err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}
	defer rows.Close()

	var lines []model.TransactionLine
	for rows.Next() {
		var l model.TransactionLine
		var side, amount string
		if err := rows.Scan(&l.AccountCode, &side, &amount, &l.PartnerID, &l.PartnerName, &l.Description); err != nil {
			return nil, fmt.Errorf("scanning line: %w", err)
		}
		l.Side = model.Side(side)
		l.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing line amount %q: %w", amount, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// UpdateDraft replaces a DRAFT transaction's content, guarded by an
// optimistic version check. Non-draft transactions are immutable.
func (s *Store) UpdateDraft(ctx context.Context, companyID string, tx model.Transaction) error {
	period, err := s.GetOrInitPeriod(ctx, companyID, tx.Period)
	if err != nil {
		return err
	}
	if !period.Open() {
		return &model.PeriodNotOpenError{Period: period.Key, Status: period.Status}
	}

	return s.inTx(ctx, func(dbtx *sql.Tx) error {
		res, err := dbtx.ExecContext(ctx, `
			UPDATE transactions SET
				date = ?, description = ?, total_debit = ?, total_credit = ?,
				period = ?, version = version + 1
			WHERE company_id = ? AND id = ? AND status = 'draft' AND version = ?`,
			tx.Date.Format(dateFormat), tx.Description, tx.TotalDebit.String(),
			tx.TotalCredit.String(), string(tx.Period),
			companyID, tx.ID, tx.Version)
		if err != nil {
			return fmt.Errorf("updating draft %s: %w", tx.ID, err)
		}
		if err := requireOneRow(res, tx.ID); err != nil {
			return err
		}

		if _, err := dbtx.ExecContext(ctx,
			`DELETE FROM transaction_lines WHERE tx_id = ?`, tx.ID); err != nil {
			return fmt.Errorf("clearing lines: %w", err)
		}
		return insertLines(ctx, dbtx, tx.ID, tx.Lines)
	})
}

// DeleteDraft removes a DRAFT transaction. POSTED and LOCKED transactions are
// never deleted.
func (s *Store) DeleteDraft(ctx context.Context, companyID, id string) error {
	tx, err := s.GetTransaction(ctx, companyID, id)
	if err != nil {
		return err
	}
	if tx.Status != model.StatusDraft {
		return fmt.Errorf("transaction %s is %s and cannot be deleted", tx.Number, tx.Status)
	}

	period, err := s.GetOrInitPeriod(ctx, companyID, tx.Period)
	if err != nil {
		return err
	}
	if !period.Open() {
		return &model.PeriodNotOpenError{Period: period.Key, Status: period.Status}
	}

	return s.inTx(ctx, func(dbtx *sql.Tx) error {
		if _, err := dbtx.ExecContext(ctx,
			`DELETE FROM transaction_lines WHERE tx_id = ?`, id); err != nil {
			return fmt.Errorf("deleting lines: %w", err)
		}
		res, err := dbtx.ExecContext(ctx,
			`DELETE FROM transactions WHERE company_id = ? AND id = ? AND status = 'draft'`,
			companyID, id)
		if err != nil {
			return fmt.Errorf("deleting draft %s: %w", id, err)
		}
		return requireOneRow(res, id)
	})
}

// PostTransaction flips a DRAFT transaction to POSTED with a version check.
func (s *Store) PostTransaction(ctx context.Context, companyID, id string, version int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET status = 'posted', version = version + 1
		WHERE company_id = ? AND id = ? AND status = 'draft' AND version = ?`,
		companyID, id, version)
	if err != nil {
		return fmt.Errorf("posting transaction %s: %w", id, err)
	}
	return requireOneRow(res, id)
}

// ListTransactions returns transactions in a period, optionally filtered by
// status, ordered by number.
func (s *Store) ListTransactions(ctx context.Context, companyID string, period model.PeriodKey, status model.TxStatus) ([]model.Transaction, error) {
	query := `
		SELECT id, number, date, description, total_debit, total_credit,
		       status, period, document_id, template_id, version
		FROM transactions WHERE company_id = ? AND period = ?`
	args := []any{companyID, string(period)}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY number`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range txs {
		lines, err := s.transactionLines(ctx, txs[i].ID)
		if err != nil {
			return nil, err
		}
		txs[i].Lines = lines
	}
	return txs, nil
}

// CountTransactions counts transactions in a period with the given status.
func (s *Store) CountTransactions(ctx context.Context, companyID string, period model.PeriodKey, status model.TxStatus) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE company_id = ? AND period = ? AND status = ?`,
		companyID, string(period), string(status))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

// requireOneRow converts a zero-row update into ErrConflict.
func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrConflict)
	}
	return nil
}
