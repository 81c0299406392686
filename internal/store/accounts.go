package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/saldo-dev/saldo/internal/model"
)

// PutAccount inserts or updates a chart-of-accounts entry. Accounts already
// referenced by a posted transaction are immutable.
func (s *Store) PutAccount(ctx context.Context, companyID string, a model.Account) error {
	referenced, err := s.accountReferenced(ctx, companyID, a.Code)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("account %s is referenced by posted transactions and cannot be changed", a.Code)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_side, system)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id, code) DO UPDATE SET
			name = excluded.name, type = excluded.type,
			normal_side = excluded.normal_side, system = excluded.system`,
		companyID, a.Code, a.Name, string(a.Type), string(a.NormalSide), a.System)
	if err != nil {
		return fmt.Errorf("writing account %s: %w", a.Code, err)
	}
	return nil
}

// SeedChart writes the default chart of accounts for a new company.
func (s *Store) SeedChart(ctx context.Context, companyID string) error {
	for _, a := range model.DefaultChart() {
		if err := s.PutAccount(ctx, companyID, a); err != nil {
			return err
		}
	}
	return nil
}

// GetAccount returns one account by code.
func (s *Store) GetAccount(ctx context.Context, companyID, code string) (model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT code, name, type, normal_side, system
		FROM accounts WHERE company_id = ? AND code = ?`, companyID, code)

	var a model.Account
	var typ, side string
	if err := row.Scan(&a.Code, &a.Name, &typ, &side, &a.System); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, fmt.Errorf("reading account %s: %w", code, err)
	}
	a.Type = model.AccountType(typ)
	a.NormalSide = model.Side(side)
	return a, nil
}

// ListAccounts returns the full chart of accounts ordered by code.
func (s *Store) ListAccounts(ctx context.Context, companyID string) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, type, normal_side, system
		FROM accounts WHERE company_id = ? ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		var typ, side string
		if err := rows.Scan(&a.Code, &a.Name, &typ, &side, &a.System); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		a.Type = model.AccountType(typ)
		a.NormalSide = model.Side(side)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account. System accounts and accounts referenced
// by any transaction are refused.
func (s *Store) DeleteAccount(ctx context.Context, companyID, code string) error {
	a, err := s.GetAccount(ctx, companyID, code)
	if err != nil {
		return err
	}
	if a.System {
		return fmt.Errorf("account %s is a system account and cannot be deleted", code)
	}

	referenced, err := s.accountReferenced(ctx, companyID, code)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("account %s is referenced by transactions and cannot be deleted", code)
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE company_id = ? AND code = ?`, companyID, code)
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", code, err)
	}
	return nil
}

func (s *Store) accountReferenced(ctx context.Context, companyID, code string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transaction_lines l
		JOIN transactions t ON t.id = l.tx_id
		WHERE t.company_id = ? AND l.account_code = ? AND t.status IN ('posted', 'locked')`,
		companyID, code)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("checking account references: %w", err)
	}
	return n > 0, nil
}

// Chart is an in-memory index over the chart of accounts. It satisfies
// template.AccountChecker.
type Chart struct {
	accounts []model.Account
	byCode   map[string]model.Account
}

// Chart loads the company's accounts into an indexed lookup.
func (s *Store) Chart(ctx context.Context, companyID string) (*Chart, error) {
	accounts, err := s.ListAccounts(ctx, companyID)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = a
	}
	return &Chart{accounts: accounts, byCode: byCode}, nil
}

// Exists reports whether an account code exists.
func (c *Chart) Exists(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Get returns an account by code.
func (c *Chart) Get(code string) (model.Account, bool) {
	a, ok := c.byCode[code]
	return a, ok
}

// All returns all accounts.
func (c *Chart) All() []model.Account {
	return c.accounts
}
