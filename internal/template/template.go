// Package template resolves named accounting templates into balanced
// transaction drafts. Templates are configuration, not transactional state.
package template

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/saldo-dev/saldo/internal/model"
)

// AmountSource determines how a template line resolves its amount.
type AmountSource string

const (
	// SourceTotal takes the full input amount.
	SourceTotal AmountSource = "total"
	// SourceCustom takes a caller-supplied amount, falling back to the full
	// input amount when none is given.
	SourceCustom AmountSource = "custom"
	// SourcePercent takes a percentage of the input amount.
	SourcePercent AmountSource = "percent"
)

// PartnerSide marks which business partner a line belongs to.
type PartnerSide string

const (
	PartnerNone     PartnerSide = ""
	PartnerSupplier PartnerSide = "supplier"
	PartnerCustomer PartnerSide = "customer"
)

// Percentage is a decimal percent value that round-trips through YAML as a
// plain scalar (yaml.v3 cannot decode into decimal.Decimal directly).
type Percentage struct {
	decimal.Decimal
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Percentage) UnmarshalYAML(value *yaml.Node) error {
	d, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("parsing percent %q: %w", value.Value, err)
	}
	p.Decimal = d
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p Percentage) MarshalYAML() (any, error) {
	return p.Decimal.String(), nil
}

// Line is one leg of a template.
type Line struct {
	ID          string       `yaml:"id"`
	Side        model.Side   `yaml:"side"`
	AccountCode string       `yaml:"account"`
	Source      AmountSource `yaml:"amount_source"`
	Percent     Percentage   `yaml:"amount_value,omitempty"` // only for SourcePercent
	PartnerSide PartnerSide  `yaml:"partner_side,omitempty"`
}

// Template maps a business event to a balanced set of ledger lines.
type Template struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
	System      bool   `yaml:"system,omitempty"` // system templates are read-only
	Lines       []Line `yaml:"lines"`
}

// AccountChecker tests whether an account code exists in the chart of
// accounts.
type AccountChecker interface {
	Exists(code string) bool
}

var hundred = decimal.NewFromInt(100)

// Validate enforces template integrity at load time: known amount sources,
// existing accounts, at least two lines with both sides present, and percent
// values in (0, 100].
func (t *Template) Validate(accounts AccountChecker) error {
	if t.Code == "" {
		return fmt.Errorf("template missing code")
	}
	if len(t.Lines) < 2 {
		return fmt.Errorf("template %s: must have at least 2 lines, got %d", t.Code, len(t.Lines))
	}

	hasDebit, hasCredit := false, false
	seen := make(map[string]bool, len(t.Lines))
	for i, l := range t.Lines {
		switch l.Side {
		case model.SideDebit:
			hasDebit = true
		case model.SideCredit:
			hasCredit = true
		default:
			return fmt.Errorf("template %s line %d: unknown side %q", t.Code, i, l.Side)
		}

		switch l.Source {
		case SourceTotal, SourceCustom:
			if !l.Percent.IsZero() {
				return fmt.Errorf("template %s line %d: amount_value only valid with percent source", t.Code, i)
			}
		case SourcePercent:
			if !l.Percent.IsPositive() || l.Percent.GreaterThan(hundred) {
				return fmt.Errorf("template %s line %d: percent must be in (0, 100], got %s", t.Code, i, l.Percent)
			}
		default:
			return fmt.Errorf("template %s line %d: unknown amount source %q", t.Code, i, l.Source)
		}

		switch l.PartnerSide {
		case PartnerNone, PartnerSupplier, PartnerCustomer:
		default:
			return fmt.Errorf("template %s line %d: unknown partner side %q", t.Code, i, l.PartnerSide)
		}

		if l.ID == "" {
			return fmt.Errorf("template %s line %d: missing line id", t.Code, i)
		}
		if seen[l.ID] {
			return fmt.Errorf("template %s line %d: duplicate line id %q", t.Code, i, l.ID)
		}
		seen[l.ID] = true

		if !accounts.Exists(l.AccountCode) {
			return fmt.Errorf("template %s line %d: unknown account %q", t.Code, i, l.AccountCode)
		}
	}

	if !hasDebit || !hasCredit {
		return fmt.Errorf("template %s: must have at least one debit and one credit line", t.Code)
	}
	return nil
}
