package template

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shopspring/decimal"

	"github.com/saldo-dev/saldo/internal/model"
)

// Load parses a YAML document containing a list of templates.
func Load(data []byte) ([]Template, error) {
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return doc.Templates, nil
}

// LoadDir reads every *.yaml file in dir and returns the combined template
// set, validated against the chart of accounts. A missing dir yields only the
// built-in templates.
func LoadDir(dir string, accounts AccountChecker) (*Set, error) {
	templates := Builtin()

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading template dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading template file %s: %w", e.Name(), err)
		}
		loaded, err := Load(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		templates = append(templates, loaded...)
	}

	return NewSet(templates, accounts)
}

// Set is a validated, code-indexed collection of templates.
type Set struct {
	templates []Template
	byCode    map[string]*Template
}

// NewSet validates all templates and indexes them by code. Later templates
// may not shadow earlier ones; system templates are read-only.
func NewSet(templates []Template, accounts AccountChecker) (*Set, error) {
	byCode := make(map[string]*Template, len(templates))
	for i := range templates {
		t := &templates[i]
		if err := t.Validate(accounts); err != nil {
			return nil, err
		}
		if prev, ok := byCode[t.Code]; ok {
			if prev.System {
				return nil, fmt.Errorf("template %s: system template is read-only", t.Code)
			}
			return nil, fmt.Errorf("template %s: duplicate code", t.Code)
		}
		byCode[t.Code] = t
	}
	return &Set{templates: templates, byCode: byCode}, nil
}

// Get returns the template with the given code.
func (s *Set) Get(code string) (*Template, bool) {
	t, ok := s.byCode[code]
	return t, ok
}

// All returns all templates.
func (s *Set) All() []Template {
	return s.templates
}

// Built-in template codes.
const (
	CodeInvoiceIssued   = "invoice_issued"
	CodeInvoiceReceived = "invoice_received"
	CodeBankReceipt     = "bank_receipt"
	CodeBankPayment     = "bank_payment"
	CodePayroll         = "payroll"
	CodePaymentPairing  = "payment_pairing"
)

// vatRate is the standard Slovak VAT percentage used by the built-in invoice
// templates.
var vatRate = decimal.RequireFromString("20")

// Builtin returns the system templates covering the common business events.
func Builtin() []Template {
	base := hundred.Sub(vatRate) // 80% net portion

	return []Template{
		{
			Code:        CodeInvoiceIssued,
			Description: "Vydaná faktúra (odberateľská)",
			System:      true,
			Lines: []Line{
				{ID: "receivable", Side: model.SideDebit, AccountCode: "311", Source: SourceTotal, PartnerSide: PartnerCustomer},
				{ID: "revenue", Side: model.SideCredit, AccountCode: "602", Source: SourcePercent, Percent: Percentage{base}},
				{ID: "vat", Side: model.SideCredit, AccountCode: "343", Source: SourcePercent, Percent: Percentage{vatRate}},
			},
		},
		{
			Code:        CodeInvoiceReceived,
			Description: "Prijatá faktúra (dodávateľská)",
			System:      true,
			Lines: []Line{
				{ID: "expense", Side: model.SideDebit, AccountCode: "518", Source: SourcePercent, Percent: Percentage{base}},
				{ID: "vat", Side: model.SideDebit, AccountCode: "343", Source: SourcePercent, Percent: Percentage{vatRate}},
				{ID: "payable", Side: model.SideCredit, AccountCode: "321", Source: SourceTotal, PartnerSide: PartnerSupplier},
			},
		},
		{
			Code:        CodeBankReceipt,
			Description: "Príjem na bankový účet",
			System:      true,
			Lines: []Line{
				{ID: "bank", Side: model.SideDebit, AccountCode: "221", Source: SourceTotal},
				{ID: "receivable", Side: model.SideCredit, AccountCode: "311", Source: SourceTotal, PartnerSide: PartnerCustomer},
			},
		},
		{
			Code:        CodeBankPayment,
			Description: "Úhrada z bankového účtu",
			System:      true,
			Lines: []Line{
				{ID: "payable", Side: model.SideDebit, AccountCode: "321", Source: SourceTotal, PartnerSide: PartnerSupplier},
				{ID: "bank", Side: model.SideCredit, AccountCode: "221", Source: SourceTotal},
			},
		},
		{
			Code:        CodePayroll,
			Description: "Mzdy",
			System:      true,
			Lines: []Line{
				{ID: "wages", Side: model.SideDebit, AccountCode: "521", Source: SourceTotal},
				{ID: "employees", Side: model.SideCredit, AccountCode: "331", Source: SourceTotal},
			},
		},
		{
			Code:        CodePaymentPairing,
			Description: "Spárovanie bankového pohybu s otvorenou položkou",
			System:      true,
			Lines: []Line{
				{ID: "bank", Side: model.SideDebit, AccountCode: "221", Source: SourceTotal},
				{ID: "receivable", Side: model.SideCredit, AccountCode: "311", Source: SourceTotal, PartnerSide: PartnerCustomer},
			},
		},
	}
}
