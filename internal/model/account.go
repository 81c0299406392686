package model

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Side is one of the two sides of a ledger line (Má dať / Dal).
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Account is one row in the chart of accounts. Accounts referenced by a
// posted transaction are immutable, and system accounts cannot be deleted.
type Account struct {
	Code       string // e.g. "311"
	Name       string
	Type       AccountType
	NormalSide Side // side on which increases are recorded
	System     bool
}

// NormalSideFor returns the conventional normal side for an account type.
func NormalSideFor(t AccountType) Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	case AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue:
		return SideCredit
	default:
		return SideDebit
	}
}

// DefaultChart returns the built-in chart of accounts (Slovak conventions:
// 221 bank, 311 receivables, 321 payables, 5xx expenses, 6xx revenue).
func DefaultChart() []Account {
	return []Account{
		{Code: "211", Name: "Pokladnica", Type: AccountTypeAsset, NormalSide: SideDebit, System: true},
		{Code: "221", Name: "Bankové účty", Type: AccountTypeAsset, NormalSide: SideDebit, System: true},
		{Code: "311", Name: "Odberatelia", Type: AccountTypeAsset, NormalSide: SideDebit, System: true},
		{Code: "321", Name: "Dodávatelia", Type: AccountTypeLiability, NormalSide: SideCredit, System: true},
		{Code: "331", Name: "Zamestnanci", Type: AccountTypeLiability, NormalSide: SideCredit, System: true},
		{Code: "343", Name: "Daň z pridanej hodnoty", Type: AccountTypeLiability, NormalSide: SideCredit, System: true},
		{Code: "411", Name: "Základné imanie", Type: AccountTypeEquity, NormalSide: SideCredit, System: true},
		{Code: "518", Name: "Ostatné služby", Type: AccountTypeExpense, NormalSide: SideDebit, System: true},
		{Code: "521", Name: "Mzdové náklady", Type: AccountTypeExpense, NormalSide: SideDebit, System: true},
		{Code: "602", Name: "Tržby z predaja služieb", Type: AccountTypeRevenue, NormalSide: SideCredit, System: true},
	}
}
