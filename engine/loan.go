package engine

import "github.com/shopspring/decimal"

// =============================================================================
// LOAN SCHEDULE - Amortization amounts for loan-linked templates
// =============================================================================

// Loan describes an amortized loan tied to one account. Loan-linked
// scheduled templates take their amounts from here instead of carrying a
// fixed amount of their own.
type Loan struct {
	Account        int
	Capital        decimal.Decimal
	AnnualRate     decimal.Decimal // percent, e.g. 3.5
	DurationMonths int
	FirstDate      Date

	// FirstIsDifferent marks loans whose first installment (capital share,
	// fees, interests computed pro rata) differs from the flat recurring one.
	FirstIsDifferent bool
	FirstInstallment decimal.Decimal
	OtherInstallment decimal.Decimal
}

// AmountAt returns the installment due at the given date: the first
// installment on (or before) the first due date, the recurring one after.
// Scheduled amounts are debits, so the result is negated.
func (l *Loan) AmountAt(date Date) decimal.Decimal {
	if l.FirstIsDifferent && date.BeforeOrEqual(l.FirstDate) {
		return l.FirstInstallment.Neg()
	}
	return l.OtherInstallment.Neg()
}

// MonthlyPayment computes the flat annuity for the loan parameters. It is a
// convenience for callers building a Loan without a known installment; the
// projector itself only reads FirstInstallment/OtherInstallment.
func (l *Loan) MonthlyPayment() decimal.Decimal {
	if l.DurationMonths <= 0 {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	twelve := decimal.NewFromInt(12)
	rate := l.AnnualRate.Div(hundred).Div(twelve)
	if rate.IsZero() {
		return l.Capital.Div(decimal.NewFromInt(int64(l.DurationMonths))).Round(2)
	}
	// payment = C * r / (1 - (1+r)^-n)
	one := decimal.NewFromInt(1)
	factor := one.Add(rate).Pow(decimal.NewFromInt(int64(l.DurationMonths)))
	payment := l.Capital.Mul(rate).Mul(factor).Div(factor.Sub(one))
	return payment.Round(2)
}

// LoanTable indexes loans by account.
type LoanTable struct {
	byAccount map[int]*Loan
}

func NewLoanTable() *LoanTable {
	return &LoanTable{byAccount: make(map[int]*Loan)}
}

func (lt *LoanTable) Set(l Loan) { lt.byAccount[l.Account] = &l }

// Get returns the loan of the account, or nil.
func (lt *LoanTable) Get(account int) *Loan { return lt.byAccount[account] }

func (lt *LoanTable) Remove(account int) { delete(lt.byAccount, account) }

// All returns the loans in unspecified order.
func (lt *LoanTable) All() []*Loan {
	out := make([]*Loan, 0, len(lt.byAccount))
	for _, l := range lt.byAccount {
		out = append(out, l)
	}
	return out
}
