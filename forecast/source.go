/*
Package forecast provides per-account budget forecasting: historical
division balances, scheduled-amount aggregation, and the deferred-debit
transfer roller.

This file: division sources. An account's forecast rows can be divided
either by category or by budget line. The source is picked once per
account and passed explicitly; aggregator nodes remember which source
produced them so switching sources invalidates stale nodes.
*/
package forecast

import "github.com/warp/forecast-engine/ledger"

// SourceKind tags which division scheme produced a node.
type SourceKind int

const (
	SourceCategory SourceKind = iota
	SourceBudget
)

func (k SourceKind) String() string {
	if k == SourceBudget {
		return "budget"
	}
	return "category"
}

// DivisionSource reads the division of a ledger transaction: either its
// category pair or its budget-line pair.
type DivisionSource interface {
	Kind() SourceKind
	Division(tx ledger.Transaction) int
	SubDivision(tx ledger.Transaction) int
}

// CategorySource divides by category/sub-category.
type CategorySource struct{}

func (CategorySource) Kind() SourceKind                        { return SourceCategory }
func (CategorySource) Division(tx ledger.Transaction) int      { return tx.Category }
func (CategorySource) SubDivision(tx ledger.Transaction) int   { return tx.SubCategory }

// BudgetSource divides by budget line/sub-line.
type BudgetSource struct{}

func (BudgetSource) Kind() SourceKind                      { return SourceBudget }
func (BudgetSource) Division(tx ledger.Transaction) int    { return tx.Budget }
func (BudgetSource) SubDivision(tx ledger.Transaction) int { return tx.SubBudget }
