/*
Package ledger defines the transaction-ledger collaborators of the engine.

PURPOSE:
  The forecast core does not own real transactions. When a deferred-debit
  cycle rolls over or a due occurrence is materialized, it asks an opaque
  Writer to create ledger transactions and a BalanceReader for "balance as
  of date". The core treats both as services; the application wires real
  implementations, tests wire Memory.

SEE ALSO:
  - memory.go: in-memory implementation for tests and the demo server
*/
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/warp/forecast-engine/engine"
)

// Transaction is one ledger row the core asks to create. The core fills
// only what it knows; the collaborator owns numbering and persistence.
type Transaction struct {
	ID      int
	Account int
	Date    engine.Date
	Amount  decimal.Decimal

	Payee         int
	Category      int
	SubCategory   int
	Budget        int
	SubBudget     int
	PaymentMethod int
	Notes         string
}

// Writer creates ledger transactions and returns their ids.
type Writer interface {
	NewTransaction(tx Transaction) int
}

// BalanceReader answers balance questions the roller needs.
type BalanceReader interface {
	// BalanceAt returns the account balance as of the given date.
	BalanceAt(account int, date engine.Date) decimal.Decimal

	// PartialBalancesAt returns, for a pseudo-balance account, each
	// sub-account with its balance as of the given date.
	PartialBalancesAt(pseudo int, date engine.Date) []AccountBalance
}

// AccountBalance pairs a sub-account with its computed balance.
type AccountBalance struct {
	Account int
	Balance decimal.Decimal
}
