package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/forecast-engine/engine"
)

// =============================================================================
// MEMORY LEDGER - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory ledger: a Writer, a BalanceReader, and a place for
// tests to seed transactions and pseudo-balance account groupings.
type Memory struct {
	transactions []Transaction
	subAccounts  map[int][]int // pseudo account -> member accounts
	nextID       int
}

func NewMemory() *Memory {
	return &Memory{subAccounts: make(map[int][]int)}
}

// NewTransaction appends the transaction, assigning the next id.
func (m *Memory) NewTransaction(tx Transaction) int {
	m.nextID++
	tx.ID = m.nextID
	m.transactions = append(m.transactions, tx)
	return tx.ID
}

// SetSubAccounts declares the member accounts of a pseudo-balance account.
func (m *Memory) SetSubAccounts(pseudo int, accounts []int) {
	m.subAccounts[pseudo] = accounts
}

// BalanceAt sums every transaction of the account dated on or before date.
func (m *Memory) BalanceAt(account int, date engine.Date) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range m.transactions {
		if tx.Account == account && tx.Date.BeforeOrEqual(date) {
			balance = balance.Add(tx.Amount)
		}
	}
	return balance
}

func (m *Memory) PartialBalancesAt(pseudo int, date engine.Date) []AccountBalance {
	members := m.subAccounts[pseudo]
	out := make([]AccountBalance, 0, len(members))
	for _, account := range members {
		out = append(out, AccountBalance{Account: account, Balance: m.BalanceAt(account, date)})
	}
	return out
}

// Transactions returns a copy of all rows ordered by date then id.
func (m *Memory) Transactions() []Transaction {
	out := make([]Transaction, len(m.transactions))
	copy(out, m.transactions)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ByAccount returns the transactions of one account, ordered as Transactions.
func (m *Memory) ByAccount(account int) []Transaction {
	var out []Transaction
	for _, tx := range m.Transactions() {
		if tx.Account == account {
			out = append(out, tx)
		}
	}
	return out
}
