/*
aggregate.go - Per-account, per-division balance accumulation

PURPOSE:
  The Aggregator owns the division balance table used by the prediction
  tabs: one node per (account, division), with at most one nesting level of
  sub-division children. Nodes accumulate either historical actuals or
  future scheduled amounts, split into a current-period and a fiscal-year
  accumulator.

USER OVERRIDE WINS:
  SetManual stores a literal value and flags the node edited. Later
  Accumulate calls keep feeding the accumulators (and may create children)
  but never overwrite an edited node's scalar value. ResetEdited is the
  explicit "recompute from scratch" escape hatch.

KEYING:
  Nodes are keyed by a (account, division) value struct, not a formatted
  string. Account 0 is a reserved placeholder meaning "not yet assigned";
  Renumber moves placeholder nodes onto the real account id once known.
*/
package forecast

import (
	"github.com/shopspring/decimal"

	"github.com/warp/forecast-engine/engine"
	"github.com/warp/forecast-engine/ledger"
)

// Mode selects which accumulator(s) an amount feeds.
type Mode int

const (
	ModeBalance Mode = iota
	ModeFiscalYear
	ModeBoth
)

// Period is a closed date interval.
type Period struct {
	Start engine.Date
	End   engine.Date
}

func (p Period) Contains(d engine.Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Key identifies a division balance node.
type Key struct {
	Account  int
	Division int
}

// Node is one accumulated division balance. Its scalar Amount and its
// children are independent: the UI can show either, so both are retained
// and never merged.
type Node struct {
	Account  int
	Division int
	Origin   SourceKind

	Amount     decimal.Decimal // scalar value shown/forecast; manual value when Edited
	Balance    decimal.Decimal // current-period accumulator
	FiscalYear decimal.Decimal // fiscal-year accumulator
	Edited     bool

	Sub map[int]*Node // one level only; children never nest further
}

func newNode(account, division int, origin SourceKind) *Node {
	return &Node{Account: account, Division: division, Origin: origin, Sub: make(map[int]*Node)}
}

func (n *Node) add(amount decimal.Decimal, mode Mode) {
	switch mode {
	case ModeBalance:
		n.Balance = n.Balance.Add(amount)
	case ModeFiscalYear:
		n.FiscalYear = n.FiscalYear.Add(amount)
	case ModeBoth:
		n.Balance = n.Balance.Add(amount)
		n.FiscalYear = n.FiscalYear.Add(amount)
	}
	if !n.Edited && mode != ModeFiscalYear {
		n.Amount = n.Balance
	}
}

// Aggregator owns every division balance node of the open file.
type Aggregator struct {
	nodes   map[Key]*Node
	sources map[int]SourceKind // per-account division scheme
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		nodes:   make(map[Key]*Node),
		sources: make(map[int]SourceKind),
	}
}

// SetSource records which division scheme the account currently uses.
func (a *Aggregator) SetSource(account int, kind SourceKind) {
	a.sources[account] = kind
}

// Source returns the account's division scheme (category by default).
func (a *Aggregator) Source(account int) SourceKind { return a.sources[account] }

// node returns the (account, division) node, creating it on first use.
func (a *Aggregator) node(account, division int) *Node {
	k := Key{Account: account, Division: division}
	n := a.nodes[k]
	if n == nil {
		n = newNode(account, division, a.Source(account))
		a.nodes[k] = n
	}
	return n
}

// sub returns the sub-division child, creating it on first use.
func (a *Aggregator) sub(n *Node, subDivision int) *Node {
	child := n.Sub[subDivision]
	if child == nil {
		child = newNode(n.Account, subDivision, n.Origin)
		n.Sub[subDivision] = child
	}
	return child
}

// AddDivision declares a division (and optional sub-division) as tracked
// for the account, resetting any stale manual value on the division node.
func (a *Aggregator) AddDivision(account, division, subDivision int) {
	n := a.node(account, division)
	n.Edited = false
	n.Amount = decimal.Zero
	if subDivision > 0 {
		a.sub(n, subDivision)
	}
}

// Accumulate adds amount into the node's accumulators per mode, creating
// the node (and sub-division child) on first use. An edited node keeps its
// manual scalar value; its accumulators and children still update.
func (a *Aggregator) Accumulate(account, division, subDivision int, amount decimal.Decimal, mode Mode) {
	n := a.node(account, division)
	n.add(amount, mode)
	if subDivision > 0 {
		a.sub(n, subDivision).add(amount, mode)
	}
}

// Get returns the scalar amount of the node, or zero when absent.
func (a *Aggregator) Get(account, division, subDivision int) decimal.Decimal {
	n := a.lookup(account, division, subDivision)
	if n == nil {
		return decimal.Zero
	}
	return n.Amount
}

// GetFiscalYear returns the fiscal-year accumulator, or zero when absent.
func (a *Aggregator) GetFiscalYear(account, division, subDivision int) decimal.Decimal {
	n := a.lookup(account, division, subDivision)
	if n == nil {
		return decimal.Zero
	}
	return n.FiscalYear
}

// GetEdited reports the manual-override flag. A node whose origin differs
// from the account's current division scheme is stale and reports false.
func (a *Aggregator) GetEdited(account, division, subDivision int) bool {
	n := a.nodes[Key{Account: account, Division: division}]
	if n == nil || n.Origin != a.Source(account) {
		return false
	}
	if subDivision > 0 {
		child := n.Sub[subDivision]
		return child != nil && child.Edited
	}
	return n.Edited
}

// SetManual stores a literal value and marks the node edited; from then on
// Accumulate leaves the scalar value alone.
func (a *Aggregator) SetManual(account, division, subDivision int, amount decimal.Decimal) {
	n := a.node(account, division)
	if subDivision > 0 {
		n = a.sub(n, subDivision)
	}
	n.Amount = amount
	n.Edited = true
}

// ResetEdited zeroes the value and clears the flag of every edited node
// under the account. Used when the user asks to recompute from scratch.
func (a *Aggregator) ResetEdited(account int) {
	for _, n := range a.nodes {
		if n.Account != account {
			continue
		}
		if n.Edited {
			n.Amount = decimal.Zero
			n.Edited = false
		}
		for _, child := range n.Sub {
			if child.Edited {
				child.Amount = decimal.Zero
				child.Edited = false
			}
		}
	}
}

// RemoveAccount deletes every node of the account. Idempotent; a partially
// removed account is fine.
func (a *Aggregator) RemoveAccount(account int) {
	// collect-then-remove, never delete while ranging
	var stale []Key
	for k := range a.nodes {
		if k.Account == account {
			stale = append(stale, k)
		}
	}
	for _, k := range stale {
		delete(a.nodes, k)
	}
	delete(a.sources, account)
}

// Renumber re-keys nodes created under the account-0 placeholder onto the
// real account id once it is assigned.
func (a *Aggregator) Renumber(newAccount int) {
	var placeholders []Key
	for k := range a.nodes {
		if k.Account == 0 {
			placeholders = append(placeholders, k)
		}
	}
	for _, k := range placeholders {
		n := a.nodes[k]
		delete(a.nodes, k)
		n.Account = newAccount
		for _, child := range n.Sub {
			child.Account = newAccount
		}
		a.nodes[Key{Account: newAccount, Division: k.Division}] = n
	}
	if kind, ok := a.sources[0]; ok {
		delete(a.sources, 0)
		a.sources[newAccount] = kind
	}
}

// Nodes returns every node of the account (top level only).
func (a *Aggregator) Nodes(account int) []*Node {
	var out []*Node
	for k, n := range a.nodes {
		if k.Account == account {
			out = append(out, n)
		}
	}
	return out
}

// AllNodes returns every top-level node (children hang off Sub), in
// unspecified order. Used by the persistence collaborator.
func (a *Aggregator) AllNodes() []*Node {
	out := make([]*Node, 0, len(a.nodes))
	for _, n := range a.nodes {
		out = append(out, n)
	}
	return out
}

// SetFromFile installs a node loaded from a file, keyed by its recorded
// account and division.
func (a *Aggregator) SetFromFile(n *Node) {
	if n == nil {
		return
	}
	if n.Sub == nil {
		n.Sub = make(map[int]*Node)
	}
	a.nodes[Key{Account: n.Account, Division: n.Division}] = n
}

// PopulateHistory accumulates historical actuals into the account's nodes
// through the given division source. A transaction inside both the current
// period and the fiscal year feeds both accumulators.
func (a *Aggregator) PopulateHistory(account int, txs []ledger.Transaction, src DivisionSource, current, fiscalYear Period) {
	a.SetSource(account, src.Kind())
	for _, tx := range txs {
		if tx.Account != account {
			continue
		}
		mode, counted := periodMode(tx.Date, current, fiscalYear)
		if !counted {
			continue
		}
		a.Accumulate(account, src.Division(tx), src.SubDivision(tx), tx.Amount, mode)
	}
}

func (a *Aggregator) lookup(account, division, subDivision int) *Node {
	n := a.nodes[Key{Account: account, Division: division}]
	if n == nil {
		return nil
	}
	if subDivision > 0 {
		return n.Sub[subDivision]
	}
	return n
}
