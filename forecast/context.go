/*
context.go - Per-file lifetime of the forecast engine

PURPOSE:
  SchedulingContext replaces the old pattern of process-wide singleton
  tables. One context is constructed per opened file and owns the template
  store, the aggregator, the transfer store, the loan table, and the
  projector; it is passed explicitly to every operation. Closing a file is
  Teardown plus dropping the context, so partially constructed state from a
  failed load can never leak into the next session.
*/
package forecast

import (
	"github.com/warp/forecast-engine/engine"
	"github.com/warp/forecast-engine/ledger"
)

// SchedulingContext owns all forecast state of one open file.
type SchedulingContext struct {
	Templates *engine.TemplateStore
	Loans     *engine.LoanTable
	Projector *engine.Projector

	Divisions *Aggregator
	Transfers *TransferStore
	Roller    *Roller
}

// NewContext builds a fresh context around the ledger collaborators.
func NewContext(w ledger.Writer, b ledger.BalanceReader) *SchedulingContext {
	templates := engine.NewTemplateStore()
	loans := engine.NewLoanTable()
	transfers := NewTransferStore()
	roller := NewRoller(w, b)
	roller.Store = transfers
	return &SchedulingContext{
		Templates: templates,
		Loans:     loans,
		Projector: engine.NewProjector(templates, loans),
		Divisions: NewAggregator(),
		Transfers: transfers,
		Roller:    roller,
	}
}

// Teardown empties every owned collection. The context must not be used
// for a new file afterwards; open a fresh one instead.
func (c *SchedulingContext) Teardown() {
	c.Templates = engine.NewTemplateStore()
	c.Loans = engine.NewLoanTable()
	c.Projector = engine.NewProjector(c.Templates, c.Loans)
	c.Divisions = NewAggregator()
	c.Transfers = NewTransferStore()
	c.Roller.Store = c.Transfers
}

// RemoveAccount deletes every template, division node, transfer template
// and loan referencing the account. Idempotent.
func (c *SchedulingContext) RemoveAccount(account int) {
	for _, t := range c.Templates.All() {
		if t.Account == account && t.MotherID == 0 {
			c.Templates.Delete(t.ID, true)
		}
	}
	c.Divisions.RemoveAccount(account)
	c.Transfers.RemoveAccount(account)
	c.Loans.Remove(account)
}

// Renumber moves everything recorded under the account-0 placeholder onto
// the real account id, once numbering is known.
func (c *SchedulingContext) Renumber(newAccount int) {
	for _, t := range c.Templates.All() {
		if t.Account == 0 {
			updated := *t
			updated.Account = newAccount
			c.Templates.Update(t.ID, updated)
		}
	}
	c.Divisions.Renumber(newAccount)
	c.Transfers.Renumber(newAccount)
}

// Modified reports whether any owned store changed since the last save.
func (c *SchedulingContext) Modified() bool {
	return c.Templates.Modified() || c.Transfers.Modified()
}

// ClearModified is called by the persistence collaborator after a save.
func (c *SchedulingContext) ClearModified() {
	c.Templates.ClearModified()
	c.Transfers.ClearModified()
}

// PopulateScheduled accumulates the projected occurrences of the account's
// templates into division nodes, the forward-looking counterpart of
// Aggregator.PopulateHistory. The children of a split carry its division
// detail: child rows count under the child's division, and virtual rows of
// a split mother spread the children's amounts instead of the mother's
// total. Mother rows of a split and summary rows never count.
func (c *SchedulingContext) PopulateScheduled(account int, windowEnd engine.Date, kind SourceKind, current, fiscalYear Period) {
	c.Divisions.SetSource(account, kind)
	rows, _ := c.Projector.ProjectAll(windowEnd)
	for _, row := range rows {
		if row.Summary {
			continue
		}
		t := c.Templates.Get(row.TemplateID)
		if t == nil || t.Account != account {
			continue
		}
		mode, counted := periodMode(row.Date, current, fiscalYear)
		if !counted {
			continue
		}

		if row.ChildID != 0 {
			child := c.Templates.Get(row.ChildID)
			div, sub := templateDivision(child, kind)
			c.Divisions.Accumulate(account, div, sub, row.Amount, mode)
			continue
		}

		children := c.Templates.ChildrenOf(t.ID)
		if t.Split || len(children) > 0 {
			if !row.Virtual {
				// the first occurrence's detail arrives via child rows
				continue
			}
			for _, childID := range children {
				child := c.Templates.Get(childID)
				div, sub := templateDivision(child, kind)
				c.Divisions.Accumulate(account, div, sub, child.Amount, mode)
			}
			continue
		}

		div, sub := templateDivision(t, kind)
		c.Divisions.Accumulate(account, div, sub, row.Amount, mode)
	}
}

// periodMode classifies a date against the balance and fiscal-year periods.
// Dates in neither period do not count.
func periodMode(d engine.Date, current, fiscalYear Period) (Mode, bool) {
	inCurrent := current.Contains(d)
	inFyear := fiscalYear.Contains(d)
	switch {
	case inCurrent && inFyear:
		return ModeBoth, true
	case inFyear:
		return ModeFiscalYear, true
	case inCurrent:
		return ModeBalance, true
	}
	return 0, false
}

func templateDivision(t *engine.ScheduledTemplate, kind SourceKind) (int, int) {
	if kind == SourceBudget {
		return t.Budget, t.SubBudget
	}
	return t.Category, t.SubCategory
}

// WindowEnd computes the forecast window end from a start date and a month
// count: a start on the 1st snaps to the last day of the final month, any
// other start is months later minus one day.
func WindowEnd(start engine.Date, months int) engine.Date {
	if months < 1 {
		months = 1
	}
	if start.Day() == 1 {
		return start.AddMonths(months - 1).LastDayOfMonth()
	}
	return start.AddMonths(months).AddDays(-1)
}
