/*
projector.go - Occurrence expansion over a display window

PURPOSE:
  Turns a scheduled template into the ordered sequence of calendar
  occurrences a caller wants to display or materialize: the template's own
  date first, then virtual occurrences up to the window end. Split mothers
  additionally expand their children and a summary row carrying the
  sub-total and the variance against the mother's amount.

KEY INSIGHT:
  Occurrences are transient. They are produced fresh on every call and the
  projector never mutates the store or the templates, so re-running a
  projection with unchanged state yields an identical sequence. That is
  what makes redraws safe.

AMOUNT OVERRIDES:
  Loan-linked templates do not carry their own amounts: ordinal 0 and every
  child are priced by the loan amortization at the occurrence date, and
  virtual occurrences use the loan's flat recurring installment. The
  override REPLACES the template amount, it is never added to it.

ORPHANS:
  A split child whose mother is missing (corrupted or out-of-order data) is
  reported, never silently dropped and never auto-deleted. Bulk removal is
  a separate operation behind an explicit confirmation.

SEE ALSO:
  - recurrence.go: NextDate
  - loan.go: amortization amounts
*/
package engine

import "github.com/shopspring/decimal"

// Confirmer gates destructive operations behind an interactive yes/no
// question. A false answer must leave all state untouched.
type Confirmer interface {
	Confirm(message string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(message string) bool

func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

// Projector expands templates into occurrences.
type Projector struct {
	Store *TemplateStore
	Loans *LoanTable
}

func NewProjector(store *TemplateStore, loans *LoanTable) *Projector {
	return &Projector{Store: store, Loans: loans}
}

// Project returns the occurrences of the template inside [template date,
// windowEnd], ordered by date. An unknown id yields an empty sequence. A
// split child projects its mother (children never project independently);
// if the mother is missing, an OrphanError naming the child is returned.
func (p *Projector) Project(id int, windowEnd Date) ([]Occurrence, error) {
	t := p.Store.Get(id)
	if t == nil {
		return nil, nil
	}
	if t.MotherID != 0 {
		mother := p.Store.Get(t.MotherID)
		if mother == nil {
			return nil, &OrphanError{Children: []int{id}}
		}
		t = mother
	}
	return p.expand(t, windowEnd), nil
}

// ProjectAll projects every top-level template, insertion order, and
// collects the ids of orphan children instead of failing.
func (p *Projector) ProjectAll(windowEnd Date) ([]Occurrence, []int) {
	var (
		rows    []Occurrence
		orphans []int
	)
	for _, t := range p.Store.All() {
		if t.MotherID == 0 {
			rows = append(rows, p.expand(t, windowEnd)...)
			continue
		}
		if p.Store.Get(t.MotherID) == nil {
			orphans = append(orphans, t.ID)
		}
	}
	return rows, orphans
}

// DeleteOrphans removes the given orphan children after confirmation.
// Declining returns ErrConfirmationDeclined and deletes nothing.
func (p *Projector) DeleteOrphans(ids []int, confirm Confirmer) error {
	if len(ids) == 0 {
		return nil
	}
	if confirm == nil || !confirm.Confirm("Some scheduled children did not find their mother. Remove them?") {
		return ErrConfirmationDeclined
	}
	for _, id := range ids {
		p.Store.Delete(id, false)
	}
	return nil
}

func (p *Projector) expand(t *ScheduledTemplate, windowEnd Date) []Occurrence {
	rule := t.Rule()
	current := t.Date
	if t.FixedDay > 0 {
		current = current.WithDay(t.FixedDay)
	}

	children := p.Store.ChildrenOf(t.ID)

	// loan override: first occurrence and children are priced by the
	// amortization at the occurrence date, virtual ones by the flat
	// recurring installment
	var loan *Loan
	if t.LoanLinked && p.Loans != nil {
		if l := p.Loans.Get(t.TransferAccount); l != nil && l.FirstIsDifferent {
			loan = l
		}
	}

	firstAmount := t.Amount
	if loan != nil {
		firstAmount = loan.AmountAt(current)
	}

	rows := []Occurrence{{
		TemplateID: t.ID,
		Date:       current,
		Amount:     firstAmount,
		Ordinal:    0,
	}}

	if t.Split || len(children) > 0 {
		sum := decimal.Zero
		for _, childID := range children {
			child := p.Store.Get(childID)
			amount := child.Amount
			if loan != nil {
				amount = loan.AmountAt(current)
			}
			sum = sum.Add(amount)
			rows = append(rows, Occurrence{
				TemplateID: t.ID,
				ChildID:    childID,
				Date:       current,
				Amount:     amount,
				Ordinal:    0,
			})
		}
		variance := firstAmount.Sub(sum)
		rows = append(rows, Occurrence{
			TemplateID:    t.ID,
			Date:          current,
			Amount:        sum,
			Ordinal:       0,
			Summary:       true,
			Variance:      variance,
			VarianceAlert: !variance.IsZero(),
		})
	}

	virtualAmount := t.Amount
	if loan != nil {
		virtualAmount = loan.OtherInstallment.Neg()
	}

	ordinal := 0
	for {
		next, ok := NextDate(current, rule, t.LimitDate, windowEnd)
		if !ok {
			break
		}
		if t.FixedDay > 0 {
			// the override names the wanted day for every occurrence, so
			// re-apply it after each step and re-check the bounds
			next = next.WithDay(t.FixedDay)
			if exceedsBounds(next, t.LimitDate, windowEnd) {
				break
			}
		}
		current = next
		ordinal++
		rows = append(rows, Occurrence{
			TemplateID: t.ID,
			Date:       current,
			Amount:     virtualAmount,
			Ordinal:    ordinal,
			Virtual:    true,
		})
	}

	return rows
}
