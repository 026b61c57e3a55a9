/*
transfer.go - Deferred-debit transfer roller

PURPOSE:
  A deferred-debit card account settles into a main account once a month.
  Each TransferTemplate tracks two dates: the debit date D (when the
  settlement posts in the main account) and the roll-over ("bascule") date
  B (when the card period closes), with D <= B.

CYCLE:
  Pending (today < B) -> Due (today >= B, or forced) -> on confirmation ->
  settlement transaction in the main account at D, zeroing transaction(s)
  in the card (or each member of a pseudo-balance account) at B-1, then
  both dates advance exactly one month -> Pending again.

  Declining the confirmation leaves everything untouched, so the check
  simply re-triggers on the next evaluation.

AMOUNTS:
  The zeroing amount is the negative of the balance computed at B-1, and
  every balance of the cycle is read BEFORE any new transaction posts, so
  the settlement cannot be double counted.
*/
package forecast

import (
	"github.com/shopspring/decimal"

	"github.com/warp/forecast-engine/engine"
	"github.com/warp/forecast-engine/ledger"
)

// RollState is the roller's per-template state.
type RollState int

const (
	RollPending RollState = iota
	RollDue
)

// TransferTemplate links a card (or pseudo-balance) account to the main
// account that settles it.
type TransferTemplate struct {
	ID          int
	MainAccount int
	CardAccount int

	// PartialBalance marks CardAccount as a pseudo-balance account whose
	// member accounts are zeroed individually.
	PartialBalance bool

	// FixedDebitDay clamps the advanced debit date to the last banking day
	// of the new month; otherwise the day of month is preserved.
	FixedDebitDay bool

	// DirectDebit creates the settlement transaction automatically on
	// roll-over.
	DirectDebit bool

	DebitDate   engine.Date
	BasculeDate engine.Date

	// attribution of the settlement transaction (main account)
	MainPayee     int
	MainPayment   int
	MainCategory  int
	MainSubCat    int
	MainBudget    int
	MainSubBudget int

	// attribution of the zeroing transaction(s) (card side)
	CardCategory  int
	CardSubCat    int
	CardBudget    int
	CardSubBudget int
}

// =============================================================================
// TRANSFER STORE
// =============================================================================

// TransferStore owns the transfer templates of the open file.
type TransferStore struct {
	byID     map[int]*TransferTemplate
	order    []int
	maxID    int
	modified bool
}

func NewTransferStore() *TransferStore {
	return &TransferStore{byID: make(map[int]*TransferTemplate)}
}

func (s *TransferStore) Create(t TransferTemplate) int {
	s.maxID++
	t.ID = s.maxID
	s.byID[t.ID] = &t
	s.order = append(s.order, t.ID)
	s.modified = true
	return t.ID
}

// SetFromFile inserts keeping the original id and feeds the max counter.
func (s *TransferStore) SetFromFile(t TransferTemplate) {
	if t.ID <= 0 {
		return
	}
	if _, exists := s.byID[t.ID]; !exists {
		s.order = append(s.order, t.ID)
	}
	s.byID[t.ID] = &t
	if t.ID > s.maxID {
		s.maxID = t.ID
	}
}

// Get returns the template, or nil when unknown.
func (s *TransferStore) Get(id int) *TransferTemplate { return s.byID[id] }

func (s *TransferStore) All() []*TransferTemplate {
	out := make([]*TransferTemplate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Remove deletes the template. Unknown ids are a silent no-op.
func (s *TransferStore) Remove(id int) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.modified = true
}

// RemoveByCard deletes the template settling the given card account.
func (s *TransferStore) RemoveByCard(cardAccount int) {
	for _, t := range s.All() {
		if t.CardAccount == cardAccount {
			s.Remove(t.ID)
			return
		}
	}
}

// RemoveAccount deletes every template referencing the account, as main or
// card side. Idempotent.
func (s *TransferStore) RemoveAccount(account int) {
	for _, t := range s.All() {
		if t.MainAccount == account || t.CardAccount == account {
			s.Remove(t.ID)
		}
	}
}

// Renumber assigns the real account id to templates created under the
// account-0 placeholder.
func (s *TransferStore) Renumber(newAccount int) {
	for _, t := range s.byID {
		if t.MainAccount == 0 {
			t.MainAccount = newAccount
		}
	}
}

func (s *TransferStore) MaxID() int     { return s.maxID }
func (s *TransferStore) Modified() bool { return s.modified }
func (s *TransferStore) ClearModified() { s.modified = false }

// Touch marks the store modified without changing a template. The roller
// calls it after advancing a cycle's dates in place, so the advanced dates
// reach the next save.
func (s *TransferStore) Touch() { s.modified = true }

// =============================================================================
// ROLLER
// =============================================================================

// Roller advances deferred-debit cycles, posting through the ledger
// collaborators.
type Roller struct {
	Writer   ledger.Writer
	Balances ledger.BalanceReader

	// Store, when set, is marked modified after a successful roll. Roll
	// mutates the template through its pointer, which the store cannot see
	// on its own.
	Store *TransferStore
}

func NewRoller(w ledger.Writer, b ledger.BalanceReader) *Roller {
	return &Roller{Writer: w, Balances: b}
}

// State reports whether the transfer cycle is due as of today.
func (r *Roller) State(t *TransferTemplate, today engine.Date) RollState {
	if t.BasculeDate.IsZero() || today.Before(t.BasculeDate) {
		return RollPending
	}
	return RollDue
}

// Roll performs one roll-over if the cycle is due (or force is set),
// gated by the confirmer. It returns true when the cycle advanced.
// Declining the confirmation returns ErrConfirmationDeclined with no state
// change of any kind.
func (r *Roller) Roll(t *TransferTemplate, today engine.Date, force bool, confirm engine.Confirmer) (bool, error) {
	if t == nil || t.BasculeDate.IsZero() {
		return false, nil
	}
	if r.State(t, today) != RollDue && !force {
		return false, nil
	}

	if confirm == nil || !confirm.Confirm("The deferred debit period is over. Post the settlement and start the next period?") {
		return false, engine.ErrConfirmationDeclined
	}

	zeroDate := t.BasculeDate.AddDays(-1)

	// read every balance of the cycle before posting anything
	var zeroings []ledger.AccountBalance
	settlement := decimal.Zero
	if t.PartialBalance {
		zeroings = r.Balances.PartialBalancesAt(t.CardAccount, zeroDate)
		for _, ab := range zeroings {
			settlement = settlement.Add(ab.Balance)
		}
	} else {
		balance := r.Balances.BalanceAt(t.CardAccount, zeroDate)
		zeroings = []ledger.AccountBalance{{Account: t.CardAccount, Balance: balance}}
		settlement = balance
	}

	if t.DirectDebit {
		r.Writer.NewTransaction(ledger.Transaction{
			Account:       t.MainAccount,
			Date:          t.DebitDate,
			Amount:        settlement,
			Payee:         t.MainPayee,
			PaymentMethod: t.MainPayment,
			Category:      t.MainCategory,
			SubCategory:   t.MainSubCat,
			Budget:        t.MainBudget,
			SubBudget:     t.MainSubBudget,
		})
	}

	for _, ab := range zeroings {
		r.Writer.NewTransaction(ledger.Transaction{
			Account:     ab.Account,
			Date:        zeroDate,
			Amount:      ab.Balance.Neg(),
			Payee:       t.MainPayee,
			Category:    t.CardCategory,
			SubCategory: t.CardSubCat,
			Budget:      t.CardBudget,
			SubBudget:   t.CardSubBudget,
		})
	}

	// both dates advance exactly one month
	debit := t.DebitDate.AddMonths(1)
	if t.FixedDebitDay {
		debit = debit.LastBankingDayOfMonth()
	}
	t.DebitDate = debit
	t.BasculeDate = t.BasculeDate.AddMonths(1)
	if r.Store != nil {
		r.Store.Touch()
	}

	return true, nil
}
