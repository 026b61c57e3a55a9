/*
Package sqlite provides the SQLite-backed persistence collaborator.

PURPOSE:
  The core exposes its state as flat records (one row per scheduled
  template, transfer template, division node, or loan) and imports them
  back through the stores' SetFromFile entry points. This package owns the
  serialization; the core never touches SQL.

SAVE MODEL:
  A save is a full snapshot inside one transaction: delete-all then insert,
  matching the original file format's whole-document writes. On success the
  context's modified flags are cleared.

LOAD MODEL:
  Load builds a fresh SchedulingContext and feeds every row through
  SetFromFile, which preserves original ids and bumps the max-id counters
  so entities created afterwards never collide.

AMOUNTS:
  decimal values are stored as TEXT to keep exact fixed-point semantics;
  dates as TEXT in ISO form, empty string meaning "no date".

WAL MODE:
  SQLite is opened with WAL for better concurrency and crash recovery.

SEE ALSO:
  - engine/store.go, forecast/transfer.go: SetFromFile contracts
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/forecast-engine/engine"
	"github.com/warp/forecast-engine/forecast"
	"github.com/warp/forecast-engine/ledger"
)

// Store persists forecast state in SQLite.
type Store struct {
	db *sql.DB
}

// New creates a store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scheduled_templates (
		id INTEGER PRIMARY KEY,
		mother_id INTEGER NOT NULL DEFAULT 0,
		account INTEGER NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		payee INTEGER NOT NULL DEFAULT 0,
		category INTEGER NOT NULL DEFAULT 0,
		sub_category INTEGER NOT NULL DEFAULT 0,
		budget INTEGER NOT NULL DEFAULT 0,
		sub_budget INTEGER NOT NULL DEFAULT 0,
		frequency INTEGER NOT NULL,
		interval_unit INTEGER NOT NULL DEFAULT 0,
		interval_count INTEGER NOT NULL DEFAULT 0,
		limit_date TEXT NOT NULL DEFAULT '',
		fixed_day INTEGER NOT NULL DEFAULT 0,
		is_transfer INTEGER NOT NULL DEFAULT 0,
		transfer_account INTEGER NOT NULL DEFAULT 0,
		is_split INTEGER NOT NULL DEFAULT 0,
		loan_linked INTEGER NOT NULL DEFAULT 0,
		automatic INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_templates_mother
		ON scheduled_templates(mother_id);
	CREATE INDEX IF NOT EXISTS idx_templates_account
		ON scheduled_templates(account);

	CREATE TABLE IF NOT EXISTS transfer_templates (
		id INTEGER PRIMARY KEY,
		main_account INTEGER NOT NULL,
		card_account INTEGER NOT NULL,
		partial_balance INTEGER NOT NULL DEFAULT 0,
		fixed_debit_day INTEGER NOT NULL DEFAULT 0,
		direct_debit INTEGER NOT NULL DEFAULT 0,
		debit_date TEXT NOT NULL DEFAULT '',
		bascule_date TEXT NOT NULL DEFAULT '',
		main_payee INTEGER NOT NULL DEFAULT 0,
		main_payment INTEGER NOT NULL DEFAULT 0,
		main_category INTEGER NOT NULL DEFAULT 0,
		main_sub_cat INTEGER NOT NULL DEFAULT 0,
		main_budget INTEGER NOT NULL DEFAULT 0,
		main_sub_budget INTEGER NOT NULL DEFAULT 0,
		card_category INTEGER NOT NULL DEFAULT 0,
		card_sub_cat INTEGER NOT NULL DEFAULT 0,
		card_budget INTEGER NOT NULL DEFAULT 0,
		card_sub_budget INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS division_nodes (
		account INTEGER NOT NULL,
		division INTEGER NOT NULL,
		sub_division INTEGER NOT NULL DEFAULT 0,
		origin INTEGER NOT NULL DEFAULT 0,
		amount TEXT NOT NULL,
		balance TEXT NOT NULL,
		fiscal_year TEXT NOT NULL,
		edited INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (account, division, sub_division)
	);

	CREATE TABLE IF NOT EXISTS loans (
		account INTEGER PRIMARY KEY,
		capital TEXT NOT NULL,
		annual_rate TEXT NOT NULL,
		duration_months INTEGER NOT NULL,
		first_date TEXT NOT NULL DEFAULT '',
		first_is_different INTEGER NOT NULL DEFAULT 0,
		first_installment TEXT NOT NULL,
		other_installment TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save writes a full snapshot of the context, then clears its modified
// flags. All-or-nothing: a failed save leaves the previous snapshot.
func (s *Store) Save(ctx context.Context, sc *forecast.SchedulingContext) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"scheduled_templates", "transfer_templates", "division_nodes", "loans"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	for _, t := range sc.Templates.All() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scheduled_templates (
				id, mother_id, account, date, amount,
				payee, category, sub_category, budget, sub_budget,
				frequency, interval_unit, interval_count, limit_date, fixed_day,
				is_transfer, transfer_account, is_split, loan_linked, automatic, notes
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.MotherID, t.Account, dateText(t.Date), t.Amount.String(),
			t.Payee, t.Category, t.SubCategory, t.Budget, t.SubBudget,
			int(t.Frequency), int(t.IntervalUnit), t.IntervalCount, dateText(t.LimitDate), t.FixedDay,
			boolInt(t.Transfer), t.TransferAccount, boolInt(t.Split), boolInt(t.LoanLinked), boolInt(t.Automatic), t.Notes,
		)
		if err != nil {
			return err
		}
	}

	for _, t := range sc.Transfers.All() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transfer_templates (
				id, main_account, card_account, partial_balance, fixed_debit_day, direct_debit,
				debit_date, bascule_date,
				main_payee, main_payment, main_category, main_sub_cat, main_budget, main_sub_budget,
				card_category, card_sub_cat, card_budget, card_sub_budget
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.MainAccount, t.CardAccount, boolInt(t.PartialBalance), boolInt(t.FixedDebitDay), boolInt(t.DirectDebit),
			dateText(t.DebitDate), dateText(t.BasculeDate),
			t.MainPayee, t.MainPayment, t.MainCategory, t.MainSubCat, t.MainBudget, t.MainSubBudget,
			t.CardCategory, t.CardSubCat, t.CardBudget, t.CardSubBudget,
		)
		if err != nil {
			return err
		}
	}

	for _, n := range sc.Divisions.AllNodes() {
		if err := insertNode(ctx, tx, n, n.Division, 0); err != nil {
			return err
		}
		for sub, child := range n.Sub {
			if err := insertNode(ctx, tx, child, n.Division, sub); err != nil {
				return err
			}
		}
	}

	for _, l := range sc.Loans.All() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO loans (
				account, capital, annual_rate, duration_months,
				first_date, first_is_different, first_installment, other_installment
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.Account, l.Capital.String(), l.AnnualRate.String(), l.DurationMonths,
			dateText(l.FirstDate), boolInt(l.FirstIsDifferent),
			l.FirstInstallment.String(), l.OtherInstallment.String(),
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	sc.ClearModified()
	return nil
}

// Load builds a fresh context from the snapshot, preserving ids and max-id
// counters. A failed load returns an error and no context; nothing partial
// escapes into the session.
func (s *Store) Load(ctx context.Context, w ledger.Writer, b ledger.BalanceReader) (*forecast.SchedulingContext, error) {
	sc := forecast.NewContext(w, b)

	if err := s.loadTemplates(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.loadTransfers(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.loadNodes(ctx, sc); err != nil {
		return nil, err
	}
	if err := s.loadLoans(ctx, sc); err != nil {
		return nil, err
	}

	sc.ClearModified()
	return sc, nil
}

func (s *Store) loadTemplates(ctx context.Context, sc *forecast.SchedulingContext) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mother_id, account, date, amount,
			payee, category, sub_category, budget, sub_budget,
			frequency, interval_unit, interval_count, limit_date, fixed_day,
			is_transfer, transfer_account, is_split, loan_linked, automatic, notes
		FROM scheduled_templates ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t                                       engine.ScheduledTemplate
			date, amount, limitDate                 string
			frequency, unit                         int
			isTransfer, isSplit, loanLinked, auto   int
		)
		err := rows.Scan(&t.ID, &t.MotherID, &t.Account, &date, &amount,
			&t.Payee, &t.Category, &t.SubCategory, &t.Budget, &t.SubBudget,
			&frequency, &unit, &t.IntervalCount, &limitDate, &t.FixedDay,
			&isTransfer, &t.TransferAccount, &isSplit, &loanLinked, &auto, &t.Notes)
		if err != nil {
			return err
		}
		t.Date = parseDate(date)
		t.LimitDate = parseDate(limitDate)
		t.Amount = parseDecimal(amount)
		t.Frequency = engine.Frequency(frequency)
		t.IntervalUnit = engine.IntervalUnit(unit)
		t.Transfer = isTransfer != 0
		t.Split = isSplit != 0
		t.LoanLinked = loanLinked != 0
		t.Automatic = auto != 0
		sc.Templates.SetFromFile(t)
	}
	return rows.Err()
}

func (s *Store) loadTransfers(ctx context.Context, sc *forecast.SchedulingContext) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, main_account, card_account, partial_balance, fixed_debit_day, direct_debit,
			debit_date, bascule_date,
			main_payee, main_payment, main_category, main_sub_cat, main_budget, main_sub_budget,
			card_category, card_sub_cat, card_budget, card_sub_budget
		FROM transfer_templates ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t                           forecast.TransferTemplate
			partial, fixedDay, direct   int
			debitDate, basculeDate      string
		)
		err := rows.Scan(&t.ID, &t.MainAccount, &t.CardAccount, &partial, &fixedDay, &direct,
			&debitDate, &basculeDate,
			&t.MainPayee, &t.MainPayment, &t.MainCategory, &t.MainSubCat, &t.MainBudget, &t.MainSubBudget,
			&t.CardCategory, &t.CardSubCat, &t.CardBudget, &t.CardSubBudget)
		if err != nil {
			return err
		}
		t.PartialBalance = partial != 0
		t.FixedDebitDay = fixedDay != 0
		t.DirectDebit = direct != 0
		t.DebitDate = parseDate(debitDate)
		t.BasculeDate = parseDate(basculeDate)
		sc.Transfers.SetFromFile(t)
	}
	return rows.Err()
}

func (s *Store) loadNodes(ctx context.Context, sc *forecast.SchedulingContext) error {
	// parents before children so Sub maps exist when children arrive
	rows, err := s.db.QueryContext(ctx, `
		SELECT account, division, sub_division, origin, amount, balance, fiscal_year, edited
		FROM division_nodes ORDER BY account, division, sub_division`)
	if err != nil {
		return err
	}
	defer rows.Close()

	parents := make(map[forecast.Key]*forecast.Node)
	for rows.Next() {
		var (
			account, division, sub, origin, edited int
			amount, balance, fyear                 string
		)
		if err := rows.Scan(&account, &division, &sub, &origin, &amount, &balance, &fyear, &edited); err != nil {
			return err
		}
		n := &forecast.Node{
			Account:    account,
			Division:   division,
			Origin:     forecast.SourceKind(origin),
			Amount:     parseDecimal(amount),
			Balance:    parseDecimal(balance),
			FiscalYear: parseDecimal(fyear),
			Edited:     edited != 0,
			Sub:        make(map[int]*forecast.Node),
		}
		if sub == 0 {
			parents[forecast.Key{Account: account, Division: division}] = n
			sc.Divisions.SetFromFile(n)
			continue
		}
		n.Division = sub
		parent := parents[forecast.Key{Account: account, Division: division}]
		if parent == nil {
			parent = &forecast.Node{
				Account:  account,
				Division: division,
				Origin:   forecast.SourceKind(origin),
				Sub:      make(map[int]*forecast.Node),
			}
			parents[forecast.Key{Account: account, Division: division}] = parent
			sc.Divisions.SetFromFile(parent)
		}
		parent.Sub[sub] = n
	}
	return rows.Err()
}

func (s *Store) loadLoans(ctx context.Context, sc *forecast.SchedulingContext) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account, capital, annual_rate, duration_months,
			first_date, first_is_different, first_installment, other_installment
		FROM loans ORDER BY account`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l                              engine.Loan
			capital, rate, first, other    string
			firstDate                      string
			firstDiffers                   int
		)
		err := rows.Scan(&l.Account, &capital, &rate, &l.DurationMonths,
			&firstDate, &firstDiffers, &first, &other)
		if err != nil {
			return err
		}
		l.Capital = parseDecimal(capital)
		l.AnnualRate = parseDecimal(rate)
		l.FirstDate = parseDate(firstDate)
		l.FirstIsDifferent = firstDiffers != 0
		l.FirstInstallment = parseDecimal(first)
		l.OtherInstallment = parseDecimal(other)
		sc.Loans.Set(l)
	}
	return rows.Err()
}

// insertNode writes one node row. Children are stored under their parent's
// division number with their own id in sub_division.
func insertNode(ctx context.Context, tx *sql.Tx, n *forecast.Node, division, sub int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO division_nodes (account, division, sub_division, origin, amount, balance, fiscal_year, edited)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Account, division, sub, int(n.Origin),
		n.Amount.String(), n.Balance.String(), n.FiscalYear.String(), boolInt(n.Edited),
	)
	return err
}

func dateText(d engine.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDate(s string) engine.Date {
	if s == "" {
		return engine.Date{}
	}
	d, err := engine.ParseDate(s)
	if err != nil {
		return engine.Date{}
	}
	return d
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
