package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/forecast-engine/engine"
	"github.com/warp/forecast-engine/forecast"
	"github.com/warp/forecast-engine/ledger"
	"github.com/warp/forecast-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(y int, m time.Month, d int) engine.Date {
	return engine.NewDate(y, m, d)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestStore_SaveLoad_RoundTripsTemplates(t *testing.T) {
	store := newTestStore(t)
	book := ledger.NewMemory()
	sc := forecast.NewContext(book, book)

	motherID := sc.Templates.Create(engine.ScheduledTemplate{
		Account:   1,
		Date:      date(2024, time.January, 31),
		Amount:    amount("-120.55"),
		Payee:     3,
		Category:  10,
		Frequency: engine.FreqMonthly,
		LimitDate: date(2025, time.January, 31),
		FixedDay:  31,
		Split:     true,
		Notes:     "rent",
	})
	sc.Templates.Create(engine.ScheduledTemplate{
		MotherID:  motherID,
		Account:   1,
		Date:      date(2024, time.January, 31),
		Amount:    amount("-120.55"),
		Category:  11,
		Frequency: engine.FreqMonthly,
	})

	require.NoError(t, store.Save(context.Background(), sc))
	assert.False(t, sc.Modified(), "a save clears the modified flags")

	loaded, err := store.Load(context.Background(), book, book)
	require.NoError(t, err)

	mother := loaded.Templates.Get(motherID)
	require.NotNil(t, mother)
	assert.Equal(t, 1, mother.Account)
	assert.True(t, mother.Amount.Equal(amount("-120.55")))
	assert.True(t, mother.Date.Equal(date(2024, time.January, 31)))
	assert.True(t, mother.LimitDate.Equal(date(2025, time.January, 31)))
	assert.Equal(t, 31, mother.FixedDay)
	assert.True(t, mother.Split)
	assert.Equal(t, "rent", mother.Notes)

	children := loaded.Templates.ChildrenOf(motherID)
	require.Len(t, children, 1)

	// ids created after a load never collide with loaded ones
	next := loaded.Templates.Create(engine.ScheduledTemplate{
		Account: 1, Date: date(2024, time.March, 1),
		Amount: amount("-1"), Frequency: engine.FreqOnce,
	})
	assert.Greater(t, next, sc.Templates.MaxID())
}

func TestStore_SaveLoad_RoundTripsDivisionNodes(t *testing.T) {
	store := newTestStore(t)
	book := ledger.NewMemory()
	sc := forecast.NewContext(book, book)

	sc.Divisions.SetSource(1, forecast.SourceCategory)
	sc.Divisions.Accumulate(1, 10, 101, amount("-30"), forecast.ModeBoth)
	sc.Divisions.SetManual(1, 10, 0, amount("-99.99"))

	require.NoError(t, store.Save(context.Background(), sc))
	loaded, err := store.Load(context.Background(), book, book)
	require.NoError(t, err)

	assert.True(t, loaded.Divisions.Get(1, 10, 0).Equal(amount("-99.99")),
		"manual values survive a round trip")
	assert.True(t, loaded.Divisions.GetEdited(1, 10, 0))
	assert.True(t, loaded.Divisions.Get(1, 10, 101).Equal(amount("-30")))
	assert.True(t, loaded.Divisions.GetFiscalYear(1, 10, 101).Equal(amount("-30")))
}

func TestStore_SaveLoad_RoundTripsTransfersAndLoans(t *testing.T) {
	store := newTestStore(t)
	book := ledger.NewMemory()
	sc := forecast.NewContext(book, book)

	tid := sc.Transfers.Create(forecast.TransferTemplate{
		MainAccount:   1,
		CardAccount:   2,
		DirectDebit:   true,
		FixedDebitDay: true,
		DebitDate:     date(2024, time.January, 5),
		BasculeDate:   date(2024, time.January, 10),
		MainPayee:     3,
	})
	sc.Loans.Set(engine.Loan{
		Account:          2,
		Capital:          amount("100000"),
		AnnualRate:       amount("3.6"),
		DurationMonths:   120,
		FirstDate:        date(2024, time.January, 10),
		FirstIsDifferent: true,
		FirstInstallment: amount("812.33"),
		OtherInstallment: amount("745.10"),
	})

	require.NoError(t, store.Save(context.Background(), sc))
	loaded, err := store.Load(context.Background(), book, book)
	require.NoError(t, err)

	transfer := loaded.Transfers.Get(tid)
	require.NotNil(t, transfer)
	assert.True(t, transfer.DirectDebit)
	assert.True(t, transfer.FixedDebitDay)
	assert.True(t, transfer.DebitDate.Equal(date(2024, time.January, 5)))
	assert.True(t, transfer.BasculeDate.Equal(date(2024, time.January, 10)))
	assert.Equal(t, 3, transfer.MainPayee)

	loan := loaded.Loans.Get(2)
	require.NotNil(t, loan)
	assert.True(t, loan.FirstIsDifferent)
	assert.True(t, loan.FirstInstallment.Equal(amount("812.33")))
	assert.True(t, loan.OtherInstallment.Equal(amount("745.10")))
	assert.Equal(t, 120, loan.DurationMonths)
}

func TestStore_Save_ReplacesPreviousSnapshot(t *testing.T) {
	// Saving is a whole-file snapshot: rows deleted in memory must not
	// resurrect from an earlier save.
	store := newTestStore(t)
	book := ledger.NewMemory()
	sc := forecast.NewContext(book, book)

	id := sc.Templates.Create(engine.ScheduledTemplate{
		Account: 1, Date: date(2024, time.January, 1),
		Amount: amount("-10"), Frequency: engine.FreqMonthly,
	})
	require.NoError(t, store.Save(context.Background(), sc))

	sc.Templates.Delete(id, false)
	require.NoError(t, store.Save(context.Background(), sc))

	loaded, err := store.Load(context.Background(), book, book)
	require.NoError(t, err)
	assert.Nil(t, loaded.Templates.Get(id))
	assert.Equal(t, 0, loaded.Templates.Len())
}
