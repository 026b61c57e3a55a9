package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/forecast-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func monthlyTemplate(account int, start engine.Date, amt string) engine.ScheduledTemplate {
	return engine.ScheduledTemplate{
		Account:   account,
		Date:      start,
		Amount:    amount(amt),
		Frequency: engine.FreqMonthly,
	}
}

// =============================================================================
// ID CONTRACT
// =============================================================================

func TestStore_Create_NeverReusesIDs(t *testing.T) {
	// GIVEN: Two templates, the first then deleted
	// WHEN: Creating a third template
	// THEN: The deleted id is not handed out again

	s := engine.NewTemplateStore()
	first := s.Create(monthlyTemplate(1, date(2024, time.January, 1), "10"))
	second := s.Create(monthlyTemplate(1, date(2024, time.January, 2), "20"))

	s.Delete(second, false)
	third := s.Create(monthlyTemplate(1, date(2024, time.January, 3), "30"))

	if third == second {
		t.Errorf("id %d was reused after deletion", second)
	}
	if third <= first {
		t.Errorf("ids must be monotonic, got %d after %d", third, first)
	}
}

func TestStore_SetFromFile_PreservesIDAndBumpsCounter(t *testing.T) {
	s := engine.NewTemplateStore()

	loaded := monthlyTemplate(1, date(2024, time.January, 1), "10")
	loaded.ID = 42
	s.SetFromFile(loaded)

	if got := s.Get(42); got == nil {
		t.Fatal("loaded template not found under its file id")
	}
	if next := s.Create(monthlyTemplate(1, date(2024, time.February, 1), "20")); next != 43 {
		t.Errorf("expected id 43 after loading id 42, got %d", next)
	}
}

func TestStore_UpdateAndDeleteUnknown_AreSilentNoOps(t *testing.T) {
	s := engine.NewTemplateStore()
	s.Create(monthlyTemplate(1, date(2024, time.January, 1), "10"))
	s.ClearModified()

	s.Update(999, monthlyTemplate(1, date(2024, time.January, 1), "99"))
	s.Delete(999, true)

	if s.Modified() {
		t.Error("no-ops on unknown ids must not mark the store modified")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 template, got %d", s.Len())
	}
}

// =============================================================================
// SPLIT CASCADES
// =============================================================================

func TestStore_DeleteCascade_RemovesChildren(t *testing.T) {
	// GIVEN: A split mother with two children
	// WHEN: Deleting the mother with cascade
	// THEN: Mother and both children are gone

	s := engine.NewTemplateStore()
	mother := s.Create(monthlyTemplate(1, date(2024, time.January, 5), "100"))

	childA := monthlyTemplate(1, date(2024, time.January, 5), "60")
	childA.MotherID = mother
	childB := monthlyTemplate(1, date(2024, time.January, 5), "40")
	childB.MotherID = mother
	a := s.Create(childA)
	b := s.Create(childB)

	s.Delete(mother, true)

	for _, id := range []int{mother, a, b} {
		if s.Get(id) != nil {
			t.Errorf("template %d survived the cascade", id)
		}
	}
}

func TestStore_DeleteWithoutCascade_OrphansChildren(t *testing.T) {
	s := engine.NewTemplateStore()
	mother := s.Create(monthlyTemplate(1, date(2024, time.January, 5), "100"))

	child := monthlyTemplate(1, date(2024, time.January, 5), "100")
	child.MotherID = mother
	childID := s.Create(child)

	s.Delete(mother, false)

	if s.Get(childID) == nil {
		t.Fatal("child must survive a non-cascading delete")
	}
}

func TestStore_ChildrenOf_KeepsInsertionOrder(t *testing.T) {
	s := engine.NewTemplateStore()
	mother := s.Create(monthlyTemplate(1, date(2024, time.January, 5), "100"))

	var want []int
	for _, amt := range []string{"10", "20", "30"} {
		c := monthlyTemplate(1, date(2024, time.January, 5), amt)
		c.MotherID = mother
		want = append(want, s.Create(c))
	}

	got := s.ChildrenOf(mother)
	if len(got) != len(want) {
		t.Fatalf("expected %d children, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("child %d: expected id %d, got %d", i, want[i], got[i])
		}
	}
}

// =============================================================================
// ADVANCE ONE CYCLE
// =============================================================================

func TestStore_AdvanceOne_MovesDateOneCycle(t *testing.T) {
	// GIVEN: A monthly template on 2024-01-05
	// WHEN: Skipping only the next occurrence
	// THEN: The template date moves to 2024-02-05 and the template survives

	s := engine.NewTemplateStore()
	id := s.Create(monthlyTemplate(1, date(2024, time.January, 5), "10"))

	s.AdvanceOne(id)

	got := s.Get(id)
	if got == nil {
		t.Fatal("template must survive an advance")
	}
	if !got.Date.Equal(date(2024, time.February, 5)) {
		t.Errorf("expected 2024-02-05, got %s", got.Date)
	}
}

func TestStore_AdvanceOne_TerminalSeriesDeletesTemplate(t *testing.T) {
	s := engine.NewTemplateStore()

	once := monthlyTemplate(1, date(2024, time.January, 5), "10")
	once.Frequency = engine.FreqOnce
	onceID := s.Create(once)

	limited := monthlyTemplate(1, date(2024, time.March, 5), "10")
	limited.LimitDate = date(2024, time.March, 31)
	limitedID := s.Create(limited)

	s.AdvanceOne(onceID)
	s.AdvanceOne(limitedID)

	if s.Get(onceID) != nil {
		t.Error("a one-shot template must be deleted when its occurrence is skipped")
	}
	if s.Get(limitedID) != nil {
		t.Error("a template past its limit must be deleted when advanced")
	}
}

func TestStore_AdvanceOne_IgnoresDisplayWindow(t *testing.T) {
	// Occurrences beyond the window exist even when not shown, so an
	// unlimited monthly template always advances.
	s := engine.NewTemplateStore()
	id := s.Create(monthlyTemplate(1, date(2024, time.January, 31), "10"))

	s.AdvanceOne(id)

	if got := s.Get(id); got == nil || !got.Date.Equal(date(2024, time.February, 29)) {
		t.Fatalf("expected template advanced to 2024-02-29, got %v", got)
	}
}

func TestStore_AdvanceOne_MonthEndSeriesStaysOnMonthEnds(t *testing.T) {
	// GIVEN: A monthly template on 2024-01-31, the end of its month
	// WHEN: Skipping two occurrences in a row
	// THEN: The stored date walks Feb 29 then Mar 31, the same chain a
	//       projection of the series would show

	s := engine.NewTemplateStore()
	id := s.Create(monthlyTemplate(1, date(2024, time.January, 31), "10"))

	s.AdvanceOne(id)
	if got := s.Get(id); !got.Date.Equal(date(2024, time.February, 29)) {
		t.Fatalf("first advance: expected 2024-02-29, got %s", got.Date)
	}

	s.AdvanceOne(id)
	if got := s.Get(id); !got.Date.Equal(date(2024, time.March, 31)) {
		t.Errorf("second advance: expected 2024-03-31, got %s", got.Date)
	}
}

// =============================================================================
// MODIFIED FLAG
// =============================================================================

func TestStore_ModifiedFlag_TracksMutations(t *testing.T) {
	s := engine.NewTemplateStore()
	if s.Modified() {
		t.Fatal("a fresh store is not modified")
	}

	id := s.Create(monthlyTemplate(1, date(2024, time.January, 1), "10"))
	if !s.Modified() {
		t.Error("Create must mark the store modified")
	}

	s.ClearModified()
	s.Update(id, monthlyTemplate(1, date(2024, time.January, 2), "20"))
	if !s.Modified() {
		t.Error("Update must mark the store modified")
	}

	s.ClearModified()
	s.Delete(id, false)
	if !s.Modified() {
		t.Error("Delete must mark the store modified")
	}
}
