package engine_test

import (
	"testing"
	"time"

	"github.com/warp/forecast-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(y int, m time.Month, d int) engine.Date {
	return engine.NewDate(y, m, d)
}

func monthly() engine.Rule {
	return engine.Rule{Frequency: engine.FreqMonthly}
}

// chain walks NextDate from start and collects the dates produced.
func chain(start engine.Date, rule engine.Rule, limit, windowEnd engine.Date) []engine.Date {
	dates := []engine.Date{start}
	current := start
	for {
		next, ok := engine.NextDate(current, rule, limit, windowEnd)
		if !ok {
			return dates
		}
		current = next
		dates = append(dates, current)
	}
}

func wantDates(t *testing.T, got []engine.Date, want ...engine.Date) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d dates, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("date %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// =============================================================================
// MONTH-END ARITHMETIC
// =============================================================================

func TestNextDate_MonthlyFromJan31_StaysOnMonthEnds(t *testing.T) {
	// GIVEN: Monthly schedule starting on 2024-01-31, the end of its month
	// WHEN: Walking the series through a leap February up to 2024-04-30
	// THEN: Every step lands on the end of the month

	got := chain(date(2024, time.January, 31), monthly(),
		engine.Date{}, date(2024, time.April, 30))

	wantDates(t, got,
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
		date(2024, time.April, 30),
	)
}

func TestNextDate_MonthlyDay30_JoinsMonthEndsAfterFebruary(t *testing.T) {
	// GIVEN: Monthly schedule on the 30th; February clamps it to the 28th
	// WHEN: Stepping past the clamped date
	// THEN: The clamp landed on a month end, so the series stays there

	got := chain(date(2023, time.January, 30), monthly(),
		engine.Date{}, date(2023, time.March, 31))

	wantDates(t, got,
		date(2023, time.January, 30),
		date(2023, time.February, 28),
		date(2023, time.March, 31),
	)
}

func TestNextDate_MonthlyMidMonth_NeverShifts(t *testing.T) {
	got := chain(date(2024, time.January, 15), monthly(),
		engine.Date{}, date(2024, time.March, 31))

	wantDates(t, got,
		date(2024, time.January, 15),
		date(2024, time.February, 15),
		date(2024, time.March, 15),
	)
}

// =============================================================================
// FREQUENCIES
// =============================================================================

func TestNextDate_Once_IsTerminal(t *testing.T) {
	_, ok := engine.NextDate(date(2024, time.January, 1),
		engine.Rule{Frequency: engine.FreqOnce},
		engine.Date{}, date(2030, time.January, 1))
	if ok {
		t.Error("a one-shot schedule must not produce a next date")
	}
}

func TestNextDate_Weekly_AddsSevenDays(t *testing.T) {
	next, ok := engine.NextDate(date(2024, time.February, 26),
		engine.Rule{Frequency: engine.FreqWeekly},
		engine.Date{}, date(2024, time.December, 31))
	if !ok {
		t.Fatal("expected a next date")
	}
	if !next.Equal(date(2024, time.March, 4)) {
		t.Errorf("expected 2024-03-04, got %s", next)
	}
}

func TestNextDate_BiMonthlyQuarterlyYearly(t *testing.T) {
	start := date(2024, time.January, 15)
	window := date(2030, time.January, 1)

	cases := []struct {
		freq engine.Frequency
		want engine.Date
	}{
		{engine.FreqBiMonthly, date(2024, time.March, 15)},
		{engine.FreqQuarterly, date(2024, time.April, 15)},
		{engine.FreqYearly, date(2025, time.January, 15)},
	}
	for _, c := range cases {
		next, ok := engine.NextDate(start, engine.Rule{Frequency: c.freq},
			engine.Date{}, window)
		if !ok {
			t.Fatalf("%s: expected a next date", c.freq)
		}
		if !next.Equal(c.want) {
			t.Errorf("%s: expected %s, got %s", c.freq, c.want, next)
		}
	}
}

// =============================================================================
// CUSTOM INTERVALS
// =============================================================================

func TestNextDate_CustomTwoMonths_StopsAtHardLimit(t *testing.T) {
	// GIVEN: Every 2 months from 2024-01-15 with a hard limit of 2024-04-01
	// WHEN: Walking the series inside a much larger display window
	// THEN: Only 01-15 and 03-15 occur; 05-15 is past the limit

	rule := engine.Rule{
		Frequency:     engine.FreqCustom,
		IntervalUnit:  engine.UnitMonths,
		IntervalCount: 2,
	}
	got := chain(date(2024, time.January, 15), rule,
		date(2024, time.April, 1), date(2024, time.December, 31))

	wantDates(t, got,
		date(2024, time.January, 15),
		date(2024, time.March, 15),
	)
}

func TestNextDate_CustomNonPositiveCount_IsTerminal(t *testing.T) {
	for _, count := range []int{0, -3} {
		_, ok := engine.NextDate(date(2024, time.January, 1),
			engine.Rule{Frequency: engine.FreqCustom, IntervalUnit: engine.UnitDays, IntervalCount: count},
			engine.Date{}, date(2030, time.January, 1))
		if ok {
			t.Errorf("interval count %d must be terminal", count)
		}
	}
}

func TestNextDate_CustomDaysAndWeeks(t *testing.T) {
	start := date(2024, time.January, 1)
	window := date(2024, time.December, 31)

	next, ok := engine.NextDate(start,
		engine.Rule{Frequency: engine.FreqCustom, IntervalUnit: engine.UnitDays, IntervalCount: 10},
		engine.Date{}, window)
	if !ok || !next.Equal(date(2024, time.January, 11)) {
		t.Errorf("10 days: expected 2024-01-11, got %s (ok=%v)", next, ok)
	}

	next, ok = engine.NextDate(start,
		engine.Rule{Frequency: engine.FreqCustom, IntervalUnit: engine.UnitWeeks, IntervalCount: 2},
		engine.Date{}, window)
	if !ok || !next.Equal(date(2024, time.January, 15)) {
		t.Errorf("2 weeks: expected 2024-01-15, got %s (ok=%v)", next, ok)
	}
}

// =============================================================================
// BOUNDS
// =============================================================================

func TestNextDate_HardLimitOverridesWindowEnd(t *testing.T) {
	// GIVEN: A limit past the window end
	// WHEN: The candidate falls between window end and limit
	// THEN: The candidate is still produced; the limit is the only bound

	next, ok := engine.NextDate(date(2024, time.January, 31), monthly(),
		date(2024, time.June, 30), date(2024, time.February, 1))
	if !ok {
		t.Fatal("window end must not truncate a schedule with a hard limit")
	}
	if !next.Equal(date(2024, time.February, 29)) {
		t.Errorf("expected 2024-02-29, got %s", next)
	}
}

func TestNextDate_WindowEndBoundsUnlimitedSchedules(t *testing.T) {
	_, ok := engine.NextDate(date(2024, time.March, 15), monthly(),
		engine.Date{}, date(2024, time.March, 31))
	if ok {
		t.Error("candidate past the window end must stop an unlimited series")
	}
}

func TestNextDate_ZeroCurrent_IsTerminal(t *testing.T) {
	_, ok := engine.NextDate(engine.Date{}, monthly(),
		engine.Date{}, date(2030, time.January, 1))
	if ok {
		t.Error("a zero current date must not produce a next date")
	}
}
