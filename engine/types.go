/*
Package engine provides the scheduled-transaction core.

PURPOSE:
  This package contains the domain types and algorithms for recurring
  ("scheduled") transactions: templates, recurrence arithmetic, and the
  projection of future occurrences over a display window. It knows nothing
  about rendering, currencies, or file formats.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar day (UTC, day granularity) with clamped arithmetic
  - Frequency / IntervalUnit: Recurrence vocabulary
  - ScheduledTemplate: A recurring transaction definition (mother or child)
  - Occurrence: One projected calendar instance of a template

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Determinism: Projection never mutates templates; same input, same output
  3. Absence is a value: lookups on unknown ids return zero values, not errors

SEE ALSO:
  - recurrence.go: NextDate arithmetic
  - store.go: TemplateStore
  - projector.go: Occurrence expansion
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE - Calendar day with clamped arithmetic
// =============================================================================

// Date is a calendar day. The zero value is "no date".
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }
func (d Date) IsZero() bool                  { return d.Time.IsZero() }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AddDays never needs clamping.
func (d Date) AddDays(n int) Date { return Date{Time: d.normalize().AddDate(0, 0, n)} }

// AddMonths adds n months, clamping to the last valid day of the target
// month (Jan 31 + 1 month = Feb 28/29). time.AddDate would normalize into
// the following month instead, which is wrong for payment schedules.
func (d Date) AddMonths(n int) Date {
	y, m, day := d.Year(), int(d.Month())+n, d.Day()
	// normalize year/month
	y += (m - 1) / 12
	m = (m-1)%12 + 1
	if m <= 0 {
		m += 12
		y--
	}
	if last := daysInMonth(y, time.Month(m)); day > last {
		day = last
	}
	return NewDate(y, time.Month(m), day)
}

// AddYears adds n years, clamping Feb 29 to Feb 28 on non-leap years.
func (d Date) AddYears(n int) Date {
	y, m, day := d.Year()+n, d.Month(), d.Day()
	if last := daysInMonth(y, m); day > last {
		day = last
	}
	return NewDate(y, m, day)
}

// WithDay returns the date with its day-of-month replaced. If the requested
// day does not exist in that month, the last valid day is used instead.
func (d Date) WithDay(day int) Date {
	if last := daysInMonth(d.Year(), d.Month()); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(d.Year(), d.Month(), day)
}

// LastDayOfMonth returns the last calendar day of the date's month.
func (d Date) LastDayOfMonth() Date {
	return NewDate(d.Year(), d.Month(), daysInMonth(d.Year(), d.Month()))
}

// LastBankingDayOfMonth returns the last day of the month, moved back to
// Friday when it falls on a weekend.
func (d Date) LastBankingDayOfMonth() Date {
	last := d.LastDayOfMonth()
	for last.IsWeekend() {
		last = last.AddDays(-1)
	}
	return last
}

// IsLastOfMonth reports whether the date is the last day of its month.
func (d Date) IsLastOfMonth() bool {
	return d.Day() == daysInMonth(d.Year(), d.Month())
}

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// ParseDate parses a YYYY-MM-DD string. The zero Date is returned on failure.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// =============================================================================
// RECURRENCE VOCABULARY
// =============================================================================

type Frequency int

const (
	FreqOnce Frequency = iota
	FreqWeekly
	FreqMonthly
	FreqBiMonthly
	FreqQuarterly
	FreqYearly
	FreqCustom
)

func (f Frequency) String() string {
	switch f {
	case FreqOnce:
		return "once"
	case FreqWeekly:
		return "weekly"
	case FreqMonthly:
		return "monthly"
	case FreqBiMonthly:
		return "bimonthly"
	case FreqQuarterly:
		return "quarterly"
	case FreqYearly:
		return "yearly"
	case FreqCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// IntervalUnit is the unit of a custom recurrence interval.
type IntervalUnit int

const (
	UnitDays IntervalUnit = iota
	UnitWeeks
	UnitMonths
	UnitYears
)

func (u IntervalUnit) String() string {
	switch u {
	case UnitDays:
		return "days"
	case UnitWeeks:
		return "weeks"
	case UnitMonths:
		return "months"
	case UnitYears:
		return "years"
	default:
		return "unknown"
	}
}

// =============================================================================
// SCHEDULED TEMPLATE - Recurring transaction definition
// =============================================================================

// ScheduledTemplate is a recurring transaction definition. A template with
// MotherID != 0 is the child line of a split: children share the mother's
// date and frequency but carry their own amount and division.
type ScheduledTemplate struct {
	ID       int
	MotherID int

	Account int
	Date    Date
	Amount  decimal.Decimal

	Payee       int
	Category    int
	SubCategory int
	Budget      int
	SubBudget   int

	Frequency     Frequency
	IntervalUnit  IntervalUnit
	IntervalCount int
	LimitDate     Date // zero = no hard limit

	// FixedDay forces every occurrence onto this day of month (0 = off).
	// Days past the end of a month fall back to the month's last day.
	FixedDay int

	Transfer        bool
	TransferAccount int

	Split      bool // has (or may have) children
	LoanLinked bool // amounts come from the loan schedule of TransferAccount

	Automatic bool
	Notes     string
}

// Rule extracts the recurrence rule of the template.
func (t *ScheduledTemplate) Rule() Rule {
	return Rule{
		Frequency:     t.Frequency,
		IntervalUnit:  t.IntervalUnit,
		IntervalCount: t.IntervalCount,
	}
}

// =============================================================================
// OCCURRENCE - One projected calendar instance (transient, never persisted)
// =============================================================================

// Occurrence is one calendar instance of a template inside a projection
// window. Occurrences are regenerated on every projection, never mutated.
type Occurrence struct {
	TemplateID int
	ChildID    int // set on split child rows
	Date       Date
	Amount     decimal.Decimal
	Ordinal    int
	Virtual    bool // every occurrence after the first in a multi-occurrence view

	// Summary rows aggregate a split's children for one occurrence date.
	Summary       bool
	Variance      decimal.Decimal // mother.Amount - sum(children), summary rows only
	VarianceAlert bool            // true when Variance != 0
}
