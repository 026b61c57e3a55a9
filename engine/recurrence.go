package engine

// =============================================================================
// RECURRENCE RULE - Pure next-date arithmetic
// =============================================================================

// Rule is a recurrence rule detached from its template: frequency plus the
// custom interval when Frequency is FreqCustom.
type Rule struct {
	Frequency     Frequency
	IntervalUnit  IntervalUnit
	IntervalCount int
}

// NextDate computes the occurrence following current under the rule.
//
// It returns ok=false when the series is over: a Once rule, a custom rule
// with a non-positive interval (malformed, treated as terminal rather than
// an error), or a candidate past the rule's bounds. A hard limit takes
// precedence over the window end: a schedule with an explicit end date is
// never truncated early by the display window, only extended by it.
//
// The input date is never mutated; Date is a value type.
func NextDate(current Date, rule Rule, limit, windowEnd Date) (Date, bool) {
	if current.IsZero() {
		return Date{}, false
	}

	var next Date
	switch rule.Frequency {
	case FreqOnce:
		return Date{}, false

	case FreqWeekly:
		next = current.AddDays(7)

	case FreqMonthly:
		next = stepMonths(current, 1)

	case FreqBiMonthly:
		next = stepMonths(current, 2)

	case FreqQuarterly:
		next = stepMonths(current, 3)

	case FreqYearly:
		next = current.AddYears(1)

	case FreqCustom:
		if rule.IntervalCount <= 0 {
			return Date{}, false
		}
		switch rule.IntervalUnit {
		case UnitDays:
			next = current.AddDays(rule.IntervalCount)
		case UnitWeeks:
			next = current.AddDays(rule.IntervalCount * 7)
		case UnitMonths:
			next = stepMonths(current, rule.IntervalCount)
		case UnitYears:
			next = current.AddYears(rule.IntervalCount)
		default:
			return Date{}, false
		}

	default:
		return Date{}, false
	}

	if exceedsBounds(next, limit, windowEnd) {
		return Date{}, false
	}
	return next, true
}

// stepMonths steps by whole months. A date on the last day of its month
// stays on month ends (Jan 31 -> Feb 29 -> Mar 31); any other date keeps
// its day, clamped by short months. The month-end property is re-derived
// from the current date on every step, so walking a series one step at a
// time and advancing a stored date produce the same chain.
func stepMonths(current Date, n int) Date {
	next := current.AddMonths(n)
	if current.IsLastOfMonth() {
		return next.LastDayOfMonth()
	}
	return next
}

// exceedsBounds reports whether the candidate lies past the series bounds.
// The hard limit, when set, is the only bound that applies.
func exceedsBounds(d Date, limit, windowEnd Date) bool {
	if !limit.IsZero() {
		return d.After(limit)
	}
	return !windowEnd.IsZero() && d.After(windowEnd)
}
