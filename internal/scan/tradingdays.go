package scan

import "time"

// TradingDays returns the US equity trading days in [start, end],
// ascending. It excludes Saturdays, Sundays, and NYSE full-closure
// holidays (fixed and movable).
func TradingDays(start, end time.Time) []time.Time {
	var out []time.Time
	last := truncateToDate(end)
	for d := truncateToDate(start); !d.After(last); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			out = append(out, d)
		}
	}
	return out
}

// LastNTradingDays returns the last n US trading days at or before from,
// most recent first.
func LastNTradingDays(n int, from time.Time) []time.Time {
	out := make([]time.Time, 0, n)
	d := truncateToDate(from)

	for len(out) < n {
		if IsTradingDay(d) {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, -1)
	}
	return out
}

// IsTradingDay returns true if date is a US equity trading day.
func IsTradingDay(d time.Time) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := holidaysForYear(d.Year())[d.Format("2006-01-02")]
	return !holiday
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// holidaysForYear returns the NYSE full-closure days of one year, keyed
// by "2006-01-02".
func holidaysForYear(year int) map[string]struct{} {
	hs := make(map[string]struct{})
	add := func(t time.Time) { hs[t.Format("2006-01-02")] = struct{}{} }

	// Fixed-date holidays shift to the nearest weekday when they land on
	// a weekend: Saturday observes the Friday before, Sunday the Monday
	// after. New Year's Day is the exception: a Saturday Jan 1 is simply
	// not observed.
	observed := func(m time.Month, day int, observeSaturday bool) {
		t := time.Date(year, m, day, 0, 0, 0, 0, time.UTC)
		switch t.Weekday() {
		case time.Saturday:
			if observeSaturday {
				add(t.AddDate(0, 0, -1))
			}
		case time.Sunday:
			add(t.AddDate(0, 0, 1))
		default:
			add(t)
		}
	}

	observed(time.January, 1, false)  // New Year's Day
	observed(time.June, 19, true)     // Juneteenth
	observed(time.July, 4, true)      // Independence Day
	observed(time.December, 25, true) // Christmas

	add(nthWeekday(year, time.January, time.Monday, 3))    // MLK Day
	add(nthWeekday(year, time.February, time.Monday, 3))   // Washington's Birthday
	add(lastWeekday(year, time.May, time.Monday))          // Memorial Day
	add(nthWeekday(year, time.September, time.Monday, 1))  // Labor Day
	add(nthWeekday(year, time.November, time.Thursday, 4)) // Thanksgiving

	// Good Friday (2 days before Easter)
	add(easterSunday(year).AddDate(0, 0, -2))

	return hs
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easterSunday returns the date of Easter Sunday for a given year
// (Meeus/Jones/Butcher algorithm).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
