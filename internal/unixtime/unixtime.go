// Package unixtime converts between proleptic Gregorian calendar dates and
// Unix milliseconds. It ignores leap seconds but respects leap years.
//
// This implementation is based on the Go standard library's time package but does not depend on time.Location.
// Depending on time.Location feels weird for a function that is supposed to be a low-level utility for creating
// timezone data which is then used by time.Location.
package unixtime

import "time"

const (
	MillisPerSecond = 1000
	MillisPerMinute = 60 * MillisPerSecond
	MillisPerHour   = 60 * MillisPerMinute
	MillisPerDay    = 24 * MillisPerHour
)

// FromDateTime converts a date and a time of day given in milliseconds to
// milliseconds since 1970-01-01 00:00:00 UTC. The day and the time of day may
// overflow their natural range; the excess rolls over into the following days.
func FromDateTime(year int, month time.Month, day int, millisOfDay int64) int64 {
	return DaysFromDate(year, month, day)*MillisPerDay + millisOfDay
}

// StartOfYear returns the instant of January 1st 00:00 UTC of year.
func StartOfYear(year int) int64 {
	return FromDateTime(year, time.January, 1, 0)
}

// DaysFromDate returns the number of days between 1970-01-01 and the given date.
// Months outside 1..12 are normalized into neighbouring years.
func DaysFromDate(year int, month time.Month, day int) int64 {
	m := int(month) - 1
	year += floorDiv(m, 12)
	m -= floorDiv(m, 12) * 12

	daysSinceStartOfYear := [12]uint64{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
	d := daysSinceEpoch(year) + daysSinceStartOfYear[m]
	if m > 1 && isLeap(year) {
		d++ // +leap year
	}
	return int64(d) + int64(day-1) + absoluteToUnixDays
}

// DateFromDays is the inverse of DaysFromDate.
func DateFromDays(days int64) (year int, month time.Month, day int) {
	// Shift the epoch to 0000-03-01 so that the leap day is the last day of a year.
	z := days + 719468
	era := z / daysPer400Years
	if z < 0 && z%daysPer400Years != 0 {
		era--
	}
	doe := z - era*daysPer400Years
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153

	day = int(doy - (153*mp+2)/5 + 1)
	if mp < 10 {
		month = time.Month(mp + 3)
	} else {
		month = time.Month(mp - 9)
	}
	year = int(yoe + era*400)
	if month <= time.February {
		year++
	}
	return year, month, day
}

// Date returns the UTC calendar date and time of day of ms.
func Date(ms int64) (year int, month time.Month, day int, millisOfDay int64) {
	days := FloorDiv(ms, MillisPerDay)
	year, month, day = DateFromDays(days)
	return year, month, day, ms - days*MillisPerDay
}

// YearOf returns the UTC calendar year of ms.
func YearOf(ms int64) int {
	year, _, _ := DateFromDays(FloorDiv(ms, MillisPerDay))
	return year
}

// Weekday returns the day of the week of the day that lies days after 1970-01-01.
func Weekday(days int64) time.Weekday {
	// 1970-01-01 was a Thursday.
	return time.Weekday((days%7 + 7 + 4) % 7)
}

// FloorDiv divides rounding towards negative infinity.
func FloorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorDiv(a, b int) int {
	return int(FloorDiv(int64(a), int64(b)))
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// The constants were copied from time.go in the Go standard library's time package
// and converted from seconds to days.
const (
	daysPer400Years = 365*400 + 97
	daysPer100Years = 365*100 + 24
	daysPer4Years   = 365*4 + 1

	absoluteZeroYear         = -292277022399
	internalYear             = 1
	absoluteToInternal int64 = (absoluteZeroYear - internalYear) * 365.2425
	unixToInternal     int64 = 1969*365 + 1969/4 - 1969/100 + 1969/400
	absoluteToUnixDays       = absoluteToInternal - unixToInternal
)

// daysSinceEpoch takes a year and returns the number of days from
// the absolute epoch to the start of that year.
// This is basically (year - zeroYear) * 365, but accounting for leap days.
//
// This function was copied from time.go in the Go standard library time package.
func daysSinceEpoch(year int) uint64 {
	y := uint64(int64(year) - absoluteZeroYear)

	// Add in days from 400-year cycles.
	n := y / 400
	y -= 400 * n
	d := daysPer400Years * n

	// Add in 100-year cycles.
	n = y / 100
	y -= 100 * n
	d += daysPer100Years * n

	// Add in 4-year cycles.
	n = y / 4
	y -= 4 * n
	d += daysPer4Years * n

	// Add in non-leap years.
	n = y
	d += 365 * n

	return d
}
