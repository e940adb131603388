package tzexpand

import (
	"time"

	"github.com/ngrash/go-zoneinfo/internal/unixtime"
)

// isLeapYear determines if the year is a leap year.
func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// daysInMonth returns the number of days in a given month for a specific year.
func daysInMonth(month time.Month, year int) int {
	if month == time.February {
		if isLeapYear(year) {
			return 29
		}
		return 28
	}
	if month == time.April || month == time.June || month == time.September || month == time.November {
		return 30
	}
	return 31
}

// dayOfWeek returns the day of the week for a given date.
// The day may overflow the month.
func dayOfWeek(year int, month time.Month, day int) time.Weekday {
	return unixtime.Weekday(unixtime.DaysFromDate(year, month, day))
}

// lastWeekdayOfMonth finds the last instance of a given weekday in a specific month and year.
func lastWeekdayOfMonth(year int, month time.Month, weekday time.Weekday) int {
	lastDay := daysInMonth(month, year)
	lastDayWeekday := dayOfWeek(year, month, lastDay)

	// Calculate how many days to subtract from the last day to get the last instance of the given weekday.
	offset := (int(lastDayWeekday) - int(weekday) + 7) % 7
	return lastDay - offset
}

// nextWeekday calculates the next occurrence of a weekday on or after a given day in the specified month and year,
// accounting for overflow into the next month or year.
func nextWeekday(year int, month time.Month, day int, target time.Weekday) (int, time.Month, int) {
	diff := int(target) - int(dayOfWeek(year, month, day))
	if diff < 0 {
		diff += 7 // Ensure a positive difference
	}
	return unixtime.DateFromDays(unixtime.DaysFromDate(year, month, day) + int64(diff))
}

// lastWeekday finds the last occurrence of a given weekday before or on a given day in the specified month and year,
// accounting for overflow into the previous month or year.
func lastWeekday(year int, month time.Month, day int, target time.Weekday) (int, time.Month, int) {
	diff := int(dayOfWeek(year, month, day)) - int(target)
	if diff < 0 {
		diff += 7 // Ensure a positive difference
	}
	return unixtime.DateFromDays(unixtime.DaysFromDate(year, month, day) - int64(diff))
}
