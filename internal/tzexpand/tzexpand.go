// Package tzexpand resolves the symbolic dates of rule and zone lines to
// instants and expands sets of rules into streams of transitions.
package tzexpand

import (
	"fmt"
	"time"

	"github.com/ngrash/go-zoneinfo/internal/unixtime"
	"github.com/ngrash/go-zoneinfo/tzdata"
)

// DayOfMonth resolves d to a calendar date in the given month.
// The >= and <= forms may cross into the neighboring month or year.
// A day number beyond the end of the month is returned as is.
func DayOfMonth(year int, month time.Month, d tzdata.Day) (y int, m time.Month, day int) {
	switch d.Form {
	case tzdata.DayFormNum:
		return year, month, d.Num
	case tzdata.DayFormLast:
		num := lastWeekdayOfMonth(year, month, d.Day)
		return year, month, num
	case tzdata.DayFormAfter:
		return nextWeekday(year, month, d.Num, d.Day)
	case tzdata.DayFormBefore:
		return lastWeekday(year, month, d.Num, d.Day)
	}
	panic(fmt.Errorf("invalid DayForm: %q", d.Form))
}

// Resolve returns the instant at which d occurs in year for a zone with the
// standard offset std and the savings save in effect.
//
// Wall clock times are shifted by std+save, standard times by std and
// universal times are taken as is.
func Resolve(d tzdata.DateOfYear, year int, std, save time.Duration) int64 {
	return local(d, year) - reference(d.Time.Form, std, save)
}

// limit bounds the instants Next and Previous accept. It is roughly a million years.
const limit = 1_000_000 * 366 * unixtime.MillisPerDay

// Next returns the first occurrence of d strictly after instant.
// It returns instant if there is none within the supported range.
func Next(d tzdata.DateOfYear, instant int64, std, save time.Duration) int64 {
	if instant < -limit || instant > limit {
		return instant
	}
	off := reference(d.Time.Form, std, save)
	wall := instant + off
	year := unixtime.YearOf(wall)
	for y := year - 1; y <= year+2; y++ {
		if t := local(d, y); t > wall {
			return t - off
		}
	}
	return instant
}

// Previous returns the last occurrence of d strictly before instant.
// It returns instant if there is none within the supported range.
func Previous(d tzdata.DateOfYear, instant int64, std, save time.Duration) int64 {
	if instant < -limit || instant > limit {
		return instant
	}
	off := reference(d.Time.Form, std, save)
	wall := instant + off
	year := unixtime.YearOf(wall)
	for y := year + 1; y >= year-2; y-- {
		if t := local(d, y); t < wall {
			return t - off
		}
	}
	return instant
}

// local returns the occurrence of d in year as if the zone were UTC.
func local(d tzdata.DateOfYear, year int) int64 {
	y, m, day := DayOfMonth(year, d.Month, d.Day)
	return unixtime.FromDateTime(y, m, day, d.Time.Duration.Milliseconds())
}

// reference returns the offset in milliseconds that a time of the given form refers to.
func reference(form tzdata.TimeForm, std, save time.Duration) int64 {
	switch form {
	case tzdata.StandardTime:
		return std.Milliseconds()
	case tzdata.UniversalTime:
		return 0
	default:
		return (std + save).Milliseconds()
	}
}
