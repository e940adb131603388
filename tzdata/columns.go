package tzdata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Year represents a year in the proleptic Gregorian calendar.
type Year int

func (y Year) String() string {
	if y == MinYear {
		return "<indefinite past>"
	}
	if y == MaxYear {
		return "<indefinite future>"
	}
	return strconv.Itoa(int(y))
}

const (
	// MinYear means the indefinite past.
	MinYear = math.MinInt
	// MaxYear means the indefinite future.
	MaxYear = math.MaxInt
)

// TimeForm represents the form of a time instance usually represented by a time.Duration.
// It names the clock the time is read from.
type TimeForm int

func (f TimeForm) String() string {
	switch f {
	case WallClock:
		return "WallClock"
	case StandardTime:
		return "StandardTime"
	case DaylightSavingTime:
		return "DaylightSavingTime"
	case UniversalTime:
		return "UniversalTime"
	default:
		return "<UNDEFINED>"
	}
}

const (
	WallClock TimeForm = iota
	StandardTime
	DaylightSavingTime
	UniversalTime
)

// DayForm represents the form of a day in a rule or zone line.
type DayForm int

func (f DayForm) String() string {
	switch f {
	case DayFormNum:
		return "Num"
	case DayFormLast:
		return "Last"
	case DayFormAfter:
		return "After"
	case DayFormBefore:
		return "Before"
	default:
		return "<UNDEFINED>"
	}
}

const (
	DayFormNum    DayForm = iota // 5
	DayFormLast                  // lastSun
	DayFormAfter                 // Sun>=8
	DayFormBefore                // Sun<=25
)

// Time represents a time instance by the duration since 00:00, the start of a calendar day.
type Time struct {
	time.Duration
	Form TimeForm
}

func NewWallClock(d time.Duration) Time { return Time{d, WallClock} }
func NewStandardTime(d time.Duration) Time { return Time{d, StandardTime} }
func NewDaylightSavingTime(d time.Duration) Time { return Time{d, DaylightSavingTime} }
func NewUniversalTime(d time.Duration) Time { return Time{d, UniversalTime} }

// Day represents a day in a rule or zone line.
type Day struct {
	Form DayForm
	Num  int
	Day  time.Weekday
}

func NewDayNum(n int) Day { return Day{Form: DayFormNum, Num: n} }
func NewDayLast(d time.Weekday) Day { return Day{Form: DayFormLast, Day: d} }
func NewDayAfter(n int, d time.Weekday) Day { return Day{Form: DayFormAfter, Num: n, Day: d} }
func NewDayBefore(n int, d time.Weekday) Day { return Day{Form: DayFormBefore, Num: n, Day: d} }

// DateOfYear is a recurring point in a year: a month, a day within it and a time of day.
// It is used for the IN ON AT columns of rules and for the UNTIL column of zones.
type DateOfYear struct {
	Month time.Month
	Day   Day
	Time  Time
}

// parseZoneNAME parses the NAME column of a zone line.
// A file name component "." or ".." is not allowed.
func parseZoneNAME(s string) (string, error) {
	if len(s) == 0 {
		return "", fmt.Errorf("empty name")
	}
	for _, c := range strings.Split(s, "/") {
		if c == "." || c == ".." || c == "" {
			return "", fmt.Errorf("invalid file name component %q", c)
		}
	}
	return s, nil
}

// parseZoneSTDOFF parses the STDOFF column of a zone line.
// It has the same format as the AT and SAVE fields of rule lines, except without suffix letters.
func parseZoneSTDOFF(s string) (time.Duration, error) {
	return parseTimeOfDay(s)
}

// ZoneRulesForm represents the type of the RULES column of a zone line.
type ZoneRulesForm int

func (f ZoneRulesForm) String() string {
	switch f {
	case ZoneRulesName:
		return "Name"
	case ZoneRulesTime:
		return "Time"
	case ZoneRulesStandard:
		return "Standard"
	default:
		return "<UNDEFINED>"
	}
}

const (
	// ZoneRulesStandard means standard time always applies because the RULES column is "-".
	ZoneRulesStandard ZoneRulesForm = iota
	// ZoneRulesName means the RULES column references rule lines by name.
	ZoneRulesName
	// ZoneRulesTime means the RULES column contains a time in rule-line SAVE column format.
	ZoneRulesTime
)

// ZoneRules represents the RULES column of a zone line.
type ZoneRules struct {
	// Form is the form of the RULES column.
	Form ZoneRulesForm
	// Name contains the name if Form is ZoneRulesName.
	Name string
	// Time contains the time if Form is ZoneRulesTime.
	Time Time
}

// parseZoneRULES parses the RULES column of a zone line.
//
// The column is classified by its first characters before it is parsed:
// "-" means standard time always applies, a column that starts with a digit
// (optionally signed) is an amount of time in SAVE format, anything else names
// a set of rule lines. Rule names cannot start with a digit or a sign, so the
// classification is unambiguous.
func parseZoneRULES(s string) (ZoneRules, error) {
	switch {
	case s == "-":
		return ZoneRules{Form: ZoneRulesStandard}, nil
	case looksLikeTime(s):
		d, err := parseRuleSAVE(s)
		if err != nil {
			return ZoneRules{}, err
		}
		return ZoneRules{Form: ZoneRulesTime, Time: d}, nil
	default:
		// At this point, we don't know if the name is valid,
		// because we don't have any context. Later code must
		// ensure there is a rule line with the given name.
		name, err := parseRuleNAME(s)
		if err != nil {
			return ZoneRules{}, err
		}
		return ZoneRules{Form: ZoneRulesName, Name: name}, nil
	}
}

// looksLikeTime reports whether s starts like a signed time of day.
func looksLikeTime(s string) bool {
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

// parseZoneFORMAT parses the FORMAT column of a zone line.
//
// The pair of characters %s shows where the variable part of the abbreviation goes,
// %z stands for the UT offset, and a slash separates standard and daylight abbreviations.
func parseZoneFORMAT(s string) (string, error) {
	if len(s) == 0 {
		return "", fmt.Errorf("empty format")
	}
	unquoted, _ := unquote(s)
	if strings.Count(unquoted, "/") > 1 {
		return "", fmt.Errorf("more than one slash")
	}
	return unquoted, nil
}

// UntilPartsMask is a bitmask of the parts that are defined in the UNTIL column of a zone line.
// It is used to track which fields of the Until struct are defined and which should default to
// the earliest possible value.
type UntilPartsMask uint8

// Has returns true if all the parts in the mask are set.
func (p UntilPartsMask) Has(parts UntilPartsMask) bool {
	return p&parts == parts
}

// Set sets the parts in the mask.
func (p UntilPartsMask) Set(parts UntilPartsMask) UntilPartsMask {
	return p | parts
}

const (
	// UntilUndefined is the zero value of UntilPartsMask.
	UntilUndefined = UntilPartsMask(0)

	// Trailing fields can be omitted, so if a part is set, all parts to its left are set as well.
	// The *Only parts are used internally to set the correct parts when parsing the UNTIL column.
	untilYearOnly UntilPartsMask = 1 << iota
	untilMonthOnly
	untilDayOnly
	untilTimeOnly

	// UntilYear indicates that Until.Year is defined. This is always set if Until.Defined is true.
	UntilYear = untilYearOnly
	// UntilMonth indicates that Until.Month is defined.
	UntilMonth = untilYearOnly | untilMonthOnly
	// UntilDay indicates that Until.Day is defined.
	UntilDay = untilYearOnly | untilMonthOnly | untilDayOnly
	// UntilTime indicates that Until.Time is defined.
	UntilTime = untilYearOnly | untilMonthOnly | untilDayOnly | untilTimeOnly
)

// Until represents the UNTIL column of a zone line.
// The zero value means the UNTIL column is not defined, the line is in effect indefinitely.
type Until struct {
	// Set to true if the UNTIL column is defined.
	Defined bool
	// Parts is a bitmask of the parts that are defined.
	Parts UntilPartsMask
	// Year is the year in the UNTIL column.
	// It is always defined if Defined is true.
	Year int
	// Month is the month in the UNTIL column.
	// It is defined if Parts.Has(UntilMonth) is true.
	Month time.Month
	// Day is the day in the UNTIL column.
	// It is defined if Parts.Has(UntilDay) is true.
	Day Day
	// Time is the time in the UNTIL column.
	// It is defined if Parts.Has(UntilTime) is true.
	Time Time
}

// DateOfYear returns the cutover point within Year.
// Missing parts default to January, the first day and 00:00 wall clock time.
func (u Until) DateOfYear() DateOfYear {
	d := DateOfYear{Month: time.January, Day: NewDayNum(1), Time: NewWallClock(0)}
	if u.Parts.Has(UntilMonth) {
		d.Month = u.Month
	}
	if u.Parts.Has(UntilDay) {
		d.Day = u.Day
	}
	if u.Parts.Has(UntilTime) {
		d.Time = u.Time
	}
	return d
}

// parseZoneUNTIL parses the UNTIL column of a zone line.
//
// It takes the form of one to four fields YEAR [MONTH [DAY [TIME]]]. The month, day,
// and time of day have the same format as the IN, ON, and AT fields of a rule.
func parseZoneUNTIL(s string) (Until, error) {
	if len(s) == 0 {
		// UNTIL column is optional.
		return Until{}, nil
	}

	var u Until
	parts := strings.Fields(s)
	if len(parts) > 4 {
		return u, fmt.Errorf("too many fields: %d", len(parts))
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return u, fmt.Errorf("year: %w", err)
	}
	u.Year = year
	u.Parts = u.Parts.Set(untilYearOnly)

	if len(parts) > 1 {
		if u.Month, err = parseRuleIN(parts[1]); err != nil {
			return u, fmt.Errorf("month: %w", err)
		}
		u.Parts = u.Parts.Set(untilMonthOnly)
	}
	if len(parts) > 2 {
		if u.Day, err = parseRuleON(parts[2]); err != nil {
			return u, fmt.Errorf("day: %w", err)
		}
		u.Parts = u.Parts.Set(untilDayOnly)
	}
	if len(parts) > 3 {
		if u.Time, err = parseRuleAT(parts[3]); err != nil {
			return u, fmt.Errorf("time: %w", err)
		}
		u.Parts = u.Parts.Set(untilTimeOnly)
	}

	u.Defined = true
	return u, nil
}

// parseRuleNAME parses the NAME column of a rule.
//
// The name must start with a character that is neither an ASCII digit nor "-" nor "+".
// An unquoted name should not contain characters from the set !$%&'()*,/:;<=>?@[\]^`{|}~.
func parseRuleNAME(s string) (string, error) {
	if len(s) == 0 {
		return "", fmt.Errorf("empty name")
	}
	if s[0] >= '0' && s[0] <= '9' {
		return "", fmt.Errorf("name starts with a digit: %q", s)
	}
	if s[0] == '-' || s[0] == '+' {
		return "", fmt.Errorf("name starts with a sign: %q", s)
	}

	unquoted, wasQuoted := unquote(s)
	if !wasQuoted && containsSpecialChar(s) {
		return "", fmt.Errorf("name contains special character: %q", s)
	}
	return unquoted, nil
}

// containsSpecialChar returns true if the string contains any of the special characters
func containsSpecialChar(s string) bool {
	return strings.ContainsAny(s, "!$%&'()*,/:;<=>?@[\\]^`{|}~")
}

// unquote removes quotes from a string.
// It returns the unquoted string and true if the string was quoted.
// Otherwise, it returns the original string and false.
func unquote(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1], true
	}
	return s, false
}

// parseRuleFROM parses the FROM column of a rule.
// The word minimum (or an abbreviation) means the indefinite past,
// maximum (or an abbreviation) the indefinite future.
func parseRuleFROM(s string) (Year, error) {
	l := strings.ToLower(s)
	if isAbbrev(l, "minimum", "mi") {
		return MinYear, nil
	}
	if isAbbrev(l, "maximum", "ma") {
		return MaxYear, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return Year(n), nil
}

// parseRuleTO parses the TO column of a rule.
// In addition to minimum and maximum, the word only (or an abbreviation)
// repeats the value of the FROM column.
func parseRuleTO(s string, from Year) (Year, error) {
	if isAbbrev(strings.ToLower(s), "only", "o") {
		return from, nil
	}
	return parseRuleFROM(s)
}

// parseRuleIN parses the IN column of a rule.
func parseRuleIN(s string) (time.Month, error) {
	return parseMonth(s)
}

var months = [...]struct {
	long, min string
}{
	{"january", "ja"},
	{"february", "f"},
	{"march", "mar"},
	{"april", "ap"},
	{"may", "may"},
	{"june", "jun"},
	{"july", "jul"},
	{"august", "au"},
	{"september", "s"},
	{"october", "o"},
	{"november", "n"},
	{"december", "d"},
}

// parseMonth matches s case-insensitively against the English month names.
// Names may be abbreviated as long as the abbreviation is unambiguous.
func parseMonth(s string) (time.Month, error) {
	l := strings.ToLower(s)
	for i, m := range months {
		if isAbbrev(l, m.long, m.min) {
			return time.Month(i + 1), nil
		}
	}
	return 0, fmt.Errorf("invalid month %q", s)
}

// parseRuleON parses the ON column of a rule.
//
//	5        the fifth of the month
//	lastSun  the last Sunday in the month
//	Sun>=8   first Sunday on or after the eighth
//	Sun<=25  last Sunday on or before the 25th
//
// The "<=" and ">=" constructs can result in a day in the neighboring month.
func parseRuleON(s string) (Day, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 31 {
			return Day{}, fmt.Errorf("day of month %d out of range", n)
		}
		return NewDayNum(n), nil
	}
	if len(s) > 4 && strings.EqualFold(s[:4], "last") {
		day, err := parseWeekday(s[4:])
		if err != nil {
			return Day{}, err
		}
		return NewDayLast(day), nil
	}
	for _, op := range []struct {
		sep  string
		form DayForm
	}{{"<=", DayFormBefore}, {">=", DayFormAfter}} {
		left, right, found := strings.Cut(s, op.sep)
		if !found {
			continue
		}
		if len(left) == 0 || len(right) == 0 {
			return Day{}, fmt.Errorf("expected weekday<=dayofmonth or weekday>=dayofmonth")
		}
		day, err := parseWeekday(left)
		if err != nil {
			return Day{}, fmt.Errorf("left part of comparison %q: %w", left, err)
		}
		n, err := strconv.Atoi(right)
		if err != nil {
			return Day{}, fmt.Errorf("right part of comparison %q: %w", right, err)
		}
		if n < 1 || n > 31 {
			return Day{}, fmt.Errorf("day of month %d out of range", n)
		}
		return Day{Form: op.form, Day: day, Num: n}, nil
	}
	return Day{}, fmt.Errorf("invalid day %q", s)
}

// parseRuleAT parses the AT column of a rule.
//
// Any of the time forms may be followed by a letter: s if the given time is local
// standard time, u (or g or z) if it is universal time. Local wall clock time is
// assumed for w, any other letter, and in the absence of an indicator.
func parseRuleAT(s string) (Time, error) {
	d, suffix, err := parseTimeOfDayWithSuffix(s)
	if err != nil {
		return Time{}, err
	}
	switch suffix {
	case 's', 'S':
		return NewStandardTime(d), nil
	case 'u', 'U', 'g', 'G', 'z', 'Z':
		return NewUniversalTime(d), nil
	default:
		return NewWallClock(d), nil
	}
}

// parseRuleSAVE parses the SAVE column of a rule.
//
// The suffix letters are s for standard time and d for daylight saving time.
// Without a suffix it defaults to s if the offset is zero and to d otherwise.
// Negative offsets are allowed.
func parseRuleSAVE(s string) (Time, error) {
	d, suffix, err := parseTimeOfDayWithSuffix(s)
	if err != nil {
		return Time{}, err
	}
	switch suffix {
	case 's', 'S':
		return NewStandardTime(d), nil
	case 'd', 'D':
		return NewDaylightSavingTime(d), nil
	case 0:
		if d == 0 {
			return NewStandardTime(d), nil
		}
		return NewDaylightSavingTime(d), nil
	default:
		return Time{}, fmt.Errorf("invalid suffix %q", suffix)
	}
}

// parseRuleLETTERS parses the LETTER/S column of a rule.
// If this field is "-", the variable part is null.
func parseRuleLETTERS(s string) (string, error) {
	unquoted, _ := unquote(s)
	return parseOptional(unquoted), nil
}

// parseTimeOfDayWithSuffix splits a trailing letter off s and parses the rest as time of day.
// The returned suffix is 0 if there was none.
func parseTimeOfDayWithSuffix(s string) (time.Duration, byte, error) {
	var suffix byte
	if n := len(s); n > 1 && isLetter(s[n-1]) {
		suffix = s[n-1]
		s = s[:n-1]
	}
	d, err := parseTimeOfDay(s)
	if err != nil {
		return 0, 0, err
	}
	return d, suffix, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseTimeOfDay parses a time relative to 00:00, the start of a calendar day.
//
//	2            time in hours
//	2:00         time in hours and minutes
//	01:28:14     time in hours, minutes, and seconds
//	00:19:32.13  time with fractional seconds
//	24:00        end of day, 24 hours after 00:00
//	260:00       260 hours after 00:00
//	-2:30        2.5 hours before 00:00
//	-            equivalent to 0
//
// Fractional seconds are truncated to milliseconds.
func parseTimeOfDay(s string) (time.Duration, error) {
	if s == "-" {
		return 0, nil
	}

	isNegative := strings.HasPrefix(s, "-")
	if isNegative || strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many colons in %q", s)
	}

	hours, err := parseDigits(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour format: %w", err)
	}
	total := time.Duration(hours) * time.Hour

	if len(parts) > 1 {
		minutes, err := parseDigits(parts[1])
		if err != nil || minutes > 59 {
			return 0, fmt.Errorf("invalid minute format: %q", parts[1])
		}
		total += time.Duration(minutes) * time.Minute
	}

	if len(parts) > 2 {
		secondsStr, fractionalStr, hasFraction := strings.Cut(parts[2], ".")
		seconds, err := parseDigits(secondsStr)
		if err != nil || seconds > 60 {
			return 0, fmt.Errorf("invalid second format: %q", parts[2])
		}
		total += time.Duration(seconds) * time.Second
		if hasFraction {
			// Pad or truncate to 3 digits (milliseconds).
			fractionalStr = (fractionalStr + "000")[:3]
			fractional, err := parseDigits(fractionalStr)
			if err != nil {
				return 0, fmt.Errorf("invalid fractional second format: %q", parts[2])
			}
			total += time.Duration(fractional) * time.Millisecond
		}
	}

	if isNegative {
		total = -total
	}
	return total, nil
}

// parseDigits parses a non-empty string of ASCII digits.
func parseDigits(s string) (int, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("empty number")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid digit %q in %q", s[i], s)
		}
	}
	return strconv.Atoi(s)
}

var weekdays = [...]struct {
	long, min string
}{
	{"sunday", "su"},
	{"monday", "m"},
	{"tuesday", "tu"},
	{"wednesday", "w"},
	{"thursday", "th"},
	{"friday", "f"},
	{"saturday", "sa"},
}

func parseWeekday(s string) (time.Weekday, error) {
	l := strings.ToLower(s)
	for i, d := range weekdays {
		if isAbbrev(l, d.long, d.min) {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

func isAbbrev(s string, long string, min string) bool {
	return strings.HasPrefix(s, min) && strings.HasPrefix(long, s)
}
