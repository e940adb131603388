package tzexpand

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ngrash/go-zoneinfo/internal/unixtime"
	"github.com/ngrash/go-zoneinfo/tzdata"
)

// FloorYear replaces a FROM column of "minimum". Rules never start earlier.
const FloorYear = 1

// RuleSet holds the rule lines that share one name, in source order.
type RuleSet struct {
	Name  string
	Lines []tzdata.RuleLine
}

// NewRuleSet returns an empty set for rules named name.
func NewRuleSet(name string) *RuleSet {
	return &RuleSet{Name: name}
}

// Add appends r to the set. It fails if r belongs to another set.
func (s *RuleSet) Add(r tzdata.RuleLine) error {
	if r.Name != s.Name {
		return fmt.Errorf("rule name mismatch: %q added to set %q", r.Name, s.Name)
	}
	s.Lines = append(s.Lines, r)
	return nil
}

// Group sorts rule lines into sets by name, keeping source order within each set.
func Group(lines []tzdata.RuleLine) map[string]*RuleSet {
	sets := make(map[string]*RuleSet)
	for _, r := range lines {
		s, ok := sets[r.Name]
		if !ok {
			s = NewRuleSet(r.Name)
			sets[r.Name] = s
		}
		// Cannot fail, the set was picked by name.
		_ = s.Add(r)
	}
	return sets
}

// Transition is a change of the offset or the name of a zone.
type Transition struct {
	At     int64         // At is the instant in Unix milliseconds.
	Name   string        // Name is the formatted abbreviation in effect from At.
	Offset time.Duration // Offset is the total offset to UT, standard offset plus savings.
	Std    time.Duration // Std is the standard offset.
}

// Save returns the savings in effect from t.At.
func (t Transition) Save() time.Duration {
	return t.Offset - t.Std
}

// Rule is a rule line taking part in an expansion.
type Rule struct {
	From, To int
	Date     tzdata.DateOfYear
	Save     time.Duration
	Letter   string

	// Name is the abbreviation in effect after the rule fires.
	Name string
}

// next returns the first occurrence of r strictly after instant,
// or a value not after instant if the rule does not occur anymore.
// The year range of r bounds the year the date is resolved in, not the
// year of the resulting instant, so Dec 31 24:00 of the last year still occurs.
func (r *Rule) next(instant int64, std, save time.Duration) int64 {
	y, last := r.From, r.From
	if instant != math.MinInt64 {
		year := unixtime.YearOf(instant + (std + save).Milliseconds())
		y, last = max(r.From, year-1), max(r.From, year+2)
	}
	for ; y <= r.To && y <= last; y++ {
		if at := Resolve(r.Date, y, std, save); at > instant {
			return at
		}
	}
	return instant
}

// Options limit an Expansion.
type Options struct {
	// Until is the end of the zone line the rules apply to. Undefined means no end.
	Until tzdata.Until
	// HorizonYear stops the expansion at the first transition in that year or later.
	HorizonYear int
}

// Expansion is a lazy stream of the transitions of a rule set
// applied to one zone line. It is not safe for concurrent use.
type Expansion struct {
	std   time.Duration
	rules []*Rule
	opts  Options
}

// Expand starts an expansion of s for a zone line with the standard offset std
// and the abbreviation format.
func (s *RuleSet) Expand(std time.Duration, format string, opts Options) *Expansion {
	e := &Expansion{std: std, opts: opts}
	for _, l := range s.Lines {
		from := int(l.From)
		if l.From == tzdata.MinYear {
			from = FloorYear
		}
		e.rules = append(e.rules, &Rule{
			From:   from,
			To:     int(l.To),
			Date:   l.DateOfYear(),
			Save:   l.Save.Duration,
			Letter: l.Letter,
			Name:   FormatName(format, l.Save.Duration, l.Letter, std+l.Save.Duration),
		})
	}
	return e
}

// Clone returns an independent copy of the stream in its current state.
func (e *Expansion) Clone() *Expansion {
	c := *e
	c.rules = append([]*Rule(nil), e.rules...)
	return &c
}

// Std returns the standard offset of the zone line.
func (e *Expansion) Std() time.Duration {
	return e.std
}

// Rules returns the rules that can still occur, in source order.
func (e *Expansion) Rules() []*Rule {
	return e.rules
}

// Limit returns the instant at which the zone line ends given the savings in effect.
// It returns math.MaxInt64 for a line without end.
func (e *Expansion) Limit(save time.Duration) int64 {
	if !e.opts.Until.Defined {
		return math.MaxInt64
	}
	return Resolve(e.opts.Until.DateOfYear(), e.opts.Until.Year, e.std, save)
}

// Next returns the earliest occurrence of any rule strictly after instant,
// given the savings in effect at instant. Rules that cannot occur anymore are
// dropped from the stream. Of two rules occurring at the same instant the one
// defined first wins. The stream ends at the limit of the zone line and at the
// horizon year.
func (e *Expansion) Next(instant int64, save time.Duration) (Transition, bool) {
	var (
		best     *Rule
		bestNext int64 = math.MaxInt64
	)
	for i := 0; i < len(e.rules); {
		r := e.rules[i]
		next := r.next(instant, e.std, save)
		if next <= instant {
			e.rules = append(e.rules[:i:i], e.rules[i+1:]...)
			continue
		}
		if next < bestNext {
			best, bestNext = r, next
		}
		i++
	}
	if best == nil {
		return Transition{}, false
	}
	if e.opts.HorizonYear != 0 && unixtime.YearOf(bestNext) >= e.opts.HorizonYear {
		return Transition{}, false
	}
	if bestNext >= e.Limit(save) {
		return Transition{}, false
	}
	return Transition{At: bestNext, Name: best.Name, Offset: e.std + best.Save, Std: e.std}, true
}

// Materialize returns the transitions of the stream in the half-open window [from, to).
// It works on a copy and leaves e untouched.
func (e *Expansion) Materialize(from, to int64) []Transition {
	c := e.Clone()
	var (
		out     []Transition
		instant = int64(math.MinInt64)
		save    time.Duration
	)
	for {
		t, ok := c.Next(instant, save)
		if !ok || t.At >= to {
			return out
		}
		if t.At >= from {
			out = append(out, t)
		}
		instant, save = t.At, t.Save()
	}
}

// FormatName expands the FORMAT column of a zone line.
//
// A slash separates the abbreviation used when save is zero from the one used otherwise.
// Else %s is replaced with letter and %z with offset as ±hh, ±hhmm or ±hhmmss.
// A format with neither is returned unchanged.
func FormatName(format string, save time.Duration, letter string, offset time.Duration) string {
	if i := strings.IndexByte(format, '/'); i > 0 {
		if save == 0 {
			return format[:i]
		}
		return format[i+1:]
	}
	var b []byte
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			switch format[i+1] {
			case 's':
				b = append(b, letter...)
				i++
				continue
			case 'z':
				b = append(b, formatOffset(offset)...)
				i++
				continue
			}
		}
		b = append(b, format[i])
	}
	return string(b)
}

// formatOffset formats d in the shortest of the forms ±hh, ±hhmm and ±hhmmss.
func formatOffset(d time.Duration) string {
	sign := byte('+')
	if d < 0 {
		sign = '-'
		d = -d
	}
	secs := int(d / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	switch {
	case s != 0:
		return fmt.Sprintf("%c%02d%02d%02d", sign, h, m, s)
	case m != 0:
		return fmt.Sprintf("%c%02d%02d", sign, h, m)
	default:
		return fmt.Sprintf("%c%02d", sign, h)
	}
}
