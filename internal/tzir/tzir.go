// Package tzir assembles the lines of a zone and the rules they reference
// into the ordered transitions of a compiled zone.
package tzir

import (
	"fmt"
	"math"
	"time"

	"github.com/ngrash/go-zoneinfo/internal/tzexpand"
	"github.com/ngrash/go-zoneinfo/tzdata"
	"github.com/ngrash/go-zoneinfo/zoneinfo"
)

// DefaultHorizonYear is the year at which expansion stops for zones without a tail.
const DefaultHorizonYear = 2100

// Options control the assembly of a zone.
type Options struct {
	// HorizonYear stops the expansion of rules at the first transition in that year or later.
	HorizonYear int
}

// DefaultOptions returns the options used by the compiler unless configured otherwise.
func DefaultOptions() Options {
	return Options{HorizonYear: DefaultHorizonYear}
}

// UnresolvedRuleError is returned if a zone line references rules that do not exist.
type UnresolvedRuleError struct {
	Zone  string
	Rules string
}

func (e *UnresolvedRuleError) Error() string {
	return fmt.Sprintf("zone %s: no rules named %q", e.Zone, e.Rules)
}

// Build assembles zone into a compiled zone.
// Rule names of the zone lines are looked up in rules.
func Build(zone tzdata.Zone, rules map[string]*tzexpand.RuleSet, opts Options) (*zoneinfo.Zone, error) {
	segs, err := segments(zone, rules, opts)
	if err != nil {
		return nil, err
	}

	var (
		transitions []tzexpand.Transition
		tail        *zoneinfo.Tail
		millis      = int64(math.MinInt64)
		save        time.Duration
	)
	for i, s := range segs {
		next := s.first(millis)
		transitions, _ = addTransition(transitions, next)
		millis, save = next.At, next.Save()

		if s.rules != nil {
			e := s.rules.Clone()
			for {
				next, ok := e.Next(millis, save)
				if !ok {
					break
				}
				var added bool
				if transitions, added = addTransition(transitions, next); added && tail != nil {
					// One transition past the start of the tail seams it to the list.
					break
				}
				millis, save = next.At, next.Save()
				if tail == nil && i == len(segs)-1 {
					tail = buildTail(e)
				}
			}
		}
		millis = s.limit(save)
	}

	switch {
	case len(transitions) == 0:
		return zoneinfo.Fixed(zone.Name, "UTC", 0, 0), nil
	case len(transitions) == 1 && tail == nil:
		t := transitions[0]
		return zoneinfo.Fixed(zone.Name, t.Name, t.Offset, t.Std), nil
	}

	z := &zoneinfo.Zone{
		ID:      zone.Name,
		Initial: typeOf(transitions[0]),
		Tail:    tail,
	}
	for _, t := range transitions[1:] {
		z.Transitions = append(z.Transitions, zoneinfo.Transition{At: t.At, Type: typeOf(t)})
	}
	return z, nil
}

func typeOf(t tzexpand.Transition) zoneinfo.Type {
	return zoneinfo.Type{Offset: t.Offset, Std: t.Std, Name: t.Name}
}

// segment is one line of a zone, ready for assembly.
type segment struct {
	std   time.Duration
	until tzdata.Until

	// fixed is set for lines without rules.
	fixed *tzexpand.Transition

	rules  *tzexpand.Expansion
	format string
}

func segments(zone tzdata.Zone, rules map[string]*tzexpand.RuleSet, opts Options) ([]*segment, error) {
	var segs []*segment
	for _, l := range zone.Lines {
		s := &segment{std: l.Offset, until: l.Until, format: l.Format}
		switch l.Rules.Form {
		case tzdata.ZoneRulesStandard:
			s.fixed = &tzexpand.Transition{
				Name:   tzexpand.FormatName(l.Format, 0, "", l.Offset),
				Offset: l.Offset,
				Std:    l.Offset,
			}
		case tzdata.ZoneRulesTime:
			save := l.Rules.Time.Duration
			s.fixed = &tzexpand.Transition{
				Name:   tzexpand.FormatName(l.Format, save, "", l.Offset+save),
				Offset: l.Offset + save,
				Std:    l.Offset,
			}
		case tzdata.ZoneRulesName:
			rs, ok := rules[l.Rules.Name]
			if !ok {
				return nil, &UnresolvedRuleError{Zone: zone.Name, Rules: l.Rules.Name}
			}
			s.rules = rs.Expand(l.Offset, l.Format, tzexpand.Options{Until: l.Until, HorizonYear: opts.HorizonYear})
		}
		segs = append(segs, s)
	}
	return segs, nil
}

// limit returns the instant at which the segment ends given the savings in effect.
func (s *segment) limit(save time.Duration) int64 {
	if !s.until.Defined {
		return math.MaxInt64
	}
	return tzexpand.Resolve(s.until.DateOfYear(), s.until.Year, s.std, save)
}

// first returns the regime in effect when the segment starts at instant at.
func (s *segment) first(at int64) tzexpand.Transition {
	if s.fixed != nil {
		t := *s.fixed
		t.At = at
		return t
	}

	// Replay the rules up to the start of the segment and keep the last one that fired.
	var (
		e      = s.rules.Clone()
		millis = int64(math.MinInt64)
		save   time.Duration
		best   *tzexpand.Transition
	)
	for {
		next, ok := e.Next(millis, save)
		if !ok {
			break
		}
		if next.At == at {
			return next
		}
		if next.At > at {
			if best != nil {
				return *best
			}
			return s.standard(at, next.Name)
		}
		prior := next
		prior.At = at
		best = &prior
		millis, save = next.At, next.Save()
	}
	if best != nil {
		return *best
	}
	return s.standard(at, "")
}

// standard returns the regime of a segment that starts before its first rule fires.
// It takes the name of the first rule without savings, else upcoming, else the
// format without letter.
func (s *segment) standard(at int64, upcoming string) tzexpand.Transition {
	t := tzexpand.Transition{At: at, Offset: s.std, Std: s.std}
	for _, r := range s.rules.Rules() {
		if r.Save == 0 {
			t.Name = r.Name
			return t
		}
	}
	if upcoming != "" {
		t.Name = upcoming
		return t
	}
	t.Name = tzexpand.FormatName(s.format, 0, "", s.std)
	return t
}

// addTransition appends tr to ts if it moves forward in time and changes the offset or the name.
// A transition that would start at the same local time as the last one replaces it.
func addTransition(ts []tzexpand.Transition, tr tzexpand.Transition) ([]tzexpand.Transition, bool) {
	n := len(ts)
	if n == 0 {
		return append(ts, tr), true
	}
	last := ts[n-1]
	if tr.At <= last.At || (tr.Offset == last.Offset && tr.Name == last.Name) {
		return ts, false
	}

	var offsetForLast time.Duration
	if n >= 2 {
		offsetForLast = ts[n-2].Offset
	}
	lastLocal := last.At + offsetForLast.Milliseconds()
	newLocal := tr.At + last.Offset.Milliseconds()
	if newLocal != lastLocal {
		return append(ts, tr), true
	}
	return addTransition(ts[:n-1], tr)
}

// buildTail returns a tail if the remaining rules of e are a pair that repeats forever.
func buildTail(e *tzexpand.Expansion) *zoneinfo.Tail {
	rules := e.Rules()
	if len(rules) != 2 || rules[0].To != tzdata.MaxYear || rules[1].To != tzdata.MaxYear {
		return nil
	}
	recurrence := func(r *tzexpand.Rule) zoneinfo.Recurrence {
		return zoneinfo.Recurrence{Name: r.Name, Save: r.Save, Date: r.Date}
	}
	return &zoneinfo.Tail{Std: e.Std(), Start: recurrence(rules[0]), End: recurrence(rules[1])}
}
