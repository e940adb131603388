// Package zoneinfo holds compiled time zones and answers offset, name and
// transition queries against them.
//
// A compiled Zone is immutable. All query methods are safe for concurrent use.
package zoneinfo

import (
	"math"
	"sort"
	"time"

	"github.com/ngrash/go-zoneinfo/internal/tzexpand"
	"github.com/ngrash/go-zoneinfo/tzdata"
)

// Type describes the local time of a zone between two transitions.
type Type struct {
	// Offset is the total offset to UT, standard offset plus savings.
	Offset time.Duration
	// Std is the standard offset to UT.
	Std time.Duration
	// Name is the abbreviation, for example CEST.
	Name string
}

// Save returns the daylight savings part of the offset.
func (t Type) Save() time.Duration {
	return t.Offset - t.Std
}

// Transition is the instant at which a Type comes into effect.
type Transition struct {
	// At is the instant in milliseconds since 1970-01-01 00:00:00 UTC.
	At int64
	Type
}

// Recurrence is a yearly transition of a Tail.
type Recurrence struct {
	// Name is the abbreviation in effect after the transition.
	Name string
	// Save is the daylight savings in effect after the transition.
	Save time.Duration
	// Date is the point in the year at which the transition occurs.
	Date tzdata.DateOfYear
}

func (r Recurrence) next(instant int64, std, save time.Duration) int64 {
	return tzexpand.Next(r.Date, instant, std, save)
}

func (r Recurrence) previous(instant int64, std, save time.Duration) int64 {
	return tzexpand.Previous(r.Date, instant, std, save)
}

// Tail computes transitions after the last precomputed one
// from a pair of recurrences that repeat every year forever.
type Tail struct {
	Std   time.Duration
	Start Recurrence
	End   Recurrence
}

func (t *Tail) next(instant int64) int64 {
	start := t.Start.next(instant, t.Std, t.End.Save)
	end := t.End.next(instant, t.Std, t.Start.Save)
	return min(start, end)
}

func (t *Tail) previous(instant int64) int64 {
	if instant == math.MaxInt64 {
		return instant
	}
	instant++
	start := t.Start.previous(instant, t.Std, t.End.Save)
	end := t.End.previous(instant, t.Std, t.Start.Save)
	return max(start, end) - 1
}

// typeAt returns the type of the recurrence in effect at instant.
func (t *Tail) typeAt(instant int64) Type {
	r := t.End
	start := t.Start.next(instant, t.Std, t.End.Save)
	end := t.End.next(instant, t.Std, t.Start.Save)
	if start > end {
		r = t.Start
	}
	return Type{Offset: t.Std + r.Save, Std: t.Std, Name: r.Name}
}

// Zone is a compiled time zone.
type Zone struct {
	// ID is the zone identifier, for example Europe/Zurich.
	ID string
	// Initial is in effect before the first transition.
	Initial Type
	// Transitions are ordered by strictly increasing instant.
	Transitions []Transition
	// Tail continues the transitions forever. It is nil for zones
	// that do not observe daylight saving time anymore.
	Tail *Tail
}

// Fixed returns a zone that has the same offset at all times.
func Fixed(id, name string, offset, std time.Duration) *Zone {
	return &Zone{ID: id, Initial: Type{Offset: offset, Std: std, Name: name}}
}

// search returns the number of transitions at or before instant.
func (z *Zone) search(instant int64) int {
	return sort.Search(len(z.Transitions), func(i int) bool {
		return z.Transitions[i].At > instant
	})
}

// inTail reports whether the tail answers queries for instant, given i = z.search(instant).
func (z *Zone) inTail(i int, instant int64) bool {
	n := len(z.Transitions)
	return z.Tail != nil && i == n && (n == 0 || instant > z.Transitions[n-1].At)
}

// Regime returns the type in effect at instant.
func (z *Zone) Regime(instant int64) Type {
	i := z.search(instant)
	switch {
	case z.inTail(i, instant):
		return z.Tail.typeAt(instant)
	case i == 0:
		return z.Initial
	default:
		return z.Transitions[i-1].Type
	}
}

// OffsetAt returns the total offset to UT at instant.
func (z *Zone) OffsetAt(instant int64) time.Duration {
	return z.Regime(instant).Offset
}

// StandardOffsetAt returns the standard offset to UT at instant.
func (z *Zone) StandardOffsetAt(instant int64) time.Duration {
	return z.Regime(instant).Std
}

// NameAt returns the abbreviation in use at instant.
func (z *Zone) NameAt(instant int64) string {
	return z.Regime(instant).Name
}

// NextTransition returns the first transition strictly after instant.
// It returns instant if there is none.
func (z *Zone) NextTransition(instant int64) int64 {
	i := z.search(instant)
	if i < len(z.Transitions) {
		return z.Transitions[i].At
	}
	if z.Tail == nil {
		return instant
	}
	next := z.Tail.next(instant)
	if next <= instant {
		return instant
	}
	return next
}

// PreviousTransition returns one millisecond before the last transition at or before instant.
// It returns instant if there is none.
func (z *Zone) PreviousTransition(instant int64) int64 {
	i := z.search(instant)
	n := len(z.Transitions)
	if z.inTail(i, instant) {
		prev := z.Tail.previous(instant)
		if prev < instant && (n == 0 || prev >= z.Transitions[n-1].At-1) {
			return prev
		}
	}
	if i == 0 {
		return instant
	}
	return z.Transitions[i-1].At - 1
}

// IsFixed reports whether the zone has the same offset at all times.
func (z *Zone) IsFixed() bool {
	return len(z.Transitions) == 0 && z.Tail == nil
}
