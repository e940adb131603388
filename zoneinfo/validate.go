package zoneinfo

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ngrash/go-zoneinfo/internal/unixtime"
)

// Window is the range of years a zone is checked in, both inclusive of their first instant.
type Window struct {
	FromYear int
	ToYear   int
}

// DefaultWindow covers the years in which most zones have their history.
var DefaultWindow = Window{FromYear: 1850, ToYear: 2050}

// ConsistencyError reports a zone whose transitions do not hold together.
type ConsistencyError struct {
	Zone    string
	At      int64
	Problem string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("zone %s at %s: %s", e.Zone, formatInstant(e.At), e.Problem)
}

func formatInstant(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

// Validate walks the transitions of z inside w forwards and backwards.
//
// Walking forwards, no transition may keep both offset and name and every
// name must have at least three characters or be "??". Walking backwards
// from the end of the window must visit one millisecond before each
// transition found on the way forward.
func Validate(z *Zone, w Window) error {
	var (
		millis = unixtime.StartOfYear(w.FromYear)
		end    = unixtime.StartOfYear(w.ToYear)
		prev   = z.Regime(millis)

		transitions []int64
	)
	for {
		next := z.NextTransition(millis)
		if next == millis || next > end {
			break
		}
		millis = next
		cur := z.Regime(millis)
		if cur.Offset == prev.Offset && cur.Name == prev.Name {
			return &ConsistencyError{Zone: z.ID, At: millis, Problem: fmt.Sprintf("transition keeps offset %v and name %q", cur.Offset, cur.Name)}
		}
		if len(cur.Name) < 3 && cur.Name != "??" {
			return &ConsistencyError{Zone: z.ID, At: millis, Problem: fmt.Sprintf("malformed name %q", cur.Name)}
		}
		transitions = append(transitions, millis)
		prev = cur
	}

	millis = end
	start := unixtime.StartOfYear(w.FromYear)
	for i := len(transitions) - 1; i >= 0; i-- {
		p := z.PreviousTransition(millis)
		if p == millis || p < start {
			break
		}
		millis = p
		if want := transitions[i] - 1; p != want {
			return &ConsistencyError{Zone: z.ID, At: p, Problem: fmt.Sprintf("previous transition is %s, want %s", formatInstant(p), formatInstant(want))}
		}
	}
	return nil
}

// CheckRoundTrip encodes and decodes z and compares the result with z,
// field by field and by querying both at every transition.
func CheckRoundTrip(z *Zone) error {
	var buf bytes.Buffer
	if err := z.Encode(&buf); err != nil {
		return fmt.Errorf("encode zone %s: %w", z.ID, err)
	}
	dec, err := Decode(&buf)
	if err != nil {
		return fmt.Errorf("decode zone %s: %w", z.ID, err)
	}
	if diff := cmp.Diff(z, dec); diff != "" {
		return &ConsistencyError{Zone: z.ID, Problem: fmt.Sprintf("decoded zone differs (-want +got):\n%s", diff)}
	}
	for _, t := range z.Transitions {
		for _, at := range []int64{t.At - 1, t.At} {
			if want, got := z.Regime(at), dec.Regime(at); want != got {
				return &ConsistencyError{Zone: z.ID, At: at, Problem: fmt.Sprintf("decoded zone has %+v, want %+v", got, want)}
			}
			if want, got := z.NextTransition(at), dec.NextTransition(at); want != got {
				return &ConsistencyError{Zone: z.ID, At: at, Problem: fmt.Sprintf("decoded zone has next transition %d, want %d", got, want)}
			}
			if want, got := z.PreviousTransition(at), dec.PreviousTransition(at); want != got {
				return &ConsistencyError{Zone: z.ID, At: at, Problem: fmt.Sprintf("decoded zone has previous transition %d, want %d", got, want)}
			}
		}
	}
	return nil
}
