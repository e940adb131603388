package zoneinfo

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ngrash/go-zoneinfo/tzdata"
)

func utc(year int, month time.Month, day, hour int) int64 {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC).UnixMilli()
}

var (
	lmt  = Type{Offset: 34*time.Minute + 8*time.Second, Std: 34*time.Minute + 8*time.Second, Name: "LMT"}
	cet  = Type{Offset: time.Hour, Std: time.Hour, Name: "CET"}
	cest = Type{Offset: 2 * time.Hour, Std: time.Hour, Name: "CEST"}
)

// testZone is a trimmed down Europe/Zurich.
func testZone() *Zone {
	lastSun := tzdata.NewDayLast(time.Sunday)
	return &Zone{
		ID:      "Europe/Zurich",
		Initial: lmt,
		Transitions: []Transition{
			{At: utc(1894, time.June, 1, 0), Type: cet},
			{At: utc(1981, time.March, 29, 1), Type: cest},
			{At: utc(1996, time.October, 27, 1), Type: cet},
		},
		Tail: &Tail{
			Std: time.Hour,
			Start: Recurrence{
				Name: "CEST",
				Save: time.Hour,
				Date: tzdata.DateOfYear{Month: time.March, Day: lastSun, Time: tzdata.NewUniversalTime(time.Hour)},
			},
			End: Recurrence{
				Name: "CET",
				Date: tzdata.DateOfYear{Month: time.October, Day: lastSun, Time: tzdata.NewUniversalTime(time.Hour)},
			},
		},
	}
}

func TestZone_Regime(t *testing.T) {
	z := testZone()
	cases := []struct {
		name string
		at   int64
		want Type
	}{
		{"before first transition", utc(1800, time.January, 1, 0), lmt},
		{"just before first transition", utc(1894, time.June, 1, 0) - 1, lmt},
		{"at first transition", utc(1894, time.June, 1, 0), cet},
		{"summer 1981", utc(1981, time.July, 1, 0), cest},
		{"at last transition", utc(1996, time.October, 27, 1), cet},
		{"winter in tail", utc(1997, time.January, 1, 0), cet},
		{"summer in tail", utc(1997, time.July, 1, 0), cest},
		{"tail start", utc(2030, time.March, 31, 1), cest},
		{"just before tail end", utc(2030, time.October, 27, 1) - 1, cest},
		{"tail end", utc(2030, time.October, 27, 1), cet},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := z.Regime(c.at); got != c.want {
				t.Errorf("Regime(%d) = %+v, want %+v", c.at, got, c.want)
			}
			if got := z.OffsetAt(c.at); got != c.want.Offset {
				t.Errorf("OffsetAt(%d) = %v, want %v", c.at, got, c.want.Offset)
			}
			if got := z.StandardOffsetAt(c.at); got != c.want.Std {
				t.Errorf("StandardOffsetAt(%d) = %v, want %v", c.at, got, c.want.Std)
			}
			if got := z.NameAt(c.at); got != c.want.Name {
				t.Errorf("NameAt(%d) = %q, want %q", c.at, got, c.want.Name)
			}
		})
	}
}

func TestZone_NextTransition(t *testing.T) {
	z := testZone()
	cases := []struct {
		at, want int64
	}{
		{utc(1800, time.January, 1, 0), utc(1894, time.June, 1, 0)},
		{utc(1894, time.June, 1, 0) - 1, utc(1894, time.June, 1, 0)},
		{utc(1894, time.June, 1, 0), utc(1981, time.March, 29, 1)},
		{utc(1996, time.October, 27, 1), utc(1997, time.March, 30, 1)},
		{utc(1997, time.March, 30, 1), utc(1997, time.October, 26, 1)},
		{utc(2024, time.January, 1, 0), utc(2024, time.March, 31, 1)},
	}
	for _, c := range cases {
		if got := z.NextTransition(c.at); got != c.want {
			t.Errorf("NextTransition(%d) = %d, want %d", c.at, got, c.want)
		}
	}
}

func TestZone_PreviousTransition(t *testing.T) {
	z := testZone()
	cases := []struct {
		at, want int64
	}{
		{utc(1800, time.January, 1, 0), utc(1800, time.January, 1, 0)},
		{utc(1894, time.June, 1, 0), utc(1894, time.June, 1, 0) - 1},
		{utc(1950, time.January, 1, 0), utc(1894, time.June, 1, 0) - 1},
		{utc(1996, time.October, 27, 1), utc(1996, time.October, 27, 1) - 1},
		{utc(1997, time.January, 1, 0), utc(1996, time.October, 27, 1) - 1},
		{utc(1997, time.July, 1, 0), utc(1997, time.March, 30, 1) - 1},
		{utc(2024, time.July, 1, 0), utc(2024, time.March, 31, 1) - 1},
	}
	for _, c := range cases {
		if got := z.PreviousTransition(c.at); got != c.want {
			t.Errorf("PreviousTransition(%d) = %d, want %d", c.at, got, c.want)
		}
	}
}

func TestFixed(t *testing.T) {
	z := Fixed("Etc/Foo", "FOO", 3*time.Hour, 3*time.Hour)
	if !z.IsFixed() {
		t.Errorf("IsFixed() = false, want true")
	}
	for _, at := range []int64{-1 << 62, 0, 1 << 62} {
		if got := z.OffsetAt(at); got != 3*time.Hour {
			t.Errorf("OffsetAt(%d) = %v, want 3h", at, got)
		}
		if got := z.NextTransition(at); got != at {
			t.Errorf("NextTransition(%d) = %d, want %d", at, got, at)
		}
		if got := z.PreviousTransition(at); got != at {
			t.Errorf("PreviousTransition(%d) = %d, want %d", at, got, at)
		}
	}
}

func TestZone_ConcurrentReads(t *testing.T) {
	z := testZone()
	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < 8; i++ {
		year := 1970 + i*10
		g.Go(func() error {
			at := utc(year, time.January, 1, 0)
			for j := 0; j < 100; j++ {
				next := z.NextTransition(at)
				if next <= at {
					return nil
				}
				if prev := z.PreviousTransition(next); prev != next-1 {
					t.Errorf("PreviousTransition(%d) = %d, want %d", next, prev, next-1)
				}
				_ = z.NameAt(next)
				at = next
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
