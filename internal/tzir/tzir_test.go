package tzir

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ngrash/go-zoneinfo/internal/tzexpand"
	"github.com/ngrash/go-zoneinfo/tzdata"
	"github.com/ngrash/go-zoneinfo/zoneinfo"
)

const zurich = `
Rule    Swiss 1941  1942  -  May  Mon>=1   1:00  1:00  S
Rule    Swiss 1941  1942  -  Oct  Mon>=1   2:00  0     -
Rule    EU    1977  1980  -  Apr  Sun>=1   1:00u 1:00  S
Rule    EU    1977  only  -  Sep  lastSun  1:00u 0     -
Rule    EU    1978  only  -  Oct   1       1:00u 0     -
Rule    EU    1979  1995  -  Sep  lastSun  1:00u 0     -
Rule    EU    1981  max   -  Mar  lastSun  1:00u 1:00  S
Rule    EU    1996  max   -  Oct  lastSun  1:00u 0     -

Zone    Europe/Zurich  0:34:08     -      LMT     1853 Jul 16
                       0:29:45.50  -      BMT     1894 Jun
                       1:00        Swiss  CE%sT   1981
                       1:00        EU     CE%sT
`

func utc(year int, month time.Month, day, hour, min, sec, ms int) int64 {
	return time.Date(year, month, day, hour, min, sec, ms*int(time.Millisecond), time.UTC).UnixMilli()
}

func build(t *testing.T, src string) *zoneinfo.Zone {
	t.Helper()
	f, err := tzdata.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Zones) != 1 {
		t.Fatalf("got %d zones, want 1", len(f.Zones))
	}
	z, err := Build(f.Zones[0], tzexpand.Group(f.RuleLines), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return z
}

func TestBuild_FixedZone(t *testing.T) {
	z := build(t, "Zone Etc/Foo 3:00 - FOO\n")
	want := &zoneinfo.Zone{
		ID:      "Etc/Foo",
		Initial: zoneinfo.Type{Offset: 3 * time.Hour, Std: 3 * time.Hour, Name: "FOO"},
	}
	if diff := cmp.Diff(want, z); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
	if got := z.OffsetAt(0).Milliseconds(); got != 10800000 {
		t.Errorf("OffsetAt(0) = %d, want 10800000", got)
	}
}

func TestBuild_Zurich(t *testing.T) {
	z := build(t, zurich)

	cet := zoneinfo.Type{Offset: time.Hour, Std: time.Hour, Name: "CET"}
	cest := zoneinfo.Type{Offset: 2 * time.Hour, Std: time.Hour, Name: "CEST"}
	bmt := 29*time.Minute + 45*time.Second + 500*time.Millisecond

	wantInitial := zoneinfo.Type{Offset: 34*time.Minute + 8*time.Second, Std: 34*time.Minute + 8*time.Second, Name: "LMT"}
	if diff := cmp.Diff(wantInitial, z.Initial); diff != "" {
		t.Errorf("Initial mismatch (-want +got):\n%s", diff)
	}

	wantHead := []zoneinfo.Transition{
		{At: utc(1853, time.July, 15, 23, 25, 52, 0), Type: zoneinfo.Type{Offset: bmt, Std: bmt, Name: "BMT"}},
		{At: utc(1894, time.May, 31, 23, 30, 14, 500), Type: cet},
		{At: utc(1941, time.May, 5, 0, 0, 0, 0), Type: cest},
		{At: utc(1941, time.October, 6, 0, 0, 0, 0), Type: cet},
		{At: utc(1942, time.May, 4, 0, 0, 0, 0), Type: cest},
		{At: utc(1942, time.October, 5, 0, 0, 0, 0), Type: cet},
		// The EU line starts in standard time, no transition at the cutover.
		{At: utc(1981, time.March, 29, 1, 0, 0, 0), Type: cest},
	}
	if len(z.Transitions) < len(wantHead) {
		t.Fatalf("got %d transitions, want at least %d", len(z.Transitions), len(wantHead))
	}
	if diff := cmp.Diff(wantHead, z.Transitions[:len(wantHead)]); diff != "" {
		t.Errorf("Transitions mismatch (-want +got):\n%s", diff)
	}

	wantLast := zoneinfo.Transition{At: utc(1996, time.October, 27, 1, 0, 0, 0), Type: cet}
	if diff := cmp.Diff(wantLast, z.Transitions[len(z.Transitions)-1]); diff != "" {
		t.Errorf("last transition mismatch (-want +got):\n%s", diff)
	}

	wantTail := &zoneinfo.Tail{
		Std: time.Hour,
		Start: zoneinfo.Recurrence{
			Name: "CEST",
			Save: time.Hour,
			Date: tzdata.DateOfYear{Month: time.March, Day: tzdata.NewDayLast(time.Sunday), Time: tzdata.NewUniversalTime(time.Hour)},
		},
		End: zoneinfo.Recurrence{
			Name: "CET",
			Save: 0,
			Date: tzdata.DateOfYear{Month: time.October, Day: tzdata.NewDayLast(time.Sunday), Time: tzdata.NewUniversalTime(time.Hour)},
		},
	}
	if diff := cmp.Diff(wantTail, z.Tail); diff != "" {
		t.Errorf("Tail mismatch (-want +got):\n%s", diff)
	}

	for i := 1; i < len(z.Transitions); i++ {
		prev, cur := z.Transitions[i-1], z.Transitions[i]
		if cur.At <= prev.At {
			t.Errorf("transition %d at %d is not after %d", i, cur.At, prev.At)
		}
		if cur.Offset == prev.Offset && cur.Name == prev.Name {
			t.Errorf("transition %d repeats %+v", i, cur.Type)
		}
	}
}

func TestBuild_ZurichQueries(t *testing.T) {
	z := build(t, zurich)

	cases := []struct {
		at     int64
		offset time.Duration
		name   string
	}{
		{utc(1800, time.January, 1, 0, 0, 0, 0), 34*time.Minute + 8*time.Second, "LMT"},
		{utc(1941, time.July, 1, 0, 0, 0, 0), 2 * time.Hour, "CEST"},
		{utc(1960, time.July, 1, 0, 0, 0, 0), time.Hour, "CET"},
		{utc(2024, time.July, 1, 0, 0, 0, 0), 2 * time.Hour, "CEST"},
		{utc(2024, time.December, 1, 0, 0, 0, 0), time.Hour, "CET"},
		{utc(2250, time.August, 1, 0, 0, 0, 0), 2 * time.Hour, "CEST"},
	}
	for _, c := range cases {
		if got := z.OffsetAt(c.at); got != c.offset {
			t.Errorf("OffsetAt(%d) = %v, want %v", c.at, got, c.offset)
		}
		if got := z.NameAt(c.at); got != c.name {
			t.Errorf("NameAt(%d) = %q, want %q", c.at, got, c.name)
		}
	}

	from := utc(2024, time.January, 1, 0, 0, 0, 0)
	if got, want := z.NextTransition(from), utc(2024, time.March, 31, 1, 0, 0, 0); got != want {
		t.Errorf("NextTransition(%d) = %d, want %d", from, got, want)
	}
	at := utc(2024, time.July, 1, 0, 0, 0, 0)
	if got, want := z.PreviousTransition(at), utc(2024, time.March, 31, 1, 0, 0, 0)-1; got != want {
		t.Errorf("PreviousTransition(%d) = %d, want %d", at, got, want)
	}
}

func TestBuild_FixedSavings(t *testing.T) {
	z := build(t, strings.TrimSpace(`
Zone Test/Fixed  1:00  -     GMT/BST  1950
                 1:00  1:00  GMT/BST  1960
                 1:00  -     XYZ
`))
	want := []zoneinfo.Transition{
		{At: utc(1950, time.January, 1, 0, 0, 0, 0) - time.Hour.Milliseconds(), Type: zoneinfo.Type{Offset: 2 * time.Hour, Std: time.Hour, Name: "BST"}},
		{At: utc(1960, time.January, 1, 0, 0, 0, 0) - 2*time.Hour.Milliseconds(), Type: zoneinfo.Type{Offset: time.Hour, Std: time.Hour, Name: "XYZ"}},
	}
	if diff := cmp.Diff(want, z.Transitions); diff != "" {
		t.Errorf("Transitions mismatch (-want +got):\n%s", diff)
	}
	if z.Initial.Name != "GMT" {
		t.Errorf("Initial.Name = %q, want GMT", z.Initial.Name)
	}
}

func TestBuild_Horizon(t *testing.T) {
	// Three rules that run forever never collapse into a tail.
	z := build(t, strings.TrimSpace(`
Rule  Tri  2000  max  -  Jan  1  0:00  0     -
Rule  Tri  2000  max  -  May  1  0:00  1:00  D
Rule  Tri  2000  max  -  Sep  1  0:00  2:00  W
Zone  Test/Tri  0:00  Tri  T%sT
`))
	if z.Tail != nil {
		t.Fatalf("Tail = %+v, want nil", z.Tail)
	}
	last := z.Transitions[len(z.Transitions)-1]
	if got := time.UnixMilli(last.At).UTC().Year(); got != DefaultHorizonYear-1 {
		t.Errorf("last transition in %d, want %d", got, DefaultHorizonYear-1)
	}
	if got := z.NextTransition(last.At); got != last.At {
		t.Errorf("NextTransition(last) = %d, want %d", got, last.At)
	}
}

func TestBuild_UnresolvedRule(t *testing.T) {
	f, err := tzdata.Parse(strings.NewReader("Zone Test/Missing 1:00 Nope CE%sT\n"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = Build(f.Zones[0], tzexpand.Group(f.RuleLines), DefaultOptions())
	var ure *UnresolvedRuleError
	if !errors.As(err, &ure) {
		t.Fatalf("Build() error = %v, want *UnresolvedRuleError", err)
	}
	if diff := cmp.Diff(&UnresolvedRuleError{Zone: "Test/Missing", Rules: "Nope"}, ure); diff != "" {
		t.Errorf("error mismatch (-want +got):\n%s", diff)
	}
}

func TestAddTransition(t *testing.T) {
	hour := time.Hour.Milliseconds()
	first := tzexpand.Transition{At: -1 << 63, Name: "A", Offset: 0}
	cases := []struct {
		name  string
		in    []tzexpand.Transition
		add   tzexpand.Transition
		want  []tzexpand.Transition
		added bool
	}{
		{
			name:  "empty",
			add:   first,
			want:  []tzexpand.Transition{first},
			added: true,
		},
		{
			name:  "same regime",
			in:    []tzexpand.Transition{first},
			add:   tzexpand.Transition{At: 10, Name: "A", Offset: 0},
			want:  []tzexpand.Transition{first},
			added: false,
		},
		{
			name:  "not after last",
			in:    []tzexpand.Transition{first, {At: 10, Name: "B", Offset: time.Hour}},
			add:   tzexpand.Transition{At: 10, Name: "C", Offset: 0},
			want:  []tzexpand.Transition{first, {At: 10, Name: "B", Offset: time.Hour}},
			added: false,
		},
		{
			name: "zero length regime is dropped",
			in: []tzexpand.Transition{
				first,
				{At: 10 * hour, Name: "B", Offset: 2 * time.Hour},
				{At: 20 * hour, Name: "C", Offset: time.Hour},
			},
			// D starts at 22:00 local time in C, which is when C started in B.
			add: tzexpand.Transition{At: 21 * hour, Name: "D", Offset: 3 * time.Hour},
			want: []tzexpand.Transition{
				first,
				{At: 10 * hour, Name: "B", Offset: 2 * time.Hour},
				{At: 21 * hour, Name: "D", Offset: 3 * time.Hour},
			},
			added: true,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := append([]tzexpand.Transition(nil), c.in...)
			got, added := addTransition(in, c.add)
			if added != c.added {
				t.Errorf("addTransition() added = %v, want %v", added, c.added)
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("addTransition() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuild_RuleEndsAtNewYear(t *testing.T) {
	z := build(t, strings.TrimSpace(`
Rule  Dhaka  2009  only  -  Jun  19  23:00  1:00  -
Rule  Dhaka  2009  only  -  Dec  31  24:00  0     -
Zone  Asia/Dhaka  6:00  Dhaka  %z
`))
	plus6 := zoneinfo.Type{Offset: 6 * time.Hour, Std: 6 * time.Hour, Name: "+06"}
	want := &zoneinfo.Zone{
		ID:      "Asia/Dhaka",
		Initial: plus6,
		Transitions: []zoneinfo.Transition{
			{At: utc(2009, time.June, 19, 17, 0, 0, 0), Type: zoneinfo.Type{Offset: 7 * time.Hour, Std: 6 * time.Hour, Name: "+07"}},
			{At: utc(2009, time.December, 31, 17, 0, 0, 0), Type: plus6},
		},
	}
	if diff := cmp.Diff(want, z); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
	if got := z.Regime(utc(2015, time.January, 1, 0, 0, 0, 0)); got != plus6 {
		t.Errorf("Regime(2015) = %+v, want %+v", got, plus6)
	}
}
