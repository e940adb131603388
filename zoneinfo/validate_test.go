package zoneinfo

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	bad := func(name string) Type {
		return Type{Offset: time.Hour, Std: time.Hour, Name: name}
	}
	cases := []struct {
		name    string
		zone    *Zone
		wantAt  int64
		wantErr string
	}{
		{
			name: "zurich",
			zone: testZone(),
		},
		{
			name: "fixed",
			zone: Fixed("Etc/Foo", "FOO", 3*time.Hour, 3*time.Hour),
		},
		{
			name: "unknown name",
			zone: &Zone{
				ID:          "Test/Unknown",
				Initial:     lmt,
				Transitions: []Transition{{At: utc(1900, time.January, 1, 0), Type: bad("??")}},
			},
		},
		{
			name: "duplicate regime",
			zone: &Zone{
				ID:      "Test/Duplicate",
				Initial: lmt,
				Transitions: []Transition{
					{At: utc(1900, time.January, 1, 0), Type: cet},
					{At: utc(1950, time.January, 1, 0), Type: Type{Offset: time.Hour, Std: 0, Name: "CET"}},
				},
			},
			wantAt:  utc(1950, time.January, 1, 0),
			wantErr: `transition keeps offset 1h0m0s and name "CET"`,
		},
		{
			name: "duplicate regime outside window",
			zone: &Zone{
				ID:      "Test/Later",
				Initial: lmt,
				Transitions: []Transition{
					{At: utc(1900, time.January, 1, 0), Type: cet},
					{At: utc(2060, time.January, 1, 0), Type: cet},
				},
			},
		},
		{
			name: "short name",
			zone: &Zone{
				ID:          "Test/Short",
				Initial:     lmt,
				Transitions: []Transition{{At: utc(1900, time.January, 1, 0), Type: bad("X")}},
			},
			wantAt:  utc(1900, time.January, 1, 0),
			wantErr: `malformed name "X"`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Validate(c.zone, DefaultWindow)
			if c.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() failed: %v", err)
				}
				return
			}
			var ce *ConsistencyError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() error = %v, want *ConsistencyError", err)
			}
			if ce.Zone != c.zone.ID || ce.At != c.wantAt {
				t.Errorf("ConsistencyError at %s %d, want %s %d", ce.Zone, ce.At, c.zone.ID, c.wantAt)
			}
			if !strings.Contains(ce.Problem, c.wantErr) {
				t.Errorf("ConsistencyError.Problem = %q, want %q", ce.Problem, c.wantErr)
			}
		})
	}
}

func TestValidate_Window(t *testing.T) {
	z := &Zone{
		ID:          "Test/Short",
		Initial:     lmt,
		Transitions: []Transition{{At: utc(1840, time.January, 1, 0), Type: Type{Name: "X"}}},
	}
	if err := Validate(z, DefaultWindow); err != nil {
		t.Errorf("Validate(%+v) = %v, want nil", DefaultWindow, err)
	}
	if err := Validate(z, Window{FromYear: 1800, ToYear: 1900}); err == nil {
		t.Errorf("Validate() = nil, want error")
	}
}

func TestConsistencyError_Error(t *testing.T) {
	err := &ConsistencyError{Zone: "Europe/Zurich", At: utc(1894, time.June, 1, 0), Problem: "broken"}
	want := "zone Europe/Zurich at 1894-06-01T00:00:00.000Z: broken"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCheckRoundTrip(t *testing.T) {
	for _, z := range []*Zone{
		testZone(),
		Fixed("Etc/Foo", "FOO", 3*time.Hour, 3*time.Hour),
	} {
		if err := CheckRoundTrip(z); err != nil {
			t.Errorf("CheckRoundTrip(%s) = %v", z.ID, err)
		}
	}
}

func TestCheckRoundTrip_EncodeError(t *testing.T) {
	z := &Zone{ID: strings.Repeat("x", 1<<16)}
	var ce *CapacityError
	if err := CheckRoundTrip(z); !errors.As(err, &ce) {
		t.Errorf("CheckRoundTrip() error = %v, want *CapacityError", err)
	}
}
