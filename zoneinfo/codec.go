package zoneinfo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
	"unicode/utf8"
	"unique"

	"github.com/ngrash/go-zoneinfo/tzdata"
)

// All multi-octet integer values are stored big-endian,
// signed values in two's complement.
var order = binary.BigEndian

// Magic is the four-octet ASCII sequence "TZjc" which identifies a compiled zone.
var Magic = [4]byte{'T', 'Z', 'j', 'c'}

// Version1 is the only version of the format.
const Version1 uint8 = 1

// FlagTail is set in Header.Flags if the zone has a tail.
const FlagTail uint8 = 1 << 0

// Header is the header of a compiled zone.
//
//	+---------------+---+---+-------+
//	|  magic    (4) |ver|flg|  (2)  |
//	+---------------+---+---+-------+
type Header struct {
	// Version identifies the version of the format.
	Version uint8
	// Flags is a bit set, see FlagTail.
	Flags uint8
	// Reserved for future use.
	Reserved [2]byte
}

// Write writes the Header to w.
func (h Header) Write(w io.Writer) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	return binary.Write(w, order, h)
}

// ReadHeader reads a Header and checks magic and version.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return h, fmt.Errorf("reading magic: %w", err)
	}
	if !bytes.Equal(magic, Magic[:]) {
		return h, fmt.Errorf("invalid magic: %v", magic)
	}
	if err := binary.Read(r, order, &h); err != nil {
		return h, err
	}
	if h.Version != Version1 {
		return h, fmt.Errorf("unsupported version %d", h.Version)
	}
	return h, nil
}

// CapacityError is returned if a table outgrows its 16-bit index space.
type CapacityError struct {
	What  string
	Count int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("too many %s: %d exceeds %d", e.What, e.Count, math.MaxUint16)
}

// typeRecord is a local time type as stored.
//
//	+---------------+---------------+-------+
//	|  offset   (4) |  std      (4) |name(2)|
//	+---------------+---------------+-------+
type typeRecord struct {
	// Offset is the total offset to UT in milliseconds.
	Offset int32
	// Std is the standard offset to UT in milliseconds.
	Std int32
	// Name is an index into the name pool.
	Name uint16
}

// recurrenceRecord is a Recurrence as stored.
//
//	+-------+---------------+---+---+-------+---+---------------+---+
//	|name(2)|  save     (4) |mon|dfm|dnum(2)|wd |  time     (4) |tfm|
//	+-------+---------------+---+---+-------+---+---------------+---+
type recurrenceRecord struct {
	Name     uint16
	Save     int32
	Month    uint8
	DayForm  uint8
	DayNum   int16
	Weekday  uint8
	Time     int32
	TimeForm uint8
}

// pool assigns stable indexes to strings, in order of first use.
type pool struct {
	index   map[string]uint16
	strings []string
	what    string
}

func newPool(what string) *pool {
	return &pool{index: make(map[string]uint16), what: what}
}

func (p *pool) add(s string) (uint16, error) {
	if i, ok := p.index[s]; ok {
		return i, nil
	}
	if len(p.strings) >= math.MaxUint16 {
		return 0, &CapacityError{What: p.what, Count: len(p.strings) + 1}
	}
	i := uint16(len(p.strings))
	p.index[s] = i
	p.strings = append(p.strings, s)
	return i, nil
}

// Encode writes z to w in the compiled zone format:
//
//	+--------------------------------------------------------------+
//	|  header                                                      |
//	+--------------------------------------------------------------+
//	|  id                        (2 + len)                         |
//	+--------------------------------------------------------------+
//	|  namecnt (2), names        (namecnt x (2 + len))             |
//	+--------------------------------------------------------------+
//	|  typecnt (2), types        (typecnt x 10)                    |
//	+--------------------------------------------------------------+
//	|  initial type              (2)                               |
//	+--------------------------------------------------------------+
//	|  timecnt (4), times (timecnt x 8), time types (timecnt x 2)  |
//	+--------------------------------------------------------------+
//	|  tail, if flagged: std (4), start (16), end (16)             |
//	+--------------------------------------------------------------+
func (z *Zone) Encode(w io.Writer) error {
	names := newPool("names")
	types := make(map[Type]uint16)
	var records []typeRecord
	addType := func(t Type) (uint16, error) {
		if i, ok := types[t]; ok {
			return i, nil
		}
		if len(records) >= math.MaxUint16 {
			return 0, &CapacityError{What: "types", Count: len(records) + 1}
		}
		name, err := names.add(t.Name)
		if err != nil {
			return 0, err
		}
		i := uint16(len(records))
		types[t] = i
		records = append(records, typeRecord{Offset: millis32(t.Offset), Std: millis32(t.Std), Name: name})
		return i, nil
	}

	initial, err := addType(z.Initial)
	if err != nil {
		return err
	}
	times := make([]int64, len(z.Transitions))
	indexes := make([]uint16, len(z.Transitions))
	for i, t := range z.Transitions {
		times[i] = t.At
		if indexes[i], err = addType(t.Type); err != nil {
			return err
		}
	}

	var (
		h          = Header{Version: Version1}
		start, end recurrenceRecord
	)
	if z.Tail != nil {
		h.Flags |= FlagTail
		if start, err = encodeRecurrence(names, z.Tail.Start); err != nil {
			return err
		}
		if end, err = encodeRecurrence(names, z.Tail.End); err != nil {
			return err
		}
	}

	if err := h.Write(w); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writeString(w, z.ID); err != nil {
		return fmt.Errorf("write id: %w", err)
	}
	if err := writeStrings(w, names.strings); err != nil {
		return fmt.Errorf("write names: %w", err)
	}
	if err := binary.Write(w, order, uint16(len(records))); err != nil {
		return fmt.Errorf("write types: %w", err)
	}
	if err := binary.Write(w, order, records); err != nil {
		return fmt.Errorf("write types: %w", err)
	}
	if err := binary.Write(w, order, initial); err != nil {
		return fmt.Errorf("write initial type: %w", err)
	}
	if err := binary.Write(w, order, uint32(len(times))); err != nil {
		return fmt.Errorf("write transitions: %w", err)
	}
	if err := binary.Write(w, order, times); err != nil {
		return fmt.Errorf("write transition times: %w", err)
	}
	if err := binary.Write(w, order, indexes); err != nil {
		return fmt.Errorf("write transition types: %w", err)
	}
	if z.Tail != nil {
		if err := binary.Write(w, order, millis32(z.Tail.Std)); err != nil {
			return fmt.Errorf("write tail: %w", err)
		}
		if err := binary.Write(w, order, []recurrenceRecord{start, end}); err != nil {
			return fmt.Errorf("write tail: %w", err)
		}
	}
	return nil
}

func encodeRecurrence(names *pool, r Recurrence) (recurrenceRecord, error) {
	name, err := names.add(r.Name)
	if err != nil {
		return recurrenceRecord{}, err
	}
	return recurrenceRecord{
		Name:     name,
		Save:     millis32(r.Save),
		Month:    uint8(r.Date.Month),
		DayForm:  uint8(r.Date.Day.Form),
		DayNum:   int16(r.Date.Day.Num),
		Weekday:  uint8(r.Date.Day.Day),
		Time:     millis32(r.Date.Time.Duration),
		TimeForm: uint8(r.Date.Time.Form),
	}, nil
}

// Decode reads a zone written by Encode. Names are interned.
func Decode(r io.Reader) (*Zone, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	z := &Zone{}
	if z.ID, err = readString(r); err != nil {
		return nil, fmt.Errorf("read id: %w", err)
	}
	names, err := readStrings(r)
	if err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}
	name := func(i uint16) (string, error) {
		if int(i) >= len(names) {
			return "", fmt.Errorf("name index %d out of range [0, %d)", i, len(names))
		}
		return names[i], nil
	}

	var typecnt uint16
	if err := binary.Read(r, order, &typecnt); err != nil {
		return nil, fmt.Errorf("read types: %w", err)
	}
	records := make([]typeRecord, typecnt)
	if err := binary.Read(r, order, records); err != nil {
		return nil, fmt.Errorf("read types: %w", err)
	}
	types := make([]Type, typecnt)
	for i, rec := range records {
		n, err := name(rec.Name)
		if err != nil {
			return nil, fmt.Errorf("read type %d: %w", i, err)
		}
		types[i] = Type{Offset: fromMillis(rec.Offset), Std: fromMillis(rec.Std), Name: n}
	}
	typ := func(i uint16) (Type, error) {
		if int(i) >= len(types) {
			return Type{}, fmt.Errorf("type index %d out of range [0, %d)", i, len(types))
		}
		return types[i], nil
	}

	var initial uint16
	if err := binary.Read(r, order, &initial); err != nil {
		return nil, fmt.Errorf("read initial type: %w", err)
	}
	if z.Initial, err = typ(initial); err != nil {
		return nil, fmt.Errorf("read initial type: %w", err)
	}

	var timecnt uint32
	if err := binary.Read(r, order, &timecnt); err != nil {
		return nil, fmt.Errorf("read transitions: %w", err)
	}
	if timecnt > 0 {
		times := make([]int64, timecnt)
		if err := binary.Read(r, order, times); err != nil {
			return nil, fmt.Errorf("read transition times: %w", err)
		}
		indexes := make([]uint16, timecnt)
		if err := binary.Read(r, order, indexes); err != nil {
			return nil, fmt.Errorf("read transition types: %w", err)
		}
		z.Transitions = make([]Transition, timecnt)
		for i := range times {
			if i > 0 && times[i] <= times[i-1] {
				return nil, fmt.Errorf("transition %d at %d is not after %d", i, times[i], times[i-1])
			}
			t, err := typ(indexes[i])
			if err != nil {
				return nil, fmt.Errorf("read transition %d: %w", i, err)
			}
			z.Transitions[i] = Transition{At: times[i], Type: t}
		}
	}

	if h.Flags&FlagTail != 0 {
		var std int32
		if err := binary.Read(r, order, &std); err != nil {
			return nil, fmt.Errorf("read tail: %w", err)
		}
		recs := make([]recurrenceRecord, 2)
		if err := binary.Read(r, order, recs); err != nil {
			return nil, fmt.Errorf("read tail: %w", err)
		}
		tail := &Tail{Std: fromMillis(std)}
		if tail.Start, err = decodeRecurrence(recs[0], name); err != nil {
			return nil, fmt.Errorf("read tail start: %w", err)
		}
		if tail.End, err = decodeRecurrence(recs[1], name); err != nil {
			return nil, fmt.Errorf("read tail end: %w", err)
		}
		z.Tail = tail
	}
	return z, nil
}

func decodeRecurrence(rec recurrenceRecord, name func(uint16) (string, error)) (Recurrence, error) {
	n, err := name(rec.Name)
	if err != nil {
		return Recurrence{}, err
	}
	if rec.Month < 1 || rec.Month > 12 {
		return Recurrence{}, fmt.Errorf("invalid month %d", rec.Month)
	}
	return Recurrence{
		Name: n,
		Save: fromMillis(rec.Save),
		Date: tzdata.DateOfYear{
			Month: time.Month(rec.Month),
			Day: tzdata.Day{
				Form: tzdata.DayForm(rec.DayForm),
				Num:  int(rec.DayNum),
				Day:  time.Weekday(rec.Weekday),
			},
			Time: tzdata.Time{
				Duration: fromMillis(rec.Time),
				Form:     tzdata.TimeForm(rec.TimeForm),
			},
		},
	}, nil
}

func millis32(d time.Duration) int32 {
	return int32(d.Milliseconds())
}

func fromMillis(ms int32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// writeString writes s prefixed with its length as uint16.
func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return &CapacityError{What: "bytes in string", Count: len(s)}
	}
	if err := binary.Write(w, order, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// writeStrings writes the number of strings as uint16 followed by the strings.
func writeStrings(w io.Writer, ss []string) error {
	if len(ss) > math.MaxUint16 {
		return &CapacityError{What: "strings", Count: len(ss)}
	}
	if err := binary.Write(w, order, uint16(len(ss))); err != nil {
		return err
	}
	for _, s := range ss {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

var errInvalidUTF8 = errors.New("invalid UTF-8")

// readString reads a string written by writeString and interns it.
func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, order, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errInvalidUTF8
	}
	return unique.Make(string(b)).Value(), nil
}

// readStrings reads strings written by writeStrings.
func readStrings(r io.Reader) ([]string, error) {
	var n uint16
	if err := binary.Read(r, order, &n); err != nil {
		return nil, err
	}
	ss := make([]string, n)
	for i := range ss {
		s, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("string %d: %w", i, err)
		}
		ss[i] = s
	}
	return ss, nil
}
