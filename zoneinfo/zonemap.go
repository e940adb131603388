package zoneinfo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// MapName is the name under which the map of all zone ids is stored.
const MapName = "ZoneInfoMap"

var errCorruptMap = errors.New("corrupt zone info map")

// Pair maps an id to its canonical zone id by indexes into Map.Pool.
type Pair struct {
	Alias  uint16
	Target uint16
}

// Map resolves zone ids and aliases to the ids of compiled zones.
//
//	+---------------------------------------------------------+
//	|  poolcnt (2), pool strings (poolcnt x (2 + len))        |
//	+---------------------------------------------------------+
//	|  paircnt (2), pairs (paircnt x (alias (2), target (2))) |
//	+---------------------------------------------------------+
type Map struct {
	Pool  []string
	Pairs []Pair

	exact  map[string]int
	folded map[string]int
}

// BuildMap builds the map from id to canonical id, usually every compiled zone
// mapped to itself plus every resolved link.
//
// Ids that differ only in case are collapsed into one entry. The spelling that
// sorts first byte-wise keeps the key and the target of the one that sorts last wins.
// Entries are ordered case-insensitively and the pool holds each key followed
// by its target, every string once.
func BuildMap(ids map[string]string) (*Map, error) {
	keys := make([]string, 0, len(ids))
	for id := range ids {
		keys = append(keys, id)
	}
	sort.Strings(keys)

	type entry struct{ key, target string }
	var (
		entries []*entry
		byFold  = make(map[string]*entry)
	)
	for _, k := range keys {
		f := strings.ToLower(k)
		if e, ok := byFold[f]; ok {
			e.target = ids[k]
			continue
		}
		e := &entry{key: k, target: ids[k]}
		byFold[f] = e
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].key) < strings.ToLower(entries[j].key)
	})
	if len(entries) > math.MaxUint16 {
		return nil, &CapacityError{What: "zone info map pairs", Count: len(entries)}
	}

	p := newPool("zone info map strings")
	m := &Map{}
	for _, e := range entries {
		alias, err := p.add(e.key)
		if err != nil {
			return nil, err
		}
		target, err := p.add(e.target)
		if err != nil {
			return nil, err
		}
		m.Pairs = append(m.Pairs, Pair{Alias: alias, Target: target})
	}
	m.Pool = p.strings
	m.index()
	return m, nil
}

func (m *Map) index() {
	m.exact = make(map[string]int, len(m.Pairs))
	m.folded = make(map[string]int, len(m.Pairs))
	for i, p := range m.Pairs {
		key := m.Pool[p.Alias]
		m.exact[key] = i
		if _, ok := m.folded[strings.ToLower(key)]; !ok {
			m.folded[strings.ToLower(key)] = i
		}
	}
}

// Lookup returns the canonical zone id for id.
// An exact match is preferred over one that ignores case.
func (m *Map) Lookup(id string) (string, bool) {
	i, ok := m.exact[id]
	if !ok {
		i, ok = m.folded[strings.ToLower(id)]
	}
	if !ok {
		return "", false
	}
	return m.Pool[m.Pairs[i].Target], true
}

// IDs returns the keys of the map in map order.
func (m *Map) IDs() []string {
	ids := make([]string, len(m.Pairs))
	for i, p := range m.Pairs {
		ids[i] = m.Pool[p.Alias]
	}
	return ids
}

// Encode writes the map to w.
func (m *Map) Encode(w io.Writer) error {
	if err := writeStrings(w, m.Pool); err != nil {
		return fmt.Errorf("write pool: %w", err)
	}
	if len(m.Pairs) > math.MaxUint16 {
		return &CapacityError{What: "zone info map pairs", Count: len(m.Pairs)}
	}
	if err := binary.Write(w, order, uint16(len(m.Pairs))); err != nil {
		return fmt.Errorf("write pairs: %w", err)
	}
	if err := binary.Write(w, order, m.Pairs); err != nil {
		return fmt.Errorf("write pairs: %w", err)
	}
	return nil
}

// DecodeMap reads a map written by Encode. Pool strings are interned.
func DecodeMap(r io.Reader) (*Map, error) {
	pool, err := readStrings(r)
	if err != nil {
		return nil, fmt.Errorf("read pool: %w", err)
	}
	var n uint16
	if err := binary.Read(r, order, &n); err != nil {
		return nil, fmt.Errorf("read pairs: %w", err)
	}
	pairs := make([]Pair, n)
	if err := binary.Read(r, order, pairs); err != nil {
		return nil, fmt.Errorf("read pairs: %w", err)
	}
	for i, p := range pairs {
		if int(p.Alias) >= len(pool) || int(p.Target) >= len(pool) {
			return nil, fmt.Errorf("pair %d (%d, %d) with pool of %d: %w", i, p.Alias, p.Target, len(pool), errCorruptMap)
		}
	}
	m := &Map{Pool: pool, Pairs: pairs}
	if len(m.Pairs) == 0 {
		m.Pairs = nil
	}
	if len(m.Pool) == 0 {
		m.Pool = nil
	}
	m.index()
	return m, nil
}
