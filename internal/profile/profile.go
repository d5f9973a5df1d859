// Package profile holds the static OID data a virtual device answers from.
// A profile maps OIDs to typed base values; the behavior engine layers
// temporal dynamics on top of these at query time.
package profile

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	radix "github.com/armon/go-radix"
	"github.com/gosnmp/gosnmp"
)

// Datum is a typed SNMP value: the static base value of an OID, and also the
// simulator's output form.
type Datum struct {
	Type  gosnmp.Asn1BER
	Value interface{}
}

// Store indexes a device profile for Get and GetNext access. Lookups use a
// radix tree; walk order comes from a pre-sorted OID slice.
type Store struct {
	mu     sync.RWMutex
	tree   *radix.Tree
	sorted []string
}

// NewStore creates an empty profile store.
func NewStore() *Store {
	return &Store{tree: radix.New()}
}

// Insert adds or replaces an OID. Call Sort after batch inserts.
func (s *Store) Insert(oid string, d Datum) {
	oid = NormalizeOID(oid)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, updated := s.tree.Insert(oid, d); !updated {
		s.sorted = append(s.sorted, oid)
	}
}

// Sort orders the OID index numerically. Must run once after batch inserts
// and before any GetNext.
func (s *Store) Sort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.Slice(s.sorted, func(i, j int) bool {
		return CompareOIDs(s.sorted[i], s.sorted[j]) < 0
	})
}

// Get returns the datum for an OID, if present.
func (s *Store) Get(oid string) (Datum, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tree.Get(NormalizeOID(oid))
	if !ok {
		return Datum{}, false
	}
	return v.(Datum), true
}

// GetNext returns the first OID strictly after the given one, in numeric OID
// order, together with its datum. ok is false at end of MIB.
func (s *Store) GetNext(oid string) (string, Datum, bool) {
	oid = NormalizeOID(oid)
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := sort.Search(len(s.sorted), func(i int) bool {
		return CompareOIDs(s.sorted[i], oid) > 0
	})
	if idx >= len(s.sorted) {
		return "", Datum{}, false
	}
	next := s.sorted[idx]
	v, _ := s.tree.Get(next)
	return next, v.(Datum), true
}

// Len returns the number of OIDs in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sorted)
}

// Walk visits every OID in numeric order until the callback returns false.
func (s *Store) Walk(fn func(oid string, d Datum) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, oid := range s.sorted {
		v, _ := s.tree.Get(oid)
		if !fn(oid, v.(Datum)) {
			return
		}
	}
}

// NormalizeOID strips whitespace and a leading dot.
func NormalizeOID(oid string) string {
	return strings.TrimPrefix(strings.TrimSpace(oid), ".")
}

// CompareOIDs orders two dotted OIDs numerically, arc by arc. Lexical string
// order is wrong here: "1.3.6.1.2.1.10" must sort after "1.3.6.1.2.1.2".
func CompareOIDs(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.ParseUint(as[i], 10, 64)
		bn, berr := strconv.ParseUint(bs[i], 10, 64)
		if aerr != nil || berr != nil {
			if as[i] != bs[i] {
				return strings.Compare(as[i], bs[i])
			}
			continue
		}
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}
