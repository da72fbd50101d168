// Package tickermap resolves broker-native security identifiers (RIC,
// SEDOL) to the canonical Bloomberg code used as the reconciliation
// match key. The map is loaded once per run and immutable afterwards;
// lookups are pure and unmapped identifiers simply report ok=false.
package tickermap

import (
	"strings"
)

// Entry is one raw row of the trade ticker map table.
type Entry struct {
	BBCodeTraded string // may carry a trailing " Equity" suffix
	Sedol        string
	ISIN         string
	RIC          string
}

// Map is the immutable identifier map.
type Map struct {
	byRIC   map[string]string
	bySedol map[string]string
}

// New builds a Map from raw entries, applying the identifier
// transformation rules. Later entries win on duplicate identifiers,
// matching the table's load order.
func New(entries []Entry) *Map {
	m := &Map{
		byRIC:   make(map[string]string, len(entries)),
		bySedol: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		bb := CanonicalBBCode(e.BBCodeTraded)
		if bb == "" {
			continue
		}
		if ric := normalizeRIC(e.BBCodeTraded, e.RIC); ric != "" {
			m.byRIC[ric] = bb
		}
		if e.Sedol != "" {
			m.bySedol[e.Sedol] = bb
		}
	}
	return m
}

// ByRIC resolves a Reuters code to the canonical Bloomberg code.
func (m *Map) ByRIC(ric string) (string, bool) {
	bb, ok := m.byRIC[ric]
	return bb, ok
}

// BySedol resolves a SEDOL to the canonical Bloomberg code.
func (m *Map) BySedol(sedol string) (string, bool) {
	bb, ok := m.bySedol[sedol]
	return bb, ok
}

// Len returns the number of distinct RIC mappings.
func (m *Map) Len() int { return len(m.byRIC) }

// CanonicalBBCode strips the " Equity" yellow-key suffix from a traded
// Bloomberg code.
func CanonicalBBCode(bb string) string {
	if s, ok := strings.CutSuffix(bb, " Equity"); ok {
		return strings.TrimRight(s, " ")
	}
	return bb
}

// normalizeRIC disambiguates Thai lines: foreign-board codes ("/F TB")
// become <base>_f.BK and NVDR codes ("-R TB") become <base>_n.BK, since
// the brokers report the board-specific RIC.
func normalizeRIC(bbTraded, ric string) string {
	base, isBK := strings.CutSuffix(ric, ".BK")
	if !isBK {
		return ric
	}
	switch {
	case strings.Contains(bbTraded, "/F TB"):
		return base + "_f.BK"
	case strings.Contains(bbTraded, "-R TB"):
		return base + "_n.BK"
	default:
		return ric
	}
}
