// Package broker normalizes heterogeneous prime-broker settlement
// reports into the common key/amount shape the reconciliation compares.
// Each broker gets its own adapter variant; the variants share a
// contract, not behavior, and are selected from a registry by broker
// code. Report selection and filtering encode each broker's settlement
// timing and must not be "simplified".
package broker

import (
	"errors"

	"cashrec/internal/archive"
	"cashrec/internal/dates"
	"cashrec/internal/domain"
	"cashrec/internal/runlog"
	"cashrec/internal/tickermap"
)

// Env carries the run-scoped collaborators every adapter needs.
type Env struct {
	ArchiveRoot string
	Tickers     *tickermap.Map
	Log         *runlog.Log
}

// Normalized is the result of one adapter load: the normalized records
// for aggregation plus the raw filtered rows for the legacy broker-side
// output file.
type Normalized struct {
	Records []domain.NormalizedRecord
	Raw     *Table
}

// Adapter loads and normalizes one broker's reports. A missing report
// file yields empty data plus a logged warning, never an error; an
// unreadable or template-drifted file is a hard error.
type Adapter interface {
	Code() domain.Broker

	// UnwindCashflows loads the swap unwind rows settling on the given
	// date. tradeDates are the distinct ledger trade dates of the run;
	// brokers that report unwinds on trade-date activity iterate them.
	UnwindCashflows(env *Env, settle dates.Date, tradeDates []dates.Date) (*Normalized, error)

	// SettledDividends loads the cash dividend rows aligned to the
	// given settle date, applying the broker's settlement-timing shift.
	SettledDividends(env *Env, settle dates.Date) (*Normalized, error)

	// DividendLedgerDates returns the ledger settle dates the dividend
	// pass must query, given the broker rows already loaded. Most
	// brokers return one shifted date; delayed-settlement brokers
	// return the distinct pay dates seen in their rows.
	DividendLedgerDates(settle dates.Date, divs *Normalized) []dates.Date

	// ShapeUnwind reshapes the raw unwind rows into the historical
	// broker-side CSV layout consumed downstream.
	ShapeUnwind(env *Env, raw *Normalized) *Table
}

var registry = map[domain.Broker]Adapter{
	domain.BrokerGS:    GS{},
	domain.BrokerBOAML: BOAML{},
	domain.BrokerUBS:   UBS{},
	domain.BrokerJPM:   JPM{},
	domain.BrokerMS:    MS{},
}

// ForBroker returns the adapter for a broker code.
func ForBroker(b domain.Broker) (Adapter, bool) {
	a, ok := registry[b]
	return a, ok
}

func newNormalized(columns []string) *Normalized {
	return &Normalized{Raw: NewTable(columns)}
}

func (n *Normalized) add(raw []string, rec domain.NormalizedRecord) {
	n.Raw.Append(raw)
	n.Records = append(n.Records, rec)
}

// findWithFallback tries the target date's report and falls back to the
// prior business day's. The fallback is a data-availability heuristic
// for brokers that deliver late, not a retry. Missing on the target
// date is silent; missing on both days is a logged warning and an empty
// path.
func findWithFallback(env *Env, b domain.Broker, settle dates.Date, includes, excludes []string) (string, error) {
	for _, d := range []dates.Date{settle, settle.AddBusinessDays(-1)} {
		path, err := archive.Find(env.ArchiveRoot, d, b, includes, excludes)
		if errors.Is(err, archive.ErrNotFound) {
			if !d.Equal(settle) {
				env.Log.Warnf("cannot find %s report for %s in %s", includes[0], b, archive.Dir(env.ArchiveRoot, d, b))
			}
			continue
		}
		if err != nil {
			return "", err
		}
		return path, nil
	}
	return "", nil
}

// findReportOrWarn locates a report on a single date, turning absence
// into a warning plus an empty path.
func findReportOrWarn(env *Env, b domain.Broker, date dates.Date, includes, excludes []string) (string, error) {
	path, err := archive.Find(env.ArchiveRoot, date, b, includes, excludes)
	if errors.Is(err, archive.ErrNotFound) {
		env.Log.Warnf("cannot find %s report for %s in %s", includes[0], b, archive.Dir(env.ArchiveRoot, date, b))
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// distinctKeyDates returns the distinct record dates in ascending order.
func distinctKeyDates(records []domain.NormalizedRecord) []dates.Date {
	seen := make(map[dates.Date]bool, len(records))
	var out []dates.Date
	for _, r := range records {
		if !seen[r.Key.Date] {
			seen[r.Key.Date] = true
			out = append(out, r.Key.Date)
		}
	}
	sortDates(out)
	return out
}
