// Package domain holds the shared value types of the cash reconciliation:
// broker codes, event types, normalized records and break records.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cashrec/internal/dates"
)

// Broker identifies a prime broker counterparty.
type Broker string

// Supported prime brokers.
const (
	BrokerGS    Broker = "GS"
	BrokerBOAML Broker = "BOAML"
	BrokerUBS   Broker = "UBS"
	BrokerJPM   Broker = "JPM"
	BrokerMS    Broker = "MS"
)

// Brokers lists the supported codes in display order.
var Brokers = []Broker{BrokerGS, BrokerBOAML, BrokerUBS, BrokerJPM, BrokerMS}

// ParseBroker validates a broker code from user input.
func ParseBroker(s string) (Broker, error) {
	for _, b := range Brokers {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown broker %q", s)
}

// EventType selects which ledger event set a reconciliation pass covers.
type EventType string

const (
	EventUnwindClose  EventType = "unwind-close"
	EventCashDividend EventType = "cash-dividend"
)

// MatchKey aligns one ledger aggregate with one broker aggregate.
// Date is a trade date for unwind cashflows and a settle date for
// dividends; the two must never be collapsed into each other.
type MatchKey struct {
	BBCode string
	Date   dates.Date
}

// Compare orders keys by code then date, for deterministic iteration.
func (k MatchKey) Compare(o MatchKey) int {
	if k.BBCode != o.BBCode {
		if k.BBCode < o.BBCode {
			return -1
		}
		return 1
	}
	return k.Date.Compare(o.Date)
}

// NormalizedRecord is the common shape both sides are reduced to before
// aggregation. An empty BBCode marks an unresolved identifier; it flows
// through and surfaces as a break rather than failing the run.
type NormalizedRecord struct {
	Key    MatchKey
	Amount decimal.Decimal
}

// Break categories. Matched rows keep the empty category so the legacy
// break-file consumers see a blank cell.
const CategoryMatched = ""

// CategoryLedgerBreak flags a key with broker cash but no ledger cash.
func CategoryLedgerBreak() string { return "break - Zen missing" }

// CategoryBrokerBreak flags a key with ledger cash but no broker cash.
func CategoryBrokerBreak(b Broker) string {
	return fmt.Sprintf("break - %s missing", b)
}

// CategoryDiffBreak flags a matched key whose difference exceeds the
// tolerance. The tolerance is embedded in the label for traceability.
func CategoryDiffBreak(tolerance decimal.Decimal) string {
	return fmt.Sprintf("break - diff > %s", tolerance)
}

// BreakRecord is one reconciliation result row. Amounts are nil when the
// corresponding side had no cash for the key; Diff is always broker
// minus ledger with absent sides treated as zero.
type BreakRecord struct {
	Category     string
	Key          MatchKey
	TradeDate    dates.Date
	SettleDate   dates.Date
	BrokerAmount *decimal.Decimal
	LedgerAmount *decimal.Decimal
	Diff         decimal.Decimal
}
