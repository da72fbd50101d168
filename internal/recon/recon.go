// Package recon compares aggregated ledger cash against aggregated
// broker cash and classifies every match key into a break category. The
// aggregator and classifier are broker-agnostic; everything
// broker-specific happens in the adapters before the records get here.
package recon

import (
	"sort"

	"github.com/shopspring/decimal"

	"cashrec/internal/dates"
	"cashrec/internal/domain"
)

// Aggregate sums record amounts per match key with exact decimal
// arithmetic. It knows nothing about which side the records came from.
func Aggregate(records []domain.NormalizedRecord) map[domain.MatchKey]decimal.Decimal {
	out := make(map[domain.MatchKey]decimal.Decimal, len(records))
	for _, r := range records {
		out[r.Key] = out[r.Key].Add(r.Amount)
	}
	return out
}

// DateAssigner supplies the trade and settle dates a break row carries
// for a key. Unwind rows carry the key's trade date plus the run's
// settle date; dividend rows carry the ledger ex-date plus the key's
// settle date.
type DateAssigner func(key domain.MatchKey) (tradeDate, settleDate dates.Date)

// Classify walks the union of both sides' keys in deterministic key
// order and applies the break rules: a key missing on the ledger side
// is a Zen-missing break, missing on the broker side a broker-missing
// break, and a matched key whose absolute difference exceeds the
// tolerance a diff break. Diff is always broker minus ledger with an
// absent side treated as zero.
func Classify(ledgerAgg, brokerAgg map[domain.MatchKey]decimal.Decimal, b domain.Broker, tolerance decimal.Decimal, assign DateAssigner) []domain.BreakRecord {
	keys := make([]domain.MatchKey, 0, len(ledgerAgg)+len(brokerAgg))
	seen := make(map[domain.MatchKey]bool, len(ledgerAgg)+len(brokerAgg))
	for k := range ledgerAgg {
		seen[k] = true
		keys = append(keys, k)
	}
	for k := range brokerAgg {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })

	out := make([]domain.BreakRecord, 0, len(keys))
	for _, k := range keys {
		lAmt, lOK := ledgerAgg[k]
		bAmt, bOK := brokerAgg[k]

		var category string
		switch {
		case !lOK:
			category = domain.CategoryLedgerBreak()
		case !bOK:
			category = domain.CategoryBrokerBreak(b)
		case lAmt.Sub(bAmt).Abs().GreaterThan(tolerance):
			category = domain.CategoryDiffBreak(tolerance)
		default:
			category = domain.CategoryMatched
		}

		rec := domain.BreakRecord{
			Category: category,
			Key:      k,
			Diff:     bAmt.Sub(lAmt),
		}
		if lOK {
			l := lAmt
			rec.LedgerAmount = &l
		}
		if bOK {
			a := bAmt
			rec.BrokerAmount = &a
		}
		rec.TradeDate, rec.SettleDate = assign(k)
		out = append(out, rec)
	}
	return out
}
