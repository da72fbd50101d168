package recon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cashrec/internal/dates"
	"cashrec/internal/domain"
)

var (
	jan5  = dates.New(2024, time.January, 5)
	jan8  = dates.New(2024, time.January, 8)
	tol10 = decimal.NewFromInt(10)
)

func key(bb string, d dates.Date) domain.MatchKey {
	return domain.MatchKey{BBCode: bb, Date: d}
}

func amounts(pairs map[domain.MatchKey]string) map[domain.MatchKey]decimal.Decimal {
	out := make(map[domain.MatchKey]decimal.Decimal, len(pairs))
	for k, v := range pairs {
		out[k] = decimal.RequireFromString(v)
	}
	return out
}

func sameDates(k domain.MatchKey) (dates.Date, dates.Date) { return k.Date, k.Date }

func TestAggregateSumsPerKey(t *testing.T) {
	recs := []domain.NormalizedRecord{
		{Key: key("INST1", jan5), Amount: decimal.RequireFromString("100.10")},
		{Key: key("INST1", jan5), Amount: decimal.RequireFromString("-0.10")},
		{Key: key("INST1", jan8), Amount: decimal.RequireFromString("7")},
	}
	agg := Aggregate(recs)
	if len(agg) != 2 {
		t.Fatalf("keys = %d, want 2", len(agg))
	}
	if !agg[key("INST1", jan5)].Equal(decimal.NewFromInt(100)) {
		t.Fatalf("sum = %s, want 100", agg[key("INST1", jan5)])
	}
}

func TestClassifyWithinTolerance(t *testing.T) {
	l := amounts(map[domain.MatchKey]string{key("INST1", jan5): "100.00"})
	b := amounts(map[domain.MatchKey]string{key("INST1", jan5): "108.50"})

	got := Classify(l, b, domain.BrokerGS, tol10, sameDates)
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
	if got[0].Category != domain.CategoryMatched {
		t.Fatalf("category = %q, want matched", got[0].Category)
	}
	if !got[0].Diff.Equal(decimal.RequireFromString("8.5")) {
		t.Fatalf("diff = %s, want 8.5", got[0].Diff)
	}
}

func TestClassifyDiffExceedsTolerance(t *testing.T) {
	l := amounts(map[domain.MatchKey]string{key("INST1", jan5): "100.00"})
	b := amounts(map[domain.MatchKey]string{key("INST1", jan5): "120.00"})

	got := Classify(l, b, domain.BrokerGS, tol10, sameDates)
	if got[0].Category != "break - diff > 10" {
		t.Fatalf("category = %q", got[0].Category)
	}
	if !got[0].Diff.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("diff = %s, want 20", got[0].Diff)
	}
}

func TestClassifyToleranceBoundaryIsMatched(t *testing.T) {
	l := amounts(map[domain.MatchKey]string{key("INST1", jan5): "100.00"})
	b := amounts(map[domain.MatchKey]string{key("INST1", jan5): "110.00"})

	got := Classify(l, b, domain.BrokerGS, tol10, sameDates)
	if got[0].Category != domain.CategoryMatched {
		t.Fatalf("abs diff equal to tolerance must match, got %q", got[0].Category)
	}
}

func TestClassifyOneSidedBreaks(t *testing.T) {
	l := amounts(map[domain.MatchKey]string{key("INST2", jan5): "50.00"})
	b := amounts(map[domain.MatchKey]string{key("INST3", jan5): "25.00"})

	got := Classify(l, b, domain.BrokerJPM, tol10, sameDates)
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}

	// Keys are emitted in (bb_code, date) order.
	if got[0].Category != "break - JPM missing" {
		t.Fatalf("category = %q", got[0].Category)
	}
	if !got[0].Diff.Equal(decimal.NewFromInt(-50)) {
		t.Fatalf("diff = %s, want -50", got[0].Diff)
	}
	if got[0].BrokerAmount != nil || got[0].LedgerAmount == nil {
		t.Fatal("ledger-only row must carry only the ledger amount")
	}

	if got[1].Category != "break - Zen missing" {
		t.Fatalf("category = %q", got[1].Category)
	}
	if !got[1].Diff.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("diff = %s, want 25", got[1].Diff)
	}
	if got[1].LedgerAmount != nil || got[1].BrokerAmount == nil {
		t.Fatal("broker-only row must carry only the broker amount")
	}
}

func TestClassifyEmptyInputs(t *testing.T) {
	got := Classify(nil, nil, domain.BrokerGS, tol10, sameDates)
	if len(got) != 0 {
		t.Fatalf("rows = %d, want none", len(got))
	}
}

func TestClassifyDeterministicOrder(t *testing.T) {
	l := amounts(map[domain.MatchKey]string{
		key("B", jan5): "1", key("A", jan8): "1", key("A", jan5): "1",
	})
	got := Classify(l, nil, domain.BrokerGS, tol10, sameDates)
	want := []domain.MatchKey{key("A", jan5), key("A", jan8), key("B", jan5)}
	for i, k := range want {
		if got[i].Key != k {
			t.Fatalf("row %d key = %+v, want %+v", i, got[i].Key, k)
		}
	}
}

func TestClassifyDateProvenance(t *testing.T) {
	b := amounts(map[domain.MatchKey]string{key("INST1", jan5): "5"})
	settle := jan8
	got := Classify(nil, b, domain.BrokerGS, tol10,
		func(k domain.MatchKey) (dates.Date, dates.Date) { return k.Date, settle })
	if !got[0].TradeDate.Equal(jan5) || !got[0].SettleDate.Equal(jan8) {
		t.Fatalf("dates = %s / %s", got[0].TradeDate, got[0].SettleDate)
	}
}
