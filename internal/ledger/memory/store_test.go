package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cashrec/internal/dates"
	"cashrec/internal/ledger"
)

func ticket(bb, prime, event, onSwap, ccy string, settle dates.Date, cash string) *ledger.CashTicket {
	return &ledger.CashTicket{
		BBCode:     bb,
		Prime:      prime,
		Event:      event,
		OnSwap:     onSwap,
		Currency:   ccy,
		Date:       settle.AddBusinessDays(-2),
		DateSettle: settle,
		CashLocal:  decimal.RequireFromString(cash),
	}
}

func TestUnwindCashflows(t *testing.T) {
	ctx := context.Background()
	settle := dates.New(2024, time.January, 5)
	s := NewStore()
	s.Add(
		ticket("700 HK", "GS", ledger.EventCloseTrade, "SWAP", "HKD", settle, "100"),
		ticket("700 HK", "GS", ledger.EventCloseTrade, "", "HKD", settle, "50"),       // cash, not swap
		ticket("700 HK", "MS", ledger.EventCloseTrade, "SWAP", "HKD", settle, "70"),   // other prime
		ticket("700 HK", "GS", ledger.EventCashDividend, "SWAP", "USD", settle, "30"), // wrong event
		ticket("700 HK", "GS", ledger.EventCloseTrade, "SWAP", "HKD", settle.AddDays(1), "10"),
	)

	got, err := s.UnwindCashflows(ctx, "GS", settle)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].CashLocal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("UnwindCashflows returned %d rows", len(got))
	}
}

func TestSettledCashDividends(t *testing.T) {
	ctx := context.Background()
	settle := dates.New(2024, time.January, 5)
	s := NewStore()
	s.Add(
		ticket("INST1", "UBS", ledger.EventCashDividend, "", "USD", settle, "42.50"),
		ticket("INST1", "UBS", ledger.EventCashDividend, "", "EUR", settle, "99"), // non-USD excluded
		ticket("INST1", "UBS", ledger.EventCloseTrade, "SWAP", "USD", settle, "7"),
	)

	got, err := s.SettledCashDividends(ctx, "UBS", settle)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].CashLocal.Equal(decimal.RequireFromString("42.50")) {
		t.Errorf("SettledCashDividends returned %d rows", len(got))
	}
}

func TestEmptyResultIsNotAnError(t *testing.T) {
	s := NewStore()
	got, err := s.UnwindCashflows(context.Background(), "GS", dates.New(2024, time.January, 5))
	if err != nil {
		t.Fatalf("empty store errored: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no rows, got %d", len(got))
	}
}
