// Package memory is an in-memory ledger.Store for tests and fixtures.
package memory

import (
	"context"

	"cashrec/internal/dates"
	"cashrec/internal/ledger"
)

// Store holds cash tickets in memory and answers the same queries as
// the warehouse-backed store.
type Store struct {
	tickets []*ledger.CashTicket
}

// NewStore creates an empty in-memory store.
func NewStore() *Store { return &Store{} }

// Compile-time interface check.
var _ ledger.Store = (*Store)(nil)

// Add appends tickets to the store.
func (s *Store) Add(tickets ...*ledger.CashTicket) {
	for _, t := range tickets {
		copy := *t
		s.tickets = append(s.tickets, &copy)
	}
}

// UnwindCashflows returns swap unwind tickets for the prime and settle date.
func (s *Store) UnwindCashflows(_ context.Context, prime string, settle dates.Date) ([]*ledger.CashTicket, error) {
	return s.filter(func(t *ledger.CashTicket) bool {
		return t.Event == ledger.EventCloseTrade &&
			t.OnSwap == "SWAP" &&
			t.Prime == prime &&
			t.DateSettle.Equal(settle)
	}), nil
}

// SettledCashDividends returns USD cash dividend tickets for the prime
// and settle date.
func (s *Store) SettledCashDividends(_ context.Context, prime string, settle dates.Date) ([]*ledger.CashTicket, error) {
	return s.filter(func(t *ledger.CashTicket) bool {
		return t.Event == ledger.EventCashDividend &&
			t.Currency == "USD" &&
			t.Prime == prime &&
			t.DateSettle.Equal(settle)
	}), nil
}

func (s *Store) filter(keep func(*ledger.CashTicket) bool) []*ledger.CashTicket {
	var out []*ledger.CashTicket
	for _, t := range s.tickets {
		if keep(t) {
			copy := *t
			out = append(out, &copy)
		}
	}
	return out
}
