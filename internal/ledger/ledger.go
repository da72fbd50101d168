// Package ledger reads the Zen book-of-record cash tickets that the
// reconciliation compares against broker reports.
package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"cashrec/internal/dates"
)

// Ticket event values as stored in the cash tickets table.
const (
	EventCloseTrade   = "close trade"
	EventCashDividend = "cash dividend"
)

// CashTicket is one Zen cash event row. Date is the trade date of the
// originating trade; DateTradeEntry is the booking entry date, which for
// dividends carries the ex-date.
type CashTicket struct {
	TicketID       int64
	BBCode         string
	Prime          string
	Event          string
	OnSwap         string
	Currency       string
	Date           dates.Date
	DateTradeEntry dates.Date
	DateSettle     dates.Date
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	CashLocal      decimal.Decimal
	AccruedFin     decimal.Decimal
	CurrUnderlying string
	FXRate         decimal.Decimal
}

// UnwindAmount is the cash that settles when a swap position closes:
// performance plus accrued financing.
func (t *CashTicket) UnwindAmount() decimal.Decimal {
	return t.CashLocal.Add(t.AccruedFin)
}

// Store provides the ledger event sets for one reconciliation pass. An
// empty result is a valid answer, distinct from a query failure.
type Store interface {
	// UnwindCashflows returns the swap unwind tickets settling on the
	// given date for the given prime broker.
	UnwindCashflows(ctx context.Context, prime string, settle dates.Date) ([]*CashTicket, error)

	// SettledCashDividends returns the USD cash dividend tickets
	// settling on the given date for the given prime broker.
	SettledCashDividends(ctx context.Context, prime string, settle dates.Date) ([]*CashTicket, error)
}

// TradeDates returns the distinct ticket trade dates in ascending
// order. They drive which broker report files a pass must read.
func TradeDates(tickets []*CashTicket) []dates.Date {
	seen := make(map[dates.Date]bool, len(tickets))
	var out []dates.Date
	for _, t := range tickets {
		if !seen[t.Date] {
			seen[t.Date] = true
			out = append(out, t.Date)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
