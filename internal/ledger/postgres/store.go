package postgres

import (
	"context"
	"fmt"
	"time"

	"cashrec/internal/dates"
	"cashrec/internal/ledger"
)

// DefaultTicketsTable is the cash tickets table name unless overridden.
const DefaultTicketsTable = "cash_tickets"

// Store implements ledger.Store using PostgreSQL.
type Store struct {
	pool  *Pool
	table string
}

// NewStore creates a ledger store over the given table. An empty table
// name selects DefaultTicketsTable.
func NewStore(pool *Pool, table string) *Store {
	if table == "" {
		table = DefaultTicketsTable
	}
	return &Store{pool: pool, table: table}
}

// Compile-time interface check.
var _ ledger.Store = (*Store)(nil)

const ticketColumns = `
	ticket_id, bb_code, prime, event, on_swap, currency,
	date_trade, date_trade_entry, date_settle,
	quantity, price, cash_local, accrued_fin, curr_underlying, fx_rate
`

// UnwindCashflows returns swap unwind tickets settling on the date for
// the prime. An empty slice is a valid answer.
func (s *Store) UnwindCashflows(ctx context.Context, prime string, settle dates.Date) ([]*ledger.CashTicket, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE date_settle = $1
		  AND prime = $2
		  AND event = $3
		  AND on_swap = 'SWAP'
		ORDER BY ticket_id
	`, ticketColumns, s.table)

	return s.query(ctx, query, settle.Time(), prime, ledger.EventCloseTrade)
}

// SettledCashDividends returns USD cash dividend tickets settling on
// the date for the prime.
func (s *Store) SettledCashDividends(ctx context.Context, prime string, settle dates.Date) ([]*ledger.CashTicket, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE date_settle = $1
		  AND prime = $2
		  AND event = $3
		  AND currency = 'USD'
		ORDER BY ticket_id
	`, ticketColumns, s.table)

	return s.query(ctx, query, settle.Time(), prime, ledger.EventCashDividend)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*ledger.CashTicket, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cash tickets: %w", err)
	}
	defer rows.Close()

	var out []*ledger.CashTicket
	for rows.Next() {
		var (
			t                                ledger.CashTicket
			dateTrade, dateEntry, dateSettle time.Time
		)
		if err := rows.Scan(
			&t.TicketID, &t.BBCode, &t.Prime, &t.Event, &t.OnSwap, &t.Currency,
			&dateTrade, &dateEntry, &dateSettle,
			&t.Quantity, &t.Price, &t.CashLocal, &t.AccruedFin, &t.CurrUnderlying, &t.FXRate,
		); err != nil {
			return nil, fmt.Errorf("scan cash ticket: %w", err)
		}
		t.Date = dates.FromTime(dateTrade)
		t.DateTradeEntry = dates.FromTime(dateEntry)
		t.DateSettle = dates.FromTime(dateSettle)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cash tickets: %w", err)
	}
	return out, nil
}
