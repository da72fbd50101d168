package recon

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"cashrec/internal/broker"
	"cashrec/internal/dates"
	"cashrec/internal/domain"
	"cashrec/internal/ledger"
	"cashrec/internal/runlog"
	"cashrec/internal/tickermap"
)

// Runner drives the two reconciliation passes for one broker and settle
// date. Each pass gets a fresh runlog; the report builder merges the
// pass's log into that pass's section of the break file.
type Runner struct {
	Store       ledger.Store
	ArchiveRoot string
	Tickers     *tickermap.Map
	Tolerance   decimal.Decimal
}

// UnwindResult is everything the stage-1 report needs: the classified
// breaks plus both sides' raw material for the legacy output files.
type UnwindResult struct {
	Breaks  []domain.BreakRecord
	Tickets []*ledger.CashTicket
	Shaped  *broker.Table
	Log     *runlog.Log
}

// DividendResult carries the stage-2 break rows and their run log.
type DividendResult struct {
	Breaks []domain.BreakRecord
	Log    *runlog.Log
}

func (r *Runner) env(log *runlog.Log) *broker.Env {
	return &broker.Env{ArchiveRoot: r.ArchiveRoot, Tickers: r.Tickers, Log: log}
}

// ReconcileUnwind runs the swap-unwind pass: ledger tickets settling on
// the date drive which broker reports are read, both sides are
// aggregated by (bb_code, trade date) and classified.
func (r *Runner) ReconcileUnwind(ctx context.Context, b domain.Broker, settle dates.Date) (*UnwindResult, error) {
	log := runlog.New()
	env := r.env(log)

	adapter, ok := broker.ForBroker(b)
	if !ok {
		return nil, fmt.Errorf("no adapter for broker %s", b)
	}

	tickets, err := r.Store.UnwindCashflows(ctx, string(b), settle)
	if err != nil {
		return nil, fmt.Errorf("load ledger unwind cashflows: %w", err)
	}
	if len(tickets) == 0 {
		log.Warnf("there is no ZEN swap unwind cashflow on settle date = %s for broker %s", settle, b)
	}

	norm, err := adapter.UnwindCashflows(env, settle, ledger.TradeDates(tickets))
	if err != nil {
		return nil, fmt.Errorf("load %s unwind cashflows: %w", b, err)
	}

	ledgerAgg := Aggregate(unwindLedgerRecords(tickets))
	brokerAgg := Aggregate(norm.Records)
	breaks := Classify(ledgerAgg, brokerAgg, b, r.Tolerance,
		func(k domain.MatchKey) (dates.Date, dates.Date) { return k.Date, settle })

	return &UnwindResult{
		Breaks:  breaks,
		Tickets: tickets,
		Shaped:  adapter.ShapeUnwind(env, norm),
		Log:     log,
	}, nil
}

// ReconcileDividends runs the cash-dividend pass. The adapter decides
// which ledger settle dates to query from the broker rows it loaded, so
// delayed-settlement brokers reconcile every pay date they report.
func (r *Runner) ReconcileDividends(ctx context.Context, b domain.Broker, settle dates.Date) (*DividendResult, error) {
	log := runlog.New()
	env := r.env(log)

	adapter, ok := broker.ForBroker(b)
	if !ok {
		return nil, fmt.Errorf("no adapter for broker %s", b)
	}

	divs, err := adapter.SettledDividends(env, settle)
	if err != nil {
		return nil, fmt.Errorf("load %s settled dividends: %w", b, err)
	}

	var tickets []*ledger.CashTicket
	for _, d := range adapter.DividendLedgerDates(settle, divs) {
		ts, err := r.Store.SettledCashDividends(ctx, string(b), d)
		if err != nil {
			return nil, fmt.Errorf("load ledger cash dividends: %w", err)
		}
		if len(ts) == 0 {
			log.Warnf("there is no ZEN cash dividend settled on %s for broker %s", d, b)
		}
		tickets = append(tickets, ts...)
	}

	ledgerAgg := Aggregate(dividendLedgerRecords(tickets))
	brokerAgg := Aggregate(divs.Records)
	breaks := Classify(ledgerAgg, brokerAgg, b, r.Tolerance, dividendDates(tickets))

	return &DividendResult{Breaks: breaks, Log: log}, nil
}

// unwindLedgerRecords reduces unwind tickets to key/amount: the trade
// date keys the row and the amount is performance plus accrued
// financing.
func unwindLedgerRecords(tickets []*ledger.CashTicket) []domain.NormalizedRecord {
	out := make([]domain.NormalizedRecord, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, domain.NormalizedRecord{
			Key:    domain.MatchKey{BBCode: t.BBCode, Date: t.Date},
			Amount: t.UnwindAmount(),
		})
	}
	return out
}

// dividendLedgerRecords keys dividend tickets by settle date; the
// amount is the local cash only.
func dividendLedgerRecords(tickets []*ledger.CashTicket) []domain.NormalizedRecord {
	out := make([]domain.NormalizedRecord, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, domain.NormalizedRecord{
			Key:    domain.MatchKey{BBCode: t.BBCode, Date: t.DateSettle},
			Amount: t.CashLocal,
		})
	}
	return out
}

// dividendDates builds the break-row date assigner for the dividend
// pass: settle date from the key, trade date from the first matching
// ticket's booking entry date, which carries the ex-date. Keys with no
// ledger ticket leave the trade date blank.
func dividendDates(tickets []*ledger.CashTicket) DateAssigner {
	exDates := make(map[domain.MatchKey]dates.Date, len(tickets))
	for _, t := range tickets {
		k := domain.MatchKey{BBCode: t.BBCode, Date: t.DateSettle}
		if _, ok := exDates[k]; !ok {
			exDates[k] = t.DateTradeEntry
		}
	}
	return func(k domain.MatchKey) (dates.Date, dates.Date) {
		return exDates[k], k.Date
	}
}
