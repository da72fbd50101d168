package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"cashrec/internal/config"
	"cashrec/internal/dates"
	"cashrec/internal/domain"
	"cashrec/internal/ledger/postgres"
	"cashrec/internal/recon"
	"cashrec/internal/report"
	"cashrec/internal/tickermap"
)

func main() {
	// The upstream scheduler passes T-1, so the reconciled settle date
	// is the next business day.
	dateArg := flag.String("date", "", "Run date in YYYY-MM-DD (upstream T-1 convention)")
	brokerArg := flag.String("broker", "", "Prime broker code: GS, BOAML, UBS, JPM or MS")
	toleranceArg := flag.String("tolerance", "10", "Break tolerance in USD")
	flag.Parse()

	if *dateArg == "" || *brokerArg == "" {
		fmt.Fprintln(os.Stderr, "Usage: cashrec -date YYYY-MM-DD -broker GS|BOAML|UBS|JPM|MS [-tolerance 10]")
		os.Exit(2)
	}

	inputDate, err := dates.Parse(*dateArg)
	if err != nil {
		log.Fatalf("invalid -date: %v", err)
	}
	settle := inputDate.AddBusinessDays(1)

	b, err := domain.ParseBroker(*brokerArg)
	if err != nil {
		log.Fatalf("invalid -broker: %v", err)
	}

	tolerance, err := decimal.NewFromString(*toleranceArg)
	if err != nil || tolerance.IsNegative() {
		log.Fatalf("invalid -tolerance %q", *toleranceArg)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect to ledger warehouse: %v", err)
	}
	defer pool.Close()

	tickerTable := cfg.TickerMapTable
	if tickerTable == "" {
		tickerTable = tickermap.DefaultTable
	}
	tickers, err := tickermap.Load(ctx, pool, tickerTable)
	if err != nil {
		log.Fatalf("load ticker map: %v", err)
	}

	runner := &recon.Runner{
		Store:       postgres.NewStore(pool, cfg.TicketsTable),
		ArchiveRoot: cfg.ArchiveRoot,
		Tickers:     tickers,
		Tolerance:   tolerance,
	}
	writer := report.New(cfg.OutputDir)

	fmt.Println("--------------------------------------------------------------------------------------------")
	fmt.Printf("Doing unwind cfd performance rec for %s on settle_date = %s\n", b, settle)
	unwind, err := runner.ReconcileUnwind(ctx, b, settle)
	if err != nil {
		log.Fatalf("unwind reconciliation: %v", err)
	}
	if err := writer.WriteUnwind(b, tolerance, unwind); err != nil {
		log.Fatalf("write unwind report: %v", err)
	}

	fmt.Println("--------------------------------------------------------------------------------------------")
	fmt.Printf("Doing cash dividend rec for %s on settle_date = %s\n", b, settle)
	dividends, err := runner.ReconcileDividends(ctx, b, settle)
	if err != nil {
		log.Fatalf("dividend reconciliation: %v", err)
	}
	if err := writer.AppendDividends(b, dividends); err != nil {
		log.Fatalf("append dividend report: %v", err)
	}

	fmt.Printf("Break report written to %s\n", writer.BreakPath(b))
}
