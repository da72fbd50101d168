package report

import (
	"encoding/csv"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cashrec/internal/broker"
	"cashrec/internal/dates"
	"cashrec/internal/domain"
	"cashrec/internal/ledger"
	"cashrec/internal/recon"
	"cashrec/internal/runlog"
)

var testTicket = ledger.CashTicket{
	TicketID: 42, BBCode: "700 HK", Prime: "GS",
	Event: ledger.EventCloseTrade, OnSwap: "SWAP", Currency: "USD",
	Date: dates.New(2024, time.January, 5), DateSettle: dates.New(2024, time.January, 8),
	Quantity: decimal.NewFromInt(100), Price: decimal.NewFromInt(1),
	CashLocal: decimal.NewFromInt(100), AccruedFin: decimal.NewFromInt(5),
	FXRate: decimal.NewFromInt(1),
}

var (
	tol10 = decimal.NewFromInt(10)
	jan5  = dates.New(2024, time.January, 5)
	jan8  = dates.New(2024, time.January, 8)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func breakRec(category, bb string, diff string) domain.BreakRecord {
	l := dec("0")
	a := dec(diff)
	return domain.BreakRecord{
		Category:     category,
		Key:          domain.MatchKey{BBCode: bb, Date: jan5},
		TradeDate:    jan5,
		SettleDate:   jan8,
		BrokerAmount: &a,
		LedgerAmount: &l,
		Diff:         dec(diff),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}

func unwindResult(breaks []domain.BreakRecord, log *runlog.Log) *recon.UnwindResult {
	if log == nil {
		log = runlog.New()
	}
	return &recon.UnwindResult{
		Breaks: breaks,
		Shaped: broker.NewTable([]string{"GS_NetAmount"}),
		Log:    log,
	}
}

func TestWriteUnwindSortsByAbsDiff(t *testing.T) {
	w := New(t.TempDir())
	breaks := []domain.BreakRecord{
		breakRec("", "AAA", "3.00"),
		breakRec("break - diff > 10", "BBB", "-50.00"),
		breakRec("", "CCC", "7.00"),
	}
	if err := w.WriteUnwind(domain.BrokerGS, tol10, unwindResult(breaks, nil)); err != nil {
		t.Fatalf("WriteUnwind: %v", err)
	}

	records := readCSV(t, w.BreakPath(domain.BrokerGS))
	wantHeader := []string{"break", "trade_date", "settle_date", "bb_code", "GS_NetAmount", "Z_NetAmount", "diff"}
	if !reflect.DeepEqual(records[0], wantHeader) {
		t.Fatalf("header = %v", records[0])
	}
	gotOrder := []string{records[1][3], records[2][3], records[3][3]}
	if !reflect.DeepEqual(gotOrder, []string{"BBB", "CCC", "AAA"}) {
		t.Fatalf("row order = %v", gotOrder)
	}
}

func TestWriteUnwindSortIsStable(t *testing.T) {
	w := New(t.TempDir())
	breaks := []domain.BreakRecord{
		breakRec("", "FIRST", "5.00"),
		breakRec("", "SECOND", "-5.00"),
	}
	if err := w.WriteUnwind(domain.BrokerGS, tol10, unwindResult(breaks, nil)); err != nil {
		t.Fatalf("WriteUnwind: %v", err)
	}
	records := readCSV(t, w.BreakPath(domain.BrokerGS))
	if records[1][3] != "FIRST" || records[2][3] != "SECOND" {
		t.Fatalf("equal abs diffs must keep order, got %v / %v", records[1][3], records[2][3])
	}
}

func TestWriteUnwindSumRows(t *testing.T) {
	w := New(t.TempDir())
	breaks := []domain.BreakRecord{
		breakRec("", "AAA", "3.005"),
		breakRec("break - diff > 10", "BBB", "-50.00"),
		breakRec("break - GS missing", "CCC", "20.00"),
	}
	if err := w.WriteUnwind(domain.BrokerGS, tol10, unwindResult(breaks, nil)); err != nil {
		t.Fatalf("WriteUnwind: %v", err)
	}

	records := readCSV(t, w.BreakPath(domain.BrokerGS))
	sums := records[len(records)-3:]
	if sums[0][5] != "sum of performance break <=10" || sums[0][6] != "3.01" {
		t.Fatalf("matched sum row = %v", sums[0])
	}
	if sums[1][5] != "sum of performance break >10" || sums[1][6] != "-50" {
		t.Fatalf("over-tolerance sum row = %v", sums[1])
	}
	// The grand total includes missing-side rows.
	if sums[2][5] != "sum of performance break" || sums[2][6] != "-27" {
		t.Fatalf("total sum row = %v", sums[2])
	}
}

func TestWriteUnwindEmptyInput(t *testing.T) {
	w := New(t.TempDir())
	if err := w.WriteUnwind(domain.BrokerMS, tol10, unwindResult(nil, nil)); err != nil {
		t.Fatalf("WriteUnwind: %v", err)
	}
	records := readCSV(t, w.BreakPath(domain.BrokerMS))
	if len(records) != 4 {
		t.Fatalf("rows = %d, want header plus three sum rows", len(records))
	}
	for _, row := range records[1:] {
		if row[6] != "0" {
			t.Fatalf("empty run sums must be zero, got %v", row)
		}
	}
}

func TestWriteUnwindMergesRunLog(t *testing.T) {
	w := New(t.TempDir())
	log := runlog.New()
	log.Warnf("cannot find Lawrence report for BOAML in /archive/20240105/BOAML")

	if err := w.WriteUnwind(domain.BrokerBOAML, tol10, unwindResult([]domain.BreakRecord{breakRec("", "AAA", "1.00")}, log)); err != nil {
		t.Fatalf("WriteUnwind: %v", err)
	}
	records := readCSV(t, w.BreakPath(domain.BrokerBOAML))
	// Data row, then log row, then the three sum rows.
	logRow := records[2]
	if logRow[0] != "WARNING: cannot find Lawrence report for BOAML in /archive/20240105/BOAML" {
		t.Fatalf("log row = %v", logRow)
	}
	for _, cell := range logRow[1:] {
		if cell != "" {
			t.Fatalf("log row must only fill the break column, got %v", logRow)
		}
	}
}

func TestWriteUnwindForBalanceRotation(t *testing.T) {
	w := New(t.TempDir())
	breaks := []domain.BreakRecord{
		breakRec("break - diff > 10", "AAA", "50.00"),
		breakRec("", "BBB", "1.00"),
	}
	if err := w.WriteUnwind(domain.BrokerUBS, tol10, unwindResult(breaks, nil)); err != nil {
		t.Fatalf("WriteUnwind: %v", err)
	}

	records := readCSV(t, w.balancePath(domain.BrokerUBS))
	wantHeader := []string{"trade_date", "settle_date", "bb_code", "UBS_NetAmount", "Z_NetAmount", "diff", "break"}
	if !reflect.DeepEqual(records[0], wantHeader) {
		t.Fatalf("header = %v", records[0])
	}
	// Classifier order, no sum or log rows.
	if len(records) != 3 || records[1][2] != "AAA" || records[1][6] != "break - diff > 10" {
		t.Fatalf("balance rows = %v", records[1:])
	}
}

func TestWriteUnwindIsIdempotent(t *testing.T) {
	w := New(t.TempDir())
	breaks := []domain.BreakRecord{breakRec("", "AAA", "2.00")}

	if err := w.WriteUnwind(domain.BrokerGS, tol10, unwindResult(breaks, nil)); err != nil {
		t.Fatalf("WriteUnwind: %v", err)
	}
	first, err := os.ReadFile(w.BreakPath(domain.BrokerGS))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUnwind(domain.BrokerGS, tol10, unwindResult(breaks, nil)); err != nil {
		t.Fatalf("WriteUnwind rerun: %v", err)
	}
	second, err := os.ReadFile(w.BreakPath(domain.BrokerGS))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatal("stage-1 rerun must overwrite to identical bytes")
	}
}

func TestAppendDividends(t *testing.T) {
	w := New(t.TempDir())
	if err := w.WriteUnwind(domain.BrokerJPM, tol10, unwindResult([]domain.BreakRecord{breakRec("", "AAA", "1.00")}, nil)); err != nil {
		t.Fatalf("WriteUnwind: %v", err)
	}

	log := runlog.New()
	log.Warnf("there is no ZEN cash dividend settled on 2024-01-04 for broker JPM")
	divs := &recon.DividendResult{
		Breaks: []domain.BreakRecord{breakRec("break - Zen missing", "DDD", "9.00")},
		Log:    log,
	}
	if err := w.AppendDividends(domain.BrokerJPM, divs); err != nil {
		t.Fatalf("AppendDividends: %v", err)
	}

	records := readCSV(t, w.BreakPath(domain.BrokerJPM))
	// Stage-1 tail (three sum rows) ends at index 4; separator follows.
	sep := records[5]
	if sep[3] != dividendSeparator {
		t.Fatalf("separator row = %v", sep)
	}
	div := records[6]
	if div[0] != "break - Zen missing" || div[3] != "DDD" {
		t.Fatalf("dividend row = %v", div)
	}
	tail := records[len(records)-1]
	if tail[0] != "WARNING: there is no ZEN cash dividend settled on 2024-01-04 for broker JPM" {
		t.Fatalf("log tail = %v", tail)
	}
}

func TestAppendDividendsWithoutStageOne(t *testing.T) {
	w := New(t.TempDir())
	err := w.AppendDividends(domain.BrokerGS, &recon.DividendResult{Log: runlog.New()})
	if err == nil {
		t.Fatal("want error when the stage-1 file is missing")
	}
}

func TestWriteUnwindLedgerTemp(t *testing.T) {
	w := New(t.TempDir())
	res := unwindResult(nil, nil)
	res.Tickets = append(res.Tickets, &testTicket)

	if err := w.WriteUnwind(domain.BrokerGS, tol10, res); err != nil {
		t.Fatalf("WriteUnwind: %v", err)
	}
	records := readCSV(t, w.ledgerPath(domain.BrokerGS))
	header, row := records[0], records[1]

	cols := map[string]string{}
	for i, c := range header {
		cols[c] = row[i]
	}
	if cols["pre_NetAmount"] != "-105" || cols["Z_NetAmount"] != "105" {
		t.Fatalf("net columns = %q / %q", cols["pre_NetAmount"], cols["Z_NetAmount"])
	}
	if cols["BBG_CashEvent"] != "TRUE" || cols["updated fx"] != "" {
		t.Fatalf("placeholder columns = %q / %q", cols["BBG_CashEvent"], cols["updated fx"])
	}
	if cols["cash_USD"] != "100" {
		t.Fatalf("cash_USD = %q", cols["cash_USD"])
	}
	for _, c := range header {
		if c == "curr_underlying" {
			t.Fatal("curr_underlying must be dropped")
		}
	}
}
