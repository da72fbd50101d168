// Package report writes the per-run output files in their legacy
// layouts: the ledger and broker temp CSVs, the break file, and its
// for-balance variant. The break file is built in two stages; the
// dividend stage reads the unwind stage's file back and appends to it.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"cashrec/internal/domain"
	"cashrec/internal/ledger"
	"cashrec/internal/recon"
	"cashrec/internal/runlog"
)

// dividendSeparator marks where dividend break rows start inside the
// combined break file. Downstream consumers key on this exact text.
const dividendSeparator = "-----div------"

// Writer builds the output files for one broker/date run under Dir.
type Writer struct {
	Dir string
}

// New creates a writer rooted at dir.
func New(dir string) *Writer { return &Writer{Dir: dir} }

// BreakPath returns the combined break file path for a broker.
func (w *Writer) BreakPath(b domain.Broker) string {
	return filepath.Join(w.Dir, fmt.Sprintf("BREAK_sea_%s.csv", strings.ToLower(string(b))))
}

func (w *Writer) balancePath(b domain.Broker) string {
	return filepath.Join(w.Dir, fmt.Sprintf("BREAK_sea_%s_for_balance.csv", strings.ToLower(string(b))))
}

func (w *Writer) ledgerPath(b domain.Broker) string {
	return filepath.Join(w.Dir, fmt.Sprintf("z_sea_%s_tmp.csv", strings.ToLower(string(b))))
}

func (w *Writer) brokerPath(b domain.Broker) string {
	lower := strings.ToLower(string(b))
	return filepath.Join(w.Dir, fmt.Sprintf("%s_sea_%s_tmp.csv", lower, lower))
}

func breakColumns(b domain.Broker) []string {
	return []string{
		"break", "trade_date", "settle_date", "bb_code",
		fmt.Sprintf("%s_NetAmount", b), "Z_NetAmount", "diff",
	}
}

// WriteUnwind produces the stage-1 files: the ledger temp CSV, the
// shaped broker temp CSV, the for-balance break variant in classifier
// order, and the primary break file sorted by descending absolute diff
// with the run log and the three trailing sum rows appended.
func (w *Writer) WriteUnwind(b domain.Broker, tolerance decimal.Decimal, res *recon.UnwindResult) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err := w.writeLedgerTemp(b, res.Tickets); err != nil {
		return err
	}
	if err := writeCSV(w.brokerPath(b), res.Shaped.Columns, res.Shaped.Rows); err != nil {
		return err
	}

	cols := breakColumns(b)
	body := breakRows(res.Breaks)

	// The for-balance variant carries the unsorted body with the break
	// category rotated to the last column, and no log or sum rows.
	if err := writeCSV(w.balancePath(b), rotateFirstLast(cols), rotateRows(body)); err != nil {
		return err
	}

	sorted := sortByAbsDiff(res.Breaks)
	rows := breakRows(sorted)
	rows = append(rows, logRows(res.Log, len(cols))...)
	rows = append(rows, sumRows(res.Breaks, b, tolerance, len(cols))...)

	return writeCSV(w.BreakPath(b), cols, rows)
}

// AppendDividends reads the stage-1 break file back and appends the
// separator row, the dividend break rows and the dividend pass's log.
// This stage is not idempotent on its own; a fresh run regenerates the
// file from stage 1.
func (w *Writer) AppendDividends(b domain.Broker, res *recon.DividendResult) error {
	path := w.BreakPath(b)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read stage-1 break file: %w", err)
	}
	records, err := csv.NewReader(f).ReadAll()
	f.Close()
	if err != nil {
		return fmt.Errorf("read stage-1 break file %s: %w", path, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("stage-1 break file %s is empty", path)
	}
	cols, rows := records[0], records[1:]

	separator := make([]string, len(cols))
	separator[3] = dividendSeparator
	rows = append(rows, separator)
	rows = append(rows, breakRows(res.Breaks)...)
	rows = append(rows, logRows(res.Log, len(cols))...)

	return writeCSV(path, cols, rows)
}

// writeLedgerTemp shapes the ledger tickets into the historical
// z_sea_<broker>_tmp.csv layout: the signed net amounts inserted after
// the financing column, the fx placeholders and the cash_USD copy at
// the tail, and no curr_underlying column.
func (w *Writer) writeLedgerTemp(b domain.Broker, tickets []*ledger.CashTicket) error {
	cols := []string{
		"ticket_id", "bb_code", "prime", "event", "on_swap", "currency",
		"date", "date_trade_entry", "date_settle", "quantity", "price",
		"cash_local", "accrued_fin", "pre_NetAmount", "Z_NetAmount",
		"fx_rate", "updated fx", "BBG_CashEvent", "cash_USD",
	}
	rows := make([][]string, 0, len(tickets))
	for _, t := range tickets {
		net := t.UnwindAmount()
		rows = append(rows, []string{
			fmt.Sprintf("%d", t.TicketID), t.BBCode, t.Prime, t.Event,
			t.OnSwap, t.Currency, t.Date.String(), t.DateTradeEntry.String(),
			t.DateSettle.String(), t.Quantity.String(), t.Price.String(),
			t.CashLocal.String(), t.AccruedFin.String(),
			net.Neg().String(), net.String(), t.FXRate.String(),
			"", "TRUE", t.CashLocal.String(),
		})
	}
	return writeCSV(w.ledgerPath(b), cols, rows)
}

func breakRows(breaks []domain.BreakRecord) [][]string {
	rows := make([][]string, 0, len(breaks))
	for _, br := range breaks {
		rows = append(rows, []string{
			br.Category,
			br.TradeDate.String(),
			br.SettleDate.String(),
			br.Key.BBCode,
			amountCell(br.BrokerAmount),
			amountCell(br.LedgerAmount),
			br.Diff.String(),
		})
	}
	return rows
}

func amountCell(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// sortByAbsDiff orders break rows largest discrepancy first. The sort
// is stable so ties keep their classifier order.
func sortByAbsDiff(breaks []domain.BreakRecord) []domain.BreakRecord {
	sorted := append([]domain.BreakRecord(nil), breaks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Diff.Abs().GreaterThan(sorted[j].Diff.Abs())
	})
	return sorted
}

// logRows turns the run log into break-file rows with the line in the
// break column and everything else empty.
func logRows(log *runlog.Log, width int) [][]string {
	rows := make([][]string, 0, log.Len())
	for _, line := range log.Lines() {
		row := make([]string, width)
		row[0] = line
		rows = append(rows, row)
	}
	return rows
}

// sumRows builds the three trailing sum rows: within-tolerance diffs,
// over-tolerance diffs and the grand total, with the label in the
// Z_NetAmount column and the rounded value in the diff column.
func sumRows(breaks []domain.BreakRecord, b domain.Broker, tolerance decimal.Decimal, width int) [][]string {
	var matched, overTol, total decimal.Decimal
	diffCategory := domain.CategoryDiffBreak(tolerance)
	for _, br := range breaks {
		total = total.Add(br.Diff)
		switch br.Category {
		case domain.CategoryMatched:
			matched = matched.Add(br.Diff)
		case diffCategory:
			overTol = overTol.Add(br.Diff)
		}
	}

	row := func(label string, value decimal.Decimal) []string {
		r := make([]string, width)
		r[5] = label
		r[6] = value.Round(2).String()
		return r
	}
	return [][]string{
		row(fmt.Sprintf("sum of performance break <=%s", tolerance), matched),
		row(fmt.Sprintf("sum of performance break >%s", tolerance), overTol),
		row("sum of performance break", total),
	}
}

func rotateFirstLast(cols []string) []string {
	out := append([]string(nil), cols[1:]...)
	return append(out, cols[0])
}

func rotateRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, rotateFirstLast(r))
	}
	return out
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	w.Write(header)
	w.WriteAll(rows)
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
