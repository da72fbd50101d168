package broker

import (
	"errors"
	"fmt"
	"regexp"

	"cashrec/internal/archive"
	"cashrec/internal/dates"
	"cashrec/internal/domain"
)

// UBS pays unwind financing after month-end with reset financing.
// Unwind performance comes from the terminations report per trade date,
// enriched with the trade date itself from the swap activity report by
// joining on the UBS reference. Dividends come from the prior business
// day's settle-date cash activity statement.
type UBS struct{}

func (UBS) Code() domain.Broker { return domain.BrokerUBS }

// ubsAccountName scopes every UBS report to the reconciliation account.
const ubsAccountName = "BLUEHARBOUR MAP I LP-ZENTIFIC"

var (
	ubsTerminationIncludes  = []string{"PRTTerminationsISIN.GRPZENTI"}
	ubsSwapActivityIncludes = []string{"PRTSwapActivityTradesFlat.GRPZENTI"}
	ubsCashActivityIncludes = []string{"PRTCashActivityStmt-SDperiodiccash.GRPZENTI"}
)

var ubsTerminationColumns = []string{
	"Account Name", "Account ID", "Settle Date", "Security Description",
	"RIC", "ISIN", "Sedol", "Close Trade", "Quantity", "Gross Price",
	"Net PnL", "Settle CCY",
}

var ubsCashActivityColumns = []string{
	"Account Name", "Settle CCY", "Entry Date", "Trade Date", "Settle Date",
	"Account ID", "Trans Type", "Cashflow Type", "Transaction Comments",
	"Cancel", "Security Description", "UBS Ref", "Exec Broker", "Net Amount",
}

// ubsLegacyBBCodeCol is the historical bb_code position in the V2 file.
const ubsLegacyBBCodeCol = 12

// ubsSedolPattern pulls the SEDOL out of a cash activity comment.
var ubsSedolPattern = regexp.MustCompile(`SEDOL ([A-Z0-9]{6})`)

func (u UBS) UnwindCashflows(env *Env, settle dates.Date, tradeDates []dates.Date) (*Normalized, error) {
	out := newNormalized(append(ubsTerminationColumns, "Trade Date"))
	for _, td := range tradeDates {
		path, err := archive.Find(env.ArchiveRoot, td, domain.BrokerUBS, ubsTerminationIncludes, nil)
		if errors.Is(err, archive.ErrNotFound) {
			env.Log.Warnf("cannot find %s report for UBS in %s", ubsTerminationIncludes[0], archive.Dir(env.ArchiveRoot, td, domain.BrokerUBS))
			continue
		}
		if err != nil {
			return nil, err
		}

		t, err := ReadReport(path)
		if err != nil {
			return nil, err
		}
		if err := t.SetColumns(ubsTerminationColumns); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		settled := t.Filter(func(get func(string) string) bool {
			if get("Account Name") != ubsAccountName {
				return false
			}
			d, err := dates.ParseAny(get("Settle Date"))
			return err == nil && d.Equal(settle)
		})
		if settled.Len() == 0 {
			env.Log.Warnf("there is no UBS swap unwind cashflow on settle date = %s as sourced from %s", settle, path)
			continue
		}

		tradeDateByRef, err := u.loadTradeDates(env, td)
		if err != nil {
			return nil, err
		}

		for _, row := range settled.Rows {
			ref := settled.Get(row, "Close Trade")
			tradeDate := tradeDateByRef[ref]
			if tradeDate == "" {
				env.Log.Warnf("no UBS swap activity trade date for reference %q", ref)
			}
			rec, err := ubsUnwindRecord(env, settled, row, tradeDate)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			out.add(append(row, tradeDate), rec)
		}
	}
	return out, nil
}

// loadTradeDates reads the swap activity report for a trade date and
// indexes trade dates by UBS reference.
func (u UBS) loadTradeDates(env *Env, td dates.Date) (map[string]string, error) {
	refs := make(map[string]string)
	path, err := findReportOrWarn(env, domain.BrokerUBS, td, ubsSwapActivityIncludes, nil)
	if err != nil || path == "" {
		return refs, err
	}

	t, err := ReadReport(path)
	if err != nil {
		return nil, err
	}
	tradeCol := t.Col("Trade Date")
	refCol := t.Col("UBS Ref")
	if tradeCol < 0 || refCol < 0 {
		return nil, fmt.Errorf("%s: swap activity report missing Trade Date/UBS Ref columns", path)
	}
	for _, row := range t.Rows {
		refs[row[refCol]] = row[tradeCol]
	}
	return refs, nil
}

func ubsUnwindRecord(env *Env, t *Table, row []string, tradeDate string) (domain.NormalizedRecord, error) {
	ric := t.Get(row, "RIC")
	bb, ok := env.Tickers.ByRIC(ric)
	if !ok {
		env.Log.Warnf("no bb_code mapping for UBS RIC %q", ric)
	}
	var d dates.Date
	if tradeDate != "" {
		var err error
		if d, err = dates.ParseAny(tradeDate); err != nil {
			return domain.NormalizedRecord{}, err
		}
	}
	amount, err := ParseAmount(t.Get(row, "Net PnL"))
	if err != nil {
		return domain.NormalizedRecord{}, err
	}
	return domain.NormalizedRecord{
		Key:    domain.MatchKey{BBCode: bb, Date: d},
		Amount: amount,
	}, nil
}

func (u UBS) SettledDividends(env *Env, settle dates.Date) (*Normalized, error) {
	out := newNormalized(append(ubsCashActivityColumns, "Sedol"))
	reportDate := settle.AddBusinessDays(-1)

	path, err := findReportOrWarn(env, domain.BrokerUBS, reportDate, ubsCashActivityIncludes, nil)
	if err != nil || path == "" {
		return out, err
	}

	t, err := ReadReport(path)
	if err != nil {
		return nil, err
	}
	if err := t.SetColumns(ubsCashActivityColumns); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// The statement only names the account on its first row of each
	// block; forward-fill before filtering.
	forwardFill(t, "Account Name")

	divs := t.Filter(func(get func(string) string) bool {
		return get("Account Name") == ubsAccountName &&
			get("Cashflow Type") == "Dividend" &&
			get("Trans Type") == "Posting" &&
			get("Cancel") == ""
	})
	if divs.Len() == 0 {
		env.Log.Warnf("there is no UBS cash dividend settled on %s as sourced from %s", reportDate, path)
		return out, nil
	}

	for _, row := range divs.Rows {
		sedol := ""
		if m := ubsSedolPattern.FindStringSubmatch(divs.Get(row, "Transaction Comments")); m != nil {
			sedol = m[1]
		}
		bb, ok := env.Tickers.BySedol(sedol)
		if !ok {
			env.Log.Warnf("no bb_code mapping for UBS SEDOL %q", sedol)
		}
		settleDate, err := dates.ParseAny(divs.Get(row, "Settle Date"))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		amount, err := ParseAmount(divs.Get(row, "Net Amount"))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out.add(append(row, sedol), domain.NormalizedRecord{
			Key:    domain.MatchKey{BBCode: bb, Date: settleDate},
			Amount: amount,
		})
	}
	return out, nil
}

// DividendLedgerDates: UBS dividends are booked against the prior
// business day's settle date.
func (u UBS) DividendLedgerDates(settle dates.Date, _ *Normalized) []dates.Date {
	return []dates.Date{settle.AddBusinessDays(-1)}
}

// ShapeUnwind renames the PnL amount and places bb_code at its
// historical position.
func (u UBS) ShapeUnwind(env *Env, raw *Normalized) *Table {
	t := cloneTable(raw.Raw)
	t.Insert(ubsLegacyBBCodeCol, "bb_code", func(get func(string) string) string {
		bb, _ := env.Tickers.ByRIC(get("RIC"))
		return bb
	})
	t.Rename("Net PnL", "UBS_NetAmount")
	return t
}

// forwardFill copies the last non-empty value of a column into the
// empty cells below it.
func forwardFill(t *Table, column string) {
	i := t.Col(column)
	if i < 0 {
		return
	}
	last := ""
	for _, row := range t.Rows {
		if row[i] != "" {
			last = row[i]
		} else {
			row[i] = last
		}
	}
}
