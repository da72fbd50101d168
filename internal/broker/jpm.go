package broker

import (
	"fmt"

	"cashrec/internal/dates"
	"cashrec/internal/domain"
)

// JPM pays unwind financing at unwind time and delivers its enhanced
// settlement report late: the target date's file is tried first, then
// the prior business day's. Dividends settle on whatever pay dates the
// prior day's report carries.
type JPM struct{}

func (JPM) Code() domain.Broker { return domain.BrokerJPM }

var jpmIncludes = []string{"Blue_Portfolio_Swap_Settlement_Enhanced_Report"}

var jpmColumns = []string{
	"Report Date", "Account", "Level", "Event", "Trade Date",
	"Swap Pay Date", "Settlement Status", "Security Name", "Bloomberg Code",
	"ISIN", "Quantity", "Price", "Equity Amount (Pay Currency)",
	"Financing Amount (Pay Currency)", "Net Amount (Pay Currency)",
	"Pay Currency", "JPM Reference",
}

func (j JPM) UnwindCashflows(env *Env, settle dates.Date, _ []dates.Date) (*Normalized, error) {
	out := newNormalized(jpmColumns)

	path, err := findWithFallback(env, domain.BrokerJPM, settle, jpmIncludes, nil)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return out, nil
	}

	t, err := readJPMReport(path)
	if err != nil {
		return nil, err
	}

	unwinds := t.Filter(func(get func(string) string) bool {
		if get("Level") != "Trade" || get("Event") != "Unwind" {
			return false
		}
		if get("Settlement Status") != "SETTLED" {
			return false
		}
		d, err := dates.ParseAny(get("Swap Pay Date"))
		return err == nil && d.Equal(settle)
	})
	if unwinds.Len() == 0 {
		env.Log.Warnf("there is no JPM swap unwind cashflow on settle date = %s as sourced from %s", settle, path)
	}

	for _, row := range unwinds.Rows {
		rec, err := jpmRecord(unwinds, row, "Trade Date", "Equity Amount (Pay Currency)")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out.add(row, rec)
	}
	return out, nil
}

func (j JPM) SettledDividends(env *Env, settle dates.Date) (*Normalized, error) {
	out := newNormalized(jpmColumns)
	reportDate := settle.AddBusinessDays(-1)

	path, err := findReportOrWarn(env, domain.BrokerJPM, reportDate, jpmIncludes, nil)
	if err != nil || path == "" {
		return out, err
	}

	t, err := readJPMReport(path)
	if err != nil {
		return nil, err
	}

	divs := t.Filter(func(get func(string) string) bool {
		return get("Level") == "Trade" &&
			get("Event") == "Dividend" &&
			get("Settlement Status") == "SETTLED"
	})
	if divs.Len() == 0 {
		env.Log.Warnf("there is no JPM cash dividend settled as sourced from %s", path)
		return out, nil
	}

	for _, row := range divs.Rows {
		rec, err := jpmRecord(divs, row, "Swap Pay Date", "Net Amount (Pay Currency)")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out.add(row, rec)
	}
	return out, nil
}

func readJPMReport(path string) (*Table, error) {
	t, err := ReadReport(path)
	if err != nil {
		return nil, err
	}
	if err := t.SetColumns(jpmColumns); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func jpmRecord(t *Table, row []string, dateCol, amountCol string) (domain.NormalizedRecord, error) {
	d, err := dates.ParseAny(t.Get(row, dateCol))
	if err != nil {
		return domain.NormalizedRecord{}, err
	}
	amount, err := ParseAmount(t.Get(row, amountCol))
	if err != nil {
		return domain.NormalizedRecord{}, err
	}
	return domain.NormalizedRecord{
		Key:    domain.MatchKey{BBCode: t.Get(row, "Bloomberg Code"), Date: d},
		Amount: amount,
	}, nil
}

// DividendLedgerDates: JPM settlement is delayed, so the ledger is
// queried per distinct pay date found in the broker rows.
func (j JPM) DividendLedgerDates(_ dates.Date, divs *Normalized) []dates.Date {
	return distinctKeyDates(divs.Records)
}

// ShapeUnwind strips header punctuation and renames the equity amount,
// matching the legacy V2 layout.
func (j JPM) ShapeUnwind(_ *Env, raw *Normalized) *Table {
	t := cloneTable(raw.Raw)
	t.StripColumnNames()
	t.Rename("EquityAmount(PayCurrency)", "JPM_NetAmount")
	return t
}
