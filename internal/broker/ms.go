package broker

import (
	"fmt"

	"cashrec/internal/dates"
	"cashrec/internal/domain"
)

// MS pays unwind financing at unwind time and, like JPM, delivers its
// settlement report with a possible one-day lag, so the target date's
// file is tried before the prior business day's. Dividends post with
// payment date one business day behind the reconciliation date.
type MS struct{}

func (MS) Code() domain.Broker { return domain.BrokerMS }

// msAccountNumber scopes the shared report to the reconciliation account.
const msAccountNumber = "038CAFIQ0"

var msIncludes = []string{"ZIM-EQSWAP24MX"}

// msSkipRows: one banner row above the header.
var msSkipRows = []int{0}

// msColumns is the fixed template; the trailing three columns are
// padding in the delivered file and never reach the legacy output.
var msColumns = []string{
	"Account Number", "Account Name", "Valuation Date",
	"Effective Trade Date", "Settlement Date", "Payment Date", "Event",
	"Bloomberg ID", "Security Description", "ISIN", "Quantity", "Price",
	"Amount", "Financing Amount", "Currency", "MS Reference",
	"Unused 1", "Unused 2", "Unused 3",
}

// msLegacyWidth is where the historical V2 file cuts the padding off.
const msLegacyWidth = 16

func (m MS) UnwindCashflows(env *Env, settle dates.Date, _ []dates.Date) (*Normalized, error) {
	out := newNormalized(msColumns)

	path, err := findWithFallback(env, domain.BrokerMS, settle, msIncludes, nil)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return out, nil
	}

	t, err := readMSReport(path)
	if err != nil {
		return nil, err
	}

	unwinds := t.Filter(func(get func(string) string) bool {
		if get("Account Number") != msAccountNumber || get("Event") != "Unwind" {
			return false
		}
		d, err := dates.ParseAny(get("Payment Date"))
		return err == nil && d.Equal(settle)
	})
	if unwinds.Len() == 0 {
		env.Log.Warnf("there is no MS swap unwind cashflow on settle date = %s as sourced from %s", settle, path)
	}

	for _, row := range unwinds.Rows {
		rec, err := msRecord(unwinds, row, "Effective Trade Date")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out.add(row, rec)
	}
	return out, nil
}

func (m MS) SettledDividends(env *Env, settle dates.Date) (*Normalized, error) {
	out := newNormalized(msColumns)
	payDate := settle.AddBusinessDays(-1)

	path, err := findWithFallback(env, domain.BrokerMS, settle, msIncludes, nil)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return out, nil
	}

	t, err := readMSReport(path)
	if err != nil {
		return nil, err
	}

	divs := t.Filter(func(get func(string) string) bool {
		if get("Account Number") != msAccountNumber || get("Event") != "Dividend" {
			return false
		}
		d, err := dates.ParseAny(get("Payment Date"))
		return err == nil && d.Equal(payDate)
	})
	if divs.Len() == 0 {
		env.Log.Warnf("there is no MS cash dividend settled on %s as sourced from %s", payDate, path)
		return out, nil
	}

	for _, row := range divs.Rows {
		rec, err := msRecord(divs, row, "Payment Date")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out.add(row, rec)
	}
	return out, nil
}

func readMSReport(path string) (*Table, error) {
	t, err := ReadReport(path, msSkipRows...)
	if err != nil {
		return nil, err
	}
	if err := t.SetColumns(msColumns); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func msRecord(t *Table, row []string, dateCol string) (domain.NormalizedRecord, error) {
	d, err := dates.ParseAny(t.Get(row, dateCol))
	if err != nil {
		return domain.NormalizedRecord{}, err
	}
	amount, err := ParseAmount(t.Get(row, "Amount"))
	if err != nil {
		return domain.NormalizedRecord{}, err
	}
	return domain.NormalizedRecord{
		Key:    domain.MatchKey{BBCode: t.Get(row, "Bloomberg ID"), Date: d},
		Amount: amount,
	}, nil
}

// DividendLedgerDates: MS settlement is delayed, so the ledger is
// queried per distinct pay date found in the broker rows.
func (m MS) DividendLedgerDates(_ dates.Date, divs *Normalized) []dates.Date {
	return distinctKeyDates(divs.Records)
}

// ShapeUnwind strips header punctuation, renames the amount, drops the
// padding columns and appends the combined MS_Total column.
func (m MS) ShapeUnwind(_ *Env, raw *Normalized) *Table {
	t := cloneTable(raw.Raw)
	t.StripColumnNames()
	t.Rename("Amount", "MS_NetAmount")
	t.Truncate(msLegacyWidth)
	t.Insert(msLegacyWidth, "MS_Total", func(get func(string) string) string {
		net, err := ParseAmount(get("MS_NetAmount"))
		if err != nil {
			return ""
		}
		fin, err := ParseAmount(get("FinancingAmount"))
		if err != nil {
			return ""
		}
		return net.Add(fin).String()
	})
	return t
}
