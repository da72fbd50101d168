package broker

import (
	"errors"
	"fmt"
	"strings"

	"cashrec/internal/archive"
	"cashrec/internal/dates"
	"cashrec/internal/domain"
)

// GS pays unwind financing at month-end with reset financing, so unwind
// performance is sourced from each trade date's daily activity report.
// Settled dividends come from the prior business day's custody
// settle-date report.
type GS struct{}

func (GS) Code() domain.Broker { return domain.BrokerGS }

var (
	gsActivityIncludes = []string{"CFD_Daily_Activi_287575"}
	gsCustodyIncludes  = []string{"Custody_Settle_D_301701"}
	gsExcludes         = []string{"AP", "APE"}
)

// gsActivitySkipRows: the activity report carries a seven-row banner
// before the header.
var gsActivitySkipRows = []int{0, 1, 2, 3, 4, 5, 6}

// gsActivityColumns is the fixed template for the daily activity
// report. The file's own header drifts, so it is always overridden.
var gsActivityColumns = []string{
	"Trade Date", "Settle Date", "Account", "Account Name", "Product Type",
	"Underlyer RIC", "Underlyer Name", "Swap Description", "Open/Close",
	"Buy/Sell", "Quantity", "Price Local", "Gross Amount (Local CCY)",
	"Commission", "Net Amount (Local CCY)", "FX Rate",
	"Net Amount (Settle CCY)", "Settle CCY", "Trade Ref", "Comments",
}

// gsCustodyColumns is the custody settle-date report layout; Sedol is
// derived from the broker description, not present in the file.
var gsCustodyColumns = []string{
	"Advisor", "Fund", "Base Currency", "Currency", "Opening Balance",
	"Trade/NonTrade/FX Forwards", "Product Description", "ProductID",
	"TradeDate", "SettleDate", "Activity", "AccountType", "TradeQuantity",
	"TradePrice", "CommissionInterest", "NetAmount", "BrokerDescription",
	"Account Number", "Reference Number",
}

// gsLegacyBBCodeCol is where the historical V2 file carries bb_code.
const gsLegacyBBCodeCol = 17

func (g GS) UnwindCashflows(env *Env, settle dates.Date, tradeDates []dates.Date) (*Normalized, error) {
	out := newNormalized(gsActivityColumns)
	for _, td := range tradeDates {
		path, err := archive.Find(env.ArchiveRoot, td, domain.BrokerGS, gsActivityIncludes, gsExcludes)
		if errors.Is(err, archive.ErrNotFound) {
			env.Log.Warnf("cannot find %s report for GS in %s", gsActivityIncludes[0], archive.Dir(env.ArchiveRoot, td, domain.BrokerGS))
			continue
		}
		if err != nil {
			return nil, err
		}

		t, err := ReadReport(path, gsActivitySkipRows...)
		if err != nil {
			return nil, err
		}
		if err := t.SetColumns(gsActivityColumns); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		closed := t.Filter(func(get func(string) string) bool {
			return get("Open/Close") == "Close"
		})
		if closed.Len() == 0 {
			env.Log.Warnf("there is no GS swap unwind cashflow on settle date = %s as sourced from %s", settle, path)
		}

		for _, row := range closed.Rows {
			rec, err := gsUnwindRecord(env, closed, row)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			out.add(row, rec)
		}
	}
	return out, nil
}

func gsUnwindRecord(env *Env, t *Table, row []string) (domain.NormalizedRecord, error) {
	ric := t.Get(row, "Underlyer RIC")
	bb, ok := env.Tickers.ByRIC(ric)
	if !ok {
		env.Log.Warnf("no bb_code mapping for GS RIC %q", ric)
	}
	tradeDate, err := dates.ParseAny(t.Get(row, "Trade Date"))
	if err != nil {
		return domain.NormalizedRecord{}, err
	}
	amount, err := ParseAmount(t.Get(row, "Net Amount (Settle CCY)"))
	if err != nil {
		return domain.NormalizedRecord{}, err
	}
	return domain.NormalizedRecord{
		Key:    domain.MatchKey{BBCode: bb, Date: tradeDate},
		Amount: amount,
	}, nil
}

func (g GS) SettledDividends(env *Env, settle dates.Date) (*Normalized, error) {
	out := newNormalized(append(gsCustodyColumns, "Sedol"))
	reportDate := settle.AddBusinessDays(-1)

	path, err := findReportOrWarn(env, domain.BrokerGS, reportDate, gsCustodyIncludes, gsExcludes)
	if err != nil || path == "" {
		return out, err
	}

	t, err := ReadReport(path)
	if err != nil {
		return nil, err
	}
	if err := t.SetColumns(gsCustodyColumns); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	divs := t.Filter(func(get func(string) string) bool {
		if get("Activity") == "" {
			return false
		}
		if !strings.Contains(get("Activity"), "DIVIDEND") {
			return false
		}
		if get("Currency") != "U S DOLLAR" {
			return false
		}
		d, err := dates.ParseAny(get("SettleDate"))
		return err == nil && d.Equal(reportDate)
	})
	if divs.Len() == 0 {
		env.Log.Warnf("there is no GS cash dividend settled on %s as sourced from %s", reportDate, path)
		return out, nil
	}

	for _, row := range divs.Rows {
		sedol := gsSedol(divs.Get(row, "BrokerDescription"))
		bb, ok := env.Tickers.BySedol(sedol)
		if !ok {
			env.Log.Warnf("no bb_code mapping for GS SEDOL %q", sedol)
		}
		settleDate, err := dates.ParseAny(divs.Get(row, "SettleDate"))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		amount, err := ParseAmount(divs.Get(row, "NetAmount"))
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

// gsSedol slices the SEDOL out of the custody broker description, which
// ends with "...(<SEDOL>)".
func gsSedol(desc string) string {
	if len(desc) < 8 {
		return ""
	}
	return desc[len(desc)-7 : len(desc)-1]
}

// DividendLedgerDates: GS dividends are booked against the prior
// business day's settle date.
func (g GS) DividendLedgerDates(settle dates.Date, _ *Normalized) []dates.Date {
	return []dates.Date{settle.AddBusinessDays(-1)}
}

// ShapeUnwind aligns the raw activity rows with the legacy V2 layout:
// the settle-currency amount is renamed and bb_code sits at its
// historical position.
func (g GS) ShapeUnwind(env *Env, raw *Normalized) *Table {
	t := cloneTable(raw.Raw)
	t.Insert(gsLegacyBBCodeCol, "bb_code", func(get func(string) string) string {
		bb, _ := env.Tickers.ByRIC(get("Underlyer RIC"))
		return bb
	})
	t.Rename("Net Amount (Settle CCY)", "GS_NetAmount")
	return t
}
