package broker

import (
	"errors"
	"fmt"

	"cashrec/internal/archive"
	"cashrec/internal/dates"
	"cashrec/internal/domain"
	"cashrec/internal/tickermap"
)

// BOAML pays unwind financing at unwind time, so settlement reports are
// read per ledger trade date and filtered to the target payment date.
// Dividends surface in the report two business days before they settle.
type BOAML struct{}

func (BOAML) Code() domain.Broker { return domain.BrokerBOAML }

var boamlIncludes = []string{"Lawrence"}

// boamlSkipRows: banner on row 0, a repeated title on row 2; the header
// sits between them.
var boamlSkipRows = []int{0, 2}

var boamlColumns = []string{
	"Reset Record Description", "Reset Record Code", "ML Reference Number",
	"Date Closed", "Swap Reset Date", "Payment Date", "Action",
	"Swap Description", "Underlying Short Product Description",
	"Underlying Internal ID", "Underlying Primary Bloomberg Code",
	"Underlying ISIN", "Underlying SEDOL", "Position", "Total Pay CCY",
	"Settlement CCY", "Position Cost Basis", "Mark Price - Local CCY",
	"Comments",
}

// boamlLegacyColumns is the historical 18-column projection, applied
// after stripping spaces and dashes from the header.
var boamlLegacyColumns = []string{
	"ResetRecordDescription", "MLReferenceNumber", "DateClosed",
	"SwapResetDate", "PaymentDate", "Action", "SwapDescription",
	"UnderlyingShortProductDescription", "UnderlyingInternalID",
	"UnderlyingPrimaryBloombergCode", "UnderlyingISIN", "UnderlyingSEDOL",
	"Position", "TotalPayCCY", "SettlementCCY", "PositionCostBasis",
	"MarkPriceLocalCCY", "Comments",
}

// Reset record codes marking the event type of a settlement row.
const (
	boamlResetEquity   = "REQY" // unwind performance
	boamlResetDividend = "RDV"  // cash dividend
)

func (b BOAML) UnwindCashflows(env *Env, settle dates.Date, tradeDates []dates.Date) (*Normalized, error) {
	out := newNormalized(boamlColumns)
	for _, td := range tradeDates {
		path, err := archive.Find(env.ArchiveRoot, td, domain.BrokerBOAML, boamlIncludes, nil)
		if errors.Is(err, archive.ErrNotFound) {
			env.Log.Warnf("cannot find %s report for BOAML in %s", boamlIncludes[0], archive.Dir(env.ArchiveRoot, td, domain.BrokerBOAML))
			continue
		}
		if err != nil {
			return nil, err
		}

		t, err := readBOAMLReport(path)
		if err != nil {
			return nil, err
		}

		paid := t.Filter(func(get func(string) string) bool {
			d, err := dates.ParseAny(get("Payment Date"))
			return err == nil && d.Equal(settle)
		})
		if paid.Len() == 0 {
			env.Log.Warnf("there is no BOAML swap unwind cashflow on settle date = %s as sourced from %s", settle, path)
		}

		// All payment-date rows go to the legacy output; only equity
		// reset rows take part in the comparison.
		for _, row := range paid.Rows {
			out.Raw.Append(row)
			if paid.Get(row, "Reset Record Code") != boamlResetEquity {
				continue
			}
			rec, err := boamlRecord(paid, row, "Swap Reset Date")
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			out.Records = append(out.Records, rec)
		}
	}
	return out, nil
}

func (b BOAML) SettledDividends(env *Env, settle dates.Date) (*Normalized, error) {
	out := newNormalized(boamlColumns)
	reportDate := settle.AddBusinessDays(-2)

	path, err := findReportOrWarn(env, domain.BrokerBOAML, reportDate, boamlIncludes, nil)
	if err != nil || path == "" {
		return out, err
	}

	t, err := readBOAMLReport(path)
	if err != nil {
		return nil, err
	}

	divs := t.Filter(func(get func(string) string) bool {
		if get("Reset Record Code") != boamlResetDividend {
			return false
		}
		d, err := dates.ParseAny(get("Payment Date"))
		return err == nil && d.Equal(settle)
	})
	if divs.Len() == 0 {
		env.Log.Warnf("there is no BOAML cash dividend settled on %s as sourced from %s", settle, path)
		return out, nil
	}

	for _, row := range divs.Rows {
		rec, err := boamlRecord(divs, row, "Payment Date")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out.add(row, rec)
	}
	return out, nil
}

func readBOAMLReport(path string) (*Table, error) {
	t, err := ReadReport(path, boamlSkipRows...)
	if err != nil {
		return nil, err
	}
	if err := t.SetColumns(boamlColumns); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func boamlRecord(t *Table, row []string, dateCol string) (domain.NormalizedRecord, error) {
	d, err := dates.ParseAny(t.Get(row, dateCol))
	if err != nil {
		return domain.NormalizedRecord{}, err
	}
	amount, err := ParseAmount(t.Get(row, "Total Pay CCY"))
	if err != nil {
		return domain.NormalizedRecord{}, err
	}
	bb := tickermap.CanonicalBBCode(t.Get(row, "Underlying Primary Bloomberg Code"))
	return domain.NormalizedRecord{
		Key:    domain.MatchKey{BBCode: bb, Date: d},
		Amount: amount,
	}, nil
}

// DividendLedgerDates: BOAML dividends settle on the target date itself.
func (b BOAML) DividendLedgerDates(settle dates.Date, _ *Normalized) []dates.Date {
	return []dates.Date{settle}
}

// ShapeUnwind strips the header punctuation, projects the historical
// column set and renames the pay amount, as the V2 file always did.
func (b BOAML) ShapeUnwind(_ *Env, raw *Normalized) *Table {
	t := cloneTable(raw.Raw)
	t.StripColumnNames()
	t = t.Project(boamlLegacyColumns)
	t.Rename("TotalPayCCY", "BOAML_NetAmount")
	return t
}
