package tickermap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DefaultTable is the trade ticker map table name unless overridden.
const DefaultTable = "trade_ticker_map"

// Querier is the subset of pgxpool.Pool the loader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Load reads the trade ticker map table and builds the identifier map.
// Identifier transforms happen in New, not in SQL, so they stay pure and
// testable.
func Load(ctx context.Context, q Querier, table string) (*Map, error) {
	query := fmt.Sprintf(`
		SELECT bb_code_traded, sedol_traded, isin, ric
		FROM %s
	`, table)

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ticker map: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.BBCodeTraded, &e.Sedol, &e.ISIN, &e.RIC); err != nil {
			return nil, fmt.Errorf("scan ticker map row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read ticker map: %w", err)
	}

	return New(entries), nil
}
