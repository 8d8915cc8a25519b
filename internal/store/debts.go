package store

import (
	"context"
	"database/sql"

	"lagrace/internal/domain"
)

const openDebt = `status IN ('pending', 'partial')`

func (s *Store) DebtTotals(ctx context.Context) (domain.DebtTotals, error) {
	var t domain.DebtTotals
	err := s.queryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount_cdf), 0), COALESCE(SUM(amount_usd), 0)
		FROM debts
		WHERE `+openDebt,
	).Scan(&t.Count, &t.TotalCDF, &t.TotalUSD)
	return t, err
}

// TopDebts lists open debts, largest first.
func (s *Store) TopDebts(ctx context.Context, limit int) ([]domain.Debt, error) {
	rows, err := s.query(ctx, `
		SELECT id, client_name, amount_cdf, amount_usd, status, due_date
		FROM debts
		WHERE `+openDebt+`
		ORDER BY amount_usd DESC, amount_cdf DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Debt
	for rows.Next() {
		var (
			d       domain.Debt
			client  sql.NullString
			cdf     sql.NullFloat64
			usd     sql.NullFloat64
			dueDate any
		)
		if err := rows.Scan(&d.ID, &client, &cdf, &usd, &d.Status, &dueDate); err != nil {
			return nil, err
		}
		d.ClientName = client.String
		d.AmountCDF = cdf.Float64
		d.AmountUSD = usd.Float64
		if t := parseTime(dueDate); !t.IsZero() {
			d.DueDate = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
